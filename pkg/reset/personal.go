package reset

import (
	"strings"

	"github.com/oarkflow/streamguard/pkg/utils"
)

const minPersonalFragment = 4

// ContainsPersonalInfo reports whether password embeds the email's local
// part, any alphanumeric fragment of it, the first domain label or the
// username. Fragments shorter than four characters are ignored.
func ContainsPersonalInfo(password, email, username string) bool {
	lower := strings.ToLower(password)
	local, domain := utils.EmailParts(email)

	candidates := []string{local, domain, strings.ToLower(username)}
	candidates = append(candidates, fragments(local)...)
	candidates = append(candidates, fragments(strings.ToLower(username))...)

	for _, c := range candidates {
		if len(c) >= minPersonalFragment && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func fragments(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
