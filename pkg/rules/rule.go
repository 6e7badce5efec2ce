// Package rules holds the field-level defenses applied to user input: the
// signature matcher, the XSS and SQL injection rules and the password
// strength policy.
package rules

import (
	"strings"
)

// Outcome is the binary result of one rule invocation.
type Outcome struct {
	Passed    bool
	Attribute string
	Reason    string
	// Security is set when the failure came from a threat signature rather
	// than an ordinary format check.
	Security  bool
	Signature string
}

type Rule interface {
	Validate(attribute string, value any) Outcome
}

func Pass() Outcome {
	return Outcome{Passed: true}
}

func Fail(attribute, reason string) Outcome {
	return Outcome{Attribute: attribute, Reason: reason}
}

func threat(attribute, reason, signature string) Outcome {
	return Outcome{Attribute: attribute, Reason: reason, Security: true, Signature: signature}
}

// Label turns an attribute name into the form used inside messages. Only
// letters, digits and spaces survive so a hostile field name cannot be
// reflected back.
func Label(attribute string) string {
	var b strings.Builder
	b.Grow(len(attribute))
	for _, r := range attribute {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '_', r == '-', r == '.', r == ' ':
			b.WriteByte(' ')
		}
	}
	label := strings.Join(strings.Fields(b.String()), " ")
	if label == "" {
		return "input"
	}
	return label
}
