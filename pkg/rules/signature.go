package rules

import (
	"regexp"
	"strings"
)

// Signature is a single threat pattern. Either Pattern or Literal is set;
// both match case-insensitively.
type Signature struct {
	Name    string
	Family  string
	Pattern *regexp.Regexp
	Literal string
}

// Pattern compiles expr case-insensitively. It panics on a bad expression,
// signature sets are built once at package init.
func Pattern(name, family, expr string) Signature {
	return Signature{Name: name, Family: family, Pattern: regexp.MustCompile(`(?is)` + expr)}
}

func Literal(name, family, literal string) Signature {
	return Signature{Name: name, Family: family, Literal: strings.ToLower(literal)}
}

func (s Signature) Matches(value string) bool {
	if s.Pattern != nil {
		return s.Pattern.MatchString(value)
	}
	if s.Literal == "" {
		return false
	}
	return strings.Contains(strings.ToLower(value), s.Literal)
}

// Match returns the first signature, in declaration order, that matches
// value.
func Match(value string, signatures []Signature) (Signature, bool) {
	for _, sig := range signatures {
		if sig.Matches(value) {
			return sig, true
		}
	}
	return Signature{}, false
}
