package rules

import (
	"regexp"
	"strings"
)

// MaxDecodeDepth bounds how many URL-decoding rounds a value is unwrapped
// before it is rejected outright.
const MaxDecodeDepth = 5

var encodedByte = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

func hasEncodedBytes(value string) bool {
	return encodedByte.MatchString(value)
}

// urlDecode decodes form-encoded text leniently: '+' becomes a space and
// every valid %XX escape becomes its byte. Malformed escapes are kept as-is
// instead of aborting, so a stray '%' cannot shield the rest of a payload.
func urlDecode(value string) string {
	if !strings.ContainsAny(value, "%+") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(value) && isHex(value[i+1]) && isHex(value[i+2]):
			b.WriteByte(unhex(value[i+1])<<4 | unhex(value[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// inspectLayers runs check against value and against each successive
// URL-decoded form of it. Decoding stops once it no longer changes the
// value; a value that still changes after MaxDecodeDepth rounds is handed
// to exhausted.
func inspectLayers(value string, check func(string) Outcome, exhausted func() Outcome) Outcome {
	current := value
	for round := 0; round <= MaxDecodeDepth; round++ {
		if out := check(current); !out.Passed {
			return out
		}
		if !hasEncodedBytes(current) {
			return Pass()
		}
		decoded := urlDecode(current)
		if decoded == current {
			return Pass()
		}
		current = decoded
	}
	return exhausted()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
