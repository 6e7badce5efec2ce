package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const familyXSS = "Cross-Site Scripting"

// XSSSignatures is checked in order; the first hit decides the reported
// signature.
var XSSSignatures = []Signature{
	Pattern("script-tag", familyXSS, `<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`),
	Pattern("script-open", familyXSS, `<\s*/?\s*script\b`),
	Pattern("javascript-scheme", familyXSS, `javascript\s*:`),
	Pattern("vbscript-scheme", familyXSS, `vbscript\s*:`),
	Pattern("data-html-scheme", familyXSS, `data\s*:\s*text/html`),
	Pattern("event-handler", familyXSS, `\bon\w+\s*=`),
	Pattern("dangerous-tag", familyXSS, `<\s*/?\s*(iframe|frame|frameset|object|embed|applet|meta|link|style|form|svg|base)\b`),
	Pattern("css-expression", familyXSS, `expression\s*\(`),
	Pattern("css-url", familyXSS, `\burl\s*\(`),
	Pattern("css-import", familyXSS, `@import\b`),
	Pattern("css-behavior", familyXSS, `\bbehavior\s*:`),
	Pattern("css-moz-binding", familyXSS, `-moz-binding`),
	Pattern("html-entity", familyXSS, `&#x?[0-9a-f]+;?`),
	Pattern("base64-data-uri", familyXSS, `data\s*:[^,;]*;\s*base64`),
	Pattern("cdata", familyXSS, `<!\[CDATA\[`),
	Pattern("xml-declaration", familyXSS, `<\?xml\b`),
	Pattern("markdown-javascript-link", familyXSS, `\[[^\]]*\]\(\s*javascript\s*:`),
}

// SuspiciousSequences are template and server-tag delimiters that have no
// business in plain form input.
var SuspiciousSequences = []string{"<%", "%>", "${", "#{", "{{", "}}", "[[", "]]"}

// DefaultHTMLFields may legitimately carry markup. Signature checks still
// apply to them.
var DefaultHTMLFields = []string{"description", "content", "bio", "about", "message"}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

type NoXSS struct {
	signatures  []Signature
	htmlAllowed map[string]struct{}
}

type XSSOption func(*NoXSS)

// WithHTMLFields replaces the set of attributes allowed to contain markup.
func WithHTMLFields(fields ...string) XSSOption {
	return func(r *NoXSS) {
		r.htmlAllowed = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			r.htmlAllowed[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
		}
	}
}

func WithXSSSignatures(signatures []Signature) XSSOption {
	return func(r *NoXSS) {
		r.signatures = signatures
	}
}

func NewNoXSS(opts ...XSSOption) *NoXSS {
	r := &NoXSS{signatures: XSSSignatures}
	WithHTMLFields(DefaultHTMLFields...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *NoXSS) Validate(attribute string, value any) Outcome {
	str, ok := value.(string)
	if !ok {
		return Pass()
	}
	_, allowHTML := r.htmlAllowed[strings.ToLower(attribute)]
	label := Label(attribute)
	return inspectLayers(str, func(v string) Outcome {
		return r.check(attribute, label, v, allowHTML)
	}, func() Outcome {
		return threat(attribute, harmfulMessage(label), "excessive-encoding")
	})
}

func (r *NoXSS) check(attribute, label, value string, allowHTML bool) Outcome {
	if sig, found := Match(value, r.signatures); found {
		return threat(attribute, harmfulMessage(label), sig.Name)
	}
	for _, seq := range SuspiciousSequences {
		if strings.Contains(value, seq) {
			return threat(attribute, fmt.Sprintf("The %s field contains invalid character sequences.", label), "suspicious-sequence")
		}
	}
	if !allowHTML && htmlTag.MatchString(value) {
		return Fail(attribute, fmt.Sprintf("The %s field cannot contain HTML tags.", label))
	}
	return Pass()
}

func harmfulMessage(label string) string {
	return fmt.Sprintf("The %s field contains potentially harmful content.", label)
}
