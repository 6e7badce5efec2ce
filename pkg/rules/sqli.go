package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/models"
)

const (
	FamilySQL         = "SQL Injection"
	FamilyBlindSQL    = "Blind SQL Injection"
	FamilyErrorSQL    = "Error-Based SQL Injection"
	FamilyNoSQL       = "NoSQL Injection"
	FamilyLDAP        = "LDAP Injection"
	FamilyXML         = "XML Injection"
	FamilyCharSeq     = "Character Sequence Injection"
	FamilyObfuscation = "Encoded Injection"
)

var nosqlOperators = `(ne|eq|gt|gte|lt|lte|in|nin|regex|where|exists|expr|or|and|not|nor|elemmatch)`

// SQLInjectionSignatures is checked in order; the first hit decides the
// family written to the audit sink.
var SQLInjectionSignatures = []Signature{
	Pattern("sql-keyword", FamilySQL, `\b(select|insert|update|delete|drop|create|alter|exec|execute|union|truncate|declare|merge|grant|revoke|shutdown)\b`),
	Pattern("boolean-comparison", FamilySQL, `\b(or|and|xor)\s+[\w'"]+\s*(=|<>|!=|<|>|\blike\b)`),
	Pattern("boolean-literal", FamilySQL, `\b(or|and)\s+(not\s+)?(true|false|null)\b`),
	Pattern("quoted-boolean", FamilySQL, `['"]\s*(or|and|xor)\b`),
	Pattern("line-comment", FamilySQL, `--`),
	Pattern("block-comment", FamilySQL, `/\*|\*/`),
	Pattern("hash-comment", FamilySQL, `#`),
	Pattern("quote-or-terminator", FamilySQL, `['";]`),
	Pattern("logical-operator", FamilySQL, `\|\||&&`),
	Pattern("hex-literal", FamilySQL, `\b0x[0-9a-f]+\b`),
	Pattern("encoding-function", FamilySQL, `\b(char|nchar|varchar|ascii|hex|unhex|ord|chr|cast|convert)\s*\(`),
	Pattern("union-select", FamilySQL, `\bunion\b.*\bselect\b`),
	Pattern("tautology", FamilySQL, `\b(\d+)\s*=\s*\d+\b|\b(true|false)\s*=\s*(true|false)\b`),
	Pattern("time-based", FamilyBlindSQL, `\b(sleep|benchmark|pg_sleep)\s*\(|\bwaitfor\s+(delay|time)\b`),
	Pattern("error-based", FamilyErrorSQL, `\b(extractvalue|updatexml|exp|geometrycollection|polygon|multipoint)\s*\(|\bfloor\s*\(\s*rand\s*\(`),
	Pattern("stored-procedure", FamilySQL, `\b(sp|xp|fn)_\w+`),
	Pattern("schema-probe", FamilySQL, `\binformation_schema\b|@@\w+|\b(sysobjects|syscolumns|sysusers|pg_catalog|pg_tables|sqlite_master|mysql\.user)\b|\b(version|database|current_user|schema|user)\s*\(\s*\)`),
	Pattern("nosql-operator", FamilyNoSQL, `[{,]\s*['"]?\$`+nosqlOperators+`\b['"]?\s*:|\[\s*\$`+nosqlOperators+`\s*\]|\$where\b`),
	Pattern("ldap-filter", FamilyLDAP, `\(\s*[|&!]\s*\(|\*\s*\)\s*\(|\)\s*\(\s*[|&!]|\(\s*\w+\s*=\s*\*\s*\)`),
	Pattern("xml-entity", FamilyXML, `<!\s*(entity|doctype)\b|<!\[cdata\[|\bsystem\s+['"]`),
	Pattern("string-function", FamilySQL, `\b(concat|concat_ws|group_concat|substring|substr|left|right|mid|len|length|char_length)\s*\(`),
}

var quoteRun = regexp.MustCompile(`['";]{2,}`)

// NoSQLInjection rejects values matching SQL, NoSQL, LDAP or XML injection
// signatures. Every rejection is written to the audit sink before the
// outcome is returned.
type NoSQLInjection struct {
	signatures []Signature
	sink       contracts.AuditSink
	now        func() time.Time
}

type SQLOption func(*NoSQLInjection)

func WithSQLSignatures(signatures []Signature) SQLOption {
	return func(r *NoSQLInjection) {
		r.signatures = signatures
	}
}

func WithSQLClock(now func() time.Time) SQLOption {
	return func(r *NoSQLInjection) {
		r.now = now
	}
}

func NewNoSQLInjection(sink contracts.AuditSink, opts ...SQLOption) *NoSQLInjection {
	r := &NoSQLInjection{
		signatures: SQLInjectionSignatures,
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *NoSQLInjection) Validate(attribute string, value any) Outcome {
	str, ok := value.(string)
	if !ok {
		return Pass()
	}
	label := Label(attribute)
	return inspectLayers(str, func(v string) Outcome {
		return r.check(attribute, label, str, v)
	}, func() Outcome {
		r.record(FamilyObfuscation, "excessive-encoding", str, attribute)
		return threat(attribute, invalidMessage(label), "excessive-encoding")
	})
}

// check inspects one decoded layer. raw is the value as received and is
// what gets recorded.
func (r *NoSQLInjection) check(attribute, label, raw, value string) Outcome {
	lowered := strings.ToLower(value)
	if sig, found := Match(lowered, r.signatures); found {
		r.record(sig.Family, sig.Name, raw, attribute)
		return threat(attribute, invalidMessage(label), sig.Name)
	}
	if quoteRun.MatchString(lowered) {
		r.record(FamilyCharSeq, "quote-run", raw, attribute)
		return threat(attribute, invalidMessage(label), "quote-run")
	}
	return Pass()
}

func (r *NoSQLInjection) record(family, signature, raw, attribute string) {
	if r.sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	r.sink.LogInjectionAttempt(models.SecurityEvent{
		Category:  family,
		Signature: signature,
		RawValue:  raw,
		Attribute: attribute,
		Timestamp: r.now().UTC(),
	})
}

func invalidMessage(label string) string {
	return fmt.Sprintf("The %s field contains invalid characters.", label)
}
