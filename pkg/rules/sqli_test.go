package rules

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/streamguard/pkg/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (s *recordingSink) LogInjectionAttempt(event models.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type panickingSink struct{}

func (panickingSink) LogInjectionAttempt(models.SecurityEvent) {
	panic("sink down")
}

func TestNoSQLInjection_ClassicTautology(t *testing.T) {
	sink := &recordingSink{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rule := NewNoSQLInjection(sink, WithSQLClock(func() time.Time { return fixed }))

	out := rule.Validate("email", "admin' OR '1'='1")

	assert.False(t, out.Passed)
	assert.True(t, out.Security)
	assert.Equal(t, "The email field contains invalid characters.", out.Reason)
	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Contains(t, event.Category, "Injection")
	assert.Equal(t, "admin' OR '1'='1", event.RawValue)
	assert.Equal(t, "email", event.Attribute)
	assert.Equal(t, fixed, event.Timestamp)
}

func TestNoSQLInjection_Families(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		signature string
		family    string
	}{
		{"keyword", "1 UNION SELECT password FROM users", "sql-keyword", FamilySQL},
		{"boolean", "x or 1=1", "boolean-comparison", FamilySQL},
		{"boolean literal", "x and not true", "boolean-literal", FamilySQL},
		{"line comment", "admin--", "line-comment", FamilySQL},
		{"block comment", "a/**/b", "block-comment", FamilySQL},
		{"hash comment", "admin#", "hash-comment", FamilySQL},
		{"semicolon", "a; b", "quote-or-terminator", FamilySQL},
		{"logical", "a || b", "logical-operator", FamilySQL},
		{"hex", "0x61646d696e", "hex-literal", FamilySQL},
		{"char function", "char(65)", "encoding-function", FamilySQL},
		{"tautology", "2 = 2", "tautology", FamilySQL},
		{"sleep", "sleep(5)", "time-based", FamilyBlindSQL},
		{"pg sleep", "pg_sleep(10)", "time-based", FamilyBlindSQL},
		{"waitfor", "waitfor delay 0", "time-based", FamilyBlindSQL},
		{"extractvalue", "extractvalue(1,2)", "error-based", FamilyErrorSQL},
		{"floor rand", "floor(rand(0)*2)", "error-based", FamilyErrorSQL},
		{"xp proc", "xp_cmdshell", "stored-procedure", FamilySQL},
		{"information schema", "information_schema.tables", "schema-probe", FamilySQL},
		{"system variable", "@@version", "schema-probe", FamilySQL},
		{"nosql object", "{$ne: null}", "nosql-operator", FamilyNoSQL},
		{"nosql bracket", "user[$regex]=.*", "nosql-operator", FamilyNoSQL},
		{"ldap", "*)(uid=*", "ldap-filter", FamilyLDAP},
		{"ldap or", "(|(cn=x)(cn=y))", "ldap-filter", FamilyLDAP},
		{"xml entity", "<!ENTITY xxe SYSTEM file:///etc/passwd>", "xml-entity", FamilyXML},
		{"string function", "substring(version,1,1)", "string-function", FamilySQL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			out := NewNoSQLInjection(sink).Validate("q", tt.value)
			assert.False(t, out.Passed)
			assert.Equal(t, tt.signature, out.Signature)
			require.Len(t, sink.events, 1)
			assert.Equal(t, tt.family, sink.events[0].Category)
		})
	}
}

func TestNoSQLInjection_PlainTextPasses(t *testing.T) {
	sink := &recordingSink{}
	rule := NewNoSQLInjection(sink)
	values := []string{
		"the quick brown fox",
		"The Quick Brown Fox Jumps Over The Lazy Dog",
		"Breaking Bad season 5",
		"jane.doe@example.com",
		"rock and roll",
		"Hello, world! How are you?",
	}
	for _, v := range values {
		first := rule.Validate("q", v)
		second := rule.Validate("q", v)
		assert.True(t, first.Passed, v)
		assert.Equal(t, first, second)
	}
	assert.Empty(t, sink.events)
}

func TestNoSQLInjection_EncodedPayload(t *testing.T) {
	sink := &recordingSink{}
	out := NewNoSQLInjection(sink).Validate("q", "1%20UNION%20SELECT%201")

	assert.False(t, out.Passed)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "1%20UNION%20SELECT%201", sink.events[0].RawValue)
}

func TestNoSQLInjection_QuoteRun(t *testing.T) {
	sink := &recordingSink{}
	signatures := []Signature{Pattern("sleep", FamilyBlindSQL, `sleep\(`)}
	out := NewNoSQLInjection(sink, WithSQLSignatures(signatures)).Validate("q", "abc'';")

	assert.False(t, out.Passed)
	assert.Equal(t, "quote-run", out.Signature)
	require.Len(t, sink.events, 1)
	assert.Equal(t, FamilyCharSeq, sink.events[0].Category)
}

func TestNoSQLInjection_SinkPanicDoesNotEscape(t *testing.T) {
	rule := NewNoSQLInjection(panickingSink{})
	assert.NotPanics(t, func() {
		out := rule.Validate("q", "1; DROP TABLE users")
		assert.False(t, out.Passed)
	})
}

func TestNoSQLInjection_NilSinkAndNonString(t *testing.T) {
	rule := NewNoSQLInjection(nil)
	assert.False(t, rule.Validate("q", "' or ''='").Passed)
	assert.True(t, rule.Validate("q", 1234).Passed)
	assert.True(t, rule.Validate("q", map[string]any{"$ne": nil}).Passed)
}
