package rules

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultPasswordMinLength = 8
	DefaultPasswordMaxLength = 128
)

// Message keys understood by StrongPassword.
const (
	MsgPasswordString     = "password.string"
	MsgPasswordMin        = "password.min"
	MsgPasswordMax        = "password.max"
	MsgPasswordLowercase  = "password.lowercase"
	MsgPasswordUppercase  = "password.uppercase"
	MsgPasswordDigit      = "password.digit"
	MsgPasswordSymbol     = "password.symbol"
	MsgPasswordWeak       = "password.weak"
	MsgPasswordDictionary = "password.dictionary"
)

// Messages maps a message key to a format string. The first verb always
// receives the attribute label; min/max also receive the bound.
type Messages map[string]string

var DefaultPasswordMessages = Messages{
	MsgPasswordString:     "The %s must be a string.",
	MsgPasswordMin:        "The %s must be at least %d characters.",
	MsgPasswordMax:        "The %s may not be greater than %d characters.",
	MsgPasswordLowercase:  "The %s must contain at least one lowercase letter.",
	MsgPasswordUppercase:  "The %s must contain at least one uppercase letter.",
	MsgPasswordDigit:      "The %s must contain at least one number.",
	MsgPasswordSymbol:     "The %s must contain at least one special character (!@#$%%^&* etc.).",
	MsgPasswordWeak:       "The %s contains a common pattern and is too easy to guess.",
	MsgPasswordDictionary: "The %s contains a commonly used word. Please choose a more unique password.",
}

// PasswordSymbols is the special-character class a password must draw from.
const PasswordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?~`'\"/\\"

// CommonPasswordWords are rejected anywhere in a password, case-insensitive,
// after undoing common digit-for-letter substitutions.
var CommonPasswordWords = []string{
	"password", "passwort", "letmein", "welcome", "monkey", "dragon", "master",
	"secret", "iloveyou", "football", "baseball", "sunshine", "princess",
	"shadow", "superman", "batman", "trustno1", "starwars", "whatever",
	"qwerty", "abc123", "changeme", "default", "guest", "root",
}

var keyboardRuns = []string{
	"qwerty", "qwertz", "azerty", "asdf", "zxcv", "qazwsx", "wasd",
	"1qaz", "zaq1", "poiuy", "lkjh", "mnbv", "ytrewq",
}

var weakLiterals = []string{"password", "admin", "user", "login"}

var leet = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "@", "a", "$", "s",
)

type StrongPassword struct {
	minLength  int
	maxLength  int
	dictionary []string
	messages   Messages
}

type PasswordOption func(*StrongPassword)

func WithLengthBounds(min, max int) PasswordOption {
	return func(r *StrongPassword) {
		if min > 0 {
			r.minLength = min
		}
		if max >= r.minLength {
			r.maxLength = max
		}
	}
}

// WithBrandTerms adds deployment-specific words (site or product names) to
// the dictionary.
func WithBrandTerms(terms ...string) PasswordOption {
	return func(r *StrongPassword) {
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" {
				r.dictionary = append(r.dictionary, term)
			}
		}
	}
}

// WithMessages overrides individual messages, typically with a translated
// catalogue.
func WithMessages(messages Messages) PasswordOption {
	return func(r *StrongPassword) {
		for k, v := range messages {
			r.messages[k] = v
		}
	}
}

func NewStrongPassword(opts ...PasswordOption) *StrongPassword {
	r := &StrongPassword{
		minLength:  DefaultPasswordMinLength,
		maxLength:  DefaultPasswordMaxLength,
		dictionary: append([]string(nil), CommonPasswordWords...),
		messages:   make(Messages, len(DefaultPasswordMessages)),
	}
	for k, v := range DefaultPasswordMessages {
		r.messages[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StrongPassword) MinLength() int { return r.minLength }
func (r *StrongPassword) MaxLength() int { return r.maxLength }

func (r *StrongPassword) Validate(attribute string, value any) Outcome {
	label := Label(attribute)
	password, ok := value.(string)
	if !ok {
		return Fail(attribute, r.message(MsgPasswordString, label))
	}
	length := utf8.RuneCountInString(password)
	switch {
	case length < r.minLength:
		return Fail(attribute, r.message(MsgPasswordMin, label, r.minLength))
	case length > r.maxLength:
		return Fail(attribute, r.message(MsgPasswordMax, label, r.maxLength))
	case !strings.ContainsFunc(password, unicode.IsLower):
		return Fail(attribute, r.message(MsgPasswordLowercase, label))
	case !strings.ContainsFunc(password, unicode.IsUpper):
		return Fail(attribute, r.message(MsgPasswordUppercase, label))
	case !strings.ContainsFunc(password, unicode.IsDigit):
		return Fail(attribute, r.message(MsgPasswordDigit, label))
	case !strings.ContainsAny(password, PasswordSymbols):
		return Fail(attribute, r.message(MsgPasswordSymbol, label))
	case HasWeakPattern(password):
		return Fail(attribute, r.message(MsgPasswordWeak, label))
	case r.containsDictionaryWord(password):
		return Fail(attribute, r.message(MsgPasswordDictionary, label))
	}
	return Pass()
}

// HasWeakPattern reports four or more repeated characters, four or more
// sequential digits or letters in either direction, keyboard walks and the
// literal words password, admin, user and login.
func HasWeakPattern(password string) bool {
	lower := strings.ToLower(password)
	if hasRepeatedRun(lower, 4) || hasSequentialRun(lower, 4) {
		return true
	}
	for _, walk := range keyboardRuns {
		if strings.Contains(lower, walk) {
			return true
		}
	}
	for _, word := range weakLiterals {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func (r *StrongPassword) containsDictionaryWord(password string) bool {
	lower := strings.ToLower(password)
	normalized := leet.Replace(lower)
	for _, word := range r.dictionary {
		if strings.Contains(lower, word) || strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

func (r *StrongPassword) message(key, label string, args ...any) string {
	format, ok := r.messages[key]
	if !ok {
		format = DefaultPasswordMessages[key]
	}
	return fmt.Sprintf(format, append([]any{label}, args...)...)
}

func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, c := range s {
		if run > 0 && c == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = c
	}
	return false
}

func hasSequentialRun(s string, n int) bool {
	up, down := 1, 1
	var prev rune
	for i, c := range []rune(s) {
		if i > 0 && sameClass(prev, c) && c == prev+1 {
			up++
		} else {
			up = 1
		}
		if i > 0 && sameClass(prev, c) && c == prev-1 {
			down++
		} else {
			down = 1
		}
		if up >= n || down >= n {
			return true
		}
		prev = c
	}
	return false
}

func sameClass(a, b rune) bool {
	switch {
	case a >= '0' && a <= '9':
		return b >= '0' && b <= '9'
	case a >= 'a' && a <= 'z':
		return b >= 'a' && b <= 'z'
	}
	return false
}
