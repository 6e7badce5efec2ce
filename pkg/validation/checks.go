package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/rules"
	"github.com/oarkflow/streamguard/pkg/utils"
)

// InputRule is a rule that needs the rest of the request, such as a
// confirmation field.
type InputRule interface {
	ValidateInput(input models.Input, attribute string, value any) rules.Outcome
}

// StoreRule is a rule backed by a lookup that can fail for reasons unrelated
// to the input.
type StoreRule interface {
	Check(attribute string, value any) (rules.Outcome, error)
}

type required struct{}

// Required rejects missing values, blank strings and empty arrays.
func Required() rules.Rule { return required{} }

func (required) Validate(attribute string, value any) rules.Outcome {
	if IsEmpty(value) {
		return rules.Fail(attribute, fmt.Sprintf("The %s field is required.", rules.Label(attribute)))
	}
	return rules.Pass()
}

type stringRule struct{}

func String() rules.Rule { return stringRule{} }

func (stringRule) Validate(attribute string, value any) rules.Outcome {
	if _, ok := value.(string); !ok {
		return rules.Fail(attribute, fmt.Sprintf("The %s must be a string.", rules.Label(attribute)))
	}
	return rules.Pass()
}

type email struct{}

func Email() rules.Rule { return email{} }

func (email) Validate(attribute string, value any) rules.Outcome {
	s, ok := value.(string)
	if !ok || utils.ValidateEmail(s) != nil {
		return rules.Fail(attribute, fmt.Sprintf("The %s must be a valid email address.", rules.Label(attribute)))
	}
	return rules.Pass()
}

type length struct {
	min, max int
}

// Length bounds a string's length in characters. A zero bound is not
// checked.
func Length(min, max int) rules.Rule { return length{min: min, max: max} }

func (l length) Validate(attribute string, value any) rules.Outcome {
	s, ok := value.(string)
	if !ok {
		return rules.Fail(attribute, fmt.Sprintf("The %s must be a string.", rules.Label(attribute)))
	}
	n := utf8.RuneCountInString(s)
	if l.min > 0 && n < l.min {
		return rules.Fail(attribute, fmt.Sprintf("The %s must be at least %d characters.", rules.Label(attribute), l.min))
	}
	if l.max > 0 && n > l.max {
		return rules.Fail(attribute, fmt.Sprintf("The %s may not be greater than %d characters.", rules.Label(attribute), l.max))
	}
	return rules.Pass()
}

type confirmed struct{}

// Confirmed requires <attribute>_confirmation to hold the same value.
func Confirmed() InputRule { return confirmed{} }

func (confirmed) ValidateInput(input models.Input, attribute string, value any) rules.Outcome {
	want, ok := value.(string)
	got, same := input[attribute+"_confirmation"].(string)
	if !ok || !same || got != want {
		return rules.Fail(attribute, fmt.Sprintf("The %s confirmation does not match.", rules.Label(attribute)))
	}
	return rules.Pass()
}

type exists struct {
	users contracts.UserStore
}

// Exists requires the value to be the email of a registered user.
func Exists(users contracts.UserStore) StoreRule { return exists{users: users} }

func (e exists) Check(attribute string, value any) (rules.Outcome, error) {
	s, _ := value.(string)
	found, err := e.users.UserExists(utils.NormalizeEmail(s))
	if err != nil {
		return rules.Outcome{}, err
	}
	if !found {
		return rules.Fail(attribute, fmt.Sprintf("The selected %s is invalid.", rules.Label(attribute))), nil
	}
	return rules.Pass(), nil
}

// IsEmpty reports values that count as absent.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
