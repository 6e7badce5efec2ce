// Package validation runs ordered rule chains over request fields and
// collects failures as {field: [messages]}.
package validation

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/audit"
	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/rules"
)

type field struct {
	name     string
	checks   []any
	required bool
}

// Validator checks each field with its rules in order and stops at the
// first failure for that field. Fields that are absent or blank and not
// Required are skipped.
type Validator struct {
	input       models.Input
	fields      []field
	logFailures bool
	logger      zerolog.Logger
}

type Option func(*Validator)

// WithFailureLogging logs ordinary validation failures. Security failures
// are logged regardless.
func WithFailureLogging(enabled bool) Option {
	return func(v *Validator) {
		v.logFailures = enabled
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

func New(input models.Input, opts ...Option) *Validator {
	v := &Validator{input: input, logger: log.Logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Field registers the chain for one field. Each check is a rules.Rule, an
// InputRule or a StoreRule; anything else panics.
func (v *Validator) Field(name string, checks ...any) *Validator {
	f := field{name: name, checks: checks}
	for _, c := range checks {
		switch c.(type) {
		case required:
			f.required = true
		case rules.Rule, InputRule, StoreRule:
		default:
			panic(fmt.Sprintf("validation: unsupported check %T for field %s", c, name))
		}
	}
	v.fields = append(v.fields, f)
	return v
}

// Validate returns nil, a *errs.Error of kind validation or
// security_violation carrying the field messages, or a system error when a
// lookup failed.
func (v *Validator) Validate() error {
	failures := make(map[string][]string)
	securityField := ""
	for _, f := range v.fields {
		value := v.input[f.name]
		if !f.required && IsEmpty(value) {
			continue
		}
		for _, c := range f.checks {
			out, err := v.run(c, f.name, value)
			if err != nil {
				return errs.System(err)
			}
			if out.Passed {
				continue
			}
			failures[f.name] = append(failures[f.name], out.Reason)
			if out.Security && securityField == "" {
				securityField = f.name
			}
			v.report(f.name, out, value)
			break
		}
	}
	if len(failures) == 0 {
		return nil
	}
	e := errs.Validation(failures)
	if securityField != "" {
		e.Kind = errs.KindSecurityViolation
		e.Field = securityField
	}
	return e
}

func (v *Validator) run(check any, name string, value any) (rules.Outcome, error) {
	switch c := check.(type) {
	case StoreRule:
		return c.Check(name, value)
	case InputRule:
		return c.ValidateInput(v.input, name, value), nil
	case rules.Rule:
		return c.Validate(name, value), nil
	}
	return rules.Pass(), nil
}

func (v *Validator) report(name string, out rules.Outcome, value any) {
	if out.Security {
		raw, _ := value.(string)
		v.logger.Warn().
			Str("field", name).
			Str("signature", out.Signature).
			Str("raw_value", audit.Truncate(raw, audit.MaxLoggedValue)).
			Msg("security validation failed")
		return
	}
	if v.logFailures {
		v.logger.Info().Str("field", name).Str("reason", out.Reason).Msg("validation failed")
	}
}
