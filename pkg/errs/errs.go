package errs

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindRateLimited       Kind = "rate_limited"
	KindSecurityViolation Kind = "security_violation"
	KindWorkflow          Kind = "workflow"
	KindSystem            Kind = "system"
)

const (
	MsgSystem       = "Something went wrong. Please try again later."
	MsgInvalidToken = "This password reset token is invalid."
	MsgResetFailed  = "Unable to reset password. Please check your details and try again."
	MsgLinkSent     = "If that email address is registered, a password reset link has been sent."
	MsgResetDone    = "Your password has been reset."
)

// Error is the error returned across the workflow boundary. Message is
// always safe to show to a client; Cause never is.
type Error struct {
	Kind       Kind
	Message    string
	Field      string
	Fields     map[string][]string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// ErrNotFound is returned by stores for missing records.
var ErrNotFound = errors.New("record not found")

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrSecurityViolation = &Error{Kind: KindSecurityViolation}
	ErrWorkflow          = &Error{Kind: KindWorkflow}
	ErrSystem            = &Error{Kind: KindSystem}
)

func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "The given data was invalid.", Fields: fields}
}

func SecurityViolation(field, message string) *Error {
	return &Error{
		Kind:    KindSecurityViolation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

func RateLimited(retryAfter time.Duration) *Error {
	minutes := int((retryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Too many attempts. Please try again in %d minute(s).", minutes),
		RetryAfter: retryAfter,
	}
}

func Workflow(message string, cause error) *Error {
	return &Error{Kind: KindWorkflow, Message: message, Cause: cause}
}

func System(cause error) *Error {
	return &Error{Kind: KindSystem, Message: MsgSystem, Cause: cause}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}
