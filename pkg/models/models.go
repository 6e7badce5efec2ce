package models

import (
	"time"
)

type User struct {
	UserID   int64  `db:"user_id"`
	Email    string `db:"email"`
	Username string `db:"username"`
	Password string `db:"password"`
}

// ResetToken is the persisted form of a password reset token. Only the
// SHA-256 of the token handed to the user is stored.
type ResetToken struct {
	TokenHash string `db:"token_hash"`
	Email     string `db:"email"`
	CreatedAt int64  `db:"created_at"`
}

func (t ResetToken) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.After(time.Unix(t.CreatedAt, 0).Add(ttl))
}

// SecurityEvent is one recorded injection attempt. Events are append-only.
type SecurityEvent struct {
	ID        string    `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Signature string    `db:"signature" json:"signature"`
	RawValue  string    `db:"raw_value" json:"raw_value"`
	Attribute string    `db:"attribute" json:"attribute"`
	Timestamp time.Time `db:"-" json:"timestamp"`
}

type ResetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AttemptScopeReset marks counts taken from the reset-submission tiers
// (per email and per IP), the ones a reset link is useless without.
const AttemptScopeReset = "reset_submission"

// AttemptStatus is what is left of the tiers named by Scope.
type AttemptStatus struct {
	Scope                  string `json:"scope"`
	CanAttempt             bool   `json:"can_attempt"`
	EmailAttemptsRemaining int    `json:"email_attempts_remaining"`
	IPAttemptsRemaining    int    `json:"ip_attempts_remaining"`
	ResetInSeconds         int    `json:"reset_in_seconds"`
}

// Input is a decoded request body. Values keep their decoded type so rules
// can tell strings from numbers, arrays and objects.
type Input map[string]any

// String returns the value for key when it is a string.
func (in Input) String(key string) string {
	if s, ok := in[key].(string); ok {
		return s
	}
	return ""
}

type ResetState string

const (
	StateRequested   ResetState = "requested"
	StateRateLimited ResetState = "rate_limited"
	StateValidated   ResetState = "validated"
	StateExecuting   ResetState = "executing"
	StateSucceeded   ResetState = "succeeded"
	StateFailed      ResetState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s ResetState) Terminal() bool {
	return s == StateRateLimited || s == StateSucceeded || s == StateFailed
}

// ResetAttempt is the record of one pass through the reset workflow.
type ResetAttempt struct {
	State  ResetState   `json:"state"`
	Trail  []ResetState `json:"trail"`
	Result ResetResult  `json:"result"`
}
