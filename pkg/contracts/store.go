package contracts

import (
	"context"
	"time"

	"github.com/oarkflow/streamguard/pkg/models"
)

// RateLimitStore holds fixed-window counters. Attempt must check and
// increment as one atomic operation.
type RateLimitStore interface {
	Attempt(ctx context.Context, key string, maxAttempts int, decay time.Duration) (bool, error)
	Attempts(ctx context.Context, key string) (int, error)
	AvailableIn(ctx context.Context, key string) (time.Duration, error)
	Clear(ctx context.Context, key string) error
}

type UserStore interface {
	UserExists(email string) (bool, error)
	GetUserByEmail(email string) (models.User, error)
	UpdatePassword(userID int64, passwordHash string) error
}

type TokenStore interface {
	SaveResetToken(token models.ResetToken) error
	GetResetToken(tokenHash, email string) (models.ResetToken, error)
	DeleteResetTokens(email string) error
	DeleteExpiredResetTokens(before time.Time) (int64, error)
}

// AuditSink records injection attempts. Implementations must not panic or
// block the caller on failure.
type AuditSink interface {
	LogInjectionAttempt(event models.SecurityEvent)
}
