package contracts

import (
	"context"
	"time"

	"github.com/oarkflow/streamguard/pkg/models"
)

type ResetService interface {
	SendResetEmail(ctx context.Context, email, ip string) (models.ResetResult, error)
	ResetPassword(ctx context.Context, token, email, newPassword, ip string) (models.ResetResult, error)
	GetRemainingAttempts(ctx context.Context, email, ip string) (models.AttemptStatus, error)
}

type Notifier interface {
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// BreachChecker reports whether a password appears in a corpus of leaked
// credentials.
type BreachChecker interface {
	Breached(ctx context.Context, password string) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type Config interface {
	Env(envName string, defaultValue ...any) any
	Add(name string, configuration any)
	Get(path string, defaultValue ...any) any
	GetString(path string, defaultValue ...any) string
	GetInt(path string, defaultValue ...any) int
	GetDuration(path string, defaultValue ...any) time.Duration
	GetBool(path string, defaultValue ...any) bool
	GetStrings(path string, defaultValue ...any) []string
}

// ResetWorkflow is the password reset flow as the HTTP layer drives it.
type ResetWorkflow interface {
	RequestLink(ctx context.Context, input models.Input, ip string) (*models.ResetAttempt, error)
	Reset(ctx context.Context, input models.Input, ip string) (*models.ResetAttempt, error)
	Status(ctx context.Context, email, ip string) (models.AttemptStatus, error)
}

type Manager interface {
	Workflow() ResetWorkflow
	// HitEndpoint counts one request from ip against path.
	HitEndpoint(ctx context.Context, path, ip string, maxAttempts int) (bool, time.Duration, error)
	// InspectInput screens every string field for injection payloads.
	InspectInput(input models.Input) error
}
