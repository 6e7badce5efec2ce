package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", RateLimited(90*time.Second))

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrSystem))
	assert.Equal(t, KindRateLimited, KindOf(err))
}

func TestRateLimited_RoundsUpToMinutes(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
		want  string
	}{
		{"under a minute", 10 * time.Second, "Too many attempts. Please try again in 1 minute(s)."},
		{"exact hour", time.Hour, "Too many attempts. Please try again in 60 minute(s)."},
		{"partial minute", 61 * time.Second, "Too many attempts. Please try again in 2 minute(s)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RateLimited(tt.after).Message)
		})
	}
}

func TestSystem_HidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:25: connection refused")
	err := System(cause)

	assert.Equal(t, MsgSystem, err.Message)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Message, "10.0.0.1")
}

func TestKindOf_UnknownErrorIsSystem(t *testing.T) {
	assert.Equal(t, KindSystem, KindOf(errors.New("boom")))
}
