package libs

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NotificationCallback delivers a reset token to its owner.
type NotificationCallback func(ctx context.Context, email, token string) error

// NotificationHandler is the default Notifier. Without a callback it only
// logs that a link was issued; the token itself is never logged.
type NotificationHandler struct {
	SendPasswordResetEmailFunc NotificationCallback
	Logger                     *zerolog.Logger
}

func (n NotificationHandler) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if n.SendPasswordResetEmailFunc != nil {
		return n.SendPasswordResetEmailFunc(ctx, email, token)
	}
	logger := n.Logger
	if logger == nil {
		logger = &log.Logger
	}
	logger.Info().Str("component", "notifier").Int("token_length", len(token)).Msg("password reset link ready for delivery")
	return nil
}
