package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oarkflow/hash"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
	"github.com/oarkflow/streamguard/pkg/utils"
)

const (
	DefaultTokenTTL      = 60 * time.Minute
	DefaultHashAlgorithm = "argon2id"

	msgPasswordReused = "The new password must be different from your current password."
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock contracts.Clock = systemClock{}

// Service issues and consumes reset tokens. Only the SHA-256 of a token is
// stored; the plain token exists only in the message sent to the user.
type Service struct {
	users    contracts.UserStore
	tokens   contracts.TokenStore
	notifier contracts.Notifier
	limiter  *ratelimit.Limiter
	tiers    Tiers
	ttl      time.Duration
	algo     string
	clock    contracts.Clock
	logger   zerolog.Logger
}

type ServiceOption func(*Service)

func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithHashAlgorithm(algo string) ServiceOption {
	return func(s *Service) {
		if algo != "" {
			s.algo = algo
		}
	}
}

func WithClock(clock contracts.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithServiceTiers(tiers Tiers) ServiceOption {
	return func(s *Service) {
		s.tiers = tiers
	}
}

func WithServiceLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(users contracts.UserStore, tokens contracts.TokenStore, notifier contracts.Notifier, limiter *ratelimit.Limiter, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		limiter:  limiter,
		tiers:    DefaultTiers(),
		ttl:      DefaultTokenTTL,
		algo:     DefaultHashAlgorithm,
		clock:    SystemClock,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendResetEmail answers the same way whether or not the address belongs to
// an account.
func (s *Service) SendResetEmail(ctx context.Context, email, ip string) (models.ResetResult, error) {
	email = utils.NormalizeEmail(email)
	sent := models.ResetResult{Success: true, Message: errs.MsgLinkSent}

	if _, err := s.users.GetUserByEmail(email); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.logger.Debug().Str("ip", ip).Msg("reset link requested for unknown email")
			return sent, nil
		}
		return models.ResetResult{}, fmt.Errorf("lookup user: %w", err)
	}

	token, err := NewToken()
	if err != nil {
		return models.ResetResult{}, fmt.Errorf("generate token: %w", err)
	}
	if err := s.tokens.DeleteResetTokens(email); err != nil {
		return models.ResetResult{}, fmt.Errorf("delete previous tokens: %w", err)
	}
	record := models.ResetToken{
		TokenHash: HashToken(token),
		Email:     email,
		CreatedAt: s.clock.Now().Unix(),
	}
	if err := s.tokens.SaveResetToken(record); err != nil {
		return models.ResetResult{}, fmt.Errorf("save token: %w", err)
	}
	if err := s.notifier.SendPasswordResetEmail(ctx, email, token); err != nil {
		return models.ResetResult{}, fmt.Errorf("send reset email: %w", err)
	}
	s.logger.Info().Str("ip", ip).Msg("password reset link issued")
	return sent, nil
}

// ResetPassword verifies the token, replaces the password and burns every
// outstanding token for the address.
func (s *Service) ResetPassword(ctx context.Context, token, email, newPassword, ip string) (models.ResetResult, error) {
	email = utils.NormalizeEmail(email)
	invalid := models.ResetResult{Message: errs.MsgInvalidToken}

	record, err := s.tokens.GetResetToken(HashToken(token), email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.logger.Info().Str("ip", ip).Msg("reset rejected: unknown token")
			return invalid, nil
		}
		return models.ResetResult{}, fmt.Errorf("lookup token: %w", err)
	}
	if record.ExpiredAt(s.clock.Now(), s.ttl) {
		s.logger.Info().Str("ip", ip).Msg("reset rejected: expired token")
		if err := s.tokens.DeleteResetTokens(email); err != nil {
			return models.ResetResult{}, fmt.Errorf("delete expired token: %w", err)
		}
		return invalid, nil
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return invalid, nil
		}
		return models.ResetResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Password != "" {
		same, err := utils.HashCheck(newPassword, user.Password, s.algo, "")
		if err != nil {
			s.logger.Warn().Err(err).Int64("user_id", user.UserID).Msg("stored password hash unreadable; reuse check skipped")
		} else if same {
			return models.ResetResult{Message: msgPasswordReused}, nil
		}
	}

	passwordHash, err := hash.Make(newPassword, s.algo)
	if err != nil {
		return models.ResetResult{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(user.UserID, passwordHash); err != nil {
		return models.ResetResult{}, fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.DeleteResetTokens(email); err != nil {
		return models.ResetResult{}, fmt.Errorf("consume token: %w", err)
	}
	s.logger.Info().Int64("user_id", user.UserID).Str("ip", ip).Msg("password reset completed")
	return models.ResetResult{Success: true, Message: errs.MsgResetDone}, nil
}

// GetRemainingAttempts reports what is left of the reset-submission tiers
// for this address and IP, not the forgot-password tiers. Scope says so in
// the result.
func (s *Service) GetRemainingAttempts(ctx context.Context, email, ip string) (models.AttemptStatus, error) {
	emailKey := ratelimit.NewKey(ratelimit.ScopeResetEmail, utils.NormalizeEmail(email))
	ipKey := ratelimit.NewKey(ratelimit.ScopeResetIP, ip)

	emailLeft, err := s.limiter.Remaining(ctx, emailKey, s.tiers.ResetEmail)
	if err != nil {
		return models.AttemptStatus{}, err
	}
	ipLeft, err := s.limiter.Remaining(ctx, ipKey, s.tiers.ResetIP)
	if err != nil {
		return models.AttemptStatus{}, err
	}
	var wait time.Duration
	for _, key := range []ratelimit.Key{emailKey, ipKey} {
		d, err := s.limiter.AvailableIn(ctx, key)
		if err != nil {
			return models.AttemptStatus{}, err
		}
		wait = max(wait, d)
	}
	return models.AttemptStatus{
		Scope:                  models.AttemptScopeReset,
		CanAttempt:             emailLeft > 0 && ipLeft > 0,
		EmailAttemptsRemaining: emailLeft,
		IPAttemptsRemaining:    ipLeft,
		ResetInSeconds:         int((wait + time.Second - 1) / time.Second),
	}, nil
}
