// Package reset implements the password reset flow: tiered rate limits,
// layered field validation, randomized response delay and the default
// token service behind it.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/contracts"
	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
	"github.com/oarkflow/streamguard/pkg/rules"
	"github.com/oarkflow/streamguard/pkg/utils"
	"github.com/oarkflow/streamguard/pkg/validation"
)

const (
	TokenMinLength = 60
	TokenMaxLength = 128
)

// Tiers are the four fixed-window ceilings of the flow.
type Tiers struct {
	ForgotIP    ratelimit.Tier
	ForgotEmail ratelimit.Tier
	ResetIP     ratelimit.Tier
	ResetEmail  ratelimit.Tier
}

func DefaultTiers() Tiers {
	return Tiers{
		ForgotIP:    ratelimit.Tier{MaxAttempts: 3, Decay: time.Hour},
		ForgotEmail: ratelimit.Tier{MaxAttempts: 2, Decay: time.Hour},
		ResetIP:     ratelimit.Tier{MaxAttempts: 5, Decay: time.Hour},
		ResetEmail:  ratelimit.Tier{MaxAttempts: 3, Decay: time.Hour},
	}
}

type Workflow struct {
	limiter     *ratelimit.Limiter
	service     contracts.ResetService
	users       contracts.UserStore
	sink        contracts.AuditSink
	tiers       Tiers
	delay       DelayFunc
	policy      *rules.StrongPassword
	breaches    contracts.BreachChecker
	xss         *rules.NoXSS
	logger      zerolog.Logger
	logFailures bool
}

type Option func(*Workflow)

func WithTiers(tiers Tiers) Option {
	return func(w *Workflow) {
		w.tiers = tiers
	}
}

func WithDelay(delay DelayFunc) Option {
	return func(w *Workflow) {
		w.delay = delay
	}
}

func WithPasswordPolicy(policy *rules.StrongPassword) Option {
	return func(w *Workflow) {
		w.policy = policy
	}
}

// WithBreachChecker rejects new passwords found in a breach corpus. The
// check is skipped, with a warning, when the checker fails.
func WithBreachChecker(checker contracts.BreachChecker) Option {
	return func(w *Workflow) {
		w.breaches = checker
	}
}

func WithXSSRule(rule *rules.NoXSS) Option {
	return func(w *Workflow) {
		w.xss = rule
	}
}

func WithAuditSink(sink contracts.AuditSink) Option {
	return func(w *Workflow) {
		w.sink = sink
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func WithFailureLogging(enabled bool) Option {
	return func(w *Workflow) {
		w.logFailures = enabled
	}
}

func NewWorkflow(limiter *ratelimit.Limiter, service contracts.ResetService, users contracts.UserStore, opts ...Option) *Workflow {
	w := &Workflow{
		limiter: limiter,
		service: service,
		users:   users,
		tiers:   DefaultTiers(),
		delay:   RandomDelay(DefaultMinDelay, DefaultMaxDelay),
		policy:  rules.NewStrongPassword(),
		xss:     rules.NewNoXSS(),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RequestLink handles a "forgot password" submission.
func (w *Workflow) RequestLink(ctx context.Context, input models.Input, ip string) (*models.ResetAttempt, error) {
	a := newAttempt()

	if err := w.hit(ctx, ratelimit.NewKey(ratelimit.ScopeForgotIP, ip), w.tiers.ForgotIP); err != nil {
		return w.stop(a, err)
	}

	err := w.validator(input).
		Field("email", validation.Required(), validation.String(), w.xss, w.sqli(), validation.Email()).
		Validate()
	if err != nil {
		return w.stop(a, err)
	}
	a.move(models.StateValidated)
	email := utils.NormalizeEmail(input.String("email"))

	if err := w.delay(ctx); err != nil {
		return w.stop(a, errs.System(err))
	}

	if err := w.hit(ctx, ratelimit.NewKey(ratelimit.ScopeForgotEmail, email), w.tiers.ForgotEmail); err != nil {
		return w.stop(a, err)
	}

	status, err := w.service.GetRemainingAttempts(ctx, email, ip)
	if err != nil {
		return w.stop(a, w.systemError("remaining attempts", err))
	}
	if !status.CanAttempt {
		w.logger.Warn().Str("ip", ip).Int("reset_in_seconds", status.ResetInSeconds).Msg("reset link refused: attempts exhausted")
		return w.stop(a, errs.RateLimited(time.Duration(status.ResetInSeconds)*time.Second))
	}

	a.move(models.StateExecuting)
	result, err := w.service.SendResetEmail(ctx, email, ip)
	if err != nil {
		return w.stop(a, w.systemError("send reset email", err))
	}
	if !result.Success {
		return a.finish(models.StateFailed, result), errs.Workflow(result.Message, nil)
	}
	return a.finish(models.StateSucceeded, result), nil
}

// Reset handles the submission of a new password with its token.
func (w *Workflow) Reset(ctx context.Context, input models.Input, ip string) (*models.ResetAttempt, error) {
	a := newAttempt()

	if err := w.hit(ctx, ratelimit.NewKey(ratelimit.ScopeResetIP, ip), w.tiers.ResetIP); err != nil {
		return w.stop(a, err)
	}

	err := w.validator(input).
		Field("token", validation.Required(), validation.String(), validation.Length(TokenMinLength, TokenMaxLength)).
		Field("email", validation.Required(), validation.String(), w.xss, w.sqli(), validation.Email(), validation.Exists(w.users)).
		Field("password", validation.Required(), validation.String(), validation.Confirmed(), w.policy).
		Validate()
	if err != nil {
		return w.stop(a, err)
	}

	token := input.String("token")
	if !ValidTokenFormat(token) {
		w.logger.Info().Str("ip", ip).Msg("reset rejected: malformed token")
		return w.stop(a, errs.Workflow(errs.MsgInvalidToken, ErrTokenFormat))
	}

	email := utils.NormalizeEmail(input.String("email"))
	password := input.String("password")
	user, err := w.users.GetUserByEmail(email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return w.stop(a, w.systemError("lookup user", err))
	}
	if ContainsPersonalInfo(password, email, user.Username) {
		return w.stop(a, errs.Validation(map[string][]string{
			"password": {fmt.Sprintf("The %s must not contain your email address or name.", rules.Label("password"))},
		}))
	}
	if w.compromised(ctx, password, ip) {
		return w.stop(a, errs.Validation(map[string][]string{
			"password": {fmt.Sprintf("The given %s has appeared in a data leak. Please choose a different %s.", rules.Label("password"), rules.Label("password"))},
		}))
	}
	a.move(models.StateValidated)

	if err := w.delay(ctx); err != nil {
		return w.stop(a, errs.System(err))
	}

	emailKey := ratelimit.NewKey(ratelimit.ScopeResetEmail, email)
	if err := w.hit(ctx, emailKey, w.tiers.ResetEmail); err != nil {
		return w.stop(a, err)
	}

	a.move(models.StateExecuting)
	result, err := w.service.ResetPassword(ctx, token, email, password, ip)
	if err != nil {
		return w.stop(a, w.systemError("reset password", err))
	}
	if !result.Success {
		return a.finish(models.StateFailed, result), errs.Workflow(result.Message, nil)
	}

	if err := w.limiter.Clear(ctx, ratelimit.NewKey(ratelimit.ScopeResetIP, ip), emailKey); err != nil {
		w.logger.Error().Err(err).Msg("failed to clear reset rate limits")
	}
	return a.finish(models.StateSucceeded, result), nil
}

// Status reports the remaining reset attempts for an address.
func (w *Workflow) Status(ctx context.Context, email, ip string) (models.AttemptStatus, error) {
	err := w.validator(models.Input{"email": email}).
		Field("email", validation.Required(), validation.String(), w.xss, w.sqli(), validation.Email()).
		Validate()
	if err != nil {
		return models.AttemptStatus{}, err
	}
	status, err := w.service.GetRemainingAttempts(ctx, utils.NormalizeEmail(email), ip)
	if err != nil {
		return models.AttemptStatus{}, w.systemError("remaining attempts", err)
	}
	return status, nil
}

func (w *Workflow) hit(ctx context.Context, key ratelimit.Key, tier ratelimit.Tier) error {
	ok, wait, err := w.limiter.Hit(ctx, key, tier)
	if err != nil {
		return w.systemError("rate limit", err)
	}
	if !ok {
		w.logger.Warn().Str("scope", key.Scope).Dur("retry_after", wait).Msg("rate limit exceeded")
		return errs.RateLimited(wait)
	}
	return nil
}

func (w *Workflow) validator(input models.Input) *validation.Validator {
	return validation.New(input,
		validation.WithLogger(w.logger),
		validation.WithFailureLogging(w.logFailures),
	)
}

func (w *Workflow) sqli() *rules.NoSQLInjection {
	return rules.NewNoSQLInjection(w.sink)
}

func (w *Workflow) systemError(step string, cause error) error {
	w.logger.Error().Err(cause).Str("step", step).Msg("password reset collaborator failed")
	return errs.System(cause)
}

// stop ends the attempt in the terminal state matching err.
func (w *Workflow) stop(a *attempt, err error) (*models.ResetAttempt, error) {
	state := models.StateFailed
	if errs.KindOf(err) == errs.KindRateLimited {
		state = models.StateRateLimited
	}
	var e *errs.Error
	message := errs.MsgSystem
	if errors.As(err, &e) {
		message = e.Message
	}
	return a.finish(state, models.ResetResult{Message: message}), err
}

func (w *Workflow) compromised(ctx context.Context, password, ip string) bool {
	if w.breaches == nil {
		return false
	}
	breached, err := w.breaches.Breached(ctx, password)
	if err != nil {
		w.logger.Warn().Err(err).Str("ip", ip).Msg("breach check unavailable; password accepted")
		return false
	}
	if breached {
		w.logger.Info().Str("ip", ip).Msg("reset rejected: breached password")
	}
	return breached
}
