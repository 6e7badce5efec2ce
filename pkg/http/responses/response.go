package responses

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
)

// Error writes err in the client-facing shape for its kind. Causes are never
// written.
func Error(c *fiber.Ctx, err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		e = errs.System(err)
	}
	switch e.Kind {
	case errs.KindValidation, errs.KindSecurityViolation:
		fields := e.Fields
		if fields == nil {
			fields = map[string][]string{}
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"message": e.Message,
			"errors":  fields,
		})
	case errs.KindRateLimited:
		seconds := int(math.Ceil(e.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success":     false,
			"message":     e.Message,
			"retry_after": seconds,
		})
	case errs.KindWorkflow:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"message": e.Message,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": errs.MsgSystem,
		})
	}
}

func Result(c *fiber.Ctx, result models.ResetResult) error {
	return c.JSON(fiber.Map{
		"success": result.Success,
		"message": result.Message,
	})
}

// Status renders an AttemptStatus for the polling endpoint.
func Status(c *fiber.Ctx, status models.AttemptStatus) error {
	minutes := (status.ResetInSeconds + 59) / 60
	message := "You can request a password reset."
	if !status.CanAttempt {
		message = "Too many attempts. Please try again in " + strconv.Itoa(minutes) + " minute(s)."
	}
	scope := status.Scope
	if scope == "" {
		scope = models.AttemptScopeReset
	}
	return c.JSON(fiber.Map{
		"scope":                    scope,
		"can_attempt":              status.CanAttempt,
		"email_attempts_remaining": status.EmailAttemptsRemaining,
		"ip_attempts_remaining":    status.IPAttemptsRemaining,
		"reset_in_minutes":         minutes,
		"message":                  message,
	})
}
