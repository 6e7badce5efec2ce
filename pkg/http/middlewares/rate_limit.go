package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/http/responses"
	"github.com/oarkflow/streamguard/pkg/objects"
	"github.com/oarkflow/streamguard/pkg/utils"
)

// RateLimit uses the configured per-endpoint ceiling.
func RateLimit(c *fiber.Ctx) error {
	return RateLimitWithMax(0)(c)
}

// RateLimitWithMax limits each client IP to maxRequests per window on the
// route it guards.
func RateLimitWithMax(maxRequests int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientIP := utils.GetClientIP(c)
		ok, wait, err := objects.Manager.HitEndpoint(c.UserContext(), c.Path(), clientIP, maxRequests)
		if err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("endpoint rate limit check failed")
			return responses.Error(c, errs.System(err))
		}
		if !ok {
			log.Warn().Str("ip", clientIP).Str("path", c.Path()).Dur("retry_after", wait).Msg("endpoint rate limit exceeded")
			return SendError(c, errs.RateLimited(wait))
		}
		return c.Next()
	}
}
