package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/http/requests"
	"github.com/oarkflow/streamguard/pkg/objects"
)

// InputGuard rejects requests whose body carries XSS or SQL injection
// payloads in any string field.
func InputGuard(c *fiber.Ctx) error {
	input, err := requests.Collect(c)
	if err != nil {
		return SendError(c, err)
	}
	if err := objects.Manager.InspectInput(input); err != nil {
		return SendError(c, err)
	}
	return c.Next()
}
