package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/utils"
)

func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"routes": utils.GetURIs(),
	})
}
