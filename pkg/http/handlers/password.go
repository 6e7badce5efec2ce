package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/http/requests"
	"github.com/oarkflow/streamguard/pkg/http/responses"
	"github.com/oarkflow/streamguard/pkg/objects"
	"github.com/oarkflow/streamguard/pkg/utils"
)

func PostForgotPassword(c *fiber.Ctx) error {
	input, err := requests.Collect(c)
	if err != nil {
		return responses.Error(c, err)
	}
	attempt, err := objects.Manager.Workflow().RequestLink(c.UserContext(), input, utils.GetClientIP(c))
	if err != nil {
		return responses.Error(c, err)
	}
	return responses.Result(c, attempt.Result)
}

func PostResetPassword(c *fiber.Ctx) error {
	input, err := requests.Collect(c)
	if err != nil {
		return responses.Error(c, err)
	}
	attempt, err := objects.Manager.Workflow().Reset(c.UserContext(), input, utils.GetClientIP(c))
	if err != nil {
		return responses.Error(c, err)
	}
	return responses.Result(c, attempt.Result)
}

func GetResetStatus(c *fiber.Ctx) error {
	status, err := objects.Manager.Workflow().Status(c.UserContext(), c.Query("email"), utils.GetClientIP(c))
	if err != nil {
		return responses.Error(c, err)
	}
	return responses.Status(c, status)
}
