package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/oarkflow/streamguard/pkg/http/handlers"
	"github.com/oarkflow/streamguard/pkg/http/middlewares"
	"github.com/oarkflow/streamguard/pkg/utils"
)

func Setup(prefix string, router fiber.Router) {
	route := router.Group(prefix, middlewares.SecurityHeaders)
	route.Get(utils.HealthURI, handlers.HealthCheck)
	route.Get(utils.MetricsURI, Metrics())
	route.Post(utils.ForgotPasswordURI, handlers.PostForgotPassword)
	route.Post(utils.ResetPasswordURI, handlers.PostResetPassword)
	route.Get(utils.ResetStatusURI, middlewares.RateLimit, handlers.GetResetStatus)
	route.Post(utils.BotUploadURI, middlewares.RateLimit, middlewares.InputGuard, handlers.PostBotUpload)
}

// Metrics serves the default prometheus registry.
func Metrics() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
