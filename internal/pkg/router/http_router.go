package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/coursebridge/coursebridge/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/up", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Provider-facing webhook surface. Rate limited; authentication is the
	// HMAC signature checked inside the handler.
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{Max: 120}))
	webhooks.Post("/membership", controllers.HandleMembershipWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
