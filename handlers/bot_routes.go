// handlers/bot_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// SetupBotRoutes registers the gateway webhook. healthz stays outside the
// guard chain so probes don't need the gateway token.
func SetupBotRoutes(app *fiber.App, bot *Bot, guards ...fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	chain := append(append([]fiber.Handler{}, guards...), bot.HandleUpdate)
	app.Post("/updates", chain...)
}
