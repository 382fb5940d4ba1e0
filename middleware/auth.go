// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"isopod-exchange/gateway"

	"github.com/gofiber/fiber/v2"
)

const updateKey = "update"

// UpdateContextMiddleware decodes the gateway update from the body and
// attaches it to the request for handlers.
func UpdateContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u gateway.Update
		if err := c.BodyParser(&u); err != nil {
			log.Printf("❌ [UPDATE_CTX] Bad update body on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid update body",
			})
		}
		if u.SenderID == 0 || u.ChatID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "sender_id and chat_id are required",
			})
		}
		u.Text = strings.TrimSpace(u.Text)

		c.Locals(updateKey, u)
		return c.Next()
	}
}

// UpdateFrom returns the update stored by UpdateContextMiddleware.
func UpdateFrom(c *fiber.Ctx) (gateway.Update, bool) {
	u, ok := c.Locals(updateKey).(gateway.Update)
	return u, ok
}
