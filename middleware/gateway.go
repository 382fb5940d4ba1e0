// middleware/gateway.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Rejection reasons in the 401 body, so the chat gateway can tell a missing
// token from a rotated one.
const (
	reasonMissingToken = "missing_token"
	reasonBadToken     = "bad_token"
)

// GatewayAuthMiddleware admits chat updates only from the gateway holding the
// shared service token, sent as "Bearer <token>" or bare.
func GatewayAuthMiddleware(serviceToken string) fiber.Handler {
	if serviceToken == "" {
		log.Fatal("❌ [WEBHOOK_AUTH] no service token configured, refusing to accept chat updates")
	}

	return func(c *fiber.Ctx) error {
		presented, ok := gatewayToken(c.Get(fiber.HeaderAuthorization))
		switch {
		case !ok:
			return rejectUpdate(c, reasonMissingToken)
		case presented != serviceToken:
			return rejectUpdate(c, reasonBadToken)
		}
		return c.Next()
	}
}

func gatewayToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, rest, _ := strings.Cut(header, " ")
	if strings.EqualFold(scheme, "Bearer") {
		header = strings.TrimSpace(rest)
	}
	return header, header != ""
}

func rejectUpdate(c *fiber.Ctx, reason string) error {
	log.Printf("🚫 [WEBHOOK_AUTH] dropped chat update on %s from %s: %s", c.Path(), c.IP(), reason)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":    "chat update rejected",
		"reason":   reason,
		"messages": []any{},
	})
}
