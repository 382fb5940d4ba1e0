// middleware/idempotency.go
package middleware

import (
	"errors"
	"log"
	"strings"

	"isopod-exchange/models"
	"isopod-exchange/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyMiddleware replays the stored response for a redelivered
// update_id instead of running the command again. Updates without an id
// (update_id 0) are always executed. Must run after UpdateContextMiddleware.
func IdempotencyMiddleware(db *gorm.DB, locks *services.UserLocks) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok := UpdateFrom(c)
		if !ok || u.UpdateID == 0 {
			return c.Next()
		}

		// Concurrent duplicates of the same update wait for the first one.
		unlock := locks.Lock(u.UpdateID)
		defer unlock()

		var prev models.ProcessedCommand
		err := db.WithContext(c.UserContext()).Where("update_id = ?", u.UpdateID).First(&prev).Error
		if err == nil {
			log.Printf("[IDEMPOTENCY] replaying update %d from sender %d", u.UpdateID, u.SenderID)
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			c.Set("X-Replayed", "true")
			return c.Status(fiber.StatusOK).Send(prev.Response)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		body := append([]byte(nil), c.Response().Body()...)
		row := models.ProcessedCommand{
			ID:       uuid.NewString(),
			UpdateID: u.UpdateID,
			SenderID: u.SenderID,
			Command:  firstWord(u.Text),
			Response: datatypes.JSON(body),
		}
		if err := db.WithContext(c.UserContext()).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "update_id"}}, DoNothing: true}).
			Create(&row).Error; err != nil {
			log.Printf("[IDEMPOTENCY] failed to store reply for update %d: %v", u.UpdateID, err)
		}
		return nil
	}
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
