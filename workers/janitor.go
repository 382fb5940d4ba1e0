// workers/janitor.go
package workers

import (
	"context"
	"log"
	"time"

	"isopod-exchange/models"
	"isopod-exchange/services"
	"isopod-exchange/utils"

	"gorm.io/gorm"
)

// Janitor periodically removes state that is otherwise only cleaned up lazily:
// expired effects, stale contest offers and old processed-command replies.
type Janitor struct {
	db        *gorm.DB
	game      *services.GameService
	interval  time.Duration
	offerTTL  time.Duration
	replayTTL time.Duration

	// Renders, when set, has rendered images older than renderTTL removed.
	Renders   *utils.Renderer
	renderTTL time.Duration
}

func NewJanitor(db *gorm.DB, game *services.GameService, interval, offerTTL time.Duration) *Janitor {
	return &Janitor{
		db:        db,
		game:      game,
		interval:  interval,
		offerTTL:  offerTTL,
		replayTTL: 48 * time.Hour,
		renderTTL: time.Hour,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	log.Printf("🧹 Starting janitor (every %s)", j.interval)
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep(ctx)
		case <-ctx.Done():
			log.Println("🛑 Janitor stopped")
			return
		}
	}
}

// Sweep runs one cleanup pass. Failures are logged and retried next tick.
func (j *Janitor) Sweep(ctx context.Context) {
	now := j.game.Now()

	n, err := j.game.Effect.PurgeAllExpired(j.db.WithContext(ctx), now)
	if err != nil {
		log.Printf("[JANITOR] effect purge failed: %v", err)
	} else if n > 0 {
		log.Printf("[JANITOR] removed %d expired effects", n)
	}

	if _, err := j.game.ExpireOffers(ctx, j.offerTTL); err != nil {
		log.Printf("[JANITOR] offer expiry failed: %v", err)
	}

	res := j.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-j.replayTTL)).
		Delete(&models.ProcessedCommand{})
	if res.Error != nil {
		log.Printf("[JANITOR] processed-command prune failed: %v", res.Error)
	} else if res.RowsAffected > 0 {
		log.Printf("[JANITOR] pruned %d processed commands", res.RowsAffected)
	}

	if j.Renders != nil {
		if n, err := j.Renders.CleanupRenders(j.renderTTL); err != nil {
			log.Printf("[JANITOR] render cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("[JANITOR] removed %d old renders", n)
		}
	}
}
