// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRefreshScheduler pre-warms the market and shop rotation every minute so
// the first command after a refresh boundary does not pay for it. Read paths
// still run their own staleness checks, and the "refreshed" notice is left
// for the next user command to claim.
func (s *GameService) StartRefreshScheduler(ctx context.Context, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			regenerated, err := s.prewarmMarket(ctx)
			if err != nil {
				log.Printf("[SCHEDULER] market refresh failed: %v", err)
			} else if regenerated {
				log.Printf("✅ Market regenerated by scheduler")
			}

			view, err := s.prewarmShop(ctx)
			if err != nil {
				log.Printf("[SCHEDULER] shop rotation failed: %v", err)
				return
			}
			if view.Refreshed {
				log.Printf("✅ Shop rotation refreshed by scheduler")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
