package services

import (
	"context"
	"errors"
	"log"
	"time"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

// ChallengeRequest opens a battle or race offer. Bet is ignored for battles.
type ChallengeRequest struct {
	ChallengerID   int64
	ChallengerName string
	TargetUsername string
	EntryID        uint
	Bet            int64
	ChatID         int64
	GroupChat      bool
}

// Challenge is an opened offer together with what the target needs to pick
// a creature.
type Challenge struct {
	ID              uint
	Challenger      models.User
	Target          models.User
	Bet             int64
	TargetInventory []models.InventoryEntry
}

// AcceptRequest is the target's answer to the most recent pending offer.
type AcceptRequest struct {
	TargetID   int64
	TargetName string
	EntryID    uint
	ChatID     int64
	GroupChat  bool
}

const challengeListLimit = 10

// contestEntry loads the creature a side offered, reporting why it cannot fight.
func contestEntry(tx *gorm.DB, userID int64, entryID uint) (*models.InventoryEntry, string, error) {
	var e models.InventoryEntry
	err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "Isopod not found", nil
	}
	if err != nil {
		return nil, "", err
	}
	if e.Locked {
		return nil, "🔒 Locked isopods cannot compete", nil
	}
	return &e, "", nil
}

// openChallenge runs the validation shared by battles and races and returns
// the challenger, target and offered creature.
func (s *GameService) openChallenge(tx *gorm.DB, req ChallengeRequest, kind string) (*models.User, *models.User, error) {
	challenger, err := s.ensureUser(tx, req.ChallengerID, req.ChallengerName)
	if err != nil {
		return nil, nil, err
	}
	target, err := findUserByUsername(tx, req.TargetUsername)
	if err != nil {
		return nil, nil, err
	}
	if target.ID == challenger.ID {
		return nil, nil, validationf("You cannot %s yourself", kind)
	}
	_, reason, err := contestEntry(tx, challenger.ID, req.EntryID)
	if err != nil {
		return nil, nil, err
	}
	if reason != "" {
		return nil, nil, notFoundf("%s", reason)
	}
	return challenger, target, nil
}

func recentInventory(tx *gorm.DB, userID int64, limit int) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	err := tx.Where("user_id = ?", userID).Order("acquired_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *GameService) userName(tx *gorm.DB, id int64, fallback string) string {
	u, err := loadUser(tx, id)
	if err != nil || u.Username == "" {
		return fallback
	}
	return u.Username
}

// ExpireOffers marks offers pending longer than ttl as expired.
func (s *GameService) ExpireOffers(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.Now().Add(-ttl)
	var total int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.PendingBattle{}, &models.PendingRace{}} {
			res := tx.Model(model).
				Where("status = ? AND created_at < ?", models.ContestPending, cutoff).
				Update("status", models.ContestExpired)
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		return nil
	})
	if total > 0 {
		log.Printf("[CONTEST] expired %d stale offers", total)
	}
	return total, err
}
