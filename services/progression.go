package services

import (
	"errors"
	"fmt"
	"log"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

// LevelUp is the result of feeding XP to a creature.
type LevelUp struct {
	EntryID      uint
	Level        int
	XP           int
	HP           int
	Attack       int
	LevelsGained int
	XPPerLevel   int
}

// applyXP adds xp to the entry in place. Every XPPerLevel carried over is one
// level, worth LevelHPBonus hp and LevelAtkBonus attack.
func applyXP(e *models.InventoryEntry, xp int, r Rules) int {
	if e.Level < 1 {
		e.Level = 1
	}
	e.XP = max(e.XP, 0) + xp

	// Level-up logic: spend whole levels, keep the remainder
	gained := 0
	for r.XPPerLevel > 0 && e.XP >= r.XPPerLevel {
		e.XP -= r.XPPerLevel
		e.Level++
		e.HP += r.LevelHPBonus
		e.Attack += r.LevelAtkBonus
		gained++
	}
	return gained
}

// feedXP levels one owned creature inside the caller's transaction.
func (s *GameService) feedXP(tx *gorm.DB, userID int64, entryID uint, xp int) (*LevelUp, error) {
	var e models.InventoryEntry
	err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Isopod not found")
	}
	if err != nil {
		return nil, err
	}

	gained := applyXP(&e, xp, s.Rules)
	if err := tx.Model(&e).Updates(map[string]any{
		"level":  e.Level,
		"xp":     e.XP,
		"hp":     e.HP,
		"attack": e.Attack,
	}).Error; err != nil {
		return nil, fmt.Errorf("update xp for %d: %w", entryID, err)
	}
	if gained > 0 {
		log.Printf("[PROGRESSION] isopod %d of user %d gained %d level(s), now Lv%d", e.ID, userID, gained, e.Level)
	}
	return &LevelUp{
		EntryID:      e.ID,
		Level:        e.Level,
		XP:           e.XP,
		HP:           e.HP,
		Attack:       e.Attack,
		LevelsGained: gained,
		XPPerLevel:   s.Rules.XPPerLevel,
	}, nil
}
