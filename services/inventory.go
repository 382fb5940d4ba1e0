package services

import (
	"context"
	"errors"
	"log"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

const inventoryViewLimit = 10

func ownedEntry(tx *gorm.DB, userID int64, entryID uint) (*models.InventoryEntry, error) {
	var e models.InventoryEntry
	err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("❌ Invalid/not yours")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InventoryView is the recent creatures plus value totals.
type InventoryView struct {
	Recent      []models.InventoryEntry
	RecentTotal int64
	FullTotal   int64
}

func (s *GameService) Inventory(ctx context.Context, userID int64) (*InventoryView, error) {
	db := s.DB.WithContext(ctx)
	recent, err := recentInventory(db, userID, inventoryViewLimit)
	if err != nil {
		return nil, err
	}
	view := &InventoryView{Recent: recent}
	for _, e := range recent {
		view.RecentTotal += e.Price
	}
	if err := db.Model(&models.InventoryEntry{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(price), 0)").Scan(&view.FullTotal).Error; err != nil {
		return nil, err
	}
	return view, nil
}

// RecentInventory is the short list shown to a challenged player.
func (s *GameService) RecentInventory(ctx context.Context, userID int64) ([]models.InventoryEntry, error) {
	return recentInventory(s.DB.WithContext(ctx), userID, inventoryViewLimit)
}

// SellEntry sells one creature for its snapshot price.
func (s *GameService) SellEntry(ctx context.Context, userID int64, username string, entryID uint) (int64, error) {
	var price int64
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ensureUser(tx, userID, username); err != nil {
			return err
		}
		e, err := ownedEntry(tx, userID, entryID)
		if err != nil {
			return err
		}
		if e.Locked {
			return lockedf("🔒 That isopod is locked. Use /unlock <ID> first.")
		}
		if e.IsRainbow() {
			return validationf("🌈 Legendary rainbow isopods cannot be sold.")
		}
		if err := tx.Delete(e).Error; err != nil {
			return err
		}
		price = max(e.Price, 0)
		return s.addMoney(tx, userID, price)
	}, userID)
	if err != nil {
		return 0, err
	}
	log.Printf("[INVENTORY] user %d sold isopod %d for %d", userID, entryID, price)
	return price, nil
}

// SellAll sells every unlocked, non-rainbow creature, optionally of one tier.
func (s *GameService) SellAll(ctx context.Context, userID int64, username string, tier *models.Tier) (int, int64, error) {
	var (
		count int
		total int64
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ensureUser(tx, userID, username); err != nil {
			return err
		}
		q := tx.Where("user_id = ? AND locked = ? AND LOWER(color) <> ?", userID, false, models.ColorRainbow)
		if tier != nil {
			q = q.Where("tier = ?", *tier)
		}
		var rows []models.InventoryEntry
		if err := q.Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFoundf("Nothing to sell")
		}
		ids := make([]uint, 0, len(rows))
		for _, e := range rows {
			ids = append(ids, e.ID)
			total += max(e.Price, 0)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.InventoryEntry{}).Error; err != nil {
			return err
		}
		count = len(ids)
		return s.addMoney(tx, userID, total)
	}, userID)
	if err != nil {
		return 0, 0, err
	}
	log.Printf("[INVENTORY] user %d sold %d isopods for %d", userID, count, total)
	return count, total, nil
}

// SetLocked locks or unlocks an owned creature.
func (s *GameService) SetLocked(ctx context.Context, userID int64, entryID uint, locked bool) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		e, err := ownedEntry(tx, userID, entryID)
		if err != nil {
			return err
		}
		return tx.Model(e).Update("locked", locked).Error
	}, userID)
}
