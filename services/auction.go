package services

import (
	"context"
	"errors"
	"log"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

const auctionListLimit = 20

// AuctionListing is an active auction with the seller's display name.
type AuctionListing struct {
	models.Auction
	SellerName string
}

func (s *GameService) ActiveAuctions(ctx context.Context) ([]AuctionListing, error) {
	var rows []AuctionListing
	err := s.DB.WithContext(ctx).Model(&models.Auction{}).
		Select("auctions.*, users.username AS seller_name").
		Joins("LEFT JOIN users ON users.id = auctions.seller_id").
		Where("auctions.state = ?", models.AuctionActive).
		Order("auctions.created_at DESC").Order("auctions.id DESC").
		Limit(auctionListLimit).
		Scan(&rows).Error
	return rows, err
}

// ListAuction moves an owned creature out of inventory into a new auction.
func (s *GameService) ListAuction(ctx context.Context, userID int64, username string, entryID uint, price int64) (*models.Auction, error) {
	if price <= 0 {
		return nil, validationf("Price must be positive")
	}
	var a models.Auction
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ensureUser(tx, userID, username); err != nil {
			return err
		}
		e, err := ownedEntry(tx, userID, entryID)
		if err != nil {
			return err
		}
		if e.Locked {
			return lockedf("Unlock that isopod before auctioning")
		}
		if e.IsRainbow() {
			return validationf("🌈 Legendary rainbow isopods cannot be auctioned")
		}
		if err := tx.Delete(e).Error; err != nil {
			return err
		}
		a = models.Auction{
			SellerID:  userID,
			Name:      e.Name,
			Tier:      e.Tier,
			Price:     price,
			ItemPrice: e.Price,
			Color:     e.Color,
			HP:        e.HP,
			Attack:    e.Attack,
			Moves:     e.Moves,
			Level:     max(e.Level, 1),
			XP:        e.XP,
			State:     models.AuctionActive,
		}
		return tx.Create(&a).Error
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[AUCTION] user %d listed %q as auction %d for %d", userID, a.Name, a.ID, price)
	return &a, nil
}

// restoreEntry recreates an auctioned creature for owner at its listed-time
// value. The asking price never carries over.
func (s *GameService) restoreEntry(tx *gorm.DB, owner int64, a *models.Auction) (*models.InventoryEntry, error) {
	e := models.InventoryEntry{
		UserID:     owner,
		Name:       a.Name,
		Tier:       a.Tier,
		Price:      a.ItemPrice,
		Color:      a.Color,
		HP:         a.HP,
		Attack:     a.Attack,
		Moves:      a.Moves,
		Level:      max(a.Level, 1),
		XP:         a.XP,
		AcquiredAt: s.Now(),
	}
	return &e, tx.Create(&e).Error
}

func activeAuction(db *gorm.DB, id uint) (*models.Auction, error) {
	var a models.Auction
	err := db.Where("id = ? AND state = ?", id, models.AuctionActive).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Auction not found")
	}
	return &a, err
}

// BuyAuction pays the seller and hands the creature to the buyer.
func (s *GameService) BuyAuction(ctx context.Context, buyerID int64, username string, auctionID uint) (*models.InventoryEntry, error) {
	peek, err := activeAuction(s.DB.WithContext(ctx), auctionID)
	if err != nil {
		return nil, err
	}
	if peek.SellerID == buyerID {
		return nil, validationf("You cannot buy your own auction")
	}

	var entry *models.InventoryEntry
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		a, err := activeAuction(tx, auctionID)
		if err != nil {
			return err
		}
		if _, err := s.ensureUser(tx, buyerID, username); err != nil {
			return err
		}
		if err := s.spend(tx, buyerID, a.Price); err != nil {
			return err
		}
		if err := s.addMoney(tx, a.SellerID, a.Price); err != nil {
			return err
		}
		if entry, err = s.restoreEntry(tx, buyerID, a); err != nil {
			return err
		}
		return tx.Model(a).Updates(map[string]any{"buyer_id": buyerID, "state": models.AuctionSold}).Error
	}, buyerID, peek.SellerID)
	if err != nil {
		return nil, err
	}
	log.Printf("[AUCTION] user %d bought auction %d", buyerID, auctionID)
	return entry, nil
}

// CancelAuction returns one of the seller's active auctions to inventory.
func (s *GameService) CancelAuction(ctx context.Context, sellerID int64, auctionID uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		a, err := activeAuction(tx.Where("seller_id = ?", sellerID), auctionID)
		if err != nil {
			return err
		}
		return s.cancelAuction(tx, a)
	}, sellerID)
}

// CancelAllAuctions cancels every active auction of the seller.
func (s *GameService) CancelAllAuctions(ctx context.Context, sellerID int64) (int, error) {
	var n int
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var rows []models.Auction
		if err := tx.Where("seller_id = ? AND state = ?", sellerID, models.AuctionActive).Order("id").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFoundf("No active auctions")
		}
		for i := range rows {
			if err := s.cancelAuction(tx, &rows[i]); err != nil {
				return err
			}
		}
		n = len(rows)
		return nil
	}, sellerID)
	return n, err
}

func (s *GameService) cancelAuction(tx *gorm.DB, a *models.Auction) error {
	if _, err := s.restoreEntry(tx, a.SellerID, a); err != nil {
		return err
	}
	return tx.Model(a).Update("state", models.AuctionCancelled).Error
}
