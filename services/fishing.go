package services

import (
	"context"
	"errors"
	"log"
	"time"

	"isopod-exchange/models"
	"isopod-exchange/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DefaultRods = []models.FishingRod{
	{RodID: "basic_rod", Name: "Basic Rod", Price: 150, Tier: 1, BiteChance: 0.55, SaveBaitChance: 0.10, MultiCatchMax: 1, CastSeconds: 2.0, BonusItemChance: 0.03},
	{RodID: "sturdy_rod", Name: "Sturdy Rod", Price: 350, Tier: 2, BiteChance: 0.70, SaveBaitChance: 0.20, MultiCatchMax: 2, CastSeconds: 1.5, BonusItemChance: 0.05},
	{RodID: "elite_rod", Name: "Elite Rod", Price: 700, Tier: 3, BiteChance: 0.82, SaveBaitChance: 0.35, MultiCatchMax: 5, CastSeconds: 1.0, BonusItemChance: 0.08},
}

// FishTiers holds the catalog weight and price band of each fish tier.
var FishTiers = map[models.Tier]TierProfile{
	models.TierCommon:    {Weight: 70, PriceMin: 20, PriceMax: 60},
	models.TierRare:      {Weight: 20, PriceMin: 80, PriceMax: 160},
	models.TierEpic:      {Weight: 8, PriceMin: 200, PriceMax: 400},
	models.TierLegendary: {Weight: 2, PriceMin: 600, PriceMax: 1200},
}

// catchWeights returns the tier weights of a catch for the given rod tier.
func catchWeights(rodTier int) []float64 {
	switch {
	case rodTier >= 3:
		return []float64{50, 28, 16, 6}
	case rodTier >= 2:
		return []float64{60, 25, 12, 3}
	}
	return []float64{70, 20, 8, 2}
}

func seedFishingRods(tx *gorm.DB) error {
	rods := append([]models.FishingRod(nil), DefaultRods...)
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rods).Error
}

// ensureFishCatalog builds the fish catalog once; it is never rotated.
func (s *GameService) ensureFishCatalog(tx *gorm.DB) error {
	var n int64
	if err := tx.Model(&models.FishCatalog{}).Count(&n).Error; err != nil || n > 0 {
		return err
	}
	weights := make([]float64, len(models.Tiers))
	for i, t := range models.Tiers {
		weights[i] = FishTiers[t].Weight
	}
	fish := make([]models.FishCatalog, 0, len(s.Colors)*len(s.Words))
	for _, color := range s.Colors {
		for _, word := range s.Words {
			tier := models.Tiers[weightedIndex(s.Rand, weights)]
			band := FishTiers[tier]
			fish = append(fish, models.FishCatalog{
				Color: color,
				Word:  word,
				Name:  utils.CreatureName(string(tier), color, word, "isofish"),
				Tier:  tier,
				Price: int64(randInt(s.Rand, band.PriceMin, band.PriceMax)),
			})
		}
	}
	if len(fish) == 0 {
		return nil
	}
	log.Printf("[FISHING] built fish catalog with %d entries", len(fish))
	return tx.CreateInBatches(&fish, catalogBatch).Error
}

func (s *GameService) Rods(ctx context.Context) ([]models.FishingRod, error) {
	var rods []models.FishingRod
	err := s.DB.WithContext(ctx).Order("tier").Find(&rods).Error
	return rods, err
}

func findRod(tx *gorm.DB, rodID string) (*models.FishingRod, error) {
	var rod models.FishingRod
	err := tx.First(&rod, "rod_id = ?", rodID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Unknown rod")
	}
	return &rod, err
}

func (s *GameService) BuyRod(ctx context.Context, userID int64, username, rodID string) (*models.FishingRod, error) {
	var rod *models.FishingRod
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ensureUser(tx, userID, username); err != nil {
			return err
		}
		var err error
		if rod, err = findRod(tx, rodID); err != nil {
			return err
		}
		if err := s.spend(tx, userID, rod.Price); err != nil {
			return err
		}
		row := models.UserRod{UserID: userID, RodID: rod.RodID, Qty: 1}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "rod_id"}},
			DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("user_rods.qty + ?", 1)}),
		}).Create(&row).Error
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[FISHING] user %d bought %s", userID, rod.RodID)
	return rod, nil
}

func (s *GameService) FishInventory(ctx context.Context, userID int64) ([]models.UserFish, error) {
	var rows []models.UserFish
	err := s.DB.WithContext(ctx).Preload("Fish").
		Where("user_id = ? AND qty > 0", userID).
		Order("qty DESC").Order("fish_id").Find(&rows).Error
	return rows, err
}

// CatchResult is the outcome of one cast.
type CatchResult struct {
	Rod       models.FishingRod
	Bite      bool
	BaitSaved bool
	Fish      *models.FishCatalog
	Count     int
	Bonus     *models.ShopItem
}

// validateCast checks rod ownership and bait before the cast pause.
func validateCast(tx *gorm.DB, userID int64, rodID string, baitID uint) (*models.FishingRod, error) {
	var owned models.UserRod
	err := tx.Where("user_id = ? AND rod_id = ?", userID, rodID).First(&owned).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && owned.Qty <= 0) {
		return nil, validationf("You do not own that rod")
	}
	if err != nil {
		return nil, err
	}
	rod, err := findRod(tx, rodID)
	if err != nil {
		return nil, err
	}
	var bait models.InventoryEntry
	err = tx.Where("id = ? AND user_id = ?", baitID, userID).First(&bait).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Bait isopod not found")
	}
	if err != nil {
		return nil, err
	}
	if bait.Locked {
		return nil, lockedf("Unlock that isopod before using it as bait")
	}
	return rod, nil
}

// Fish casts a rod with a creature as bait. The cast pause runs outside any
// lock or transaction; the bait is checked again when the cast resolves.
func (s *GameService) Fish(ctx context.Context, userID int64, rodID string, baitID uint) (*CatchResult, error) {
	rod, err := validateCast(s.DB.WithContext(ctx), userID, rodID, baitID)
	if err != nil {
		return nil, err
	}

	if pause := time.Duration(rod.CastSeconds * s.CastScale * float64(time.Second)); pause > 0 {
		s.Sleep(pause)
	}

	res := &CatchResult{}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		rod, err := validateCast(tx, userID, rodID, baitID)
		if err != nil {
			return err
		}
		res.Rod = *rod
		res.BaitSaved = chance(s.Rand, rod.SaveBaitChance)
		res.Bite = chance(s.Rand, rod.BiteChance)

		if res.Bite {
			tier := models.Tiers[weightedIndex(s.Rand, catchWeights(rod.Tier))]
			var n int64
			if err := tx.Model(&models.FishCatalog{}).Where("tier = ?", tier).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return notFoundf("No fish available. Try again.")
			}
			var fish models.FishCatalog
			if err := tx.Where("tier = ?", tier).Order("id").Offset(s.Rand.IntN(int(n))).Limit(1).First(&fish).Error; err != nil {
				return err
			}
			res.Fish = &fish
			res.Count = randInt(s.Rand, 1, max(rod.MultiCatchMax, 1))
			row := models.UserFish{UserID: userID, FishID: fish.ID, Qty: res.Count}
			if err := tx.Omit("Fish").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "fish_id"}},
				DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("user_fish.qty + ?", res.Count)}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		if !res.BaitSaved {
			if err := tx.Where("id = ? AND user_id = ?", baitID, userID).Delete(&models.InventoryEntry{}).Error; err != nil {
				return err
			}
		}

		if res.Bite && chance(s.Rand, rod.BonusItemChance) {
			item, err := s.randomShopItem(tx)
			if err != nil {
				return err
			}
			if item != nil {
				if err := addUserItem(tx, userID, item.ItemID, 1); err != nil {
					return err
				}
				res.Bonus = item
			}
		}
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[FISHING] user %d cast %s: bite=%v saved=%v count=%d", userID, rodID, res.Bite, res.BaitSaved, res.Count)
	return res, nil
}
