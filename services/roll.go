package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

// Guarantee constrains the tier of a single draw.
type Guarantee int

const (
	GuaranteeNone Guarantee = iota
	GuaranteeRare
	GuaranteeLegendary
)

// Fallback stats for catalog rows that lost their stats row.
const (
	fallbackHP     = 20
	fallbackAttack = 5
)

// RollOutcome is one draw. Jackpot outcomes carry no Entry.
type RollOutcome struct {
	Jackpot bool
	Entry   *models.InventoryEntry
	Healed  bool
	Nerfed  bool
	Drop    *models.ShopItem
}

type RollResult struct {
	Outcomes          []RollOutcome
	Status            string
	MarketRegenerated bool
	Guarantee         Guarantee
}

// guaranteeTiers lists the tiers a guarantee allows; nil means any tier.
func guaranteeTiers(g Guarantee) []models.Tier {
	switch g {
	case GuaranteeLegendary:
		return []models.Tier{models.TierLegendary}
	case GuaranteeRare:
		return []models.Tier{models.TierRare, models.TierEpic, models.TierLegendary}
	}
	return nil
}

// pickCatalogEntry selects one row uniformly among the allowed tiers.
func (s *GameService) pickCatalogEntry(tx *gorm.DB, g Guarantee) (*models.CatalogEntry, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if tiers := guaranteeTiers(g); tiers != nil {
			return db.Where("tier IN ?", tiers)
		}
		return db
	}
	var n int64
	if err := tx.Model(&models.CatalogEntry{}).Scopes(scope).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, notFoundf("No market entries found.")
	}
	var entry models.CatalogEntry
	err := tx.Scopes(scope).Preload("Stats").Order("id").
		Offset(s.Rand.IntN(int(n))).Limit(1).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// snapshotEntry materializes a catalog row into an owned creature.
func snapshotEntry(userID int64, c *models.CatalogEntry, now time.Time) models.InventoryEntry {
	hp, atk, moves := fallbackHP, fallbackAttack, models.Moveset{}
	if c.Stats != nil {
		hp, atk = c.Stats.HP, c.Stats.Attack
		if c.Stats.Moves != nil {
			moves = append(moves, c.Stats.Moves...)
		}
	}
	id := c.ID
	return models.InventoryEntry{
		UserID:     userID,
		CatalogID:  &id,
		Name:       c.FullName,
		Tier:       c.Tier,
		Price:      c.Price,
		Color:      c.Color,
		HP:         hp,
		Attack:     atk,
		Moves:      moves,
		Level:      1,
		AcquiredAt: now,
	}
}

// rollOnce resolves a single draw for a user whose charge was already spent.
func (s *GameService) rollOnce(tx *gorm.DB, user *models.User, g Guarantee, now time.Time) (RollOutcome, error) {
	var out RollOutcome

	if g == GuaranteeNone && chance(s.Rand, s.Rules.JackpotChance) {
		user.Legendary = true
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"legendary":    true,
			"last_roll_at": now,
		}).Error; err != nil {
			return out, err
		}
		log.Printf("[ROLL] 🌈 jackpot for user %d", user.ID)
		out.Jackpot = true
		return out, nil
	}

	cat, err := s.pickCatalogEntry(tx, g)
	if err != nil {
		return out, err
	}
	entry := snapshotEntry(user.ID, cat, now)
	if err := tx.Create(&entry).Error; err != nil {
		return out, fmt.Errorf("insert inventory: %w", err)
	}
	out.Entry = &entry
	log.Printf("[ROLL] user %d rolled %q (%s, %d iso$, catalog %d)", user.ID, entry.Name, entry.Tier, entry.Price, cat.ID)

	// heal takes priority over nerf
	if chance(s.Rand, s.Rules.HealChance) {
		out.Healed = true
		if user.Charges < s.Rules.MaxCharges {
			if err := s.storeCharges(tx, user, user.Charges+1, user.ChargeAnchor); err != nil {
				return out, err
			}
		}
	} else if chance(s.Rand, s.Rules.NerfChance) {
		out.Nerfed = true
		if err := s.storeCharges(tx, user, user.Charges, now.Add(s.Rules.NerfPenalty)); err != nil {
			return out, err
		}
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("last_roll_at", now).Error; err != nil {
		return out, err
	}

	dropChance := s.Rules.ItemDropChance
	if v, ok, err := s.Effect.Get(tx, user.ID, models.KindItemDropBoost, now); err != nil && !errors.Is(err, errBadPayload) {
		return out, err
	} else if m, isMult := v.(Multiplier); ok && isMult && m.Factor > 0 {
		dropChance *= m.Factor
	}
	if chance(s.Rand, dropChance) {
		item, err := s.randomShopItem(tx)
		if err != nil {
			return out, err
		}
		if item != nil {
			if err := addUserItem(tx, user.ID, item.ItemID, 1); err != nil {
				return out, err
			}
			out.Drop = item
		}
	}
	return out, nil
}

// takeGuarantee consumes the strongest pending guarantee.
func (s *GameService) takeGuarantee(tx *gorm.DB, userID int64, now time.Time) (Guarantee, error) {
	_, ok, err := s.Effect.Take(tx, userID, models.KindGuaranteeLegendary, now)
	if err != nil || ok {
		return GuaranteeLegendary, err
	}
	_, ok, err = s.Effect.Take(tx, userID, models.KindGuaranteeRare, now)
	if err != nil || ok {
		return GuaranteeRare, err
	}
	return GuaranteeNone, nil
}

// Roll spends one charge (or all of them) and draws that many creatures. A
// pending guarantee applies to the first draw only.
func (s *GameService) Roll(ctx context.Context, userID int64, username string, all bool) (*RollResult, error) {
	regenerated, err := s.EnsureMarketFresh(ctx)
	if err != nil {
		return nil, err
	}
	res := &RollResult{MarketRegenerated: regenerated}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		user, err := s.ensureUser(tx, userID, username)
		if err != nil {
			return err
		}
		return s.rollCharges(tx, user, all, res)
	}, userID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *GameService) rollCharges(tx *gorm.DB, user *models.User, all bool, res *RollResult) error {
	now := s.Now()
	if err := s.syncUserCharges(tx, user, now); err != nil {
		return err
	}
	count := 1
	if all {
		count = user.Charges
	}
	if count <= 0 || user.Charges <= 0 {
		return validationf("⏳ No charges. %s", ChargeStatusText(user.Charges, user.ChargeAnchor, now, s.Rules))
	}
	if err := s.storeCharges(tx, user, user.Charges-count, user.ChargeAnchor); err != nil {
		return err
	}

	g, err := s.takeGuarantee(tx, user.ID, now)
	if err != nil {
		return err
	}
	res.Guarantee = g
	for range count {
		out, err := s.rollOnce(tx, user, g, now)
		if err != nil {
			return err
		}
		res.Outcomes = append(res.Outcomes, out)
		g = GuaranteeNone
	}

	if err := s.syncUserCharges(tx, user, now); err != nil {
		return err
	}
	res.Status = ChargeStatusText(user.Charges, user.ChargeAnchor, now, s.Rules)
	return nil
}

// InstantRoll buys a single roll: it charges InstantRollPrice, tops the
// balance up to one charge if empty, then rolls once.
func (s *GameService) InstantRoll(ctx context.Context, userID int64, username string) (*RollResult, error) {
	regenerated, err := s.EnsureMarketFresh(ctx)
	if err != nil {
		return nil, err
	}
	res := &RollResult{MarketRegenerated: regenerated}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		user, err := s.ensureUser(tx, userID, username)
		if err != nil {
			return err
		}
		if err := s.spend(tx, userID, s.Rules.InstantRollPrice); err != nil {
			return err
		}
		now := s.Now()
		if err := s.syncUserCharges(tx, user, now); err != nil {
			return err
		}
		if user.Charges < 1 {
			if err := s.storeCharges(tx, user, 1, user.ChargeAnchor); err != nil {
				return err
			}
		}
		return s.rollCharges(tx, user, false, res)
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[ROLL] user %d bought an instant roll", userID)
	return res, nil
}
