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

// UseRequest is one /use invocation. TargetUsername is required by targeted
// items; CreatureID by iso candy.
type UseRequest struct {
	UserID         int64
	Username       string
	Token          string
	TargetUsername string
	CreatureID     uint
}

type UseResult struct {
	Item            models.ShopItem
	Text            string
	MarketRefreshed bool
}

func targetedEffect(t models.EffectType) bool {
	switch t {
	case models.EffectBiteBug, models.EffectStickyGoo, models.EffectFakeCoupon, models.EffectSwapToken:
		return true
	}
	return false
}

// UseItem consumes one unit of an item and applies its effect in the same
// transaction; a failed effect leaves the item in place.
func (s *GameService) UseItem(ctx context.Context, req UseRequest) (*UseResult, error) {
	db := s.DB.WithContext(ctx)
	item, err := resolveItem(db, req.Token)
	if err != nil {
		return nil, err
	}

	switch item.EffectType {
	case models.EffectFusionPod, models.EffectBreedingFood:
		return nil, validationf("%s is spent by /breed and /rainbowfusion", item.Name)
	case models.EffectAddXP:
		if req.CreatureID == 0 {
			return nil, validationf("Use: /use %s <isopod_id>", item.ItemID)
		}
	}

	var target *models.User
	lockIDs := []int64{req.UserID}
	if targetedEffect(item.EffectType) {
		if req.TargetUsername == "" {
			return nil, validationf("Target required: /use %s @user", item.ItemID)
		}
		if target, err = findUserByUsername(db, req.TargetUsername); err != nil {
			return nil, err
		}
		if target.ID == req.UserID {
			return nil, validationf("You cannot target yourself")
		}
		lockIDs = append(lockIDs, target.ID)
	}

	unlock := s.Locks.Lock(lockIDs...)
	defer unlock()
	if item.EffectType == models.EffectRegenMarket || item.EffectType == models.EffectMarketSabotage {
		s.marketMu.Lock()
		defer s.marketMu.Unlock()
	}

	now := s.Now()
	res := &UseResult{Item: *item}
	err = db.Transaction(func(tx *gorm.DB) error {
		user, err := s.ensureUser(tx, req.UserID, req.Username)
		if err != nil {
			return err
		}
		ok, err := consumeUserItem(tx, req.UserID, item.ItemID, 1)
		if err != nil {
			return err
		}
		if !ok {
			return validationf("No item")
		}
		return s.applyItem(tx, user, target, item, req, now, res)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[ITEMS] user %d used %s", req.UserID, item.ItemID)
	return res, nil
}

func (s *GameService) applyItem(tx *gorm.DB, user, target *models.User, item *models.ShopItem, req UseRequest, now time.Time, res *UseResult) error {
	mag := item.Magnitude
	switch item.EffectType {
	case models.EffectAddCharge:
		if err := s.syncUserCharges(tx, user, now); err != nil {
			return err
		}
		if err := s.storeCharges(tx, user, user.Charges+int(mag), user.ChargeAnchor); err != nil {
			return err
		}
		res.Text = fmt.Sprintf("⚡ +%d charge(s)", int(mag))

	case models.EffectGuaranteeRare:
		res.Text = "🍀 Next roll guaranteed Rare+"
		return s.Effect.Set(tx, user.ID, models.KindGuaranteeRare, Marker{}, 0, now)

	case models.EffectGuaranteeLegendary:
		res.Text = "🏆 Next roll guaranteed Legendary"
		return s.Effect.Set(tx, user.ID, models.KindGuaranteeLegendary, Marker{}, 0, now)

	case models.EffectDoubleRoll:
		if err := s.syncUserCharges(tx, user, now); err != nil {
			return err
		}
		if err := s.storeCharges(tx, user, user.Charges*2, user.ChargeAnchor); err != nil {
			return err
		}
		res.Text = fmt.Sprintf("🎲 Charges doubled to %d/%d", user.Charges, s.Rules.MaxCharges)

	case models.EffectRegenMarket:
		if _, err := s.generateMarketplace(tx, now); err != nil {
			return err
		}
		if _, err := claimAnnouncement(tx, models.GlobalKeyMarketAnnounced, now); err != nil {
			return err
		}
		res.Text, res.MarketRefreshed = "🔄 Market regenerated", true

	case models.EffectMarketSabotage:
		if err := s.sabotageMarket(tx, now); err != nil {
			return err
		}
		if _, err := claimAnnouncement(tx, models.GlobalKeyMarketAnnounced, now); err != nil {
			return err
		}
		res.Text, res.MarketRefreshed = "💥 Market sabotaged (prices lowered)", true

	case models.EffectItemDropBoost:
		res.Text = fmt.Sprintf("🧲 Item drops boosted for %d minutes", int(s.Rules.ItemDropBoostTTL.Minutes()))
		return s.Effect.Set(tx, user.ID, models.KindItemDropBoost, Multiplier{Factor: mag}, s.Rules.ItemDropBoostTTL, now)

	case models.EffectShopDiscount:
		res.Text = fmt.Sprintf("🏷️ %d%% discount for next %d shop buys", int(mag), s.Rules.DiscountUses)
		return s.Effect.Set(tx, user.ID, models.KindShopDiscount, Discount{Percent: int(mag), Uses: s.Rules.DiscountUses}, 0, now)

	case models.EffectSafetyNet:
		res.Text = "🛡️ Safety Net armed"
		return s.Effect.Set(tx, user.ID, models.KindSafetyNet, Marker{}, 0, now)

	case models.EffectSpyDrone:
		res.Text = "🛰️ Defense boost applied to your next battle"
		return s.Effect.Set(tx, user.ID, models.KindBattleDefenseBoost, Boost{Fraction: boostOrDefault(mag, s.Rules.DefaultBoost)}, 0, now)

	case models.EffectRaceBoost:
		res.Text = "🏁 Race speed boost applied"
		return s.Effect.Set(tx, user.ID, models.KindRaceSpeedBoost, Boost{Fraction: boostOrDefault(mag, s.Rules.DefaultBoost)}, 0, now)

	case models.EffectAddXP:
		up, err := s.feedXP(tx, user.ID, req.CreatureID, int(mag))
		if err != nil {
			return err
		}
		if up.LevelsGained > 0 {
			res.Text = fmt.Sprintf("🍬 %d level(s) gained! Lv%d ❤️ %d ⚔️ %d", up.LevelsGained, up.Level, up.HP, up.Attack)
		} else {
			res.Text = fmt.Sprintf("🍬 XP +%d. Lv%d (%d/%d)", int(mag), up.Level, up.XP, up.XPPerLevel)
		}

	case models.EffectBiteBug:
		return s.biteBug(tx, user, target, res)

	case models.EffectStickyGoo, models.EffectFakeCoupon:
		return s.drainCharge(tx, target, item.EffectType, now, res)

	case models.EffectSwapToken:
		return s.swapRandom(tx, user, target, res)

	default:
		return validationf("Unknown item")
	}
	return nil
}

func boostOrDefault(v, def float64) float64 {
	if v <= 0 || v >= 1 {
		return def
	}
	return v
}

// biteBug steals 5-15% of the target's balance, at least 5 and at most 100,
// never more than the target holds.
func (s *GameService) biteBug(tx *gorm.DB, user, target *models.User, res *UseResult) error {
	victim, err := loadUser(tx, target.ID)
	if err != nil {
		return err
	}
	steal := int64(0)
	if victim.Money > 0 {
		pct := int64(randInt(s.Rand, 5, 15))
		steal = min(max(5, victim.Money*pct/100), 100, victim.Money)
	}
	if steal > 0 {
		if err := s.addMoney(tx, target.ID, -steal); err != nil {
			return err
		}
		if err := s.addMoney(tx, user.ID, steal); err != nil {
			return err
		}
	}
	res.Text = fmt.Sprintf("🪲 Stole %d iso$ from @%s", steal, target.Username)
	return nil
}

// drainCharge removes one of the target's charges. Sticky goo also pushes
// their regen anchor a full cooldown past max(anchor, now).
func (s *GameService) drainCharge(tx *gorm.DB, target *models.User, effect models.EffectType, now time.Time, res *UseResult) error {
	victim, err := loadUser(tx, target.ID)
	if err != nil {
		return err
	}
	if err := s.syncUserCharges(tx, victim, now); err != nil {
		return err
	}
	icon := "🎟️"
	if effect == models.EffectStickyGoo {
		icon = "🧪"
	}
	if victim.Charges <= 0 {
		res.Text = fmt.Sprintf("%s @%s has no charges", icon, victim.Username)
		return nil
	}

	anchor := victim.ChargeAnchor
	if effect == models.EffectStickyGoo {
		if now.After(anchor) {
			anchor = now
		}
		anchor = anchor.Add(s.Rules.ChargeCooldown)
		res.Text = fmt.Sprintf("%s Removed 1 charge and delayed @%s's next charge", icon, victim.Username)
	} else {
		res.Text = fmt.Sprintf("%s @%s lost 1 charge (no roll)", icon, victim.Username)
	}
	return s.storeCharges(tx, victim, victim.Charges-1, anchor)
}

// randomUnlocked picks one of the user's unlocked creatures, or nil.
func (s *GameService) randomUnlocked(tx *gorm.DB, userID int64) (*models.InventoryEntry, error) {
	q := tx.Model(&models.InventoryEntry{}).Where("user_id = ? AND locked = ?", userID, false)
	var n int64
	if err := q.Count(&n).Error; err != nil || n == 0 {
		return nil, err
	}
	var e models.InventoryEntry
	err := tx.Where("user_id = ? AND locked = ?", userID, false).Order("id").
		Offset(s.Rand.IntN(int(n))).Limit(1).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &e, err
}

// swapRandom exchanges one random unlocked creature between the two users.
func (s *GameService) swapRandom(tx *gorm.DB, user, target *models.User, res *UseResult) error {
	mine, err := s.randomUnlocked(tx, user.ID)
	if err != nil {
		return err
	}
	theirs, err := s.randomUnlocked(tx, target.ID)
	if err != nil {
		return err
	}
	if mine == nil || theirs == nil {
		res.Text = "Swap failed (one side has no unlocked isopods)"
		return nil
	}
	if err := tx.Model(mine).Update("user_id", target.ID).Error; err != nil {
		return err
	}
	if err := tx.Model(theirs).Update("user_id", user.ID).Error; err != nil {
		return err
	}
	res.Text = fmt.Sprintf("🔁 Swapped %s for @%s's %s", mine.Name, target.Username, theirs.Name)
	return nil
}
