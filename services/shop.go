package services

import (
	"context"
	"errors"
	"log"
	"slices"
	"strconv"
	"time"

	"isopod-exchange/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultShopItems is the consumable catalog, seeded on startup.
var DefaultShopItems = []models.ShopItem{
	{ItemID: "energy_drink", Name: "Energy Drink", Price: 50, EffectType: models.EffectAddCharge, Magnitude: 1, Description: "Add 1 roll charge (can overcharge)"},
	{ItemID: "energy_drink_pack", Name: "Energy Drink Pack", Price: 220, EffectType: models.EffectAddCharge, Magnitude: 5, Description: "Add 5 roll charges (can overcharge)"},
	{ItemID: "lucky_token", Name: "Lucky Token", Price: 220, EffectType: models.EffectGuaranteeRare, Magnitude: 1, Description: "Next roll is Rare or better"},
	{ItemID: "golden_ticket", Name: "Golden Ticket", Price: 900, EffectType: models.EffectGuaranteeLegendary, Magnitude: 1, Description: "Next roll is Legendary"},
	{ItemID: "double_roll", Name: "Double Roll", Price: 180, EffectType: models.EffectDoubleRoll, Magnitude: 1, Description: "Double your current charges (up to max)"},
	{ItemID: "market_refresh", Name: "Market Refresh", Price: 260, EffectType: models.EffectRegenMarket, Magnitude: 1, Description: "Force global market regen now"},
	{ItemID: "iso_magnet", Name: "Iso Magnet", Price: 200, EffectType: models.EffectItemDropBoost, Magnitude: 2, Description: "Double item drop chance for 30 minutes"},
	{ItemID: "sale_voucher", Name: "Sale Voucher", Price: 150, EffectType: models.EffectShopDiscount, Magnitude: 10, Description: "10% off next 3 shop buys"},
	{ItemID: "safety_net", Name: "Safety Net", Price: 300, EffectType: models.EffectSafetyNet, Magnitude: 1, Description: "Prevents losing an isopod in next battle loss"},
	{ItemID: "bite_bug", Name: "Bite Bug", Price: 160, EffectType: models.EffectBiteBug, Magnitude: 1, Description: "Steal 5-15% iso$ from a target"},
	{ItemID: "sticky_goo", Name: "Sticky Goo", Price: 130, EffectType: models.EffectStickyGoo, Magnitude: 1, Description: "Remove 1 charge and delay next charge"},
	{ItemID: "fake_coupon", Name: "Fake Coupon", Price: 140, EffectType: models.EffectFakeCoupon, Magnitude: 1, Description: "Target loses 1 charge with no roll"},
	{ItemID: "market_sabotage", Name: "Market Sabotage", Price: 280, EffectType: models.EffectMarketSabotage, Magnitude: 1, Description: "Regenerate market with lower prices"},
	{ItemID: "spy_drone", Name: "Spy Drone", Price: 190, EffectType: models.EffectSpyDrone, Magnitude: 0.2, Description: "20% defense in your next battle"},
	{ItemID: "swap_token", Name: "Swap Token", Price: 240, EffectType: models.EffectSwapToken, Magnitude: 1, Description: "Swap a random isopod with a target"},
	{ItemID: "iso_candy", Name: "Iso Candy", Price: 120, EffectType: models.EffectAddXP, Magnitude: 25, Description: "Add 25 XP to an isopod"},
	{ItemID: "fusion_pod", Name: "Fusion Pod", Price: 320, EffectType: models.EffectFusionPod, Magnitude: 1, Description: "Required to breed two isopods"},
	{ItemID: "breeding_food", Name: "Breeding Food", Price: 160, EffectType: models.EffectBreedingFood, Magnitude: 1, Description: "Required to breed two isopods"},
	{ItemID: "race_fuel", Name: "Race Fuel", Price: 180, EffectType: models.EffectRaceBoost, Magnitude: 0.2, Description: "20% speed boost in next race"},
}

const (
	ItemFusionPod    = "fusion_pod"
	ItemBreedingFood = "breeding_food"
)

func seedShopItems(tx *gorm.DB) error {
	items := slices.Clone(DefaultShopItems)
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error
}

// ItemShortIDs maps item ids to their 1-based short ids (position in id order).
type ItemShortIDs struct {
	byShort map[string]string
	byID    map[string]string
}

func (m ItemShortIDs) Short(itemID string) string { return m.byID[itemID] }

func loadShortIDs(tx *gorm.DB) (ItemShortIDs, error) {
	var ids []string
	if err := tx.Model(&models.ShopItem{}).Order("item_id").Pluck("item_id", &ids).Error; err != nil {
		return ItemShortIDs{}, err
	}
	m := ItemShortIDs{byShort: map[string]string{}, byID: map[string]string{}}
	for i, id := range ids {
		short := strconv.Itoa(i + 1)
		m.byShort[short] = id
		m.byID[id] = short
	}
	return m, nil
}

// ShortIDs exposes the short-id table to views.
func (s *GameService) ShortIDs(ctx context.Context) (ItemShortIDs, error) {
	return loadShortIDs(s.DB.WithContext(ctx))
}

// resolveItem accepts a full item id or a short numeric id.
func resolveItem(tx *gorm.DB, token string) (*models.ShopItem, error) {
	if token == "" {
		return nil, notFoundf("Unknown item")
	}
	var item models.ShopItem
	err := tx.First(&item, "item_id = ?", token).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, convErr := strconv.Atoi(token); convErr != nil {
		return nil, notFoundf("Unknown item")
	}
	short, err := loadShortIDs(tx)
	if err != nil {
		return nil, err
	}
	id, ok := short.byShort[token]
	if !ok {
		return nil, notFoundf("Unknown item")
	}
	if err := tx.First(&item, "item_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// rotationStale reports whether the rotation must be replaced.
func rotationStale(rows []models.ShopRotation, slots int, now time.Time, refresh time.Duration) bool {
	if len(rows) != slots {
		return true
	}
	for _, r := range rows {
		if r.RefreshedAt == nil {
			return true
		}
	}
	return now.Sub(*rows[0].RefreshedAt) >= refresh
}

// shopRotation returns the active slots, replacing all of them together when
// stale. Callers hold shopMu, taken before the transaction opens.
func (s *GameService) shopRotation(tx *gorm.DB, now time.Time) ([]models.ShopRotation, bool, error) {
	var rows []models.ShopRotation
	if err := tx.Preload("Item").Order("slot").Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if !rotationStale(rows, s.Rules.ShopSlots, now, s.Rules.ShopRefresh) {
		return rows, false, nil
	}

	var items []models.ShopItem
	if err := tx.Order("item_id").Find(&items).Error; err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, notFoundf("Shop is empty")
	}
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ShopRotation{}).Error; err != nil {
		return nil, false, err
	}
	refreshed := now
	rows = rows[:0]
	for slot, idx := range sampleIndexes(s.Rand, len(items), s.Rules.ShopSlots) {
		rows = append(rows, models.ShopRotation{
			Slot:        slot + 1,
			ShopItemID:  items[idx].ItemID,
			RefreshedAt: &refreshed,
			Item:        items[idx],
		})
	}
	if err := tx.Omit("Item").Create(&rows).Error; err != nil {
		return nil, false, err
	}
	log.Printf("[SHOP] rotation refreshed: %s, %s, %s", rows[0].ShopItemID, rotationID(rows, 1), rotationID(rows, 2))
	return rows, true, nil
}

func rotationID(rows []models.ShopRotation, i int) string {
	if i < len(rows) {
		return rows[i].ShopItemID
	}
	return "-"
}

// ShopView is the active rotation plus time left until it changes.
type ShopView struct {
	Slots       []models.ShopRotation
	Refreshed   bool
	NextRefresh time.Duration
}

// Shop returns the rotation. Refreshed is true exactly once per rotation,
// for the first caller after it changed, whoever performed the refresh.
func (s *GameService) Shop(ctx context.Context) (*ShopView, error) {
	return s.shopView(ctx, true)
}

// prewarmShop refreshes a stale rotation without claiming the announcement.
func (s *GameService) prewarmShop(ctx context.Context) (*ShopView, error) {
	return s.shopView(ctx, false)
}

func (s *GameService) shopView(ctx context.Context, announce bool) (*ShopView, error) {
	s.shopMu.Lock()
	defer s.shopMu.Unlock()

	now := s.Now()
	view := &ShopView{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, refreshed, err := s.shopRotation(tx, now)
		if err != nil {
			return err
		}
		view.Slots, view.Refreshed = rows, refreshed
		if len(rows) == 0 || rows[0].RefreshedAt == nil {
			return nil
		}
		view.NextRefresh = max(0, rows[0].RefreshedAt.Add(s.Rules.ShopRefresh).Sub(now))
		if announce {
			view.Refreshed, err = claimAnnouncement(tx, models.GlobalKeyShopAnnounced, *rows[0].RefreshedAt)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// PurchaseResult describes a completed shop buy.
type PurchaseResult struct {
	Item             models.ShopItem
	Paid             int64
	Discounted       bool
	DiscountUsesLeft int
	ShopRefreshed    bool
}

// BuyItem buys one unit of an item in the current rotation, applying and
// spending one use of an active discount.
func (s *GameService) BuyItem(ctx context.Context, userID int64, username, token string) (*PurchaseResult, error) {
	now := s.Now()
	res := &PurchaseResult{}
	var missed error
	unlock := s.Locks.Lock(userID)
	defer unlock()
	s.shopMu.Lock()
	defer s.shopMu.Unlock()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ensureUser(tx, userID, username); err != nil {
			return err
		}
		item, err := resolveItem(tx, token)
		if err != nil {
			return err
		}
		rows, _, err := s.shopRotation(tx, now)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(rows, func(r models.ShopRotation) bool { return r.ShopItemID == item.ItemID }) {
			// Commit so a refresh that happened here sticks. The announcement
			// stays unclaimed for the next shop view.
			missed = contentionf("Item not in current shop")
			return nil
		}
		if res.ShopRefreshed, err = claimAnnouncement(tx, models.GlobalKeyShopAnnounced, *rows[0].RefreshedAt); err != nil {
			return err
		}

		price := item.Price
		v, ok, err := s.Effect.Get(tx, userID, models.KindShopDiscount, now)
		if err != nil {
			return err
		}
		if d, isDiscount := v.(Discount); ok && isDiscount && d.Percent > 0 && d.Uses > 0 {
			price = max(1, price*int64(100-d.Percent)/100)
			res.Discounted = true
			res.DiscountUsesLeft = d.Uses - 1
			if d.Uses-1 <= 0 {
				err = s.Effect.Consume(tx, userID, models.KindShopDiscount)
			} else {
				err = s.Effect.Set(tx, userID, models.KindShopDiscount, Discount{Percent: d.Percent, Uses: d.Uses - 1}, 0, now)
			}
			if err != nil {
				return err
			}
		}

		if err := s.spend(tx, userID, price); err != nil {
			return err
		}
		if err := addUserItem(tx, userID, item.ItemID, 1); err != nil {
			return err
		}
		res.Item, res.Paid = *item, price
		return nil
	})
	if err != nil {
		return nil, err
	}
	if missed != nil {
		return nil, missed
	}
	log.Printf("[SHOP] user %d bought %s for %d", userID, res.Item.ItemID, res.Paid)
	return res, nil
}

func addUserItem(tx *gorm.DB, userID int64, itemID string, qty int) error {
	row := models.UserItem{UserID: userID, ItemID: itemID, Qty: qty}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("user_items.qty + ?", qty)}),
	}).Create(&row).Error
}

func userItemQty(tx *gorm.DB, userID int64, itemID string) (int, error) {
	var row models.UserItem
	err := tx.Where("user_id = ? AND item_id = ?", userID, itemID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return row.Qty, err
}

// consumeUserItem removes qty units, reporting false when the user holds fewer.
func consumeUserItem(tx *gorm.DB, userID int64, itemID string, qty int) (bool, error) {
	have, err := userItemQty(tx, userID, itemID)
	if err != nil || have < qty {
		return false, err
	}
	if have == qty {
		err = tx.Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.UserItem{}).Error
	} else {
		err = tx.Model(&models.UserItem{}).Where("user_id = ? AND item_id = ?", userID, itemID).
			Update("qty", gorm.Expr("qty - ?", qty)).Error
	}
	return err == nil, err
}

// randomShopItem picks a uniformly random item id for drops and bonuses.
func (s *GameService) randomShopItem(tx *gorm.DB) (*models.ShopItem, error) {
	var items []models.ShopItem
	if err := tx.Order("item_id").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[s.Rand.IntN(len(items))], nil
}

// OwnedItem is one row of the items view.
type OwnedItem struct {
	Item models.ShopItem
	Qty  int
}

func (s *GameService) ListItems(ctx context.Context, userID int64) ([]OwnedItem, error) {
	var rows []models.UserItem
	db := s.DB.WithContext(ctx)
	if err := db.Where("user_id = ? AND qty > 0", userID).Order("qty DESC").Order("item_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]OwnedItem, 0, len(rows))
	for _, r := range rows {
		var item models.ShopItem
		if err := db.First(&item, "item_id = ?", r.ItemID).Error; err != nil {
			item = models.ShopItem{ItemID: r.ItemID, Name: r.ItemID}
		}
		out = append(out, OwnedItem{Item: item, Qty: r.Qty})
	}
	return out, nil
}

// SellItem sells qty units at half the shop price each (min 1).
func (s *GameService) SellItem(ctx context.Context, userID int64, token string, qty int) (string, int64, error) {
	return s.dropItem(ctx, userID, token, qty, true)
}

// DeleteItem discards qty units for nothing.
func (s *GameService) DeleteItem(ctx context.Context, userID int64, token string, qty int) (string, error) {
	id, _, err := s.dropItem(ctx, userID, token, qty, false)
	return id, err
}

func (s *GameService) dropItem(ctx context.Context, userID int64, token string, qty int, sell bool) (string, int64, error) {
	if qty <= 0 {
		return "", 0, validationf("Qty must be positive")
	}
	var (
		itemID string
		total  int64
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		item, err := resolveItem(tx, token)
		if err != nil {
			return err
		}
		itemID = item.ItemID
		ok, err := consumeUserItem(tx, userID, item.ItemID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return validationf("Not enough items")
		}
		if !sell {
			return nil
		}
		total = max(1, item.Price/2) * int64(qty)
		return s.addMoney(tx, userID, total)
	}, userID)
	return itemID, total, err
}
