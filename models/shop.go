// models/shop.go
package models

import "time"

// EffectType names what a shop item does when used.
type EffectType string

const (
	EffectAddCharge          EffectType = "add_charge"
	EffectGuaranteeRare      EffectType = "guarantee_rare"
	EffectGuaranteeLegendary EffectType = "guarantee_legendary"
	EffectDoubleRoll         EffectType = "double_roll"
	EffectRegenMarket        EffectType = "regen_market"
	EffectItemDropBoost      EffectType = "item_drop_boost"
	EffectShopDiscount       EffectType = "shop_discount"
	EffectSafetyNet          EffectType = "safety_net"
	EffectBiteBug            EffectType = "bite_bug"
	EffectStickyGoo          EffectType = "sticky_goo"
	EffectFakeCoupon         EffectType = "fake_coupon"
	EffectMarketSabotage     EffectType = "market_sabotage"
	EffectSpyDrone           EffectType = "spy_drone"
	EffectSwapToken          EffectType = "swap_token"
	EffectAddXP              EffectType = "add_xp"
	EffectFusionPod          EffectType = "fusion_pod"
	EffectBreedingFood       EffectType = "breeding_food"
	EffectRaceBoost          EffectType = "race_boost"
)

// ShopItem is a consumable template. Magnitude is the single effect parameter
// (charges added, multiplier, percent, fraction, xp).
type ShopItem struct {
	ItemID      string     `gorm:"primaryKey" json:"item_id"`
	Name        string     `gorm:"not null" json:"name"`
	Price       int64      `gorm:"not null" json:"price"`
	EffectType  EffectType `gorm:"type:varchar(32);not null" json:"effect_type"`
	Magnitude   float64    `gorm:"not null;default:1" json:"magnitude"`
	Description string     `json:"description"`
}

// ShopRotation is one of the three active for-sale slots. All slots share one
// RefreshedAt and are replaced together.
type ShopRotation struct {
	Slot        int        `gorm:"primaryKey;autoIncrement:false" json:"slot"`
	ShopItemID  string     `gorm:"column:item_id;not null;index" json:"item_id"`
	RefreshedAt *time.Time `json:"refreshed_at"`

	// belongs-to; the constraint lives on shop_rotations
	Item ShopItem `gorm:"foreignKey:ShopItemID;references:ItemID;constraint:OnDelete:RESTRICT" json:"item"`
}

// UserItem is a per-user quantity of a shop item. Rows at zero are removed.
type UserItem struct {
	UserID int64  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ItemID string `gorm:"primaryKey" json:"item_id"`
	Qty    int    `gorm:"not null;default:0" json:"qty"`
}
