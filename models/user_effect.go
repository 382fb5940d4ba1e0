// models/user_effect.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// EffectKind keys a per-user effect. A user holds at most one of each kind.
type EffectKind string

const (
	KindGuaranteeRare      EffectKind = "guarantee_rare"
	KindGuaranteeLegendary EffectKind = "guarantee_legendary"
	KindItemDropBoost      EffectKind = "item_drop_boost"
	KindShopDiscount       EffectKind = "shop_discount"
	KindSafetyNet          EffectKind = "safety_net"
	KindBattleDefenseBoost EffectKind = "battle_defense_boost"
	KindRaceSpeedBoost     EffectKind = "race_speed_boost"
)

// UserEffect stores an encoded effect payload with an optional absolute expiry.
type UserEffect struct {
	UserID    int64          `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Kind      EffectKind     `gorm:"primaryKey;type:varchar(32)" json:"kind"`
	Value     datatypes.JSON `json:"value"`
	ExpiresAt *time.Time     `gorm:"index" json:"expires_at,omitempty"` // nil = until consumed
}
