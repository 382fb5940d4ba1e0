// models/catalog.go
package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Tier is the rarity rank of a creature or fish.
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierCommon, TierRare, TierEpic, TierLegendary}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, bool) {
	for _, t := range Tiers {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Rank orders tiers; unknown tiers rank below common.
func (t Tier) Rank() int {
	for i, v := range Tiers {
		if v == t {
			return i
		}
	}
	return -1
}

// Next returns the tier one step up. Legendary has no successor.
func (t Tier) Next() (Tier, bool) {
	r := t.Rank()
	if r < 0 || r+1 >= len(Tiers) {
		return "", false
	}
	return Tiers[r+1], true
}

// ColorRainbow marks jackpot and fusion products. Rainbow creatures can never
// be sold or auctioned.
const ColorRainbow = "rainbow"

// Move is one attack in a creature's moveset.
type Move struct {
	Name  string `json:"name"`
	Power int    `json:"power"`
}

// Moveset is persisted as a JSON column.
type Moveset = datatypes.JSONSlice[Move]

// CatalogEntry is one marketplace row. The whole catalog is regenerated on a
// fixed interval; owned creatures keep a snapshot of the row they came from.
type CatalogEntry struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Color    string `gorm:"not null" json:"color"`
	Word     string `gorm:"not null" json:"word"`
	FullName string `gorm:"uniqueIndex;not null" json:"full_name"`
	Tier     Tier   `gorm:"type:varchar(16);not null;index" json:"tier"`
	Price    int64  `gorm:"not null;index" json:"price"`

	Stats *CreatureStats `gorm:"foreignKey:CatalogID;constraint:OnDelete:CASCADE" json:"stats,omitempty"`
}

// CreatureStats pairs 1:1 with a CatalogEntry.
type CreatureStats struct {
	CatalogID uint    `gorm:"primaryKey;autoIncrement:false" json:"catalog_id"`
	HP        int     `gorm:"not null" json:"hp"`
	Attack    int     `gorm:"not null" json:"attack"`
	Moves     Moveset `json:"moves"`
}

// GlobalState holds process-wide timestamps such as the last market regen.
type GlobalState struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     time.Time `json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	GlobalKeyLastMarketRegen = "last_regen"
	// refresh times already announced to a chat
	GlobalKeyMarketAnnounced = "market_announced"
	GlobalKeyShopAnnounced   = "shop_announced"
)
