// models/inventory.go
package models

import (
	"strings"
	"time"
)

// InventoryEntry is an owned creature. All display and combat fields are
// snapshotted at creation so catalog regeneration never changes it.
type InventoryEntry struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	UserID    int64 `gorm:"index;not null" json:"user_id"`
	CatalogID *uint `json:"catalog_id,omitempty"` // nil for bred, fused or auction-bought creatures

	Name   string  `gorm:"not null" json:"name"`
	Tier   Tier    `gorm:"type:varchar(16);not null;index" json:"tier"`
	Price  int64   `gorm:"not null" json:"price"`
	Color  string  `gorm:"not null" json:"color"`
	HP     int     `gorm:"not null" json:"hp"`
	Attack int     `gorm:"not null" json:"attack"`
	Moves  Moveset `json:"moves"`

	Level  int  `gorm:"not null;default:1" json:"level"`
	XP     int  `gorm:"not null;default:0" json:"xp"`
	Locked bool `gorm:"not null;default:false" json:"locked"`

	AcquiredAt time.Time `gorm:"index;not null" json:"acquired_at"`
}

// IsRainbow reports whether the creature is a rainbow jackpot/fusion product.
func (e *InventoryEntry) IsRainbow() bool {
	return strings.EqualFold(e.Color, ColorRainbow)
}
