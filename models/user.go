// models/user.go
package models

import (
	"time"
)

// User is a chat participant with an iso$ balance and a roll-charge meter.
// Rows are created on first interaction and never deleted.
type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false" json:"id"` // chat platform user id
	Username    string `gorm:"index" json:"username"`
	UsernameKey string `gorm:"index" json:"-"` // normalized form used for @mention lookup

	Money     int64 `gorm:"not null;default:0;index" json:"money"` // may go negative through unguarded deltas
	Legendary bool  `gorm:"not null;default:false;index" json:"legendary"`

	LastRollAt   *time.Time `json:"last_roll_at,omitempty"`
	Charges      int        `gorm:"not null;default:1" json:"charges"`
	ChargeAnchor time.Time  `json:"charge_anchor"` // regen is counted from here; a future value freezes regen

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
