// models/auction.go
package models

import "time"

type AuctionState string

const (
	AuctionActive    AuctionState = "active"
	AuctionSold      AuctionState = "sold"
	AuctionCancelled AuctionState = "cancelled"
)

// Auction holds a snapshot of the listed creature; the inventory row is
// removed while listed and recreated for the buyer or on cancel.
type Auction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SellerID int64  `gorm:"index;not null" json:"seller_id"`
	BuyerID  *int64 `json:"buyer_id,omitempty"`

	Name      string  `json:"name"`
	Tier      Tier    `gorm:"type:varchar(16)" json:"tier"`
	Price     int64   `gorm:"not null" json:"price"`      // asking price
	ItemPrice int64   `gorm:"not null" json:"item_price"` // the creature's own value
	Color     string  `json:"color"`
	HP        int     `json:"hp"`
	Attack    int     `json:"attack"`
	Moves     Moveset `json:"moves"`
	Level     int     `json:"level"`
	XP        int     `json:"xp"`

	State     AuctionState `gorm:"type:varchar(16);index;not null" json:"state"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
