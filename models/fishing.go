// models/fishing.go
package models

// FishCatalog is the fish counterpart of CatalogEntry. Built once, not rotated.
type FishCatalog struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Color string `json:"color"`
	Word  string `json:"word"`
	Name  string `json:"name"`
	Tier  Tier   `gorm:"type:varchar(16);index" json:"tier"`
	Price int64  `json:"price"`
}

type FishingRod struct {
	RodID           string  `gorm:"primaryKey" json:"rod_id"`
	Name            string  `json:"name"`
	Price           int64   `json:"price"`
	Tier            int     `json:"tier"`
	BiteChance      float64 `json:"bite_chance"`
	SaveBaitChance  float64 `json:"save_bait_chance"`
	MultiCatchMax   int     `json:"multi_catch_max"`
	CastSeconds     float64 `json:"cast_seconds"`
	BonusItemChance float64 `json:"bonus_item_chance"`
}

type UserRod struct {
	UserID int64  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RodID  string `gorm:"primaryKey" json:"rod_id"`
	Qty    int    `gorm:"not null;default:0" json:"qty"`
}

type UserFish struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FishID uint  `gorm:"primaryKey;autoIncrement:false" json:"fish_id"`
	Qty    int   `gorm:"not null;default:0" json:"qty"`

	Fish FishCatalog `gorm:"foreignKey:FishID;references:ID" json:"fish"`
}

func (UserFish) TableName() string { return "user_fish" }
