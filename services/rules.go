package services

import "time"

// Rules are the game's tunables.
type Rules struct {
	ChargeCooldown   time.Duration
	MaxCharges       int
	OverchargeMax    int
	ShopRefresh      time.Duration
	MarketRefresh    time.Duration
	InstantRollPrice int64

	JackpotChance  float64
	HealChance     float64
	NerfChance     float64
	NerfPenalty    time.Duration
	ItemDropChance float64

	XPPerLevel    int
	LevelHPBonus  int
	LevelAtkBonus int

	ItemDropBoostTTL time.Duration
	DiscountUses     int
	DefaultBoost     float64 // used when a stored boost payload is unreadable

	BattleMaxRounds int
	ShopSlots       int

	// AllowNegativeBalance lets unguarded deltas (race loss, theft) push a
	// balance below zero.
	AllowNegativeBalance bool
}

var DefaultRules = Rules{
	ChargeCooldown:   300 * time.Second,
	MaxCharges:       5,
	OverchargeMax:    10,
	ShopRefresh:      time.Hour,
	MarketRefresh:    3 * time.Hour,
	InstantRollPrice: 250,

	JackpotChance:  0.005,
	HealChance:     0.1,
	NerfChance:     0.05,
	NerfPenalty:    10 * time.Minute,
	ItemDropChance: 0.05,

	XPPerLevel:    100,
	LevelHPBonus:  2,
	LevelAtkBonus: 1,

	ItemDropBoostTTL: 30 * time.Minute,
	DiscountUses:     3,
	DefaultBoost:     0.2,

	BattleMaxRounds: 20,
	ShopSlots:       3,

	AllowNegativeBalance: true,
}
