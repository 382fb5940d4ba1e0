package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
)

// DefaultColors are the creature colors; each one has a render tint.
var DefaultColors = []string{
	"red", "orange", "yellow", "green", "blue", "purple",
	"pink", "cyan", "lime", "magenta", "teal", "indigo",
}

// DefaultWords are the descriptor words crossed with colors to build the market.
var DefaultWords = []string{
	"armored", "bouncy", "crusty", "dusty", "fuzzy", "grumpy", "mossy", "nibbly",
	"pebbly", "rolly", "sleepy", "spiky", "sneaky", "soggy", "tiny", "wobbly",
}

// GameService owns the economy: users, market, shop, effects, contests.
// Every exported mutation runs in a single transaction under the affected
// users' locks.
type GameService struct {
	DB     *gorm.DB
	Rules  Rules
	Rand   Rand
	Locks  *UserLocks
	Effect EffectLedger

	Colors []string
	Words  []string

	// Now and Sleep are swapped in tests.
	Now   func() time.Time
	Sleep func(time.Duration)

	// CastScale multiplies rod cast durations.
	CastScale float64

	marketMu sync.Mutex
	shopMu   sync.Mutex
}

// Option customizes a GameService.
type Option func(*GameService)

func WithRules(r Rules) Option {
	return func(s *GameService) { s.Rules = r }
}

func WithRand(r Rand) Option {
	return func(s *GameService) { s.Rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.Now = now }
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(s *GameService) { s.Sleep = sleep }
}

func WithWords(words []string) Option {
	return func(s *GameService) { s.Words = words }
}

func WithCastScale(scale float64) Option {
	return func(s *GameService) { s.CastScale = scale }
}

func NewGameService(db *gorm.DB, opts ...Option) *GameService {
	s := &GameService{
		DB:        db,
		Rules:     DefaultRules,
		Locks:     NewUserLocks(),
		Colors:    DefaultColors,
		Words:     DefaultWords,
		Now:       time.Now,
		Sleep:     time.Sleep,
		CastScale: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Rand == nil {
		r, err := NewRand()
		if err != nil {
			log.Printf("[GAME] crypto seed unavailable, falling back to clock seed: %v", err)
			r = NewSeededRand(uint64(time.Now().UnixNano()))
		}
		s.Rand = r
	}
	s.Effect = EffectLedger{DefaultBoost: s.Rules.DefaultBoost}
	return s
}

// Seed makes sure static catalogs (shop items, rods, fish) exist.
func (s *GameService) Seed(ctx context.Context) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedShopItems(tx); err != nil {
			return err
		}
		if err := seedFishingRods(tx); err != nil {
			return err
		}
		return s.ensureFishCatalog(tx)
	})
}

// inTx runs fn in one transaction holding the given users' locks.
func (s *GameService) inTx(ctx context.Context, fn func(tx *gorm.DB) error, userIDs ...int64) error {
	unlock := s.Locks.Lock(userIDs...)
	defer unlock()
	return s.DB.WithContext(ctx).Transaction(fn)
}
