package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"isopod-exchange/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by a test and its GameService.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// scriptedRand replays fixed draws, then falls back to a seeded source.
type scriptedRand struct {
	floats   []float64
	ints     []int
	fallback Rand
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) > 0 {
		f := s.floats[0]
		s.floats = s.floats[1:]
		return f
	}
	return s.fallback.Float64()
}

func (s *scriptedRand) IntN(n int) int {
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		return min(v, n-1)
	}
	return s.fallback.IntN(n)
}

func newScriptedRand(floats []float64, ints ...int) *scriptedRand {
	return &scriptedRand{floats: floats, ints: ints, fallback: NewSeededRand(7)}
}

// quietRules turns off every chance-driven side effect of a roll.
func quietRules() Rules {
	r := DefaultRules
	r.JackpotChance = 0
	r.HealChance = 0
	r.NerfChance = 0
	r.ItemDropChance = 0
	return r
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "game.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CatalogEntry{},
		&models.CreatureStats{},
		&models.GlobalState{},
		&models.InventoryEntry{},
		&models.ShopItem{},
		&models.ShopRotation{},
		&models.UserItem{},
		&models.UserEffect{},
		&models.PendingBattle{},
		&models.PendingRace{},
		&models.Auction{},
		&models.FishingRod{},
		&models.FishCatalog{},
		&models.UserRod{},
		&models.UserFish{},
		&models.ProcessedCommand{},
	))
	return db
}

// newTestGame returns a seeded game on a fresh database with a fixed clock,
// a deterministic Rand and a no-op sleep.
func newTestGame(t *testing.T, opts ...Option) (*GameService, *testClock) {
	t.Helper()
	clock := &testClock{now: testEpoch}
	base := []Option{
		WithClock(clock.Now),
		WithRand(NewSeededRand(42)),
		WithSleep(func(time.Duration) {}),
		WithWords([]string{"fuzzy", "mossy"}),
	}
	g := NewGameService(openTestDB(t), append(base, opts...)...)
	require.NoError(t, g.Seed(context.Background()))
	return g, clock
}

func seedUser(t *testing.T, g *GameService, id int64, name string, money int64) *models.User {
	t.Helper()
	u, err := g.EnsureUser(context.Background(), id, name)
	require.NoError(t, err)
	require.NoError(t, g.DB.Model(&models.User{}).Where("id = ?", id).Update("money", money).Error)
	u.Money = money
	return u
}

func setCharges(t *testing.T, g *GameService, id int64, charges int, anchor time.Time) {
	t.Helper()
	require.NoError(t, g.DB.Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"charges": charges, "charge_anchor": anchor}).Error)
}

func giveEntry(t *testing.T, g *GameService, userID int64, e models.InventoryEntry) *models.InventoryEntry {
	t.Helper()
	e.UserID = userID
	if e.Name == "" {
		e.Name = "Test Isopod"
	}
	if e.Tier == "" {
		e.Tier = models.TierCommon
	}
	if e.Color == "" {
		e.Color = "red"
	}
	if e.HP == 0 {
		e.HP = 30
	}
	if e.Attack == 0 {
		e.Attack = 6
	}
	if e.Level == 0 {
		e.Level = 1
	}
	if e.Moves == nil {
		e.Moves = models.Moveset{{Name: "Claw Snap", Power: e.Attack}}
	}
	e.AcquiredAt = g.Now()
	require.NoError(t, g.DB.Create(&e).Error)
	return &e
}

func giveItem(t *testing.T, g *GameService, userID int64, itemID string, qty int) {
	t.Helper()
	require.NoError(t, addUserItem(g.DB, userID, itemID, qty))
}

func loadTestUser(t *testing.T, g *GameService, id int64) *models.User {
	t.Helper()
	u, err := loadUser(g.DB, id)
	require.NoError(t, err)
	return u
}

func itemQty(t *testing.T, g *GameService, userID int64, itemID string) int {
	t.Helper()
	n, err := userItemQty(g.DB, userID, itemID)
	require.NoError(t, err)
	return n
}

func entryExists(t *testing.T, g *GameService, id uint) bool {
	t.Helper()
	var n int64
	require.NoError(t, g.DB.Model(&models.InventoryEntry{}).Where("id = ?", id).Count(&n).Error)
	return n > 0
}
