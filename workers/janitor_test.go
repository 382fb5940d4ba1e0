package workers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"isopod-exchange/models"
	"isopod-exchange/services"
	"isopod-exchange/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openJanitorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "janitor.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.UserEffect{},
		&models.PendingBattle{},
		&models.PendingRace{},
		&models.ProcessedCommand{},
	))
	return db
}

func TestSweep(t *testing.T) {
	db := openJanitorDB(t)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	game := services.NewGameService(db,
		services.WithClock(func() time.Time { return now }),
		services.WithRand(services.NewSeededRand(1)))

	past, future := now.Add(-time.Minute), now.Add(time.Minute)
	require.NoError(t, db.Create(&[]models.UserEffect{
		{UserID: 1, Kind: models.KindItemDropBoost, Value: datatypes.JSON(`{"factor":2}`), ExpiresAt: &past},
		{UserID: 2, Kind: models.KindItemDropBoost, Value: datatypes.JSON(`{"factor":2}`), ExpiresAt: &future},
		{UserID: 3, Kind: models.KindSafetyNet, Value: datatypes.JSON(`{}`)},
	}).Error)
	require.NoError(t, db.Create(&[]models.PendingBattle{
		{ChallengerID: 1, TargetID: 2, ChallengerInvID: 1, ChatID: -1, Status: models.ContestPending, CreatedAt: now.Add(-25 * time.Hour)},
		{ChallengerID: 1, TargetID: 2, ChallengerInvID: 1, ChatID: -1, Status: models.ContestPending, CreatedAt: now.Add(-time.Hour)},
	}).Error)
	require.NoError(t, db.Create(&[]models.ProcessedCommand{
		{ID: "old", UpdateID: 1, Response: datatypes.JSON(`{}`), CreatedAt: now.Add(-72 * time.Hour)},
		{ID: "new", UpdateID: 2, Response: datatypes.JSON(`{}`), CreatedAt: now.Add(-time.Hour)},
	}).Error)

	renders := t.TempDir()
	oldFile := filepath.Join(renders, "isopod-red-old.png")
	newFile := filepath.Join(renders, "isopod-red-new.png")
	for _, p := range []string{oldFile, newFile} {
		require.NoError(t, os.WriteFile(p, []byte("png"), 0o644))
	}
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	j := NewJanitor(db, game, time.Minute, 24*time.Hour)
	j.Renders = utils.NewRenderer(t.TempDir(), renders, nil)
	j.Sweep(context.Background())

	var n int64
	require.NoError(t, db.Model(&models.UserEffect{}).Count(&n).Error)
	assert.EqualValues(t, 2, n, "only the expired effect is purged")

	var battles []models.PendingBattle
	require.NoError(t, db.Order("id").Find(&battles).Error)
	require.Len(t, battles, 2)
	assert.Equal(t, models.ContestExpired, battles[0].Status)
	assert.Equal(t, models.ContestPending, battles[1].Status)

	var ids []string
	require.NoError(t, db.Model(&models.ProcessedCommand{}).Pluck("id", &ids).Error)
	assert.Equal(t, []string{"new"}, ids)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}

func TestJanitorStopsOnCancel(t *testing.T) {
	db := openJanitorDB(t)
	game := services.NewGameService(db, services.WithRand(services.NewSeededRand(1)))
	j := NewJanitor(db, game, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
