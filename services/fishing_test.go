package services

import (
	"context"
	"testing"
	"time"

	"isopod-exchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFishCatalogBuiltOnce(t *testing.T) {
	g, _ := newTestGame(t)

	var n int64
	require.NoError(t, g.DB.Model(&models.FishCatalog{}).Count(&n).Error)
	assert.EqualValues(t, len(g.Colors)*len(g.Words), n)

	require.NoError(t, g.Seed(context.Background()))
	require.NoError(t, g.DB.Model(&models.FishCatalog{}).Count(&n).Error)
	assert.EqualValues(t, len(g.Colors)*len(g.Words), n)

	rods, err := g.Rods(context.Background())
	require.NoError(t, err)
	require.Len(t, rods, 3)
	assert.Equal(t, "basic_rod", rods[0].RodID)
}

func TestBuyRod(t *testing.T) {
	g, _ := newTestGame(t)
	ctx := context.Background()
	seedUser(t, g, 1, "alice", 320)

	rod, err := g.BuyRod(ctx, 1, "alice", "basic_rod")
	require.NoError(t, err)
	assert.Equal(t, "Basic Rod", rod.Name)
	_, err = g.BuyRod(ctx, 1, "alice", "basic_rod")
	require.NoError(t, err)

	_, err = g.BuyRod(ctx, 1, "alice", "basic_rod")
	assert.True(t, IsKind(err, KindValidation))
	_, err = g.BuyRod(ctx, 1, "alice", "laser_rod")
	assert.True(t, IsKind(err, KindNotFound))

	var owned models.UserRod
	require.NoError(t, g.DB.First(&owned, "user_id = ? AND rod_id = ?", 1, "basic_rod").Error)
	assert.Equal(t, 2, owned.Qty)
	assert.EqualValues(t, 20, loadTestUser(t, g, 1).Money)
}

func fishingSetup(t *testing.T, opts ...Option) (*GameService, *models.InventoryEntry, *[]time.Duration) {
	t.Helper()
	var slept []time.Duration
	record := WithSleep(func(d time.Duration) { slept = append(slept, d) })
	g, _ := newTestGame(t, append([]Option{record}, opts...)...)
	seedUser(t, g, 1, "alice", 1000)
	_, err := g.BuyRod(context.Background(), 1, "alice", "elite_rod")
	require.NoError(t, err)
	return g, giveEntry(t, g, 1, models.InventoryEntry{}), &slept
}

func TestFishCatch(t *testing.T) {
	g, bait, slept := fishingSetup(t)
	// bait lost, bite, common tier, no bonus item; first fish, count 3
	g.Rand = newScriptedRand([]float64{0.99, 0.0, 0.0, 0.99}, 0, 2)

	res, err := g.Fish(context.Background(), 1, "elite_rod", bait.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
	assert.True(t, res.Bite)
	assert.False(t, res.BaitSaved)
	require.NotNil(t, res.Fish)
	assert.Equal(t, models.TierCommon, res.Fish.Tier)
	assert.Equal(t, 3, res.Count)
	assert.Nil(t, res.Bonus)
	assert.False(t, entryExists(t, g, bait.ID))

	fish, err := g.FishInventory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, fish, 1)
	assert.Equal(t, 3, fish[0].Qty)
	assert.Equal(t, res.Fish.Name, fish[0].Fish.Name)
}

func TestFishMissKeepsSavedBait(t *testing.T) {
	g, bait, _ := fishingSetup(t, WithCastScale(0))
	g.Rand = newScriptedRand([]float64{0.0, 0.99})

	res, err := g.Fish(context.Background(), 1, "elite_rod", bait.ID)
	require.NoError(t, err)
	assert.True(t, res.BaitSaved)
	assert.False(t, res.Bite)
	assert.Nil(t, res.Fish)
	assert.True(t, entryExists(t, g, bait.ID))
}

func TestFishValidation(t *testing.T) {
	g, bait, slept := fishingSetup(t)
	ctx := context.Background()
	locked := giveEntry(t, g, 1, models.InventoryEntry{Locked: true})

	_, err := g.Fish(ctx, 1, "basic_rod", bait.ID)
	assert.Equal(t, "You do not own that rod", err.Error())

	_, err = g.Fish(ctx, 1, "elite_rod", 9999)
	assert.Equal(t, "Bait isopod not found", err.Error())

	_, err = g.Fish(ctx, 1, "elite_rod", locked.ID)
	assert.True(t, IsKind(err, KindLocked))

	assert.Empty(t, *slept, "rejected casts never wait")
}

func TestFishRevalidatesAfterCast(t *testing.T) {
	var g *GameService
	var baitID uint
	g, bait, _ := fishingSetup(t, WithSleep(func(time.Duration) {
		// The bait is sold while the line is out.
		require.NoError(t, g.DB.Delete(&models.InventoryEntry{}, baitID).Error)
	}))
	baitID = bait.ID

	_, err := g.Fish(context.Background(), 1, "elite_rod", bait.ID)
	assert.Equal(t, "Bait isopod not found", err.Error())
}
