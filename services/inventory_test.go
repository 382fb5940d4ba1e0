package services

import (
	"context"
	"testing"

	"isopod-exchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellEntry(t *testing.T) {
	g, _ := newTestGame(t)
	ctx := context.Background()
	seedUser(t, g, 1, "alice", 10)
	e := giveEntry(t, g, 1, models.InventoryEntry{Price: 42})
	locked := giveEntry(t, g, 1, models.InventoryEntry{Price: 99, Locked: true})
	rainbow := giveEntry(t, g, 1, models.InventoryEntry{Price: 999, Color: "Rainbow", Tier: models.TierLegendary})

	price, err := g.SellEntry(ctx, 1, "alice", e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 42, price)
	assert.EqualValues(t, 52, loadTestUser(t, g, 1).Money)
	assert.False(t, entryExists(t, g, e.ID))

	_, err = g.SellEntry(ctx, 1, "alice", e.ID)
	assert.Equal(t, "❌ Invalid/not yours", err.Error())

	_, err = g.SellEntry(ctx, 1, "alice", locked.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindLocked))
	assert.Equal(t, "🔒 That isopod is locked. Use /unlock <ID> first.", err.Error())

	_, err = g.SellEntry(ctx, 1, "alice", rainbow.ID)
	assert.Equal(t, "🌈 Legendary rainbow isopods cannot be sold.", err.Error())

	assert.EqualValues(t, 52, loadTestUser(t, g, 1).Money)
	assert.True(t, entryExists(t, g, locked.ID))
	assert.True(t, entryExists(t, g, rainbow.ID))

	require.NoError(t, g.SetLocked(ctx, 1, locked.ID, false))
	price, err = g.SellEntry(ctx, 1, "alice", locked.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 99, price)
}

func TestSellAll(t *testing.T) {
	g, _ := newTestGame(t)
	ctx := context.Background()
	seedUser(t, g, 1, "alice", 0)
	giveEntry(t, g, 1, models.InventoryEntry{Tier: models.TierCommon, Price: 10})
	giveEntry(t, g, 1, models.InventoryEntry{Tier: models.TierCommon, Price: 15})
	rare := giveEntry(t, g, 1, models.InventoryEntry{Tier: models.TierRare, Price: 60})
	kept := giveEntry(t, g, 1, models.InventoryEntry{Tier: models.TierCommon, Price: 20, Locked: true})
	rainbow := giveEntry(t, g, 1, models.InventoryEntry{Tier: models.TierLegendary, Price: 900, Color: models.ColorRainbow})

	common := models.TierCommon
	n, total, err := g.SellAll(ctx, 1, "alice", &common)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 25, total)

	n, total, err = g.SellAll(ctx, 1, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 60, total)
	assert.False(t, entryExists(t, g, rare.ID))

	_, _, err = g.SellAll(ctx, 1, "alice", nil)
	assert.True(t, IsKind(err, KindNotFound))

	assert.EqualValues(t, 85, loadTestUser(t, g, 1).Money)
	assert.True(t, entryExists(t, g, kept.ID))
	assert.True(t, entryExists(t, g, rainbow.ID))
}

func TestInventoryView(t *testing.T) {
	g, clock := newTestGame(t)
	ctx := context.Background()
	seedUser(t, g, 1, "alice", 0)
	for i := range 12 {
		clock.Advance(1)
		giveEntry(t, g, 1, models.InventoryEntry{Price: int64(i + 1)})
	}

	view, err := g.Inventory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Recent, 10)
	assert.EqualValues(t, 12, view.Recent[0].Price, "newest first")
	assert.EqualValues(t, 78, view.FullTotal)
	assert.EqualValues(t, 78-1-2, view.RecentTotal)

	empty, err := g.Inventory(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, empty.Recent)
	assert.Zero(t, empty.FullTotal)
}

func TestSetLockedOwnership(t *testing.T) {
	g, _ := newTestGame(t)
	ctx := context.Background()
	seedUser(t, g, 1, "alice", 0)
	seedUser(t, g, 2, "bob", 0)
	e := giveEntry(t, g, 1, models.InventoryEntry{})

	assert.True(t, IsKind(g.SetLocked(ctx, 2, e.ID, true), KindNotFound))
	require.NoError(t, g.SetLocked(ctx, 1, e.ID, true))

	var got models.InventoryEntry
	require.NoError(t, g.DB.First(&got, e.ID).Error)
	assert.True(t, got.Locked)
}
