package services

import (
	"context"
	"testing"
	"time"

	"isopod-exchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useItem(g *GameService, token, target string, creature uint) (*UseResult, error) {
	return g.UseItem(context.Background(), UseRequest{
		UserID: 1, Username: "alice", Token: token,
		TargetUsername: target, CreatureID: creature,
	})
}

func TestUseChargeItems(t *testing.T) {
	g, clock := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	setCharges(t, g, 1, 5, clock.Now())
	giveItem(t, g, 1, "energy_drink", 1)
	giveItem(t, g, 1, "double_roll", 2)

	res, err := useItem(g, "energy_drink", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "⚡ +1 charge(s)", res.Text)
	assert.Equal(t, 6, loadTestUser(t, g, 1).Charges, "energy drinks overcharge")
	assert.Zero(t, itemQty(t, g, 1, "energy_drink"))

	_, err = useItem(g, "double_roll", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, loadTestUser(t, g, 1).Charges, "clamped to the overcharge cap")

	_, err = useItem(g, "energy_drink", "", 0)
	assert.Equal(t, "No item", err.Error())
}

func TestUseEffectItems(t *testing.T) {
	g, clock := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	for _, id := range []string{"lucky_token", "sale_voucher", "spy_drone", "iso_magnet", "safety_net"} {
		giveItem(t, g, 1, id, 1)
		_, err := useItem(g, id, "", 0)
		require.NoError(t, err, id)
	}
	now := clock.Now()

	v, ok, err := g.Effect.Get(g.DB, 1, models.KindShopDiscount, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Discount{Percent: 10, Uses: 3}, v)

	v, ok, err = g.Effect.Get(g.DB, 1, models.KindBattleDefenseBoost, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Boost{Fraction: 0.2}, v)

	for _, kind := range []models.EffectKind{models.KindGuaranteeRare, models.KindSafetyNet, models.KindItemDropBoost} {
		_, ok, err := g.Effect.Get(g.DB, 1, kind, now)
		require.NoError(t, err)
		assert.True(t, ok, kind)
	}

	_, ok, err = g.Effect.Get(g.DB, 1, models.KindItemDropBoost, now.Add(31*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "magnet wears off")
}

func TestUseItemRejections(t *testing.T) {
	g, _ := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	seedUser(t, g, 2, "bob", 100)
	giveItem(t, g, 1, "fusion_pod", 1)
	giveItem(t, g, 1, "bite_bug", 1)
	giveItem(t, g, 1, "iso_candy", 1)

	_, err := useItem(g, "fusion_pod", "", 0)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, 1, itemQty(t, g, 1, "fusion_pod"))

	_, err = useItem(g, "bite_bug", "", 0)
	assert.Equal(t, "Target required: /use bite_bug @user", err.Error())
	_, err = useItem(g, "bite_bug", "@alice", 0)
	assert.Equal(t, "You cannot target yourself", err.Error())
	_, err = useItem(g, "bite_bug", "@ghost", 0)
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, 1, itemQty(t, g, 1, "bite_bug"))

	_, err = useItem(g, "iso_candy", "", 0)
	assert.True(t, IsKind(err, KindValidation))
	_, err = useItem(g, "iso_candy", "", 9999)
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, 1, itemQty(t, g, 1, "iso_candy"), "failed effect keeps the item")

	_, err = useItem(g, "rocket", "", 0)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestBiteBug(t *testing.T) {
	tests := []struct {
		name      string
		victim    int64
		pct       int
		wantSteal int64
	}{
		{name: "five percent", victim: 1000, pct: 0, wantSteal: 50},
		{name: "capped at 100", victim: 1000, pct: 10, wantSteal: 100},
		{name: "floor of five", victim: 40, pct: 5, wantSteal: 5},
		{name: "never more than held", victim: 3, pct: 10, wantSteal: 3},
		{name: "broke target", victim: 0, pct: 0, wantSteal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGame(t)
			seedUser(t, g, 1, "alice", 10)
			seedUser(t, g, 2, "bob", tt.victim)
			giveItem(t, g, 1, "bite_bug", 1)
			g.Rand = newScriptedRand(nil, tt.pct)

			_, err := useItem(g, "bite_bug", "bob", 0)
			require.NoError(t, err)
			assert.Equal(t, 10+tt.wantSteal, loadTestUser(t, g, 1).Money)
			assert.Equal(t, tt.victim-tt.wantSteal, loadTestUser(t, g, 2).Money)
			assert.Zero(t, itemQty(t, g, 1, "bite_bug"))
		})
	}
}

func TestChargeDrainItems(t *testing.T) {
	g, clock := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	seedUser(t, g, 2, "bob", 0)
	setCharges(t, g, 2, 3, clock.Now())
	giveItem(t, g, 1, "sticky_goo", 1)
	giveItem(t, g, 1, "fake_coupon", 2)

	_, err := useItem(g, "sticky_goo", "bob", 0)
	require.NoError(t, err)
	bob := loadTestUser(t, g, 2)
	assert.Equal(t, 2, bob.Charges)
	assert.True(t, bob.ChargeAnchor.Equal(clock.Now().Add(5*time.Minute)))

	_, err = useItem(g, "fake_coupon", "bob", 0)
	require.NoError(t, err)
	bob = loadTestUser(t, g, 2)
	assert.Equal(t, 1, bob.Charges)
	assert.True(t, bob.ChargeAnchor.Equal(clock.Now().Add(5*time.Minute)), "coupon leaves the anchor alone")

	setCharges(t, g, 2, 0, clock.Now().Add(time.Hour))
	res, err := useItem(g, "fake_coupon", "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, "🎟️ @bob has no charges", res.Text)
	assert.Zero(t, itemQty(t, g, 1, "fake_coupon"))
}

func TestSwapToken(t *testing.T) {
	g, _ := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	seedUser(t, g, 2, "bob", 0)
	giveItem(t, g, 1, "swap_token", 2)
	mine := giveEntry(t, g, 1, models.InventoryEntry{Name: "Mine"})
	giveEntry(t, g, 1, models.InventoryEntry{Name: "Kept", Locked: true})

	res, err := useItem(g, "swap_token", "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, "Swap failed (one side has no unlocked isopods)", res.Text)

	theirs := giveEntry(t, g, 2, models.InventoryEntry{Name: "Theirs"})
	_, err = useItem(g, "swap_token", "bob", 0)
	require.NoError(t, err)

	var gave, got models.InventoryEntry
	require.NoError(t, g.DB.First(&gave, mine.ID).Error)
	assert.EqualValues(t, 2, gave.UserID)
	require.NoError(t, g.DB.First(&got, theirs.ID).Error)
	assert.EqualValues(t, 1, got.UserID)
}

func TestMarketItems(t *testing.T) {
	g, _ := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	giveItem(t, g, 1, "market_refresh", 1)
	giveItem(t, g, 1, "market_sabotage", 1)

	res, err := useItem(g, "market_refresh", "", 0)
	require.NoError(t, err)
	assert.True(t, res.MarketRefreshed)

	res, err = useItem(g, "market_sabotage", "", 0)
	require.NoError(t, err)
	assert.True(t, res.MarketRefreshed)

	regenerated, err := g.EnsureMarketFresh(context.Background())
	require.NoError(t, err)
	assert.False(t, regenerated, "item regeneration resets the market clock")
}

func TestApplyXP(t *testing.T) {
	r := DefaultRules
	e := models.InventoryEntry{Level: 1, XP: 90, HP: 30, Attack: 6}

	assert.Equal(t, 2, applyXP(&e, 115, r))
	assert.Equal(t, 3, e.Level)
	assert.Equal(t, 5, e.XP)
	assert.Equal(t, 34, e.HP)
	assert.Equal(t, 8, e.Attack)

	assert.Zero(t, applyXP(&e, 10, r))
	assert.Equal(t, 15, e.XP)
}

func TestIsoCandy(t *testing.T) {
	g, _ := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	e := giveEntry(t, g, 1, models.InventoryEntry{HP: 30, Attack: 6})
	giveItem(t, g, 1, "iso_candy", 4)

	for range 3 {
		res, err := useItem(g, "iso_candy", "", e.ID)
		require.NoError(t, err)
		assert.Contains(t, res.Text, "XP +25")
	}
	res, err := useItem(g, "iso_candy", "", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "🍬 1 level(s) gained! Lv2 ❤️ 32 ⚔️ 7", res.Text)
}
