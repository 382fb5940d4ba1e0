package services

import (
	"context"
	"testing"
	"time"

	"isopod-exchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChat = int64(-100)

func TestSimulateBattleDeterministic(t *testing.T) {
	a := Fighter{Owner: "alice", Name: "A", HP: 60, Attack: 9, Moves: []models.Move{{Name: "Shell Bash", Power: 9}, {Name: "Dust Kick", Power: 7}}}
	b := Fighter{Owner: "bob", Name: "B", HP: 55, Attack: 10, Moves: []models.Move{{Name: "Claw Snap", Power: 10}}}

	first := SimulateBattle(NewSeededRand(5), a, b, 20)
	second := SimulateBattle(NewSeededRand(5), a, b, 20)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Rounds)
	assert.LessOrEqual(t, len(first.Rounds), 20)

	for _, rd := range first.Rounds {
		assert.GreaterOrEqual(t, rd.DmgA, 1)
		assert.GreaterOrEqual(t, rd.DmgB, 1)
		assert.GreaterOrEqual(t, rd.HPA, 0)
		assert.GreaterOrEqual(t, rd.HPB, 0)
	}
}

func TestSimulateBattleOutcomes(t *testing.T) {
	strong := Fighter{Owner: "alice", Name: "Big", HP: 500, Attack: 80, Moves: []models.Move{{Name: "Shell Bash", Power: 80}}}
	weak := Fighter{Owner: "bob", Name: "Small", HP: 10, Attack: 1}

	out := SimulateBattle(NewSeededRand(1), strong, weak, 20)
	assert.True(t, out.ChallengerWins)
	assert.Len(t, out.Rounds, 1)
	assert.Zero(t, out.HPB)
	assert.Equal(t, "Tackle", out.Rounds[0].MoveB, "empty moveset falls back to a tackle")

	out = SimulateBattle(NewSeededRand(1), weak, strong, 20)
	assert.False(t, out.ChallengerWins)

	tanks := Fighter{HP: 1000, Attack: 1, Moves: []models.Move{{Name: "Dust Kick", Power: 1}}}
	out = SimulateBattle(NewSeededRand(1), tanks, tanks, 3)
	assert.Len(t, out.Rounds, 3, "stops at the round cap")
}

func TestDealtAppliesDefense(t *testing.T) {
	// IntN(5)=2 makes the spread zero.
	assert.Equal(t, 5, dealt(newScriptedRand(nil, 2), models.Move{Power: 10}, 0.5))
	assert.Equal(t, 10, dealt(newScriptedRand(nil, 2), models.Move{Power: 10}, 0))
	assert.Equal(t, 1, dealt(newScriptedRand(nil, 0), models.Move{Power: 1}, 0.9))
}

func setupBattle(t *testing.T) (*GameService, *testClock, *models.InventoryEntry, *models.InventoryEntry) {
	t.Helper()
	g, clock := newTestGame(t)
	seedUser(t, g, 1, "alice", 0)
	seedUser(t, g, 2, "bob", 0)
	champ := giveEntry(t, g, 1, models.InventoryEntry{HP: 500, Attack: 80, Moves: models.Moveset{{Name: "Shell Bash", Power: 80}}})
	runt := giveEntry(t, g, 2, models.InventoryEntry{HP: 10, Attack: 1, Moves: models.Moveset{{Name: "Dust Kick", Power: 1}}})
	return g, clock, champ, runt
}

func challenge(t *testing.T, g *GameService, entryID uint) *Challenge {
	t.Helper()
	c, err := g.ChallengeBattle(context.Background(), ChallengeRequest{
		ChallengerID: 1, ChallengerName: "alice", TargetUsername: "@Bob",
		EntryID: entryID, ChatID: testChat, GroupChat: true,
	})
	require.NoError(t, err)
	return c
}

func battleStatus(t *testing.T, g *GameService, id uint) models.ContestStatus {
	t.Helper()
	var pb models.PendingBattle
	require.NoError(t, g.DB.First(&pb, id).Error)
	return pb.Status
}

func TestBattleFlow(t *testing.T) {
	g, _, champ, runt := setupBattle(t)
	ctx := context.Background()

	c := challenge(t, g, champ.ID)
	assert.EqualValues(t, 2, c.Target.ID)
	require.Len(t, c.TargetInventory, 1)

	report, err := g.AcceptBattle(ctx, AcceptRequest{TargetID: 2, TargetName: "bob", EntryID: runt.ID, ChatID: testChat, GroupChat: true})
	require.NoError(t, err)
	assert.Equal(t, "alice", report.Winner)
	assert.Equal(t, "bob", report.Loser)
	assert.GreaterOrEqual(t, report.Reward, int64(50))
	assert.LessOrEqual(t, report.Reward, int64(120))
	assert.False(t, report.SafetyNetUsed)

	assert.Equal(t, report.Reward, loadTestUser(t, g, 1).Money)
	assert.False(t, entryExists(t, g, runt.ID), "loser's isopod is removed")
	assert.True(t, entryExists(t, g, champ.ID))
	assert.Equal(t, models.ContestCompleted, battleStatus(t, g, c.ID))

	_, err = g.AcceptBattle(ctx, AcceptRequest{TargetID: 2, EntryID: runt.ID, ChatID: testChat, GroupChat: true})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestBattleSafetyNet(t *testing.T) {
	g, clock, champ, runt := setupBattle(t)
	require.NoError(t, g.Effect.Set(g.DB, 2, models.KindSafetyNet, Marker{}, 0, clock.Now()))
	challenge(t, g, champ.ID)

	report, err := g.AcceptBattle(context.Background(), AcceptRequest{TargetID: 2, EntryID: runt.ID, ChatID: testChat, GroupChat: true})
	require.NoError(t, err)
	assert.True(t, report.SafetyNetUsed)
	assert.True(t, entryExists(t, g, runt.ID))

	_, ok, err := g.Effect.Get(g.DB, 2, models.KindSafetyNet, clock.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBattleLockedEntryFailsOffer(t *testing.T) {
	g, _, champ, runt := setupBattle(t)
	ctx := context.Background()
	c := challenge(t, g, champ.ID)
	require.NoError(t, g.SetLocked(ctx, 2, runt.ID, true))

	_, err := g.AcceptBattle(ctx, AcceptRequest{TargetID: 2, EntryID: runt.ID, ChatID: testChat, GroupChat: true})
	require.Error(t, err)
	assert.Equal(t, "🔒 Locked isopods cannot compete", err.Error())
	assert.Equal(t, models.ContestFailed, battleStatus(t, g, c.ID))
	assert.Zero(t, loadTestUser(t, g, 1).Money)
	assert.True(t, entryExists(t, g, runt.ID))
	assert.True(t, entryExists(t, g, champ.ID))
}

func TestChallengeBattleRejections(t *testing.T) {
	g, _, champ, _ := setupBattle(t)
	ctx := context.Background()

	_, err := g.ChallengeBattle(ctx, ChallengeRequest{ChallengerID: 1, TargetUsername: "bob", EntryID: champ.ID})
	assert.True(t, IsKind(err, KindValidation), "private chat")

	_, err = g.ChallengeBattle(ctx, ChallengeRequest{ChallengerID: 1, TargetUsername: "alice", EntryID: champ.ID, GroupChat: true})
	assert.True(t, IsKind(err, KindValidation), "self challenge")

	_, err = g.ChallengeBattle(ctx, ChallengeRequest{ChallengerID: 1, TargetUsername: "nobody", EntryID: champ.ID, GroupChat: true})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = g.ChallengeBattle(ctx, ChallengeRequest{ChallengerID: 1, TargetUsername: "bob", EntryID: 9999, GroupChat: true})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestDeclineAndExpireBattles(t *testing.T) {
	g, clock, champ, runt := setupBattle(t)
	ctx := context.Background()

	c := challenge(t, g, champ.ID)
	assert.Error(t, g.DeclineBattle(ctx, 2, 555, true), "wrong chat")
	require.NoError(t, g.DeclineBattle(ctx, 2, testChat, true))
	assert.Equal(t, models.ContestDeclined, battleStatus(t, g, c.ID))

	c = challenge(t, g, champ.ID)
	clock.Advance(23 * time.Hour)
	n, err := g.ExpireOffers(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(2 * time.Hour)
	n, err = g.ExpireOffers(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, models.ContestExpired, battleStatus(t, g, c.ID))

	_, err = g.AcceptBattle(ctx, AcceptRequest{TargetID: 2, EntryID: runt.ID, ChatID: testChat, GroupChat: true})
	assert.True(t, IsKind(err, KindNotFound))
}
