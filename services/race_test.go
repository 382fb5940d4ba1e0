package services

import (
	"context"
	"testing"

	"isopod-exchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRaceScripted(t *testing.T) {
	out := ResolveRace(newScriptedRand([]float64{7.0 / 9, 2.0 / 9}), 0, 0)
	assert.InDelta(t, 8.0, out.SpeedA, 1e-9)
	assert.InDelta(t, 3.0, out.SpeedB, 1e-9)
	assert.True(t, out.ChallengerWins)

	out = ResolveRace(newScriptedRand([]float64{2.0 / 9, 7.0 / 9}), 0.2, 0)
	assert.InDelta(t, 3.6, out.SpeedA, 1e-9)
	assert.False(t, out.ChallengerWins)

	// Exact tie falls to a coin flip.
	out = ResolveRace(newScriptedRand([]float64{0.5, 0.5, 0.1}), 0, 0)
	assert.True(t, out.ChallengerWins)
	out = ResolveRace(newScriptedRand([]float64{0.5, 0.5, 0.9}), 0, 0)
	assert.False(t, out.ChallengerWins)
}

func setupRace(t *testing.T, aliceMoney, bobMoney int64) (*GameService, *models.InventoryEntry, *models.InventoryEntry) {
	t.Helper()
	g, _ := newTestGame(t)
	seedUser(t, g, 1, "alice", aliceMoney)
	seedUser(t, g, 2, "bob", bobMoney)
	return g, giveEntry(t, g, 1, models.InventoryEntry{}), giveEntry(t, g, 2, models.InventoryEntry{})
}

func raceChallenge(g *GameService, entryID uint, bet int64) (*Challenge, error) {
	return g.ChallengeRace(context.Background(), ChallengeRequest{
		ChallengerID: 1, ChallengerName: "alice", TargetUsername: "bob",
		EntryID: entryID, Bet: bet, ChatID: testChat, GroupChat: true,
	})
}

func raceStatus(t *testing.T, g *GameService, id uint) models.ContestStatus {
	t.Helper()
	var pr models.PendingRace
	require.NoError(t, g.DB.First(&pr, id).Error)
	return pr.Status
}

func TestRaceFlowMovesTheBet(t *testing.T) {
	g, a, b := setupRace(t, 500, 500)
	c, err := raceChallenge(g, a.ID, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 100, c.Bet)

	g.Rand = newScriptedRand([]float64{7.0 / 9, 2.0 / 9})
	report, err := g.AcceptRace(context.Background(), AcceptRequest{TargetID: 2, TargetName: "bob", EntryID: b.ID, ChatID: testChat, GroupChat: true})
	require.NoError(t, err)
	assert.Equal(t, "alice", report.Winner)
	assert.EqualValues(t, 100, report.Bet)

	assert.EqualValues(t, 600, loadTestUser(t, g, 1).Money)
	assert.EqualValues(t, 400, loadTestUser(t, g, 2).Money)
	assert.Equal(t, models.ContestCompleted, raceStatus(t, g, c.ID))
	assert.True(t, entryExists(t, g, a.ID), "races never remove isopods")
	assert.True(t, entryExists(t, g, b.ID))
}

func TestRaceSpeedBoostConsumed(t *testing.T) {
	g, a, b := setupRace(t, 500, 500)
	_, err := raceChallenge(g, a.ID, 50)
	require.NoError(t, err)
	require.NoError(t, g.Effect.Set(g.DB, 2, models.KindRaceSpeedBoost, Boost{Fraction: 0.2}, 0, g.Now()))

	g.Rand = newScriptedRand([]float64{0.5, 0.5})
	report, err := g.AcceptRace(context.Background(), AcceptRequest{TargetID: 2, EntryID: b.ID, ChatID: testChat, GroupChat: true})
	require.NoError(t, err)
	assert.InDelta(t, 5.5*1.2, report.Outcome.SpeedB, 1e-9)
	assert.Equal(t, "bob", report.Winner)

	_, ok, err := g.Effect.Get(g.DB, 2, models.KindRaceSpeedBoost, g.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRaceRejections(t *testing.T) {
	g, a, b := setupRace(t, 50, 20)
	ctx := context.Background()

	_, err := raceChallenge(g, a.ID, 0)
	assert.True(t, IsKind(err, KindValidation))

	_, err = raceChallenge(g, a.ID, 80)
	require.Error(t, err)
	assert.Equal(t, "💸 Need 80 iso$ to race", err.Error())

	c, err := raceChallenge(g, a.ID, 40)
	require.NoError(t, err)
	_, err = g.AcceptRace(ctx, AcceptRequest{TargetID: 2, EntryID: b.ID, ChatID: testChat, GroupChat: true})
	require.Error(t, err)
	assert.Equal(t, "💸 Need 40 iso$ to accept", err.Error())
	assert.Equal(t, models.ContestFailed, raceStatus(t, g, c.ID))
	assert.EqualValues(t, 50, loadTestUser(t, g, 1).Money)
	assert.EqualValues(t, 20, loadTestUser(t, g, 2).Money)

	c, err = raceChallenge(g, a.ID, 10)
	require.NoError(t, err)
	require.NoError(t, g.DeclineRace(ctx, 2, testChat, true))
	assert.Equal(t, models.ContestDeclined, raceStatus(t, g, c.ID))
}

func TestRaceLoserMayGoNegative(t *testing.T) {
	g, a, b := setupRace(t, 100, 100)
	_, err := raceChallenge(g, a.ID, 100)
	require.NoError(t, err)
	require.NoError(t, g.DB.Model(&models.User{}).Where("id = ?", 1).Update("money", 30).Error)

	g.Rand = newScriptedRand([]float64{0.0, 1.0 - 1e-12})
	report, err := g.AcceptRace(context.Background(), AcceptRequest{TargetID: 2, EntryID: b.ID, ChatID: testChat, GroupChat: true})
	require.NoError(t, err)
	assert.Equal(t, "bob", report.Winner)
	assert.EqualValues(t, -70, loadTestUser(t, g, 1).Money)
	assert.EqualValues(t, 200, loadTestUser(t, g, 2).Money)
}
