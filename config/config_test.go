package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, ":5200", cfg.ListenAddr)
	assert.True(t, cfg.AllowNegativeBalance)
	assert.Equal(t, 1.0, cfg.FishingCastScale)
	assert.Equal(t, 10*time.Minute, cfg.JanitorInterval)
	assert.Equal(t, 24*time.Hour, cfg.OfferTTL)
	assert.Empty(t, cfg.R2Bucket)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("ALLOW_NEGATIVE_BALANCE", "false")
	t.Setenv("FISHING_CAST_SCALE", "0")
	t.Setenv("OFFER_TTL", "90m")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.False(t, cfg.AllowNegativeBalance)
	assert.Zero(t, cfg.FishingCastScale)
	assert.Equal(t, 90*time.Minute, cfg.OfferTTL)
}

func TestParseRequiresGatewayToken(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("GAME_SERVICE_TOKEN", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Parse()
	assert.ErrorContains(t, err, "unsupported DATABASE_DRIVER")
}
