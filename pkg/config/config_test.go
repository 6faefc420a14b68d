package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, 10, cfg.DBMaxIdleConns)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)

	assert.Equal(t, 600*time.Millisecond, cfg.PlayerFetchDelay)
	assert.Equal(t, 100, cfg.InsertBatchSize)
	assert.Equal(t, 4.0, cfg.MinPrice)
	assert.Equal(t, 0.5, cfg.PriceStep)
	assert.Equal(t, 1.3, cfg.StretchExponent)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("MIN_PRICE", "5.0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.DBMaxOpenConns)
	assert.Equal(t, 5.0, cfg.MinPrice)
}

func TestBudgetDerivations(t *testing.T) {
	cfg := &Config{TotalBudget: 100, SquadSize: 13, MinPrice: 4.0}
	assert.InDelta(t, 100.0/13.0, cfg.AvgBudgetPerSlot(), 1e-9)
	assert.InDelta(t, 100.0/13.0-4.0, cfg.TargetMeanAboveFloor(), 1e-9)

	zero := &Config{}
	assert.Equal(t, 0.0, zero.AvgBudgetPerSlot())
}
