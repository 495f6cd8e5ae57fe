package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadLibraryConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LOAN_PERIOD_DAYS", "")
		t.Setenv("FINE_DAILY_RATE_CENTS", "")
		cfg := LoadLibraryConfig()
		assert.Equal(t, 14*24*time.Hour, cfg.LoanPeriod)
		assert.Equal(t, int64(100), cfg.FineDailyRateCents)
	})
	t.Run("overrides", func(t *testing.T) {
		t.Setenv("LOAN_PERIOD_DAYS", "21")
		t.Setenv("FINE_DAILY_RATE_CENTS", "25")
		cfg := LoadLibraryConfig()
		assert.Equal(t, 21*24*time.Hour, cfg.LoanPeriod)
		assert.Equal(t, int64(25), cfg.FineDailyRateCents)
	})
	t.Run("non_positive_falls_back", func(t *testing.T) {
		t.Setenv("LOAN_PERIOD_DAYS", "0")
		t.Setenv("FINE_DAILY_RATE_CENTS", "-5")
		cfg := LoadLibraryConfig()
		assert.Equal(t, 14*24*time.Hour, cfg.LoanPeriod)
		assert.Equal(t, int64(100), cfg.FineDailyRateCents)
	})
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, time.Minute, cfg.TTL)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example ,,https://b.example"))
	assert.Nil(t, splitList(""))
}
