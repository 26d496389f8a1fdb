package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonsec/vantage/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, 5*time.Second, cfg.Poller().Interval)
	assert.Equal(t, 60, cfg.Poller().MaxAttempts)
	assert.Equal(t, "reports", cfg.Reports().OutputDir)
	assert.Equal(t, 4, cfg.Enhancer().MaxConcurrent)
	assert.InDelta(t, 2.0, cfg.Enhancer().RequestsPerSecond, 0.001)
	assert.False(t, cfg.Provider().Configured())
	assert.Contains(t, cfg.Provider().VisionModels, "gemini-2.0-flash")
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("poller.interval", "2s")
	v.Set("poller.max_attempts", 10)
	v.Set("provider.name", "gemini")
	v.Set("provider.api_key", "secret")
	v.Set("engine.base_url", "http://engine:9000")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Poller().Interval)
	assert.Equal(t, 10, cfg.Poller().MaxAttempts)
	assert.True(t, cfg.Provider().Configured())
	assert.Equal(t, "http://engine:9000", cfg.Engine().BaseURL)
}

func TestLoad_RejectsInvalidBounds(t *testing.T) {
	cases := map[string]any{
		"poller.interval":         "0s",
		"poller.max_attempts":     0,
		"enhancer.max_concurrent": -1,
	}
	for key, value := range cases {
		v := viper.New()
		config.SetDefaults(v)
		v.Set(key, value)

		_, err := config.Load(v)
		assert.Error(t, err, "expected %s=%v to be rejected", key, value)
	}
}

func TestSetters(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetReportsOutputDir("/tmp/out")
	cfg.SetPollerInterval(time.Second)
	cfg.SetPollerMaxAttempts(3)

	assert.Equal(t, "/tmp/out", cfg.Reports().OutputDir)
	assert.Equal(t, time.Second, cfg.Poller().Interval)
	assert.Equal(t, 3, cfg.Poller().MaxAttempts)
}
