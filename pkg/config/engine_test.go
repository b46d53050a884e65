package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineConfigFromEnvDefaults(t *testing.T) {
	cfg, err := LoadEngineConfigFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.UseLLMForQuerySelection)
	assert.False(t, cfg.UseLLMForNarrative)
	assert.Equal(t, 900, cfg.CacheTTLSeconds)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 180, cfg.RequestDeadlineSeconds)
	assert.Equal(t, 3, cfg.QueryConcurrency)
	assert.False(t, cfg.AmbiguousBestGuess)
}

func TestLoadEngineConfigFromEnvOverride(t *testing.T) {
	t.Setenv("QUERY_CONCURRENCY", "7")
	t.Setenv("AMBIGUOUS_BEST_GUESS", "true")

	cfg, err := LoadEngineConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.QueryConcurrency)
	assert.True(t, cfg.AmbiguousBestGuess)
}

func TestEngineConfigValidate(t *testing.T) {
	cfg := EngineConfig{QueryConcurrency: 0, RequestDeadlineSeconds: 1}
	assert.Error(t, cfg.Validate())

	cfg.QueryConcurrency = 1
	assert.NoError(t, cfg.Validate())
}
