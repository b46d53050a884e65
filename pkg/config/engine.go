package config

import (
	"fmt"
	"os"
	"strconv"
)

// EngineConfig holds the runtime tunables for the conversational analytics
// pipeline. All fields are environment-driven with sane defaults, following
// the same getEnvOrDefault convention used throughout this codebase.
type EngineConfig struct {
	UseLLMForQuerySelection bool
	UseLLMForNarrative      bool
	CacheTTLSeconds         int
	MaxRetries              int
	RequestDeadlineSeconds  int
	QueryConcurrency        int
	AmbiguousBestGuess      bool
	MemoryDSN               string
	LLMModel                string
}

// LoadEngineConfigFromEnv loads EngineConfig from the environment, applying
// production-ready defaults for anything unset.
func LoadEngineConfigFromEnv() (EngineConfig, error) {
	cacheTTL, err := strconv.Atoi(getEnvOrDefault("CACHE_TTL_SECONDS", "900"))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnvOrDefault("MAX_RETRIES", "3"))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("invalid MAX_RETRIES: %w", err)
	}
	deadline, err := strconv.Atoi(getEnvOrDefault("REQUEST_DEADLINE_SECONDS", "180"))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("invalid REQUEST_DEADLINE_SECONDS: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnvOrDefault("QUERY_CONCURRENCY", "3"))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("invalid QUERY_CONCURRENCY: %w", err)
	}

	cfg := EngineConfig{
		UseLLMForQuerySelection: getEnvBool("USE_LLM_FOR_QUERY_SELECTION", false),
		UseLLMForNarrative:      getEnvBool("USE_LLM_FOR_NARRATIVE", false),
		CacheTTLSeconds:         cacheTTL,
		MaxRetries:              maxRetries,
		RequestDeadlineSeconds:  deadline,
		QueryConcurrency:        concurrency,
		AmbiguousBestGuess:      getEnvBool("AMBIGUOUS_BEST_GUESS", false),
		MemoryDSN:               os.Getenv("MEMORY_DSN"),
		LLMModel:                getEnvOrDefault("LLM_MODEL", "claude-haiku-4-5"),
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate checks invariants on EngineConfig that must hold before the
// pipeline can run.
func (c EngineConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative")
	}
	if c.QueryConcurrency < 1 {
		return fmt.Errorf("QUERY_CONCURRENCY must be at least 1")
	}
	if c.RequestDeadlineSeconds < 1 {
		return fmt.Errorf("REQUEST_DEADLINE_SECONDS must be at least 1")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
