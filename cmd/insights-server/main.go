// Command insights-server runs the conversational analytics orchestration
// engine: an HTTP API that classifies a natural-language question, fetches
// the data it needs from a read-only catalog of parameterized SQL queries,
// and returns a dashboard specification plus narrative.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/conversa-analytics/insights-engine/pkg/api"
	"github.com/conversa-analytics/insights-engine/pkg/classify"
	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/database"
	"github.com/conversa-analytics/insights-engine/pkg/dataagent"
	"github.com/conversa-analytics/insights-engine/pkg/llmcap"
	"github.com/conversa-analytics/insights-engine/pkg/memory"
	"github.com/conversa-analytics/insights-engine/pkg/orchestrator"
	"github.com/conversa-analytics/insights-engine/pkg/presentation"
	"github.com/conversa-analytics/insights-engine/pkg/querydb"
	"github.com/conversa-analytics/insights-engine/pkg/resultcache"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	httpAddr := flag.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Pool.Close()
	slog.Info("connected to postgres and applied migrations")

	llm := llmcap.New(cfg.Engine.LLMModel)

	executor := querydb.NewExecutor(dbClient.Pool, cfg.CatalogRegistry)
	cache := resultcache.New(time.Duration(cfg.Engine.CacheTTLSeconds) * time.Second)

	var querySelector dataagent.LLMQuerySelector
	if cfg.Engine.UseLLMForQuerySelection {
		querySelector = llm
	}
	dataAgent := dataagent.New(cfg.CatalogRegistry, cache, executor, querySelector, cfg.Engine.QueryConcurrency)

	classifier := classify.New(cfg.Classifier, llm, cfg.Engine.AmbiguousBestGuess)

	var narrative presentation.NarrativeGenerator
	if cfg.Engine.UseLLMForNarrative {
		narrative = llm
	}
	presenter := presentation.New(narrative, cfg.Engine.UseLLMForNarrative, false)

	deadline := time.Duration(cfg.Engine.RequestDeadlineSeconds) * time.Second
	orch := orchestrator.New(classifier, dataAgent, presenter, llm, deadline)

	mem := memory.New(memory.DefaultRingSize)
	// MemoryDSN is read as an enable/disable switch here, not a literal DSN:
	// persistence always goes through the one pool dbClient already opened.
	if cfg.Engine.MemoryDSN != "" {
		mem = mem.WithStore(memory.NewPgStore(dbClient.Pool), func(threadID string, err error) {
			slog.Warn("chat memory persistence failed", "thread_id", threadID, "error", err)
		})
	}

	// Traces need to outlive the request that produced them, long enough for
	// a client to poll GET /api/sessions/:trace_id after the stream ends.
	const traceRetention = 1 * time.Hour
	traceCache := resultcache.New(traceRetention)

	server := api.NewServer(cfg.Engine, dbClient, cfg.CatalogRegistry, orch, mem, traceCache)

	slog.Info("starting insights-server", "addr", *httpAddr, "config_dir", *configDir)
	if err := server.Start(*httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
