package api

import (
	"net/http/httptest"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/classify"
	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/dataagent"
	"github.com/conversa-analytics/insights-engine/pkg/memory"
	"github.com/conversa-analytics/insights-engine/pkg/orchestrator"
	"github.com/conversa-analytics/insights-engine/pkg/presentation"
	"github.com/conversa-analytics/insights-engine/pkg/querydb"
	"github.com/conversa-analytics/insights-engine/pkg/resultcache"
)

// newTestServer builds a Server wired against an empty catalog and no LLM,
// enough to exercise the conversational fast path (spec.md §4.4's
// deterministic stage 1) end to end without a database or network call.
func newTestServer() *Server {
	catalog := config.NewCatalogRegistry(map[string]*config.QueryEntry{})
	cache := resultcache.New(time.Minute)
	executor := querydb.NewExecutor(nil, catalog)
	dataAgent := dataagent.New(catalog, cache, executor, nil, 1)

	classifierCfg := &config.ClassifierConfig{
		ConversationalPatterns: []string{"hello", "hi", "thanks"},
	}
	classifier := classify.New(classifierCfg, nil, false)
	presenter := presentation.New(nil, false, false)

	orch := orchestrator.New(classifier, dataAgent, presenter, nil, 5*time.Second)

	cfg := config.EngineConfig{MaxRetries: 3, RequestDeadlineSeconds: 5}
	mem := memory.New(10)
	traceCache := resultcache.New(time.Minute)

	return NewServer(cfg, nil, catalog, orch, mem, traceCache)
}

// flushRecorder adds the http.Flusher method httptest.ResponseRecorder
// doesn't implement, so the SSE handler (which requires a flushable
// ResponseWriter) can be exercised in a unit test.
type flushRecorder struct {
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Flush() {}
