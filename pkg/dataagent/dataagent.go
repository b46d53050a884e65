// Package dataagent implements the Data Agent (C5): selects catalog queries
// for a question, executes them with bounded concurrency through the
// Result Cache and Query Executor, and assembles a Data Payload.
package dataagent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/conversa-analytics/insights-engine/pkg/querydb"
	"github.com/conversa-analytics/insights-engine/pkg/resultcache"
)

// MaxQueriesPerRequest is the hard cap from spec.md §4.5.
const MaxQueriesPerRequest = 3

// DateRange is the question's requested reporting window.
type DateRange struct {
	From string
	To   string
}

// Selection is what a query-selection policy (deterministic or LLM)
// produces: the query ids to run and, for each, the parameters to bind.
type Selection struct {
	QueryIDs []string
	Params   map[string]map[string]any
}

// LLMQuerySelector is the Stage 2 policy from spec.md §4.5 step 2: given the
// catalog description and the question, return a JSON-shaped query
// selection. Implementations apply their own one-shot repair pass, same as
// classify.LLMFallback.
type LLMQuerySelector interface {
	SelectQueries(ctx context.Context, question, catalogDescription string) (Selection, error)
}

// Agent is the Data Agent (C5).
type Agent struct {
	catalog     *config.CatalogRegistry
	cache       *resultcache.Cache
	executor    *querydb.Executor
	llm         LLMQuerySelector
	concurrency int
}

// New builds a Data Agent. llm may be nil, in which case query selection
// always uses the deterministic domain map.
func New(catalog *config.CatalogRegistry, cache *resultcache.Cache, executor *querydb.Executor, llm LLMQuerySelector, concurrency int) *Agent {
	if concurrency <= 0 {
		concurrency = MaxQueriesPerRequest
	}
	return &Agent{catalog: catalog, cache: cache, executor: executor, llm: llm, concurrency: concurrency}
}

// Fetch runs the full Data Agent operation: select queries, execute them,
// assemble the Data Payload. It returns the payload, the per-query
// agent_steps trace, and an error only when every selected query failed
// (models.ErrDataUnavailable) or nothing could be selected at all.
func (a *Agent) Fetch(ctx context.Context, question string, dr DateRange, chatContext string, decision models.RoutingDecision) (*models.DataPayload, []models.AgentStep, error) {
	return a.FetchExcluding(ctx, question, dr, chatContext, decision, nil)
}

// FetchExcluding behaves like Fetch but drops any query id in exclude from
// the selection, heuristic or LLM-chosen — the orchestrator's reflect step (spec.md
// §4.7) uses this to retry fetch_data without a query id that failed on the
// previous attempt.
func (a *Agent) FetchExcluding(ctx context.Context, question string, dr DateRange, chatContext string, decision models.RoutingDecision, exclude []string) (*models.DataPayload, []models.AgentStep, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	selection, source := a.selectQueries(ctx, question, dr, chatContext, decision, excluded)
	if len(selection.QueryIDs) == 0 {
		return nil, nil, models.NewStageError("data_agent", models.ErrDataUnavailable, "no queries could be selected for this question")
	}

	outcomes, steps := a.execute(ctx, selection)
	steps = append([]models.AgentStep{{
		Stage:     "data_agent.select",
		Status:    "completed",
		Timestamp: time.Now(),
		Message:   fmt.Sprintf("selected %d quer(y/ies) via %s", len(selection.QueryIDs), source),
	}}, steps...)

	succeeded := 0
	for _, o := range outcomes {
		if o.err == nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, steps, models.NewStageError("data_agent", models.ErrDataUnavailable, "all selected queries failed")
	}

	payload := assemble(outcomes)
	return payload, steps, nil
}

type queryOutcome struct {
	queryID string
	result  *querydb.Result
	err     error
}

type indexedOutcome struct {
	index   int
	outcome queryOutcome
}

// execute runs selection's queries with bounded concurrency, consulting the
// Result Cache before invoking the Query Executor (spec.md §4.5 Execution).
func (a *Agent) execute(ctx context.Context, selection Selection) ([]queryOutcome, []models.AgentStep) {
	results := make(chan indexedOutcome, len(selection.QueryIDs))
	sem := make(chan struct{}, a.concurrency)

	for i, queryID := range selection.QueryIDs {
		params := selection.Params[queryID]
		sem <- struct{}{}
		go func(idx int, id string, params map[string]any) {
			defer func() { <-sem }()
			o := a.runOne(ctx, id, params)
			results <- indexedOutcome{index: idx, outcome: o}
		}(i, queryID, params)
	}

	indexed := make([]indexedOutcome, 0, len(selection.QueryIDs))
	for range selection.QueryIDs {
		indexed = append(indexed, <-results)
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })

	outcomes := make([]queryOutcome, len(indexed))
	steps := make([]models.AgentStep, len(indexed))
	for i, io := range indexed {
		outcomes[i] = io.outcome
		status := "completed"
		detail := ""
		if io.outcome.err != nil {
			status = "failed"
			detail = io.outcome.err.Error()
		}
		steps[i] = models.AgentStep{Stage: "data_agent.query", Status: status, Timestamp: time.Now(), Message: io.outcome.queryID, Detail: detail}
	}
	return outcomes, steps
}

// runOne canonicalizes params once, up front, and derives the Result
// Cache key from that canonical map rather than the raw one — two logically
// equal parameter maps (e.g. one with an optional field left at its default,
// one with the field omitted) must canonicalize to the same query and hash
// to the same cache key (spec.md §4.2, §8 property 6).
func (a *Agent) runOne(ctx context.Context, queryID string, params map[string]any) queryOutcome {
	canonical, err := a.executor.CanonicalizeParams(queryID, params)
	if err != nil {
		return queryOutcome{queryID: queryID, err: err}
	}

	value, err := a.cache.GetOrFetch(queryID, canonical, func() (any, error) {
		return a.executor.ExecuteCanonical(ctx, queryID, canonical)
	})
	if err != nil {
		return queryOutcome{queryID: queryID, err: err}
	}
	result, ok := value.(*querydb.Result)
	if !ok {
		return queryOutcome{queryID: queryID, err: fmt.Errorf("cached value for %q was not a *querydb.Result", queryID)}
	}
	return queryOutcome{queryID: queryID, result: result}
}

// equalLengthPreviousPeriod returns the period immediately preceding [from,
// to] with the same number of days, for comparison query parameter binding.
func equalLengthPreviousPeriod(from, to string) (prevFrom, prevTo string, err error) {
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		return "", "", err
	}
	t, err := time.Parse("2006-01-02", to)
	if err != nil {
		return "", "", err
	}
	days := t.Sub(f)
	prevTo = f.AddDate(0, 0, -1).Format("2006-01-02")
	prevFrom = f.AddDate(0, 0, -1).Add(-days).Format("2006-01-02")
	return prevFrom, prevTo, nil
}
