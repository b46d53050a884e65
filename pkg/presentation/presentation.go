// Package presentation implements the Presentation Builder (C6): turns a
// Data Payload into a Dashboard Specification via deterministic slot
// selection and either deterministic or LLM-generated narrative text.
package presentation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// MaxKPICards is the cap from spec.md §4.6.
const MaxKPICards = 4

// metricPriority is the fixed ordering KPI cards are chosen in before
// falling back to any remaining metric, alphabetically. Go maps have no
// insertion order to fall back to, so alphabetical order is the
// deterministic substitute for "insertion order" spec.md §4.6 assumes a
// slice-backed payload would have.
var metricPriority = []string{
	"total_sales", "total_orders", "avg_order_value", "total_units",
	"sku_count", "churned", "total",
}

// NarrativeGenerator is the optional LLM narrative path from spec.md §4.6.
// Implementations apply their own one-shot repair pass, same as
// classify.LLMFallback and dataagent.LLMQuerySelector.
type NarrativeGenerator interface {
	Generate(ctx context.Context, question string, payload *models.DataPayload) (NarrativeResult, error)
}

// NarrativeResult is the LLM narrative path's required JSON shape.
type NarrativeResult struct {
	Conclusion     string
	Summary        string
	Insights       []string
	Recommendation string
}

// Builder is the Presentation Builder (C6).
type Builder struct {
	narrative  NarrativeGenerator
	useLLM     bool
	strictMode bool
}

// New builds a Presentation Builder. narrative may be nil even when useLLM
// is true, in which case the deterministic path is used as if useLLM were
// false. strictMode turns a value_ref/dataset_ref invariant violation into a
// panic instead of a logged warning — spec.md §4.6's "must fail loudly
// during development" requirement, intended for non-production builds.
func New(narrative NarrativeGenerator, useLLM, strictMode bool) *Builder {
	return &Builder{narrative: narrative, useLLM: useLLM, strictMode: strictMode}
}

// Build produces a Dashboard Specification for question against payload,
// given the routing decision that selected it and a human-readable period
// label (e.g. "2026-07-01 to 2026-07-31") used in the deterministic
// headline.
func (b *Builder) Build(ctx context.Context, question, period string, payload *models.DataPayload, decision models.RoutingDecision) (*models.DashboardSpec, error) {
	if payload == nil || (len(payload.KPIs) == 0 && len(payload.TimeSeries) == 0 && len(payload.TopItems) == 0 && len(payload.Tables) == 0) {
		return nil, models.NewStageError("presentation", models.ErrPresentationError, "data payload has nothing to render")
	}

	spec := &models.DashboardSpec{Title: title(decision)}

	spec.Slots.Series = b.buildKPICards(payload)
	spec.Slots.Charts = b.buildCharts(payload)
	spec.Slots.Narrative = b.buildNarrative(ctx, question, period, payload)

	// The LLM narrative path's own one-shot repair attempt (re-ask with the
	// validation error) is an implementation detail of the NarrativeGenerator,
	// same as classify.LLMFallback and dataagent.LLMQuerySelector — by the
	// time Generate returns here, both attempts have already been made.
	if b.useLLM && b.narrative != nil {
		if result, err := b.narrative.Generate(ctx, question, payload); err == nil {
			spec.Conclusion = result.Conclusion
			spec.Subtitle = result.Summary
			spec.Slots.Narrative = llmNarrativeEntries(result)
		}
	}

	if spec.Conclusion == "" {
		spec.Conclusion = conclusion(period, payload)
	}

	b.checkInvariant(spec, payload)
	return spec, nil
}

func title(decision models.RoutingDecision) string {
	switch decision.Domain {
	case models.DomainSales:
		return "Sales overview"
	case models.DomainInventory:
		return "Inventory overview"
	case models.DomainConversations:
		return "Customer conversations overview"
	default:
		return "Analytics overview"
	}
}

func llmNarrativeEntries(r NarrativeResult) []models.NarrativeEntry {
	entries := []models.NarrativeEntry{{Kind: models.NarrativeSummary, Text: r.Summary}}
	for _, insight := range r.Insights {
		entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeInsight, Text: insight})
	}
	if r.Recommendation != "" {
		entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeCallout, Text: r.Recommendation})
	}
	return entries
}

// checkInvariant enforces spec.md §4.6's "every value_ref/dataset_ref must
// be in available_refs" rule. In strict mode a violation panics (development
// builds); otherwise it is only logged, so a misconfigured catalog doesn't
// take down a production server mid-stream.
func (b *Builder) checkInvariant(spec *models.DashboardSpec, payload *models.DataPayload) {
	for _, card := range spec.Slots.Series {
		b.assertRef(card.ValueRef, payload, fmt.Sprintf("kpi card %q", card.Label))
	}
	for _, chart := range spec.Slots.Charts {
		b.assertRef(chart.DatasetRef, payload, fmt.Sprintf("chart %q", chart.Title))
	}
}

func (b *Builder) assertRef(ref string, payload *models.DataPayload, context string) {
	if ref == "" || payload.HasRef(ref) {
		return
	}
	msg := fmt.Sprintf("presentation: %s references %q, not in available_refs", context, ref)
	if b.strictMode {
		panic(msg)
	}
	slog.Warn(msg)
}
