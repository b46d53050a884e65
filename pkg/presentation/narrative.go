package presentation

import (
	"context"
	"fmt"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// trendBearishThreshold and trendBullishThreshold are the period-over-period
// percentage-change thresholds from spec.md §4.6.
const (
	trendBearishThreshold = -0.10
	trendBullishThreshold = 0.10
	outlierShareThreshold = 0.40
	steepDeclineThreshold = -0.20
)

// buildNarrative synthesizes up to 5 deterministic narrative entries: one
// headline, one insight per notable signal, and a callout when a metric
// crosses a configured threshold. It adds nothing beyond the headline when no
// time series moves by more than 10% and no top-items ranking has entries,
// so a KPI-only payload yields a single entry.
func (b *Builder) buildNarrative(_ context.Context, question, period string, payload *models.DataPayload) []models.NarrativeEntry {
	entries := []models.NarrativeEntry{{Kind: models.NarrativeHeadline, Text: headline(period, payload)}}

	for _, ts := range payload.TimeSeries {
		if insight, ok := trendInsight(ts); ok {
			entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeInsight, Text: insight})
		}
		if callout, ok := steepDeclineCallout(ts); ok {
			entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeCallout, Text: callout})
		}
	}

	for _, top := range payload.TopItems {
		if insight, ok := topPerformerInsight(top); ok {
			entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeInsight, Text: insight})
		}
		if insight, ok := outlierInsight(top); ok {
			entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeInsight, Text: insight})
		}
	}

	if callout, ok := lowStockCallout(payload); ok {
		entries = append(entries, models.NarrativeEntry{Kind: models.NarrativeCallout, Text: callout})
	}

	if len(entries) > 5 {
		entries = entries[:5]
	}
	return entries
}

func headline(period string, payload *models.DataPayload) string {
	if len(payload.KPIs) == 0 {
		return fmt.Sprintf("Here's what's happening for %s.", period)
	}
	for _, name := range metricPriority {
		if v, ok := payload.KPIs[name]; ok {
			return fmt.Sprintf("%s is %.2f for %s.", label(name), v, period)
		}
	}
	return fmt.Sprintf("Data is available for %s.", period)
}

func conclusion(period string, payload *models.DataPayload) string {
	return headline(period, payload)
}

// trendInsight reports the bearish/bullish percentage change between a
// time series' first and last point.
func trendInsight(ts models.TimeSeries) (string, bool) {
	pct, ok := pctChange(ts)
	if !ok {
		return "", false
	}
	switch {
	case pct < trendBearishThreshold:
		return fmt.Sprintf("%s trended down %.0f%% over the period (bearish).", label(ts.SeriesName), pct*-100), true
	case pct > trendBullishThreshold:
		return fmt.Sprintf("%s trended up %.0f%% over the period (bullish).", label(ts.SeriesName), pct*100), true
	default:
		return "", false
	}
}

func steepDeclineCallout(ts models.TimeSeries) (string, bool) {
	pct, ok := pctChange(ts)
	if !ok || pct >= steepDeclineThreshold {
		return "", false
	}
	return fmt.Sprintf("Sharp decline detected in %s — down %.0f%%.", label(ts.SeriesName), pct*-100), true
}

func pctChange(ts models.TimeSeries) (float64, bool) {
	if len(ts.Points) < 2 {
		return 0, false
	}
	first, last := ts.Points[0].Value, ts.Points[len(ts.Points)-1].Value
	if first == 0 {
		return 0, false
	}
	return (last - first) / first, true
}

func topPerformerInsight(top models.TopItems) (string, bool) {
	if len(top.Items) == 0 {
		return "", false
	}
	best := top.Items[0]
	return fmt.Sprintf("Top performer in %s: %s.", label(top.RankingName), best.Title), true
}

// outlierInsight flags a single item that accounts for more than
// outlierShareThreshold of a ranking's total value.
func outlierInsight(top models.TopItems) (string, bool) {
	if len(top.Items) < 2 {
		return "", false
	}
	var total float64
	for _, item := range top.Items {
		total += item.Value
	}
	if total == 0 {
		return "", false
	}
	best := top.Items[0]
	share := best.Value / total
	if share <= outlierShareThreshold {
		return "", false
	}
	return fmt.Sprintf("%s accounts for %.0f%% of %s, an outlier.", best.Title, share*100, label(top.RankingName)), true
}

// lowStockCallout flags a stock_reorder-style ranking with any item at or
// below its reorder threshold. The seed catalog's top.stock_reorder ranking
// already filters to at-risk SKUs server-side, so a non-empty ranking is
// itself the signal.
func lowStockCallout(payload *models.DataPayload) (string, bool) {
	for _, top := range payload.TopItems {
		if top.RankingName == "top.stock_reorder" && len(top.Items) > 0 {
			return fmt.Sprintf("%d SKU(s) are at or below their reorder threshold.", len(top.Items)), true
		}
	}
	return "", false
}
