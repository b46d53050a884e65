package presentation

import (
	"sort"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// buildKPICards picks up to MaxKPICards entries from payload.KPIs, trying
// metricPriority first and falling back to the remaining keys in
// alphabetical order (see metricPriority's doc comment on why alphabetical,
// not insertion order).
func (b *Builder) buildKPICards(payload *models.DataPayload) []models.KPICard {
	if len(payload.KPIs) == 0 {
		return nil
	}

	chosen := make([]string, 0, MaxKPICards)
	seen := map[string]bool{}
	for _, name := range metricPriority {
		if len(chosen) >= MaxKPICards {
			break
		}
		if _, ok := payload.KPIs[name]; ok {
			chosen = append(chosen, name)
			seen[name] = true
		}
	}

	if len(chosen) < MaxKPICards {
		var rest []string
		for name := range payload.KPIs {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		for _, name := range rest {
			if len(chosen) >= MaxKPICards {
				break
			}
			chosen = append(chosen, name)
		}
	}

	cards := make([]models.KPICard, 0, len(chosen))
	for _, name := range chosen {
		cards = append(cards, models.KPICard{
			Label:    label(name),
			ValueRef: payload.KPIRefs[name],
			Format:   formatFor(name),
		})
	}
	return cards
}

// buildCharts emits at least two charts when possible, one drawn from
// time-series refs and one from top-items refs, falling back to two from a
// single family when only one exists. A comparison_bar chart is appended
// when payload.Comparison is present, and one table chart per payload table.
func (b *Builder) buildCharts(payload *models.DataPayload) []models.Chart {
	var charts []models.Chart

	tsCount, topCount := len(payload.TimeSeries), len(payload.TopItems)
	switch {
	case tsCount > 0 && topCount > 0:
		charts = append(charts, lineChart(payload.TimeSeries[0]))
		charts = append(charts, barChart(payload.TopItems[0]))
	case tsCount > 0:
		for i := 0; i < tsCount && i < 2; i++ {
			charts = append(charts, lineChart(payload.TimeSeries[i]))
		}
	case topCount > 0:
		for i := 0; i < topCount && i < 2; i++ {
			charts = append(charts, barChart(payload.TopItems[i]))
		}
	}

	if payload.Comparison != nil {
		metrics := make([]string, 0, len(payload.Comparison.Deltas))
		for metric := range payload.Comparison.Deltas {
			metrics = append(metrics, metric)
		}
		sort.Strings(metrics)
		charts = append(charts, models.Chart{
			Type:          models.ChartComparisonBar,
			Title:         "Period comparison",
			DatasetRef:    comparisonRef(payload),
			CurrentLabel:  payload.Comparison.CurrentPeriod.Label,
			PreviousLabel: payload.Comparison.PreviousPeriod.Label,
			Metrics:       metrics,
		})
	}

	for _, table := range payload.Tables {
		charts = append(charts, models.Chart{
			Type:       models.ChartTable,
			Title:      table.Name,
			DatasetRef: table.Name,
			MaxRows:    50,
		})
	}

	return charts
}

func lineChart(ts models.TimeSeries) models.Chart {
	return models.Chart{Type: models.ChartLine, Title: label(ts.SeriesName), DatasetRef: ts.SeriesName, XAxis: "date", YAxis: "value"}
}

func barChart(top models.TopItems) models.Chart {
	return models.Chart{Type: models.ChartBar, Title: label(top.RankingName), DatasetRef: top.RankingName, XAxis: "title", YAxis: "value"}
}

// comparisonRef finds the output_ref that produced the comparison result.
// There is exactly one per request (spec.md §4.5 caps selection at 3
// queries and only one may be comparison-shaped in the seed catalog), so the
// first "cmp."-prefixed ref in AvailableRefs is unambiguous in practice.
func comparisonRef(payload *models.DataPayload) string {
	for _, ref := range payload.AvailableRefs {
		if len(ref) >= 4 && ref[:4] == "cmp." {
			return ref
		}
	}
	return ""
}

func label(ref string) string {
	return humanize(ref)
}

func humanize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '_', '.':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func formatFor(metric string) string {
	switch metric {
	case "total_sales", "avg_order_value":
		return models.FormatCurrency
	case "churned":
		return models.FormatPercent
	default:
		return models.FormatNumber
	}
}
