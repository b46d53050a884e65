package dataagent

import (
	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// assemble folds each successful query outcome's typed result under its
// entry's output_ref into a Data Payload, per spec.md §4.5 Assembly.
func assemble(outcomes []queryOutcome) *models.DataPayload {
	payload := &models.DataPayload{KPIs: map[string]float64{}, KPIRefs: map[string]string{}}
	var comparisonRows []map[string]any

	for _, o := range outcomes {
		if o.err != nil || o.result == nil || o.result.Empty {
			continue
		}
		r := o.result

		switch {
		case r.KPI != nil:
			for k, v := range r.KPI {
				payload.KPIs[k] = v
				payload.KPIRefs[k] = r.OutputRef
			}
			payload.AvailableRefs = append(payload.AvailableRefs, r.OutputRef)
		case r.Series != nil:
			payload.TimeSeries = append(payload.TimeSeries, *r.Series)
			payload.AvailableRefs = append(payload.AvailableRefs, r.OutputRef)
		case r.Top != nil:
			payload.TopItems = append(payload.TopItems, *r.Top)
			payload.AvailableRefs = append(payload.AvailableRefs, r.OutputRef)
		case r.Table != nil:
			payload.Tables = append(payload.Tables, *r.Table)
			payload.AvailableRefs = append(payload.AvailableRefs, r.OutputRef)
		case r.ComparisonRows != nil:
			comparisonRows = r.ComparisonRows
			payload.AvailableRefs = append(payload.AvailableRefs, r.OutputRef)
		}
	}

	if comparisonRows != nil {
		if cmp, ok := computeComparison(comparisonRows); ok {
			payload.Comparison = cmp
		}
	}

	if len(payload.KPIs) == 0 {
		payload.KPIs = nil
		payload.KPIRefs = nil
	}
	return payload
}

// computeComparison splits comparison rows into current/previous period KPI
// sets (identified by a literal "period" column valued "current"/"previous",
// the shape the comparison catalog templates are written to produce) and
// computes per-metric delta and delta_percent. delta_percent is defined as
// 0 when the previous value is 0 (spec.md §4.5 Comparison handling).
func computeComparison(rows []map[string]any) (*models.Comparison, bool) {
	var current, previous map[string]float64
	for _, row := range rows {
		period, _ := row["period"].(string)
		kpis := map[string]float64{}
		for col, val := range row {
			if col == "period" {
				continue
			}
			if f, ok := toFloat(val); ok {
				kpis[col] = f
			}
		}
		switch period {
		case "current":
			current = kpis
		case "previous":
			previous = kpis
		}
	}
	if current == nil || previous == nil {
		return nil, false
	}

	deltas := map[string]models.MetricDelta{}
	for metric, cur := range current {
		prev, ok := previous[metric]
		if !ok {
			continue
		}
		delta := cur - prev
		deltaPercent := 0.0
		if prev != 0 {
			deltaPercent = delta / prev
		}
		deltas[metric] = models.MetricDelta{Current: cur, Previous: prev, Delta: delta, DeltaPercent: deltaPercent}
	}

	return &models.Comparison{
		CurrentPeriod:  models.PeriodKPIs{Label: "current", KPIs: current},
		PreviousPeriod: models.PeriodKPIs{Label: "previous", KPIs: previous},
		Deltas:         deltas,
	}, true
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
