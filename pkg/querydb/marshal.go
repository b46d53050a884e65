package querydb

import (
	"fmt"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// row is a single database result row, column name to value.
type row map[string]any

// Result is the typed outcome of one Execute call, shaped according to the
// catalog entry's output_kind.
type Result struct {
	OutputRef string
	KPI       map[string]float64
	Series    *models.TimeSeries
	Top       *models.TopItems
	Table     *models.Table
	// ComparisonRows carries raw rows for a "comparison"-shaped query; the
	// Data Agent (C5), not the Query Executor, interprets the current vs.
	// previous period split per spec.md §4.5.
	ComparisonRows []map[string]any

	// Empty is set when the shape invariant is violated (e.g. a kpi query
	// returned zero rows) — this is reported, not treated as an error, per
	// spec.md §4.2.
	Empty bool
}

func marshalRows(outputKind, outputRef string, rows []row) (*Result, error) {
	if len(rows) == 0 {
		return &Result{OutputRef: outputRef, Empty: true}, nil
	}

	switch outputKind {
	case "kpi":
		kpis := make(map[string]float64, len(rows[0]))
		for col, val := range rows[0] {
			f, ok := toFloat(val)
			if !ok {
				continue
			}
			kpis[col] = f
		}
		return &Result{OutputRef: outputRef, KPI: kpis}, nil

	case "time_series":
		points := make([]models.TimeSeriesPoint, 0, len(rows))
		for _, r := range rows {
			p, err := rowToTimeSeriesPoint(r)
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		return &Result{OutputRef: outputRef, Series: &models.TimeSeries{SeriesName: outputRef, Points: points}}, nil

	case "top_items":
		items := make([]models.TopItemsEntry, 0, len(rows))
		for i, r := range rows {
			e, err := rowToTopItemsEntry(r, i+1)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
		return &Result{OutputRef: outputRef, Top: &models.TopItems{RankingName: outputRef, Items: items}}, nil

	case "table":
		tableRows := make([]map[string]any, len(rows))
		for i, r := range rows {
			tableRows[i] = map[string]any(r)
		}
		return &Result{OutputRef: outputRef, Table: &models.Table{Name: outputRef, Rows: tableRows}}, nil

	case "comparison":
		cmpRows := make([]map[string]any, len(rows))
		for i, r := range rows {
			cmpRows[i] = map[string]any(r)
		}
		return &Result{OutputRef: outputRef, ComparisonRows: cmpRows}, nil

	default:
		return nil, fmt.Errorf("unsupported output_kind: %s", outputKind)
	}
}

func rowToTimeSeriesPoint(r row) (models.TimeSeriesPoint, error) {
	var p models.TimeSeriesPoint
	for col, val := range r {
		switch col {
		case "day", "date":
			p.Date = fmt.Sprintf("%v", val)
		case "label":
			p.Label = fmt.Sprintf("%v", val)
		default:
			if f, ok := toFloat(val); ok {
				p.Value = f
			}
		}
	}
	return p, nil
}

func rowToTopItemsEntry(r row, rank int) (models.TopItemsEntry, error) {
	e := models.TopItemsEntry{Rank: rank, Extra: map[string]any{}}
	for col, val := range r {
		switch col {
		case "id", "product_id", "sku":
			e.ID = fmt.Sprintf("%v", val)
		case "title":
			e.Title = fmt.Sprintf("%v", val)
		case "revenue", "value", "on_hand":
			if f, ok := toFloat(val); ok {
				e.Value = f
			}
		default:
			e.Extra[col] = val
		}
	}
	return e, nil
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
