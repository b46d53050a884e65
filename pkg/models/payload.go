package models

// TimeSeries is one named, ordered series of (date, value, label) points,
// keyed in the Data Payload under an output_ref such as "ts.sales_by_day".
type TimeSeries struct {
	SeriesName string           `json:"series_name"`
	Points     []TimeSeriesPoint `json:"points"`
}

// TimeSeriesPoint is a single observation in a TimeSeries.
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// TopItems is one named, ordered ranking, keyed in the Data Payload under an
// output_ref such as "top.products_by_revenue".
type TopItems struct {
	RankingName string          `json:"ranking_name"`
	Metric      string          `json:"metric"`
	Items       []TopItemsEntry `json:"items"`
}

// TopItemsEntry is a single ranked row in a TopItems ranking.
type TopItemsEntry struct {
	Rank  int            `json:"rank"`
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Value float64        `json:"value"`
	Extra map[string]any `json:"extra,omitempty"`
}

// Table is a named list of arbitrary rows, keyed in the Data Payload under
// an output_ref such as "table.custom".
type Table struct {
	Name string           `json:"name"`
	Rows []map[string]any `json:"rows"`
}

// PeriodKPIs are the scalar metrics for one period of a Comparison.
type PeriodKPIs struct {
	Label string             `json:"label"`
	KPIs  map[string]float64 `json:"kpis"`
}

// MetricDelta is the current-vs-previous delta for one comparable metric.
type MetricDelta struct {
	Current        float64 `json:"current"`
	Previous       float64 `json:"previous"`
	Delta          float64 `json:"delta"`
	DeltaPercent   float64 `json:"delta_percent"`
}

// Comparison holds a current and previous period's KPIs plus the computed
// per-metric deltas, populated when a "comparison"-shaped query was selected.
type Comparison struct {
	CurrentPeriod  PeriodKPIs             `json:"current_period"`
	PreviousPeriod PeriodKPIs             `json:"previous_period"`
	Deltas         map[string]MetricDelta `json:"deltas"`
}

// DataPayload is produced by the Data Agent (C5), consumed by the
// Presentation Builder (C6), and emitted on the wire as a data-payload event.
type DataPayload struct {
	KPIs          map[string]float64 `json:"kpis,omitempty"`
	TimeSeries    []TimeSeries       `json:"time_series,omitempty"`
	TopItems      []TopItems         `json:"top_items,omitempty"`
	Tables        []Table            `json:"tables,omitempty"`
	Comparison    *Comparison        `json:"comparison,omitempty"`

	// KPIRefs maps each KPIs key to the output_ref of the query that
	// produced it, so a KPICard's value_ref can be validated against
	// AvailableRefs without the Presentation Builder needing to know which
	// catalog query a metric came from.
	KPIRefs map[string]string `json:"kpi_refs,omitempty"`

	// AvailableRefs is the set of output_refs that received at least one
	// non-empty result. The Presentation Builder must only reference refs
	// present here — the invariant spec.md §8 property 3 names.
	AvailableRefs []string `json:"available_refs"`
}

// HasRef reports whether ref is present in AvailableRefs.
func (p *DataPayload) HasRef(ref string) bool {
	for _, r := range p.AvailableRefs {
		if r == ref {
			return true
		}
	}
	return false
}
