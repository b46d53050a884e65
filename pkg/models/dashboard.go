package models

// KPI card value formats.
const (
	FormatCurrency = "currency"
	FormatNumber   = "number"
	FormatPercent  = "percent"
)

// Chart types.
const (
	ChartLine            = "line"
	ChartArea            = "area"
	ChartBar             = "bar"
	ChartPie             = "pie"
	ChartTable           = "table"
	ChartComparisonBar   = "comparison_bar"
	ChartComparisonKPI   = "comparison_kpi"
)

// Narrative entry kinds.
const (
	NarrativeHeadline = "headline"
	NarrativeSummary  = "summary"
	NarrativeInsight  = "insight"
	NarrativeCallout  = "callout"
)

// KPICard is one "series" slot: a labeled scalar value bound to a Data
// Payload ref, with an optional delta ref for period-over-period change.
type KPICard struct {
	Label    string `json:"label"`
	ValueRef string `json:"value_ref"`
	Format   string `json:"format"`
	DeltaRef string `json:"delta_ref,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Chart is one "charts" slot: either a plotted chart, a table, or a
// comparison view, discriminated by Type.
type Chart struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	DatasetRef    string   `json:"dataset_ref"`
	XAxis         string   `json:"x_axis,omitempty"`
	YAxis         string   `json:"y_axis,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	MaxRows       int      `json:"max_rows,omitempty"`
	CurrentLabel  string   `json:"current_label,omitempty"`
	PreviousLabel string   `json:"previous_label,omitempty"`
	Metrics       []string `json:"metrics,omitempty"`
}

// NarrativeEntry is one "narrative" slot: a single piece of generated text.
type NarrativeEntry struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Filter describes the applied date range and any arbitrary filter map for
// the "filters" slot.
type Filter struct {
	DateFrom string         `json:"date_from,omitempty"`
	DateTo   string         `json:"date_to,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Slots is the fixed-shape container for a Dashboard Specification's four
// optional arrays.
type Slots struct {
	Series    []KPICard        `json:"series,omitempty"`
	Charts    []Chart          `json:"charts,omitempty"`
	Narrative []NarrativeEntry `json:"narrative,omitempty"`
	Filters   []Filter         `json:"filters,omitempty"`
}

// DashboardSpec is produced by the Presentation Builder (C6) and emitted on
// the wire as a data-dashboard event.
type DashboardSpec struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Conclusion string `json:"conclusion,omitempty"`
	Slots      Slots  `json:"slots"`
}
