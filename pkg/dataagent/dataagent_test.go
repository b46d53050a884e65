package dataagent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/conversa-analytics/insights-engine/pkg/querydb"
	"github.com/conversa-analytics/insights-engine/pkg/resultcache"
)

// fakePool is a minimal dbPool-compatible double; dataagent has no
// integration suite spinning up a real Postgres (see DESIGN.md).
type fakePool struct {
	byQuery map[string]*fakeQueryResponse
}

type fakeQueryResponse struct {
	cols [][]string
	rows [][][]any
	err  error
	n    int
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	resp, ok := f.byQuery[sql]
	if !ok {
		return &fakeRows{}, nil
	}
	if resp.err != nil {
		return nil, resp.err
	}
	idx := resp.n
	if idx >= len(resp.rows) {
		idx = len(resp.rows) - 1
	}
	resp.n++
	return &fakeRows{cols: resp.cols[idx], data: resp.rows[idx], idx: -1}, nil
}

type fakeRows struct {
	cols []string
	data [][]any
	idx  int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                     { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag  { return pgconn.CommandTag{} }
func (r *fakeRows) Conn() *pgx.Conn                { return nil }
func (r *fakeRows) RawValues() [][]byte            { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return fields
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.data) {
		return nil, errors.New("no current row")
	}
	return r.data[r.idx], nil
}

func (r *fakeRows) Scan(dest ...any) error { return errors.New("unsupported") }

func salesCatalog() *config.CatalogRegistry {
	return config.NewCatalogRegistry(map[string]*config.QueryEntry{
		"kpi_sales_summary": {
			ID:         "kpi_sales_summary",
			Template:   "SELECT total_sales FROM sales WHERE sold_at BETWEEN $1 AND $2",
			OutputKind: "kpi",
			OutputRef:  "kpi.sales_summary",
			Parameters: []config.ParameterSchema{
				{Name: "start_date", Type: "date", Required: true},
				{Name: "end_date", Type: "date", Required: true},
			},
			DomainHints: []string{"sales"},
		},
		"ts_sales_by_day": {
			ID:         "ts_sales_by_day",
			Template:   "SELECT day, total FROM sales_by_day WHERE sold_at BETWEEN $1 AND $2",
			OutputKind: "time_series",
			OutputRef:  "ts.sales_by_day",
			Parameters: []config.ParameterSchema{
				{Name: "start_date", Type: "date", Required: true},
				{Name: "end_date", Type: "date", Required: true},
			},
			DomainHints: []string{"sales"},
		},
	})
}

func TestFetchDeterministicSelectionAndAssembly(t *testing.T) {
	catalog := salesCatalog()
	pool := &fakePool{byQuery: map[string]*fakeQueryResponse{
		"SELECT total_sales FROM sales WHERE sold_at BETWEEN $1 AND $2": {
			cols: [][]string{{"total_sales"}},
			rows: [][][]any{{{1000.0}}},
		},
		"SELECT day, total FROM sales_by_day WHERE sold_at BETWEEN $1 AND $2": {
			cols: [][]string{{"day", "total"}},
			rows: [][][]any{{{"2026-07-01", 100.0}, {"2026-07-02", 200.0}}},
		},
	}}
	executor := querydb.NewExecutor(pool, catalog)
	cache := resultcache.New(time.Minute)
	agent := New(catalog, cache, executor, nil, 3)

	payload, steps, err := agent.Fetch(context.Background(), "total sales", DateRange{From: "2026-07-01", To: "2026-07-31"}, "", models.RoutingDecision{Kind: models.KindDataOnly, Domain: models.DomainSales})
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	assert.Equal(t, 1000.0, payload.KPIs["total_sales"])
	require.Len(t, payload.TimeSeries, 1)
	assert.Contains(t, payload.AvailableRefs, "kpi.sales_summary")
	assert.Contains(t, payload.AvailableRefs, "ts.sales_by_day")
}

func TestFetchAllQueriesFailReturnsDataUnavailable(t *testing.T) {
	catalog := salesCatalog()
	pool := &fakePool{byQuery: map[string]*fakeQueryResponse{}}
	for _, sql := range []string{
		"SELECT total_sales FROM sales WHERE sold_at BETWEEN $1 AND $2",
		"SELECT day, total FROM sales_by_day WHERE sold_at BETWEEN $1 AND $2",
	} {
		pool.byQuery[sql] = &fakeQueryResponse{err: errors.New("connection refused")}
	}
	executor := querydb.NewExecutor(pool, catalog)
	cache := resultcache.New(time.Minute)
	agent := New(catalog, cache, executor, nil, 3)

	_, _, err := agent.Fetch(context.Background(), "total sales", DateRange{From: "2026-07-01", To: "2026-07-31"}, "", models.RoutingDecision{Kind: models.KindDataOnly, Domain: models.DomainSales})
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestComputeComparisonDeltaPercent(t *testing.T) {
	rows := []map[string]any{
		{"period": "current", "total_sales": 150.0},
		{"period": "previous", "total_sales": 100.0},
	}
	cmp, ok := computeComparison(rows)
	require.True(t, ok)
	assert.InDelta(t, 0.5, cmp.Deltas["total_sales"].DeltaPercent, 0.0001)
}

func TestComputeComparisonDivideByZero(t *testing.T) {
	rows := []map[string]any{
		{"period": "current", "total_sales": 150.0},
		{"period": "previous", "total_sales": 0.0},
	}
	cmp, ok := computeComparison(rows)
	require.True(t, ok)
	assert.Equal(t, 0.0, cmp.Deltas["total_sales"].DeltaPercent)
}

func TestEqualLengthPreviousPeriod(t *testing.T) {
	prevFrom, prevTo, err := equalLengthPreviousPeriod("2026-07-01", "2026-07-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-06-21", prevFrom)
	assert.Equal(t, "2026-06-30", prevTo)
}
