package querydb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *config.CatalogRegistry {
	return config.NewCatalogRegistry(map[string]*config.QueryEntry{
		"kpi_sales_summary": {
			ID:         "kpi_sales_summary",
			Template:   "SELECT total_sales, total_orders FROM sales WHERE sold_at BETWEEN $1 AND $2",
			OutputKind: "kpi",
			OutputRef:  "kpi.sales_summary",
			Parameters: []config.ParameterSchema{
				{Name: "start_date", Type: "date", Required: true},
				{Name: "end_date", Type: "date", Required: true},
			},
		},
		"inventory_levels": {
			ID:         "inventory_levels",
			Template:   "SELECT sku, on_hand FROM inventory WHERE warehouse_id = $1",
			OutputKind: "table",
			OutputRef:  "table.inventory_levels",
			Parameters: []config.ParameterSchema{
				{Name: "warehouse_id", Type: "string", Required: true, Sensitive: true},
			},
		},
	})
}

func TestExecuteUnknownQuery(t *testing.T) {
	e := NewExecutor(&fakePool{}, testCatalog())

	_, err := e.Execute(context.Background(), "nonexistent", nil)
	assert.ErrorIs(t, err, models.ErrUnknownQuery)
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	e := NewExecutor(&fakePool{}, testCatalog())

	_, err := e.Execute(context.Background(), "kpi_sales_summary", map[string]any{"start_date": "2026-01-01"})
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestExecuteKPIShape(t *testing.T) {
	pool := &fakePool{
		cols: []string{"total_sales", "total_orders"},
		rows: [][]any{{1000.0, 5.0}},
	}
	e := NewExecutor(pool, testCatalog())

	result, err := e.Execute(context.Background(), "kpi_sales_summary", map[string]any{
		"start_date": "2026-01-01", "end_date": "2026-01-31",
	})
	require.NoError(t, err)
	require.NotNil(t, result.KPI)
	assert.Equal(t, 1000.0, result.KPI["total_sales"])
	assert.Equal(t, "kpi.sales_summary", result.OutputRef)
}

func TestExecuteEmptyResultIsNotAnError(t *testing.T) {
	pool := &fakePool{cols: []string{"total_sales"}, rows: nil}
	e := NewExecutor(pool, testCatalog())

	result, err := e.Execute(context.Background(), "kpi_sales_summary", map[string]any{
		"start_date": "2026-01-01", "end_date": "2026-01-31",
	})
	require.NoError(t, err)
	assert.True(t, result.Empty)
}

func TestExecuteTableShape(t *testing.T) {
	pool := &fakePool{
		cols: []string{"sku", "on_hand"},
		rows: [][]any{{"SKU-1", 12.0}, {"SKU-2", 3.0}},
	}
	e := NewExecutor(pool, testCatalog())

	result, err := e.Execute(context.Background(), "inventory_levels", map[string]any{"warehouse_id": "wh-1"})
	require.NoError(t, err)
	require.NotNil(t, result.Table)
	assert.Len(t, result.Table.Rows, 2)
}

func TestExecuteUpstreamTimeout(t *testing.T) {
	pool := &fakePool{err: context.DeadlineExceeded}
	e := NewExecutor(pool, testCatalog()).WithTimeout(time.Millisecond)

	_, err := e.Execute(context.Background(), "inventory_levels", map[string]any{"warehouse_id": "wh-1"})
	assert.ErrorIs(t, err, models.ErrUpstreamTimeout)
}

func TestExecuteUpstreamError(t *testing.T) {
	pool := &fakePool{err: errors.New("syntax error at or near")}
	e := NewExecutor(pool, testCatalog())

	_, err := e.Execute(context.Background(), "inventory_levels", map[string]any{"warehouse_id": "wh-1"})
	assert.ErrorIs(t, err, models.ErrUpstreamError)
}
