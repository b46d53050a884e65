package querydb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbPool is the slice of *pgxpool.Pool this package depends on, narrowed to
// ease unit testing with a fake in place of a real database.
type dbPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DefaultQueryTimeout is the per-query wall clock budget from spec.md §5.
const DefaultQueryTimeout = 30 * time.Second

// Executor is the Query Executor (C2): validates and binds parameters
// against a catalog entry, invokes the bound template, and marshals the
// result into the entry's declared output shape.
type Executor struct {
	pool    dbPool
	catalog *config.CatalogRegistry
	timeout time.Duration
}

// NewExecutor builds a Query Executor over the given pool and catalog.
func NewExecutor(pool dbPool, catalog *config.CatalogRegistry) *Executor {
	return &Executor{pool: pool, catalog: catalog, timeout: DefaultQueryTimeout}
}

// WithTimeout overrides the per-query timeout (default DefaultQueryTimeout).
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Execute runs the named catalog query with rawParams, returning a typed
// Result or one of the sentinel error kinds from spec.md §4.2:
// unknown_query, invalid_params, upstream_unavailable, upstream_timeout,
// upstream_error.
func (e *Executor) Execute(ctx context.Context, queryID string, rawParams map[string]any) (*Result, error) {
	entry, err := e.catalog.Get(queryID)
	if err != nil {
		return nil, models.NewStageError("query_executor", models.ErrUnknownQuery, queryID)
	}

	canonical, warnings, err := canonicalize(entry, rawParams)
	if err != nil {
		return nil, err
	}
	warnDropped(warnings)

	return e.executeCanonical(ctx, entry, canonical)
}

// CanonicalizeParams resolves queryID's catalog entry and canonicalizes
// rawParams against its schema — the same normalization Execute applies
// internally, exposed so a caller (the Data Agent) can derive a Result
// Cache key from the canonical map instead of the raw one (spec.md §4.2:
// canonicalize before cache key computation, so a param passed at its
// default value and the same param omitted hash to the same key).
func (e *Executor) CanonicalizeParams(queryID string, rawParams map[string]any) (map[string]any, error) {
	entry, err := e.catalog.Get(queryID)
	if err != nil {
		return nil, models.NewStageError("query_executor", models.ErrUnknownQuery, queryID)
	}

	canonical, warnings, err := canonicalize(entry, rawParams)
	if err != nil {
		return nil, err
	}
	warnDropped(warnings)
	return canonical, nil
}

// ExecuteCanonical runs queryID against params already produced by
// CanonicalizeParams, skipping the canonicalize step Execute would
// otherwise repeat.
func (e *Executor) ExecuteCanonical(ctx context.Context, queryID string, canonical map[string]any) (*Result, error) {
	entry, err := e.catalog.Get(queryID)
	if err != nil {
		return nil, models.NewStageError("query_executor", models.ErrUnknownQuery, queryID)
	}
	return e.executeCanonical(ctx, entry, canonical)
}

func (e *Executor) executeCanonical(ctx context.Context, entry *config.QueryEntry, canonical map[string]any) (*Result, error) {
	slog.Debug("executing catalog query", append([]any{"query_id", entry.ID}, logFields(entry, canonical)...)...)

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.pool.Query(queryCtx, entry.Template, orderedArgs(entry, canonical)...)
	if err != nil {
		return nil, classifyQueryError(queryCtx, err)
	}
	defer rows.Close()

	parsed, err := scanRows(rows)
	if err != nil {
		return nil, models.NewStageError("query_executor", models.ErrUpstreamError, err.Error())
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(queryCtx, err)
	}

	return marshalRows(entry.OutputKind, entry.OutputRef, parsed)
}

func scanRows(rows pgx.Rows) ([]row, error) {
	fields := rows.FieldDescriptions()
	var out []row

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		r := make(row, len(fields))
		for i, f := range fields {
			if i < len(values) {
				r[string(f.Name)] = values[i]
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func classifyQueryError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return models.NewStageError("query_executor", models.ErrUpstreamTimeout, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return models.NewStageError("query_executor", models.ErrCancelled, err.Error())
	}
	// A failure to establish a connection (refused, DNS) surfaces from
	// pgxpool as *pgconn.ConnectError and is reported as a transport failure.
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return models.NewStageError("query_executor", models.ErrUpstreamUnavailable, err.Error())
	}
	// Anything else we treat as the database having returned an error body
	// (syntax, constraint, permission).
	return models.NewStageError("query_executor", models.ErrUpstreamError, err.Error())
}
