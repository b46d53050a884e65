package querydb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool is a minimal dbPool implementation for unit tests — this engine
// has no integration suite that spins up a real Postgres (see DESIGN.md).
type fakePool struct {
	rows [][]any
	cols []string
	err  error
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{cols: f.cols, data: f.rows, idx: -1}, nil
}

type fakeRows struct {
	cols []string
	data [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) Conn() *pgx.Conn                               { return nil }
func (r *fakeRows) RawValues() [][]byte                           { return nil }

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

func (r *fakeRows) Scan(dest ...any) error {
	return errors.New("Scan not supported by fakeRows; use Values()")
}
