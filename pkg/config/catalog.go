package config

import (
	"fmt"
	"sort"
	"sync"
)

// ParameterSchema describes one bound parameter a catalog query accepts.
type ParameterSchema struct {
	Name        string `yaml:"name" validate:"required"`
	Type        string `yaml:"type" validate:"required,oneof=string int float bool date"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Sensitive marks a parameter whose value must never be logged, only
	// its name. Query Executor enforces this at the logging boundary.
	Sensitive bool `yaml:"sensitive,omitempty"`
}

// QueryEntry is a single named, parameterized query in the catalog. The
// template is a literal parameterized SQL string ($1, $2, ...); no dynamic
// SQL composition happens anywhere in this codebase.
type QueryEntry struct {
	ID          string            `yaml:"id" validate:"required"`
	Description string            `yaml:"description,omitempty"`
	Template    string            `yaml:"template" validate:"required"`
	Parameters  []ParameterSchema `yaml:"parameters,omitempty" validate:"dive"`
	OutputKind  string            `yaml:"output_kind" validate:"required,oneof=kpi time_series top_items table comparison"`

	// OutputRef is the canonical reference under which this query's results
	// appear in the Data Payload (e.g. "kpi.sales_summary", "ts.sales_by_day").
	OutputRef   string   `yaml:"output_ref" validate:"required"`
	DomainHints []string `yaml:"domain_hints,omitempty"`
}

// CatalogRegistry stores query catalog entries in memory with thread-safe
// access, mirroring the registry shape used throughout this codebase.
type CatalogRegistry struct {
	mu      sync.RWMutex
	queries map[string]*QueryEntry
}

// NewCatalogRegistry creates a new catalog registry. The input map is
// defensively copied to prevent external mutation.
func NewCatalogRegistry(queries map[string]*QueryEntry) *CatalogRegistry {
	copied := make(map[string]*QueryEntry, len(queries))
	for k, v := range queries {
		copied[k] = v
	}
	return &CatalogRegistry{queries: copied}
}

// Get retrieves a query entry by id.
func (r *CatalogRegistry) Get(queryID string) (*QueryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queries[queryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, queryID)
	}
	return q, nil
}

// Has reports whether a query id exists in the registry.
func (r *CatalogRegistry) Has(queryID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.queries[queryID]
	return ok
}

// Len returns the number of registered queries.
func (r *CatalogRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queries)
}

// GetAll returns a copy of every registered query entry.
func (r *CatalogRegistry) GetAll() map[string]*QueryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*QueryEntry, len(r.queries))
	for k, v := range r.queries {
		result[k] = v
	}
	return result
}

// ListByOutputKind returns, in stable id order, every query whose
// output_kind matches. Used by the Presentation Builder to pick candidate
// slots for a given layout.
func (r *CatalogRegistry) ListByOutputKind(kind string) []*QueryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*QueryEntry
	for _, q := range r.queries {
		if q.OutputKind == kind {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListByDomainHint returns, in stable id order, every query tagged with the
// given domain hint. Used by the Data Agent's deterministic query-selection
// path.
func (r *CatalogRegistry) ListByDomainHint(domain string) []*QueryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*QueryEntry
	for _, q := range r.queries {
		for _, hint := range q.DomainHints {
			if hint == domain {
				out = append(out, q)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
