package querydb

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// acceptedDateLayouts are the input formats canonicalize will normalize to
// ISO-8601 (2006-01-02). Callers pass dates in any of these; the executor
// never receives anything else downstream.
var acceptedDateLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339}

// canonicalize validates rawParams against entry's parameter schema,
// applies defaults, normalizes dates to ISO-8601, and drops unknown
// parameters with a warning — the exact contract in spec.md §4.2. The
// returned map carries no order of its own: orderedArgs binds values in the
// catalog's declaration order, and resultcache.Key sorts names itself.
func canonicalize(entry *config.QueryEntry, rawParams map[string]any) (map[string]any, []string, error) {
	schema := make(map[string]config.ParameterSchema, len(entry.Parameters))
	for _, p := range entry.Parameters {
		schema[p.Name] = p
	}

	out := make(map[string]any, len(entry.Parameters))
	var warnings []string

	for name, p := range schema {
		val, present := rawParams[name]
		if !present {
			switch {
			case p.Default != "":
				val = p.Default
			case p.Required:
				return nil, nil, models.NewStageError("query_executor", models.ErrInvalidParams,
					fmt.Sprintf("missing required parameter %q for query %q", name, entry.ID))
			default:
				continue
			}
		}

		if p.Type == "date" {
			normalized, err := normalizeDate(val)
			if err != nil {
				return nil, nil, models.NewStageError("query_executor", models.ErrInvalidParams,
					fmt.Sprintf("parameter %q: %v", name, err))
			}
			val = normalized
		}

		out[name] = val
	}

	for name := range rawParams {
		if _, known := schema[name]; !known {
			warnings = append(warnings, fmt.Sprintf("dropping unknown parameter %q for query %q", name, entry.ID))
		}
	}
	sort.Strings(warnings)

	return out, warnings, nil
}

func normalizeDate(val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("expected a date string, got %T", val)
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}

// orderedArgs returns param values in entry.Parameters declaration order,
// matching the template's positional $1, $2, ... placeholders.
func orderedArgs(entry *config.QueryEntry, canonical map[string]any) []any {
	args := make([]any, 0, len(entry.Parameters))
	for _, p := range entry.Parameters {
		args = append(args, canonical[p.Name])
	}
	return args
}

// logFields renders canonical params as slog fields, substituting a
// redaction marker for any parameter the catalog flags sensitive. Query
// Executor must never log a sensitive parameter's value, only its name.
func logFields(entry *config.QueryEntry, canonical map[string]any) []any {
	sensitive := make(map[string]bool, len(entry.Parameters))
	for _, p := range entry.Parameters {
		sensitive[p.Name] = p.Sensitive
	}

	fields := make([]any, 0, len(canonical)*2)
	for name, val := range canonical {
		if sensitive[name] {
			fields = append(fields, name, "[redacted]")
			continue
		}
		fields = append(fields, name, val)
	}
	return fields
}

func warnDropped(warnings []string) {
	for _, w := range warnings {
		slog.Warn(w)
	}
}
