package dataagent

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// comparisonKeywords are the terms spec.md §8's comparison scenario
// ("comparame noviembre vs octubre") and the classifier's own dashboard
// vocabulary treat as comparison intent.
var comparisonKeywords = []string{"compara", "comparame", "comparacion", "versus", " vs ", " vs. "}

// wantsComparison reports whether question signals the user actually asked
// for a current-vs-previous-period comparison, as opposed to a plain
// dashboard/summary request.
func wantsComparison(question string) bool {
	folded := " " + foldText(question) + " "
	for _, kw := range comparisonKeywords {
		if strings.Contains(folded, foldText(kw)) {
			return true
		}
	}
	return false
}

// foldText lowercases and strips accents/diacritics so "compárame" and
// "comparame" match the same keyword.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// selectQueries implements spec.md §4.5's query-selection policy: a
// deterministic domain map when the routing decision already pins a domain,
// an LLM fallback otherwise, and a heuristic fallback when the LLM path is
// unavailable or its output doesn't survive validation.
func (a *Agent) selectQueries(ctx context.Context, question string, dr DateRange, chatContext string, decision models.RoutingDecision, excluded map[string]bool) (Selection, string) {
	if decision.Domain != models.DomainUnknown {
		return a.heuristicSelection(decision.Domain, question, dr, excluded), "deterministic"
	}

	if a.llm != nil {
		if sel, err := a.llm.SelectQueries(ctx, question, a.catalogDescription()); err == nil {
			if valid, ok := a.validate(sel, excluded); ok {
				return valid, "llm"
			}
		}
		// One repair pass: re-ask once with the same inputs. A second
		// malformed/invalid response falls through to the heuristic map
		// keyed on whatever domain the classifier attached, per spec.md
		// §4.5 step 3.
		if sel, err := a.llm.SelectQueries(ctx, question, a.catalogDescription()); err == nil {
			if valid, ok := a.validate(sel, excluded); ok {
				return valid, "llm_repaired"
			}
		}
	}

	return a.heuristicSelection(decision.Domain, question, dr, excluded), "llm_fallback_heuristic"
}

// heuristicSelection picks up to MaxQueriesPerRequest catalog entries hinting
// at domain (skipping any id in excluded — the reflect step's "drop the
// failing query id" strategy) and binds start_date/end_date (and, for
// comparison-shaped entries, the equal-length previous period) from dr. A
// comparison-shaped entry is only a candidate when question itself signals
// comparison intent (see wantsComparison) — otherwise a plain dashboard
// question would lose a kpi/time_series/top_items slot to a comparison query
// nobody asked for, just because it happens to sort ahead of them.
func (a *Agent) heuristicSelection(domain, question string, dr DateRange, excluded map[string]bool) Selection {
	candidates := a.catalog.ListByDomainHint(domain)
	comparison := wantsComparison(question)

	sel := Selection{Params: map[string]map[string]any{}}
	for _, e := range candidates {
		if len(sel.QueryIDs) >= MaxQueriesPerRequest {
			break
		}
		if excluded[e.ID] {
			continue
		}
		if e.OutputKind == "comparison" && !comparison {
			continue
		}
		sel.QueryIDs = append(sel.QueryIDs, e.ID)
		sel.Params[e.ID] = bindDateParams(e.Parameters, dr)
	}
	return sel
}

// bindDateParams supplies start_date/end_date (and, for a comparison entry's
// prev_start_date/prev_end_date) from dr. Any other parameter is left unset
// and falls back to the catalog's own default, if one is declared.
func bindDateParams(params []config.ParameterSchema, dr DateRange) map[string]any {
	out := map[string]any{}
	for _, p := range params {
		switch p.Name {
		case "start_date":
			out[p.Name] = dr.From
		case "end_date":
			out[p.Name] = dr.To
		case "prev_start_date", "prev_end_date":
			prevFrom, prevTo, err := equalLengthPreviousPeriod(dr.From, dr.To)
			if err != nil {
				continue
			}
			if p.Name == "prev_start_date" {
				out[p.Name] = prevFrom
			} else {
				out[p.Name] = prevTo
			}
		}
	}
	return out
}

// validate enforces spec.md §4.5 step 2's LLM-output checks: every id must
// exist in the catalog and the set must not exceed the cap. Per-query
// parameter schema validation is left to the Query Executor's own
// canonicalize step, since a single bad query in the set shouldn't discard
// an otherwise-valid selection (spec.md's "partial success is acceptable").
func (a *Agent) validate(sel Selection, excluded map[string]bool) (Selection, bool) {
	if len(sel.QueryIDs) == 0 || len(sel.QueryIDs) > MaxQueriesPerRequest {
		return Selection{}, false
	}
	ids := make([]string, 0, len(sel.QueryIDs))
	for _, id := range sel.QueryIDs {
		if !a.catalog.Has(id) {
			return Selection{}, false
		}
		if excluded[id] {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return Selection{}, false
	}
	sel.QueryIDs = ids
	if sel.Params == nil {
		sel.Params = map[string]map[string]any{}
	}
	return sel, true
}

func (a *Agent) catalogDescription() string {
	var b strings.Builder
	for _, e := range a.catalog.GetAll() {
		fmt.Fprintf(&b, "- %s (%s -> %s): %s\n", e.ID, e.OutputKind, e.OutputRef, e.Description)
	}
	return b.String()
}
