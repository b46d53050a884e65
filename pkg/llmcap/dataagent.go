package llmcap

import (
	"context"
	"fmt"

	"github.com/conversa-analytics/insights-engine/pkg/dataagent"
)

const selectQueriesSystemPrompt = `You select which catalog queries to run to answer a user's analytics question.

Return JSON with exactly these fields:
  "query_ids": an array of catalog query ids to run, at most 3, in the order they should run
  "params": an object keyed by query id, each value an object of parameter name to value, matching that query's declared parameters

Only choose query ids that appear in the catalog description. Return ONLY the JSON object.`

type selectionResult struct {
	QueryIDs []string                  `json:"query_ids"`
	Params   map[string]map[string]any `json:"params"`
}

// SelectQueries implements dataagent.LLMQuerySelector.
func (c *Client) SelectQueries(ctx context.Context, question, catalogDescription string) (dataagent.Selection, error) {
	user := fmt.Sprintf("Catalog:\n%s\n\nQuestion: %s", catalogDescription, question)

	var result selectionResult
	if err := c.completeJSON(ctx, "fetch_data", selectQueriesSystemPrompt, user, &result); err != nil {
		return dataagent.Selection{}, err
	}

	return dataagent.Selection{QueryIDs: result.QueryIDs, Params: result.Params}, nil
}
