package llmcap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/conversa-analytics/insights-engine/pkg/presentation"
)

const narrativeSystemPrompt = `You write the narrative text for a sales/inventory analytics dashboard, given the question asked and the data computed to answer it.

Return JSON with exactly these fields:
  "conclusion": one sentence, the headline takeaway
  "summary": one to two sentences summarizing the data
  "insights": an array of up to 3 short, specific observations
  "recommendation": one short actionable suggestion, or empty string if none applies

Only state what the data supports. Return ONLY the JSON object.`

// Generate implements presentation.NarrativeGenerator.
func (c *Client) Generate(ctx context.Context, question string, payload *models.DataPayload) (presentation.NarrativeResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return presentation.NarrativeResult{}, models.NewStageError("presentation", models.ErrUpstreamError, err.Error())
	}
	user := fmt.Sprintf("Question: %s\n\nData:\n%s", question, data)

	var result presentation.NarrativeResult
	if err := c.completeJSON(ctx, "presentation", narrativeSystemPrompt, user, &result); err != nil {
		return presentation.NarrativeResult{}, err
	}
	return result, nil
}
