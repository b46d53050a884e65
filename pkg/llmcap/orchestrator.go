package llmcap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

const summarySystemPrompt = "You write a one-sentence executive summary of a dashboard built to answer a user's analytics question. Be specific about the numbers shown. Respond with plain text, no JSON, no markdown."

// Summarize implements orchestrator.SummaryGenerator. Unlike the other three
// extension points this is plain text, not JSON — a one-line summary has no
// shape to validate, so there is nothing to repair.
func (c *Client) Summarize(ctx context.Context, question string, spec *models.DashboardSpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("llmcap: marshal dashboard spec: %w", err)
	}
	user := fmt.Sprintf("Question: %s\n\nDashboard:\n%s", question, data)

	text, err := c.complete(ctx, summarySystemPrompt, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
	})
	if err != nil {
		return "", fmt.Errorf("llmcap: summarize: %w", err)
	}
	return text, nil
}
