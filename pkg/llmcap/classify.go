package llmcap

import (
	"context"
	"fmt"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

const classifySystemPrompt = `You are the Stage 2 fallback of a conversational analytics intent classifier. The deterministic keyword stage could not confidently route this question.

Return JSON with exactly these fields:
  "kind": one of "conversational", "data_only", "dashboard", "clarification"
  "domain": one of "sales", "inventory", "conversations", "unknown"
  "confidence": a float between 0 and 1
  "rationale": a short phrase explaining the decision
  "direct_answer": for "conversational", the reply to show the user verbatim; for "clarification", the clarifying question to ask; empty string otherwise

Use "clarification" when the question is too ambiguous to route confidently, and "conversational" only for chit-chat with no data intent. Return ONLY the JSON object.`

type classifyResult struct {
	Kind         string  `json:"kind"`
	Domain       string  `json:"domain"`
	Confidence   float64 `json:"confidence"`
	Rationale    string  `json:"rationale"`
	DirectAnswer string  `json:"direct_answer"`
}

// Classify implements classify.LLMFallback.
func (c *Client) Classify(ctx context.Context, question, chatContext string) (models.RoutingDecision, error) {
	user := fmt.Sprintf("Chat context:\n%s\n\nQuestion: %s", chatContext, question)

	var result classifyResult
	if err := c.completeJSON(ctx, "classify", classifySystemPrompt, user, &result); err != nil {
		return models.RoutingDecision{}, err
	}

	return models.RoutingDecision{
		Kind:         result.Kind,
		Domain:       result.Domain,
		Confidence:   result.Confidence,
		Rationale:    result.Rationale,
		DirectAnswer: result.DirectAnswer,
	}, nil
}
