// Package llmcap implements the single Anthropic-backed LLM capability
// shared by every optional extension point in the pipeline: the Intent
// Classifier's Stage 2 fallback, the Data Agent's LLM query selector, the
// Presentation Builder's narrative generator, and the orchestrator's
// executive summary. Each extension point gets its own thin adapter file in
// this package. The three JSON-shaped ones funnel through one completeJSON
// helper that asks for JSON, parses it, and makes exactly one repair attempt
// on malformed output before giving up; the executive summary is plain text
// and calls the model directly.
package llmcap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5"

// maxTokens bounds every call this package makes. None of the four
// extension points need long-form output — a routing decision, a query
// selection, a short narrative, or a one-line summary.
const maxTokens = 1024

// Client is the shared LLM capability. It implements classify.LLMFallback,
// dataagent.LLMQuerySelector, presentation.NarrativeGenerator, and
// orchestrator.SummaryGenerator in the four sibling files in this package.
type Client struct {
	anthropic anthropic.Client
	model     string
}

// New builds a Client. The Anthropic API key is read from the
// ANTHROPIC_API_KEY environment variable by the underlying SDK client,
// the same "environment owns secrets" convention pkg/config uses throughout.
// model defaults to DefaultModel when empty.
func New(model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{anthropic: anthropic.NewClient(), model: model}
}

// completeJSON sends system+user prompts to the model and unmarshals the
// first text block's content as JSON into target. On a parse failure it
// makes exactly one repair attempt, quoting the parse error back to the
// model, before giving up with models.ErrLLMParseError — the "one round of
// repair" contract every LLMFallback/LLMQuerySelector/NarrativeGenerator
// caller relies on.
func (c *Client) completeJSON(ctx context.Context, stage, system, user string, target any) error {
	raw, err := c.complete(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
	})
	if err != nil {
		return models.NewStageError(stage, models.ErrUpstreamError, err.Error())
	}

	if perr := json.Unmarshal([]byte(extractJSON(raw)), target); perr == nil {
		return nil
	} else if repaired, rerr := c.complete(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(raw)),
		anthropic.NewUserMessage(anthropic.NewTextBlock(repairPrompt(raw, perr))),
	}); rerr == nil {
		if perr := json.Unmarshal([]byte(extractJSON(repaired)), target); perr == nil {
			return nil
		}
	}
	return models.NewStageError(stage, models.ErrLLMParseError, "model did not return valid JSON after one repair attempt")
}

func (c *Client) complete(ctx context.Context, system string, messages []anthropic.MessageParam) (string, error) {
	msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}

func repairPrompt(badOutput string, parseErr error) string {
	return fmt.Sprintf(
		"Your previous response could not be parsed as the required JSON shape.\n\n"+
			"Your response:\n%s\n\nParse error: %v\n\n"+
			"Return ONLY corrected JSON matching the required shape. No prose, no code fences.",
		badOutput, parseErr,
	)
}

// extractJSON strips markdown code fences models sometimes wrap JSON in
// despite being told not to.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
