package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifierConfig() *config.ClassifierConfig {
	seed := config.GetBuiltinConfig()
	return &seed.Classifier
}

func TestClassifyConversationalShortcut(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{Question: "Hola, gracias!"})
	require.NoError(t, err)
	assert.Equal(t, models.KindConversational, decision.Kind)
	assert.NotEmpty(t, decision.DirectAnswer)
}

func TestClassifyAmbiguityWithoutContext(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{Question: "and this?"})
	require.NoError(t, err)
	assert.Equal(t, models.KindClarification, decision.Kind)
}

func TestClassifyAmbiguitySkippedWhenChatContextPresent(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{
		Question:    "and this?",
		ChatContext: "previous turn discussed total sales for march",
	})
	require.NoError(t, err)
	// no domain/data vocabulary present either, so this falls through to
	// stage 2's nil-llm fallback decision
	assert.Equal(t, models.KindDataOnly, decision.Kind)
}

func TestClassifyAmbiguitySkippedAfterRepeatedClarification(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{
		Question:     "and this?",
		PrevTurnKind: models.KindClarification,
	})
	require.NoError(t, err)
	assert.NotEqual(t, models.KindClarification, decision.Kind)
}

func TestClassifyDataVocabulary(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{Question: "how many total sales last month"})
	require.NoError(t, err)
	assert.Equal(t, models.KindDataOnly, decision.Kind)
	assert.Equal(t, models.DomainSales, decision.Domain)
}

func TestClassifyDashboardVocabulary(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	decision, err := c.Classify(context.Background(), Input{Question: "show me a chart comparing inventory"})
	require.NoError(t, err)
	assert.Equal(t, models.KindDashboard, decision.Kind)
	assert.Equal(t, models.DomainInventory, decision.Domain)
}

func TestClassifyDomainOrderSensitiveSubstring(t *testing.T) {
	c := New(testClassifierConfig(), nil, false)

	// "inventario" contains "venta" as a substring; the longer, more
	// specific keyword must win.
	decision, err := c.Classify(context.Background(), Input{Question: "total inventario disponible"})
	require.NoError(t, err)
	assert.Equal(t, models.DomainInventory, decision.Domain)
}

type fakeLLMFallback struct {
	decision models.RoutingDecision
	err      error
}

func (f *fakeLLMFallback) Classify(ctx context.Context, question, chatContext string) (models.RoutingDecision, error) {
	return f.decision, f.err
}

func TestClassifyFallsThroughToLLMWhenNoKeywordsMatch(t *testing.T) {
	llm := &fakeLLMFallback{decision: models.RoutingDecision{Kind: models.KindDataOnly, Domain: models.DomainSales, Confidence: 0.7}}
	c := New(testClassifierConfig(), llm, false)

	decision, err := c.Classify(context.Background(), Input{Question: "tell me about widget xyz123"})
	require.NoError(t, err)
	assert.Equal(t, models.KindDataOnly, decision.Kind)
	assert.Equal(t, 0.7, decision.Confidence)
}

func TestClassifyLLMErrorFallsBackToDefault(t *testing.T) {
	llm := &fakeLLMFallback{err: errors.New("malformed json")}
	c := New(testClassifierConfig(), llm, false)

	decision, err := c.Classify(context.Background(), Input{Question: "tell me about widget xyz123"})
	require.NoError(t, err)
	assert.Equal(t, models.KindDataOnly, decision.Kind)
	assert.Less(t, decision.Confidence, 0.5)
}
