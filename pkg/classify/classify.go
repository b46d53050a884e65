// Package classify implements the Intent Classifier (C4): maps a question
// plus chat context to a Routing Decision via a deterministic keyword stage
// followed by an LLM fallback stage.
package classify

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// ambiguityQuestionThreshold caps the rune length a question may have before
// it is no longer considered "short enough" to be an ambiguous back-reference
// on its own (spec.md §4.4 step 2).
const ambiguityQuestionThreshold = 40

// canned conversational reply. Kept short and generic; the orchestrator
// emits it verbatim as direct_answer without further LLM involvement.
const conversationalReply = "Happy to help — ask me about your sales, inventory, or customer numbers."

const clarificationPrompt = "Could you be more specific? Let me know what metric, product, or time period you mean."

// LLMFallback is Stage 2: a structured classification call to a language
// model, used only when the deterministic stage can't produce a confident
// decision. Implementations must apply their own single repair attempt
// internally (spec.md §4.4's "one round of repair" is an LLM-provider
// concern, not a classifier concern) and return models.ErrLLMParseError if
// both attempts fail.
type LLMFallback interface {
	Classify(ctx context.Context, question, chatContext string) (models.RoutingDecision, error)
}

// Input is everything the classifier needs about one turn.
type Input struct {
	Question     string
	ChatContext  string
	PrevTurnKind string // the Kind of the previous turn's RoutingDecision, "" if none
}

// Classifier is the Intent Classifier (C4).
type Classifier struct {
	cfg                *config.ClassifierConfig
	llm                LLMFallback
	ambiguousBestGuess bool
}

// New builds a Classifier. llm may be nil, in which case Stage 2 always
// falls back to the default data_only decision described in spec.md §4.4.
func New(cfg *config.ClassifierConfig, llm LLMFallback, ambiguousBestGuess bool) *Classifier {
	return &Classifier{cfg: cfg, llm: llm, ambiguousBestGuess: ambiguousBestGuess}
}

// Classify runs the two-stage classification and returns a RoutingDecision.
func (c *Classifier) Classify(ctx context.Context, in Input) (models.RoutingDecision, error) {
	normalized := fold(in.Question)

	if decision, ok := c.matchConversational(normalized); ok {
		return decision, nil
	}

	if decision, ok := c.matchAmbiguity(normalized, in); ok {
		return decision, nil
	}

	needsData := containsAny(normalized, c.cfg.DataVocabulary)
	needsDashboard := containsAny(normalized, c.cfg.DashboardVocabulary)
	domain := c.matchDomain(normalized)

	if !needsData && !needsDashboard {
		return c.stage2(ctx, in, domain)
	}

	return c.synthesize(needsData, needsDashboard, domain), nil
}

// matchConversational matches patterns against whole words only, so a short
// greeting such as "hi" does not fire inside "this".
func (c *Classifier) matchConversational(normalized string) (models.RoutingDecision, bool) {
	notWord := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
	words := " " + strings.Join(strings.FieldsFunc(normalized, notWord), " ") + " "
	for _, pattern := range c.cfg.ConversationalPatterns {
		phrase := " " + strings.Join(strings.FieldsFunc(fold(pattern), notWord), " ") + " "
		if strings.Contains(words, phrase) {
			return models.RoutingDecision{
				Kind:         models.KindConversational,
				Domain:       models.DomainUnknown,
				Confidence:   1.0,
				Rationale:    "matched conversational pattern",
				DirectAnswer: conversationalReply,
			}, true
		}
	}
	return models.RoutingDecision{}, false
}

func (c *Classifier) matchAmbiguity(normalized string, in Input) (models.RoutingDecision, bool) {
	if len([]rune(normalized)) >= ambiguityQuestionThreshold {
		return models.RoutingDecision{}, false
	}
	if in.ChatContext != "" {
		return models.RoutingDecision{}, false
	}
	if !containsAny(normalized, c.cfg.AmbiguityPronouns) {
		return models.RoutingDecision{}, false
	}

	// A clarification loop never asks twice in a row: if the previous turn
	// was already a clarification, proceed with a best guess instead of
	// stalling the conversation (spec.md §4.4 synthesis rule).
	if in.PrevTurnKind == models.KindClarification {
		return models.RoutingDecision{}, false
	}

	return models.RoutingDecision{
		Kind:       models.KindClarification,
		Domain:     models.DomainUnknown,
		Confidence: 0.5,
		Rationale:  "short question with an unresolved back-reference and no chat context",
		DirectAnswer: clarificationPrompt,
	}, true
}

func (c *Classifier) matchDomain(normalized string) string {
	for _, dk := range c.cfg.SortedDomainKeywords() {
		if strings.Contains(normalized, fold(dk.Keyword)) {
			return dk.Domain
		}
	}
	return models.DomainUnknown
}

func (c *Classifier) synthesize(needsData, needsDashboard bool, domain string) models.RoutingDecision {
	switch {
	case needsDashboard:
		return models.RoutingDecision{Kind: models.KindDashboard, Domain: domain, Confidence: 0.9, Rationale: "dashboard vocabulary matched"}
	case needsData:
		return models.RoutingDecision{Kind: models.KindDataOnly, Domain: domain, Confidence: 0.9, Rationale: "data vocabulary matched"}
	default:
		return models.RoutingDecision{Kind: models.KindClarification, Domain: domain, Confidence: 0.3, Rationale: "no deterministic signal", DirectAnswer: clarificationPrompt}
	}
}

func (c *Classifier) stage2(ctx context.Context, in Input, domain string) (models.RoutingDecision, error) {
	if c.llm == nil {
		return c.fallbackDecision(domain), nil
	}

	decision, err := c.llm.Classify(ctx, in.Question, in.ChatContext)
	if err != nil {
		// Second repair attempt (internal to the LLM capability) also
		// failed: fall back to a default low-confidence data_only decision
		// rather than failing the whole pipeline on a classification miss.
		return c.fallbackDecision(domain), nil
	}

	if in.PrevTurnKind == models.KindClarification && decision.Kind == models.KindClarification && !c.ambiguousBestGuess {
		return decision, nil
	}
	if in.PrevTurnKind == models.KindClarification && decision.Kind == models.KindClarification && c.ambiguousBestGuess {
		decision.Kind = models.KindDataOnly
		decision.Rationale += "; best-guess override of repeated clarification"
	}

	return decision, nil
}

func (c *Classifier) fallbackDecision(domain string) models.RoutingDecision {
	return models.RoutingDecision{
		Kind:       models.KindDataOnly,
		Domain:     domain,
		Confidence: 0.2,
		Rationale:  "LLM classification unavailable or malformed; defaulted to data_only",
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, fold(n)) {
			return true
		}
	}
	return false
}

// fold lowercases and strips accents/diacritics so "inventario" and
// "Inventario" and "invéntario" all match the same keyword entry.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
