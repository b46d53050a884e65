// Package orchestrator implements the Pipeline Orchestrator (C7): a single
// state machine function that threads a Conversation State through the
// classify, fetch_data, present, and reflect stages until it reaches a
// terminal state.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/conversa-analytics/insights-engine/pkg/classify"
	"github.com/conversa-analytics/insights-engine/pkg/dataagent"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/conversa-analytics/insights-engine/pkg/presentation"
)

// DefaultRequestDeadline is REQUEST_DEADLINE_SECONDS's default from spec.md
// §6 — the whole-request wall clock budget Run wraps ctx in.
const DefaultRequestDeadline = 180 * time.Second

// DefaultMaxRetries is spec.md §4.7's reflect-loop cap.
const DefaultMaxRetries = 3

// SummaryGenerator is the orchestrator's optional closing step: one
// plain-language sentence synthesized from the finished Dashboard
// Specification, for a session list / history view. A nil SummaryGenerator
// (or any error it returns) is fail-open — it never affects FinishReason.
type SummaryGenerator interface {
	Summarize(ctx context.Context, question string, spec *models.DashboardSpec) (string, error)
}

// Orchestrator is the Pipeline Orchestrator (C7).
type Orchestrator struct {
	classifier *classify.Classifier
	dataAgent  *dataagent.Agent
	presenter  *presentation.Builder
	summary    SummaryGenerator
	deadline   time.Duration
}

// New builds a Pipeline Orchestrator. summary may be nil, in which case no
// executive summary is ever produced. deadline <= 0 uses
// DefaultRequestDeadline.
func New(classifier *classify.Classifier, dataAgent *dataagent.Agent, presenter *presentation.Builder, summary SummaryGenerator, deadline time.Duration) *Orchestrator {
	if deadline <= 0 {
		deadline = DefaultRequestDeadline
	}
	return &Orchestrator{classifier: classifier, dataAgent: dataAgent, presenter: presenter, summary: summary, deadline: deadline}
}

// Run drives state through the pipeline until it reaches StageEnd and
// returns it. state.Stage may be left zero-valued by the caller, in which
// case it starts at StageStart; state.MaxRetries defaults to
// DefaultMaxRetries when zero.
func (o *Orchestrator) Run(ctx context.Context, state *models.ConversationState) *models.ConversationState {
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	if state.MaxRetries <= 0 {
		state.MaxRetries = DefaultMaxRetries
	}
	if state.Stage == "" {
		state.Stage = models.StageStart
	}

	for state.Stage != models.StageEnd {
		if c := mapCancellation(ctx); c != nil {
			state.Err = c.err
			state.FinishReason = c.finish
			state.Stage = models.StageEnd
			break
		}

		switch state.Stage {
		case models.StageStart:
			state.Stage = models.StageClassify
		case models.StageClassify:
			o.runClassify(ctx, state)
		case models.StageFetchData:
			o.runFetchData(ctx, state)
		case models.StageReflect:
			o.runReflect(state)
		case models.StagePresent:
			o.runPresent(ctx, state)
		default:
			state.Stage = models.StageEnd
		}
	}

	o.closeOut(ctx, state)
	return state
}

func (o *Orchestrator) runClassify(ctx context.Context, state *models.ConversationState) {
	decision, err := o.classifier.Classify(ctx, classify.Input{
		Question:     state.Question,
		ChatContext:  state.ChatContext,
		PrevTurnKind: state.PrevTurnKind,
	})
	if err != nil {
		state.Err = err
		state.FinishReason = models.FinishError
		state.Stage = models.StageEnd
		state.RecordStep(models.StageClassify, models.StepStatusError, time.Now(), "classification failed", err.Error())
		return
	}

	state.RoutingDecision = &decision
	state.RecordStep(models.StageClassify, models.StepStatusDone, time.Now(), decision.Kind, decision.Rationale)

	if decision.IsTerminal() {
		state.FinishReason = models.FinishComplete
		state.Stage = models.StageEnd
		return
	}
	state.Stage = models.StageFetchData
}

func (o *Orchestrator) runFetchData(ctx context.Context, state *models.ConversationState) {
	dr := dataagent.DateRange{From: state.DateFrom, To: state.DateTo}
	payload, steps, err := o.dataAgent.FetchExcluding(ctx, state.Question, dr, state.ChatContext, *state.RoutingDecision, state.ExcludedQueryIDs)
	state.AgentSteps = append(state.AgentSteps, steps...)

	if err != nil {
		state.Err = err
		if state.CanRetry() {
			state.Stage = models.StageReflect
			return
		}
		state.FinishReason = models.FinishError
		state.Stage = models.StageEnd
		return
	}

	state.DataPayload = payload
	state.Err = nil
	if state.RoutingDecision.Kind == models.KindDashboard {
		state.Stage = models.StagePresent
		return
	}
	state.FinishReason = models.FinishComplete
	state.Stage = models.StageEnd
}

// runReflect implements spec.md §4.7's retry adjustment: drop the query id(s)
// that failed on the last fetch_data attempt and widen the date range by one
// day on each side, then loop back to fetch_data.
func (o *Orchestrator) runReflect(state *models.ConversationState) {
	state.RetryCount++

	failing := failingQueryIDs(state.AgentSteps)
	state.ExcludedQueryIDs = append(state.ExcludedQueryIDs, failing...)

	if from, to, err := widenByOneDay(state.DateFrom, state.DateTo); err == nil {
		state.DateFrom, state.DateTo = from, to
	}

	detail := ""
	if state.Err != nil {
		detail = state.Err.Error()
	}
	state.RecordStep(models.StageReflect, models.StepStatusDone, time.Now(),
		fmt.Sprintf("retry %d/%d: excluding %v, range now %s..%s", state.RetryCount, state.MaxRetries, failing, state.DateFrom, state.DateTo),
		detail)

	state.Stage = models.StageFetchData
}

func (o *Orchestrator) runPresent(ctx context.Context, state *models.ConversationState) {
	period := fmt.Sprintf("%s to %s", state.DateFrom, state.DateTo)
	spec, err := o.presenter.Build(ctx, state.Question, period, state.DataPayload, *state.RoutingDecision)
	if err != nil {
		state.Err = err
		state.RecordStep(models.StagePresent, models.StepStatusError, time.Now(), "presentation failed", err.Error())
		if state.CanRetry() {
			state.Stage = models.StageReflect
			return
		}
		state.FinishReason = models.FinishError
		state.Stage = models.StageEnd
		return
	}

	state.DashboardSpec = spec
	state.Err = nil
	state.FinishReason = models.FinishComplete
	state.RecordStep(models.StagePresent, models.StepStatusDone, time.Now(), "dashboard built", "")
	state.Stage = models.StageEnd
}

// closeOut applies a final cancellation override (a timeout tripped during
// runPresent/runFetchData's last call may not yet be reflected in
// FinishReason) and then attempts the best-effort executive summary.
// Fail-open: a summary error never changes FinishReason, mirroring tarsy's
// generateExecutiveSummary.
func (o *Orchestrator) closeOut(ctx context.Context, state *models.ConversationState) {
	if state.FinishReason != models.FinishComplete {
		if c := mapCancellation(ctx); c != nil {
			state.Err = c.err
			state.FinishReason = c.finish
		}
	}

	if o.summary == nil || state.DashboardSpec == nil {
		return
	}
	text, err := o.summary.Summarize(ctx, state.Question, state.DashboardSpec)
	if err != nil {
		state.ExecutiveSummaryError = err.Error()
		state.RecordStep("executive_summary", models.StepStatusError, time.Now(), "executive summary generation failed", err.Error())
		return
	}
	state.ExecutiveSummary = text
}

// failingQueryIDs returns the query ids that failed in the most recent
// fetch_data batch, identified by walking back from the end of steps to the
// "data_agent.select" marker that precedes each batch.
func failingQueryIDs(steps []models.AgentStep) []string {
	var out []string
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Stage == "data_agent.select" {
			break
		}
		if s.Stage == "data_agent.query" && s.Status == "failed" {
			out = append(out, s.Message)
		}
	}
	return out
}

func widenByOneDay(from, to string) (string, string, error) {
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		return from, to, err
	}
	t, err := time.Parse("2006-01-02", to)
	if err != nil {
		return from, to, err
	}
	return f.AddDate(0, 0, -1).Format("2006-01-02"), t.AddDate(0, 0, 1).Format("2006-01-02"), nil
}

type cancellation struct {
	err    error
	finish string
}

// mapCancellation checks whether ctx has already ended and, if so, returns
// the terminal state to apply — nil otherwise. Grounded on tarsy's
// mapCancellation helper in pkg/queue/executor.go: a deadline is an error,
// an explicit cancellation is its own finish reason.
func mapCancellation(ctx context.Context) *cancellation {
	if ctx.Err() == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return &cancellation{
			err:    models.NewStageError("orchestrator", models.ErrUpstreamTimeout, "request deadline exceeded"),
			finish: models.FinishError,
		}
	}
	return &cancellation{
		err:    models.NewStageError("orchestrator", models.ErrCancelled, "request cancelled"),
		finish: models.FinishCancelled,
	}
}
