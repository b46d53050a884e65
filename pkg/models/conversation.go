package models

import "time"

// Pipeline stage names, used both as ConversationState.Stage values and as
// AgentStep.Stage values.
const (
	StageStart      = "start"
	StageClassify   = "classify"
	StageFetchData  = "fetch_data"
	StageReflect    = "reflect"
	StagePresent    = "present"
	StageEnd        = "end"
)

// AgentStep statuses, mirroring the data-agent_step stream event's
// data.status enum.
const (
	StepStatusStart    = "start"
	StepStatusProgress = "progress"
	StepStatusDone     = "done"
	StepStatusError    = "error"
)

// AgentStep is one entry in a Conversation State's ordered trace. It is both
// an internal bookkeeping record and, unchanged, the payload of a
// data-agent_step stream event.
type AgentStep struct {
	Stage     string    `json:"step"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"ts"`
	Message   string    `json:"message,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Finish reasons for the terminal "finish" stream event.
const (
	FinishComplete  = "complete"
	FinishError     = "error"
	FinishCancelled = "cancelled"
)

// ConversationState is the pipeline's mutable working memory, threaded
// through each stage function by the Pipeline Orchestrator (C7). It is
// created per request and never shared across requests. Once Stage reaches
// StageEnd no stage runs on it again; only the orchestrator's close-out step
// still writes to it (a cancellation override and the executive summary).
type ConversationState struct {
	// Input.
	TraceID     string
	ThreadID    string
	Question    string
	DateFrom    string
	DateTo      string
	ChatContext string

	// Intermediate.
	RoutingDecision *RoutingDecision
	DataPayload     *DataPayload
	DashboardSpec   *DashboardSpec

	// Control.
	Stage        string
	RetryCount   int
	MaxRetries   int
	Err          error
	AgentSteps   []AgentStep
	PrevTurnKind string // the previous turn's routing kind, for the clarification-loop-back rule

	// ExcludedQueryIDs accumulates query ids the reflect step has decided to
	// drop after a prior fetch_data failure (spec.md §4.7's "drop the
	// failing query id" strategy).
	ExcludedQueryIDs []string

	// FinishReason is set once the state machine reaches StageEnd.
	FinishReason string

	// ExecutiveSummary is the orchestrator's best-effort closing one-liner,
	// synthesized after the pipeline reaches a terminal state. A failure to
	// produce one is recorded in ExecutiveSummaryError, never in Err — it
	// never fails the request (fail-open, mirroring tarsy's
	// generateExecutiveSummary).
	ExecutiveSummary      string
	ExecutiveSummaryError string
}

// RecordStep appends a trace entry. Step recording never fails and never
// blocks; an error's text, when there is one, goes in detail.
func (s *ConversationState) RecordStep(stage, status string, now time.Time, message string, detail string) {
	s.AgentSteps = append(s.AgentSteps, AgentStep{
		Stage:     stage,
		Status:    status,
		Timestamp: now,
		Message:   message,
		Detail:    detail,
	})
}

// CanRetry reports whether another retry is permitted for the current stage.
func (s *ConversationState) CanRetry() bool {
	return s.RetryCount < s.MaxRetries
}
