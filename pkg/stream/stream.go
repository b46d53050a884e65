// Package stream implements the Stream Emitter (C8): frames pipeline events
// as Server-Sent Events over a single long-lived HTTP response, enforcing
// spec.md §4.8's ordering invariants as it goes.
package stream

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// Event type names, the wire contract spec.md §4.8 says must never be
// renamed or reordered without a client version bump.
const (
	TypeStart        = "start"
	TypeTextStart    = "text-start"
	TypeTextDelta    = "text-delta"
	TypeTextEnd      = "text-end"
	TypeDataTrace    = "data-trace"
	TypeDataAgentStep = "data-agent_step"
	TypeDataDashboard = "data-dashboard"
	TypeDataPayload   = "data-payload"
	TypeFinish        = "finish"
)

// event is the wire envelope. Fields are omitted by sonic's omitempty when
// unused by a given event type.
type event struct {
	Type         string `json:"type"`
	MessageID    string `json:"messageId,omitempty"`
	TextID       string `json:"textId,omitempty"`
	Delta        string `json:"delta,omitempty"`
	Data         any    `json:"data,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

// SetHeaders sets the response headers spec.md §6 requires for the SSE
// response, before the first byte of the body is written.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
}

// phase tracks the emitter's position in the ordering state machine spec.md
// §4.8 requires: exactly one start, well-nested text blocks, data-dashboard
// before data-payload, exactly one finish, [DONE] last.
type phase int

const (
	phaseBeforeStart phase = iota
	phaseOpen
	phaseInTextBlock
	phaseFinished
	phaseDone
)

// Emitter writes one request's SSE event sequence. It is not safe for
// concurrent use — a request has exactly one orchestrator driving exactly
// one emitter.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	strict  bool // panics on an ordering violation instead of returning an error; tests only

	phase        phase
	textID       string
	sawDashboard bool
	sawPayload   bool
}

// New wraps w for SSE emission. strict should be true only in tests — in
// production a violated ordering invariant is a programming error in the
// orchestrator, not something worth crashing a live response over.
func New(w http.ResponseWriter, strict bool) (*Emitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("stream: response writer does not support flushing")
	}
	return &Emitter{w: w, flusher: flusher, strict: strict}, nil
}

func (e *Emitter) violate(msg string) error {
	if e.strict {
		panic("stream: " + msg)
	}
	return fmt.Errorf("stream: %s", msg)
}

func (e *Emitter) write(ev event) error {
	body, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("stream: marshal event %q: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", body); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// Start emits the single required start event.
func (e *Emitter) Start(messageID string) error {
	if e.phase != phaseBeforeStart {
		return e.violate("start emitted more than once")
	}
	e.phase = phaseOpen
	return e.write(event{Type: TypeStart, MessageID: messageID})
}

// TextStart opens a text block.
func (e *Emitter) TextStart(textID string) error {
	if e.phase != phaseOpen {
		return e.violate("text-start outside an open block or before start")
	}
	e.phase = phaseInTextBlock
	e.textID = textID
	return e.write(event{Type: TypeTextStart, TextID: textID})
}

// TextDelta appends a fragment to the currently open text block.
func (e *Emitter) TextDelta(textID, delta string) error {
	if e.phase != phaseInTextBlock || e.textID != textID {
		return e.violate("text-delta outside its text-start/text-end block")
	}
	return e.write(event{Type: TypeTextDelta, TextID: textID, Delta: delta})
}

// TextEnd closes the currently open text block.
func (e *Emitter) TextEnd(textID string) error {
	if e.phase != phaseInTextBlock || e.textID != textID {
		return e.violate("text-end without a matching text-start")
	}
	e.phase = phaseOpen
	e.textID = ""
	return e.write(event{Type: TypeTextEnd, TextID: textID})
}

// DataTrace emits the correlation id callers should use when filing a
// support request or grepping logs for this run. traceID is the pipeline's
// own generated trace id (models.ConversationState.TraceID), not a tracing
// span id — nothing in this codebase starts an OTel span, so a real one is
// never available here.
func (e *Emitter) DataTrace(traceID string) error {
	if e.phase != phaseOpen {
		return e.violate("data-trace inside a text block")
	}
	return e.write(event{Type: TypeDataTrace, Data: map[string]string{"trace_id": traceID}})
}

// DataAgentStep emits one pipeline step trace entry.
func (e *Emitter) DataAgentStep(step models.AgentStep) error {
	if e.phase != phaseOpen {
		return e.violate("data-agent_step inside a text block")
	}
	return e.write(event{Type: TypeDataAgentStep, Data: step})
}

// DataDashboard emits the Dashboard Specification. Must precede DataPayload
// when both are emitted.
func (e *Emitter) DataDashboard(spec *models.DashboardSpec) error {
	if e.phase != phaseOpen {
		return e.violate("data-dashboard inside a text block")
	}
	if e.sawPayload {
		return e.violate("data-dashboard emitted after data-payload")
	}
	e.sawDashboard = true
	return e.write(event{Type: TypeDataDashboard, Data: spec})
}

// DataPayload emits the Data Payload.
func (e *Emitter) DataPayload(payload *models.DataPayload) error {
	if e.phase != phaseOpen {
		return e.violate("data-payload inside a text block")
	}
	e.sawPayload = true
	return e.write(event{Type: TypeDataPayload, Data: payload})
}

// Finish emits the single required finish event and marks the stream ready
// for the [DONE] terminator.
func (e *Emitter) Finish(messageID, finishReason string) error {
	if e.phase != phaseOpen {
		return e.violate("finish inside an open text block, or before start")
	}
	e.phase = phaseFinished
	return e.write(event{Type: TypeFinish, MessageID: messageID, FinishReason: finishReason})
}

// Done writes the literal [DONE] terminator line, which must be the last
// line of the response.
func (e *Emitter) Done() error {
	if e.phase != phaseFinished {
		return e.violate("[DONE] emitted before finish")
	}
	e.phase = phaseDone
	if _, err := fmt.Fprint(e.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}
