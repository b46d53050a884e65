package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/conversa-analytics/insights-engine/pkg/memory"
	"github.com/conversa-analytics/insights-engine/pkg/models"
	"github.com/conversa-analytics/insights-engine/pkg/stream"
)

// memoryContextMessages caps how many prior turns render_context pulls in
// for the classifier/data agent's chat_context input.
const memoryContextMessages = 10

// chatStreamHandler handles POST /v1/chat/stream: runs the pipeline to
// completion, then replays the resulting Conversation State as the
// event-ordered SSE stream spec.md §4.8 defines. The pipeline itself is not
// token-streamed — the narrative text each stage produces is already final
// by the time it reaches this handler, so text-start/text-delta/text-end
// wraps it as a single fragment rather than a live token feed.
func (s *Server) chatStreamHandler(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	stream.SetHeaders(c.Response())
	emitter, err := stream.New(c.Response(), false)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	state := s.buildInitialState(req)
	ctx, cancel := s.registerCancellable(c.Request().Context(), state.TraceID)
	defer cancel()

	messageID := state.TraceID
	if err := emitter.Start(messageID); err != nil {
		return nil
	}
	if err := emitter.DataTrace(state.TraceID); err != nil {
		return nil
	}

	result := s.orchestrator.Run(ctx, state)
	s.forgetCancellable(state.TraceID)
	s.cacheTrace(result)
	s.appendMemory(result, extractPrincipal(c))

	for _, step := range result.AgentSteps {
		if err := emitter.DataAgentStep(step); err != nil {
			return nil
		}
	}

	if text := narrativeText(result); text != "" {
		const textID = "t1"
		if err := emitter.TextStart(textID); err != nil {
			return nil
		}
		if err := emitter.TextDelta(textID, text); err != nil {
			return nil
		}
		if err := emitter.TextEnd(textID); err != nil {
			return nil
		}
	}

	if result.DashboardSpec != nil {
		if err := emitter.DataDashboard(result.DashboardSpec); err != nil {
			return nil
		}
	}
	if result.DataPayload != nil {
		if err := emitter.DataPayload(result.DataPayload); err != nil {
			return nil
		}
	}

	if err := emitter.Finish(messageID, finishReasonOrDefault(result)); err != nil {
		return nil
	}
	_ = emitter.Done()
	return nil
}

// runInsightsHandler handles POST /api/insights/run, the non-streaming
// sibling of chatStreamHandler (spec.md §6).
func (s *Server) runInsightsHandler(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	state := s.buildInitialState(req)
	ctx, cancel := s.registerCancellable(c.Request().Context(), state.TraceID)
	defer cancel()

	result := s.orchestrator.Run(ctx, state)
	s.forgetCancellable(state.TraceID)
	s.cacheTrace(result)
	s.appendMemory(result, extractPrincipal(c))

	if result.Err != nil && result.FinishReason != models.FinishComplete {
		return mapStageError(result.Err)
	}

	return c.JSON(http.StatusOK, &ChatResponse{
		TraceID:          result.TraceID,
		FinishReason:     result.FinishReason,
		RoutingDecision:  derefRoutingDecision(result.RoutingDecision),
		DataPayload:      result.DataPayload,
		DashboardSpec:    result.DashboardSpec,
		ExecutiveSummary: result.ExecutiveSummary,
	})
}

func (s *Server) buildInitialState(req ChatRequest) *models.ConversationState {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	chatContext := ""
	if s.memory != nil {
		chatContext = s.memory.RenderContext(threadID, memoryContextMessages)
	}

	return &models.ConversationState{
		TraceID:     uuid.NewString(),
		ThreadID:    threadID,
		Question:    req.Question,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		ChatContext: chatContext,
		MaxRetries:  s.cfg.MaxRetries,
	}
}

// appendMemory records the user's question and the pipeline's final
// narrative text as one exchange in Chat Memory, tagging the user turn with
// the calling principal (spec.md §1's Non-goals exclude authentication —
// extractPrincipal only reads what an upstream proxy already verified). Uses
// context.Background (via memory.Memory's own detached-write timeout) rather
// than the request context, which may already be cancelled by the time this
// runs.
func (s *Server) appendMemory(result *models.ConversationState, principal string) {
	if s.memory == nil {
		return
	}
	s.memory.Append(context.Background(), result.ThreadID, memory.RoleUser, result.Question,
		map[string]any{"principal": principal})
	if text := narrativeText(result); text != "" {
		s.memory.Append(context.Background(), result.ThreadID, memory.RoleAssistant, text, nil)
	}
}

func narrativeText(state *models.ConversationState) string {
	if state.RoutingDecision != nil && state.RoutingDecision.DirectAnswer != "" {
		return state.RoutingDecision.DirectAnswer
	}
	if state.DashboardSpec != nil && state.DashboardSpec.Conclusion != "" {
		return state.DashboardSpec.Conclusion
	}
	return state.ExecutiveSummary
}

func finishReasonOrDefault(state *models.ConversationState) string {
	if state.FinishReason == "" {
		return models.FinishComplete
	}
	return state.FinishReason
}

func derefRoutingDecision(d *models.RoutingDecision) models.RoutingDecision {
	if d == nil {
		return models.RoutingDecision{}
	}
	return *d
}

// cacheTrace stores the terminal Conversation State in the bounded trace
// cache the supplemented GET /api/sessions/:trace_id endpoint reads from.
func (s *Server) cacheTrace(state *models.ConversationState) {
	if s.traceCache == nil {
		return
	}
	s.traceCache.Set("trace", map[string]any{"trace_id": state.TraceID}, state)
}
