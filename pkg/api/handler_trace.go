package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// getTraceHandler handles GET /api/sessions/:trace_id, reading the terminal
// Conversation State cacheTrace stored in the trace cache chatStreamHandler
// and runInsightsHandler write to (an instance of C3's resultcache.Cache
// type, separate from the data agent's query result cache).
func (s *Server) getTraceHandler(c *echo.Context) error {
	traceID := c.Param("trace_id")
	if traceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trace_id is required")
	}
	if s.traceCache == nil {
		return echo.NewHTTPError(http.StatusNotFound, "trace not found")
	}

	value, ok := s.traceCache.Get("trace", map[string]any{"trace_id": traceID})
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "trace not found")
	}

	state, ok := value.(*models.ConversationState)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "corrupt trace cache entry")
	}

	return c.JSON(http.StatusOK, &ChatResponse{
		TraceID:          state.TraceID,
		FinishReason:     state.FinishReason,
		RoutingDecision:  derefRoutingDecision(state.RoutingDecision),
		DataPayload:      state.DataPayload,
		DashboardSpec:    state.DashboardSpec,
		ExecutiveSummary: state.ExecutiveSummary,
	})
}

// cancelInsightsHandler handles POST /api/insights/cancel. It looks up the
// in-flight run's cancel func by trace_id and invokes it, the same
// registry-lookup shape as tarsy's cancelSessionHandler. Cancelling a
// trace_id that has already finished (or never existed) is not an error —
// the run is, either way, no longer running.
func (s *Server) cancelInsightsHandler(c *echo.Context) error {
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TraceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trace_id is required")
	}

	s.cancelMu.Lock()
	cancel, found := s.cancels[req.TraceID]
	s.cancelMu.Unlock()

	if found {
		cancel()
	}

	return c.JSON(http.StatusOK, &CancelResponse{
		TraceID: req.TraceID,
		Message: "cancellation requested",
	})
}
