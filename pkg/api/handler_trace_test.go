package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTraceHandlerReturnsCachedTrace(t *testing.T) {
	s := newTestServer()

	runBody := strings.NewReader(`{"question":"hello"}`)
	runReq := httptest.NewRequest(http.MethodPost, "/api/insights/run", runBody)
	runReq.Header.Set("Content-Type", "application/json")
	runRec := httptest.NewRecorder()
	s.echo.ServeHTTP(runRec, runReq)
	require.Equal(t, http.StatusOK, runRec.Code)

	var runResp ChatResponse
	require.NoError(t, json.Unmarshal(runRec.Body.Bytes(), &runResp))
	require.NotEmpty(t, runResp.TraceID)

	traceReq := httptest.NewRequest(http.MethodGet, "/api/sessions/"+runResp.TraceID, nil)
	traceRec := httptest.NewRecorder()
	s.echo.ServeHTTP(traceRec, traceReq)

	assert.Equal(t, http.StatusOK, traceRec.Code)
	assert.Contains(t, traceRec.Body.String(), runResp.TraceID)
}

func TestGetTraceHandlerUnknownTraceReturns404(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelInsightsHandlerUnknownTraceIsNotAnError(t *testing.T) {
	s := newTestServer()

	body := strings.NewReader(`{"trace_id":"does-not-exist"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/insights/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"does-not-exist"`)
}

func TestCancelInsightsHandlerRequiresTraceID(t *testing.T) {
	s := newTestServer()

	body := strings.NewReader(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/insights/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelInsightsHandlerInvokesRegisteredCancel(t *testing.T) {
	s := newTestServer()

	ctx, cancel := s.registerCancellable(context.Background(), "trace-123")
	defer cancel()

	body := strings.NewReader(`{"trace_id":"trace-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/insights/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Error(t, ctx.Err(), "registered cancel func should have been invoked")
}
