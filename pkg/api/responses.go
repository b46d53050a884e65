package api

import "github.com/conversa-analytics/insights-engine/pkg/models"

// ChatResponse is returned by POST /api/insights/run, the non-streaming
// sibling of POST /v1/chat/stream.
type ChatResponse struct {
	TraceID           string                `json:"trace_id"`
	FinishReason      string                `json:"finish_reason"`
	RoutingDecision   models.RoutingDecision `json:"routing_decision"`
	DataPayload       *models.DataPayload   `json:"data_payload,omitempty"`
	DashboardSpec     *models.DashboardSpec `json:"dashboard_spec,omitempty"`
	ExecutiveSummary  string                `json:"executive_summary,omitempty"`
}

// CancelResponse is returned by POST /api/insights/cancel.
type CancelResponse struct {
	TraceID string `json:"trace_id"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// QueryListEntry summarizes one catalog query for GET /api/queries.
type QueryListEntry struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	OutputKind  string   `json:"output_kind"`
	OutputRef   string   `json:"output_ref"`
	DomainHints []string `json:"domain_hints,omitempty"`
}
