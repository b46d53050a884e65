// Package api provides the HTTP API layer for the insights engine.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/conversa-analytics/insights-engine/pkg/config"
	"github.com/conversa-analytics/insights-engine/pkg/database"
	"github.com/conversa-analytics/insights-engine/pkg/memory"
	"github.com/conversa-analytics/insights-engine/pkg/orchestrator"
	"github.com/conversa-analytics/insights-engine/pkg/resultcache"
)

// Server is the HTTP API server fronting the orchestrator pipeline.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg          config.EngineConfig
	dbClient     *database.Client
	catalog      *config.CatalogRegistry
	orchestrator *orchestrator.Orchestrator
	memory       *memory.Memory       // nil when Chat Memory is disabled
	traceCache   *resultcache.Cache   // backs GET /api/sessions/:trace_id

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// NewServer creates a new API server with Echo v5.
func NewServer(
	cfg config.EngineConfig,
	dbClient *database.Client,
	catalog *config.CatalogRegistry,
	orch *orchestrator.Orchestrator,
	mem *memory.Memory,
	traceCache *resultcache.Cache,
) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          cfg,
		dbClient:     dbClient,
		catalog:      catalog,
		orchestrator: orch,
		memory:       mem,
		traceCache:   traceCache,
		cancels:      make(map[string]context.CancelFunc),
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/api/health", s.healthHandler)
	s.echo.GET("/api/queries", s.listQueriesHandler)

	s.echo.POST("/v1/chat/stream", s.chatStreamHandler)
	s.echo.POST("/api/insights/run", s.runInsightsHandler)
	s.echo.POST("/api/insights/cancel", s.cancelInsightsHandler)
	s.echo.GET("/api/sessions/:trace_id", s.getTraceHandler)
}

// Start starts the HTTP server on the given address and blocks until the
// server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// registerCancellable derives a cancellable context for traceID from parent
// and records its CancelFunc so a later POST /api/insights/cancel can reach
// it, mirroring tarsy's session cancellation registry. The returned context
// also carries cfg's request deadline.
func (s *Server) registerCancellable(parent context.Context, traceID string) (context.Context, context.CancelFunc) {
	deadline := time.Duration(s.cfg.RequestDeadlineSeconds) * time.Second
	ctx, cancel := context.WithTimeout(parent, deadline)

	s.cancelMu.Lock()
	s.cancels[traceID] = cancel
	s.cancelMu.Unlock()

	return ctx, cancel
}

// forgetCancellable removes traceID's entry once the pipeline has reached a
// terminal state, so the registry doesn't grow unbounded and a stale cancel
// can't be looked up after the run it belonged to is over.
func (s *Server) forgetCancellable(traceID string) {
	s.cancelMu.Lock()
	delete(s.cancels, traceID)
	s.cancelMu.Unlock()
}
