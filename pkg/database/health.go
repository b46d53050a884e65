package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus reports database connectivity and connection pool stats, for
// the /api/health endpoint.
type HealthStatus struct {
	Status          string `json:"status"`
	ResponseTime    int64  `json:"response_time_ms"`
	OpenConnections int32  `json:"open_connections"`
	IdleConnections int32  `json:"idle_connections"`
	MaxConnections  int32  `json:"max_connections"`
}

// Health pings pool and returns its connectivity and stats.
func Health(ctx context.Context, pool *pgxpool.Pool) (*HealthStatus, error) {
	start := time.Now()

	if err := pool.Ping(ctx); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start).Milliseconds()}, err
	}

	stats := pool.Stat()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		OpenConnections: stats.TotalConns(),
		IdleConnections: stats.IdleConns(),
		MaxConnections:  stats.MaxConns(),
	}, nil
}
