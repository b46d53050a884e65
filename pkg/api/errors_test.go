package api

import (
	"fmt"
	"net/http"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

func TestMapStageError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
	}{
		{
			name:       "invalid request maps to 400",
			err:        fmt.Errorf("wrapped: %w", models.ErrInvalidRequest),
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "invalid params maps to 400",
			err:        fmt.Errorf("wrapped: %w", models.ErrInvalidParams),
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "unknown query maps to 404",
			err:        fmt.Errorf("wrapped: %w", models.ErrUnknownQuery),
			expectCode: http.StatusNotFound,
		},
		{
			name:       "cancelled maps to 408",
			err:        fmt.Errorf("wrapped: %w", models.ErrCancelled),
			expectCode: http.StatusRequestTimeout,
		},
		{
			name:       "upstream timeout maps to 504",
			err:        fmt.Errorf("wrapped: %w", models.ErrUpstreamTimeout),
			expectCode: http.StatusGatewayTimeout,
		},
		{
			name:       "upstream unavailable maps to 503",
			err:        fmt.Errorf("wrapped: %w", models.ErrUpstreamUnavailable),
			expectCode: http.StatusServiceUnavailable,
		},
		{
			name:       "data unavailable maps to 503",
			err:        fmt.Errorf("wrapped: %w", models.ErrDataUnavailable),
			expectCode: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapStageError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
		})
	}
}
