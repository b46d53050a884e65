package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/conversa-analytics/insights-engine/pkg/models"
)

// mapStageError maps a models.StageError's sentinel kind to an HTTP error
// response, the same kind-to-status dispatch tarsy's mapServiceError uses
// for its own service-layer sentinel errors.
func mapStageError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, models.ErrInvalidParams):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnknownQuery):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrCancelled):
		return echo.NewHTTPError(http.StatusRequestTimeout, err.Error())
	case errors.Is(err, models.ErrUpstreamTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, models.ErrUpstreamUnavailable), errors.Is(err, models.ErrDataUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("unexpected pipeline error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
