package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listQueriesHandler handles GET /api/queries, exposing the catalog
// registry so callers can see what queries exist without reading
// catalog.yaml directly. The data agent's LLM-selector prompt lists the same
// registry through its own text rendering (dataagent's catalogDescription).
func (s *Server) listQueriesHandler(c *echo.Context) error {
	entries := s.catalog.GetAll()
	out := make([]QueryListEntry, 0, len(entries))
	for _, q := range entries {
		out = append(out, QueryListEntry{
			ID:          q.ID,
			Description: q.Description,
			OutputKind:  q.OutputKind,
			OutputRef:   q.OutputRef,
			DomainHints: q.DomainHints,
		})
	}
	return c.JSON(http.StatusOK, out)
}
