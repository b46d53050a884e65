package api

import (
	echo "github.com/labstack/echo/v5"
)

// extractPrincipal reads the already-authenticated caller identity from
// oauth2-proxy-style headers. spec.md §1's Non-goals exclude session
// authentication — "the engine assumes the caller supplies an
// already-authenticated principal" — this is that boundary: the engine
// never authenticates, it only reads what an upstream proxy already
// verified, for attributing Chat Memory entries.
// Priority: X-Forwarded-User > X-Forwarded-Email > "api-client"
func extractPrincipal(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}
