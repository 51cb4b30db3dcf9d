// Package router maps the HTTP API onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/handler"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, ready map[string]handler.Check) {
	// liveness: the process is up
	e.GET("/healthz", handler.Health)
	// readiness: the database (and Redis, when configured) answer
	e.GET("/readyz", handler.Ready(ready))
}
