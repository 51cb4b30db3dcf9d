package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe. It returns a plain text "ok" while the
// process is serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Check is one readiness dependency, e.g. a database or Redis ping.
type Check func(ctx context.Context) error

// Ready returns the readiness probe. Each named check runs with a short
// timeout; any failure answers 503 with the per-check status.
func Ready(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		return c.JSON(status, envelope{Code: status, Msg: http.StatusText(status), Data: report})
	}
}
