package ingest

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewHealthHandler reports whether the store is reachable.
func NewHealthHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := deps.Store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
