package ingest

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type bindSessionRequest struct {
	UserEntityID  string `json:"user_entity_id"`
	Authenticated bool   `json:"authenticated"`
}

// NewBindSessionHandler binds the device session to a user.
func NewBindSessionHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bindSessionRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid session body").SetInternal(err)
		}
		if req.UserEntityID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "user_entity_id is required")
		}

		ctx := c.Request().Context()
		if err := deps.Session.Bind(ctx, req.UserEntityID, req.Authenticated); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to bind session").SetInternal(err)
		}
		deps.Logger.InfoContext(ctx, "Session bound", "user_entity_id", req.UserEntityID, "authenticated", req.Authenticated)
		return c.NoContent(http.StatusNoContent)
	}
}

// NewClearSessionHandler detaches the device session.
func NewClearSessionHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := deps.Session.Clear(ctx); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear session").SetInternal(err)
		}
		deps.Logger.InfoContext(ctx, "Session cleared")
		return c.NoContent(http.StatusNoContent)
	}
}
