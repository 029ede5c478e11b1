package ingest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edgard/pushrouter/internal/push"
)

type pushResponse struct {
	Status      string           `json:"status"`
	Destination push.Destination `json:"destination,omitempty"`
	Target      string           `json:"target,omitempty"`
	RequestID   string           `json:"request_id,omitempty"`
}

// NewPushHandler accepts one raw push event and runs it through the engine.
func NewPushHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var raw push.RawEvent
		if err := c.Bind(&raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid push event body").SetInternal(err)
		}
		if raw.Action == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "action is required")
		}

		res, err := deps.Engine.Handle(c.Request().Context(), raw)
		if err != nil {
			if errors.Is(err, push.ErrMalformedPayload) {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to handle push event").SetInternal(err)
		}

		resp := pushResponse{
			Status:    string(res.Status),
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		}
		if res.Decision != nil {
			resp.Destination = res.Decision.Destination
			resp.Target = res.Decision.Target
		}
		return c.JSON(http.StatusAccepted, resp)
	}
}
