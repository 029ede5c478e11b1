package ingest

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Route is an HTTP endpoint with its handler.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
}

// routes returns every endpoint except /metrics, which the server owns.
func routes(deps HandlerDeps) []Route {
	return []Route{
		{http.MethodPost, "/v1/push", NewPushHandler(deps)},
		{http.MethodPost, "/v1/sync/users", NewSyncUsersHandler(deps)},
		{http.MethodPost, "/v1/sync/threads", NewSyncThreadsHandler(deps)},
		{http.MethodPost, "/v1/sync/messages", NewSyncMessagesHandler(deps)},
		{http.MethodPut, "/v1/session", NewBindSessionHandler(deps)},
		{http.MethodDelete, "/v1/session", NewClearSessionHandler(deps)},
		{http.MethodGet, "/healthz", NewHealthHandler(deps)},
	}
}
