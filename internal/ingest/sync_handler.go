package ingest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edgard/pushrouter/internal/database"
)

type syncUser struct {
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	PushChannel string `json:"push_channel"`
}

type syncThread struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
}

type syncMessage struct {
	EntityID       string `json:"entity_id"`
	ThreadEntityID string `json:"thread_entity_id"`
	SenderEntityID string `json:"sender_entity_id"`
	// Date is epoch milliseconds, as on the push wire.
	Date   int64  `json:"message_date"`
	Type   int    `json:"message_type"`
	Text   string `json:"message_payload"`
	IsRead bool   `json:"is_read"`
}

type syncFailure struct {
	EntityID string `json:"entity_id"`
	Error    string `json:"error"`
}

type syncResponse struct {
	Saved    int           `json:"saved"`
	Skipped  int           `json:"skipped"`
	Rejected []syncFailure `json:"rejected,omitempty"`
}

// NewSyncUsersHandler upserts users by entity id.
func NewSyncUsersHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var users []syncUser
		if err := c.Bind(&users); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid users body").SetInternal(err)
		}

		ctx := c.Request().Context()
		var resp syncResponse
		for _, u := range users {
			if u.EntityID == "" {
				resp.Rejected = append(resp.Rejected, syncFailure{Error: "entity_id is required"})
				continue
			}
			err := deps.Store.SaveUser(ctx, &database.User{
				EntityID:    u.EntityID,
				Name:        u.Name,
				PushChannel: u.PushChannel,
			})
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to save user").SetInternal(err)
			}
			resp.Saved++
		}

		deps.Logger.DebugContext(ctx, "Users synced", "saved", resp.Saved, "rejected", len(resp.Rejected))
		return c.JSON(http.StatusOK, resp)
	}
}

// NewSyncThreadsHandler upserts threads by entity id.
func NewSyncThreadsHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var threads []syncThread
		if err := c.Bind(&threads); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid threads body").SetInternal(err)
		}

		ctx := c.Request().Context()
		var resp syncResponse
		for _, t := range threads {
			if t.EntityID == "" {
				resp.Rejected = append(resp.Rejected, syncFailure{Error: "entity_id is required"})
				continue
			}
			if err := deps.Store.SaveThread(ctx, &database.Thread{EntityID: t.EntityID, Name: t.Name}); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to save thread").SetInternal(err)
			}
			resp.Saved++
		}

		deps.Logger.DebugContext(ctx, "Threads synced", "saved", resp.Saved, "rejected", len(resp.Rejected))
		return c.JSON(http.StatusOK, resp)
	}
}

// NewSyncMessagesHandler inserts messages from the normal sync path. It uses
// the same conditional insert as push materialization, so a message that a
// push already created is reported as skipped.
func NewSyncMessagesHandler(deps HandlerDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var messages []syncMessage
		if err := c.Bind(&messages); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid messages body").SetInternal(err)
		}

		ctx := c.Request().Context()
		var resp syncResponse
		for _, m := range messages {
			msg, failure, err := resolveSyncMessage(c, deps.Store, m)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve message").SetInternal(err)
			}
			if failure != "" {
				resp.Rejected = append(resp.Rejected, syncFailure{EntityID: m.EntityID, Error: failure})
				continue
			}

			err = deps.Store.CreateMessage(ctx, msg)
			switch {
			case errors.Is(err, database.ErrDuplicate):
				resp.Skipped++
			case err != nil:
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to create message").SetInternal(err)
			default:
				resp.Saved++
			}
		}

		deps.Logger.DebugContext(ctx, "Messages synced",
			"saved", resp.Saved,
			"skipped", resp.Skipped,
			"rejected", len(resp.Rejected))
		return c.JSON(http.StatusOK, resp)
	}
}

func resolveSyncMessage(c echo.Context, store database.Store, m syncMessage) (*database.Message, string, error) {
	switch {
	case m.EntityID == "":
		return nil, "entity_id is required", nil
	case m.SenderEntityID == "":
		return nil, "sender_entity_id is required", nil
	case m.ThreadEntityID == "":
		return nil, "thread_entity_id is required", nil
	}

	ctx := c.Request().Context()
	sender, err := store.FindUserByEntityID(ctx, m.SenderEntityID)
	if err != nil {
		return nil, "", err
	}
	if sender == nil {
		return nil, fmt.Sprintf("unknown sender %q", m.SenderEntityID), nil
	}
	thread, err := store.FindThreadByEntityID(ctx, m.ThreadEntityID)
	if err != nil {
		return nil, "", err
	}
	if thread == nil {
		return nil, fmt.Sprintf("unknown thread %q", m.ThreadEntityID), nil
	}

	return &database.Message{
		EntityID: m.EntityID,
		ThreadID: thread.ID,
		SenderID: sender.ID,
		Date:     time.UnixMilli(m.Date).UTC(),
		Type:     m.Type,
		Text:     m.Text,
		IsRead:   m.IsRead,
	}, "", nil
}
