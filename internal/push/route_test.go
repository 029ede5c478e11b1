package push

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/pushrouter/internal/database"
)

var testTexts = Texts{
	MessageTitle:   "New message",
	MessageTicker:  "You have a new message",
	FollowerTitle:  "New follower",
	FollowerTicker: "Someone followed you",
}

var testNav = StaticNavigator{
	DestinationLogin:          "LoginActivity",
	DestinationMain:           "MainActivity",
	DestinationMainWithThread: "MainActivity",
}

func messageEvent(content string) Event {
	p := testPayload("m-1")
	p.Content = content
	return Event{Kind: KindMessage, Channel: "c-1", Message: &p}
}

func created() Materialization {
	return Materialization{
		Outcome: OutcomeCreated,
		Message: &database.Message{ID: 9, EntityID: "m-1", Date: time.UnixMilli(1700000000123)},
		Thread:  &database.Thread{ID: 4, EntityID: "t-1"},
	}
}

func TestRoute(t *testing.T) {
	t.Parallel()

	r := NewRouter(testTexts, testNav)

	tests := []struct {
		name       string
		ev         Event
		m          Materialization
		state      SessionState
		wantNil    bool
		wantDest   Destination
		wantTarget string
		wantParams *ThreadParams
	}{
		{
			name:    "duplicate authenticated",
			ev:      messageEvent("hi"),
			m:       Materialization{Outcome: OutcomeDuplicate},
			state:   Authenticated,
			wantNil: true,
		},
		{
			name:    "duplicate unauthenticated",
			ev:      messageEvent("hi"),
			m:       Materialization{Outcome: OutcomeDuplicate},
			state:   Unauthenticated,
			wantNil: true,
		},
		{
			name:       "created unauthenticated",
			ev:         messageEvent("hi"),
			m:          created(),
			state:      Unauthenticated,
			wantDest:   DestinationLogin,
			wantTarget: "LoginActivity",
		},
		{
			name:       "rejected unauthenticated",
			ev:         messageEvent("hi"),
			m:          Materialization{Outcome: OutcomeRejected, Reason: ReasonUnresolvedThread},
			state:      Unauthenticated,
			wantDest:   DestinationLogin,
			wantTarget: "LoginActivity",
		},
		{
			name:       "created authenticated",
			ev:         messageEvent("hi"),
			m:          created(),
			state:      Authenticated,
			wantDest:   DestinationMainWithThread,
			wantTarget: "MainActivity",
			wantParams: &ThreadParams{ThreadID: 4, ThreadEntityID: "t-1", FromPush: true, Timestamp: 1700000000123},
		},
		{
			name:       "rejected authenticated",
			ev:         messageEvent("hi"),
			m:          Materialization{Outcome: OutcomeRejected, Reason: ReasonUnresolvedSender},
			state:      Authenticated,
			wantDest:   DestinationMain,
			wantTarget: "MainActivity",
		},
		{
			name:       "follower unauthenticated",
			ev:         Event{Kind: KindFollowerAdded, Follower: &FollowerPayload{Content: "Alice"}},
			state:      Unauthenticated,
			wantDest:   DestinationMain,
			wantTarget: "MainActivity",
		},
		{
			name:       "follower authenticated",
			ev:         Event{Kind: KindFollowerAdded, Follower: &FollowerPayload{Content: "Alice"}},
			state:      Authenticated,
			wantDest:   DestinationMain,
			wantTarget: "MainActivity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := r.Route(tt.ev, tt.m, tt.state)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.ev.Kind, got.Kind)
			assert.Equal(t, tt.wantDest, got.Destination)
			assert.Equal(t, tt.wantTarget, got.Target)
			assert.Equal(t, tt.wantParams, got.Params)
		})
	}
}

func TestRouteNotification(t *testing.T) {
	t.Parallel()

	r := NewRouter(testTexts, testNav)

	t.Run("message uses content", func(t *testing.T) {
		t.Parallel()
		got := r.Route(messageEvent("Bob: hi"), created(), Authenticated)
		require.NotNil(t, got)
		assert.Equal(t, Notification{
			ID:     MessageNotificationID,
			Title:  "New message",
			Ticker: "You have a new message",
			Body:   "Bob: hi",
		}, got.Notification)
	})

	t.Run("message falls back to body", func(t *testing.T) {
		t.Parallel()
		got := r.Route(messageEvent(""), created(), Authenticated)
		require.NotNil(t, got)
		assert.Equal(t, "51.5,-0.1", got.Notification.Body)
	})

	t.Run("follower", func(t *testing.T) {
		t.Parallel()
		ev := Event{Kind: KindFollowerAdded, Follower: &FollowerPayload{Content: "Alice follows you"}}
		got := r.Route(ev, Materialization{}, Authenticated)
		require.NotNil(t, got)
		assert.Equal(t, Notification{
			ID:     FollowerNotificationID,
			Title:  "New follower",
			Ticker: "Someone followed you",
			Body:   "Alice follows you",
		}, got.Notification)
		assert.Nil(t, got.Params)
	})

	t.Run("default navigator uses destination names", func(t *testing.T) {
		t.Parallel()
		got := NewRouter(testTexts, nil).Route(messageEvent("x"), created(), Unauthenticated)
		require.NotNil(t, got)
		assert.Equal(t, "login", got.Target)
	})
}
