package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func seedThreadAndSender(t *testing.T, store Store) (*Thread, *User) {
	t.Helper()
	ctx := context.Background()

	thread := &Thread{EntityID: "thread-1", Name: "general"}
	require.NoError(t, store.SaveThread(ctx, thread))
	sender := &User{EntityID: "user-1", Name: "alice", PushChannel: "ch-alice"}
	require.NoError(t, store.SaveUser(ctx, sender))

	return thread, sender
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"storage.db":                      "storage.db",
		"file:storage.db":                 "storage.db",
		"file:storage.db?_pragma=foo(1)":  "storage.db",
		"/var/lib/push%20router/store.db": "/var/lib/push router/store.db",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractDBNameFromPath(in), "path %q", in)
	}
}

func TestUserAndThreadUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &User{EntityID: "user-1", Name: "alice", PushChannel: "ch-1"}
	require.NoError(t, store.SaveUser(ctx, user))
	require.NotZero(t, user.ID)
	firstID := user.ID

	user2 := &User{EntityID: "user-1", Name: "alice b", PushChannel: "ch-2"}
	require.NoError(t, store.SaveUser(ctx, user2))
	assert.Equal(t, firstID, user2.ID, "upsert keeps the local id")

	got, err := store.FindUserByEntityID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice b", got.Name)
	assert.Equal(t, "ch-2", got.PushChannel)

	missing, err := store.FindUserByEntityID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	thread := &Thread{EntityID: "thread-1", Name: "general"}
	require.NoError(t, store.SaveThread(ctx, thread))
	require.NotZero(t, thread.ID)

	gotThread, err := store.FindThreadByEntityID(ctx, "thread-1")
	require.NoError(t, err)
	require.NotNil(t, gotThread)
	assert.Equal(t, thread.ID, gotThread.ID)

	missingThread, err := store.FindThreadByEntityID(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, missingThread)
}

func TestCreateMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	thread, sender := seedThreadAndSender(t, store)

	date := time.UnixMilli(1_700_000_000_123).UTC()
	msg := &Message{
		EntityID: "msg-1",
		ThreadID: thread.ID,
		SenderID: sender.ID,
		Date:     date,
		Type:     0,
		Text:     "hello",
	}
	require.NoError(t, store.CreateMessage(ctx, msg))
	require.NotZero(t, msg.ID)

	got, err := store.FindMessageByEntityID(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "hello", got.Text)
	assert.False(t, got.IsRead)
	assert.True(t, got.Date.Equal(date), "date round trip: got %v want %v", got.Date, date)

	again := &Message{EntityID: "msg-1", ThreadID: thread.ID, SenderID: sender.ID, Date: date, Text: "other"}
	err = store.CreateMessage(ctx, again)
	assert.True(t, errors.Is(err, ErrDuplicate), "expected ErrDuplicate, got %v", err)

	got, err = store.FindMessageByEntityID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text, "duplicate insert must not overwrite")

	missing, err := store.FindMessageByEntityID(ctx, "msg-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateMessageValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *Message
	}{
		{"nil message", nil},
		{"empty entity id", &Message{ThreadID: 1, SenderID: 1, Date: time.Now()}},
		{"zero thread", &Message{EntityID: "m", SenderID: 1, Date: time.Now()}},
		{"zero sender", &Message{EntityID: "m", ThreadID: 1, Date: time.Now()}},
		{"zero date", &Message{EntityID: "m", ThreadID: 1, SenderID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateMessage(ctx, tt.msg)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrDuplicate))
		})
	}
}

func TestCreateMessageConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	thread, sender := seedThreadAndSender(t, store)

	const writers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.CreateMessage(ctx, &Message{
				EntityID: "msg-race",
				ThreadID: thread.ID,
				SenderID: sender.ID,
				Date:     time.Now(),
				Text:     "race",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, duplicates)
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, store.SaveSession(ctx, &Session{UserEntityID: "user-1", Authenticated: true}))
	session, err = store.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.UserEntityID)
	assert.True(t, session.Authenticated)

	require.NoError(t, store.SaveSession(ctx, &Session{UserEntityID: "user-2", Authenticated: false}))
	session, err = store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-2", session.UserEntityID)
	assert.False(t, session.Authenticated)

	require.NoError(t, store.DeleteSession(ctx))
	session, err = store.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	assert.Error(t, store.SaveSession(ctx, &Session{}))
}

func TestDeliveriesPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.RecordDelivery(ctx, &Delivery{
		ID: "old", Action: "push.MESSAGE_RECEIVED", Status: "created", ReceivedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.RecordDelivery(ctx, &Delivery{
		ID: "new", Action: "push.MESSAGE_RECEIVED", Status: "duplicate", ReceivedAt: now,
	}))

	pruned, err := store.PruneDeliveries(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	pruned, err = store.PruneDeliveries(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), pruned)

	_, err = store.PruneDeliveries(ctx, time.Time{})
	assert.Error(t, err)
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.RunSQLMaintenance(ctx))
}
