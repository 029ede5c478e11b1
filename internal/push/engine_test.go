package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/pushrouter/internal/logger"
	"github.com/edgard/pushrouter/internal/session"
)

type engineFixture struct {
	store      *memStore
	presenter  *recordingPresenter
	deliveries *recordingDeliveries
	metrics    *Metrics
	engine     *Engine
}

func newEngineFixture(t *testing.T, provider session.Provider) *engineFixture {
	t.Helper()

	f := &engineFixture{
		store:      newMemStore(),
		presenter:  &recordingPresenter{},
		deliveries: &recordingDeliveries{},
		metrics:    NewMetrics(prometheus.NewRegistry()),
	}
	f.store.addUser("u-1", "c-1")
	f.store.addUser("u-2", "c-2")
	f.store.addThread("t-1")

	f.engine = NewEngine(f.store, NewRouter(testTexts, testNav), Options{
		Enabled:    true,
		Session:    provider,
		Presenter:  f.presenter,
		Deliveries: f.deliveries,
		Logger:     logger.Discard(),
		Metrics:    f.metrics,
	})
	return f
}

func (f *engineFixture) count(kind Kind, status Status) float64 {
	return testutil.ToFloat64(f.metrics.events.WithLabelValues(kind.String(), string(status)))
}

func signedIn() session.Static {
	return session.Static{
		Identity:      &session.Identity{UserEntityID: "u-1", PushChannel: "c-1"},
		Authenticated: true,
	}
}

func signedOut() session.Static {
	return session.Static{Identity: &session.Identity{UserEntityID: "u-1", PushChannel: "c-1"}}
}

func messageRaw(channel, data string) RawEvent {
	return RawEvent{Action: ActionMessageReceived, Channel: channel, Data: data}
}

func TestEngineScenarios(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("created and authenticated opens the thread", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, res.Status)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		require.NotNil(t, res.Decision)
		assert.Equal(t, DestinationMainWithThread, res.Decision.Destination)
		require.NotNil(t, res.Decision.Params)
		assert.True(t, res.Decision.Params.FromPush)
		assert.Equal(t, int64(1700000000000), res.Decision.Params.Timestamp)
		assert.Equal(t, 1, f.store.messageCount())
		assert.Equal(t, 1, f.presenter.count())
	})

	t.Run("unresolved thread opens the main screen", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		data := `{"entity_id":"m-1","thread_entity_id":"t-unknown","message_date":1,"sender_entity_id":"u-2","message_type":0,"message_payload":"hello"}`

		res, err := f.engine.Handle(ctx, messageRaw("c-1", data))
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, res.Status)
		require.NotNil(t, res.Decision)
		assert.Equal(t, DestinationMain, res.Decision.Destination)
		assert.Nil(t, res.Decision.Params)
		assert.Zero(t, f.store.messageCount())
		assert.Equal(t, 1, f.presenter.count())
	})

	t.Run("known message shows nothing", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		f.store.insertSynced("m-1")

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, res.Status)
		assert.Nil(t, res.Decision)
		assert.Zero(t, f.presenter.count())
		assert.Equal(t, 1, f.store.messageCount())
	})

	t.Run("unauthenticated goes to login", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedOut())

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, res.Status)
		require.NotNil(t, res.Decision)
		assert.Equal(t, DestinationLogin, res.Decision.Destination)
		assert.Nil(t, res.Decision.Params)
	})

	t.Run("follower opens the main screen", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedOut())

		res, err := f.engine.Handle(ctx, RawEvent{Action: ActionFollowerAdded, Data: `{"content":"Alice follows you"}`})
		require.NoError(t, err)
		assert.Equal(t, StatusFollower, res.Status)
		require.NotNil(t, res.Decision)
		assert.Equal(t, DestinationMain, res.Decision.Destination)
		assert.Equal(t, "New follower", res.Decision.Notification.Title)
		assert.Equal(t, "Someone followed you", res.Decision.Notification.Ticker)
		assert.Equal(t, 1, f.presenter.count())
	})

	t.Run("missing message type is malformed", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		data := `{"entity_id":"m-1","thread_entity_id":"t-1","message_date":1,"sender_entity_id":"u-2","message_payload":"hello"}`

		res, err := f.engine.Handle(ctx, messageRaw("c-1", data))
		var derr *DecodeError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "message_type", derr.Field)
		assert.Equal(t, StatusMalformed, res.Status)
		assert.Nil(t, res.Decision)
		assert.Zero(t, f.store.messageCount())
		assert.Zero(t, f.presenter.count())
	})
}

func TestEngineGating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("other recipient is filtered", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())

		res, err := f.engine.Handle(ctx, messageRaw("c-2", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusFiltered, res.Status)
		assert.Zero(t, f.store.messageCount())
		assert.Zero(t, f.presenter.count())
	})

	t.Run("no session processes any channel", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, nil)

		res, err := f.engine.Handle(ctx, messageRaw("c-anything", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, res.Status)
		assert.Equal(t, DestinationLogin, res.Decision.Destination)
	})

	t.Run("no bound identity processes any channel", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, session.Static{})

		res, err := f.engine.Handle(ctx, messageRaw("c-anything", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, res.Status)
	})

	t.Run("identity without channel filters everything", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, session.Static{Identity: &session.Identity{UserEntityID: "u-404"}, Authenticated: true})

		for _, channel := range []string{"", "c-1"} {
			res, err := f.engine.Handle(ctx, messageRaw(channel, validMessage))
			require.NoError(t, err)
			assert.Equal(t, StatusFiltered, res.Status, "channel %q", channel)
		}
		assert.Zero(t, f.store.messageCount())
		assert.Zero(t, f.presenter.count())
	})

	t.Run("follower bypasses channel filter", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())

		res, err := f.engine.Handle(ctx, RawEvent{Action: ActionFollowerAdded, Channel: "c-2", Data: `{"content":"x"}`})
		require.NoError(t, err)
		assert.Equal(t, StatusFollower, res.Status)
	})

	t.Run("disabled drops everything", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		f.engine.opts.Enabled = false

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, res.Status)
		assert.Zero(t, f.store.messageCount())
		assert.Zero(t, f.presenter.count())
		assert.Empty(t, f.deliveries.rows)
	})

	t.Run("unknown action is ignored", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())

		res, err := f.engine.Handle(ctx, RawEvent{Action: "push.TYPING", Data: "{}"})
		require.NoError(t, err)
		assert.Equal(t, StatusIgnored, res.Status)
		assert.Zero(t, f.presenter.count())
	})

	t.Run("store failure is returned", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		f.store.failFind = errStoreDown

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		assert.ErrorIs(t, err, errStoreDown)
		assert.Equal(t, StatusFailed, res.Status)
		assert.Zero(t, f.presenter.count())
	})

	t.Run("presenter failure does not change the outcome", func(t *testing.T) {
		t.Parallel()
		f := newEngineFixture(t, signedIn())
		f.presenter.err = errors.New("offline")

		res, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, res.Status)
	})
}

func TestEngineBookkeeping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newEngineFixture(t, signedIn())

	_, err := f.engine.Handle(ctx, messageRaw("c-1", validMessage))
	require.NoError(t, err)
	_, err = f.engine.Handle(ctx, messageRaw("c-1", validMessage))
	require.NoError(t, err)
	_, err = f.engine.Handle(ctx, messageRaw("c-2", validMessage))
	require.NoError(t, err)
	_, err = f.engine.Handle(ctx, messageRaw("c-1", "{"))
	require.Error(t, err)

	assert.Equal(t, 1.0, f.count(KindMessage, StatusCreated))
	assert.Equal(t, 1.0, f.count(KindMessage, StatusDuplicate))
	assert.Equal(t, 1.0, f.count(KindMessage, StatusFiltered))
	assert.Equal(t, 1.0, f.count(KindMessage, StatusMalformed))

	require.Len(t, f.deliveries.rows, 4)
	statuses := make([]string, 0, len(f.deliveries.rows))
	ids := make(map[string]bool)
	for _, d := range f.deliveries.rows {
		statuses = append(statuses, d.Status)
		ids[d.ID] = true
	}
	assert.Equal(t, []string{"created", "duplicate", "filtered", "malformed"}, statuses)
	assert.Len(t, ids, 4)
	assert.Equal(t, "m-1", f.deliveries.rows[0].EntityID)
}

func TestEngineConcurrentDelivery(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t, signedIn())

	const deliveries = 24
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Handle(context.Background(), messageRaw("c-1", validMessage))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.store.messageCount())
	assert.Equal(t, 1, f.presenter.count())
	assert.Equal(t, 1.0, f.count(KindMessage, StatusCreated))
	assert.Equal(t, float64(deliveries-1), f.count(KindMessage, StatusDuplicate))
}
