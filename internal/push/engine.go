// Package push decides what to do with out-of-band push deliveries.
//
// An incoming event is decoded, checked against the bound identity's push
// channel, materialized into a local message at most once, and routed to the
// destination a notification should open. The result is handed to a
// Presenter; the engine itself never builds anything user-facing.
package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/pushrouter/internal/database"
	"github.com/edgard/pushrouter/internal/session"
)

// Status is the terminal state of a handled event.
type Status string

const (
	StatusDisabled  Status = "disabled"
	StatusIgnored   Status = "ignored"
	StatusMalformed Status = "malformed"
	StatusFiltered  Status = "filtered"
	StatusDuplicate Status = "duplicate"
	StatusCreated   Status = "created"
	StatusRejected  Status = "rejected"
	StatusFollower  Status = "follower"
	StatusFailed    Status = "failed"
)

// Presenter shows a routing decision to the user.
type Presenter interface {
	Present(ctx context.Context, decision RoutingDecision) error
}

// DeliveryRecorder keeps an audit row per handled event.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, delivery *database.Delivery) error
}

// Options configure an Engine. Every field is optional except Enabled,
// which defaults to dropping everything.
type Options struct {
	Enabled    bool
	Session    session.Provider
	Presenter  Presenter
	Deliveries DeliveryRecorder
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Result describes how an event was handled.
type Result struct {
	Kind     Kind
	Status   Status
	Outcome  Outcome
	Decision *RoutingDecision
}

// Engine chains decoding, filtering, materialization and routing.
type Engine struct {
	opts         Options
	materializer *Materializer
	router       *Router
	logger       *slog.Logger
}

// NewEngine creates an Engine over store and router.
func NewEngine(store Store, router *Router, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		opts:         opts,
		materializer: NewMaterializer(store, opts.Logger),
		router:       router,
		logger:       opts.Logger.With("component", "push_engine"),
	}
}

// Handle processes one raw event. Decode failures are returned as
// *DecodeError; store and session failures are returned wrapped. Filtered,
// duplicate and ignored events are not errors.
func (e *Engine) Handle(ctx context.Context, raw RawEvent) (Result, error) {
	received := time.Now()
	res, entityID, err := e.handle(ctx, raw)

	e.opts.Metrics.observe(res.Kind, res.Status)
	e.record(ctx, raw, entityID, res, received)

	return res, err
}

func (e *Engine) handle(ctx context.Context, raw RawEvent) (Result, string, error) {
	log := e.logger.With("action", raw.Action)

	if !e.opts.Enabled {
		log.DebugContext(ctx, "Push handling disabled, dropping event")
		return Result{Status: StatusDisabled}, "", nil
	}

	ev, err := Decode(raw)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			log.DebugContext(ctx, "Ignoring unknown push action")
			return Result{Status: StatusIgnored}, "", nil
		}
		kind, _ := KindForAction(raw.Action)
		log.DebugContext(ctx, "Failed to decode push payload", "error", err)
		return Result{Kind: kind, Status: StatusMalformed}, "", err
	}

	if ev.Kind == KindFollowerAdded {
		decision := e.router.Route(ev, Materialization{}, Unauthenticated)
		e.present(ctx, decision)
		log.InfoContext(ctx, "Follower event routed", "target", decision.Target)
		return Result{Kind: ev.Kind, Status: StatusFollower, Decision: decision}, "", nil
	}

	p := ev.Message
	log = log.With("entity_id", p.EntityID)

	identity, err := e.currentIdentity(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read session identity", "error", err)
		return Result{Kind: ev.Kind, Status: StatusFailed}, p.EntityID, err
	}
	if !ShouldProcess(ev.Channel, identity) {
		log.DebugContext(ctx, "Event addressed to another identity", "channel", ev.Channel)
		return Result{Kind: ev.Kind, Status: StatusFiltered}, p.EntityID, nil
	}

	m, err := e.materializer.Materialize(ctx, *p)
	if err != nil {
		log.ErrorContext(ctx, "Failed to materialize message", "error", err)
		return Result{Kind: ev.Kind, Status: StatusFailed}, p.EntityID, err
	}

	res := Result{Kind: ev.Kind, Outcome: m.Outcome}
	switch m.Outcome {
	case OutcomeDuplicate:
		log.InfoContext(ctx, "Duplicate message event, nothing to show")
		res.Status = StatusDuplicate
		return res, p.EntityID, nil
	case OutcomeCreated:
		res.Status = StatusCreated
	case OutcomeRejected:
		res.Status = StatusRejected
	}

	state, err := e.sessionState(ctx)
	if err != nil {
		// The message is already stored; route as logged out rather than fail.
		log.WarnContext(ctx, "Failed to read session state", "error", err)
	}

	res.Decision = e.router.Route(ev, m, state)
	e.present(ctx, res.Decision)

	log.InfoContext(ctx, "Message event routed",
		"status", res.Status,
		"reason", m.Reason,
		"destination", res.Decision.Destination)
	return res, p.EntityID, nil
}

func (e *Engine) currentIdentity(ctx context.Context) (*session.Identity, error) {
	if e.opts.Session == nil {
		return nil, nil
	}
	return e.opts.Session.CurrentIdentity(ctx)
}

func (e *Engine) sessionState(ctx context.Context) (SessionState, error) {
	if e.opts.Session == nil {
		return Unauthenticated, nil
	}
	ok, err := e.opts.Session.IsAuthenticated(ctx)
	if err != nil || !ok {
		return Unauthenticated, err
	}
	return Authenticated, nil
}

func (e *Engine) present(ctx context.Context, decision *RoutingDecision) {
	if decision == nil || e.opts.Presenter == nil {
		return
	}
	if err := e.opts.Presenter.Present(ctx, *decision); err != nil {
		e.logger.WarnContext(ctx, "Failed to present notification",
			"kind", decision.Kind.String(),
			"destination", decision.Destination,
			"error", err)
	}
}

func (e *Engine) record(ctx context.Context, raw RawEvent, entityID string, res Result, received time.Time) {
	if e.opts.Deliveries == nil || res.Status == StatusDisabled {
		return
	}
	d := &database.Delivery{
		ID:         uuid.NewString(),
		Action:     raw.Action,
		Channel:    raw.Channel,
		EntityID:   entityID,
		Status:     string(res.Status),
		ReceivedAt: received,
	}
	if err := e.opts.Deliveries.RecordDelivery(ctx, d); err != nil {
		e.logger.WarnContext(ctx, "Failed to record delivery", "delivery_id", d.ID, "error", err)
	}
}
