package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/pushrouter/internal/database"
)

// Store is the subset of database.Store the materializer needs.
type Store interface {
	FindMessageByEntityID(ctx context.Context, entityID string) (*database.Message, error)
	FindUserByEntityID(ctx context.Context, entityID string) (*database.User, error)
	FindThreadByEntityID(ctx context.Context, entityID string) (*database.Thread, error)
	CreateMessage(ctx context.Context, message *database.Message) error
}

// Outcome is the result of materializing a message event.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeDuplicate
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

// RejectReason says which reference could not be resolved.
type RejectReason string

const (
	ReasonUnresolvedSender RejectReason = "unresolved_sender"
	ReasonUnresolvedThread RejectReason = "unresolved_thread"
)

// Materialization carries the outcome and what it produced.
//
// Created: Message is the new row, Thread its owner.
// Duplicate: Message is the row already stored.
// Rejected: Message is the unsaved candidate, Reason names the gap.
type Materialization struct {
	Outcome Outcome
	Message *database.Message
	Thread  *database.Thread
	Reason  RejectReason
}

// Materializer creates messages from push payloads at most once per entity id.
type Materializer struct {
	store  Store
	locks  *keyLock
	logger *slog.Logger
}

// NewMaterializer creates a Materializer over store.
func NewMaterializer(store Store, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:  store,
		locks:  newKeyLock(),
		logger: logger.With("component", "materializer"),
	}
}

// Materialize looks the payload's entity id up and creates the message if
// it is new and both its sender and thread are known locally.
//
// The lookup-then-create sequence holds a per-entity-id lock, and the store
// insert itself is conditional, so a concurrent writer outside this process
// surfaces as a Duplicate rather than a second row.
func (m *Materializer) Materialize(ctx context.Context, p MessagePayload) (Materialization, error) {
	unlock := m.locks.Lock(p.EntityID)
	defer unlock()

	log := m.logger.With("entity_id", p.EntityID)

	existing, err := m.store.FindMessageByEntityID(ctx, p.EntityID)
	if err != nil {
		return Materialization{}, fmt.Errorf("failed to look up message %q: %w", p.EntityID, err)
	}
	if existing != nil {
		log.DebugContext(ctx, "Message already exists")
		return Materialization{Outcome: OutcomeDuplicate, Message: existing}, nil
	}

	message := &database.Message{
		EntityID: p.EntityID,
		Date:     time.UnixMilli(p.Date).UTC(),
		Type:     int(p.Type),
		Text:     p.Body,
		IsRead:   false,
	}

	sender, err := m.store.FindUserByEntityID(ctx, p.SenderEntityID)
	if err != nil {
		return Materialization{}, fmt.Errorf("failed to resolve sender %q: %w", p.SenderEntityID, err)
	}
	thread, err := m.store.FindThreadByEntityID(ctx, p.ThreadEntityID)
	if err != nil {
		return Materialization{}, fmt.Errorf("failed to resolve thread %q: %w", p.ThreadEntityID, err)
	}

	switch {
	case sender == nil:
		log.InfoContext(ctx, "Sender not known locally, message not stored", "sender_entity_id", p.SenderEntityID)
		return Materialization{Outcome: OutcomeRejected, Message: message, Reason: ReasonUnresolvedSender}, nil
	case thread == nil:
		log.InfoContext(ctx, "Thread not known locally, message not stored", "thread_entity_id", p.ThreadEntityID)
		return Materialization{Outcome: OutcomeRejected, Message: message, Reason: ReasonUnresolvedThread}, nil
	}

	message.SenderID = sender.ID
	message.ThreadID = thread.ID

	if err := m.store.CreateMessage(ctx, message); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			log.InfoContext(ctx, "Message created concurrently by another writer")
			stored, findErr := m.store.FindMessageByEntityID(ctx, p.EntityID)
			if findErr != nil {
				log.WarnContext(ctx, "Failed to load concurrently created message", "error", findErr)
			}
			return Materialization{Outcome: OutcomeDuplicate, Message: stored}, nil
		}
		return Materialization{}, fmt.Errorf("failed to create message %q: %w", p.EntityID, err)
	}

	log.DebugContext(ctx, "Message created from push", "message_id", message.ID, "thread_id", thread.ID)
	return Materialization{Outcome: OutcomeCreated, Message: message, Thread: thread}, nil
}
