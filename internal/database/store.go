package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrDuplicate is returned by CreateMessage when a message with the same
// entity id already exists.
var ErrDuplicate = errors.New("entity already exists")

// Store defines the interface for database operations.
// Lookups return nil, nil when the row does not exist.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// FindMessageByEntityID retrieves a message by its external entity id.
	FindMessageByEntityID(ctx context.Context, entityID string) (*Message, error)

	// FindUserByEntityID retrieves a user by its external entity id.
	FindUserByEntityID(ctx context.Context, entityID string) (*User, error)

	// FindThreadByEntityID retrieves a thread by its external entity id.
	FindThreadByEntityID(ctx context.Context, entityID string) (*Thread, error)

	// CreateMessage inserts a message unless its entity id is already present,
	// in which case it returns ErrDuplicate and leaves the store unchanged.
	CreateMessage(ctx context.Context, message *Message) error

	// SaveUser inserts or updates a user keyed by entity id.
	SaveUser(ctx context.Context, user *User) error

	// SaveThread inserts or updates a thread keyed by entity id.
	SaveThread(ctx context.Context, thread *Thread) error

	// GetSession returns the device session, or nil if none is bound.
	GetSession(ctx context.Context) (*Session, error)

	// SaveSession binds or updates the device session.
	SaveSession(ctx context.Context, session *Session) error

	// DeleteSession removes the device session.
	DeleteSession(ctx context.Context) error

	// RecordDelivery appends a push delivery record.
	RecordDelivery(ctx context.Context, delivery *Delivery) error

	// PruneDeliveries removes delivery records received before cutoff.
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindMessageByEntityID retrieves a message by entity id. Returns nil, nil if not found.
func (s *sqlxStore) FindMessageByEntityID(ctx context.Context, entityID string) (*Message, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity_id cannot be empty")
	}

	var message Message
	query := `SELECT id, entity_id, thread_id, sender_id, date, type, text, is_read, created_at, updated_at
	          FROM messages WHERE entity_id = ?`

	err := s.db.GetContext(ctx, &message, query, entityID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No message found", "entity_id", entityID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching message",
			"entity_id", entityID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting message by entity id", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to get message %q: %w", entityID, err)
	}

	return &message, nil
}

// FindUserByEntityID retrieves a user by entity id. Returns nil, nil if not found.
func (s *sqlxStore) FindUserByEntityID(ctx context.Context, entityID string) (*User, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity_id cannot be empty")
	}

	var user User
	query := `SELECT id, entity_id, name, push_channel, created_at, updated_at
	          FROM users WHERE entity_id = ?`

	err := s.db.GetContext(ctx, &user, query, entityID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "entity_id", entityID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by entity id", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to get user %q: %w", entityID, err)
	}

	return &user, nil
}

// FindThreadByEntityID retrieves a thread by entity id. Returns nil, nil if not found.
func (s *sqlxStore) FindThreadByEntityID(ctx context.Context, entityID string) (*Thread, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity_id cannot be empty")
	}

	var thread Thread
	query := `SELECT id, entity_id, name, created_at, updated_at
	          FROM threads WHERE entity_id = ?`

	err := s.db.GetContext(ctx, &thread, query, entityID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No thread found", "entity_id", entityID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting thread by entity id", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to get thread %q: %w", entityID, err)
	}

	return &thread, nil
}

// CreateMessage inserts a message in a single statement guarded by the
// entity_id UNIQUE constraint, so concurrent writers cannot both succeed.
func (s *sqlxStore) CreateMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.EntityID == "" {
		return fmt.Errorf("message must have a non-empty entity_id")
	}
	if message.ThreadID == 0 {
		return fmt.Errorf("message must have a non-zero thread_id")
	}
	if message.SenderID == 0 {
		return fmt.Errorf("message must have a non-zero sender_id")
	}
	if message.Date.IsZero() {
		return fmt.Errorf("message must have a non-zero date")
	}

	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving message",
			"entity_id", message.EntityID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	query := `
        INSERT INTO messages (entity_id, thread_id, sender_id, date, type, text, is_read, created_at, updated_at)
        VALUES (:entity_id, :thread_id, :sender_id, :date, :type, :text, :is_read, :created_at, :updated_at)
        ON CONFLICT(entity_id) DO NOTHING;
    `

	result, err := tx.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "entity_id", message.EntityID, "error", err)
		return fmt.Errorf("failed to save message %q: %w", message.EntityID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for message %q: %w", message.EntityID, err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Message already exists, insert skipped", "entity_id", message.EntityID)
		return ErrDuplicate
	}

	id, err := result.LastInsertId()
	if err == nil {
		message.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message",
			"entity_id", message.EntityID, "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "entity_id", message.EntityID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message saved successfully",
		"entity_id", message.EntityID, "message_id", message.ID, "thread_id", message.ThreadID)
	return nil
}

// SaveUser inserts or updates a user and fills in its local id.
func (s *sqlxStore) SaveUser(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("cannot save nil user")
	}
	if user.EntityID == "" {
		return fmt.Errorf("user must have a non-empty entity_id")
	}

	now := time.Now().UTC()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	query := `
        INSERT INTO users (entity_id, name, push_channel, created_at, updated_at)
        VALUES (:entity_id, :name, :push_channel, :created_at, :updated_at)
        ON CONFLICT(entity_id) DO UPDATE SET
            name = excluded.name,
            push_channel = excluded.push_channel,
            updated_at = excluded.updated_at;
    `
	return s.upsert(ctx, "users", user.EntityID, query, user, &user.ID)
}

// SaveThread inserts or updates a thread and fills in its local id.
func (s *sqlxStore) SaveThread(ctx context.Context, thread *Thread) error {
	if thread == nil {
		return fmt.Errorf("cannot save nil thread")
	}
	if thread.EntityID == "" {
		return fmt.Errorf("thread must have a non-empty entity_id")
	}

	now := time.Now().UTC()
	thread.UpdatedAt = now
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}

	query := `
        INSERT INTO threads (entity_id, name, created_at, updated_at)
        VALUES (:entity_id, :name, :created_at, :updated_at)
        ON CONFLICT(entity_id) DO UPDATE SET
            name = excluded.name,
            updated_at = excluded.updated_at;
    `
	return s.upsert(ctx, "threads", thread.EntityID, query, thread, &thread.ID)
}

// upsert runs a named upsert and reads back the row id in one transaction.
func (s *sqlxStore) upsert(ctx context.Context, table, entityID, query string, arg any, id *int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for upsert", "table", table, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	if _, err := tx.NamedExecContext(ctx, query, arg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving row", "table", table, "entity_id", entityID, "error", err)
		return fmt.Errorf("failed to save %s %q: %w", table, entityID, err)
	}

	// table is one of a fixed set of identifiers, never user input
	if err := tx.GetContext(ctx, id, `SELECT id FROM `+table+` WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("failed to read id for %s %q: %w", table, entityID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "table", table, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Row saved successfully", "table", table, "entity_id", entityID, "id", *id)
	return nil
}

// GetSession returns the device session. Returns nil, nil if none is bound.
func (s *sqlxStore) GetSession(ctx context.Context) (*Session, error) {
	var session Session
	err := s.db.GetContext(ctx, &session,
		`SELECT user_entity_id, authenticated, updated_at FROM session WHERE id = 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting session", "error", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// SaveSession binds or updates the single device session row.
func (s *sqlxStore) SaveSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("cannot save nil session")
	}
	if session.UserEntityID == "" {
		return fmt.Errorf("session must have a non-empty user_entity_id")
	}
	session.UpdatedAt = time.Now().UTC()

	query := `
        INSERT INTO session (id, user_entity_id, authenticated, updated_at)
        VALUES (1, :user_entity_id, :authenticated, :updated_at)
        ON CONFLICT(id) DO UPDATE SET
            user_entity_id = excluded.user_entity_id,
            authenticated = excluded.authenticated,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, session); err != nil {
		s.logger.ErrorContext(ctx, "Error saving session", "user_entity_id", session.UserEntityID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.InfoContext(ctx, "Session saved",
		"user_entity_id", session.UserEntityID, "authenticated", session.Authenticated)
	return nil
}

// DeleteSession removes the device session row.
func (s *sqlxStore) DeleteSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting session", "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.InfoContext(ctx, "Session cleared")
	return nil
}

// RecordDelivery appends a delivery record.
func (s *sqlxStore) RecordDelivery(ctx context.Context, delivery *Delivery) error {
	if delivery == nil {
		return fmt.Errorf("cannot save nil delivery")
	}
	if delivery.ID == "" {
		return fmt.Errorf("delivery must have a non-empty id")
	}
	if delivery.ReceivedAt.IsZero() {
		delivery.ReceivedAt = time.Now()
	}
	// Stored as text; a single zone keeps the prune comparison ordered.
	delivery.ReceivedAt = delivery.ReceivedAt.UTC()

	query := `
        INSERT INTO deliveries (id, action, channel, entity_id, status, received_at)
        VALUES (:id, :action, :channel, :entity_id, :status, :received_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, delivery); err != nil {
		s.logger.ErrorContext(ctx, "Error recording delivery", "delivery_id", delivery.ID, "error", err)
		return fmt.Errorf("failed to record delivery %s: %w", delivery.ID, err)
	}
	return nil
}

// PruneDeliveries removes delivery records received before cutoff.
func (s *sqlxStore) PruneDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, fmt.Errorf("cutoff cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE received_at < ?`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning deliveries", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected for delivery prune: %w", err)
	}

	s.logger.InfoContext(ctx, "Pruned deliveries", "count", count, "cutoff", cutoff)
	return count, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
