// Package session exposes the device session: which identity this process
// is bound to and whether that identity is authenticated.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/pushrouter/internal/database"
)

// Identity is the user the device session is bound to.
type Identity struct {
	UserEntityID string
	PushChannel  string
}

// Provider answers session questions for the push engine.
type Provider interface {
	// CurrentIdentity returns the bound identity, or nil when no user is bound.
	CurrentIdentity(ctx context.Context) (*Identity, error)
	// IsAuthenticated reports whether the bound identity holds a live login.
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Store is the subset of database.Store the session provider needs.
type Store interface {
	GetSession(ctx context.Context) (*database.Session, error)
	SaveSession(ctx context.Context, session *database.Session) error
	DeleteSession(ctx context.Context) error
	FindUserByEntityID(ctx context.Context, entityID string) (*database.User, error)
}

// StoreProvider is a Provider backed by the session row in the store.
type StoreProvider struct {
	store  Store
	logger *slog.Logger
}

// NewStoreProvider creates a Provider reading from store.
func NewStoreProvider(store Store, logger *slog.Logger) *StoreProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreProvider{store: store, logger: logger.With("component", "session")}
}

// CurrentIdentity resolves the bound user and its push channel.
// A session pointing at a user the store does not know yet yields an
// identity with an empty channel; the push filter rejects every event for it
// until the user is synced.
func (p *StoreProvider) CurrentIdentity(ctx context.Context) (*Identity, error) {
	s, err := p.store.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if s == nil {
		return nil, nil
	}

	identity := &Identity{UserEntityID: s.UserEntityID}
	user, err := p.store.FindUserByEntityID(ctx, s.UserEntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session user %q: %w", s.UserEntityID, err)
	}
	if user == nil {
		p.logger.WarnContext(ctx, "Session bound to unknown user", "user_entity_id", s.UserEntityID)
		return identity, nil
	}
	identity.PushChannel = user.PushChannel
	return identity, nil
}

// IsAuthenticated reports the authenticated flag of the session row.
func (p *StoreProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	s, err := p.store.GetSession(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read session: %w", err)
	}
	return s != nil && s.Authenticated, nil
}

// Bind attaches the device session to userEntityID.
func (p *StoreProvider) Bind(ctx context.Context, userEntityID string, authenticated bool) error {
	if userEntityID == "" {
		return fmt.Errorf("user entity id is required")
	}
	return p.store.SaveSession(ctx, &database.Session{
		UserEntityID:  userEntityID,
		Authenticated: authenticated,
	})
}

// Clear detaches the device session.
func (p *StoreProvider) Clear(ctx context.Context) error {
	return p.store.DeleteSession(ctx)
}

// Static is a fixed Provider, handy for tests and single-user hosts.
type Static struct {
	Identity      *Identity
	Authenticated bool
}

// CurrentIdentity returns the fixed identity.
func (s Static) CurrentIdentity(context.Context) (*Identity, error) { return s.Identity, nil }

// IsAuthenticated returns the fixed flag.
func (s Static) IsAuthenticated(context.Context) (bool, error) { return s.Authenticated, nil }
