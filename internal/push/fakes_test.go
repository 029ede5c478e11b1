package push

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edgard/pushrouter/internal/database"
)

// memStore is an in-memory Store with the same at-most-once insert
// semantics as the SQLite store.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*database.User
	threads  map[string]*database.Thread
	messages map[string]*database.Message
	nextID   int64

	// beforeCreate runs inside CreateMessage before the uniqueness check.
	beforeCreate func()
	failFind     error
	creates      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*database.User),
		threads:  make(map[string]*database.Thread),
		messages: make(map[string]*database.Message),
	}
}

func (s *memStore) addUser(entityID, channel string) *database.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := &database.User{ID: s.nextID, EntityID: entityID, PushChannel: channel}
	s.users[entityID] = u
	return u
}

func (s *memStore) addThread(entityID string) *database.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &database.Thread{ID: s.nextID, EntityID: entityID}
	s.threads[entityID] = t
	return t
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *memStore) FindMessageByEntityID(_ context.Context, entityID string) (*database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFind != nil {
		return nil, s.failFind
	}
	return s.messages[entityID], nil
}

func (s *memStore) FindUserByEntityID(_ context.Context, entityID string) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[entityID], nil
}

func (s *memStore) FindThreadByEntityID(_ context.Context, entityID string) (*database.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[entityID], nil
}

func (s *memStore) CreateMessage(_ context.Context, m *database.Message) error {
	if s.beforeCreate != nil {
		s.beforeCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.EntityID]; ok {
		return database.ErrDuplicate
	}
	s.nextID++
	s.creates++
	m.ID = s.nextID
	stored := *m
	s.messages[m.EntityID] = &stored
	return nil
}

// insertSynced simulates the normal sync path writing a message directly.
func (s *memStore) insertSynced(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.messages[entityID] = &database.Message{ID: s.nextID, EntityID: entityID, Date: time.Now()}
}

type recordingPresenter struct {
	mu        sync.Mutex
	decisions []RoutingDecision
	err       error
}

func (p *recordingPresenter) Present(_ context.Context, d RoutingDecision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, d)
	return p.err
}

func (p *recordingPresenter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.decisions)
}

type recordingDeliveries struct {
	mu   sync.Mutex
	rows []database.Delivery
}

func (r *recordingDeliveries) RecordDelivery(_ context.Context, d *database.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *d)
	return nil
}

var errStoreDown = errors.New("store down")
