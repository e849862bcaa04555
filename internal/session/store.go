package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Store holds active tour sessions. AtomicUpdate is the load-bearing
// contract: concurrent pings for the same session serialize through it, so
// the visited set and waypoint cursor never lose a write.
type Store interface {
	Create(ctx context.Context, session TourSession) (string, error)
	Get(ctx context.Context, id string) (TourSession, error)
	AtomicUpdate(ctx context.Context, id string, mutate func(*TourSession) error) (TourSession, error)
	Delete(ctx context.Context, id string) error
	IdleSessionIDs(ctx context.Context, olderThan time.Time) []string
}

// MemoryStore keeps sessions in process memory with one mutex per session,
// so different sessions progress independently.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session TourSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*entry{}}
}

func (m *MemoryStore) Create(_ context.Context, session TourSession) (string, error) {
	if session.ID == "" {
		return "", ErrInvalidInput
	}
	if session.Visited == nil {
		session.Visited = map[string]bool{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[session.ID] = &entry{session: session.clone()}
	return session.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (TourSession, error) {
	e, err := m.entry(id)
	if err != nil {
		return TourSession{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone(), nil
}

// AtomicUpdate applies mutate under the session's lock. The mutator runs on a
// copy; an error leaves the stored session untouched.
func (m *MemoryStore) AtomicUpdate(_ context.Context, id string, mutate func(*TourSession) error) (TourSession, error) {
	e, err := m.entry(id)
	if err != nil {
		return TourSession{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.session.clone()
	if err := mutate(&next); err != nil {
		return TourSession{}, err
	}
	e.session = next
	return next.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// IdleSessionIDs lists sessions whose last ping (or start) predates olderThan.
func (m *MemoryStore) IdleSessionIDs(_ context.Context, olderThan time.Time) []string {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var ids []string
	for _, e := range entries {
		e.mu.Lock()
		if e.session.lastSeen().Before(olderThan) {
			ids = append(ids, e.session.ID)
		}
		e.mu.Unlock()
	}
	return ids
}

func (m *MemoryStore) entry(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
