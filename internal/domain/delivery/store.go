package delivery

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Expired sessions are dropped lazily
// on read and swept on every write, so it needs no background goroutine.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{sessions: make(map[int64]memoryEntry), now: now}
}

func (m *MemoryStore) Get(_ context.Context, accountID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[accountID]
	if !ok {
		return nil, ErrNoSession
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, accountID)
		return nil, ErrNoSession
	}
	s := e.session
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.AccountID] = memoryEntry{session: s, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, accountID)
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
