package store

import (
	"context"
	"sync"
	"time"

	"imged/internal/snapshot"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]snapshot.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]snapshot.Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, sess snapshot.Session) (snapshot.Session, error) {
	sess, err := prepare(sess, m.now())
	if err != nil {
		return snapshot.Session{}, err
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (snapshot.Session, error) {
	if err := ValidateID(id); err != nil {
		return snapshot.Session{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return snapshot.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemoryStore) List(_ context.Context, q Query) ([]snapshot.Session, error) {
	m.mu.RLock()
	all := make([]snapshot.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()
	return selectSessions(all, q), nil
}
