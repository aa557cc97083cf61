package session

import (
	"context"
	"time"

	"github.com/warlaundry/washerman/pkg/cache"
)

type MemoryStore struct {
	sessions *cache.LRUCache[string, Session]
}

func NewMemoryStore(maxSessions int, ttl time.Duration, onEvict func(id string)) *MemoryStore {
	cfg := cache.Config{MaxSize: maxSessions, TTL: ttl, Sliding: true}
	var evict func(string, Session)
	if onEvict != nil {
		evict = func(id string, _ Session) { onEvict(id) }
	}
	return &MemoryStore{sessions: cache.NewWithEviction[string, Session](cfg, evict)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.sessions.Set(s.ID, s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.sessions.Delete(id)
	return nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	return m.sessions.Size(), nil
}

func (m *MemoryStore) Cleanup(context.Context) (int, error) {
	return m.sessions.CleanupExpired(), nil
}
