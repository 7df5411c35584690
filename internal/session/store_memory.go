package session

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// MemoryStore keeps sessions in process. Sessions are lost on restart so
// it's meant for development and tests.
type MemoryStore struct {
	cache *ttlcache.Cache
}

func NewMemoryStore() *MemoryStore {
	c := ttlcache.NewCache()
	// Expiry is fixed at login, reading a session must not extend it
	c.SkipTTLExtensionOnHit(true)

	return &MemoryStore{cache: c}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	v, err := m.cache.Get(id)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	s := v.(Session)
	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		m.cache.Remove(s.ID)
		return nil
	}

	return m.cache.SetWithTTL(s.ID, *s, ttl)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	err := m.cache.Remove(id)
	if err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return err
	}

	return nil
}

func (m *MemoryStore) Close() error {
	return m.cache.Close()
}
