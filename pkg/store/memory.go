package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps snapshots in process. It backs development runs, the
// simulation CLI and tests.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Load(_ context.Context, visitorID string) ([]byte, error) {
	x, found := s.cache.Get(Key(visitorID))
	if !found {
		return nil, ErrNotFound
	}
	data := x.([]byte)
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(_ context.Context, visitorID string, data []byte) error {
	s.cache.Set(Key(visitorID), append([]byte(nil), data...), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, visitorID string) error {
	s.cache.Delete(Key(visitorID))
	return nil
}
