package memory

import (
	"sync"
	"time"

	"canvasthink-be/pkg/tracking"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds the live pipelines. An entry idles out after ttl
// without a Get; onEvicted is then called with the pipeline. Expired entries
// stay in the registry until the janitor evicts them, so All still sees them.
type SessionRepository struct {
	cache *cache.Cache

	mu   sync.Mutex
	live map[string]*tracking.Pipeline
}

func NewSessionRepository(ttl time.Duration, onEvicted func(*tracking.Pipeline)) *SessionRepository {
	return newSessionRepository(ttl, ttl/3, onEvicted)
}

func newSessionRepository(ttl, cleanupInterval time.Duration, onEvicted func(*tracking.Pipeline)) *SessionRepository {
	r := &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
		live:  make(map[string]*tracking.Pipeline),
	}
	r.cache.OnEvicted(func(id string, v interface{}) {
		p := v.(*tracking.Pipeline)
		r.forget(id, p)
		if onEvicted != nil {
			onEvicted(p)
		}
	})
	return r
}

func (r *SessionRepository) Save(p *tracking.Pipeline) {
	r.mu.Lock()
	r.live[p.SessionID()] = p
	r.mu.Unlock()
	r.cache.Set(p.SessionID(), p, cache.DefaultExpiration)
}

// Get returns the pipeline and extends its lifetime. An entry deleted
// concurrently is never re-inserted.
func (r *SessionRepository) Get(sessionID string) (*tracking.Pipeline, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	p := x.(*tracking.Pipeline)
	if err := r.cache.Replace(sessionID, p, cache.DefaultExpiration); err != nil {
		return nil, false
	}
	return p, true
}

// Delete removes the entry, calling onEvicted.
func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
	// An expired entry may already be gone from the cache without a callback.
	r.mu.Lock()
	delete(r.live, sessionID)
	r.mu.Unlock()
}

func (r *SessionRepository) forget(sessionID string, p *tracking.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[sessionID] == p {
		delete(r.live, sessionID)
	}
}

func (r *SessionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// All returns every registered pipeline, expired ones included.
func (r *SessionRepository) All() []*tracking.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tracking.Pipeline, 0, len(r.live))
	for _, p := range r.live {
		out = append(out, p)
	}
	return out
}
