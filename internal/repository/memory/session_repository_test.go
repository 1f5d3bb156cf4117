package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/store"
	"canvasthink-be/pkg/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, id string) *tracking.Pipeline {
	t.Helper()
	p := tracking.New(
		tracking.Config{SessionID: id, VisitorID: "visitor-" + id, Page: browser.Page{Path: "/"}},
		clock.NewManual(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)),
		analytics.FanOut{},
		store.NewMemoryStore(time.Hour),
		logger.NewNopLogger(),
	)
	require.NoError(t, p.Start(context.Background()))
	return p
}

func TestAllIncludesExpiredEntriesBeforeEviction(t *testing.T) {
	// No janitor: expired entries are never evicted on their own.
	r := newSessionRepository(10*time.Millisecond, 0, nil)
	p := newPipeline(t, "ct_1")
	r.Save(p)

	time.Sleep(30 * time.Millisecond)

	_, ok := r.Get("ct_1")
	assert.False(t, ok)
	assert.Equal(t, []*tracking.Pipeline{p}, r.All())
	assert.Equal(t, 1, r.Count())

	r.Delete("ct_1")
	assert.Empty(t, r.All())
}

func TestDeleteCallsOnEvictedOnce(t *testing.T) {
	var evicted []string
	r := newSessionRepository(time.Hour, 0, func(p *tracking.Pipeline) {
		evicted = append(evicted, p.SessionID())
	})
	r.Save(newPipeline(t, "ct_1"))
	r.Save(newPipeline(t, "ct_2"))

	r.Delete("ct_1")
	r.Delete("ct_1")

	assert.Equal(t, []string{"ct_1"}, evicted)
	assert.Equal(t, 1, r.Count())
}

func TestGetNeverResurrectsDeletedEntry(t *testing.T) {
	r := newSessionRepository(time.Hour, 0, nil)

	for i := 0; i < 200; i++ {
		r.Save(newPipeline(t, "ct_1"))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Get("ct_1")
		}()
		go func() {
			defer wg.Done()
			r.Delete("ct_1")
		}()
		wg.Wait()

		_, ok := r.Get("ct_1")
		require.False(t, ok, "iteration %d", i)
		require.Empty(t, r.All())
	}
}

func TestJanitorEvictsExpiredEntries(t *testing.T) {
	evicted := make(chan string, 1)
	r := newSessionRepository(10*time.Millisecond, 5*time.Millisecond, func(p *tracking.Pipeline) {
		evicted <- p.SessionID()
	})
	r.Save(newPipeline(t, "ct_1"))

	select {
	case id := <-evicted:
		assert.Equal(t, "ct_1", id)
	case <-time.After(time.Second):
		t.Fatal("entry was not evicted")
	}
	assert.Zero(t, r.Count())
}
