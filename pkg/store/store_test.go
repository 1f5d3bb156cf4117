package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Hour), mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]ContextStore{
		"redis":  redisStore,
		"memory": NewMemoryStore(time.Hour),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Load(ctx, "visitor-1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, "visitor-1", []byte(`{"version":1}`)))
			data, err := s.Load(ctx, "visitor-1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"version":1}`, string(data))

			require.NoError(t, s.Delete(ctx, "visitor-1"))
			_, err = s.Load(ctx, "visitor-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisStoreUsesPrefixedKeyAndTTL(t *testing.T) {
	s, mr := newRedisStore(t)

	require.NoError(t, s.Save(context.Background(), "v42", []byte("{}")))

	assert.True(t, mr.Exists("canvasthink:emotional-context:v42"))
	assert.Equal(t, time.Hour, mr.TTL("canvasthink:emotional-context:v42"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(context.Background(), "v42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreWrapsConnectionErrors(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Load(context.Background(), "v1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesData(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	data := []byte("abc")

	require.NoError(t, s.Save(context.Background(), "v", data))
	data[0] = 'x'

	got, err := s.Load(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
