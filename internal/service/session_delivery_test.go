package service

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"canvasthink-be/internal/config"
	"canvasthink-be/internal/dto"
	"canvasthink-be/internal/metrics"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/websocket"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unresponsiveRedis returns a client whose server accepts connections and
// never replies.
func unresponsiveRedis(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), ReadTimeout: 3 * time.Second, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// blockedPublisher holds every Publish until release is closed.
type blockedPublisher struct {
	release chan struct{}
}

func (p *blockedPublisher) Publish(string, ...*message.Message) error {
	<-p.release
	return nil
}

func (p *blockedPublisher) Close() error { return nil }

func TestDispatchDoesNotWaitOnStalledTransports(t *testing.T) {
	log := logger.NewNopLogger()
	m := metrics.New()
	cfg := &config.Config{
		Auth:     config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Tracking: config.TrackingConfig{SessionTTL: time.Hour},
	}

	pub := &blockedPublisher{release: make(chan struct{})}
	sink := analytics.NewQueueSink(pub, "interactions", 1, log)
	sink.OnDrop = m.QueueDropped.WithLabelValues("interactions").Inc
	emotions := analytics.NewQueue(pub, "emotions", 1, log)
	t.Cleanup(func() {
		_ = sink.Close(context.Background())
		_ = emotions.Close(context.Background())
	})
	t.Cleanup(func() { close(pub.release) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(unresponsiveRedis(t), log)
	go hub.Run(ctx)

	svc := NewSessionService(clock.NewManual(sessionEpoch), sink, store.NewMemoryStore(time.Hour), hub, NewPublisherService(emotions, log), m, cfg, log)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	start := time.Now()
	resp, err := svc.Start(context.Background(), dto.StartSessionRequest{Path: "/"})
	require.NoError(t, err)

	var clicks []browser.Event
	for i := 0; i < 6; i++ {
		clicks = append(clicks, browser.Event{Type: browser.TypeClick, Target: &browser.Element{Tag: "DIV"}})
	}
	_, err = svc.Dispatch(resp.SessionID, clicks)
	require.NoError(t, err)
	_, err = svc.Summary(resp.SessionID)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Greater(t, testutil.ToFloat64(m.QueueDropped.WithLabelValues("interactions")), 0.0)
}
