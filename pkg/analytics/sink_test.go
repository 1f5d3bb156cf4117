package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/behavior"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueSinkDeliversInOrder(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, DefaultTopic)
	require.NoError(t, err)

	const n = 20
	sink := NewQueueSink(pubSub, "", n, logger.NewNopLogger())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	go func() {
		for i := 0; i < n; i++ {
			sink.Deliver("ct_1", behavior.Record{
				Kind:             behavior.KindClick,
				Timestamp:        start.Add(time.Duration(i) * time.Millisecond),
				SessionElapsedMs: int64(i),
			})
		}
		_ = sink.Close(context.Background())
	}()

	for i := 0; i < n; i++ {
		select {
		case msg := <-messages:
			var env Envelope
			require.NoError(t, json.Unmarshal(msg.Payload, &env))
			assert.Equal(t, "ct_1", env.SessionID)
			assert.Equal(t, int64(i), env.Record.SessionElapsedMs)
			assert.Equal(t, "click", msg.Metadata.Get("kind"))
			msg.Ack()
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

type countingSink struct{ n int }

func (c *countingSink) Deliver(string, behavior.Record) { c.n++ }

func TestFanOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	FanOut{a, NewLogSink(logger.NewNopLogger()), b}.Deliver("s", behavior.Record{Kind: behavior.KindHover})

	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

// stalledPublisher blocks every Publish until release is closed.
type stalledPublisher struct {
	release   chan struct{}
	published chan string
}

func (p *stalledPublisher) Publish(_ string, msgs ...*message.Message) error {
	<-p.release
	for _, m := range msgs {
		p.published <- m.UUID
	}
	return nil
}

func (p *stalledPublisher) Close() error { return nil }

func TestEnqueueDropsWhenPublisherIsStalled(t *testing.T) {
	pub := &stalledPublisher{release: make(chan struct{}), published: make(chan string, 16)}
	q := NewQueue(pub, "emotions", 2, logger.NewNopLogger())
	dropped := 0
	q.OnDrop = func() { dropped++ }

	// The pump holds the first message; two more fill the buffer.
	require.True(t, q.Enqueue(message.NewMessage("m-0", nil)))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	assert.True(t, q.Enqueue(message.NewMessage("m-1", nil)))
	assert.True(t, q.Enqueue(message.NewMessage("m-2", nil)))

	start := time.Now()
	assert.False(t, q.Enqueue(message.NewMessage("m-3", nil)))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, dropped)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(pub.release)
	require.NoError(t, q.Close(context.Background()))
	for _, id := range []string{"m-0", "m-1", "m-2"} {
		assert.Equal(t, id, <-pub.published)
	}
}
