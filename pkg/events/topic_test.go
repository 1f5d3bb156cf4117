package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicFanOutInSubscriptionOrder(t *testing.T) {
	var topic Topic[int]
	var got []string

	topic.Subscribe(func(v int) { got = append(got, "first") })
	topic.Subscribe(func(v int) { got = append(got, "second") })

	topic.Publish(1)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 2, topic.Len())
}

func TestTopicUnsubscribe(t *testing.T) {
	var topic Topic[string]
	calls := 0

	unsubscribe := topic.Subscribe(func(string) { calls++ })
	topic.Publish("a")
	unsubscribe()
	unsubscribe()
	topic.Publish("b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, topic.Len())
}

func TestTopicSubscriberMaySubscribeDuringPublish(t *testing.T) {
	var topic Topic[int]
	late := 0

	topic.Subscribe(func(int) {
		if topic.Len() == 1 {
			topic.Subscribe(func(int) { late++ })
		}
	})

	topic.Publish(1)
	assert.Equal(t, 0, late)

	topic.Publish(2)
	assert.Equal(t, 1, late)
}
