package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualAfterFuncFiresOnce(t *testing.T) {
	start := time.UnixMilli(0)
	m := NewManual(start)

	fired := 0
	m.AfterFunc(150*time.Millisecond, func() { fired++ })

	m.Advance(149 * time.Millisecond)
	assert.Equal(t, 0, fired)

	m.Advance(1 * time.Millisecond)
	assert.Equal(t, 1, fired)

	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualStopPreventsRun(t *testing.T) {
	m := NewManual(time.UnixMilli(0))

	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualEveryRepeatsInOrder(t *testing.T) {
	start := time.UnixMilli(0)
	m := NewManual(start)

	var order []string
	var at []time.Duration
	m.Every(5*time.Second, func() {
		order = append(order, "trajectory")
		at = append(at, m.Now().Sub(start))
	})
	m.AfterFunc(7*time.Second, func() { order = append(order, "once") })

	m.Advance(11 * time.Second)

	assert.Equal(t, []string{"trajectory", "once", "trajectory"}, order)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, at)
	assert.Equal(t, start.Add(11*time.Second), m.Now())
}

func TestManualCallbackCanReschedule(t *testing.T) {
	m := NewManual(time.UnixMilli(0))

	fired := 0
	var arm func()
	arm = func() {
		m.AfterFunc(100*time.Millisecond, func() {
			fired++
			if fired < 3 {
				arm()
			}
		})
	}
	arm()

	m.Advance(time.Second)
	assert.Equal(t, 3, fired)
}
