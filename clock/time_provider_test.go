package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualProviderRunsCallbacksInOrder(t *testing.T) {
	start := time.Unix(1000, 0)
	p := NewManualProvider(start)

	var order []int
	var seenAt []time.Time
	record := func(i int) func() {
		return func() {
			order = append(order, i)
			seenAt = append(seenAt, p.Now())
		}
	}
	p.AfterFunc(30*time.Millisecond, record(3))
	p.AfterFunc(10*time.Millisecond, record(1))
	p.AfterFunc(20*time.Millisecond, record(2))
	p.AfterFunc(20*time.Millisecond, record(22))

	p.Advance(25 * time.Millisecond)
	assert.Equal(t, []int{1, 2, 22}, order)
	assert.Equal(t, start.Add(10*time.Millisecond), seenAt[0])
	assert.Equal(t, start.Add(25*time.Millisecond), p.Now())
	assert.Equal(t, 1, p.Pending())

	p.Advance(5 * time.Millisecond)
	assert.Equal(t, []int{1, 2, 22, 3}, order)
	assert.Zero(t, p.Pending())
}

func TestManualProviderCallbackMayReschedule(t *testing.T) {
	p := NewManualProvider(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		p.AfterFunc(time.Millisecond, tick)
	}
	p.AfterFunc(time.Millisecond, tick)

	p.Advance(10 * time.Millisecond)
	assert.Equal(t, 10, count)
	assert.Equal(t, 1, p.Pending())
}

func TestManualProviderStop(t *testing.T) {
	p := NewManualProvider(time.Unix(0, 0))
	fired := false
	s := p.AfterFunc(time.Millisecond, func() { fired = true })

	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	p.Advance(time.Second)
	assert.False(t, fired)
}

func TestDefaultTimeProvider(t *testing.T) {
	manual := NewManualProvider(time.Unix(42, 0))
	SetDefaultTimeProvider(manual)
	defer SetDefaultTimeProvider(nil)

	assert.Equal(t, manual, Default(nil))
	assert.Equal(t, RealTimeProvider{}, Default(RealTimeProvider{}))

	SetDefaultTimeProvider(nil)
	assert.Equal(t, RealTimeProvider{}, Default(nil))
}
