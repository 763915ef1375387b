package pcm

import (
	"testing"
	"time"

	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamClockDrivesNotifications(t *testing.T) {
	tp := clock.NewManualProvider(time.Unix(0, 0))
	elapsed := 0
	s, err := NewStream(interfaces.Playback, StreamConfig{
		SampleRate:    48000,
		BufferPeriods: 8,
		TimeProvider:  tp,
		OnElapsed:     func(n int) { elapsed += n },
	})
	require.NoError(t, err)
	defer s.Close()

	tp.Advance(10 * time.Millisecond)
	assert.Zero(t, elapsed, "clock does not run before Trigger")

	require.NoError(t, s.Trigger(true))
	tp.Advance(8 * time.Millisecond)
	assert.Equal(t, 2, elapsed)
	assert.Equal(t, 384, s.Position())

	require.NoError(t, s.Trigger(false))
	tp.Advance(8 * time.Millisecond)
	assert.Equal(t, 2, elapsed)
}

func TestStreamPrepareResets(t *testing.T) {
	tp := clock.NewManualProvider(time.Unix(0, 0))
	s, err := NewStream(interfaces.Playback, StreamConfig{SampleRate: 48000, BufferPeriods: 4, TimeProvider: tp})
	require.NoError(t, err)
	require.NoError(t, s.Engine().WriteSamples(0, make([]byte, 10)))
	require.NoError(t, s.Trigger(true))
	tp.Advance(5 * time.Millisecond)

	assert.ErrorIs(t, s.Prepare(), clock.ErrRunning)
	require.NoError(t, s.Trigger(false))
	require.NoError(t, s.Prepare())
	assert.Zero(t, s.Position())
	assert.Zero(t, s.Engine().Queued())
}

func TestStreamInvalidConfig(t *testing.T) {
	_, err := NewStream(interfaces.Capture, StreamConfig{SampleRate: 0, BufferPeriods: 8})
	assert.ErrorIs(t, err, clock.ErrInvalidParams)
	_, err = NewStream(interfaces.Capture, StreamConfig{SampleRate: 48000, BufferPeriods: 0})
	assert.ErrorIs(t, err, clock.ErrInvalidParams)
}

func TestStreamClose(t *testing.T) {
	s, err := NewStream(interfaces.Capture, StreamConfig{SampleRate: 48000, BufferPeriods: 8, TimeProvider: clock.NewManualProvider(time.Unix(0, 0))})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Engine().ReadSamples(0, make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Trigger(true), clock.ErrClosed)
}
