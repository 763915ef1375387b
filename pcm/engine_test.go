package pcm

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const block = protocol.ChannelBlockSize

func pattern(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestPlaybackFillThenDrain(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{})

	// Channel 0 in uneven chunks, channel 1 in one go, interleaved.
	ch0 := pattern(1, block)
	ch1 := pattern(100, block)
	require.NoError(t, e.WriteSamples(0, ch0[:100]))
	require.NoError(t, e.WriteSamples(1, ch1))
	require.NoError(t, e.WriteSamples(0, ch0[100:333]))
	_, err := e.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrNoData, "partial period must not be returned")
	require.NoError(t, e.WriteSamples(0, ch0[333:]))

	msg, err := e.NextReadyPeriod()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), msg.Sequence)
	assert.Equal(t, ch0, msg.Channel(0))
	assert.Equal(t, ch1, msg.Channel(1))

	_, err = e.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, e.Queued())
}

func TestPlaybackRandomSplitYieldsExactlyOnePeriod(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		e := NewEngine(interfaces.Playback, EngineConfig{})
		remaining := [protocol.ChannelsPerPacket]int{block, block}
		for remaining[0]+remaining[1] > 0 {
			ch := rng.Intn(protocol.ChannelsPerPacket)
			if remaining[ch] == 0 {
				continue
			}
			n := 1 + rng.Intn(remaining[ch])
			require.NoError(t, e.WriteSamples(ch, make([]byte, n)))
			remaining[ch] -= n
			if remaining[0]+remaining[1] > 0 {
				_, err := e.NextReadyPeriod()
				require.ErrorIs(t, err, ErrNoData)
			}
		}
		_, err := e.NextReadyPeriod()
		require.NoError(t, err)
		_, err = e.NextReadyPeriod()
		require.ErrorIs(t, err, ErrNoData)
	}
}

func TestPlaybackSingleChannelNeverReady(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{})
	require.NoError(t, e.WriteSamples(0, make([]byte, 500)))

	_, err := e.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1, e.Queued())
}

func TestPlaybackWriteSpanningPeriods(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{})
	data := pattern(3, 3*block)
	require.NoError(t, e.WriteSamples(0, data))
	require.NoError(t, e.WriteSamples(1, make([]byte, 2*block+1)))
	assert.Equal(t, 3, e.Queued())
	assert.Equal(t, uint64(3), e.Cursor(0))
	assert.Equal(t, uint64(2), e.Cursor(1))

	for i := 0; i < 2; i++ {
		msg, err := e.NextReadyPeriod()
		require.NoError(t, err)
		assert.Equal(t, uint32(i), msg.Sequence)
		assert.Equal(t, data[i*block:(i+1)*block], msg.Channel(0))
	}
	_, err := e.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCursorMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	e := NewEngine(interfaces.Playback, EngineConfig{MaxQueued: 4})
	var last [protocol.ChannelsPerPacket]uint64
	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0, 1:
			ch := rng.Intn(protocol.ChannelsPerPacket)
			require.NoError(t, e.WriteSamples(ch, make([]byte, rng.Intn(2*block))))
		case 2:
			_, _ = e.NextReadyPeriod()
		}
		for ch := range last {
			c := e.Cursor(ch)
			require.GreaterOrEqual(t, c, last[ch], "cursor of channel %d regressed", ch)
			last[ch] = c
		}
	}
}

func TestPlaybackOverflowDropsOldest(t *testing.T) {
	overflows := 0
	e := NewEngine(interfaces.Playback, EngineConfig{MaxQueued: 2, OnOverflow: func() { overflows++ }})
	for i := 0; i < 3; i++ {
		require.NoError(t, e.WriteSamples(0, pattern(byte(i), block)))
		require.NoError(t, e.WriteSamples(1, pattern(byte(i), block)))
	}
	assert.Equal(t, 2, e.Queued())
	assert.Equal(t, uint64(1), e.Overflows())
	assert.Equal(t, 1, overflows)

	msg, err := e.NextReadyPeriod()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), msg.Sequence, "period 0 was dropped")
}

func TestOverflowMovesLaggingCursor(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{MaxQueued: 2})
	require.NoError(t, e.WriteSamples(0, make([]byte, 3*block)))
	assert.Equal(t, uint64(1), e.Cursor(1), "channel 1 followed the dropped head")

	require.NoError(t, e.WriteSamples(1, make([]byte, block)))
	msg, err := e.NextReadyPeriod()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), msg.Sequence)
}

func TestCaptureMirrorsPlayback(t *testing.T) {
	e := NewEngine(interfaces.Capture, EngineConfig{})
	in := protocol.PcmData{Sequence: 9, Data: append(pattern(1, block), pattern(50, block)...)}
	require.NoError(t, e.AcceptIncoming(in))
	in2 := protocol.PcmData{Sequence: 10, Data: append(pattern(2, block), pattern(51, block)...)}
	require.NoError(t, e.AcceptIncoming(in2))

	buf := make([]byte, block+10)
	n, err := e.ReadSamples(0, buf)
	require.NoError(t, err)
	assert.Equal(t, block+10, n)
	assert.Equal(t, in.Channel(0), buf[:block])
	assert.Equal(t, in2.Channel(0)[:10], buf[block:])
	assert.Equal(t, 2, e.Queued(), "channel 1 has not consumed period 9")

	n, err = e.ReadSamples(1, make([]byte, block))
	require.NoError(t, err)
	assert.Equal(t, block, n)
	assert.Equal(t, 1, e.Queued(), "period 9 fully consumed")

	rest := make([]byte, 2*block)
	n, err = e.ReadSamples(1, rest)
	require.NoError(t, err)
	assert.Equal(t, block, n)
	assert.True(t, bytes.Equal(in2.Channel(1), rest[:n]))

	n, err = e.ReadSamples(0, rest)
	require.NoError(t, err)
	assert.Equal(t, block-10, n)
	assert.Zero(t, e.Queued())

	_, err = e.ReadSamples(0, rest)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCaptureInputNotAliased(t *testing.T) {
	e := NewEngine(interfaces.Capture, EngineConfig{})
	data := pattern(5, protocol.PeriodDataSize)
	require.NoError(t, e.AcceptIncoming(protocol.PcmData{Data: data}))
	data[0] = 0xff

	buf := make([]byte, 1)
	_, err := e.ReadSamples(0, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(5), buf[0])
}

func TestCaptureOverflow(t *testing.T) {
	e := NewEngine(interfaces.Capture, EngineConfig{MaxQueued: 2})
	for i := 0; i < 5; i++ {
		require.NoError(t, e.AcceptIncoming(protocol.PcmData{Sequence: uint32(i), Data: make([]byte, protocol.PeriodDataSize)}))
	}
	assert.Equal(t, 2, e.Queued())
	assert.Equal(t, uint64(3), e.Overflows())
	assert.Equal(t, uint64(3), e.Cursor(0))
}

func TestEngineRejections(t *testing.T) {
	play := NewEngine(interfaces.Playback, EngineConfig{})
	capt := NewEngine(interfaces.Capture, EngineConfig{})

	assert.ErrorIs(t, play.WriteSamples(2, []byte{1}), ErrInvalidChannel)
	assert.ErrorIs(t, play.WriteSamples(-1, []byte{1}), ErrInvalidChannel)
	_, err := capt.ReadSamples(5, make([]byte, 1))
	assert.ErrorIs(t, err, ErrInvalidChannel)

	assert.ErrorIs(t, capt.WriteSamples(0, []byte{1}), ErrWrongDirection)
	_, err = capt.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrWrongDirection)
	assert.ErrorIs(t, play.AcceptIncoming(protocol.PcmData{Data: make([]byte, protocol.PeriodDataSize)}), ErrWrongDirection)
	_, err = play.ReadSamples(0, make([]byte, 1))
	assert.ErrorIs(t, err, ErrWrongDirection)

	assert.ErrorIs(t, capt.AcceptIncoming(protocol.PcmData{Data: []byte{1}}), protocol.ErrInvalidMessage)

	play.Close()
	assert.ErrorIs(t, play.WriteSamples(0, []byte{1}), ErrClosed)
	_, err = play.NextReadyPeriod()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSequenceWraps(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{})
	e.nextSeq = ^uint32(0)
	for i := 0; i < 2; i++ {
		require.NoError(t, e.WriteSamples(0, make([]byte, block)))
		require.NoError(t, e.WriteSamples(1, make([]byte, block)))
	}
	first, err := e.NextReadyPeriod()
	require.NoError(t, err)
	second, err := e.NextReadyPeriod()
	require.NoError(t, err)
	assert.Equal(t, ^uint32(0), first.Sequence)
	assert.Equal(t, uint32(0), second.Sequence)
}

func TestResetKeepsCursorsMonotonic(t *testing.T) {
	e := NewEngine(interfaces.Playback, EngineConfig{})
	require.NoError(t, e.WriteSamples(0, make([]byte, 2*block+5)))
	before := e.Cursor(1)
	e.Reset()
	assert.Zero(t, e.Queued())
	assert.GreaterOrEqual(t, e.Cursor(1), before)
	assert.Equal(t, e.Cursor(0), e.Cursor(1))
}
