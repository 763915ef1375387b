package device

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/pcm"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCard struct {
	mu      sync.Mutex
	elapsed map[interfaces.StreamDirection]int
	closed  bool
}

func (c *fakeCard) PeriodElapsed(dir interfaces.StreamDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed[dir]++
}

func (c *fakeCard) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeFramework struct {
	err      error
	card     *fakeCard
	cfg      interfaces.CardConfig
	endpoint interfaces.ISampleEndpoint
}

func (f *fakeFramework) CreateCard(cfg interfaces.CardConfig, ep interfaces.ISampleEndpoint) (interfaces.ICard, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cfg = cfg
	f.endpoint = ep
	f.card = &fakeCard{elapsed: make(map[interfaces.StreamDirection]int)}
	return f.card, nil
}

func testConfig(tp clock.TimeProvider) Config {
	return Config{
		Name:          "cco0",
		Peer:          net.HardwareAddr{2, 0, 0, 0, 0, 9},
		Generation:    3,
		SampleRate:    48000,
		BufferPeriods: 8,
		TimeProvider:  tp,
	}
}

func fullPeriod(seed byte) protocol.PcmData {
	data := make([]byte, protocol.PeriodDataSize)
	for i := range data {
		data[i] = seed
	}
	return protocol.PcmData{Sequence: uint32(seed), Data: data}
}

func TestNewCreatesCard(t *testing.T) {
	fw := &fakeFramework{}
	d, err := New(fw, testConfig(clock.NewManualProvider(time.Unix(0, 0))))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "cco0", fw.cfg.Name)
	assert.Equal(t, uint8(3), fw.cfg.Generation)
	assert.Equal(t, protocol.ChannelsPerPacket, fw.cfg.Channels)
	assert.Equal(t, protocol.SamplesPerChannel, fw.cfg.PeriodFrames)
	assert.Equal(t, protocol.SampleSize, fw.cfg.SampleSize)
	assert.Same(t, d, fw.endpoint)
	assert.Equal(t, protocol.MaskAll, d.Activity(), "streams start active")
}

func TestNewFailsWhenFrameworkRefuses(t *testing.T) {
	fw := &fakeFramework{err: errors.New("no free card index")}
	d, err := New(fw, testConfig(nil))
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestNewFailsOnInvalidGeometry(t *testing.T) {
	cfg := testConfig(nil)
	cfg.SampleRate = 0
	_, err := New(&fakeFramework{}, cfg)
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestPlaybackThroughEndpoint(t *testing.T) {
	fw := &fakeFramework{}
	d, err := New(fw, testConfig(clock.NewManualProvider(time.Unix(0, 0))))
	require.NoError(t, err)
	defer d.Close()

	ep := fw.endpoint
	require.NoError(t, ep.WriteSamples(0, make([]byte, protocol.ChannelBlockSize)))
	_, err = d.NextPlaybackPeriod()
	assert.ErrorIs(t, err, pcm.ErrNoData)
	require.NoError(t, ep.WriteSamples(1, make([]byte, protocol.ChannelBlockSize)))
	assert.Equal(t, 1, d.Queued(interfaces.Playback))

	msg, err := d.NextPlaybackPeriod()
	require.NoError(t, err)
	assert.Len(t, msg.Data, protocol.PeriodDataSize)
}

func TestInactivePlaybackDiscards(t *testing.T) {
	d, err := New(nil, testConfig(nil))
	require.NoError(t, err)
	defer d.Close()

	d.SetActivity(protocol.MaskCapture)
	require.NoError(t, d.WriteSamples(0, make([]byte, protocol.ChannelBlockSize)))
	require.NoError(t, d.WriteSamples(1, make([]byte, protocol.ChannelBlockSize)))

	_, err = d.NextPlaybackPeriod()
	assert.ErrorIs(t, err, ErrStreamInactive)
	assert.Zero(t, d.Queued(interfaces.Playback), "the ready period was discarded")
}

func TestCaptureActivity(t *testing.T) {
	d, err := New(nil, testConfig(nil))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.AcceptCapture(fullPeriod(7)))
	d.SetActivity(protocol.MaskPlayback)
	assert.ErrorIs(t, d.AcceptCapture(fullPeriod(8)), ErrStreamInactive)
	assert.Equal(t, 1, d.Queued(interfaces.Capture))

	buf := make([]byte, protocol.ChannelBlockSize)
	n, err := d.ReadSamples(1, buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.ChannelBlockSize, n)
	assert.Equal(t, byte(7), buf[0])
}

func TestClockNotifiesCard(t *testing.T) {
	tp := clock.NewManualProvider(time.Unix(0, 0))
	fw := &fakeFramework{}
	d, err := New(fw, testConfig(tp))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Trigger(interfaces.Playback, true))
	tp.Advance(12 * time.Millisecond)
	pos, err := d.Position(interfaces.Playback)
	require.NoError(t, err)
	assert.Equal(t, 576, pos)

	fw.card.mu.Lock()
	assert.Equal(t, 3, fw.card.elapsed[interfaces.Playback])
	assert.Zero(t, fw.card.elapsed[interfaces.Capture])
	fw.card.mu.Unlock()

	require.NoError(t, d.Trigger(interfaces.Playback, false))
	require.NoError(t, d.Prepare(interfaces.Playback))
	pos, err = d.Position(interfaces.Playback)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestInvalidDirection(t *testing.T) {
	d, err := New(nil, testConfig(nil))
	require.NoError(t, err)
	defer d.Close()

	assert.ErrorIs(t, d.Trigger(interfaces.StreamDirection(9), true), ErrInvalidDirection)
	_, err = d.Position(interfaces.StreamDirection(9))
	assert.ErrorIs(t, err, ErrInvalidDirection)
	assert.Zero(t, d.Queued(interfaces.StreamDirection(9)))
}

func TestCloseReleasesCard(t *testing.T) {
	fw := &fakeFramework{}
	d, err := New(fw, testConfig(clock.NewManualProvider(time.Unix(0, 0))))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.True(t, fw.card.closed)
	assert.ErrorIs(t, d.WriteSamples(0, []byte{1}), pcm.ErrClosed)
}
