// Package device implements the audio endpoint bound to an active session.
package device

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/opd-ai/ccoaudio/pcm"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCreateFailed indicates the device could not be created: stream
	// setup failed or the audio framework refused the card.
	ErrCreateFailed = errors.New("device creation failed")

	// ErrStreamInactive indicates the peer reported the stream inactive.
	ErrStreamInactive = errors.New("stream inactive")

	// ErrInvalidDirection indicates an unknown stream direction.
	ErrInvalidDirection = errors.New("invalid stream direction")
)

// Config describes the device created for one session.
type Config struct {
	Name       string
	Peer       net.HardwareAddr
	Generation uint8

	SampleRate    int
	BufferPeriods int
	MaxQueued     int
	ClockHz       int
	TimeProvider  clock.TimeProvider
	Metrics       *metrics.Recorder
}

// Device owns the playback and capture streams of a session and the card
// the audio framework created for them.
type Device struct {
	name     string
	playback *pcm.Stream
	capture  *pcm.Stream
	mask     atomic.Uint32
	card     atomic.Pointer[cardRef]
	metrics  *metrics.Recorder

	closeOnce sync.Once
	closeErr  error
}

type cardRef struct{ interfaces.ICard }

var _ interfaces.ISampleEndpoint = (*Device)(nil)

// New builds both streams and asks framework for a card. Any failure
// releases what was built and returns an error wrapping ErrCreateFailed.
// A nil framework creates a device without a card.
func New(framework interfaces.IAudioFramework, cfg Config) (*Device, error) {
	d := &Device{name: cfg.Name, metrics: cfg.Metrics}
	d.mask.Store(uint32(protocol.MaskAll))

	var err error
	d.playback, err = d.newStream(interfaces.Playback, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: playback stream: %v", ErrCreateFailed, err)
	}
	d.capture, err = d.newStream(interfaces.Capture, cfg)
	if err != nil {
		d.playback.Close()
		return nil, fmt.Errorf("%w: capture stream: %v", ErrCreateFailed, err)
	}

	if framework != nil {
		card, err := framework.CreateCard(interfaces.CardConfig{
			Name:          cfg.Name,
			Peer:          cfg.Peer,
			Generation:    cfg.Generation,
			Channels:      protocol.ChannelsPerPacket,
			SampleRate:    cfg.SampleRate,
			SampleSize:    protocol.SampleSize,
			PeriodFrames:  protocol.SamplesPerChannel,
			BufferPeriods: cfg.BufferPeriods,
		}, d)
		if err != nil {
			d.playback.Close()
			d.capture.Close()
			return nil, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		d.card.Store(&cardRef{card})
	}

	logrus.WithFields(logrus.Fields{
		"function":   "device.New",
		"name":       cfg.Name,
		"peer":       cfg.Peer.String(),
		"generation": cfg.Generation,
	}).Debug("Device created")
	return d, nil
}

func (d *Device) newStream(dir interfaces.StreamDirection, cfg Config) (*pcm.Stream, error) {
	label := dir.String()
	return pcm.NewStream(dir, pcm.StreamConfig{
		SampleRate:    cfg.SampleRate,
		BufferPeriods: cfg.BufferPeriods,
		MaxQueued:     cfg.MaxQueued,
		Hz:            cfg.ClockHz,
		TimeProvider:  cfg.TimeProvider,
		OnElapsed:     func(n int) { d.periodElapsed(dir, n) },
		OnOverflow:    func() { d.metrics.PeriodOverflow(label) },
	})
}

// periodElapsed forwards clock notifications to the card, once per period.
func (d *Device) periodElapsed(dir interfaces.StreamDirection, n int) {
	d.metrics.PeriodElapsed(dir.String(), n)
	ref := d.card.Load()
	if ref == nil {
		return
	}
	for i := 0; i < n; i++ {
		ref.PeriodElapsed(dir)
	}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// SetActivity applies a PcmControl mask reported by the peer.
func (d *Device) SetActivity(mask protocol.StreamMask) {
	old := protocol.StreamMask(d.mask.Swap(uint32(mask)))
	if old != mask {
		logrus.WithFields(logrus.Fields{
			"function": "Device.SetActivity",
			"name":     d.name,
			"capture":  mask.CaptureActive(),
			"playback": mask.PlaybackActive(),
		}).Debug("Stream activity changed")
	}
}

// Activity returns the current stream activity mask.
func (d *Device) Activity() protocol.StreamMask {
	return protocol.StreamMask(d.mask.Load())
}

// NextPlaybackPeriod returns the next complete playback period. While the
// peer reports playback inactive, ready periods are discarded and
// ErrStreamInactive is returned.
func (d *Device) NextPlaybackPeriod() (protocol.PcmData, error) {
	msg, err := d.playback.Engine().NextReadyPeriod()
	if err != nil {
		return protocol.PcmData{}, err
	}
	if !d.Activity().PlaybackActive() {
		return protocol.PcmData{}, ErrStreamInactive
	}
	return msg, nil
}

// AcceptCapture queues a received period for capture. It is dropped with
// ErrStreamInactive while the peer reports capture inactive.
func (d *Device) AcceptCapture(msg protocol.PcmData) error {
	if !d.Activity().CaptureActive() {
		return ErrStreamInactive
	}
	return d.capture.Engine().AcceptIncoming(msg)
}

// Queued returns the number of queued periods of a direction.
func (d *Device) Queued(dir interfaces.StreamDirection) int {
	s, err := d.stream(dir)
	if err != nil {
		return 0
	}
	return s.Engine().Queued()
}

// WriteSamples implements interfaces.ISampleEndpoint.
func (d *Device) WriteSamples(channel int, p []byte) error {
	return d.playback.Engine().WriteSamples(channel, p)
}

// ReadSamples implements interfaces.ISampleEndpoint.
func (d *Device) ReadSamples(channel int, p []byte) (int, error) {
	return d.capture.Engine().ReadSamples(channel, p)
}

// Trigger implements interfaces.ISampleEndpoint.
func (d *Device) Trigger(dir interfaces.StreamDirection, start bool) error {
	s, err := d.stream(dir)
	if err != nil {
		return err
	}
	return s.Trigger(start)
}

// Position implements interfaces.ISampleEndpoint.
func (d *Device) Position(dir interfaces.StreamDirection) (int, error) {
	s, err := d.stream(dir)
	if err != nil {
		return 0, err
	}
	return s.Position(), nil
}

// Prepare rewinds the clock of a stopped stream and drops its queue.
func (d *Device) Prepare(dir interfaces.StreamDirection) error {
	s, err := d.stream(dir)
	if err != nil {
		return err
	}
	return s.Prepare()
}

func (d *Device) stream(dir interfaces.StreamDirection) (*pcm.Stream, error) {
	switch dir {
	case interfaces.Playback:
		return d.playback, nil
	case interfaces.Capture:
		return d.capture, nil
	default:
		return nil, ErrInvalidDirection
	}
}

// Close releases the card, then stops both clocks and drops queued periods.
// It is safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		var errs []error
		if ref := d.card.Swap(nil); ref != nil {
			if err := ref.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close card: %w", err))
			}
		}
		if err := d.playback.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := d.capture.Close(); err != nil {
			errs = append(errs, err)
		}
		d.closeErr = errors.Join(errs...)
		logrus.WithFields(logrus.Fields{
			"function": "Device.Close",
			"name":     d.name,
		}).Debug("Device closed")
	})
	return d.closeErr
}
