package interfaces

import (
	"errors"
	"fmt"
	"net"

	"github.com/opd-ai/ccoaudio/limits"
)

// StreamDirection identifies one of the two audio streams of a device.
type StreamDirection int

const (
	// Playback carries host audio to the peer.
	Playback StreamDirection = iota
	// Capture carries peer audio to the host.
	Capture
)

// String returns the lowercase name of the direction.
func (d StreamDirection) String() string {
	switch d {
	case Playback:
		return "playback"
	case Capture:
		return "capture"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// CardConfig describes the endpoint a framework is asked to expose for one
// session. Geometry values are in frames; a frame holds one sample per
// channel.
type CardConfig struct {
	// Name is a human-readable card name, unique per live session
	Name string

	// Peer and Generation identify the session the card belongs to
	Peer       net.HardwareAddr
	Generation uint8

	// Channels is the number of channels per stream
	Channels int

	// SampleRate is the nominal rate in frames per second
	SampleRate int

	// SampleSize is the number of bytes per sample
	SampleSize int

	// PeriodFrames is the number of frames per period
	PeriodFrames int

	// BufferPeriods is the number of periods in the emulated ring buffer
	BufferPeriods int
}

var (
	// ErrInvalidGeometry indicates a non-positive channel, size or period value
	ErrInvalidGeometry = errors.New("card geometry values must be positive")

	// ErrInvalidSampleRate indicates a sample rate outside
	// [1, limits.MaxSampleRate]
	ErrInvalidSampleRate = errors.New("sample rate out of range")
)

// Validate checks the CardConfig for invalid values.
func (c *CardConfig) Validate() error {
	if c.SampleRate <= 0 || c.SampleRate > limits.MaxSampleRate {
		return ErrInvalidSampleRate
	}
	if c.Channels <= 0 || c.SampleSize <= 0 || c.PeriodFrames <= 0 || c.BufferPeriods <= 0 {
		return ErrInvalidGeometry
	}
	return nil
}

// PeriodBytes returns the size of one channel's slice of a period.
func (c *CardConfig) PeriodBytes() int {
	return c.PeriodFrames * c.SampleSize
}

// ISampleEndpoint is implemented by the core and handed to the framework:
// the framework moves sample bytes and drives stream state through it.
type ISampleEndpoint interface {
	// WriteSamples appends playback bytes for one channel.
	WriteSamples(channel int, p []byte) error

	// ReadSamples copies up to len(p) capture bytes of one channel into p.
	ReadSamples(channel int, p []byte) (int, error)

	// Trigger starts or stops the software clock of one stream.
	Trigger(dir StreamDirection, start bool) error

	// Position returns the current frame position within the buffer.
	Position(dir StreamDirection) (int, error)
}

// ICard is the framework-side object created for one session.
type ICard interface {
	// PeriodElapsed notifies the framework that one period boundary passed.
	// It is called from the clock context and must not block.
	PeriodElapsed(dir StreamDirection)

	// Close releases the card. The endpoint must not be used afterwards.
	Close() error
}

// IAudioFramework creates cards for sessions whose handshake completed.
type IAudioFramework interface {
	// CreateCard registers a card backed by endpoint.
	CreateCard(cfg CardConfig, endpoint ISampleEndpoint) (ICard, error)
}
