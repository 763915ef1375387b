// Package limits provides centralized size and capacity limits for the
// Ethernet audio link. This ensures consistent validation across the
// transport, session and PCM layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// LinkHeaderSize is the size of the 802.3 header (two addresses and the
	// type/length field). The frame check sequence is handled by the NIC.
	LinkHeaderSize = 14

	// MaxLinkPayload is the Ethernet MTU. Every protocol payload must fit.
	MaxLinkPayload = 1500

	// MinFrameSize is the minimum Ethernet frame size without FCS. Shorter
	// frames are padded on transmit.
	MinFrameSize = 60

	// MaxFrameSize is the largest frame accepted on transmit.
	MaxFrameSize = LinkHeaderSize + MaxLinkPayload

	// ReceiveBufferSize is the size of the per-socket receive buffer. It is
	// larger than MaxFrameSize so oversized frames are detected, not clipped.
	ReceiveBufferSize = 2048
)

const (
	// ControlQueueCapacity is the capacity of the session-control queue
	// between the receive path and the session manager. Overflowing frames
	// are dropped.
	ControlQueueCapacity = 8

	// DefaultSessionCapacity is the default number of session slots.
	DefaultSessionCapacity = 8

	// MaxSessionCapacity bounds configurable session tables.
	MaxSessionCapacity = 256

	// DefaultMaxQueuedPeriods caps each direction's period queue. On
	// overflow the oldest period is dropped.
	DefaultMaxQueuedPeriods = 64

	// MinQueuedPeriods is the smallest usable queue depth: one period being
	// filled and one waiting for transmission.
	MinQueuedPeriods = 2

	// MaxQueuedPeriods bounds configurable queue depths (about 4s of audio
	// at 48kHz and 192 frames per period).
	MaxQueuedPeriods = 1024
)

const (
	// MaxClockHz bounds the software clock tick rate. A tick must stay at
	// least one nanosecond long.
	MaxClockHz = 1_000_000

	// MaxSampleRate bounds the nominal sample rate of a card.
	MaxSampleRate = 384_000
)

var (
	// ErrFrameEmpty indicates an empty frame was provided
	ErrFrameEmpty = errors.New("empty frame")

	// ErrFrameTooLarge indicates a frame exceeds MaxFrameSize
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameTooSmall indicates a frame is shorter than the link header
	ErrFrameTooSmall = errors.New("frame too small")

	// ErrOutOfRange indicates a capacity setting outside its bounds
	ErrOutOfRange = errors.New("value out of range")
)

// ValidateFrameSize validates a complete link-layer frame against the link
// header size and MaxFrameSize.
// Returns an error with context including the actual and limit sizes.
func ValidateFrameSize(frame []byte) error {
	if len(frame) == 0 {
		return ErrFrameEmpty
	}
	if len(frame) < LinkHeaderSize {
		return fmt.Errorf("%w: size %d below link header %d", ErrFrameTooSmall, len(frame), LinkHeaderSize)
	}
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, len(frame), MaxFrameSize)
	}
	return nil
}

// ValidateSessionCapacity checks a session table size.
func ValidateSessionCapacity(n int) error {
	if n < 1 || n > MaxSessionCapacity {
		return fmt.Errorf("%w: session capacity %d not in [1, %d]", ErrOutOfRange, n, MaxSessionCapacity)
	}
	return nil
}

// ValidateClockHz checks a software clock tick rate.
func ValidateClockHz(hz int) error {
	if hz < 1 || hz > MaxClockHz {
		return fmt.Errorf("%w: clock rate %d not in [1, %d]", ErrOutOfRange, hz, MaxClockHz)
	}
	return nil
}

// ValidateQueueDepth checks a period queue depth.
func ValidateQueueDepth(n int) error {
	if n < MinQueuedPeriods || n > MaxQueuedPeriods {
		return fmt.Errorf("%w: queue depth %d not in [%d, %d]", ErrOutOfRange, n, MinQueuedPeriods, MaxQueuedPeriods)
	}
	return nil
}
