package interfaces

import (
	"errors"
	"net"
)

// FrameHandler receives one complete link-layer frame. It runs in the
// transport's receive context and must not block. The frame buffer is only
// valid for the duration of the call.
type FrameHandler func(frame []byte)

// ILinkTransport is the network layer the core consumes: it transmits raw
// link-layer frames and delivers received frames of the registered type to
// a single handler.
type ILinkTransport interface {
	// Send transmits a complete link-layer frame.
	Send(frame []byte) error

	// SetReceiver registers the receive callback. A nil handler discards
	// incoming frames.
	SetReceiver(handler FrameHandler)

	// HardwareAddr returns the local hardware address used as frame source.
	HardwareAddr() net.HardwareAddr

	// Close shuts down the transport. After Close returns the receive
	// callback is never invoked again.
	Close() error
}

// LinkMode selects the link transport implementation.
type LinkMode string

const (
	// LinkModeRaw uses a raw packet socket bound to a network interface.
	LinkModeRaw LinkMode = "raw"

	// LinkModeSimulation uses an in-process simulated Ethernet segment.
	LinkModeSimulation LinkMode = "simulation"
)

// LinkConfig holds configuration for link transport implementations.
type LinkConfig struct {
	// Mode determines whether to use a raw socket or a simulated segment
	Mode LinkMode

	// Interface names the network interface for raw mode
	Interface string
}

var (
	// ErrInvalidLinkMode indicates an unknown link mode
	ErrInvalidLinkMode = errors.New("link mode must be raw or simulation")

	// ErrMissingInterface indicates raw mode without an interface name
	ErrMissingInterface = errors.New("raw link mode requires an interface name")
)

// Validate checks the LinkConfig for invalid values.
func (c *LinkConfig) Validate() error {
	switch c.Mode {
	case LinkModeRaw:
		if c.Interface == "" {
			return ErrMissingInterface
		}
	case LinkModeSimulation:
	default:
		return ErrInvalidLinkMode
	}
	return nil
}
