//go:build !linux

package transport

import (
	"net"

	"github.com/opd-ai/ccoaudio/interfaces"
)

// RawTransport is only available on Linux.
type RawTransport struct{}

// NewRawTransport always fails with ErrUnsupported.
func NewRawTransport(ifname string) (*RawTransport, error) {
	return nil, ErrUnsupported
}

// SetReceiver implements interfaces.ILinkTransport.
func (t *RawTransport) SetReceiver(interfaces.FrameHandler) {}

// HardwareAddr implements interfaces.ILinkTransport.
func (t *RawTransport) HardwareAddr() net.HardwareAddr { return nil }

// Send implements interfaces.ILinkTransport.
func (t *RawTransport) Send([]byte) error { return ErrUnsupported }

// Close implements interfaces.ILinkTransport.
func (t *RawTransport) Close() error { return nil }
