package transport

import "errors"

var (
	// ErrClosed indicates the transport was closed
	ErrClosed = errors.New("link transport closed")

	// ErrUnsupported indicates raw link access is not available on this
	// platform
	ErrUnsupported = errors.New("raw link access is not supported on this platform")

	// ErrAddressInUse indicates a segment endpoint with the same hardware
	// address is already attached
	ErrAddressInUse = errors.New("hardware address already attached to segment")

	// ErrNoHardwareAddr indicates the interface has no usable hardware address
	ErrNoHardwareAddr = errors.New("interface has no 6-byte hardware address")
)
