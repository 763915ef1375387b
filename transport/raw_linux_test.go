//go:build linux

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRawTransportUnknownInterface(t *testing.T) {
	_, err := NewRawTransport("does-not-exist0")
	assert.Error(t, err)
}

func TestNewRawTransportRequiresHardwareAddr(t *testing.T) {
	// The loopback interface has no hardware address.
	_, err := NewRawTransport("lo")
	assert.ErrorIs(t, err, ErrNoHardwareAddr)
}

func TestHtons(t *testing.T) {
	assert.Equal(t, uint16(0x0400), htons(0x0004))
	assert.Equal(t, uint16(0x3412), htons(0x1234))
}
