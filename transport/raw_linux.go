//go:build linux

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// RawTransport sends and receives 802.3 frames through an AF_PACKET socket
// bound to one interface. Only frames the kernel classifies as 802.2
// (length field instead of an EtherType) are delivered.
type RawTransport struct {
	fd      int
	ifindex int
	ifname  string
	hwaddr  net.HardwareAddr

	handler   interfaces.FrameHandler
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewRawTransport opens a raw packet socket on the named interface and
// starts the receive loop. It requires CAP_NET_RAW.
func NewRawTransport(ifname string) (*RawTransport, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %q: %w", ifname, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("%w: %s", ErrNoHardwareAddr, ifname)
	}

	proto := htons(unix.ETH_P_802_2)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return nil, fmt.Errorf("open packet socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: proto, Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind packet socket to %s: %w", ifname, err)
	}
	// The receive loop polls its context between reads.
	tv := unix.NsecToTimeval(int64(readTimeout))
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &RawTransport{
		fd:      fd,
		ifindex: iface.Index,
		ifname:  ifname,
		hwaddr:  iface.HardwareAddr,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewRawTransport",
		"interface": ifname,
		"hwaddr":    t.hwaddr.String(),
	}).Info("Raw link transport opened")

	go t.processFrames()
	return t, nil
}

// SetReceiver implements interfaces.ILinkTransport.
func (t *RawTransport) SetReceiver(handler interfaces.FrameHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// HardwareAddr implements interfaces.ILinkTransport.
func (t *RawTransport) HardwareAddr() net.HardwareAddr {
	return t.hwaddr
}

// Send implements interfaces.ILinkTransport.
func (t *RawTransport) Send(frame []byte) error {
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	if err := limits.ValidateFrameSize(frame); err != nil {
		return err
	}
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_802_3),
		Ifindex:  t.ifindex,
		Halen:    6,
	}
	copy(sa.Addr[:], frame[0:6])
	return unix.Sendto(t.fd, frame, 0, sa)
}

// Close stops the receive loop and closes the socket.
func (t *RawTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		<-t.done
		err = unix.Close(t.fd)
		logrus.WithFields(logrus.Fields{
			"function":  "RawTransport.Close",
			"interface": t.ifname,
		}).Info("Raw link transport closed")
	})
	return err
}

// processFrames handles incoming frames until the transport is closed.
func (t *RawTransport) processFrames() {
	defer close(t.done)
	buffer := make([]byte, limits.ReceiveBufferSize)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
			t.processIncomingFrame(buffer)
		}
	}
}

// processIncomingFrame reads one frame and dispatches it to the handler.
func (t *RawTransport) processIncomingFrame(buffer []byte) {
	n, from, err := unix.Recvfrom(t.fd, buffer, 0)
	if err != nil {
		t.handleReadError(err)
		return
	}
	// Packet sockets also see our own transmissions.
	if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
		return
	}

	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()
	if handler != nil {
		handler(buffer[:n])
	}
}

// handleReadError distinguishes receive timeouts from real failures.
func (t *RawTransport) handleReadError(err error) {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
		return
	}
	if t.ctx.Err() != nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":  "RawTransport.processIncomingFrame",
		"interface": t.ifname,
		"error":     err.Error(),
	}).Warn("Receive failed")
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
