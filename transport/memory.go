package transport

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/sirupsen/logrus"
)

// DefaultInboxSize is the number of frames an endpoint buffers before the
// segment drops frames addressed to it.
const DefaultInboxSize = 256

var broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Segment is a simulated Ethernet segment. Frames sent by an attached
// endpoint are delivered to the endpoint owning the destination address,
// or to every other endpoint when sent to the broadcast address. Like a
// real segment it is lossy: a frame is dropped when the receiver's inbox
// is full.
type Segment struct {
	mu        sync.RWMutex
	endpoints map[string]*MemoryTransport
	nextAddr  uint32
	inboxSize int
}

// NewSegment creates an empty segment.
func NewSegment() *Segment {
	return &Segment{
		endpoints: make(map[string]*MemoryTransport),
		inboxSize: DefaultInboxSize,
	}
}

// Attach connects a new endpoint with addr to the segment. A nil addr
// assigns the next locally administered address.
func (s *Segment) Attach(addr net.HardwareAddr) (*MemoryTransport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr == nil {
		s.nextAddr++
		n := s.nextAddr
		addr = net.HardwareAddr{0x02, 0x00, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
	if len(addr) != 6 {
		return nil, ErrNoHardwareAddr
	}
	if _, exists := s.endpoints[addr.String()]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAddressInUse, addr)
	}

	t := &MemoryTransport{
		segment: s,
		addr:    append(net.HardwareAddr(nil), addr...),
		inbox:   make(chan []byte, s.inboxSize),
		stop:    make(chan struct{}),
	}
	s.endpoints[addr.String()] = t
	t.wg.Add(1)
	go t.processFrames()
	return t, nil
}

// Endpoints returns the number of attached endpoints.
func (s *Segment) Endpoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.endpoints)
}

func (s *Segment) detach(t *MemoryTransport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoints[t.addr.String()] == t {
		delete(s.endpoints, t.addr.String())
	}
}

// deliver routes frame from src by its destination address.
func (s *Segment) deliver(src *MemoryTransport, frame []byte) {
	dst := net.HardwareAddr(frame[0:6])

	s.mu.RLock()
	defer s.mu.RUnlock()
	if bytes.Equal(dst, broadcast) {
		for _, ep := range s.endpoints {
			if ep != src {
				ep.enqueue(frame)
			}
		}
		return
	}
	if ep, ok := s.endpoints[dst.String()]; ok && ep != src {
		ep.enqueue(frame)
	}
}

// MemoryTransport is an endpoint on a simulated Segment. Each endpoint
// delivers received frames to its handler from its own goroutine, in
// arrival order.
type MemoryTransport struct {
	segment *Segment
	addr    net.HardwareAddr
	inbox   chan []byte
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.RWMutex
	handler interfaces.FrameHandler
	sendErr error

	closed    atomic.Bool
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// SetReceiver implements interfaces.ILinkTransport.
func (t *MemoryTransport) SetReceiver(handler interfaces.FrameHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// HardwareAddr implements interfaces.ILinkTransport.
func (t *MemoryTransport) HardwareAddr() net.HardwareAddr {
	return t.addr
}

// SetSendError makes every following Send fail with err until it is reset
// with nil. It simulates a link that rejects transmissions.
func (t *MemoryTransport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// Send implements interfaces.ILinkTransport. The frame is copied, so the
// caller may reuse it.
func (t *MemoryTransport) Send(frame []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := limits.ValidateFrameSize(frame); err != nil {
		return err
	}
	t.mu.RLock()
	err := t.sendErr
	t.mu.RUnlock()
	if err != nil {
		return err
	}
	t.segment.deliver(t, append([]byte(nil), frame...))
	return nil
}

// Dropped returns the number of frames dropped because the inbox was full.
func (t *MemoryTransport) Dropped() uint64 {
	return t.dropped.Load()
}

// Close detaches the endpoint and waits for its delivery goroutine.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.segment.detach(t)
		close(t.stop)
		t.wg.Wait()
	})
	return nil
}

func (t *MemoryTransport) enqueue(frame []byte) {
	select {
	case t.inbox <- frame:
	default:
		t.dropped.Add(1)
	}
}

// processFrames hands queued frames to the handler until Close.
func (t *MemoryTransport) processFrames() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stop:
			return
		case frame := <-t.inbox:
			t.mu.RLock()
			handler := t.handler
			t.mu.RUnlock()
			if handler == nil {
				continue
			}
			handler(frame)
			logrus.WithFields(logrus.Fields{
				"function": "MemoryTransport.processFrames",
				"hwaddr":   t.addr.String(),
				"size":     len(frame),
			}).Trace("Frame delivered")
		}
	}
}
