package session

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/ccoaudio/device"
)

// Session is the logical connection to one peer generation.
//
// State is only changed by the Manager. Timestamps are refreshed by the
// receive classifier and the period worker as well, so they are atomics.
type Session struct {
	handle     Handle
	peer       net.HardwareAddr
	generation uint8
	traceID    uuid.UUID
	created    time.Time

	state    atomic.Uint32
	lastRecv atomic.Int64
	lastSend atomic.Int64
	device   atomic.Pointer[device.Device]
}

func newSession(h Handle, peer net.HardwareAddr, generation uint8, now time.Time) *Session {
	s := &Session{
		handle:     h,
		peer:       append(net.HardwareAddr(nil), peer...),
		generation: generation,
		traceID:    uuid.New(),
		created:    now,
	}
	s.lastRecv.Store(now.UnixNano())
	s.lastSend.Store(now.UnixNano())
	return s
}

// Handle returns the session's table handle.
func (s *Session) Handle() Handle { return s.handle }

// Peer returns the peer hardware address.
func (s *Session) Peer() net.HardwareAddr { return s.peer }

// Generation returns the peer generation id.
func (s *Session) Generation() uint8 { return s.generation }

// TraceID returns the correlation id used in logs.
func (s *Session) TraceID() uuid.UUID { return s.traceID }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Device returns the bound device, or nil.
func (s *Session) Device() *device.Device { return s.device.Load() }

// LastRecv returns the time of the last frame received from the peer.
func (s *Session) LastRecv() time.Time { return time.Unix(0, s.lastRecv.Load()) }

// LastSend returns the time of the last successful transmission.
func (s *Session) LastSend() time.Time { return time.Unix(0, s.lastSend.Load()) }

// TouchRecv records a receive at t. The timestamp never moves backwards.
func (s *Session) TouchRecv(t time.Time) { storeMax(&s.lastRecv, t.UnixNano()) }

// TouchSend records a successful send at t. The timestamp never moves
// backwards.
func (s *Session) TouchSend(t time.Time) { storeMax(&s.lastSend, t.UnixNano()) }

func storeMax(v *atomic.Int64, n int64) {
	for {
		old := v.Load()
		if n <= old || v.CompareAndSwap(old, n) {
			return
		}
	}
}

// transition moves the session to next if the state machine allows it.
func (s *Session) transition(next State) error {
	cur := s.State()
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}
	s.state.Store(uint32(next))
	return nil
}

// String identifies the session in logs.
func (s *Session) String() string {
	return fmt.Sprintf("%s/%d", s.peer, s.generation)
}
