package session

import (
	"net"
	"sync"
	"time"

	"github.com/opd-ai/ccoaudio/device"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/sirupsen/logrus"
)

// Handle is a stable reference to a table slot. The tag changes every time
// the slot is reused, so a handle kept past Destroy never reaches the next
// occupant.
type Handle struct {
	slot uint32
	tag  uint32
}

// Slot returns the slot index.
func (h Handle) Slot() int { return int(h.slot) }

type key struct {
	peer       [6]byte
	generation uint8
}

func makeKey(peer net.HardwareAddr, generation uint8) key {
	k := key{generation: generation}
	copy(k.peer[:], peer)
	return k
}

type slot struct {
	tag     uint32
	session *Session
}

// Table is a fixed-capacity arena of sessions with an explicit free list
// and a (peer, generation) index.
//
// Only the Manager mutates the table; the receive classifier and the
// period worker look sessions up concurrently.
type Table struct {
	mu      sync.RWMutex
	slots   []slot
	free    []uint32
	index   map[key]Handle
	metrics *metrics.Recorder
}

// NewTable creates a table with capacity slots. Capacities outside
// [1, limits.MaxSessionCapacity] select limits.DefaultSessionCapacity.
func NewTable(capacity int, rec *metrics.Recorder) *Table {
	if limits.ValidateSessionCapacity(capacity) != nil {
		capacity = limits.DefaultSessionCapacity
	}
	t := &Table{
		slots:   make([]slot, capacity),
		free:    make([]uint32, 0, capacity),
		index:   make(map[key]Handle, capacity),
		metrics: rec,
	}
	for i := capacity - 1; i >= 0; i-- {
		t.free = append(t.free, uint32(i))
	}
	return t
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

// Find returns the session of (peer, generation).
func (t *Table) Find(peer net.HardwareAddr, generation uint8) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.index[makeKey(peer, generation)]
	if !ok {
		return nil, false
	}
	return t.slots[h.slot].session, true
}

// Get resolves a handle.
func (t *Table) Get(h Handle) (*Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookup(h)
}

// lookup must be called with t.mu held.
func (t *Table) lookup(h Handle) (*Session, error) {
	if int(h.slot) >= len(t.slots) {
		return nil, ErrStaleHandle
	}
	sl := t.slots[h.slot]
	if sl.session == nil || sl.tag != h.tag {
		return nil, ErrStaleHandle
	}
	return sl.session, nil
}

// Create allocates the lowest free slot for (peer, generation). The session
// starts Unbound with both timestamps set to now.
func (t *Table) Create(peer net.HardwareAddr, generation uint8, now time.Time) (*Session, error) {
	t.mu.Lock()
	k := makeKey(peer, generation)
	if _, exists := t.index[k]; exists {
		t.mu.Unlock()
		return nil, ErrSessionExists
	}
	if len(t.free) == 0 {
		t.mu.Unlock()
		return nil, ErrNoSlot
	}
	idx := t.takeLowestFree()
	h := Handle{slot: idx, tag: t.slots[idx].tag}
	s := newSession(h, peer, generation, now)
	t.slots[idx].session = s
	t.index[k] = h
	t.mu.Unlock()

	t.metrics.SessionCreated()
	logrus.WithFields(logrus.Fields{
		"function":   "Table.Create",
		"peer":       peer.String(),
		"generation": generation,
		"slot":       idx,
		"trace_id":   s.traceID.String(),
	}).Info("Session created")
	return s, nil
}

// takeLowestFree removes and returns the lowest free slot index. Must be
// called with t.mu held and a non-empty free list.
func (t *Table) takeLowestFree() uint32 {
	i := 0
	for j, idx := range t.free {
		if idx < t.free[i] {
			i = j
		}
	}
	idx := t.free[i]
	t.free[i] = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	return idx
}

// Bind attaches dev to the session of h.
func (t *Table) Bind(h Handle, dev *device.Device) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if !s.device.CompareAndSwap(nil, dev) {
		return ErrAlreadyBound
	}
	return nil
}

// Destroy releases the session's device, then frees its slot and bumps the
// slot tag. The session is moved to Closed.
func (t *Table) Destroy(h Handle, reason Reason) error {
	s, err := t.Get(h)
	if err != nil {
		return err
	}
	if dev := s.device.Swap(nil); dev != nil {
		if err := dev.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Table.Destroy",
				"session":  s.String(),
				"error":    err.Error(),
			}).Warn("Device close failed")
		}
	}

	t.mu.Lock()
	if _, err := t.lookup(h); err != nil {
		t.mu.Unlock()
		return err
	}
	s.state.Store(uint32(StateClosed))
	delete(t.index, makeKey(s.peer, s.generation))
	t.slots[h.slot].session = nil
	t.slots[h.slot].tag++
	t.free = append(t.free, h.slot)
	t.mu.Unlock()

	t.metrics.SessionClosed(string(reason))
	logrus.WithFields(logrus.Fields{
		"function":   "Table.Destroy",
		"peer":       s.peer.String(),
		"generation": s.generation,
		"slot":       h.slot,
		"reason":     string(reason),
		"trace_id":   s.traceID.String(),
	}).Info("Session destroyed")
	return nil
}

// ForEach calls fn for every live session in slot order until fn returns
// false. fn runs without the table lock and may destroy sessions.
func (t *Table) ForEach(fn func(*Session) bool) {
	for _, s := range t.Snapshot() {
		if !fn(s) {
			return
		}
	}
}

// Snapshot returns the live sessions in slot order.
func (t *Table) Snapshot() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Session, 0, len(t.index))
	for _, sl := range t.slots {
		if sl.session != nil {
			out = append(out, sl.session)
		}
	}
	return out
}
