package pcm

import (
	"sync"
	"time"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Engine is the period queue of one stream direction.
//
// Periods are kept in a FIFO. Each channel has a cursor holding the absolute
// index of the period it is currently filling (playback) or draining
// (capture); base is the absolute index of the queue head, so the head is
// periods[0] and cursor c addresses periods[c-base]. Cursors never regress.
type Engine struct {
	mu        sync.Mutex
	dir       interfaces.StreamDirection
	maxQueued int

	periods []*Period
	base    uint64
	cursors [protocol.ChannelsPerPacket]uint64
	nextSeq uint32

	overflows  uint64
	onOverflow func()
	overflowLg rate.Sometimes
	closed     bool
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// MaxQueued caps the queue depth. Values below limits.MinQueuedPeriods
	// select limits.DefaultMaxQueuedPeriods.
	MaxQueued int

	// OnOverflow is called, with the engine lock held, each time the oldest
	// period is dropped to make room. It must not call back into the engine.
	OnOverflow func()
}

// NewEngine creates an empty engine for dir.
func NewEngine(dir interfaces.StreamDirection, cfg EngineConfig) *Engine {
	depth := cfg.MaxQueued
	if depth < limits.MinQueuedPeriods {
		depth = limits.DefaultMaxQueuedPeriods
	}
	return &Engine{
		dir:        dir,
		maxQueued:  depth,
		onOverflow: cfg.OnOverflow,
		overflowLg: rate.Sometimes{Interval: time.Second},
	}
}

// Direction returns the stream direction the engine serves.
func (e *Engine) Direction() interfaces.StreamDirection {
	return e.dir
}

// WriteSamples appends playback bytes for channel ch. A channel's bytes fill
// its slice of the period under its cursor; once the slice is full the
// cursor moves to the next period, which is allocated at the tail when no
// other channel has created it yet. Writes never block; when the queue is
// at capacity the oldest period is dropped.
func (e *Engine) WriteSamples(ch int, p []byte) error {
	if ch < 0 || ch >= protocol.ChannelsPerPacket {
		return ErrInvalidChannel
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.dir != interfaces.Playback {
		return ErrWrongDirection
	}

	for len(p) > 0 {
		per := e.periodAt(ch)
		if per == nil {
			per = newPeriod(e.nextSeq)
			e.nextSeq++
			e.push(per)
			per = e.periodAt(ch)
		}
		off := per.fill[ch]
		n := copy(per.channel(ch)[off:], p)
		per.fill[ch] += n
		p = p[n:]
		if per.fill[ch] == protocol.ChannelBlockSize {
			e.cursors[ch]++
		}
	}
	return nil
}

// NextReadyPeriod removes and returns the oldest period if every channel's
// slice is full. It returns ErrNoData otherwise; a partially filled period
// is never returned.
func (e *Engine) NextReadyPeriod() (protocol.PcmData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return protocol.PcmData{}, ErrClosed
	}
	if e.dir != interfaces.Playback {
		return protocol.PcmData{}, ErrWrongDirection
	}
	if len(e.periods) == 0 || !e.periods[0].complete() {
		return protocol.PcmData{}, ErrNoData
	}
	msg := e.periods[0].Message()
	e.popHead()
	return msg, nil
}

// AcceptIncoming places a received period at the tail of the capture queue.
// Its channel slices become readable through ReadSamples.
func (e *Engine) AcceptIncoming(msg protocol.PcmData) error {
	if len(msg.Data) != protocol.PeriodDataSize {
		return protocol.ErrInvalidMessage
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.dir != interfaces.Capture {
		return ErrWrongDirection
	}
	per := newPeriod(msg.Sequence)
	copy(per.data, msg.Data)
	e.push(per)
	return nil
}

// ReadSamples copies up to len(p) capture bytes of channel ch into p,
// crossing period boundaries as needed. A period is removed once every
// channel has consumed its slice. It returns ErrNoData when nothing could
// be read.
func (e *Engine) ReadSamples(ch int, p []byte) (int, error) {
	if ch < 0 || ch >= protocol.ChannelsPerPacket {
		return 0, ErrInvalidChannel
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	if e.dir != interfaces.Capture {
		return 0, ErrWrongDirection
	}

	total := 0
	for len(p) > 0 {
		per := e.periodAt(ch)
		if per == nil {
			break
		}
		off := per.fill[ch]
		n := copy(p, per.channel(ch)[off:])
		per.fill[ch] += n
		total += n
		p = p[n:]
		if per.fill[ch] == protocol.ChannelBlockSize {
			e.cursors[ch]++
		}
	}
	for len(e.periods) > 0 && e.periods[0].complete() {
		e.popHead()
	}
	if total == 0 {
		return 0, ErrNoData
	}
	return total, nil
}

// Cursor returns the absolute period index of channel ch.
func (e *Engine) Cursor(ch int) uint64 {
	if ch < 0 || ch >= protocol.ChannelsPerPacket {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursors[ch]
}

// Queued returns the number of periods in the queue.
func (e *Engine) Queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.periods)
}

// Overflows returns the number of periods dropped to respect the cap.
func (e *Engine) Overflows() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overflows
}

// Reset drops every queued period. Cursors move to the new head, so they
// still never regress.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base += uint64(len(e.periods))
	e.periods = nil
	for ch := range e.cursors {
		e.cursors[ch] = e.base
	}
}

// Close drops every queued period and rejects further use.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.periods = nil
	e.closed = true
}

// periodAt returns the period under the cursor of ch, or nil when the
// cursor is past the tail. Must be called with e.mu held.
func (e *Engine) periodAt(ch int) *Period {
	rel := e.cursors[ch] - e.base
	if rel >= uint64(len(e.periods)) {
		return nil
	}
	return e.periods[rel]
}

// push appends per, dropping the oldest period first when the queue is at
// capacity. Must be called with e.mu held.
func (e *Engine) push(per *Period) {
	if len(e.periods) >= e.maxQueued {
		dropped := e.periods[0]
		e.popHead()
		e.overflows++
		if e.onOverflow != nil {
			e.onOverflow()
		}
		e.overflowLg.Do(func() {
			logrus.WithFields(logrus.Fields{
				"function":  "Engine.push",
				"direction": e.dir.String(),
				"seq":       dropped.Sequence,
				"overflows": e.overflows,
			}).Debug("Period queue full, dropped oldest period")
		})
	}
	e.periods = append(e.periods, per)
}

// popHead removes the queue head and moves any cursor still pointing at it
// to the new head. Must be called with e.mu held.
func (e *Engine) popHead() {
	e.periods[0] = nil
	e.periods = e.periods[1:]
	e.base++
	for ch := range e.cursors {
		if e.cursors[ch] < e.base {
			e.cursors[ch] = e.base
		}
	}
}
