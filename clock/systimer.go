package clock

import (
	"sync"
	"time"

	"github.com/opd-ai/ccoaudio/limits"
	"github.com/sirupsen/logrus"
)

// DefaultHz is the default number of platform ticks per second.
const DefaultHz = 1000

// SystemTimer is a Timer driven by wall-clock ticks.
//
// Positions are kept in fractional units of frames*hz so that whole ticks
// convert to positions without rounding: one tick advances the position by
// exactly rate units. The next notification is scheduled for the tick that
// crosses the next period boundary.
type SystemTimer struct {
	mu        sync.Mutex
	tp        TimeProvider
	hz        uint64
	tick      time.Duration
	onElapsed ElapsedFunc

	base           time.Time
	fracPos        uint64
	fracPeriodRest uint64
	fracBufferSize uint64
	fracPeriodSize uint64
	rate           uint64
	elapsed        int

	pending  Stopper
	armSeq   uint64
	prepared bool
	running  bool
	closed   bool
}

// NewSystemTimer creates a SystemTimer. A nil tp selects the package
// default; hz <= 0 selects DefaultHz and hz above limits.MaxClockHz is
// clamped to it.
func NewSystemTimer(tp TimeProvider, hz int, onElapsed ElapsedFunc) *SystemTimer {
	if hz <= 0 {
		hz = DefaultHz
	}
	if hz > limits.MaxClockHz {
		hz = limits.MaxClockHz
	}
	return &SystemTimer{
		tp:        Default(tp),
		hz:        uint64(hz),
		tick:      time.Second / time.Duration(hz),
		onElapsed: onElapsed,
	}
}

// Prepare implements Timer.
func (s *SystemTimer) Prepare(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.running {
		return ErrRunning
	}
	s.fracPos = 0
	s.rate = uint64(p.Rate)
	s.fracBufferSize = uint64(p.BufferFrames) * s.hz
	s.fracPeriodSize = uint64(p.PeriodFrames) * s.hz
	s.fracPeriodRest = s.fracPeriodSize
	s.elapsed = 0
	s.prepared = true
	return nil
}

// Start implements Timer.
func (s *SystemTimer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.prepared {
		return ErrNotPrepared
	}
	if s.running {
		return nil
	}
	s.running = true
	s.base = s.tp.Now()
	s.rearm()
	return nil
}

// Stop implements Timer.
func (s *SystemTimer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarm()
	return nil
}

// Position implements Timer.
func (s *SystemTimer) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.update()
	}
	if s.hz == 0 {
		return 0
	}
	return int(s.fracPos / s.hz)
}

// Close implements Timer.
func (s *SystemTimer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarm()
	s.closed = true
	return nil
}

// disarm must be called with s.mu held.
func (s *SystemTimer) disarm() {
	s.running = false
	s.armSeq++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// update advances the fractional position by the whole ticks elapsed since
// base. Must be called with s.mu held.
func (s *SystemTimer) update() {
	ticks := s.tp.Now().Sub(s.base) / s.tick
	if ticks <= 0 {
		return
	}
	s.base = s.base.Add(ticks * s.tick)
	delta := uint64(ticks) * s.rate
	s.fracPos = (s.fracPos + delta) % s.fracBufferSize
	for s.fracPeriodRest <= delta {
		s.elapsed++
		s.fracPeriodRest += s.fracPeriodSize
	}
	s.fracPeriodRest -= delta
}

// rearm schedules the next notification for the tick at which the current
// period ends, rounded up. Must be called with s.mu held.
func (s *SystemTimer) rearm() {
	ticks := (s.fracPeriodRest + s.rate - 1) / s.rate
	s.armSeq++
	seq := s.armSeq
	s.pending = s.tp.AfterFunc(time.Duration(ticks)*s.tick, func() { s.fire(seq) })
}

func (s *SystemTimer) fire(seq uint64) {
	s.mu.Lock()
	if !s.running || seq != s.armSeq {
		s.mu.Unlock()
		return
	}
	s.update()
	s.rearm()
	elapsed := s.elapsed
	s.elapsed = 0
	s.mu.Unlock()

	if elapsed > 0 && s.onElapsed != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SystemTimer.fire",
			"periods":  elapsed,
		}).Trace("Period boundary elapsed")
		s.onElapsed(elapsed)
	}
}
