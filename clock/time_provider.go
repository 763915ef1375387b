package clock

import (
	"sort"
	"sync"
	"time"
)

// Stopper cancels a pending callback. Stop reports whether the call
// prevented the callback from running.
type Stopper interface {
	Stop() bool
}

// TimeProvider is an interface for getting the current time and scheduling
// callbacks. This allows injecting a manual time provider for deterministic
// testing.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Stopper
}

// RealTimeProvider implements TimeProvider using the actual system time.
type RealTimeProvider struct{}

// Now returns the current system time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f using the standard library timer.
func (RealTimeProvider) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// defaultTimeProvider is the package-level default time provider.
// Used by types that don't have an explicitly set time provider.
var (
	defaultMu           sync.RWMutex
	defaultTimeProvider TimeProvider = RealTimeProvider{}
)

// SetDefaultTimeProvider sets the package-level default time provider.
// This is primarily useful for testing to inject deterministic time.
func SetDefaultTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	defaultMu.Lock()
	defaultTimeProvider = tp
	defaultMu.Unlock()
}

// Default returns tp if non-nil, otherwise the package-level default.
func Default(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultTimeProvider
}

// ManualProvider is a TimeProvider whose time only moves when Advance is
// called. Due callbacks run synchronously inside Advance, in deadline order,
// without the provider lock held, so they may schedule further callbacks.
type ManualProvider struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	p    *ManualProvider
	when time.Time
	seq  uint64
	f    func()
}

// NewManualProvider creates a ManualProvider starting at start.
func NewManualProvider(start time.Time) *ManualProvider {
	return &ManualProvider{now: start}
}

// Now returns the provider's current time.
func (p *ManualProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// AfterFunc registers f to run once the provider time reaches Now()+d.
func (p *ManualProvider) AfterFunc(d time.Duration, f func()) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	t := &manualTimer{p: p, when: p.now.Add(d), seq: p.seq, f: f}
	p.pending = append(p.pending, t)
	return t
}

// Advance moves time forward by d, running every callback that becomes due.
func (p *ManualProvider) Advance(d time.Duration) {
	p.mu.Lock()
	target := p.now.Add(d)
	p.mu.Unlock()

	for {
		p.mu.Lock()
		t := p.popDue(target)
		if t == nil {
			p.now = target
			p.mu.Unlock()
			return
		}
		if t.when.After(p.now) {
			p.now = t.when
		}
		p.mu.Unlock()
		t.f()
	}
}

// Pending returns the number of scheduled callbacks.
func (p *ManualProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// popDue removes and returns the earliest callback due at or before target.
// Must be called with p.mu held.
func (p *ManualProvider) popDue(target time.Time) *manualTimer {
	if len(p.pending) == 0 {
		return nil
	}
	sort.SliceStable(p.pending, func(i, j int) bool {
		a, b := p.pending[i], p.pending[j]
		if a.when.Equal(b.when) {
			return a.seq < b.seq
		}
		return a.when.Before(b.when)
	})
	t := p.pending[0]
	if t.when.After(target) {
		return nil
	}
	p.pending = p.pending[1:]
	return t
}

// Stop removes the callback if it has not run yet.
func (t *manualTimer) Stop() bool {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	for i, pt := range t.p.pending {
		if pt == t {
			t.p.pending = append(t.p.pending[:i], t.p.pending[i+1:]...)
			return true
		}
	}
	return false
}
