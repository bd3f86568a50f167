// Package scheduler abstracts deferred work so loaders can be driven by a
// real clock in production and a manual one in tests.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to scheduled work.
type Timer interface {
	// Stop prevents the work from running. It reports whether the call
	// stopped it; false means it already ran or was already stopped.
	Stop() bool
}

// Scheduler runs functions later.
type Scheduler interface {
	// AfterFunc runs f once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
	// Defer runs f on the next idle tick, never synchronously.
	Defer(f func()) Timer
}

// Real schedules on the runtime timer.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (Real) Defer(f func()) Timer {
	return time.AfterFunc(0, f)
}

// Manual is a deterministic Scheduler. Nothing runs until Advance or
// RunDeferred is called, and callbacks run on the calling goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m        *Manual
	at       time.Duration
	seq      int
	deferred bool
	f        func()
	done     bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// NewManual returns a Manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	return m.add(d, false, f)
}

func (m *Manual) Defer(f func()) Timer {
	return m.add(0, true, f)
}

func (m *Manual) add(d time.Duration, deferred bool, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, deferred: deferred, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every timer that falls due,
// in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	m.mu.Unlock()
	m.run(func(t *manualTimer) bool { return t.at <= now })
}

// RunDeferred runs work scheduled with Defer, including work deferred by
// the callbacks themselves.
func (m *Manual) RunDeferred() {
	m.run(func(t *manualTimer) bool { return t.deferred })
}

// Pending returns the number of timers that have neither run nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (m *Manual) run(due func(*manualTimer) bool) {
	for {
		m.mu.Lock()
		var ready []*manualTimer
		live := m.timers[:0]
		for _, t := range m.timers {
			if t.done {
				continue
			}
			live = append(live, t)
			if due(t) {
				ready = append(ready, t)
			}
		}
		m.timers = live
		m.mu.Unlock()

		if len(ready) == 0 {
			return
		}
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].at != ready[j].at {
				return ready[i].at < ready[j].at
			}
			return ready[i].seq < ready[j].seq
		})
		for _, t := range ready {
			// An earlier callback may have stopped this one.
			m.mu.Lock()
			skip := t.done
			t.done = true
			m.mu.Unlock()
			if !skip {
				t.f()
			}
		}
	}
}
