package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic clock for tests. Time only moves when Advance is
// called. Deliveries are synchronous: Advance returns only after every due
// tick or timer value has been received or its receiver stopped it, so a
// single-goroutine consumer has observed the tick before the test continues.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	ch       chan time.Time
	done     chan struct{}
	next     time.Time
	interval time.Duration // zero for one-shot timers
	fired    bool
	once     sync.Once
}

func (w *waiter) close() {
	w.once.Do(func() { close(w.done) })
}

func (w *waiter) closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	return &manualTicker{m.add(d, d)}
}

func (m *Manual) NewTimer(d time.Duration) Timer {
	return &manualTimer{w: m.add(d, 0), m: m}
}

func (m *Manual) add(d, interval time.Duration) *waiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &waiter{
		ch:       make(chan time.Time),
		done:     make(chan struct{}),
		next:     m.now.Add(d),
		interval: interval,
	}
	m.waiters = append(m.waiters, w)
	return w
}

// Pending reports how many tickers and unfired timers are still live.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.waiters {
		if !w.closed() && !w.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing due tickers and timers in deadline
// order. A ticker due several times within d fires once per interval.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		due, at := m.nextDue(target)
		if due == nil {
			return
		}
		select {
		case due.ch <- at:
		case <-due.done:
		}
	}
}

func (m *Manual) nextDue(target time.Time) (*waiter, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.waiters[:0]
	for _, w := range m.waiters {
		if !w.closed() && !w.fired {
			live = append(live, w)
		}
	}
	m.waiters = live
	sort.SliceStable(m.waiters, func(i, j int) bool {
		return m.waiters[i].next.Before(m.waiters[j].next)
	})

	if len(m.waiters) == 0 || m.waiters[0].next.After(target) {
		m.now = target
		return nil, time.Time{}
	}
	due := m.waiters[0]
	at := due.next
	m.now = at
	if due.interval > 0 {
		due.next = at.Add(due.interval)
	} else {
		due.fired = true
	}
	return due, at
}

type manualTicker struct{ w *waiter }

func (t *manualTicker) C() <-chan time.Time { return t.w.ch }
func (t *manualTicker) Stop()               { t.w.close() }

type manualTimer struct {
	w *waiter
	m *Manual
}

func (t *manualTimer) C() <-chan time.Time { return t.w.ch }

// Stop reports whether the timer was stopped before it fired.
func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	fired := t.w.fired
	t.m.mu.Unlock()
	wasLive := !t.w.closed()
	t.w.close()
	return wasLive && !fired
}
