package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCalls is the Mercado Bitcoin public API budget per DefaultPeriod
	DefaultCalls = 29
	// DefaultPeriod is the rolling window the budget applies to
	DefaultPeriod = 30 * time.Second
)

// Limiter enforces a call budget over a rolling window.
// It never blocks: callers decide how to wait when a call is denied.
type Limiter struct {
	calls  int
	period time.Duration
	now    func() time.Time

	mu       sync.Mutex
	admitted []time.Time // oldest first

	notice rate.Sometimes
}

var (
	instance *Limiter
	once     sync.Once
)

// Shared returns the process-wide limiter for the public API
func Shared() *Limiter {
	once.Do(func() {
		instance = New(DefaultCalls, DefaultPeriod)
	})
	return instance
}

// New creates a limiter admitting at most calls per period.
// A non-positive calls value disables limiting.
func New(calls int, period time.Duration) *Limiter {
	return &Limiter{
		calls:  calls,
		period: period,
		now:    time.Now,
		notice: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// WithClock replaces the time source, mostly for tests
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Calls returns the budget size
func (l *Limiter) Calls() int { return l.calls }

// Period returns the window length
func (l *Limiter) Period() time.Duration { return l.period }

// Allow reports whether a call may happen now and records it if so.
// When denied it returns how long until the oldest admitted call leaves
// the window.
func (l *Limiter) Allow() (bool, time.Duration) {
	if l.calls <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.period)
	expired := 0
	for expired < len(l.admitted) && !l.admitted[expired].After(cutoff) {
		expired++
	}
	l.admitted = l.admitted[expired:]

	if len(l.admitted) >= l.calls {
		wait := l.admitted[0].Add(l.period).Sub(now)
		l.notice.Do(func() {
			slog.Warn("call budget exhausted",
				"calls", l.calls,
				"period", l.period,
				"retry_after", wait)
		})
		return false, wait
	}

	l.admitted = append(l.admitted, now)
	return true, 0
}
