// Package ratelimit paces calls with a sliding 60-second window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// Window is the trailing interval the call cap applies to.
	Window = 60 * time.Second
	// Margin is added to every computed wait.
	Margin = 250 * time.Millisecond
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever is first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return SleepContext(ctx, d)
}

// RealClock uses the wall clock.
var RealClock Clock = realClock{}

// SleepContext sleeps for d, returning early with ctx.Err() when ctx is done.
// A deadline on ctx therefore clamps the sleep.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter allows at most max calls in any trailing Window.
type Limiter struct {
	mu    sync.Mutex
	max   int
	clock Clock
	calls []time.Time
}

// New returns a limiter for perMinute calls, or nil when perMinute <= 0.
// A nil *Limiter is valid and never blocks.
func New(perMinute int, clock Clock) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if clock == nil {
		clock = RealClock
	}
	return &Limiter{max: perMinute, clock: clock}
}

// Wait blocks until a call slot is free, then claims it. It returns the
// time spent waiting. If ctx ends first no slot is claimed.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	if l == nil {
		return 0, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var waited time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return waited, err
		}
		now := l.clock.Now()
		l.evict(now)
		if len(l.calls) < l.max {
			l.calls = append(l.calls, now)
			return waited, nil
		}

		d := l.calls[0].Add(Window).Sub(now) + Margin
		if err := l.clock.Sleep(ctx, d); err != nil {
			return waited, err
		}
		waited += d
	}
}

// Len reports how many calls are inside the current window.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.clock.Now())
	return len(l.calls)
}

func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
