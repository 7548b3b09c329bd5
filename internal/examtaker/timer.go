package examtaker

import (
	"context"
	"sync"
	"time"
)

// Timer counts down to an absolute deadline, ticking once per second.
// Remaining time is always recomputed from the deadline, so a process
// restart resumes the same clock instead of resetting it. The expiry
// callback fires exactly once, even if ticks keep arriving.
type Timer struct {
	deadline time.Time
	now      func() time.Time

	mu      sync.Mutex
	expired bool

	onTick   func(remaining int)
	onExpire func()

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTimer creates a timer against an absolute deadline. onTick receives
// the remaining whole seconds each tick; onExpire fires once when the
// deadline passes. Either callback may be nil.
func NewTimer(deadline time.Time, onTick func(remaining int), onExpire func()) *Timer {
	return NewTimerWithClock(deadline, onTick, onExpire, time.Now)
}

// NewTimerWithClock is NewTimer with an injectable clock.
func NewTimerWithClock(deadline time.Time, onTick func(remaining int), onExpire func(), now func() time.Time) *Timer {
	return &Timer{
		deadline: deadline,
		now:      now,
		onTick:   onTick,
		onExpire: onExpire,
		stop:     make(chan struct{}),
	}
}

// Deadline returns the absolute deadline the timer counts down to.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Remaining returns the whole seconds left before the deadline, never
// negative.
func (t *Timer) Remaining() int {
	left := int(t.deadline.Sub(t.now()) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Start runs the tick loop until the deadline passes, Stop is called, or
// the context is cancelled. If the deadline has already passed, expiry
// fires immediately. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	if t.tick() {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// Stop cancels the tick loop. Safe to call multiple times; a stopped
// timer never fires expiry.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// tick emits one tick and reports whether the timer has expired. Expiry
// fires on the first tick at or past the deadline and never again.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return true
	}

	remaining := t.Remaining()
	if remaining <= 0 {
		t.expired = true
		t.mu.Unlock()
		if t.onExpire != nil {
			t.onExpire()
		}
		return true
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(remaining)
	}
	return false
}
