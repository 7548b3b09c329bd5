package examtaker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stepClock is a manual clock advanced one second per step.
type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time { return c.t }
func (c *stepClock) step()          { c.t = c.t.Add(time.Second) }

func TestTimerCountsDownMonotonically(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	deadline := clock.t.Add(10 * time.Second)

	var seen []int
	timer := NewTimerWithClock(deadline, func(remaining int) {
		seen = append(seen, remaining)
	}, nil, clock.now)

	for !timer.tick() {
		clock.step()
	}

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.Less(t, seen[i], seen[i-1], "remaining time must never increase")
	}
}

func TestTimerExpiryFiresExactlyOnce(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	deadline := clock.t.Add(3 * time.Second)

	var fired int32
	timer := NewTimerWithClock(deadline, nil, func() {
		atomic.AddInt32(&fired, 1)
	}, clock.now)

	for i := 0; i < 10; i++ {
		timer.tick()
		clock.step()
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&fired))
}

func TestTimerFiresImmediatelyPastDeadline(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	deadline := clock.t.Add(-time.Minute) // resumed after the deadline

	var fired int32
	timer := NewTimerWithClock(deadline, nil, func() {
		atomic.AddInt32(&fired, 1)
	}, clock.now)

	require.True(t, timer.tick())
	require.EqualValues(t, 1, atomic.LoadInt32(&fired))
	require.Zero(t, timer.Remaining(), "remaining time is never negative")
}

func TestTimerFullHourScenario(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	deadline := clock.t.Add(3600 * time.Second)

	var fired int32
	timer := NewTimerWithClock(deadline, nil, func() {
		atomic.AddInt32(&fired, 1)
	}, clock.now)

	require.Equal(t, 3600, timer.Remaining())

	ticks := 0
	for !timer.tick() {
		clock.step()
		ticks++
		require.LessOrEqual(t, ticks, 3601, "timer failed to expire")
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&fired))

	// Further ticks change nothing.
	timer.tick()
	require.EqualValues(t, 1, atomic.LoadInt32(&fired))
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	timer := NewTimer(time.Now().Add(50*time.Millisecond), nil, func() {
		t.Error("expiry fired after Stop")
	})

	done := make(chan struct{})
	go func() {
		timer.Start(context.Background())
		close(done)
	}()

	timer.Stop()
	<-done
}
