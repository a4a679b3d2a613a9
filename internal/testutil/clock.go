// Package testutil holds test helpers shared across packages.
package testutil

import (
	"slices"
	"sync"
	"time"

	"taskboard/internal/reconcile"
)

// Clock is a manually advanced clock. Timers fire only from [Clock.Advance],
// on the caller's goroutine, in deadline order.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*timer
}

type timer struct {
	clock    *Clock
	deadline time.Time
	seq      uint64
	fn       func()
	stopped  bool
	fired    bool
}

// NewClock returns a clock set to Monday 2024-03-04 09:00 UTC.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)}
}

// NewClockAt returns a clock set to t.
func NewClockAt(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *Clock) AfterFunc(d time.Duration, f func()) reconcile.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &timer{clock: c, deadline: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)

	return t
}

// Stop cancels the timer.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}

	t.stopped = true

	return true
}

// Advance moves the clock forward by d, firing due timers one at a time.
// The clock reads each timer's deadline while its callback runs. Timers
// scheduled by a callback fire in the same call if they fall due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()

		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()

			return
		}

		next.fired = true
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}

		c.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	c.timers = slices.DeleteFunc(c.timers, func(t *timer) bool { return t.stopped || t.fired })

	var next *timer

	for _, t := range c.timers {
		if t.deadline.After(target) {
			continue
		}

		if next == nil || t.deadline.Before(next.deadline) ||
			(t.deadline.Equal(next.deadline) && t.seq < next.seq) {
			next = t
		}
	}

	return next
}
