package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	active   bool
}

// Fake returns a FakeClock starting at start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run when the clock is advanced past d.
// A non-positive d still waits for the next Advance, so callers never
// re-enter themselves synchronously.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTimer{deadline: c.now.Add(d), fn: f, active: true}
	c.pending = append(c.pending, ft)

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			was := ft.active
			ft.active = false
			c.prune()
			return was
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			was := ft.active
			ft.deadline = c.now.Add(d)
			if !was {
				ft.active = true
				c.pending = append(c.pending, ft)
			}
			return was
		},
	}
}

// Advance moves time forward by d and runs every callback whose deadline
// has been reached, in deadline order. Callbacks run on the calling
// goroutine without the clock's lock held, so they may arm new timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		ft := c.nextDue(target)
		if ft == nil {
			return
		}
		ft.fn()
	}
}

// Pending returns the number of armed timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// nextDue pops the earliest active timer due at or before target.
func (c *FakeClock) nextDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(c.pending, func(i, j int) bool {
		return c.pending[i].deadline.Before(c.pending[j].deadline)
	})
	if len(c.pending) == 0 || c.pending[0].deadline.After(target) {
		return nil
	}
	ft := c.pending[0]
	c.pending = c.pending[1:]
	ft.active = false
	return ft
}

// prune drops inactive timers. Callers hold c.mu.
func (c *FakeClock) prune() {
	kept := c.pending[:0]
	for _, ft := range c.pending {
		if ft.active {
			kept = append(kept, ft)
		}
	}
	c.pending = kept
}
