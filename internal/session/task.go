package session

import (
	"time"

	"github.com/entwined/remote/internal/clock"
)

// taskSlot holds at most one pending timer. Arming it stops whatever was
// there and bumps the generation, so a callback that was already running
// when it lost its slot sees a stale generation and returns.
//
// Slots are only touched with Controller.mu held.
type taskSlot struct {
	timer *clock.Timer
	gen   uint64
}

func (s *taskSlot) pending() bool {
	return s.timer != nil
}

func (s *taskSlot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// after runs fn once, d from now, with c.mu held.
func (c *Controller) after(slot *taskSlot, d time.Duration, fn func()) {
	c.arm(slot, d, fn, false)
}

// every runs fn each d until the slot is cancelled or re-armed.
func (c *Controller) every(slot *taskSlot, d time.Duration, fn func()) {
	c.arm(slot, d, fn, true)
}

func (c *Controller) arm(slot *taskSlot, d time.Duration, fn func(), repeat bool) {
	slot.cancel()
	gen := slot.gen

	var t *clock.Timer
	t = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if slot.gen != gen {
			return
		}
		if !repeat {
			slot.timer = nil
		}
		fn()
		if repeat && slot.gen == gen {
			t.Reset(d)
		}
	})
	slot.timer = t
}
