package session

import (
	"time"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/protocol"
)

// ResetTimerToPause restarts the pause phase. The remaining time is set
// to the pause length at once and fetched again shortly after.
func (c *Controller) ResetTimerToPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.model.Edit(func(w *model.Writer) {
		w.SetTimeRemaining(w.State().PauseTimer.PauseSeconds)
	})
	c.send(protocol.ResetTimerPause())
	c.scheduleTimerRefresh()
}

// ResetTimerToRun restarts the run phase.
func (c *Controller) ResetTimerToRun() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.model.Edit(func(w *model.Writer) {
		w.SetTimeRemaining(0)
	})
	c.send(protocol.ResetTimerRun())
	c.scheduleTimerRefresh()
}

// scheduleTimerRefresh fetches the timer after the server has applied a
// reset, since the optimistic local value may differ from its own.
func (c *Controller) scheduleTimerRefresh() {
	c.after(&c.refresh, c.opts.TimerRefreshDelay, func() {
		c.send(protocol.GetTimer())
	})
}

// StartBreak blacks the rig out for d. When d has passed, the break ends
// locally and autoplay is switched back on.
func (c *Controller) StartBreak(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidBreak
	}
	seconds := d.Seconds()

	c.mu.Lock()
	defer c.mu.Unlock()

	ends := c.clock.Now().Add(d)
	c.send(protocol.StartBreak(seconds))
	c.model.Edit(func(w *model.Writer) {
		w.SetBreakEndsAt(ends)
	})
	c.after(&c.breakEnd, d, c.finishBreak)
	log.Info(log.CatSession, "break started", "seconds", seconds, "ends", ends)
	return nil
}

// StopBreak ends a break early.
func (c *Controller) StopBreak() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.breakEnd.cancel()
	c.model.Edit(func(w *model.Writer) {
		w.SetBreakEndsAt(time.Time{})
		w.SetAutoplay(true)
	})
	c.send(protocol.StopBreak())
	log.Info(log.CatSession, "break stopped")
}

func (c *Controller) finishBreak() {
	log.Info(log.CatSession, "break over")
	c.model.Edit(func(w *model.Writer) {
		w.SetBreakEndsAt(time.Time{})
		w.SetAutoplay(true)
	})
}
