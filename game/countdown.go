package game

import "time"

// CountdownManager owns the 1 Hz pre-round timer. The engine drives the
// reset/emit sequence; this type only schedules the steps so a stop can
// cancel them cleanly.
type CountdownManager struct {
	timer *time.Timer
}

// NewCountdownManager returns an idle manager.
func NewCountdownManager() *CountdownManager {
	return &CountdownManager{}
}

// Schedule runs fn after d, replacing any pending step.
func (c *CountdownManager) Schedule(d time.Duration, fn func()) {
	c.Cancel()
	c.timer = time.AfterFunc(d, fn)
}

// Cancel stops the pending step, if any.
func (c *CountdownManager) Cancel() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
