package pacer

import (
	"context"
	"time"
)

// ManualClock is a Clock whose time only moves when Sleep or Advance is
// called. Tests use it to check pacing without waiting.
type ManualClock struct {
	now   time.Time
	slept []time.Duration
}

// NewManualClock starts a manual clock at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time { return c.now }

func (c *ManualClock) Sleep(_ context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

// Advance moves the clock forward, as if work took d.
func (c *ManualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Slept returns every positive sleep requested so far.
func (c *ManualClock) Slept() []time.Duration {
	return append([]time.Duration(nil), c.slept...)
}
