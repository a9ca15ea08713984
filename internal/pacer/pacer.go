// Package pacer spaces out calls to a rate-limited remote service.
package pacer

import (
	"context"
	"time"
)

// Clock abstracts time so pacing can be verified without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Pacer guarantees at least Interval between the end of one call and the
// start of the next. Calls that never reach the network must not go through
// the pacer. A Pacer is not safe for concurrent use.
type Pacer struct {
	clock    Clock
	interval time.Duration
	last     time.Time
	started  bool
	calls    int
}

// New creates a pacer enforcing interval between calls.
func New(interval time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Pacer{clock: clock, interval: interval}
}

// Interval returns the enforced minimum gap.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Calls returns how many calls went through the pacer.
func (p *Pacer) Calls() int { return p.calls }

// Do waits for the interval to elapse since the previous call finished, then
// runs fn. The call counts as made even when fn fails.
func (p *Pacer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.started {
		wait := p.interval - p.clock.Now().Sub(p.last)
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	err := fn(ctx)
	p.started = true
	p.last = p.clock.Now()
	p.calls++
	return err
}
