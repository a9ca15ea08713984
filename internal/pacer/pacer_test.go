package pacer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_FirstCallImmediate(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := New(time.Second, clock)

	require.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))

	assert.Empty(t, clock.Slept())
	assert.Equal(t, 1, p.Calls())
}

func TestPacer_EnforcesMinimumGap(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := New(time.Second, clock)

	var starts []time.Time
	call := func(work time.Duration) func(context.Context) error {
		return func(context.Context) error {
			starts = append(starts, clock.Now())
			clock.Advance(work)
			return nil
		}
	}

	require.NoError(t, p.Do(context.Background(), call(200*time.Millisecond)))
	require.NoError(t, p.Do(context.Background(), call(50*time.Millisecond)))
	clock.Advance(3 * time.Second)
	require.NoError(t, p.Do(context.Background(), call(0)))

	require.Len(t, starts, 3)
	assert.Equal(t, 1200*time.Millisecond, starts[1].Sub(starts[0]))
	assert.GreaterOrEqual(t, starts[2].Sub(starts[1]), time.Second)
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept(), "no sleep once the gap has already elapsed")
}

func TestPacer_FailedCallStillPaced(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := New(time.Second, clock)
	boom := errors.New("boom")

	err := p.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept())
	assert.Equal(t, 2, p.Calls())
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SystemClock().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
