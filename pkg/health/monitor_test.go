package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

// fakeClock advances instantly on Sleep and records every delay.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) totalSlept() time.Duration {
	var total time.Duration
	for _, d := range c.slept {
		total += d
	}
	return total
}

// fakeProbe fails every attempt before succeedOn; succeedOn zero means
// it never succeeds.
type fakeProbe struct {
	calls     int
	succeedOn int
}

func (p *fakeProbe) Check(ctx context.Context) types.HealthCheckResult {
	p.calls++
	healthy := p.succeedOn != 0 && p.calls >= p.succeedOn
	msg := "HTTP 503 Service Unavailable"
	if healthy {
		msg = "HTTP 200 OK"
	}
	return types.HealthCheckResult{
		CheckedAt: time.Now(),
		Healthy:   healthy,
		Message:   msg,
	}
}

func testOptions() Options {
	return Options{
		MaxRetries:  10,
		Interval:    10 * time.Second,
		SettleDelay: 45 * time.Second,
	}
}

func TestWaitHealthyExhaustsBudget(t *testing.T) {
	probe := &fakeProbe{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	result := NewMonitor(probe, testOptions()).WithClock(clock).WaitHealthy(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, 10, probe.calls, "every retry in the budget must be used")
	assert.Equal(t, 10, result.Attempt)

	// Settle delay plus one interval between each consecutive pair of
	// attempts; no sleep after the final failure.
	expected := 45*time.Second + 9*10*time.Second
	assert.Equal(t, expected, clock.totalSlept())
}

func TestWaitHealthySucceedsMidway(t *testing.T) {
	probe := &fakeProbe{succeedOn: 3}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	result := NewMonitor(probe, testOptions()).WithClock(clock).WaitHealthy(context.Background())

	assert.True(t, result.Healthy)
	assert.Equal(t, 3, probe.calls)
	assert.Equal(t, 3, result.Attempt)

	expected := 45*time.Second + 2*10*time.Second
	assert.Equal(t, expected, clock.totalSlept())
}

func TestWaitHealthyFirstProbeSucceeds(t *testing.T) {
	probe := &fakeProbe{succeedOn: 1}
	clock := &fakeClock{}

	result := NewMonitor(probe, testOptions()).WithClock(clock).WaitHealthy(context.Background())

	assert.True(t, result.Healthy)
	assert.Equal(t, 1, probe.calls)
	require.Len(t, clock.slept, 1, "only the settle delay should elapse")
	assert.Equal(t, 45*time.Second, clock.slept[0])
}

func TestWaitHealthyCancelledDuringSettle(t *testing.T) {
	probe := &fakeProbe{succeedOn: 1}
	clock := &fakeClock{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewMonitor(probe, testOptions()).WithClock(clock).WaitHealthy(ctx)

	assert.False(t, result.Healthy)
	assert.Zero(t, probe.calls, "no probe may fire after cancellation")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 10, opts.MaxRetries)
	assert.Equal(t, 10*time.Second, opts.Interval)
	assert.Equal(t, 45*time.Second, opts.SettleDelay)
}
