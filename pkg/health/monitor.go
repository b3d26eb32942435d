package health

import (
	"context"
	"time"

	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/metrics"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

// Options configure the deploy-time wait protocol.
type Options struct {
	// MaxRetries is the probe budget for one wait
	MaxRetries int

	// Interval is the fixed delay between failed attempts. There is no
	// exponential backoff; the budget is small and bounded.
	Interval time.Duration

	// SettleDelay is the grace period before the first probe, sized
	// for slow cold starts under constrained resources
	SettleDelay time.Duration
}

// DefaultOptions returns the standard wait protocol parameters.
func DefaultOptions() Options {
	return Options{
		MaxRetries:  10,
		Interval:    10 * time.Second,
		SettleDelay: 45 * time.Second,
	}
}

// Monitor drives the bounded retry protocol over a Probe.
type Monitor struct {
	probe Probe
	opts  Options
	clock Clock
}

// NewMonitor creates a monitor with the given probe and options.
func NewMonitor(probe Probe, opts Options) *Monitor {
	return &Monitor{
		probe: probe,
		opts:  opts,
		clock: RealClock{},
	}
}

// WithClock overrides the clock, used by tests to simulate elapsed
// time.
func (m *Monitor) WithClock(clock Clock) *Monitor {
	m.clock = clock
	return m
}

// WaitHealthy blocks through the settle delay, then probes up to
// MaxRetries times with a fixed interval between failures. It returns
// the first healthy result immediately, or the last failure once the
// budget is exhausted. Cancellation of ctx ends the wait early with the
// most recent result.
func (m *Monitor) WaitHealthy(ctx context.Context) types.HealthCheckResult {
	logger := log.WithComponent("health")

	logger.Info().
		Dur("settle_delay", m.opts.SettleDelay).
		Int("max_retries", m.opts.MaxRetries).
		Msg("waiting for service to settle")

	var last types.HealthCheckResult
	if err := m.clock.Sleep(ctx, m.opts.SettleDelay); err != nil {
		last.CheckedAt = m.clock.Now()
		last.Message = "wait cancelled before first probe"
		return last
	}

	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		last = m.probe.Check(ctx)
		last.Attempt = attempt
		metrics.ObserveProbe(last)

		if last.Healthy {
			logger.Info().
				Int("attempt", attempt).
				Dur("latency", last.Latency).
				Msg("service is healthy")
			return last
		}

		logger.Warn().
			Int("attempt", attempt).
			Int("max_retries", m.opts.MaxRetries).
			Str("result", last.Message).
			Msg("health check failed")

		if attempt < m.opts.MaxRetries {
			if err := m.clock.Sleep(ctx, m.opts.Interval); err != nil {
				return last
			}
		}
	}

	logger.Error().
		Int("attempts", m.opts.MaxRetries).
		Msg("health check retries exhausted")
	return last
}
