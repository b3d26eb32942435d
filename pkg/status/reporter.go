package status

import (
	"context"
	"time"

	"github.com/deckhand-sh/deckhand/pkg/health"
	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

// DefaultInterval is the tick between status samples.
const DefaultInterval = 5 * time.Second

// Snapshot combines one tick of observations for display.
type Snapshot struct {
	At        time.Time
	Resources types.ResourceSnapshot
	Runtime   types.RuntimeStatus
	Health    types.HealthCheckResult
}

// StatusQuerier is the slice of the runtime the reporter needs.
type StatusQuerier interface {
	Status(ctx context.Context, name string) (types.RuntimeStatus, error)
}

// Reporter polls resource, runtime, and health state into a stream of
// snapshots.
type Reporter struct {
	service  string
	sampler  sysinfo.Sampler
	querier  StatusQuerier
	probe    health.Probe
	interval time.Duration
}

// NewReporter creates a reporter for the named service.
func NewReporter(service string, sampler sysinfo.Sampler, querier StatusQuerier, probe health.Probe) *Reporter {
	return &Reporter{
		service:  service,
		sampler:  sampler,
		querier:  querier,
		probe:    probe,
		interval: DefaultInterval,
	}
}

// WithInterval overrides the polling interval.
func (r *Reporter) WithInterval(d time.Duration) *Reporter {
	r.interval = d
	return r
}

// Stream emits a snapshot immediately and then one per interval until
// ctx is cancelled, at which point the channel is closed and the
// internal timer released. The sequence never ends on its own; the
// caller owns termination.
func (r *Reporter) Stream(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			snap := r.gather(ctx)

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// gather collects one tick. The probe is a single attempt: a failure
// reports as unhealthy for this tick and is not retried within it.
func (r *Reporter) gather(ctx context.Context) Snapshot {
	logger := log.WithComponent("status")
	snap := Snapshot{At: time.Now()}

	resources, err := r.sampler.Sample()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to sample resources")
	} else {
		snap.Resources = resources
	}

	rs, err := r.querier.Status(ctx, r.service)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to query runtime status")
	} else {
		snap.Runtime = rs
	}

	snap.Health = r.probe.Check(ctx)
	snap.Health.Attempt = 1

	return snap
}
