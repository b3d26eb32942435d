package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/descriptor"
	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/metrics"
	"github.com/deckhand-sh/deckhand/pkg/runtime"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

// ErrUnhealthy means the health retry budget was exhausted after a
// deploy; the overall deploy fails.
var ErrUnhealthy = errors.New("service failed to become healthy")

// Gate is the admission check run before any build work.
type Gate interface {
	Check(minTotal, minAvailable uint64, minCores int) sysinfo.GateResult
}

// Builder produces the deployable artifact.
type Builder interface {
	Build(ctx context.Context, cfg config.DeploymentConfig) (types.ArtifactRef, error)
}

// Monitor runs the deploy-time health wait protocol.
type Monitor interface {
	WaitHealthy(ctx context.Context) types.HealthCheckResult
}

// Backups takes a post-deploy snapshot. Optional.
type Backups interface {
	Snapshot(cfg config.DeploymentConfig) (*types.BackupRecord, error)
}

// Journal records runs and the last known state. Optional.
type Journal interface {
	RecordRun(run *types.DeployRun) error
	SaveState(state types.ServiceState) error
}

// Controller owns the service lifecycle state machine. Exactly one
// controller should drive a given logical service at a time; that is an
// operator constraint, not an internal lock. All operations are
// synchronous and strictly sequenced.
type Controller struct {
	cfg     config.DeploymentConfig
	gate    Gate
	builder Builder
	runtime runtime.Runtime
	monitor Monitor
	backups Backups
	journal Journal
	state   types.ServiceState
}

// NewController wires the lifecycle controller. The initial state is
// stopped.
func NewController(cfg config.DeploymentConfig, gate Gate, builder Builder, rt runtime.Runtime, monitor Monitor) *Controller {
	return &Controller{
		cfg:     cfg,
		gate:    gate,
		builder: builder,
		runtime: rt,
		monitor: monitor,
		state:   types.StateStopped,
	}
}

// WithBackups enables post-deploy snapshots.
func (c *Controller) WithBackups(b Backups) *Controller {
	c.backups = b
	return c
}

// WithJournal enables run and state persistence.
func (c *Controller) WithJournal(j Journal) *Controller {
	c.journal = j
	return c
}

// WithState seeds the state, typically from the journal on startup.
func (c *Controller) WithState(state types.ServiceState) *Controller {
	c.state = state
	return c
}

// State returns the current service state.
func (c *Controller) State() types.ServiceState {
	return c.state
}

func (c *Controller) setState(state types.ServiceState) {
	logger := log.WithComponent("lifecycle")
	logger.Info().
		Str("from", string(c.state)).
		Str("to", string(state)).
		Msg("state transition")

	c.state = state
	metrics.SetServiceState(state)

	if c.journal != nil {
		if err := c.journal.SaveState(state); err != nil {
			logger.Warn().Err(err).Msg("failed to persist state")
		}
	}
}

// Deploy runs the full pipeline: admission gate, build, descriptor
// render, runtime apply, health wait, optional backup. It is not
// transactional: a failure leaves the state of the failed step and
// nothing is rolled back. The operator recovers with Stop or another
// Deploy, both of which are safe to re-invoke.
func (c *Controller) Deploy(ctx context.Context) error {
	run := &types.DeployRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Image:     c.cfg.ImageRef(),
		Version:   c.cfg.Version,
	}

	err := c.deploy(ctx, run)

	run.FinishedAt = time.Now()
	run.FinalState = c.state
	if err != nil {
		run.Error = err.Error()
		metrics.DeploysTotal.WithLabelValues("failure").Inc()
	} else {
		metrics.DeploysTotal.WithLabelValues("success").Inc()
	}

	if c.journal != nil {
		if jerr := c.journal.RecordRun(run); jerr != nil {
			logger := log.WithRunID(run.ID)
			logger.Warn().Err(jerr).Msg("failed to record deploy run")
		}
	}

	return err
}

func (c *Controller) deploy(ctx context.Context, run *types.DeployRun) error {
	logger := log.WithRunID(run.ID)

	// Gate first so a doomed deployment fails before any build work.
	result := c.gate.Check(sysinfo.AbsoluteMemoryFloor, sysinfo.RecommendedAvailableMemory, sysinfo.RecommendedCPUCores)
	if result.Fatal() {
		c.setState(types.StateResourceCheckFailed)
		return fmt.Errorf("resource check failed: %w", result.Err)
	}

	c.setState(types.StateBuilding)

	ref, err := c.builder.Build(ctx, c.cfg)
	if err != nil {
		c.setState(types.StateFailed)
		return err
	}

	d := descriptor.Render(c.cfg, ref)
	c.writeDescriptor(d, logger)

	grace := time.Duration(d.StopGraceSeconds) * time.Second

	// Replacing a previous instance is part of the building step;
	// stopping an instance that does not exist is a no-op.
	if err := c.runtime.Stop(ctx, c.cfg.ServiceName, grace); err != nil {
		logger.Warn().Err(err).Msg("failed to stop previous instance, continuing")
	}

	if _, err := c.runtime.Apply(ctx, d); err != nil {
		c.setState(types.StateFailed)
		return fmt.Errorf("failed to apply descriptor: %w", err)
	}

	c.setState(types.StateStarting)

	health := c.monitor.WaitHealthy(ctx)
	if !health.Healthy {
		c.setState(types.StateUnhealthy)
		return fmt.Errorf("%w after %d attempts: %s", ErrUnhealthy, health.Attempt, health.Message)
	}

	c.setState(types.StateHealthy)
	logger.Info().Str("image", ref.Image).Msg("deploy complete, service ready for traffic")

	if c.backups != nil {
		if _, err := c.backups.Snapshot(c.cfg); err != nil {
			logger.Warn().Err(err).Msg("post-deploy backup failed")
		}
	}

	return nil
}

// writeDescriptor persists the rendered descriptor for diffing and
// backups. Best-effort: the running instance is authoritative.
func (c *Controller) writeDescriptor(d descriptor.Descriptor, logger zerolog.Logger) {
	data, err := d.Marshal()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to marshal descriptor")
		return
	}
	if err := os.MkdirAll(c.cfg.Paths.DataDir, 0755); err != nil {
		logger.Warn().Err(err).Msg("failed to create data directory")
		return
	}
	path := filepath.Join(c.cfg.Paths.DataDir, "descriptor.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Warn().Err(err).Msg("failed to write descriptor")
	}
}

// Stop tears down the runtime instance and transitions to stopped.
// Calling Stop when already stopped succeeds: the teardown tolerates a
// missing instance.
func (c *Controller) Stop(ctx context.Context) error {
	grace := time.Duration(descriptor.DefaultStopGraceSeconds) * time.Second
	if err := c.runtime.Stop(ctx, c.cfg.ServiceName, grace); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}
	c.setState(types.StateStopped)
	return nil
}

// Restart stops the service and re-runs Deploy with the same config.
// The pair is not atomic: a crash between the two leaves the state
// stopped, and re-invoking Deploy is safe.
func (c *Controller) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Deploy(ctx)
}
