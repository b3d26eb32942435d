package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

// ErrNoBuildDescriptor means the build context has no Dockerfile. This
// is fatal: a deployment without a build recipe cannot proceed.
var ErrNoBuildDescriptor = errors.New("build descriptor not found")

// BuildError wraps a non-zero engine build exit. It is fatal and never
// retried; a broken artifact must not be deployed.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Runner executes engine commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Builder produces versioned deployable artifacts via the container
// engine's build command, with the build itself held under a resource
// ceiling distinct from the runtime ceiling so building never starves
// the host.
type Builder struct {
	engine string
	runner Runner
}

// NewBuilder creates a builder using the default engine binary.
func NewBuilder() *Builder {
	return &Builder{
		engine: "docker",
		runner: execRunner{},
	}
}

// WithEngine sets the engine binary name.
func (b *Builder) WithEngine(engine string) *Builder {
	b.engine = engine
	return b
}

// WithRunner sets the command runner.
func (b *Builder) WithRunner(runner Runner) *Builder {
	b.runner = runner
	return b
}

// Build runs the engine build and returns the artifact reference. The
// build does not start the service. On success the artifact identity
// and size are reported for observability.
func (b *Builder) Build(ctx context.Context, cfg config.DeploymentConfig) (types.ArtifactRef, error) {
	logger := log.WithComponent("build")

	dockerfile := filepath.Join(cfg.Paths.BuildContext, "Dockerfile")
	if _, err := os.Stat(dockerfile); err != nil {
		return types.ArtifactRef{}, fmt.Errorf("%w: %s", ErrNoBuildDescriptor, dockerfile)
	}

	ref := cfg.ImageRef()
	args := []string{
		"build",
		"--tag", ref,
		"--memory", config.FormatMemory(cfg.BuildMemoryBytes),
		"--cpu-period", "100000",
		"--cpu-quota", strconv.Itoa(int(cfg.BuildCPUs * 100000)),
		cfg.Paths.BuildContext,
	}

	logger.Info().
		Str("image", ref).
		Str("build_memory", config.FormatMemory(cfg.BuildMemoryBytes)).
		Float64("build_cpus", cfg.BuildCPUs).
		Msg("building artifact")

	out, err := b.runner.Run(ctx, b.engine, args...)
	if err != nil {
		return types.ArtifactRef{}, &BuildError{Output: string(out), Err: err}
	}

	artifact := types.ArtifactRef{Image: ref}

	// Identity and size are observability only; an inspect failure does
	// not fail the build.
	out, err = b.runner.Run(ctx, b.engine, "image", "inspect", "--format", "{{.Id}} {{.Size}}", ref)
	if err == nil {
		fields := strings.Fields(string(out))
		if len(fields) == 2 {
			artifact.ID = fields[0]
			if size, perr := strconv.ParseInt(fields[1], 10, 64); perr == nil {
				artifact.SizeBytes = size
			}
		}
	}

	logger.Info().
		Str("image", artifact.Image).
		Str("id", artifact.ID).
		Int64("size_bytes", artifact.SizeBytes).
		Msg("artifact built")

	return artifact, nil
}
