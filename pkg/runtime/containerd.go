package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/containers"
	"github.com/containerd/containerd/errdefs"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/deckhand-sh/deckhand/pkg/descriptor"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

const (
	// DefaultNamespace is the containerd namespace for Deckhand
	DefaultNamespace = "deckhand"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	cfsPeriod = 100000
)

// ContainerdRuntime implements Runtime using containerd.
type ContainerdRuntime struct {
	client    *containerd.Client
	namespace string
	logDir    string
}

// NewContainerdRuntime connects to containerd. Service container logs
// are written under logDir.
func NewContainerdRuntime(socketPath, logDir string) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &ContainerdRuntime{
		client:    client,
		namespace: DefaultNamespace,
		logDir:    logDir,
	}, nil
}

// Close closes the containerd client connection.
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// LogPath returns the log file an instance writes to.
func (r *ContainerdRuntime) LogPath(name string) string {
	return filepath.Join(r.logDir, name+".log")
}

// Apply creates and starts the instance declared by d. A previous
// instance of the same name is removed first, so re-applying the same
// descriptor converges instead of erroring.
func (r *ContainerdRuntime) Apply(ctx context.Context, d descriptor.Descriptor) (string, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	image, err := r.client.GetImage(ctx, d.Image)
	if err != nil {
		image, err = r.client.Pull(ctx, d.Image, containerd.WithPullUnpack)
		if err != nil {
			return "", fmt.Errorf("failed to pull image %s: %w", d.Image, err)
		}
	}

	if err := r.remove(ctx, d.Service, time.Duration(d.StopGraceSeconds)*time.Second); err != nil {
		return "", fmt.Errorf("failed to replace previous instance: %w", err)
	}

	quota := int64(d.Resources.LimitCPUs * cfsPeriod)
	shares := uint64(d.Resources.ReservedCPUs * 1024)

	// Host network namespace: the service binds its port directly on
	// the host, matching the descriptor's port declaration.
	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(d.Env),
		oci.WithHostNamespace(specs.NetworkNamespace),
		oci.WithMemoryLimit(uint64(d.Resources.LimitMemoryBytes)),
		oci.WithCPUCFS(quota, cfsPeriod),
		oci.WithCPUShares(shares),
		withMemoryReservation(d.Resources.ReservedMemoryBytes),
	}

	container, err := r.client.NewContainer(
		ctx,
		d.Service,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(d.Service+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	task, err := container.NewTask(ctx, cio.LogFile(r.LogPath(d.Service)))
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	if err := task.Start(ctx); err != nil {
		return "", fmt.Errorf("failed to start task: %w", err)
	}

	return container.ID(), nil
}

// Stop tears down the named instance: SIGTERM, wait up to grace, then
// SIGKILL. A missing instance is not an error.
func (r *ContainerdRuntime) Stop(ctx context.Context, name string, grace time.Duration) error {
	ctx = namespaces.WithNamespace(ctx, r.namespace)
	return r.remove(ctx, name, grace)
}

func (r *ContainerdRuntime) remove(ctx context.Context, name string, grace time.Duration) error {
	container, err := r.client.LoadContainer(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load container %s: %w", name, err)
	}

	task, err := container.Task(ctx, nil)
	if err == nil {
		if err := r.stopTask(ctx, task, grace); err != nil {
			return err
		}
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to get task for %s: %w", name, err)
	}

	if err := container.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to delete container %s: %w", name, err)
	}

	return nil
}

func (r *ContainerdRuntime) stopTask(ctx context.Context, task containerd.Task, grace time.Duration) error {
	stopCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to signal task: %w", err)
	}

	statusC, err := task.Wait(stopCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for task: %w", err)
	}

	select {
	case <-statusC:
		// exited within the grace period
	case <-stopCtx.Done():
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("failed to force kill task: %w", err)
		}
	}

	if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// Status reports the instance's runtime state. A missing container
// reports as not running rather than an error.
func (r *ContainerdRuntime) Status(ctx context.Context, name string) (types.RuntimeStatus, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	container, err := r.client.LoadContainer(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return types.RuntimeStatus{State: "absent"}, nil
		}
		return types.RuntimeStatus{}, fmt.Errorf("failed to load container %s: %w", name, err)
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return types.RuntimeStatus{ContainerID: container.ID(), State: "created"}, nil
		}
		return types.RuntimeStatus{}, fmt.Errorf("failed to get task for %s: %w", name, err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return types.RuntimeStatus{}, fmt.Errorf("failed to get task status: %w", err)
	}

	return types.RuntimeStatus{
		Running:     status.Status == containerd.Running,
		ContainerID: container.ID(),
		State:       string(status.Status),
		ExitCode:    int(status.ExitStatus),
	}, nil
}

func withMemoryReservation(limit int64) oci.SpecOpts {
	return func(_ context.Context, _ oci.Client, _ *containers.Container, s *oci.Spec) error {
		if s.Linux == nil {
			s.Linux = &specs.Linux{}
		}
		if s.Linux.Resources == nil {
			s.Linux.Resources = &specs.LinuxResources{}
		}
		if s.Linux.Resources.Memory == nil {
			s.Linux.Resources.Memory = &specs.LinuxMemory{}
		}
		s.Linux.Resources.Memory.Reservation = &limit
		return nil
	}
}
