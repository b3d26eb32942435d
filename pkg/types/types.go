package types

import "time"

// Environment selects the deployment profile.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServiceState represents the lifecycle state of the managed service.
// Exactly one state is authoritative at any time; it is owned by the
// lifecycle controller and changes only through defined transitions.
type ServiceState string

const (
	StateStopped             ServiceState = "stopped"
	StateResourceCheckFailed ServiceState = "resource-check-failed"
	StateBuilding            ServiceState = "building"
	StateStarting            ServiceState = "starting"
	StateHealthy             ServiceState = "healthy"
	StateUnhealthy           ServiceState = "unhealthy"
	StateFailed              ServiceState = "failed"
)

// ArtifactRef identifies a built, deployable image.
type ArtifactRef struct {
	// Image is the full registry reference including the version tag
	Image string

	// ID is the engine-reported image identity (digest)
	ID string

	// SizeBytes is the image size as reported by the engine, 0 if unknown
	SizeBytes int64
}

// HealthCheckResult is the outcome of a single liveness probe attempt.
// Results are consumed in-memory and never persisted.
type HealthCheckResult struct {
	CheckedAt time.Time
	Healthy   bool
	Latency   time.Duration

	// Attempt is the 1-based retry index within a WaitHealthy run,
	// always 1 for single-shot probes
	Attempt int

	Message string
}

// ResourceSnapshot is a point-in-time view of host resources. Snapshots
// are regenerated on every call and never cached: each consumer needs
// "now", not "recently".
type ResourceSnapshot struct {
	TotalMemory     uint64 `yaml:"total_memory"`
	AvailableMemory uint64 `yaml:"available_memory"`
	CPUCores        int    `yaml:"cpu_cores"`

	// Load1 is the one-minute load average. LoadKnown is false when the
	// figure could not be parsed; an unknown load is surfaced as a
	// warning, never assumed healthy.
	Load1     float64 `yaml:"load1"`
	LoadKnown bool    `yaml:"load_known"`

	DiskTotal uint64 `yaml:"disk_total"`
	DiskFree  uint64 `yaml:"disk_free"`

	SampledAt time.Time `yaml:"sampled_at"`
}

// RuntimeStatus is what the container runtime reports for the service
// instance.
type RuntimeStatus struct {
	Running     bool
	ContainerID string
	State       string
	ExitCode    int
}

// BackupRecord describes one completed backup snapshot. The creation
// timestamp doubles as identity and retention sort key. Records are
// immutable after creation and removed only by retention pruning.
type BackupRecord struct {
	CreatedAt time.Time
	Path      string
	Metadata  BackupMetadata
}

// BackupMetadata captures host facts at snapshot time.
type BackupMetadata struct {
	Hostname  string            `yaml:"hostname"`
	Kernel    string            `yaml:"kernel"`
	Resources ResourceSnapshot  `yaml:"resources"`
	Config    map[string]string `yaml:"config"`
}

// DeployRun is the journal record of a single deploy attempt.
type DeployRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	FinalState ServiceState
	Image      string
	Version    string
	Error      string
}
