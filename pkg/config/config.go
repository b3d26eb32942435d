package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

// Environment variable names understood by FromEnv. Every variable has
// a default; an absent variable never fails config loading.
const (
	EnvKeyEnvironment   = "ENVIRONMENT"
	EnvKeyMaxMemory     = "MAX_MEMORY"
	EnvKeyMaxCPUs       = "MAX_CPUS"
	EnvKeyWorkerProcs   = "WORKER_PROCESSES"
	EnvKeyWorkerThreads = "WORKER_THREADS"
	EnvKeyMaxRequests   = "MAX_REQUESTS"
	EnvKeyBackupEnabled = "BACKUP_ENABLED"
)

// Paths groups the on-disk layout the controller works against.
type Paths struct {
	// DataDir holds the journal database and rendered descriptors
	DataDir string `yaml:"data_dir"`

	// LogsDir receives service container logs, rotated externally;
	// the clean operation prunes entries older than seven days
	LogsDir string `yaml:"logs_dir"`

	// BackupsDir holds timestamp-keyed backup subdirectories
	BackupsDir string `yaml:"backups_dir"`

	// BuildContext is the directory containing the build descriptor
	BuildContext string `yaml:"build_context"`

	// EnvFile is an optional environment file included in backups
	EnvFile string `yaml:"env_file"`
}

// DeploymentConfig is the immutable input to a deployment run. It is
// constructed once from defaults plus environment overrides and passed
// by value into every component; no component consults process-wide
// state after construction.
type DeploymentConfig struct {
	Environment types.Environment `yaml:"environment"`

	Registry string `yaml:"registry"`
	Image    string `yaml:"image"`
	Version  string `yaml:"version"`

	// Runtime resource ceiling for the service instance
	MaxCPUs        float64 `yaml:"max_cpus"`
	MaxMemoryBytes int64   `yaml:"max_memory_bytes"`

	// Build-time ceiling, distinct from the runtime ceiling, so a
	// build never starves the host
	BuildCPUs        float64 `yaml:"build_cpus"`
	BuildMemoryBytes int64   `yaml:"build_memory_bytes"`

	WorkerProcesses      int `yaml:"worker_processes"`
	WorkerThreads        int `yaml:"worker_threads"`
	MaxRequestsPerWorker int `yaml:"max_requests_per_worker"`

	BackupEnabled bool `yaml:"backup_enabled"`

	ServiceName string `yaml:"service_name"`
	ServicePort int    `yaml:"service_port"`
	HealthPath  string `yaml:"health_path"`

	Paths Paths `yaml:"paths"`
}

// Default returns the documented baseline configuration.
func Default() DeploymentConfig {
	return DeploymentConfig{
		Environment:          types.EnvDevelopment,
		Registry:             "localhost:5000",
		Image:                "classifier-api",
		Version:              "latest",
		MaxCPUs:              1.0,
		MaxMemoryBytes:       1536 * 1024 * 1024,
		BuildCPUs:            1.0,
		BuildMemoryBytes:     1024 * 1024 * 1024,
		WorkerProcesses:      1,
		WorkerThreads:        2,
		MaxRequestsPerWorker: 1000,
		BackupEnabled:        false,
		ServiceName:          "classifier-api",
		ServicePort:          8000,
		HealthPath:           "/health",
		Paths: Paths{
			DataDir:      "./data",
			LogsDir:      "./logs",
			BackupsDir:   "./backups",
			BuildContext: ".",
			EnvFile:      ".env",
		},
	}
}

// FromEnv builds a DeploymentConfig from defaults overridden by
// environment variables. Absent variables fall back to defaults;
// malformed values are reported as errors rather than silently ignored.
func FromEnv() (DeploymentConfig, error) {
	return applyEnv(Default())
}

func applyEnv(cfg DeploymentConfig) (DeploymentConfig, error) {
	if v := os.Getenv(EnvKeyEnvironment); v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			return cfg, err
		}
		cfg.Environment = env
	}

	if v := os.Getenv(EnvKeyMaxMemory); v != "" {
		bytes, err := ParseMemory(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvKeyMaxMemory, err)
		}
		cfg.MaxMemoryBytes = bytes
	}

	if v := os.Getenv(EnvKeyMaxCPUs); v != "" {
		cpus, err := strconv.ParseFloat(v, 64)
		if err != nil || cpus <= 0 {
			return cfg, fmt.Errorf("invalid %s: %q", EnvKeyMaxCPUs, v)
		}
		cfg.MaxCPUs = cpus
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{EnvKeyWorkerProcs, &cfg.WorkerProcesses},
		{EnvKeyWorkerThreads, &cfg.WorkerThreads},
		{EnvKeyMaxRequests, &cfg.MaxRequestsPerWorker},
	} {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return cfg, fmt.Errorf("invalid %s: %q", f.key, v)
			}
			*f.dst = n
		}
	}

	if v := os.Getenv(EnvKeyBackupEnabled); v != "" {
		switch strings.ToLower(v) {
		case "true":
			cfg.BackupEnabled = true
		case "false":
			cfg.BackupEnabled = false
		default:
			return cfg, fmt.Errorf("invalid %s: %q (want true or false)", EnvKeyBackupEnabled, v)
		}
	}

	return cfg, nil
}

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (types.Environment, error) {
	switch types.Environment(strings.ToLower(s)) {
	case types.EnvDevelopment:
		return types.EnvDevelopment, nil
	case types.EnvProduction:
		return types.EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment: %q (want development or production)", s)
	}
}

// ParseMemory parses a memory size string like "1536m", "2g", or a
// plain byte count.
func ParseMemory(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty memory size")
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'k':
		multiplier = 1024
		s = s[:len(s)-1]
	case 'm':
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case 'g':
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed memory size: %q", s)
	}
	return n * multiplier, nil
}

// FormatMemory renders a byte count in the engine's size syntax,
// rounded down to the nearest mebibyte.
func FormatMemory(bytes int64) string {
	return fmt.Sprintf("%dm", bytes/(1024*1024))
}

// ImageRef returns the full image reference for this configuration.
func (c DeploymentConfig) ImageRef() string {
	return fmt.Sprintf("%s/%s:%s", c.Registry, c.Image, c.Version)
}

// EnvVars returns the environment block handed to the service, one
// entry per configuration field the service consumes.
func (c DeploymentConfig) EnvVars() map[string]string {
	return map[string]string{
		"ENVIRONMENT":    string(c.Environment),
		"API_PORT":       strconv.Itoa(c.ServicePort),
		"API_WORKERS":    strconv.Itoa(c.WorkerProcesses),
		"WORKER_THREADS": strconv.Itoa(c.WorkerThreads),
		"MAX_REQUESTS":   strconv.Itoa(c.MaxRequestsPerWorker),
		"MAX_CPUS":       strconv.FormatFloat(c.MaxCPUs, 'f', -1, 64),
		"MAX_MEMORY":     FormatMemory(c.MaxMemoryBytes),
	}
}
