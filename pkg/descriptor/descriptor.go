package descriptor

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

const (
	// HostReservedCPUs and HostReservedMemoryBytes are the fixed floor
	// kept back for the host itself, independent of the configured
	// ceiling.
	HostReservedCPUs        = 0.5
	HostReservedMemoryBytes = 256 * 1024 * 1024

	// DefaultStopGraceSeconds is the graceful-shutdown deadline before
	// the runtime force-kills the instance.
	DefaultStopGraceSeconds = 30
)

// RestartUnlessStopped keeps the instance running across failures until
// an explicit stop.
const RestartUnlessStopped = "unless-stopped"

// Resources declares the hard cap and the soft reservation for the
// instance.
type Resources struct {
	LimitCPUs           float64 `yaml:"limit_cpus"`
	LimitMemoryBytes    int64   `yaml:"limit_memory_bytes"`
	ReservedCPUs        float64 `yaml:"reserved_cpus"`
	ReservedMemoryBytes int64   `yaml:"reserved_memory_bytes"`
}

// Port declares the single service port binding.
type Port struct {
	ContainerPort int    `yaml:"container_port"`
	HostPort      int    `yaml:"host_port"`
	Protocol      string `yaml:"protocol"`
}

// HealthPolicy declares the runtime health-check parameters. Durations
// are whole seconds so the rendered document stays readable and
// byte-stable.
type HealthPolicy struct {
	Path               string `yaml:"path"`
	IntervalSeconds    int    `yaml:"interval_seconds"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	Retries            int    `yaml:"retries"`
	StartPeriodSeconds int    `yaml:"start_period_seconds"`
}

// Descriptor is the declarative deployment spec applied to the
// container runtime. Rendering is pure: the same config and artifact
// always produce a byte-identical document, which makes redeploys
// idempotent and descriptors diffable in tests.
type Descriptor struct {
	Service          string       `yaml:"service"`
	Image            string       `yaml:"image"`
	ImageID          string       `yaml:"image_id"`
	Resources        Resources    `yaml:"resources"`
	Port             Port         `yaml:"port"`
	Env              []string     `yaml:"env"`
	Health           HealthPolicy `yaml:"health"`
	RestartPolicy    string       `yaml:"restart_policy"`
	StopGraceSeconds int          `yaml:"stop_grace_seconds"`
}

// Render produces the descriptor for a configuration and a built
// artifact. Environment entries derive one-to-one from config fields
// and are sorted so the output is deterministic.
func Render(cfg config.DeploymentConfig, ref types.ArtifactRef) Descriptor {
	vars := cfg.EnvVars()
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	return Descriptor{
		Service: cfg.ServiceName,
		Image:   ref.Image,
		ImageID: ref.ID,
		Resources: Resources{
			LimitCPUs:           cfg.MaxCPUs,
			LimitMemoryBytes:    cfg.MaxMemoryBytes,
			ReservedCPUs:        HostReservedCPUs,
			ReservedMemoryBytes: HostReservedMemoryBytes,
		},
		Port: Port{
			ContainerPort: cfg.ServicePort,
			HostPort:      cfg.ServicePort,
			Protocol:      "tcp",
		},
		Env: env,
		Health: HealthPolicy{
			Path:               cfg.HealthPath,
			IntervalSeconds:    10,
			TimeoutSeconds:     15,
			Retries:            10,
			StartPeriodSeconds: 45,
		},
		RestartPolicy:    RestartUnlessStopped,
		StopGraceSeconds: DefaultStopGraceSeconds,
	}
}

// Marshal renders the descriptor as YAML.
func (d Descriptor) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
