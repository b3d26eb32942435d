package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

var (
	// Lifecycle metrics
	ServiceState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deckhand_service_state",
			Help: "Current service state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckhand_deploys_total",
			Help: "Total number of deploy attempts by result",
		},
		[]string{"result"},
	)

	// Health metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckhand_health_probes_total",
			Help: "Total number of liveness probes by result",
		},
		[]string{"result"},
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deckhand_health_probe_duration_seconds",
			Help:    "Liveness probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Backup metrics
	BackupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deckhand_backups_total",
			Help: "Total number of backup snapshots taken",
		},
	)

	BackupsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deckhand_backups_pruned_total",
			Help: "Total number of backup snapshots removed by retention pruning",
		},
	)
)

func init() {
	prometheus.MustRegister(ServiceState)
	prometheus.MustRegister(DeploysTotal)
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(BackupsPruned)
}

var allStates = []types.ServiceState{
	types.StateStopped,
	types.StateResourceCheckFailed,
	types.StateBuilding,
	types.StateStarting,
	types.StateHealthy,
	types.StateUnhealthy,
	types.StateFailed,
}

// SetServiceState marks the given state active and all others inactive.
func SetServiceState(state types.ServiceState) {
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		ServiceState.WithLabelValues(string(s)).Set(v)
	}
}

// ObserveProbe records the outcome of one liveness probe.
func ObserveProbe(result types.HealthCheckResult) {
	label := "unhealthy"
	if result.Healthy {
		label = "healthy"
	}
	ProbesTotal.WithLabelValues(label).Inc()
	ProbeDuration.Observe(result.Latency.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
