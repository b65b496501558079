package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder on top of a Prometheus registry.
type Prometheus struct {
	scanDuration      prometheus.Histogram
	probeFailures     *prometheus.CounterVec
	escalations       *prometheus.CounterVec
	restarts          *prometheus.CounterVec
	crashTiers        *prometheus.CounterVec
	dependencyDown    prometheus.Gauge
	reconnectAttempts prometheus.Counter
	emergencyActive   prometheus.Gauge
	workers           prometheus.Gauge
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the supervisor collectors on reg (the default registerer
// if nil) under namespace ("supervisor" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "supervisor"
	}

	p := &Prometheus{
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scan cycle in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		probeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Probe errors by probe name.",
		}, []string{"probe"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Silent worker escalations by criticality.",
		}, []string{"criticality"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Restart attempts by result.",
		}, []string{"result"}),
		crashTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crash_tier_total",
			Help:      "Sources observed in a crash tier, per scan.",
		}, []string{"tier"}),
		dependencyDown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_down",
			Help:      "1 while the shared dependency is unavailable.",
		}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_reconnect_attempts_total",
			Help:      "Reconnection attempts against the shared dependency.",
		}),
		emergencyActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergency_stop_active",
			Help:      "1 while the global kill switch is set.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Number of registered workers.",
		}),
	}

	reg.MustRegister(
		p.scanDuration,
		p.probeFailures,
		p.escalations,
		p.restarts,
		p.crashTiers,
		p.dependencyDown,
		p.reconnectAttempts,
		p.emergencyActive,
		p.workers,
	)
	return p
}

func (p *Prometheus) ScanCompleted(seconds float64) { p.scanDuration.Observe(seconds) }

func (p *Prometheus) ProbeFailed(probe string) { p.probeFailures.WithLabelValues(probe).Inc() }

func (p *Prometheus) Escalation(criticality string) {
	p.escalations.WithLabelValues(criticality).Inc()
}

func (p *Prometheus) Restart(result string) { p.restarts.WithLabelValues(result).Inc() }

func (p *Prometheus) CrashTier(tier string) { p.crashTiers.WithLabelValues(tier).Inc() }

func (p *Prometheus) SetDependencyDown(down bool) { p.dependencyDown.Set(boolToFloat(down)) }

func (p *Prometheus) ReconnectAttempt() { p.reconnectAttempts.Inc() }

func (p *Prometheus) SetEmergencyActive(active bool) { p.emergencyActive.Set(boolToFloat(active)) }

func (p *Prometheus) SetWorkers(n int) { p.workers.Set(float64(n)) }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
