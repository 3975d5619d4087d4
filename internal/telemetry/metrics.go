package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "zcc").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use. Default: a fresh registry.
	Registry *prometheus.Registry
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "zcc",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the Prometheus collectors for zcc.
type Metrics struct {
	registry *prometheus.Registry

	packInstalls      *prometheus.CounterVec
	packInstallTime   prometheus.Histogram
	packUninstalls    *prometheus.CounterVec
	componentWrites   *prometheus.CounterVec
	hookExecutions    *prometheus.CounterVec
	hookDuration      *prometheus.HistogramVec
	sourceRequests    *prometheus.CounterVec
	servedRequests    *prometheus.CounterVec
	registryDriftSeen prometheus.Counter
}

// NewMetrics registers the zcc collectors on a registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		packInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "pack_installs_total",
			Help:        "Pack installation attempts by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"pack", "status"}),

		packInstallTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "pack_install_duration_seconds",
			Help:        "Time spent installing a single pack",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		packUninstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "pack_uninstalls_total",
			Help:        "Pack removals by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"pack", "status"}),

		componentWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "component_writes_total",
			Help:        "Component files written or skipped, by component type",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "result"}),

		hookExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "hook_executions_total",
			Help:        "Hook executions by event and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "outcome"}),

		hookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "hook_duration_seconds",
			Help:        "Hook process run time",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"}),

		sourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "source_requests_total",
			Help:        "Remote pack source requests by source kind and result",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "result"}),

		servedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "served_requests_total",
			Help:        "Requests answered by the pack server",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code"}),

		registryDriftSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "file_drift_detected_total",
			Help:        "Installed files found modified since install",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordPackInstall counts one pack installation attempt.
func (m *Metrics) RecordPackInstall(pack string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.packInstalls.WithLabelValues(pack, status(ok)).Inc()
	m.packInstallTime.Observe(d.Seconds())
}

// RecordPackUninstall counts one pack removal.
func (m *Metrics) RecordPackUninstall(pack string, ok bool) {
	if m == nil {
		return
	}
	m.packUninstalls.WithLabelValues(pack, status(ok)).Inc()
}

// RecordComponent counts a component write ("installed") or skip ("skipped").
func (m *Metrics) RecordComponent(componentType, result string) {
	if m == nil {
		return
	}
	m.componentWrites.WithLabelValues(componentType, result).Inc()
}

// RecordHook counts one hook execution.
func (m *Metrics) RecordHook(event, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.hookExecutions.WithLabelValues(event, outcome).Inc()
	m.hookDuration.WithLabelValues(event).Observe(d.Seconds())
}

// RecordSourceRequest counts one remote source request.
func (m *Metrics) RecordSourceRequest(kind, result string) {
	if m == nil {
		return
	}
	m.sourceRequests.WithLabelValues(kind, result).Inc()
}

// RecordServed counts one request answered by the pack server.
func (m *Metrics) RecordServed(route string, code int) {
	if m == nil {
		return
	}
	m.servedRequests.WithLabelValues(route, itoa(code)).Inc()
}

// RecordDrift counts a file found modified after install.
func (m *Metrics) RecordDrift() {
	if m == nil {
		return
	}
	m.registryDriftSeen.Inc()
}

// WriteTextfile writes all metrics in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		digits[i] = '-'
	}
	return string(digits[i:])
}
