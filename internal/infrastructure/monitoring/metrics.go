package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelf"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so the CLI can run without a collector.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryApps    prometheus.Gauge
	Mutations       *prometheus.CounterVec
	StoreSaveErrors prometheus.Counter

	// Launch metrics
	Launches *prometheus.CounterVec

	// Scan metrics
	ScanDuration   prometheus.Histogram
	ScanCandidates prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    prometheus.Counter

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds current values for the JSON stats endpoint.
type Snapshot struct {
	Requests      int64   `json:"requests"`
	Launches      int64   `json:"launches"`
	LaunchFailure int64   `json:"launch_failures"`
	SaveErrors    int64   `json:"save_errors"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		RegistryApps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_apps",
			Help:      "Number of apps in the registry",
		}),
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_mutations_total",
				Help:      "Registry mutations by operation",
			},
			[]string{"op"},
		),
		StoreSaveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_save_errors_total",
			Help:      "Failed record file writes",
		}),

		Launches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_total",
				Help:      "Launch attempts by mode and outcome",
			},
			[]string{"mode", "status"},
		),

		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Directory scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ScanCandidates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_candidates",
			Help:      "Executables found by the last scan",
		}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Open event stream connections",
		}),
		WSMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_sent_total",
			Help:      "Events pushed to stream clients",
		}),
	}
}

// Registry exposes the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Requests++
	m.mu.Unlock()
}

// RecordLaunch counts a launch attempt. mode is "normal" or "elevated".
func (m *Metrics) RecordLaunch(mode string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.Launches.WithLabelValues(mode, status).Inc()

	m.mu.Lock()
	if success {
		m.snapshot.Launches++
	} else {
		m.snapshot.LaunchFailure++
	}
	m.mu.Unlock()
}

// RecordMutation counts a registry mutation.
func (m *Metrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

// RecordSaveError counts a failed record file write.
func (m *Metrics) RecordSaveError() {
	if m == nil {
		return
	}
	m.StoreSaveErrors.Inc()

	m.mu.Lock()
	m.snapshot.SaveErrors++
	m.mu.Unlock()
}

// RecordScan records scan duration and result size.
func (m *Metrics) RecordScan(duration time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(duration.Seconds())
	m.ScanCandidates.Set(float64(candidates))
}

// SetRegistryApps sets the registry size gauge.
func (m *Metrics) SetRegistryApps(count int) {
	if m == nil {
		return
	}
	m.RegistryApps.Set(float64(count))
}

// IncWSConnections tracks an opened stream.
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections tracks a closed stream.
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordWSMessage counts an event pushed to a stream client.
func (m *Metrics) RecordWSMessage() {
	if m == nil {
		return
	}
	m.WSMessages.Inc()
}

// Snapshot returns the current counters for JSON consumers.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
