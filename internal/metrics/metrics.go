package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for data acquisition.
// It implements collector.Observer.
type Metrics struct {
	registry *prometheus.Registry

	ProviderAttempts   *prometheus.CounterVec   // labels: provider, outcome
	ProviderFetchDur   *prometheus.HistogramVec // labels: provider
	SyntheticFallbacks prometheus.Counter
	BatchFetches       prometheus.Counter
	BatchSize          prometheus.Histogram
	SnapshotsRecorded  *prometheus.CounterVec // labels: result
	EventsPublished    *prometheus.CounterVec // labels: result
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_provider_attempts_total",
			Help: "Fetch attempts per provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderFetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpulse_provider_fetch_seconds",
			Help:    "Provider fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		SyntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_synthetic_fallbacks_total",
			Help: "Snapshots served from the synthetic generator",
		}),
		BatchFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_batch_fetches_total",
			Help: "Completed batches of concurrent symbol fetches",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_batch_size",
			Help:    "Symbols per fetch batch",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}),
		SnapshotsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_snapshots_recorded_total",
			Help: "Snapshots written to the recorder",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_events_published_total",
			Help: "Snapshot events published to the broker",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.ProviderAttempts,
		m.ProviderFetchDur,
		m.SyntheticFallbacks,
		m.BatchFetches,
		m.BatchSize,
		m.SnapshotsRecorded,
		m.EventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAttempt(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	m.ProviderFetchDur.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSynthetic(string) {
	if m == nil {
		return
	}
	m.SyntheticFallbacks.Inc()
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.BatchFetches.Inc()
	m.BatchSize.Observe(float64(size))
}

// ObserveRecord counts a recorder write.
func (m *Metrics) ObserveRecord(err error) {
	if m == nil {
		return
	}
	m.SnapshotsRecorded.WithLabelValues(result(err)).Inc()
}

// ObservePublish counts a broker publish.
func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// HealthStatus tracks the liveness of the refresh pipeline.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt     time.Time
	LastRefresh   time.Time
	LastSynthetic int
	RecorderOK    bool
	Providers     []string
}

// NewHealthStatus returns a health status stamped with the start time.
func NewHealthStatus(providers []string) *HealthStatus {
	return &HealthStatus{
		StartedAt:  time.Now(),
		RecorderOK: true,
		Providers:  providers,
	}
}

// SetRefreshed records a completed watchlist refresh and how many of its
// snapshots were synthetic.
func (h *HealthStatus) SetRefreshed(at time.Time, synthetic int) {
	h.mu.Lock()
	h.LastRefresh = at
	h.LastSynthetic = synthetic
	h.mu.Unlock()
}

func (h *HealthStatus) SetRecorderOK(v bool) {
	h.mu.Lock()
	h.RecorderOK = v
	h.mu.Unlock()
}

// ServeHTTP handles the /health endpoint. The service always answers;
// a failing recorder only degrades the reported status.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	if !h.RecorderOK {
		overall = "degraded"
	}
	lastRefresh := ""
	if !h.LastRefresh.IsZero() {
		lastRefresh = h.LastRefresh.Format(time.RFC3339)
	}

	status := struct {
		Status        string   `json:"status"`
		Uptime        string   `json:"uptime"`
		Providers     []string `json:"providers"`
		LastRefresh   string   `json:"last_refresh"`
		LastSynthetic int      `json:"last_refresh_synthetic"`
		RecorderOK    bool     `json:"recorder_ok"`
	}{
		Status:        overall,
		Uptime:        time.Since(h.StartedAt).Round(time.Second).String(),
		Providers:     h.Providers,
		LastRefresh:   lastRefresh,
		LastSynthetic: h.LastSynthetic,
		RecorderOK:    h.RecorderOK,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
