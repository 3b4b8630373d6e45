package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "tourlab"

var (
	// Registry is the dedicated Prometheus registry served on /metrics
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts API requests by method, route and status code
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "API requests by method, route and status.",
	}, []string{"method", "path", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "API request latency in seconds. Event streams count their full lifetime.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// WebhookDeliveries counts run notification attempts; status is ok or error
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Run notification attempts by event type and status.",
	}, []string{"event_type", "status"})
	WebhookLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_delivery_latency_ms",
		Help:      "Run notification round trip in milliseconds.",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"event_type", "status"})

	RunsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tour_runs_started_total",
		Help: "Tour searches started by algorithm.",
	}, []string{"algorithm"})
	// RunsFinished counts terminated runs; outcome is completed, cancelled or failed.
	RunsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tour_runs_finished_total",
		Help: "Tour searches finished by algorithm and outcome.",
	}, []string{"algorithm", "outcome"})
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tour_run_duration_seconds",
		Help:    "Accumulated runtime of finished tour searches.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"algorithm"})
	InterimResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tour_interim_results_total",
		Help: "Interim tours reported by running searches.",
	}, []string{"algorithm"})
	ActiveRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tour_active_runs",
		Help: "Tour searches currently running.",
	})
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry, once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests, HTTPDuration,
			WebhookDeliveries, WebhookLatency,
			RunsStarted, RunsFinished, RunDuration, InterimResults, ActiveRuns,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
