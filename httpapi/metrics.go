package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delegatescan/delegatescan/core/report"
)

// Metrics is the Prometheus instrumentation for the analyze endpoints: this
// is ambient service observability, not an analysis feature, so it is
// carried despite spec.md scoping "real engineering" treatment to the core
// pipeline.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	analyzeDuration   prometheus.Histogram
	delegatecallCount prometheus.Histogram
}

// NewMetrics creates a Metrics instance with its own registry, so multiple
// Servers in the same process (e.g. in tests) don't collide on global
// registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delegatescan_analyze_requests_total",
			Help: "Total number of /analyze requests, partitioned by outcome.",
		}, []string{"outcome"}),
		analyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delegatescan_analyze_duration_seconds",
			Help:    "Time spent running the analysis pipeline for one request.",
			Buckets: prometheus.DefBuckets,
		}),
		delegatecallCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delegatescan_delegatecall_count",
			Help:    "Number of DELEGATECALL sites found per analyzed contract.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
	reg.MustRegister(m.requestsTotal, m.analyzeDuration, m.delegatecallCount)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// analyzeTimer tracks one in-flight /analyze call.
type analyzeTimer struct {
	m     *Metrics
	start time.Time
}

// StartAnalyze begins timing one analysis request.
func (m *Metrics) StartAnalyze() *analyzeTimer {
	return &analyzeTimer{m: m, start: time.Now()}
}

// ObserveError records the outcome counter; a nil err counts as success.
func (t *analyzeTimer) ObserveError(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	t.m.requestsTotal.WithLabelValues(outcome).Inc()
	t.m.analyzeDuration.Observe(time.Since(t.start).Seconds())
}

// ObserveReport records the delegatecall-count histogram for a successful
// analysis.
func (t *analyzeTimer) ObserveReport(r *report.Report) {
	if r == nil {
		return
	}
	t.m.delegatecallCount.Observe(float64(r.DelegatecallCount))
}
