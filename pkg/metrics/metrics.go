// Package metrics provides Prometheus-based metrics recording for the crawler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder bundles the crawler's Prometheus collectors.
type Recorder struct {
	apiRequestsTotal    *prometheus.CounterVec
	apiRequestDuration  *prometheus.HistogramVec
	queueDepth          *prometheus.GaugeVec
	tasksProcessedTotal *prometheus.CounterVec
	playersDiscovered   prometheus.Counter
	rateLimitWaitsTotal *prometheus.CounterVec
}

// NewRecorder creates a recorder registered against the default registry.
// Construct at most one per process.
func NewRecorder() *Recorder {
	return &Recorder{
		apiRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_api_requests_total",
				Help: "Total upstream API requests by endpoint, region, and HTTP status",
			},
			[]string{"endpoint", "region", "status"},
		),
		apiRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_api_request_duration_seconds",
				Help:    "Duration of upstream API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "region"},
		),
		queueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_queue_depth",
				Help: "Current task queue depth per priority band",
			},
			[]string{"band"},
		),
		tasksProcessedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_processed_total",
				Help: "Player tasks processed by result",
			},
			[]string{"result"},
		),
		playersDiscovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_players_discovered_total",
				Help: "Newly discovered players enqueued for crawling",
			},
		),
		rateLimitWaitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_rate_limit_waits_total",
				Help: "Rate limiter acquisition failures by limit class",
			},
			[]string{"class"},
		),
	}
}

// ObserveAPIRequest records one completed upstream request.
func (r *Recorder) ObserveAPIRequest(endpoint, region, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.apiRequestsTotal.WithLabelValues(endpoint, region, status).Inc()
	r.apiRequestDuration.WithLabelValues(endpoint, region).Observe(duration.Seconds())
}

// SetQueueDepth records the current size of one priority band.
func (r *Recorder) SetQueueDepth(band string, depth int) {
	if r == nil {
		return
	}
	r.queueDepth.WithLabelValues(band).Set(float64(depth))
}

// IncTaskProcessed counts one finished task; result is "ok", "retried", or "dropped".
func (r *Recorder) IncTaskProcessed(result string) {
	if r == nil {
		return
	}
	r.tasksProcessedTotal.WithLabelValues(result).Inc()
}

// AddPlayersDiscovered counts newly enqueued discoveries.
func (r *Recorder) AddPlayersDiscovered(n int) {
	if r == nil {
		return
	}
	r.playersDiscovered.Add(float64(n))
}

// IncRateLimitWait counts a blocked acquisition for the given limit class.
func (r *Recorder) IncRateLimitWait(class string) {
	if r == nil {
		return
	}
	r.rateLimitWaitsTotal.WithLabelValues(class).Inc()
}

// Handler returns the HTTP handler serving the default registry, for the
// optional /metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
