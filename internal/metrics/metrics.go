package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latency plus dataset gauges.
type HTTPMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	datasetRows prometheus.Gauge
	snapshotVer prometheus.Gauge
}

// NewHTTPMetrics registers the dashboard metrics on the provided registerer.
// A nil registerer yields a no-op instance.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by method, path and status.",
	}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	datasetRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_rows",
		Help: "Order lines in the loaded dataset snapshot.",
	})
	snapshotVer := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_snapshot_version",
		Help: "Version counter of the derived snapshot, bumped per load.",
	})

	reg.MustRegister(requests, duration, datasetRows, snapshotVer)
	return &HTTPMetrics{
		requests:    requests,
		duration:    duration,
		datasetRows: datasetRows,
		snapshotVer: snapshotVer,
	}
}

// ObserveRequest records one completed request.
func (m *HTTPMetrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, path, status).Inc()
	m.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// SetDataset updates the dataset gauges after a load.
func (m *HTTPMetrics) SetDataset(rows, version int64) {
	if m == nil || m.datasetRows == nil {
		return
	}
	m.datasetRows.Set(float64(rows))
	m.snapshotVer.Set(float64(version))
}
