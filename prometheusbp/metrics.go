// Package prometheusbp exports the metrics recorded on transactions as
// prometheus metrics.
package prometheusbp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reddit/crossprocess.go/internal/prometheusbpint"
)

// DefaultLatencyBuckets is the default bucket values for a prometheus
// histogram metric.
var DefaultLatencyBuckets = prometheus.ExponentialBuckets(0.0001, 2.5, 14) // 100us ~ 14.9s

// MetricNameLabel is the label holding the transaction metric name, for
// example "ClientApplication/1#1/all".
const MetricNameLabel = "metric_name"

var metricDuration = promauto.With(prometheusbpint.GlobalRegistry).NewHistogramVec(prometheus.HistogramOpts{
	Name:    "crossprocess_metric_duration_seconds",
	Help:    "Durations of the named metrics recorded by transactions",
	Buckets: DefaultLatencyBuckets,
}, []string{MetricNameLabel})

// MetricDuration returns the histogram DurationRecorder writes to.
func MetricDuration() *prometheus.HistogramVec {
	return metricDuration
}

// DurationRecorder records transaction metrics into a prometheus histogram
// labelled by metric name.
//
// The zero value is ready to use.
type DurationRecorder struct{}

// RecordDuration observes d in seconds under the given metric name.
func (DurationRecorder) RecordDuration(name string, d time.Duration) {
	metricDuration.WithLabelValues(name).Observe(d.Seconds())
}
