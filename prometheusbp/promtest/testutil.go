// Package promtest provides helpers to test the prometheus metrics exported
// by the cross process packages.
package promtest

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// PrometheusMetricTest stores information about a metric to use for testing.
type PrometheusMetricTest struct {
	tb          testing.TB
	metric      prometheus.Collector
	name        string
	initValue   float64
	labelValues []string
}

// NewPrometheusMetricTest creates a new test object for a Prometheus metric.
// It stores the current value of the metric along with the metric name.
//
// For histograms the value is the sample count.
func NewPrometheusMetricTest(tb testing.TB, name string, metric prometheus.Collector, labelValues ...string) *PrometheusMetricTest {
	tb.Helper()
	p := &PrometheusMetricTest{
		tb:          tb,
		metric:      metric,
		name:        name,
		labelValues: labelValues,
	}
	p.initValue = p.getValue()
	return p
}

// CheckDelta checks that the metric value changed by delta since
// NewPrometheusMetricTest was called.
func (p *PrometheusMetricTest) CheckDelta(delta float64) {
	p.tb.Helper()
	got := p.getValue() - p.initValue
	if !almostEqual(got, delta) {
		p.tb.Errorf("%s metric delta: wanted %v, got %v", p.name, delta, got)
	}
}

func (p *PrometheusMetricTest) getValue() float64 {
	p.tb.Helper()
	switch m := p.metric.(type) {
	case *prometheus.GaugeVec:
		gauge, err := m.GetMetricWithLabelValues(p.labelValues...)
		if err != nil {
			p.tb.Fatalf("get %s metric err %v", p.name, err)
		}
		return testutil.ToFloat64(gauge)
	case *prometheus.CounterVec:
		counter, err := m.GetMetricWithLabelValues(p.labelValues...)
		if err != nil {
			p.tb.Fatalf("get %s metric err %v", p.name, err)
		}
		return testutil.ToFloat64(counter)
	case *prometheus.HistogramVec:
		observer, err := m.GetMetricWithLabelValues(p.labelValues...)
		if err != nil {
			p.tb.Fatalf("get %s metric err %v", p.name, err)
		}
		var metric dto.Metric
		if err := observer.(prometheus.Metric).Write(&metric); err != nil {
			p.tb.Fatalf("write %s metric err %v", p.name, err)
		}
		return float64(metric.GetHistogram().GetSampleCount())
	default:
		p.tb.Fatalf("not supported type %T", m)
	}
	return 0
}

const epsilon = 1e-9

// almostEqual compares floats with a relative tolerance.
func almostEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		return diff < epsilon
	}
	return diff/scale < epsilon
}
