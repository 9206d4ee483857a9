package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Registry owns a private Prometheus registry. Instruments are created
// through it at component construction time; a duplicate name panics there,
// which surfaces wiring mistakes at startup rather than at scrape time.
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// Counter registers and returns a monotonically increasing counter.
func (r *Registry) Counter(name, help string) prometheus.Counter {
	return promauto.With(r.reg).NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

// CounterVec registers and returns a counter partitioned by the given labels.
func (r *Registry) CounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(r.reg).NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// Gauge registers and returns a gauge.
func (r *Registry) Gauge(name, help string) prometheus.Gauge {
	return promauto.With(r.reg).NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

// GaugeVec registers and returns a gauge partitioned by the given labels.
func (r *Registry) GaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(r.reg).NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

// Histogram registers and returns a histogram with the given buckets.
// A nil buckets slice uses the client library defaults.
func (r *Registry) Histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(r.reg).NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets})
}

// Value returns the summed value across all series of the named family, or 0
// when the family is absent or has no samples yet. Histograms contribute
// their sample sum.
func (r *Registry) Value(name string) float64 {
	fams, err := r.reg.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range fams {
		if mf.GetName() == name {
			return sumFamily(mf)
		}
	}
	return 0
}

func sumFamily(mf *dto.MetricFamily) float64 {
	var sum float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.GetCounter() != nil:
			sum += m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			sum += m.GetGauge().GetValue()
		case m.GetUntyped() != nil:
			sum += m.GetUntyped().GetValue()
		case m.GetHistogram() != nil:
			sum += m.GetHistogram().GetSampleSum()
		}
	}
	return sum
}
