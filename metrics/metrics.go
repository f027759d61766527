package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsPrefix = "anneval_"

// Classifier call outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport"
	OutcomeTimeout   = "timeout"
)

var latencyBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180}

// Collector receives the counters of an evaluation run.
type Collector interface {
	ObserveClassifierCall(model string, outcome string, duration time.Duration)
	ObserveCacheAccess(hit bool)
	ObserveDocument(condition string, suppressed int, suppressedCorrect int)
}

type prometheusCollector struct {
	classifierLatency *prometheus.HistogramVec
	classifierTotal   *prometheus.CounterVec
	cacheAccessTotal  *prometheus.CounterVec
	documentsTotal    *prometheus.CounterVec
	suppressedTotal   *prometheus.CounterVec
}

// NewPrometheusCollector registers the evaluation metrics with registerer.
// A nil registerer means the default one.
func NewPrometheusCollector(registerer prometheus.Registerer) (Collector, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &prometheusCollector{
		classifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "classifier_duration_seconds",
			Help:    "Latency of classifier calls in seconds.",
			Buckets: latencyBuckets,
		}, []string{"model"}),
		classifierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "classifier_calls_total",
			Help: "Classifier calls by outcome.",
		}, []string{"model", "outcome"}),
		cacheAccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "classifier_cache_access_total",
			Help: "Classifier response cache lookups.",
		}, []string{"result"}),
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "documents_evaluated_total",
			Help: "Documents evaluated per condition.",
		}, []string{"condition"}),
		suppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "negation_suppressed_total",
			Help: "Spans removed by the negation filter.",
		}, []string{"condition", "correct"}),
	}

	collectors := []prometheus.Collector{
		m.classifierLatency,
		m.classifierTotal,
		m.cacheAccessTotal,
		m.documentsTotal,
		m.suppressedTotal,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusCollector) ObserveClassifierCall(model string, outcome string, duration time.Duration) {
	m.classifierLatency.WithLabelValues(model).Observe(duration.Seconds())
	m.classifierTotal.WithLabelValues(model, outcome).Inc()
}

func (m *prometheusCollector) ObserveCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheAccessTotal.WithLabelValues(result).Inc()
}

func (m *prometheusCollector) ObserveDocument(condition string, suppressed int, suppressedCorrect int) {
	m.documentsTotal.WithLabelValues(condition).Inc()
	m.suppressedTotal.WithLabelValues(condition, "true").Add(float64(suppressedCorrect))
	m.suppressedTotal.WithLabelValues(condition, "false").Add(float64(suppressed - suppressedCorrect))
}

type noopCollector struct{}

// NewNoopCollector returns a collector that drops everything.
func NewNoopCollector() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveClassifierCall(string, string, time.Duration) {}
func (noopCollector) ObserveCacheAccess(bool)                            {}
func (noopCollector) ObserveDocument(string, int, int)                   {}
