package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(registry)
	require.NoError(t, err)

	collector.ObserveClassifierCall("qwen3:8b", OutcomeSuccess, 2*time.Second)
	collector.ObserveClassifierCall("qwen3:8b", OutcomeTimeout, time.Second)
	collector.ObserveCacheAccess(true)
	collector.ObserveCacheAccess(false)
	collector.ObserveCacheAccess(false)
	collector.ObserveDocument("qwen3:8b | negation=ON", 3, 2)

	m := collector.(*prometheusCollector)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifierTotal.WithLabelValues("qwen3:8b", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifierTotal.WithLabelValues("qwen3:8b", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheAccessTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheAccessTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("qwen3:8b | negation=ON")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.suppressedTotal.WithLabelValues("qwen3:8b | negation=ON", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressedTotal.WithLabelValues("qwen3:8b | negation=ON", "false")))
}

func TestPrometheusCollectorRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(registry)
	require.NoError(t, err)

	_, err = NewPrometheusCollector(registry)
	assert.Error(t, err)
}

func TestNoopCollector(t *testing.T) {
	collector := NewNoopCollector()
	assert.NotPanics(t, func() {
		collector.ObserveClassifierCall("m", OutcomeMalformed, time.Millisecond)
		collector.ObserveCacheAccess(true)
		collector.ObserveDocument("c", 0, 0)
	})
}
