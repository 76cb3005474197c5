package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records row store latency, failures and cache effectiveness.
type StoreMetrics struct {
	duration  *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	errors    *prometheus.CounterVec
	cacheHit  *prometheus.CounterVec
	cacheMiss *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheet_operation_duration_seconds",
		Help:    "Duration of row store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "table"})
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_operations_total",
		Help: "Row store operations executed.",
	}, []string{"op", "table"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_operation_errors_total",
		Help: "Row store operations that returned an error.",
	}, []string{"op", "table"})
	hit := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_cache_hits_total",
		Help: "Table reads served from the cache.",
	}, []string{"table"})
	miss := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_cache_misses_total",
		Help: "Table reads that fell through to the backing store.",
	}, []string{"table"})
	reg.MustRegister(duration, ops, errs, hit, miss)
	return &StoreMetrics{
		duration:  duration,
		ops:       ops,
		errors:    errs,
		cacheHit:  hit,
		cacheMiss: miss,
	}
}

// ObserveOperation records one store call.
func (m *StoreMetrics) ObserveOperation(op, table string, d time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op, table = normalizeLabel(op), normalizeLabel(table)
	m.duration.WithLabelValues(op, table).Observe(d.Seconds())
	m.ops.WithLabelValues(op, table).Inc()
	if err != nil {
		m.errors.WithLabelValues(op, table).Inc()
	}
}

func (m *StoreMetrics) CacheHit(table string) {
	if m == nil || m.cacheHit == nil {
		return
	}
	m.cacheHit.WithLabelValues(normalizeLabel(table)).Inc()
}

func (m *StoreMetrics) CacheMiss(table string) {
	if m == nil || m.cacheMiss == nil {
		return
	}
	m.cacheMiss.WithLabelValues(normalizeLabel(table)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
