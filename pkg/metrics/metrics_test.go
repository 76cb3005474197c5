package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	m.ObserveOperation("read", "NewOrders", 250*time.Millisecond, nil)
	m.ObserveOperation("append", "NewOrders", 10*time.Millisecond, errors.New("disk full"))
	m.CacheHit("NewOrders")
	m.CacheMiss("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sheet_operations_total", "op", "read"); err != nil {
		t.Fatalf("fetch ops: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ops=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "sheet_operation_errors_total", "op", "append"); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "sheet_operation_errors_total", "op", "read"); err == nil {
		t.Fatalf("successful reads must not count as errors")
	}
	if got, err := fetchHistogramSum(mfs, "sheet_operation_duration_seconds", "op", "read"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.25 {
		t.Fatalf("expected duration sum >= 0.25, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "sheet_cache_hits_total", "table", "NewOrders"); err != nil || got != 1 {
		t.Fatalf("expected one cache hit, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "sheet_cache_misses_total", "table", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected blank table label to normalize, got %f (%v)", got, err)
	}
}

func TestHTTPMetricsLabelsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/api/v1/orders/{orderId}", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "404"); err != nil || got != 1 {
		t.Fatalf("expected one 404, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewStoreMetrics(nil).ObserveOperation("read", "t", time.Second, nil)
	NewHTTPMetrics(nil).ObserveRequest("GET", "/", 200, time.Second)
	var m *StoreMetrics
	m.CacheHit("t")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
