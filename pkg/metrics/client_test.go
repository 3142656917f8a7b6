package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestClientMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewClientMetrics(reg)

	metrics.CatalogResult("hit")
	metrics.CatalogResult("hit")
	metrics.CatalogResult("miss")
	metrics.CartSync("skipped_not_ready")
	metrics.ObserveRequest("GET /api/products", 200, 120*time.Millisecond)
	metrics.ObserveRequest("GET /api/profile", 0, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_catalog_cache_total", "result", "hit"); err != nil {
		t.Fatalf("fetch hit: %v", err)
	} else if got != 2 {
		t.Fatalf("expected hit=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "storefront_cart_sync_total", "outcome", "skipped_not_ready"); err != nil {
		t.Fatalf("fetch sync: %v", err)
	} else if got != 1 {
		t.Fatalf("expected skipped_not_ready=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "storefront_api_request_duration_seconds", "status", "2xx"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if _, err := fetchHistogramSum(mfs, "storefront_api_request_duration_seconds", "status", "transport_error"); err != nil {
		t.Fatalf("expected transport_error series: %v", err)
	}
}

func TestNilClientMetricsIsSafe(t *testing.T) {
	var metrics *ClientMetrics
	metrics.CatalogResult("hit")
	metrics.CartSync("success")
	metrics.ObserveRequest("x", 500, time.Second)

	unregistered := NewClientMetrics(nil)
	unregistered.CatalogResult("miss")
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

func TestJobMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobs := NewJobMetrics(reg)

	jobs.IncSuccess("catalog_warm")
	jobs.IncFailure("")
	jobs.ObserveDuration("catalog_warm", 50*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_job_success_total", "job", "catalog_warm"); err != nil || got != 1 {
		t.Fatalf("expected catalog_warm success=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_job_failure_total", "job", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown failure=1, got %f (%v)", got, err)
	}

	var nilJobs *JobMetrics
	nilJobs.IncSuccess("noop")
}
