package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/api/overview", "200", 25*time.Millisecond)
	m.ObserveRequest("GET", "/api/overview", "200", 30*time.Millisecond)
	m.ObserveRequest("GET", "/api/rfm", "200", 10*time.Millisecond)

	families := gather(t, reg)

	requests, ok := families["http_requests_total"]
	if !ok {
		t.Fatal("http_requests_total not registered")
	}
	total := 0.0
	for _, metric := range requests.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 3 {
		t.Errorf("expected 3 observed requests, got %f", total)
	}

	duration, ok := families["http_request_duration_seconds"]
	if !ok {
		t.Fatal("http_request_duration_seconds not registered")
	}
	if len(duration.GetMetric()) != 2 {
		t.Errorf("expected 2 method/path series, got %d", len(duration.GetMetric()))
	}
}

func TestSetDataset(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.SetDataset(112650, 3)

	families := gather(t, reg)

	rows := families["dataset_rows"]
	if rows == nil || rows.GetMetric()[0].GetGauge().GetValue() != 112650 {
		t.Errorf("dataset_rows gauge not set: %v", rows)
	}

	version := families["dataset_snapshot_version"]
	if version == nil || version.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Errorf("dataset_snapshot_version gauge not set: %v", version)
	}
}

func TestNilSafety(t *testing.T) {
	// A nil registerer and a nil receiver both degrade to no-ops.
	m := NewHTTPMetrics(nil)
	m.ObserveRequest("GET", "/", "200", time.Millisecond)
	m.SetDataset(10, 1)

	var unset *HTTPMetrics
	unset.ObserveRequest("GET", "/", "200", time.Millisecond)
	unset.SetDataset(10, 1)
}
