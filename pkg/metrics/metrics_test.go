package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveBatch(250 * time.Millisecond)
	m.IncPublished("order_created")
	m.IncFailed("order_created")
	m.SetPending(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", map[string]string{"event_type": "order_created"}); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", map[string]string{"event_type": "order_created"}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected batch duration to be recorded")
	}
	pending := findMetricFamily(mfs, "outbox_events_pending")
	if pending == nil || pending.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Fatalf("expected pending gauge of 7")
	}
}

func TestPolicyMetricsLabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPolicyMetrics(reg)
	m.ObserveDecision("orders", "select", false)
	m.ObserveDecision("orders", "select", false)
	m.ObserveDecision("orders", "select", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	denied, err := fetchCounterValue(mfs, "policy_decisions_total", map[string]string{"table": "orders", "operation": "select", "outcome": "denied"})
	if err != nil {
		t.Fatalf("fetch denied: %v", err)
	}
	if denied != 2 {
		t.Fatalf("expected denied=2, got %f", denied)
	}
}

func TestHTTPMetricsCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/products/{productId}", 200, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"route": "/api/v1/products/{productId}", "status": "200"})
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewOutboxMetrics(nil).IncPublished("x")
	NewPolicyMetrics(nil).ObserveDecision("t", "o", true)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	var m *PolicyMetrics
	m.ObserveDecision("t", "o", true)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != v {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
