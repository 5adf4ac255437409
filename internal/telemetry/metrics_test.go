package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveAction("http", "success")
	m.ObserveAction("http", "success")
	m.ObserveAction("log", "failed")
	m.ObserveRetry("http")
	m.ObserveExecution("completed")
	m.ObserveDuration("http", 20*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/workflows/{id}", 404)

	if got := testutil.ToFloat64(m.actions.WithLabelValues("http", "success")); got != 2 {
		t.Errorf("expected 2 http successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.actions.WithLabelValues("log", "failed")); got != 1 {
		t.Errorf("expected 1 log failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.retries.WithLabelValues("http")); got != 1 {
		t.Errorf("expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(m.executions.WithLabelValues("completed")); got != 1 {
		t.Errorf("expected 1 completed execution, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/workflows/{id}", "404")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// Не должно паниковать
	m.ObserveAction("log", "success")
	m.ObserveRetry("log")
	m.ObserveExecution("failed")
	m.ObserveDuration("log", time.Second)
	m.ObserveRequest("GET", "/", 200)
}
