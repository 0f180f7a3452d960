package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder("clientcore", reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	svc := NewInMemoryService(WithMetricsRecorder(rec))
	mustCreate(t, svc, newClient("Dewald", idDewald, ""))
	_ = svc.RemoveClient(context.Background(), 5)
	rec.Observe(context.Background(), "", true, time.Second)

	if got := testutil.ToFloat64(rec.totals.WithLabelValues(opCreateClient, "success")); got != 1 {
		t.Fatalf("expected one successful create, got %v", got)
	}
	if got := testutil.ToFloat64(rec.totals.WithLabelValues(opDeleteClient, "error")); got != 1 {
		t.Fatalf("expected one failed delete, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations, "clientcore_operation_duration_seconds"); n != 2 {
		t.Fatalf("expected histograms for 2 operations, got %d", n)
	}

	if _, err := NewPrometheusMetricsRecorder("clientcore", reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestMultiMetricsRecorder(t *testing.T) {
	a, b := &captureMetricsRecorder{}, &captureMetricsRecorder{}
	multi := MultiMetricsRecorder{a, nil, b}
	multi.Observe(context.Background(), opFindClient, true, time.Millisecond)
	if !a.has(opFindClient, true) || !b.has(opFindClient, true) {
		t.Fatalf("expected both recorders to observe")
	}
}
