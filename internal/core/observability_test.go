package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "refresh_scores", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "refresh_scores", true, 30*time.Millisecond)
	rec.Observe(context.Background(), "refresh_scores", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["refresh_scores"]; got != 55 {
		t.Fatalf("expected 55ms total, got %v", got)
	}
	if snap.Results["refresh_scores"]["success"] != 2 {
		t.Fatalf("expected two successes, got %+v", snap.Results)
	}
	if snap.Results["refresh_scores"]["error"] != 1 {
		t.Fatalf("expected one error, got %+v", snap.Results)
	}
	if !strings.HasPrefix(rec.Name(), "sowline_service_metrics_") {
		t.Fatalf("unexpected generated name %s", rec.Name())
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "apply_dataset")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "rankings")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two spans, got %d", len(entries))
	}
	if entries[0].Operation != "apply_dataset" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected second span %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"rankings"`) {
		t.Fatalf("span not serialized: %s", buf.String())
	}
}

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("construct recorder: %v", err)
	}
	rec.Observe(context.Background(), "create_sow", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "create_sow", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_sow", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_sow", "error")); got != 1 {
		t.Fatalf("expected one error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
