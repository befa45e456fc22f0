package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "toggle_cohort", true, 20*time.Millisecond)
	rec.Observe(ctx, "toggle_cohort", true, 30*time.Millisecond)
	rec.Observe(ctx, "toggle_cohort", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["toggle_cohort"]; got != 55 {
		t.Fatalf("durations = %v, want 55", got)
	}
	if got := snap.Results["toggle_cohort"]["success"]; got != 2 {
		t.Fatalf("successes = %d, want 2", got)
	}
	if got := snap.Results["toggle_cohort"]["error"]; got != 1 {
		t.Fatalf("errors = %d, want 1", got)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("empty operation name was recorded: %v", snap.Results)
	}
}

func TestExpvarRecorderGeneratedNamesAreUnique(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == b.Name() {
		t.Fatalf("generated names collide: %s", a.Name())
	}
}

func TestEngineObservesOperations(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	rec := NewExpvarMetricsRecorder("")

	eng, err := New("proj-1", fx.adapter, WithMetrics(rec))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := eng.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := eng.ToggleCohort(ctx, 0, fx.cohorts[0]); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	snap := rec.Snapshot()
	if snap.Results["load_all"]["success"] != 1 {
		t.Fatalf("load_all not observed: %v", snap.Results)
	}
	if snap.Results["toggle_cohort"]["success"] != 1 {
		t.Fatalf("toggle_cohort not observed: %v", snap.Results)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "save_winners", true, 10*time.Millisecond)
	rec.Observe(ctx, "save_winners", false, 10*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]int{}
	for _, fam := range families {
		byName[fam.GetName()] = len(fam.GetMetric())
	}
	if byName["placementcore_engine_operation_results_total"] != 2 {
		t.Fatalf("result series = %d, want 2 (success and error)", byName["placementcore_engine_operation_results_total"])
	}
	if byName["placementcore_engine_operation_duration_seconds"] != 2 {
		t.Fatalf("duration series = %d, want 2", byName["placementcore_engine_operation_duration_seconds"])
	}
}

func TestPrometheusRecorderDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}
