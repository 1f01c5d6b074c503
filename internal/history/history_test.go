package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mission-runner/internal/metrics"
)

func TestRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	runs := []metrics.RunMetrics{
		{RunID: "a", MissionID: "run01", Start: base, Outcome: metrics.Completed, LogPath: "logs/run01.log"},
		{RunID: "b", MissionID: "run02", Start: base.Add(time.Minute), Outcome: metrics.Faulted, Err: "jammed"},
		{RunID: "c", MissionID: "run01", Start: base.Add(2 * time.Minute), Outcome: metrics.Completed},
	}
	for _, r := range runs {
		r.Finalize(r.Start.Add(1500 * time.Millisecond))
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.RunID, err)
		}
	}

	all, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "c" || all[2].RunID != "a" {
		t.Fatalf("recent order = %+v", all)
	}
	if all[1].Outcome != metrics.Faulted || all[1].Err != "jammed" {
		t.Errorf("faulted run = %+v", all[1])
	}
	if all[2].DurationMs != 1500 || !all[2].Start.Equal(base) {
		t.Errorf("round trip = %+v", all[2])
	}

	only, err := store.Recent(ctx, "run01", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].RunID != "c" {
		t.Errorf("filtered = %+v", only)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r := metrics.RunMetrics{RunID: "x", MissionID: "run04", Start: time.Now(), Outcome: metrics.Cancelled}
	r.Finalize(r.Start)
	if err := store.Record(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	got, err := store.Recent(context.Background(), "", 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("after reopen: %v %v", got, err)
	}
}
