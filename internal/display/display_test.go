package display

import (
	"context"
	"strings"
	"testing"
	"time"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/hardware"
	"mission-runner/internal/metrics"
	"mission-runner/internal/mission"
	"mission-runner/internal/panel"
	"mission-runner/internal/robot"
)

func noop(context.Context, *robot.Shared, mission.Args) error { return nil }

func testRegistry(t *testing.T) *mission.Registry {
	t.Helper()
	reg, err := mission.NewRegistry(
		mission.Entry{ID: "run01", Label: "M08 M06 M05", DisplayNumber: 1, Run: noop},
		mission.Entry{ID: "run02", Label: "M14", DisplayNumber: 2, Run: noop, Params: mission.Args{"450", strings.Repeat("x", 60)}},
	)
	if err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	return reg
}

func TestFormatCatalog(t *testing.T) {
	out := FormatCatalog(testRegistry(t), 1)

	if !strings.Contains(out, "2 mission(s)") {
		t.Errorf("The catalog is missing its header.")
	}
	if !strings.Contains(out, "[1] run01") || !strings.Contains(out, "M08 M06 M05") {
		t.Errorf("The catalog is missing the first entry.")
	}
	if !strings.Contains(out, "> [2] run02") {
		t.Errorf("The selected entry is not marked:\n%s", out)
	}
	if !strings.Contains(out, "...") || strings.Contains(out, strings.Repeat("x", 60)) {
		t.Errorf("Long params should be truncated.")
	}
}

func TestFormatPanel(t *testing.T) {
	out := FormatPanel(panel.View{Glyph: '3', Light: hardware.Red})
	if !strings.Contains(out, "3") || !strings.Contains(out, "light: red") {
		t.Errorf("unexpected panel rendering:\n%s", out)
	}
	if out := FormatPanel(panel.View{}); !strings.Contains(out, "light: off") {
		t.Errorf("zero view should render an unlit panel:\n%s", out)
	}
}

func TestFormatStatus(t *testing.T) {
	reg := testRegistry(t)
	last := metrics.RunMetrics{MissionID: "run01", DurationMs: 1250, Outcome: metrics.Faulted}
	out := FormatStatus(dispatcher.Status{State: dispatcher.Idle, Index: 0, Selected: reg.At(0), Last: &last})

	for _, want := range []string{"IDLE", "run01", "last: run01 1250 ms faulted"} {
		if !strings.Contains(out, want) {
			t.Errorf("status %q is missing %q", out, want)
		}
	}
}

func TestFormatRunMetrics(t *testing.T) {
	testCases := []struct {
		name  string
		run   *metrics.RunMetrics
		wants []string
	}{
		{name: "Nil", run: nil, wants: []string{"No metrics available."}},
		{
			name:  "Completed",
			run:   &metrics.RunMetrics{MissionID: "run03", Label: "M01", DurationMs: 900, Outcome: metrics.Completed, LogPath: "logs/run03.log"},
			wants: []string{"run03 (M01): 900 ms  [completed]", "log:   logs/run03.log"},
		},
		{
			name:  "Faulted with reset error",
			run:   &metrics.RunMetrics{MissionID: "run05", Outcome: metrics.Faulted, Err: "drive straight: stalled", ResetErr: "imu reset_heading: gone"},
			wants: []string{"[faulted]", "error: drive straight: stalled", "reset: imu reset_heading: gone"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := FormatRunMetrics(tc.run)
			for _, want := range tc.wants {
				if !strings.Contains(out, want) {
					t.Errorf("output %q is missing %q", out, want)
				}
			}
		})
	}
}

func TestFormatHistoryAndSummary(t *testing.T) {
	if out := FormatHistory(nil); !strings.Contains(out, "no runs recorded") {
		t.Errorf("empty history rendered as %q", out)
	}

	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []metrics.RunMetrics{
		{MissionID: "run02", Label: "M14", Start: start, DurationMs: 4100, Outcome: metrics.Completed},
		{MissionID: "run02", Label: "M14", Start: start.Add(-time.Minute), DurationMs: 3900, Outcome: metrics.Completed},
		{MissionID: "run01", Label: "M08", Start: start.Add(-2 * time.Minute), DurationMs: 700, Outcome: metrics.Faulted, Err: "boom"},
	}
	out := FormatHistory(runs)
	if !strings.Contains(out, "2026-03-14 09:30:00 run02") || !strings.Contains(out, "boom") {
		t.Errorf("unexpected history table:\n%s", out)
	}

	sum := FormatSummary(metrics.Summarize(runs))
	if !strings.Contains(sum, "3 run(s): 2 completed, 1 faulted") || !strings.Contains(sum, "best run02") || !strings.Contains(sum, "3900 ms") {
		t.Errorf("unexpected summary:\n%s", sum)
	}
	if strings.Contains(sum, "best run01") {
		t.Errorf("a faulted run should not count as a best time")
	}
}
