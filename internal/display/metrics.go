package display

import (
	"fmt"
	"sort"
	"strings"

	"mission-runner/internal/metrics"
)

func FormatRunMetrics(r *metrics.RunMetrics) string {
	if r == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Run metrics:\n")
	sb.WriteString(fmt.Sprintf("- %s (%s): %d ms  [%s]\n", r.MissionID, r.Label, r.DurationMs, r.Outcome))
	if r.Err != "" {
		sb.WriteString(fmt.Sprintf("  error: %s\n", r.Err))
	}
	if r.ResetErr != "" {
		sb.WriteString(fmt.Sprintf("  reset: %s\n", r.ResetErr))
	}
	if r.LogPath != "" {
		sb.WriteString(fmt.Sprintf("  log:   %s\n", r.LogPath))
	}
	return sb.String()
}

func formatRunShort(r metrics.RunMetrics) string {
	return fmt.Sprintf("%s %d ms %s", r.MissionID, r.DurationMs, r.Outcome)
}

// FormatHistory renders runs as a table, newest first as given.
func FormatHistory(runs []metrics.RunMetrics) string {
	if len(runs) == 0 {
		return mutedStyle.Render("(no runs recorded)") + "\n"
	}
	var sb strings.Builder
	header := fmt.Sprintf("%-19s %-8s %-22s %8s  %-9s %s", "STARTED", "MISSION", "LABEL", "MS", "OUTCOME", "ERROR")
	sb.WriteString(headerStyle.Render(header) + "\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", len(header))) + "\n")
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-19s %-8s %-22s %8d  %-9s %s\n",
			r.Start.Format("2006-01-02 15:04:05"), r.MissionID, truncate(r.Label, 22), r.DurationMs, r.Outcome, r.Err))
	}
	return sb.String()
}

func FormatSummary(s metrics.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d run(s): %d completed, %d faulted, %d ms total\n", s.Runs, s.Completed, s.Faulted, s.TotalMs))
	ids := make([]string, 0, len(s.Best))
	for id := range s.Best {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("  best %-8s %6d ms\n", id, s.Best[id]))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
