package metrics

import "time"

// Outcome of one mission run.
type Outcome string

const (
	Completed Outcome = "completed"
	Faulted   Outcome = "faulted"
	Cancelled Outcome = "cancelled"
)

type RunMetrics struct {
	RunID      string    `json:"run_id"`
	MissionID  string    `json:"mission_id"`
	Label      string    `json:"label"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    Outcome   `json:"outcome"`
	Err        string    `json:"err,omitempty"`
	ResetErr   string    `json:"reset_err,omitempty"`
	LogPath    string    `json:"log_path,omitempty"`
}

// Finalize stamps the end time and derives the duration.
func (r *RunMetrics) Finalize(end time.Time) {
	r.End = end
	r.DurationMs = r.End.Sub(r.Start).Milliseconds()
}

func (r *RunMetrics) Succeeded() bool { return r.Outcome == Completed }

// Summary aggregates a set of runs, e.g. a practice session.
type Summary struct {
	Runs      int
	Completed int
	Faulted   int
	TotalMs   int64
	Best      map[string]int64 // fastest completed run per mission
}

func Summarize(runs []RunMetrics) Summary {
	s := Summary{Best: map[string]int64{}}
	for _, r := range runs {
		s.Runs++
		s.TotalMs += r.DurationMs
		switch r.Outcome {
		case Completed:
			s.Completed++
			if best, ok := s.Best[r.MissionID]; !ok || r.DurationMs < best {
				s.Best[r.MissionID] = r.DurationMs
			}
		case Faulted:
			s.Faulted++
		}
	}
	return s
}
