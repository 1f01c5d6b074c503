package telemetry

import (
	"context"
	"time"

	"mission-runner/internal/logger"
	"mission-runner/internal/robot"
	"mission-runner/internal/scheduler"
)

// DefaultPeriod is the sampling interval.
const DefaultPeriod = 200 * time.Millisecond

// Publisher receives every sample, e.g. a Hub streaming to browsers.
type Publisher interface {
	Publish(Sample)
}

// Task periodically prints samples until Stop is set.
type Task struct {
	Shared *robot.Shared
	Stop   *scheduler.Flag
	Format Format
	Period time.Duration
	Sink   Publisher

	watch *scheduler.Stopwatch
}

// Restart zeroes the elapsed-time column, typically when a mission starts.
func (t *Task) Restart() {
	if t.watch != nil {
		t.watch.Reset()
	}
}

// Run is the scheduler task body. The stop flag is observed only at yields,
// so the loop ends after the current sample has been printed.
func (t *Task) Run(ctx context.Context, h *scheduler.Handle) error {
	format := t.Format
	if format == nil {
		format = LogFormat{}
	}
	period := t.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	if t.watch == nil {
		t.watch = scheduler.NewStopwatch(clockOf(h))
	}

	t.Shared.Printf("--- telemetry started ---")
	if hdr := format.Header(); hdr != "" {
		t.Shared.Printf("%s", hdr)
	}

	for t.Stop == nil || !t.Stop.IsSet() {
		s, err := Read(t.Shared, t.watch.Elapsed())
		if err != nil {
			logger.Log.Printf("[Telemetry] partial sample: %v", err)
		}
		t.Shared.Printf("%s", format.Line(s))
		if t.Sink != nil {
			t.Sink.Publish(s)
		}
		if err := h.Wait(ctx, period); err != nil {
			return err
		}
	}

	t.Shared.Printf("--- telemetry stopped ---")
	return nil
}

// clockOf adapts a yielder to the Clock a stopwatch needs. Only Now is used.
func clockOf(y scheduler.Yielder) scheduler.Clock { return yielderClock{y} }

type yielderClock struct{ y scheduler.Yielder }

func (c yielderClock) Now() time.Time { return c.y.Now() }

func (c yielderClock) Sleep(ctx context.Context, d time.Duration) error { return c.y.Wait(ctx, d) }
