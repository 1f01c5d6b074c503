// Package supervisor bounds a non-blocking hardware action with a deadline.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mission-runner/internal/logger"
	"mission-runner/internal/scheduler"
)

const DefaultPoll = 10 * time.Millisecond

// Action is the start/poll/stop triple of a hardware operation. IsDone must
// not have side effects and Stop must be safe to call more than once.
type Action struct {
	Name   string
	Start  func() error
	IsDone func() (bool, error)
	Stop   func() error
}

type options struct {
	poll time.Duration
}

type Option func(*options)

// WithPoll sets the interval between completion checks.
func WithPoll(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// Supervise starts a and waits for it through y until it reports done or the
// timeout elapses. Reaching the timeout is not an error: a is stopped once
// and TimedOut is returned. Errors from the action itself are returned as is.
func Supervise(ctx context.Context, y scheduler.Yielder, a Action, timeout time.Duration, opts ...Option) (Outcome, error) {
	o := options{poll: DefaultPoll}
	for _, opt := range opts {
		opt(&o)
	}
	if a.Start == nil || a.IsDone == nil || a.Stop == nil {
		return TimedOut, errors.New("supervisor: action needs start, isDone and stop")
	}

	if err := a.Start(); err != nil {
		return TimedOut, fmt.Errorf("start %s: %w", a.Name, err)
	}
	started := y.Now()

	for y.Now().Sub(started) < timeout {
		done, err := a.IsDone()
		if err != nil {
			return TimedOut, fmt.Errorf("poll %s: %w", a.Name, err)
		}
		if done {
			return Completed, nil
		}
		if err := y.Wait(ctx, o.poll); err != nil {
			if serr := a.Stop(); serr != nil {
				return TimedOut, errors.Join(err, fmt.Errorf("stop %s: %w", a.Name, serr))
			}
			return TimedOut, err
		}
	}

	logger.Log.Printf("[Supervisor] %s timed out after %v", a.Name, timeout)
	if err := a.Stop(); err != nil {
		return TimedOut, fmt.Errorf("stop %s: %w", a.Name, err)
	}
	return TimedOut, nil
}
