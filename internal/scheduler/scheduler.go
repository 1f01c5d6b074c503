// Package scheduler runs a fixed set of cooperative tasks. Tasks are backed by
// goroutines but share a single baton, so exactly one of them executes at any
// instant; a task gives the baton up only inside Wait or WaitUntil.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mission-runner/internal/logger"
)

// Yielder is the suspension surface handed to tasks and everything they call.
type Yielder interface {
	// Wait suspends the caller for d, letting other tasks run.
	Wait(ctx context.Context, d time.Duration) error
	// WaitUntil polls cond every poll interval until it reports true.
	WaitUntil(ctx context.Context, cond func() (bool, error), poll time.Duration) error
	Now() time.Time
}

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context, h *Handle) error

type task struct {
	name string
	fn   TaskFunc
}

// ErrStarted is returned when registering after Run was called.
var ErrStarted = errors.New("scheduler already started")

type Scheduler struct {
	clock   Clock
	baton   chan struct{}
	tasks   []task
	started atomic.Bool
}

// New returns a scheduler driven by clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock: clock,
		baton: make(chan struct{}, 1),
	}
}

func (s *Scheduler) Clock() Clock { return s.clock }

// Register adds a task. Tasks first run in registration order.
func (s *Scheduler) Register(name string, fn TaskFunc) error {
	if s.started.Load() {
		return ErrStarted
	}
	s.tasks = append(s.tasks, task{name: name, fn: fn})
	return nil
}

// Run starts every registered task and blocks until all of them return. The
// first task error cancels the others through ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	g, gctx := errgroup.WithContext(ctx)
	prev := closedChan()
	for _, t := range s.tasks {
		t := t
		h := &Handle{s: s, name: t.name}
		after := prev
		started := make(chan struct{})
		prev = started

		g.Go(func() (rerr error) {
			defer func() {
				if rec := recover(); rec != nil {
					rerr = fmt.Errorf("panic in task %s: %v", t.name, rec)
				}
				h.release()
			}()

			select {
			case <-after:
			case <-gctx.Done():
				close(started)
				return nil
			}
			err := h.acquire(gctx)
			close(started)
			if err != nil {
				return nil
			}

			logger.Log.Printf("[Scheduler] task %s started", t.name)
			err = t.fn(gctx, h)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Printf("[Scheduler] task %s failed: %v", t.name, err)
				return fmt.Errorf("task %s: %w", t.name, err)
			}
			logger.Log.Printf("[Scheduler] task %s finished", t.name)
			return nil
		})
	}
	return g.Wait()
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Handle is a task's view of the scheduler. A Handle must only be used from
// the goroutine of the task it was given to.
type Handle struct {
	s     *Scheduler
	clock Clock
	name  string
	held  bool
}

// Detached returns a handle that is not part of any scheduler. Its waits
// simply sleep on clock.
func Detached(clock Clock) *Handle {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Handle{clock: clock, name: "detached"}
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) timeSource() Clock {
	if h.s != nil {
		return h.s.clock
	}
	return h.clock
}

func (h *Handle) Now() time.Time { return h.timeSource().Now() }

func (h *Handle) acquire(ctx context.Context) error {
	if h.s == nil || h.held {
		return nil
	}
	select {
	case h.s.baton <- struct{}{}:
		h.held = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) release() {
	if h.s == nil || !h.held {
		return
	}
	h.held = false
	<-h.s.baton
}

func (h *Handle) Wait(ctx context.Context, d time.Duration) error {
	h.release()
	err := h.timeSource().Sleep(ctx, d)
	if aerr := h.acquire(ctx); aerr != nil {
		return aerr
	}
	return err
}

func (h *Handle) WaitUntil(ctx context.Context, cond func() (bool, error), poll time.Duration) error {
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := h.Wait(ctx, poll); err != nil {
			return err
		}
	}
}

// Flag is a cancellation flag observed by long-running loops at their yield
// points. Setting it never interrupts anything by itself.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set()        { f.v.Store(true) }
func (f *Flag) Clear()      { f.v.Store(false) }
func (f *Flag) IsSet() bool { return f.v.Load() }
