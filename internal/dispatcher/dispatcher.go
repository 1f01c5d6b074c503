// Package dispatcher is the mission selection and execution state machine.
//
// The operator walks the menu with the hub buttons and starts the selected
// mission by pressing the force sensor. Every run is bracketed by a full
// robot reset and captured in its own run log; a mission that fails is
// reported and the menu comes back.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mission-runner/internal/hardware"
	"mission-runner/internal/logger"
	"mission-runner/internal/metrics"
	"mission-runner/internal/mission"
	"mission-runner/internal/robot"
	"mission-runner/internal/runlog"
	"mission-runner/internal/scheduler"
)

// State of the dispatcher.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "RUNNING"
	}
	return "IDLE"
}

// ErrReset marks a failure of the robot reset around a run. It is reported
// but never stops the dispatcher.
var ErrReset = errors.New("robot reset failed")

// Config holds the dispatcher timings.
type Config struct {
	Threshold float64       // fraction of the force sensor range that triggers a run
	Debounce  time.Duration // selection flash and input lockout
	Settle    time.Duration // pause after every reset
	Alert     time.Duration // how long the alert light stays on after a fault
	Loop      time.Duration // delay between input polls
	LogDir    string
}

func DefaultConfig() Config {
	return Config{
		Threshold: 0.5,
		Debounce:  100 * time.Millisecond,
		Settle:    50 * time.Millisecond,
		Alert:     500 * time.Millisecond,
		Loop:      50 * time.Millisecond,
		LogDir:    "logs",
	}
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run metrics.RunMetrics) error
}

// Status is a snapshot handed to observers after every transition.
type Status struct {
	State    State
	Index    int
	Selected mission.Entry
	Last     *metrics.RunMetrics
}

type Option func(*Dispatcher)

// WithRecorder stores every finished run.
func WithRecorder(r Recorder) Option { return func(d *Dispatcher) { d.recorder = r } }

// WithRunStart registers a hook called as a run begins, e.g. to restart the
// telemetry clock.
func WithRunStart(fn func()) Option { return func(d *Dispatcher) { d.runStart = fn } }

// WithObserver is notified of every state or selection change.
func WithObserver(fn func(Status)) Option { return func(d *Dispatcher) { d.observe = fn } }

type Dispatcher struct {
	reg *mission.Registry
	sc  *robot.Shared
	tee *runlog.Tee
	cfg Config

	state State
	index int
	last  *metrics.RunMetrics

	recorder Recorder
	runStart func()
	observe  func(Status)
}

// New returns a dispatcher in Idle(0). tee must be the writer behind sc.Out.
func New(reg *mission.Registry, sc *robot.Shared, tee *runlog.Tee, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg, sc: sc, tee: tee, cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) State() State { return d.state }

func (d *Dispatcher) Index() int { return d.index }

func (d *Dispatcher) Selected() mission.Entry { return d.reg.At(d.index) }

// Status returns the current snapshot.
func (d *Dispatcher) Status() Status {
	return Status{State: d.state, Index: d.index, Selected: d.Selected(), Last: d.last}
}

func (d *Dispatcher) notify() {
	if d.observe != nil {
		d.observe(d.Status())
	}
}

// Select jumps straight to index i. Used by the CLI to preselect a mission.
func (d *Dispatcher) Select(i int) error {
	if i < 0 || i >= d.reg.Len() {
		return fmt.Errorf("selection %d out of range [0, %d)", i, d.reg.Len())
	}
	d.index = i
	d.notify()
	return d.show()
}

func (d *Dispatcher) show() error {
	return d.sc.Panel.Char(d.Selected().Glyph())
}

// Next moves the selection forward with wraparound.
func (d *Dispatcher) Next(ctx context.Context) error {
	return d.move(ctx, 1, hardware.Green, "→")
}

// Prev moves the selection backward with wraparound.
func (d *Dispatcher) Prev(ctx context.Context) error {
	return d.move(ctx, -1, hardware.Blue, "←")
}

func (d *Dispatcher) move(ctx context.Context, delta int, c hardware.Color, arrow string) error {
	n := d.reg.Len()
	d.index = ((d.index+delta)%n + n) % n
	d.notify()

	if err := d.show(); err != nil {
		return err
	}
	if err := d.sc.Panel.On(c); err != nil {
		return err
	}
	if err := d.sc.Wait(ctx, d.cfg.Debounce); err != nil {
		return err
	}
	if err := d.sc.Panel.Off(); err != nil {
		return err
	}
	e := d.Selected()
	d.sc.Printf("%s mission %d: %s", arrow, e.DisplayNumber, e.Label)
	return nil
}

// Triggered reports whether force reaches the activation threshold.
func (d *Dispatcher) Triggered(force float64) bool {
	return force >= d.cfg.Threshold*d.sc.Panel.Range()
}

// Step runs one iteration of the menu loop: show the selection, handle at
// most one button, then check the trigger. It does not include the loop
// delay.
func (d *Dispatcher) Step(ctx context.Context) error {
	if err := d.show(); err != nil {
		return err
	}

	pressed, err := d.sc.Panel.Pressed()
	if err != nil {
		return err
	}
	switch {
	case pressed[hardware.Right]:
		err = d.Next(ctx)
	case pressed[hardware.Left]:
		err = d.Prev(ctx)
	}
	if err != nil {
		return err
	}

	force, err := d.sc.Panel.Force()
	if err != nil {
		return err
	}
	if d.Triggered(force) {
		_, err := d.RunSelected(ctx)
		return err
	}
	return nil
}

// Task is the scheduler body of the dispatcher. It binds the shared context
// to its own handle, so missions yield through the dispatcher.
func (d *Dispatcher) Task(ctx context.Context, h *scheduler.Handle) error {
	d.sc.Bind(h)
	d.notify()
	for {
		if err := d.Step(ctx); err != nil {
			return err
		}
		if err := h.Wait(ctx, d.cfg.Loop); err != nil {
			return err
		}
	}
}

// RunSelected executes the selected mission from start to cleanup and
// returns to Idle with the selection unchanged. Mission faults are absorbed
// and reported in the returned metrics; the error is non-nil only when ctx
// ends or the panel itself fails.
func (d *Dispatcher) RunSelected(ctx context.Context) (metrics.RunMetrics, error) {
	e := d.Selected()
	run := metrics.RunMetrics{
		RunID:     uuid.NewString(),
		MissionID: e.ID,
		Label:     e.Label,
		Start:     d.sc.Yield.Now(),
	}

	d.state = Running
	d.notify()
	defer func() {
		d.state = Idle
		d.last = &run
		d.notify()
	}()

	if err := d.sc.Panel.On(hardware.Red); err != nil {
		return run, err
	}
	d.sc.Printf("=== mission %d (%s) running ===", e.DisplayNumber, e.Label)

	rl, lerr := runlog.Open(d.tee, d.cfg.LogDir, e.ID, run.Start)
	if lerr != nil {
		logger.Log.Printf("[Dispatcher] run log unavailable: %v", lerr)
	} else {
		run.LogPath = rl.Path
		d.sc.Printf("[LOG] mirroring output to %s", rl.Path)
	}
	if d.runStart != nil {
		d.runStart()
	}

	var resetErrs []error
	resetErr, runErr := d.prepare(ctx)
	if resetErr != nil {
		resetErrs = append(resetErrs, resetErr)
		d.reportReset(resetErr)
	}
	if runErr == nil {
		runErr = d.invoke(ctx, e)
	}

	switch {
	case runErr == nil:
		run.Outcome = metrics.Completed
		d.sc.Printf("=== mission %d complete ===", e.DisplayNumber)
	case ctx.Err() != nil:
		run.Outcome = metrics.Cancelled
		run.Err = runErr.Error()
	default:
		run.Outcome = metrics.Faulted
		run.Err = runErr.Error()
		d.alert(ctx, runErr)
	}

	if err := d.cleanup(ctx); err != nil {
		resetErrs = append(resetErrs, err)
		d.reportReset(err)
	}
	if err := errors.Join(resetErrs...); err != nil {
		run.ResetErr = err.Error()
	}
	run.Finalize(d.sc.Yield.Now())

	if rl != nil {
		if err := rl.Close(); err != nil {
			logger.Log.Printf("[Dispatcher] close run log: %v", err)
		}
	}
	if err := d.sc.Panel.Off(); err != nil {
		logger.Log.Printf("[Dispatcher] light off: %v", err)
	}
	d.record(run)
	d.discardInput()
	d.sc.Printf("back to menu")

	if ctx.Err() != nil {
		return run, ctx.Err()
	}
	return run, nil
}

// prepare resets the robot before a run. A failed reset is returned
// separately and does not stop the mission from starting.
func (d *Dispatcher) prepare(ctx context.Context) (resetErr, err error) {
	if rerr := d.sc.Reset(); rerr != nil {
		resetErr = fmt.Errorf("%w: %w", ErrReset, rerr)
	}
	return resetErr, d.sc.Wait(ctx, d.cfg.Settle)
}

func (d *Dispatcher) reportReset(err error) {
	d.sc.Printf("[ERROR] %v", err)
	logger.Log.Printf("[Dispatcher] %v", err)
}

// discardInput drops button edges and force pulses latched while Running.
// Selection and trigger only act on input given in Idle.
func (d *Dispatcher) discardInput() {
	if _, err := d.sc.Panel.Pressed(); err != nil {
		logger.Log.Printf("[Dispatcher] discard buttons: %v", err)
	}
	if _, err := d.sc.Panel.Force(); err != nil {
		logger.Log.Printf("[Dispatcher] discard force: %v", err)
	}
}

// invoke runs the entry point and turns a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, e mission.Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mission %s panicked: %v", e.ID, r)
		}
	}()
	return e.Run(ctx, d.sc, e.Params)
}

func (d *Dispatcher) alert(ctx context.Context, err error) {
	d.sc.Printf("[ERROR] %v", err)
	logger.Log.Printf("[Dispatcher] mission %s failed: %v", d.Selected().ID, err)

	_ = d.sc.Panel.On(hardware.Red)
	_ = d.sc.Wait(ctx, d.cfg.Alert)
	_ = d.sc.Panel.Off()
}

// cleanup resets the robot after every run. Only ErrReset is returned.
func (d *Dispatcher) cleanup(ctx context.Context) error {
	err := d.sc.Reset()
	if ctx.Err() == nil {
		_ = d.sc.Wait(ctx, d.cfg.Settle)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReset, err)
	}
	return nil
}

func (d *Dispatcher) record(run metrics.RunMetrics) {
	if d.recorder == nil {
		return
	}
	// the run is over; persist it even when shutting down
	if err := d.recorder.Record(context.Background(), run); err != nil {
		logger.Log.Printf("[Dispatcher] record run %s: %v", run.RunID, err)
	}
}
