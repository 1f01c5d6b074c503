// Package robot is the motion facade missions drive the robot through. Every
// primitive restores the motion settings it overrode before returning.
package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mission-runner/internal/hardware"
	"mission-runner/internal/scheduler"
	"mission-runner/internal/supervisor"
)

const defaultPoll = 10 * time.Millisecond

// Robot wraps a drivebase.
type Robot struct {
	drive hardware.DriveBase
	y     scheduler.Yielder
	poll  time.Duration
}

func New(drive hardware.DriveBase, y scheduler.Yielder) *Robot {
	return &Robot{drive: drive, y: y, poll: defaultPoll}
}

// Base exposes the wrapped drivebase for queries such as Distance.
func (r *Robot) Base() hardware.DriveBase { return r.drive }

type move struct {
	speed, accel *float64
	timeout      *time.Duration
}

// MoveOption overrides one parameter of a single motion primitive.
type MoveOption func(*move)

// WithSpeed overrides straight speed (mm/s) or, for turns and motors, the
// rate (deg/s).
func WithSpeed(v float64) MoveOption { return func(m *move) { m.speed = &v } }

// WithRate is WithSpeed spelled for turns.
func WithRate(v float64) MoveOption { return WithSpeed(v) }

// WithAccel overrides the acceleration of the primitive.
func WithAccel(v float64) MoveOption { return func(m *move) { m.accel = &v } }

// WithTimeout bounds the primitive. Without it the call waits for completion.
func WithTimeout(d time.Duration) MoveOption { return func(m *move) { m.timeout = &d } }

func collect(opts []MoveOption) move {
	var m move
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m move) overrides() bool { return m.speed != nil || m.accel != nil }

type kind int

const (
	straightMove kind = iota
	turnMove
)

func (m move) apply(s hardware.Settings, k kind) hardware.Settings {
	switch k {
	case turnMove:
		if m.speed != nil {
			s.TurnRate = *m.speed
		}
		if m.accel != nil {
			s.TurnAccel = *m.accel
		}
	default:
		if m.speed != nil {
			s.StraightSpeed = *m.speed
		}
		if m.accel != nil {
			s.StraightAccel = *m.accel
		}
	}
	return s
}

// Straight drives distance mm. completed is false only when a timeout was
// given and reached.
func (r *Robot) Straight(ctx context.Context, distance float64, opts ...MoveOption) (completed bool, err error) {
	return r.drivebaseMove(ctx, "straight", straightMove, func() error { return r.drive.Straight(distance) }, opts)
}

// Turn rotates in place by angle degrees.
func (r *Robot) Turn(ctx context.Context, angle float64, opts ...MoveOption) (completed bool, err error) {
	return r.drivebaseMove(ctx, "turn", turnMove, func() error { return r.drive.Turn(angle) }, opts)
}

// Curve drives along an arc of radius mm for angle degrees. Speed and
// acceleration overrides apply to the straight settings.
func (r *Robot) Curve(ctx context.Context, radius, angle float64, opts ...MoveOption) (completed bool, err error) {
	return r.drivebaseMove(ctx, "curve", straightMove, func() error { return r.drive.Curve(radius, angle) }, opts)
}

func (r *Robot) drivebaseMove(ctx context.Context, name string, k kind, start func() error, opts []MoveOption) (completed bool, err error) {
	m := collect(opts)
	if m.overrides() {
		prev, serr := r.drive.Settings()
		if serr != nil {
			return false, serr
		}
		if serr := r.drive.SetSettings(m.apply(prev, k)); serr != nil {
			return false, serr
		}
		defer func() {
			if rerr := r.drive.SetSettings(prev); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore settings after %s: %w", name, rerr))
			}
		}()
	}

	return r.execute(ctx, supervisor.Action{
		Name:   name,
		Start:  start,
		IsDone: r.drive.Done,
		Stop:   r.drive.Stop,
	}, m.timeout)
}

// RunMotor turns a single motor by angle degrees at speed deg/s, independent
// of the drivebase. WithAccel overrides the motor's acceleration limit.
func (r *Robot) RunMotor(ctx context.Context, motor hardware.Motor, speed, angle float64, opts ...MoveOption) (completed bool, err error) {
	m := collect(opts)
	if m.speed != nil {
		speed = *m.speed
	}
	if m.accel != nil {
		prev, lerr := motor.Limits()
		if lerr != nil {
			return false, lerr
		}
		if lerr := motor.SetLimits(hardware.MotorLimits{Accel: *m.accel}); lerr != nil {
			return false, lerr
		}
		defer func() {
			if rerr := motor.SetLimits(prev); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore %s limits: %w", motor.Name(), rerr))
			}
		}()
	}

	return r.execute(ctx, supervisor.Action{
		Name:   motor.Name(),
		Start:  func() error { return motor.RunAngle(speed, angle) },
		IsDone: motor.Done,
		Stop:   motor.Stop,
	}, m.timeout)
}

func (r *Robot) execute(ctx context.Context, a supervisor.Action, timeout *time.Duration) (bool, error) {
	if timeout != nil {
		outcome, err := supervisor.Supervise(ctx, r.y, a, *timeout, supervisor.WithPoll(r.poll))
		if err != nil {
			return false, err
		}
		return outcome == supervisor.Completed, nil
	}

	if err := a.Start(); err != nil {
		return false, err
	}
	if err := r.y.WaitUntil(ctx, a.IsDone, r.poll); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = a.Stop()
		}
		return false, err
	}
	return true, nil
}

// Stop halts the drivebase.
func (r *Robot) Stop() error { return r.drive.Stop() }

// Settings returns the current motion settings.
func (r *Robot) Settings() (hardware.Settings, error) { return r.drive.Settings() }

// SetSettings replaces the motion settings for the rest of the mission.
func (r *Robot) SetSettings(s hardware.Settings) error { return r.drive.SetSettings(s) }

// Distance is the distance driven since the last reset.
func (r *Robot) Distance() (float64, error) { return r.drive.Distance() }
