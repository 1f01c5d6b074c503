package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mission-runner/internal/hardware"
	"mission-runner/internal/profile"
	"mission-runner/internal/scheduler"
)

// Shared is the set of hardware handles every task and mission receives. It
// does not own any of them.
type Shared struct {
	Drive *Robot
	IMU   hardware.IMU

	LeftWheel  hardware.Motor
	RightWheel hardware.Motor
	LeftLift   hardware.Motor
	RightLift  hardware.Motor

	Panel   hardware.Panel
	Yield   scheduler.Yielder
	Out     io.Writer
	Profile profile.Profile
}

// NewShared wires a rig to a yielder.
func NewShared(rig hardware.Rig, panel hardware.Panel, y scheduler.Yielder, out io.Writer, p profile.Profile) *Shared {
	if out == nil {
		out = io.Discard
	}
	return &Shared{
		Drive:      New(rig.Drive, y),
		IMU:        rig.IMU,
		LeftWheel:  rig.LeftWheel,
		RightWheel: rig.RightWheel,
		LeftLift:   rig.LeftLift,
		RightLift:  rig.RightLift,
		Panel:      panel,
		Yield:      y,
		Out:        out,
		Profile:    p,
	}
}

// Bind makes y the yielder used by missions and the drive facade. The task
// that owns motion calls it with its own handle before running missions.
func (s *Shared) Bind(y scheduler.Yielder) {
	s.Yield = y
	s.Drive.y = y
}

// Motors returns every motor in a fixed order.
func (s *Shared) Motors() []hardware.Motor {
	return []hardware.Motor{s.LeftWheel, s.RightWheel, s.LeftLift, s.RightLift}
}

// Wait yields to other tasks for d.
func (s *Shared) Wait(ctx context.Context, d time.Duration) error {
	return s.Yield.Wait(ctx, d)
}

// Printf writes a line to the console (and the run log while one is open).
func (s *Shared) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format+"\n", args...)
}

// Reset stops all motion and zeroes distance, angle and heading. Every step
// is attempted even if an earlier one fails.
func (s *Shared) Reset() error {
	var errs []error
	if err := s.Drive.Stop(); err != nil {
		errs = append(errs, err)
	}
	for _, m := range s.Motors() {
		if m == nil {
			continue
		}
		if err := m.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Drive.Base().Reset(); err != nil {
		errs = append(errs, err)
	}
	if err := s.IMU.ResetHeading(0); err != nil {
		errs = append(errs, err)
	}
	for _, m := range s.Motors() {
		if m == nil {
			continue
		}
		if err := m.ResetAngle(0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Initialize brings a freshly connected rig into its competition state:
// default settings, controller gains, gyro on, every counter at zero.
func Initialize(rig hardware.Rig, p profile.Profile, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintln(out, "=== Robot initialization ===")

	if err := rig.Drive.SetSettings(p.Defaults); err != nil {
		return fmt.Errorf("apply default settings: %w", err)
	}
	fmt.Fprintf(out, "✓ default settings: straight=%.0f/%.0f turn=%.0f/%.0f\n",
		p.Defaults.StraightSpeed, p.Defaults.StraightAccel, p.Defaults.TurnRate, p.Defaults.TurnAccel)

	if t, ok := rig.Drive.(hardware.Tunable); ok {
		if err := t.SetPID(p.DistancePID, p.HeadingPID); err != nil {
			return fmt.Errorf("apply pid gains: %w", err)
		}
		fmt.Fprintln(out, "✓ pid gains applied")
	}

	if err := rig.Drive.UseGyro(true); err != nil {
		return fmt.Errorf("enable gyro: %w", err)
	}
	if err := rig.IMU.ResetHeading(0); err != nil {
		return fmt.Errorf("reset heading: %w", err)
	}
	if err := rig.Drive.Reset(); err != nil {
		return fmt.Errorf("reset drivebase: %w", err)
	}
	fmt.Fprintln(out, "✓ sensors initialized")

	for _, m := range rig.Motors() {
		if m == nil {
			continue
		}
		if err := m.ResetAngle(0); err != nil {
			return fmt.Errorf("reset %s angle: %w", m.Name(), err)
		}
	}
	fmt.Fprintln(out, "✓ motor angles reset")
	fmt.Fprintln(out, "=== Robot ready ===")
	return nil
}
