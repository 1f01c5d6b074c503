// Package sim simulates the robot well enough to rehearse missions without
// hardware. State is integrated lazily in small fixed steps up to the clock's
// current time whenever it is observed.
package sim

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/felixge/pidctrl"

	"mission-runner/internal/hardware"
	"mission-runner/internal/profile"
	"mission-runner/internal/scheduler"
)

const (
	step = 5 * time.Millisecond

	distTolerance = 0.5 // mm
	headTolerance = 0.5 // deg
	settledSpeed  = 5.0 // mm/s or deg/s

	// gains are given in hub units; the simulator works in mm and degrees
	gainScale = 0.01
)

var errBadSettings = errors.New("speeds and accelerations must be positive")

type kind int

const (
	straightAction kind = iota
	turnAction
	curveAction
)

type action struct {
	kind       kind
	targetDist float64
	targetHead float64
	radius     float64
	dist       *pidctrl.PIDController
	head       *pidctrl.PIDController
	done       bool
}

// Sim is the simulated drivebase and the body every simulated sensor reads.
type Sim struct {
	mu    sync.Mutex
	clock scheduler.Clock
	last  time.Time

	wheelDiameter float64
	axleTrack     float64
	settings      hardware.Settings
	curveAccel    float64
	distPID       hardware.PID
	headPID       hardware.PID
	gyro          bool

	dist    float64 // mm since reset
	heading float64 // deg
	v       float64 // mm/s
	w       float64 // deg/s
	left    float64 // wheel angle contribution, deg
	right   float64
	act     *action

	lifts [2]*Motor
	wheel [2]*Motor
}

// New returns a simulator at rest, with the profile's defaults applied.
func New(clock scheduler.Clock, p profile.Profile) *Sim {
	s := &Sim{
		clock:         clock,
		last:          clock.Now(),
		wheelDiameter: p.WheelDiameter,
		axleTrack:     p.AxleTrack,
		settings:      p.Defaults,
		curveAccel:    p.Curve.Accel,
		distPID:       p.DistancePID,
		headPID:       p.HeadingPID,
	}
	s.wheel[0] = newMotor(s, "left_wheel", s.leftWheel)
	s.wheel[1] = newMotor(s, "right_wheel", s.rightWheel)
	s.lifts[0] = newMotor(s, "left_lift", nil)
	s.lifts[1] = newMotor(s, "right_lift", nil)
	return s
}

// Rig exposes the simulator through the driver interfaces.
func (s *Sim) Rig() hardware.Rig {
	return hardware.Rig{
		Drive:      s,
		IMU:        imu{s},
		LeftWheel:  s.wheel[0],
		RightWheel: s.wheel[1],
		LeftLift:   s.lifts[0],
		RightLift:  s.lifts[1],
	}
}

// advance integrates every part up to now. Callers hold s.mu.
func (s *Sim) advance() {
	now := s.clock.Now()
	for s.last.Add(step).Compare(now) <= 0 {
		s.integrate(step.Seconds())
		for _, m := range s.lifts {
			m.integrate(step.Seconds())
		}
		for _, m := range s.wheel {
			m.integrate(step.Seconds())
		}
		s.last = s.last.Add(step)
	}
}

func approach(cur, target, maxDelta float64) float64 {
	switch {
	case target > cur+maxDelta:
		return cur + maxDelta
	case target < cur-maxDelta:
		return cur - maxDelta
	default:
		return target
	}
}

func (s *Sim) integrate(dt float64) {
	a := s.act
	if a == nil || a.done {
		s.v = approach(s.v, 0, s.settings.StraightAccel*dt)
		s.w = approach(s.w, 0, s.settings.TurnAccel*dt)
	} else {
		d := time.Duration(dt * float64(time.Second))
		switch a.kind {
		case straightAction:
			cmd := a.dist.UpdateDuration(s.dist, d)
			s.v = approach(s.v, cmd, s.settings.StraightAccel*dt)
			s.w = approach(s.w, a.head.UpdateDuration(s.heading, d), s.settings.TurnAccel*dt)
			if math.Abs(a.targetDist-s.dist) < distTolerance && math.Abs(s.v) < settledSpeed {
				a.done = true
			}
		case turnAction:
			cmd := a.head.UpdateDuration(s.heading, d)
			s.w = approach(s.w, cmd, s.settings.TurnAccel*dt)
			s.v = approach(s.v, 0, s.settings.StraightAccel*dt)
			if math.Abs(a.targetHead-s.heading) < headTolerance && math.Abs(s.w) < settledSpeed {
				a.done = true
			}
		case curveAction:
			cmd := a.head.UpdateDuration(s.heading, d)
			s.w = approach(s.w, cmd, s.curveAngularAccel(a.radius)*dt)
			s.v = s.w * math.Pi / 180 * a.radius
			if math.Abs(a.targetHead-s.heading) < headTolerance && math.Abs(s.w) < settledSpeed {
				a.done = true
			}
		}
		if a.done {
			s.v, s.w = 0, 0
		}
	}

	s.dist += s.v * dt
	s.heading += s.w * dt
	// wheel surface speeds for a differential drive
	half := s.w * math.Pi / 180 * s.axleTrack / 2
	s.left += (s.v - half) * dt / s.mmPerDeg()
	s.right += (s.v + half) * dt / s.mmPerDeg()
}

// curveAngularAccel converts the linear curve acceleration into deg/s² for
// the current arc.
func (s *Sim) curveAngularAccel(radius float64) float64 {
	accel := s.curveAccel
	if accel <= 0 {
		accel = s.settings.StraightAccel
	}
	return accel / math.Abs(radius) * 180 / math.Pi
}

func (s *Sim) mmPerDeg() float64 { return math.Pi * s.wheelDiameter / 360 }

func (s *Sim) controller(g hardware.PID, setpoint, limit float64) *pidctrl.PIDController {
	return pidctrl.NewPIDController(g.Kp*gainScale, g.Ki*gainScale*gainScale, g.Kd*gainScale*gainScale).
		SetOutputLimits(-limit, limit).
		Set(setpoint)
}

// begin replaces the running action with the one build returns.
func (s *Sim) begin(build func() *action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.act = build()
}

func (s *Sim) Straight(distance float64) error {
	s.begin(func() *action {
		target := s.dist + distance
		return &action{
			kind:       straightAction,
			targetDist: target,
			targetHead: s.heading,
			dist:       s.controller(s.distPID, target, s.settings.StraightSpeed),
			head:       s.controller(s.headPID, s.heading, s.settings.TurnRate),
		}
	})
	return nil
}

func (s *Sim) Turn(angle float64) error {
	s.begin(func() *action {
		target := s.heading + angle
		return &action{
			kind:       turnAction,
			targetHead: target,
			head:       s.controller(s.headPID, target, s.settings.TurnRate),
		}
	})
	return nil
}

// Curve follows an arc of radius mm for angle degrees at straight speed,
// accelerating at the profile's curve acceleration. A negative radius drives
// backwards.
func (s *Sim) Curve(radius, angle float64) error {
	if radius == 0 {
		return s.Turn(angle)
	}
	s.begin(func() *action {
		target := s.heading + angle
		rate := s.settings.StraightSpeed / math.Abs(radius) * 180 / math.Pi
		return &action{
			kind:       curveAction,
			targetHead: target,
			radius:     radius,
			head:       s.controller(s.headPID, target, rate),
		}
	})
	return nil
}

func (s *Sim) Done() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.act == nil || s.act.done, nil
}

func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.act = nil
	s.v, s.w = 0, 0
	return nil
}

func (s *Sim) Distance() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.dist, nil
}

func (s *Sim) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.act = nil
	s.v, s.w, s.dist = 0, 0, 0
	return nil
}

func (s *Sim) Settings() (hardware.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Sim) SetSettings(v hardware.Settings) error {
	if v.StraightSpeed <= 0 || v.StraightAccel <= 0 || v.TurnRate <= 0 || v.TurnAccel <= 0 {
		return hardware.NewFault("drive", "settings", errBadSettings)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
	return nil
}

func (s *Sim) UseGyro(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gyro = on
	return nil
}

func (s *Sim) SetPID(distance, heading hardware.PID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distPID, s.headPID = distance, heading
	return nil
}

// called with s.mu held
func (s *Sim) leftWheel() (float64, float64) {
	half := s.w * math.Pi / 180 * s.axleTrack / 2
	return s.left, (s.v - half) / s.mmPerDeg()
}

func (s *Sim) rightWheel() (float64, float64) {
	half := s.w * math.Pi / 180 * s.axleTrack / 2
	return s.right, (s.v + half) / s.mmPerDeg()
}

type imu struct{ s *Sim }

func (i imu) Heading() (float64, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	i.s.advance()
	return i.s.heading, nil
}

func (i imu) ResetHeading(h float64) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	i.s.advance()
	i.s.heading = h
	return nil
}
