// Package hardware declares the driver-layer collaborators the mission runner
// talks to: motors, the orientation sensor, the drivebase and the operator
// panel. Implementations live in the sim, serial and fake subpackages.
package hardware

import (
	"errors"
	"fmt"
	"time"
)

// Settings is the drivebase motion configuration shared by every mission.
type Settings struct {
	StraightSpeed float64 `toml:"straight_speed" yaml:"straight_speed"` // mm/s
	StraightAccel float64 `toml:"straight_acceleration" yaml:"straight_acceleration"`
	TurnRate      float64 `toml:"turn_rate" yaml:"turn_rate"` // deg/s
	TurnAccel     float64 `toml:"turn_acceleration" yaml:"turn_acceleration"`
}

// MotorLimits caps a single motor's acceleration when running to a target.
type MotorLimits struct {
	Accel float64 // deg/s²
}

// Motor is a single rotation-sensing motor.
type Motor interface {
	Name() string
	Angle() (float64, error)
	Speed() (float64, error)
	ResetAngle(angle float64) error
	Stop() error
	// RunAngle starts rotating by angle degrees at speed deg/s and returns
	// immediately; Done reports completion.
	RunAngle(speed, angle float64) error
	RunTime(speed float64, d time.Duration) error
	Done() (bool, error)
	Limits() (MotorLimits, error)
	SetLimits(MotorLimits) error
}

// IMU is the hub's orientation sensor.
type IMU interface {
	Heading() (float64, error)
	ResetHeading(heading float64) error
}

// DriveBase is the two-wheel drive. Straight, Turn and Curve never block.
type DriveBase interface {
	Distance() (float64, error)
	Reset() error
	Settings() (Settings, error)
	SetSettings(Settings) error
	Straight(distance float64) error
	Turn(angle float64) error
	Curve(radius, angle float64) error
	Done() (bool, error)
	Stop() error
	UseGyro(on bool) error
}

// PID holds controller gains.
type PID struct {
	Kp float64 `toml:"kp"`
	Ki float64 `toml:"ki"`
	Kd float64 `toml:"kd"`
}

// Tunable is implemented by drivebases that accept controller gains.
type Tunable interface {
	SetPID(distance, heading PID) error
}

// Color is a status light color. The zero value means the light is off.
type Color int

const (
	Off Color = iota
	Green
	Blue
	Red
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Red:
		return "red"
	default:
		return "off"
	}
}

// Button is a hub button.
type Button int

const (
	Left Button = iota + 1
	Right
)

// Display renders a single glyph on the hub.
type Display interface {
	Char(r rune) error
}

// Light is the hub status light.
type Light interface {
	On(c Color) error
	Off() error
}

// Buttons reports the set of currently pressed hub buttons.
type Buttons interface {
	Pressed() (map[Button]bool, error)
}

// ForceSensor reads the trigger input. Range is the sensor's maximum reading.
type ForceSensor interface {
	Force() (float64, error)
	Range() float64
}

// Panel bundles the operator-facing surfaces.
type Panel interface {
	Display
	Light
	Buttons
	ForceSensor
}

// Rig is everything a driver provides.
type Rig struct {
	Drive      DriveBase
	IMU        IMU
	LeftWheel  Motor
	RightWheel Motor
	LeftLift   Motor
	RightLift  Motor
}

// Motors returns all motors on the rig in a fixed order.
func (r Rig) Motors() []Motor {
	return []Motor{r.LeftWheel, r.RightWheel, r.LeftLift, r.RightLift}
}

// ErrDisconnected is returned once a driver has lost its link.
var ErrDisconnected = errors.New("hardware disconnected")

// Fault is a failed driver operation.
type Fault struct {
	Device string
	Op     string
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Device, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err as a Fault unless it is nil or already one.
func NewFault(device, op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Device: device, Op: op, Err: err}
}
