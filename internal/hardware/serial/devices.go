package serial

import (
	"time"

	"mission-runner/internal/hardware"
)

const driveDevice = "drive"

type Drive struct{ b *Bridge }

func (d *Drive) Distance() (float64, error) { return d.b.float(driveDevice, "distance") }
func (d *Drive) Reset() error               { return d.b.exec(driveDevice, "reset") }
func (d *Drive) Done() (bool, error)        { return d.b.flag(driveDevice, "done") }
func (d *Drive) Stop() error                { return d.b.exec(driveDevice, "stop") }

func (d *Drive) Straight(distance float64) error {
	return d.b.exec(driveDevice, "straight", distance)
}

func (d *Drive) Turn(angle float64) error {
	return d.b.exec(driveDevice, "turn", angle)
}

func (d *Drive) Curve(radius, angle float64) error {
	return d.b.exec(driveDevice, "curve", radius, angle)
}

func (d *Drive) UseGyro(on bool) error {
	return d.b.exec(driveDevice, "gyro", boolArg(on))
}

// Settings values travel in the order speed, acceleration, turn rate, turn
// acceleration.
func (d *Drive) Settings() (hardware.Settings, error) {
	v, err := d.b.want(4, driveDevice, "settings")
	if err != nil {
		return hardware.Settings{}, err
	}
	return hardware.Settings{StraightSpeed: v[0], StraightAccel: v[1], TurnRate: v[2], TurnAccel: v[3]}, nil
}

func (d *Drive) SetSettings(s hardware.Settings) error {
	return d.b.exec(driveDevice, "set_settings", s.StraightSpeed, s.StraightAccel, s.TurnRate, s.TurnAccel)
}

func (d *Drive) SetPID(distance, heading hardware.PID) error {
	return d.b.exec(driveDevice, "pid",
		distance.Kp, distance.Ki, distance.Kd,
		heading.Kp, heading.Ki, heading.Kd)
}

type Motor struct {
	b    *Bridge
	name string
}

func (m *Motor) Name() string                   { return m.name }
func (m *Motor) Angle() (float64, error)        { return m.b.float(m.name, "angle") }
func (m *Motor) Speed() (float64, error)        { return m.b.float(m.name, "speed") }
func (m *Motor) ResetAngle(angle float64) error { return m.b.exec(m.name, "reset_angle", angle) }
func (m *Motor) Stop() error                    { return m.b.exec(m.name, "stop") }
func (m *Motor) Done() (bool, error)            { return m.b.flag(m.name, "done") }

func (m *Motor) RunAngle(speed, angle float64) error {
	return m.b.exec(m.name, "run_angle", speed, angle)
}

// RunTime sends the duration in milliseconds.
func (m *Motor) RunTime(speed float64, d time.Duration) error {
	return m.b.exec(m.name, "run_time", speed, float64(d.Milliseconds()))
}

func (m *Motor) Limits() (hardware.MotorLimits, error) {
	v, err := m.b.float(m.name, "limits")
	if err != nil {
		return hardware.MotorLimits{}, err
	}
	return hardware.MotorLimits{Accel: v}, nil
}

func (m *Motor) SetLimits(l hardware.MotorLimits) error {
	return m.b.exec(m.name, "set_limits", l.Accel)
}

type IMU struct{ b *Bridge }

func (i *IMU) Heading() (float64, error) { return i.b.float("imu", "heading") }

func (i *IMU) ResetHeading(h float64) error { return i.b.exec("imu", "reset_heading", h) }
