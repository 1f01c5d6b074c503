package sim

import (
	"math"
	"time"

	"mission-runner/internal/hardware"
)

type motorMode int

const (
	idle motorMode = iota
	toAngle
	forTime
)

// Motor is a simulated motor. Wheel motors also turn with the drivebase.
type Motor struct {
	s    *Sim
	name string
	// drive reports the drivebase's contribution to this motor; nil for lifts
	drive func() (angle, speed float64)

	angle  float64 // own rotation, deg
	speed  float64 // own speed, deg/s
	offset float64 // subtracted from the reported angle after ResetAngle
	limits hardware.MotorLimits

	mode      motorMode
	target    float64
	cruise    float64
	remaining time.Duration
}

func newMotor(s *Sim, name string, drive func() (float64, float64)) *Motor {
	return &Motor{s: s, name: name, drive: drive, limits: hardware.MotorLimits{Accel: 2000}}
}

func (m *Motor) Name() string { return m.name }

func (m *Motor) integrate(dt float64) {
	accel := m.limits.Accel * dt
	switch m.mode {
	case toAngle:
		left := m.target - m.angle
		// fastest speed from which the motor can still stop on target
		brake := math.Sqrt(2 * m.limits.Accel * math.Abs(left))
		want := math.Copysign(math.Min(math.Abs(m.cruise), brake), left)
		m.speed = approach(m.speed, want, accel)
		m.angle += m.speed * dt
		if math.Abs(m.target-m.angle) < 0.5 || (left > 0) != (m.target-m.angle > 0) {
			m.angle, m.speed, m.mode = m.target, 0, idle
		}
	case forTime:
		m.speed = approach(m.speed, m.cruise, accel)
		m.angle += m.speed * dt
		m.remaining -= time.Duration(dt * float64(time.Second))
		if m.remaining <= 0 {
			m.speed, m.mode = 0, idle
		}
	default:
		m.speed = approach(m.speed, 0, accel)
		m.angle += m.speed * dt
	}
}

func (m *Motor) total() (float64, float64) {
	angle, speed := m.angle, m.speed
	if m.drive != nil {
		da, ds := m.drive()
		angle += da
		speed += ds
	}
	return angle, speed
}

func (m *Motor) Angle() (float64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	a, _ := m.total()
	return a - m.offset, nil
}

func (m *Motor) Speed() (float64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	_, v := m.total()
	return v, nil
}

func (m *Motor) ResetAngle(angle float64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	a, _ := m.total()
	m.offset = a - angle
	return nil
}

func (m *Motor) Stop() error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	m.mode, m.speed = idle, 0
	return nil
}

func (m *Motor) RunAngle(speed, angle float64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	// the sign of the motion comes from angle, as on the hub
	m.mode, m.target, m.cruise = toAngle, m.angle+angle, math.Abs(speed)
	if angle == 0 || speed == 0 {
		m.mode = idle
	}
	return nil
}

func (m *Motor) RunTime(speed float64, d time.Duration) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	m.mode, m.cruise, m.remaining = forTime, speed, d
	return nil
}

func (m *Motor) Done() (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.advance()
	return m.mode == idle, nil
}

func (m *Motor) Limits() (hardware.MotorLimits, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.limits, nil
}

func (m *Motor) SetLimits(l hardware.MotorLimits) error {
	if l.Accel <= 0 {
		return hardware.NewFault(m.name, "set_limits", errBadSettings)
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.limits = l
	return nil
}
