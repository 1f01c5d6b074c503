// Package fake provides scriptable, instrumented hardware for tests.
package fake

import (
	"sync"
	"time"

	"mission-runner/internal/hardware"
)

// Drive is a drivebase whose completion is controlled by the test.
type Drive struct {
	mu       sync.Mutex
	settings hardware.Settings
	distance float64
	gyro     bool

	// DoneAfter is the number of Done polls after an action starts before it
	// reports completion. Negative means never.
	DoneAfter int
	polls     int

	// Err, when set, is returned from the named operation.
	Err map[string]error

	Calls []string
	// StartedWith holds the settings in effect when each action started.
	StartedWith []hardware.Settings
	Mutating    int
	Stops       int
}

func NewDrive(s hardware.Settings) *Drive {
	return &Drive{settings: s, Err: map[string]error{}}
}

func (d *Drive) record(op string, mutating bool) error {
	d.Calls = append(d.Calls, op)
	if mutating {
		d.Mutating++
	}
	if err := d.Err[op]; err != nil {
		return hardware.NewFault("drive", op, err)
	}
	return nil
}

func (d *Drive) Distance() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.distance, d.record("distance", false)
}

func (d *Drive) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.distance = 0
	return d.record("reset", true)
}

func (d *Drive) Settings() (hardware.Settings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings, d.record("settings", false)
}

func (d *Drive) SetSettings(s hardware.Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("set_settings", true); err != nil {
		return err
	}
	d.settings = s
	return nil
}

// Current returns the settings without recording a call.
func (d *Drive) Current() hardware.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

func (d *Drive) begin(op string, distance float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(op, true); err != nil {
		return err
	}
	d.polls = 0
	d.distance += distance
	d.StartedWith = append(d.StartedWith, d.settings)
	return nil
}

func (d *Drive) Straight(distance float64) error { return d.begin("straight", distance) }
func (d *Drive) Turn(angle float64) error        { return d.begin("turn", 0) }
func (d *Drive) Curve(radius, angle float64) error {
	return d.begin("curve", 0)
}

func (d *Drive) Done() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("done", false); err != nil {
		return false, err
	}
	if d.DoneAfter < 0 {
		return false, nil
	}
	d.polls++
	return d.polls > d.DoneAfter, nil
}

func (d *Drive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Stops++
	return d.record("stop", true)
}

func (d *Drive) UseGyro(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gyro = on
	return d.record("use_gyro", true)
}

// Motor is an instrumented motor.
type Motor struct {
	mu     sync.Mutex
	name   string
	angle  float64
	speed  float64
	limits hardware.MotorLimits

	DoneAfter int
	polls     int
	Err       map[string]error
	Mutating  int
	Stops     int
}

func NewMotor(name string) *Motor {
	return &Motor{name: name, limits: hardware.MotorLimits{Accel: 2000}, Err: map[string]error{}}
}

func (m *Motor) check(op string, mutating bool) error {
	if mutating {
		m.Mutating++
	}
	if err := m.Err[op]; err != nil {
		return hardware.NewFault(m.name, op, err)
	}
	return nil
}

func (m *Motor) Name() string { return m.name }

func (m *Motor) Angle() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angle, m.check("angle", false)
}

func (m *Motor) Speed() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed, m.check("speed", false)
}

func (m *Motor) ResetAngle(angle float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.angle = angle
	return m.check("reset_angle", true)
}

func (m *Motor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	m.speed = 0
	return m.check("stop", true)
}

func (m *Motor) RunAngle(speed, angle float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("run_angle", true); err != nil {
		return err
	}
	m.polls = 0
	m.speed = speed
	m.angle += angle
	return nil
}

func (m *Motor) RunTime(speed float64, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = 0
	m.speed = speed
	return m.check("run_time", true)
}

func (m *Motor) Done() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("done", false); err != nil {
		return false, err
	}
	if m.DoneAfter < 0 {
		return false, nil
	}
	m.polls++
	return m.polls > m.DoneAfter, nil
}

func (m *Motor) Limits() (hardware.MotorLimits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits, m.check("limits", false)
}

func (m *Motor) SetLimits(l hardware.MotorLimits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("set_limits", true); err != nil {
		return err
	}
	m.limits = l
	return nil
}

// CurrentLimits returns the limits without recording a call.
func (m *Motor) CurrentLimits() hardware.MotorLimits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits
}

// IMU is an instrumented orientation sensor.
type IMU struct {
	mu       sync.Mutex
	heading  float64
	Err      map[string]error
	Mutating int
}

func NewIMU() *IMU { return &IMU{Err: map[string]error{}} }

func (i *IMU) Heading() (float64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.Err["heading"]; err != nil {
		return 0, hardware.NewFault("imu", "heading", err)
	}
	return i.heading, nil
}

func (i *IMU) ResetHeading(h float64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Mutating++
	if err := i.Err["reset_heading"]; err != nil {
		return hardware.NewFault("imu", "reset_heading", err)
	}
	i.heading = h
	return nil
}

// SetHeading changes the reading without counting as a mutation.
func (i *IMU) SetHeading(h float64) {
	i.mu.Lock()
	i.heading = h
	i.mu.Unlock()
}

// Panel records everything shown on it and replays scripted input.
type Panel struct {
	mu      sync.Mutex
	Glyphs  []rune
	Lights  []hardware.Color
	presses []map[hardware.Button]bool
	forces  []float64
	Max     float64
}

func NewPanel() *Panel { return &Panel{Max: 10} }

// Script queues one poll worth of input.
func (p *Panel) Script(pressed map[hardware.Button]bool, force float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presses = append(p.presses, pressed)
	p.forces = append(p.forces, force)
}

// Remaining reports how many scripted polls have not been consumed.
func (p *Panel) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.forces)
}

func (p *Panel) Char(r rune) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Glyphs = append(p.Glyphs, r)
	return nil
}

func (p *Panel) On(c hardware.Color) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Lights = append(p.Lights, c)
	return nil
}

func (p *Panel) Off() error { return p.On(hardware.Off) }

func (p *Panel) Pressed() (map[hardware.Button]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.presses) == 0 {
		return nil, nil
	}
	next := p.presses[0]
	p.presses = p.presses[1:]
	return next, nil
}

// Force consumes the force queued alongside the last Pressed poll.
func (p *Panel) Force() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.forces) == 0 {
		return 0, nil
	}
	next := p.forces[0]
	p.forces = p.forces[1:]
	return next, nil
}

func (p *Panel) Range() float64 { return p.Max }

// LightHistory returns a copy of every color shown.
func (p *Panel) LightHistory() []hardware.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]hardware.Color(nil), p.Lights...)
}

// Rig returns a fully faked rig along with its parts.
func Rig(s hardware.Settings) (hardware.Rig, *Drive, *IMU, []*Motor) {
	drive := NewDrive(s)
	imu := NewIMU()
	motors := []*Motor{NewMotor("left_wheel"), NewMotor("right_wheel"), NewMotor("left_lift"), NewMotor("right_lift")}
	return hardware.Rig{
		Drive:      drive,
		IMU:        imu,
		LeftWheel:  motors[0],
		RightWheel: motors[1],
		LeftLift:   motors[2],
		RightLift:  motors[3],
	}, drive, imu, motors
}
