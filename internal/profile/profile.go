// Package profile loads the robot's physical and tuning parameters.
package profile

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"mission-runner/internal/hardware"
)

// Profile describes one robot build.
type Profile struct {
	Name          string  `toml:"name"`
	WheelDiameter float64 `toml:"wheel_diameter"` // mm
	AxleTrack     float64 `toml:"axle_track"`     // mm

	Defaults hardware.Settings `toml:"defaults"`
	// Curve overrides straight speed and acceleration while curving.
	Curve struct {
		Speed float64 `toml:"speed"`
		Accel float64 `toml:"acceleration"`
	} `toml:"curve"`

	DistancePID hardware.PID `toml:"distance_pid"`
	HeadingPID  hardware.PID `toml:"heading_pid"`
}

// Default is the competition robot: 62 mm wheels on a 115 mm axle track.
func Default() Profile {
	p := Profile{
		Name:          "default",
		WheelDiameter: 62,
		AxleTrack:     115,
		Defaults: hardware.Settings{
			StraightSpeed: 400,
			StraightAccel: 500,
			TurnRate:      240,
			TurnAccel:     850,
		},
		DistancePID: hardware.PID{Kp: 1000, Ki: 50, Kd: 10},
		HeadingPID:  hardware.PID{Kp: 2000, Ki: 50, Kd: 100},
	}
	p.Curve.Speed = 240
	p.Curve.Accel = 800
	return p
}

// Load reads a TOML profile on top of Default. A missing file yields Default.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Profile{}, fmt.Errorf("profile %s: unknown keys %v", path, undecoded)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) Validate() error {
	if p.WheelDiameter <= 0 {
		return errors.New("wheel_diameter must be positive")
	}
	if p.AxleTrack <= 0 {
		return errors.New("axle_track must be positive")
	}
	s := p.Defaults
	if s.StraightSpeed <= 0 || s.StraightAccel <= 0 || s.TurnRate <= 0 || s.TurnAccel <= 0 {
		return errors.New("default speeds and accelerations must be positive")
	}
	return nil
}
