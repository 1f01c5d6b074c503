// Package telemetry samples the robot's sensors while missions run. It only
// ever reads shared hardware.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mission-runner/internal/hardware"
	"mission-runner/internal/robot"
)

// Sample is one reading of the drive state.
type Sample struct {
	Elapsed    time.Duration `json:"elapsed_ms"`
	Distance   float64       `json:"distance_mm"`
	Heading    float64       `json:"heading_deg"`
	LeftAngle  float64       `json:"left_angle_deg"`
	RightAngle float64       `json:"right_angle_deg"`
	LeftSpeed  float64       `json:"left_speed_dps"`
	RightSpeed float64       `json:"right_speed_dps"`

	DistancePID hardware.PID `json:"distance_pid"`
	HeadingPID  hardware.PID `json:"heading_pid"`
}

// Read takes a sample from sc. Reads that fail are left at zero and reported
// together.
func Read(sc *robot.Shared, elapsed time.Duration) (Sample, error) {
	s := Sample{
		Elapsed:     elapsed,
		DistancePID: sc.Profile.DistancePID,
		HeadingPID:  sc.Profile.HeadingPID,
	}
	var errs []error
	read := func(dst *float64, fn func() (float64, error)) {
		v, err := fn()
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = v
	}

	read(&s.Distance, sc.Drive.Distance)
	read(&s.Heading, sc.IMU.Heading)
	read(&s.LeftAngle, sc.LeftWheel.Angle)
	read(&s.RightAngle, sc.RightWheel.Angle)
	read(&s.LeftSpeed, sc.LeftWheel.Speed)
	read(&s.RightSpeed, sc.RightWheel.Speed)
	return s, errors.Join(errs...)
}

// Format renders samples as text lines.
type Format interface {
	Header() string // empty when the format has no header
	Line(Sample) string
}

// LogFormat is the human-readable one-line format.
type LogFormat struct{}

func (LogFormat) Header() string { return "" }

func (LogFormat) Line(s Sample) string {
	return fmt.Sprintf("LOG[%5.0fms]: dist=%4.0f mm  heading=%4.0f°  L=%5.0f°  R=%5.0f°",
		ms(s.Elapsed), s.Distance, s.Heading, s.LeftAngle, s.RightAngle)
}

// CSVColumns is the fixed column order of CSVFormat.
var CSVColumns = []string{
	"time", "current_dist_mm", "error_angle_deg", "current_heading_deg",
	"left_angle_deg", "right_angle_deg", "angle_diff_deg",
	"left_speed_dps", "right_speed_dps", "speed_diff_dps",
	"kp_dist", "ki_dist", "kd_dist", "kp_head", "ki_head", "kd_head",
}

// CSVFormat adds wheel speeds and the controller gains for tuning sessions.
type CSVFormat struct{}

func (CSVFormat) Header() string { return strings.Join(CSVColumns, ",") }

func (CSVFormat) Line(s Sample) string {
	// heading error is not measured on the hub; the column stays for tooling
	const errorAngle = 0.0
	fields := []float64{
		s.Distance, errorAngle, s.Heading,
		s.LeftAngle, s.RightAngle, s.RightAngle - s.LeftAngle,
		s.LeftSpeed, s.RightSpeed, s.RightSpeed - s.LeftSpeed,
		s.DistancePID.Kp, s.DistancePID.Ki, s.DistancePID.Kd,
		s.HeadingPID.Kp, s.HeadingPID.Ki, s.HeadingPID.Kd,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%.0f", ms(s.Elapsed))
	for _, f := range fields {
		fmt.Fprintf(&b, ",%.1f", f)
	}
	return b.String()
}

// NewFormat returns the format called name ("log" or "csv").
func NewFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "log":
		return LogFormat{}, nil
	case "csv":
		return CSVFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown telemetry format %q", name)
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
