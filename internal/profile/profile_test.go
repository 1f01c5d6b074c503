package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robot.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefault(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p != Default() {
		t.Errorf("expected default profile, got %+v", p)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeProfile(t, `
name = "practice"
axle_track = 112

[defaults]
straight_speed = 300

[heading_pid]
kp = 1800
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "practice" || p.AxleTrack != 112 {
		t.Errorf("top level keys not applied: %+v", p)
	}
	if p.Defaults.StraightSpeed != 300 {
		t.Errorf("straight speed = %v, want 300", p.Defaults.StraightSpeed)
	}
	if p.Defaults.TurnRate != 240 {
		t.Errorf("turn rate = %v, want default 240", p.Defaults.TurnRate)
	}
	if p.HeadingPID.Kp != 1800 || p.HeadingPID.Kd != 100 {
		t.Errorf("heading pid = %+v", p.HeadingPID)
	}
	if p.WheelDiameter != 62 {
		t.Errorf("wheel diameter = %v, want default 62", p.WheelDiameter)
	}
}

func TestLoadRejectsBadProfiles(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Unknown key", body: "wheel_size = 3\n"},
		{name: "Zero axle track", body: "axle_track = 0\n"},
		{name: "Negative speed", body: "[defaults]\nstraight_speed = -1\n"},
		{name: "Malformed", body: "axle_track = \n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeProfile(t, tc.body)); err == nil {
				t.Error("Expected an error, but got nil")
			}
		})
	}
}
