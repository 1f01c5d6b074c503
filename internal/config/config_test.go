package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	c, err := Load(New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Driver != "sim" || c.Trigger.Threshold != 0.5 {
		t.Errorf("config = %+v", c)
	}
	if c.Telemetry.Period != 200*time.Millisecond || c.Dispatch.Alert != 500*time.Millisecond {
		t.Errorf("timings = %+v %+v", c.Telemetry, c.Dispatch)
	}
}

func TestFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.yaml")
	body := `dev: true
driver: serial
serial:
  port: /dev/ttyUSB1
telemetry:
  format: csv
  period: 100ms
dispatch:
  loop: 20ms
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNNER_TRIGGER_THRESHOLD", "0.8")

	c, err := Load(New(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Dev || c.Driver != "serial" || c.Serial.Port != "/dev/ttyUSB1" || c.Serial.Baud != 115200 {
		t.Errorf("file values = %+v", c)
	}
	if c.Telemetry.Format != "csv" || c.Telemetry.Period != 100*time.Millisecond || c.Dispatch.Loop != 20*time.Millisecond {
		t.Errorf("nested values = %+v %+v", c.Telemetry, c.Dispatch)
	}
	if c.Trigger.Threshold != 0.8 {
		t.Errorf("env override threshold = %v", c.Trigger.Threshold)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Driver: "sim", Trigger: TriggerConfig{Threshold: 0.5}, Telemetry: TelemetryConfig{Period: time.Second}}
	}
	testCases := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "Unknown driver", mutate: func(c *Config) { c.Driver = "bluetooth" }, expectError: true},
		{name: "Threshold above range", mutate: func(c *Config) { c.Trigger.Threshold = 1.5 }, expectError: true},
		{name: "Serial without port", mutate: func(c *Config) { c.Driver = "serial" }, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			err := c.Validate()
			if tc.expectError && err == nil {
				t.Error("Expected an error, but got nil")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Did not expect an error, but got: %v", err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// standing in for testing.T.Chdir, which this toolchain lacks.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
