// Package config loads runner settings from defaults, an optional YAML file
// and RUNNER_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Dev       bool
	Driver    string // sim or serial
	Serial    SerialConfig
	Profile   string
	Missions  MissionsConfig
	Logs      LogsConfig
	Log       LogConfig
	History   HistoryConfig
	Telemetry TelemetryConfig
	Trigger   TriggerConfig
	Dispatch  DispatchConfig
}

type SerialConfig struct {
	Port string
	Baud int
}

type MissionsConfig struct {
	Manifest string
}

// LogsConfig is where per-run logs go.
type LogsConfig struct {
	Dir string
}

// LogConfig is the application log.
type LogConfig struct {
	File string
}

type HistoryConfig struct {
	Path string
}

type TelemetryConfig struct {
	Format string
	Period time.Duration
	Listen string
}

type TriggerConfig struct {
	Threshold float64
}

type DispatchConfig struct {
	Debounce time.Duration
	Settle   time.Duration
	Alert    time.Duration
	Loop     time.Duration
}

const envPrefix = "RUNNER"

func defaults(v *viper.Viper) {
	v.SetDefault("dev", false)
	v.SetDefault("driver", "sim")
	v.SetDefault("serial.port", "/dev/ttyACM0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("profile", "robot.toml")
	v.SetDefault("missions.manifest", "missions.yaml")
	v.SetDefault("logs.dir", "logs")
	v.SetDefault("log.file", "runner.log")
	v.SetDefault("history.path", "runs.db")
	v.SetDefault("telemetry.format", "log")
	v.SetDefault("telemetry.period", 200*time.Millisecond)
	v.SetDefault("telemetry.listen", "")
	v.SetDefault("trigger.threshold", 0.5)
	v.SetDefault("dispatch.debounce", 100*time.Millisecond)
	v.SetDefault("dispatch.settle", 50*time.Millisecond)
	v.SetDefault("dispatch.alert", 500*time.Millisecond)
	v.SetDefault("dispatch.loop", 50*time.Millisecond)
}

// New returns a viper instance with defaults and environment binding, ready
// for flags to be bound to it.
func New() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (or RUNNER_CONFIG, or ./runner.yaml when present) into v
// and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("runner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Driver {
	case "sim", "serial":
	default:
		return fmt.Errorf("driver must be sim or serial, got %q", c.Driver)
	}
	if c.Trigger.Threshold <= 0 || c.Trigger.Threshold > 1 {
		return fmt.Errorf("trigger.threshold must be in (0, 1], got %v", c.Trigger.Threshold)
	}
	if c.Telemetry.Period <= 0 {
		return fmt.Errorf("telemetry.period must be positive")
	}
	if c.Driver == "serial" && c.Serial.Port == "" {
		return errors.New("serial.port is required with the serial driver")
	}
	return nil
}
