package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mission-runner/internal/config"
	"mission-runner/internal/logger"
)

var (
	v          = config.New()
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "runner",
	Short: "Mission runner for a differential-wheel competition robot",
	Long: `Selects and runs pre-programmed robot missions. The operator walks the
menu with the hub buttons and starts a mission with the force sensor; every
run is bracketed by a robot reset and captured in its own log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configPath)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Log.File); err != nil {
			return fmt.Errorf("could not initialize logger: %w", err)
		}
		logger.Log.Printf("[CLI] %s with driver=%s dev=%v", cmd.Name(), cfg.Driver, cfg.Dev)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelect(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./runner.yaml)")
	flags.Bool("dev", false, "development mode: sample telemetry alongside the dispatcher")
	flags.String("driver", "", "hardware driver: sim or serial (default sim)")
	flags.String("port", "", "serial port of the hub")
	flags.String("profile", "", "robot profile (TOML)")
	flags.String("missions", "", "mission manifest (YAML)")

	for key, name := range map[string]string{
		"dev":               "dev",
		"driver":            "driver",
		"serial.port":       "port",
		"profile":           "profile",
		"missions.manifest": "missions",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(selectCmd, runCmd, listCmd, historyCmd, panelCmd)
}

func Execute() {
	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
