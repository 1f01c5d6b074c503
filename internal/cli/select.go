package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mission-runner/internal/display"
	"mission-runner/internal/listener"
	"mission-runner/internal/logger"
	"mission-runner/internal/mission"
)

var selectCmd = &cobra.Command{
	Use:   "select [mission]",
	Short: "Run the mission menu, driven from the console",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelect(cmd.Context(), args...)
	},
}

func runSelect(ctx context.Context, preselect ...string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	start := 0
	if len(preselect) > 0 {
		if start = reg.Index(preselect[0]); start < 0 {
			return unknownMission(reg, preselect[0])
		}
	}

	if err := listener.Init(); err != nil {
		return fmt.Errorf("failed to init terminal input: %w", err)
	}
	defer listener.Close()

	s, err := openSession(reg, listener.Writer())
	if err != nil {
		return err
	}
	defer s.Close()
	s.attach(listener.Writer())

	listener.AsyncPrintln(strings.TrimRight(display.FormatCatalog(reg, start), "\n"))
	listener.AsyncPrintln(listener.Help)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := listener.Pump(ctx, s.panel); err != nil && ctx.Err() == nil {
			logger.Log.Printf("[CLI] console input failed: %v", err)
		}
		cancel()
	}()

	err = s.menu(ctx, start)
	listener.AsyncPrintln("Goodbye!")
	return err
}

func unknownMission(reg *mission.Registry, id string) error {
	if s := reg.Suggest(id); len(s) > 0 {
		return fmt.Errorf("unknown mission %q (did you mean %s?)", id, strings.Join(s, ", "))
	}
	return fmt.Errorf("unknown mission %q; see 'runner list'", id)
}
