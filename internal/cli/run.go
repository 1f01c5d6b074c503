package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/display"
	"mission-runner/internal/metrics"
	"mission-runner/internal/mission"
	"mission-runner/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run <mission> [params...]",
	Short: "Run one mission immediately, with telemetry",
	Long: `Runs a single mission without the menu. Extra arguments replace the
mission's configured params. Telemetry is sampled for the whole run and
drained after the mission ends.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOne(cmd.Context(), args[0], args[1:])
	},
}

func runOne(ctx context.Context, id string, params []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	e, ok := reg.Lookup(id)
	if !ok {
		return unknownMission(reg, id)
	}
	if len(params) > 0 {
		e.Params = mission.Args(params)
	}
	single, err := mission.NewRegistry(e)
	if err != nil {
		return err
	}

	s, err := openSession(single, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()
	s.attach(os.Stdout)

	stop := &scheduler.Flag{}
	tel, err := s.newTelemetry(ctx, stop)
	if err != nil {
		return err
	}
	d := s.newDispatcher(single, dispatcher.WithRunStart(tel.Restart))

	var result metrics.RunMetrics
	sched := scheduler.New(s.clock)
	err = sched.Register("mission", func(ctx context.Context, h *scheduler.Handle) error {
		s.shared.Bind(h)
		var err error
		result, err = d.RunSelected(ctx)
		stop.Set()
		if err != nil {
			return err
		}
		return h.Wait(ctx, drainWait)
	})
	if err != nil {
		return err
	}
	if err := sched.Register("telemetry", tel.Run); err != nil {
		return err
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if result.RunID == "" {
		return ctx.Err()
	}
	fmt.Print(display.FormatRunMetrics(&result))
	if !result.Succeeded() {
		return fmt.Errorf("mission %s %s", e.ID, result.Outcome)
	}
	return nil
}
