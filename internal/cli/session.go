package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/hardware"
	"mission-runner/internal/hardware/serial"
	"mission-runner/internal/hardware/sim"
	"mission-runner/internal/history"
	"mission-runner/internal/logger"
	"mission-runner/internal/mission"
	"mission-runner/internal/panel"
	"mission-runner/internal/profile"
	"mission-runner/internal/robot"
	"mission-runner/internal/runlog"
	"mission-runner/internal/runs"
	"mission-runner/internal/scheduler"
	"mission-runner/internal/telemetry"
)

// drainWait lets telemetry print its last sample after a standalone run.
const drainWait = 500 * time.Millisecond

func loadRegistry() (*mission.Registry, error) {
	m, err := mission.LoadManifest(cfg.Missions.Manifest)
	if err != nil {
		return nil, err
	}
	return m.Build(runs.Catalog())
}

// session is a connected, initialized robot ready to run missions.
type session struct {
	reg    *mission.Registry
	prof   profile.Profile
	clock  scheduler.Clock
	rig    hardware.Rig
	panel  *panel.Panel
	tee    *runlog.Tee
	shared *robot.Shared
	store  *history.Store
	link   io.Closer
}

// openSession connects the configured driver and brings the robot to its
// start state, printing progress to initOut. Call attach before running
// anything.
func openSession(reg *mission.Registry, initOut io.Writer) (*session, error) {
	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		return nil, err
	}

	s := &session{reg: reg, prof: prof, clock: scheduler.SystemClock{}}
	rig, err := s.connect()
	if err != nil {
		return nil, err
	}
	if err := robot.Initialize(rig, prof, initOut); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize robot: %w", err)
	}

	if cfg.History.Path != "" {
		s.store, err = history.Open(cfg.History.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	s.rig = rig
	s.panel = panel.New(panel.DefaultRange)
	return s, nil
}

// attach routes mission output to console through the run log tee.
func (s *session) attach(console io.Writer) {
	s.tee = runlog.NewTee(console)
	s.shared = robot.NewShared(s.rig, s.panel, scheduler.Detached(s.clock), s.tee, s.prof)
}

func (s *session) connect() (hardware.Rig, error) {
	switch cfg.Driver {
	case "serial":
		b, err := serial.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return hardware.Rig{}, err
		}
		s.link = b
		logger.Log.Printf("[CLI] connected to hub on %s", cfg.Serial.Port)
		return b.Rig(), nil
	default:
		logger.Log.Printf("[CLI] using simulated robot %q", s.prof.Name)
		return sim.New(s.clock, s.prof).Rig(), nil
	}
}

func (s *session) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.link != nil {
		errs = append(errs, s.link.Close())
	}
	return errors.Join(errs...)
}

func (s *session) dispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		Threshold: cfg.Trigger.Threshold,
		Debounce:  cfg.Dispatch.Debounce,
		Settle:    cfg.Dispatch.Settle,
		Alert:     cfg.Dispatch.Alert,
		Loop:      cfg.Dispatch.Loop,
		LogDir:    cfg.Logs.Dir,
	}
}

// newDispatcher builds a dispatcher over reg that records into the history
// store when there is one.
func (s *session) newDispatcher(reg *mission.Registry, opts ...dispatcher.Option) *dispatcher.Dispatcher {
	if s.store != nil {
		opts = append(opts, dispatcher.WithRecorder(s.store))
	}
	return dispatcher.New(reg, s.shared, s.tee, s.dispatcherConfig(), opts...)
}

// newTelemetry returns the sampling task, streaming over websocket when
// telemetry.listen is set. The stream stops with ctx.
func (s *session) newTelemetry(ctx context.Context, stop *scheduler.Flag) (*telemetry.Task, error) {
	format, err := telemetry.NewFormat(cfg.Telemetry.Format)
	if err != nil {
		return nil, err
	}
	t := &telemetry.Task{Shared: s.shared, Stop: stop, Format: format, Period: cfg.Telemetry.Period}
	if cfg.Telemetry.Listen != "" {
		hub := telemetry.NewHub()
		t.Sink = hub
		go func() {
			if err := hub.Serve(ctx, cfg.Telemetry.Listen); err != nil {
				logger.Log.Printf("[CLI] telemetry stream stopped: %v", err)
			}
		}()
	}
	return t, nil
}

// menu schedules the dispatcher, plus telemetry in dev mode, and blocks
// until ctx ends or a task fails.
func (s *session) menu(ctx context.Context, start int, opts ...dispatcher.Option) error {
	sched := scheduler.New(s.clock)
	var tel *telemetry.Task
	if cfg.Dev {
		var err error
		if tel, err = s.newTelemetry(ctx, &scheduler.Flag{}); err != nil {
			return err
		}
		opts = append(opts, dispatcher.WithRunStart(tel.Restart))
	}
	d := s.newDispatcher(s.reg, opts...)
	if err := d.Select(start); err != nil {
		return err
	}
	if err := registerMenu(sched, d, tel); err != nil {
		return err
	}
	err := sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerMenu adds telemetry (when tel is non-nil) ahead of the dispatcher,
// so sampling is running before the first mission can start.
func registerMenu(sched *scheduler.Scheduler, d *dispatcher.Dispatcher, tel *telemetry.Task) error {
	if tel != nil {
		if err := sched.Register("telemetry", tel.Run); err != nil {
			return err
		}
	}
	return sched.Register("dispatcher", d.Task)
}
