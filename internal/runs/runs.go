// Package runs contains the built-in competition missions.
package runs

import (
	"context"
	"time"

	"mission-runner/internal/hardware"
	"mission-runner/internal/mission"
	"mission-runner/internal/robot"
)

// Catalog returns the compiled-in missions in menu order.
func Catalog() []mission.Entry {
	return []mission.Entry{
		entry("run01", "M08 M06 M05", 1, run01),
		entry("run02", "M09 M07", 2, run02),
		entry("run03", "M10 M11", 3, run03),
		entry("run04", "M12", 4, run04),
		entry("run05", "M01 M02", 5, run05),
		entry("run06", "M13 M03", 6, run06),
	}
}

func entry(id, label string, n int, fn mission.EntryPoint) mission.Entry {
	return mission.Entry{
		ID:            id,
		Label:         label,
		DisplayNumber: n,
		Run:           fn,
		Timed:         true,
	}
}

// step runs motion primitives in order and stops at the first error. Timed
// out primitives are not errors.
type step func() (bool, error)

func sequence(steps ...step) error {
	for _, s := range steps {
		if _, err := s(); err != nil {
			return err
		}
	}
	return nil
}

func straight(ctx context.Context, sc *robot.Shared, mm float64, opts ...robot.MoveOption) step {
	return func() (bool, error) { return sc.Drive.Straight(ctx, mm, opts...) }
}

func turn(ctx context.Context, sc *robot.Shared, deg float64, opts ...robot.MoveOption) step {
	return func() (bool, error) { return sc.Drive.Turn(ctx, deg, opts...) }
}

func curve(ctx context.Context, sc *robot.Shared, radius, deg float64, opts ...robot.MoveOption) step {
	return func() (bool, error) { return sc.Drive.Curve(ctx, radius, deg, opts...) }
}

func motor(ctx context.Context, sc *robot.Shared, m hardware.Motor, speed, deg float64, opts ...robot.MoveOption) step {
	return func() (bool, error) { return sc.Drive.RunMotor(ctx, m, speed, deg, opts...) }
}

func wait(ctx context.Context, sc *robot.Shared, ms int) step {
	return func() (bool, error) { return true, sc.Wait(ctx, time.Duration(ms)*time.Millisecond) }
}

// tune changes the persistent settings for the remainder of the mission.
func tune(sc *robot.Shared, fn func(*hardware.Settings)) step {
	return func() (bool, error) {
		s, err := sc.Drive.Settings()
		if err != nil {
			return false, err
		}
		fn(&s)
		return true, sc.Drive.SetSettings(s)
	}
}

func finish(sc *robot.Shared) step {
	return func() (bool, error) {
		if err := sc.Drive.Stop(); err != nil {
			return false, err
		}
		sc.Printf("# run complete")
		return true, nil
	}
}

func run01(ctx context.Context, sc *robot.Shared, args mission.Args) error {
	approach := args.Float(0, 450)
	return sequence(
		// M08
		straight(ctx, sc, approach),
		motor(ctx, sc, sc.RightLift, 500, -360),
		wait(ctx, sc, 100),
		motor(ctx, sc, sc.RightLift, 500, -360),
		wait(ctx, sc, 100),
		motor(ctx, sc, sc.RightLift, 500, -360),
		wait(ctx, sc, 50),
		// M06
		turn(ctx, sc, -5),
		straight(ctx, sc, 250),
		// M05
		turn(ctx, sc, -42),
		straight(ctx, sc, 34),
		motor(ctx, sc, sc.RightWheel, 200, 140, robot.WithTimeout(1500*time.Millisecond)),
		turn(ctx, sc, 50),
		straight(ctx, sc, -720, robot.WithSpeed(500)),
	)
}

func run02(ctx context.Context, sc *robot.Shared, _ mission.Args) error {
	speed := func(v float64) step {
		return tune(sc, func(s *hardware.Settings) { s.StraightSpeed = v })
	}
	return sequence(
		tune(sc, func(s *hardware.Settings) { s.StraightSpeed, s.TurnRate = 320, 60 }),
		// M09
		curve(ctx, sc, 120, 110),
		curve(ctx, sc, 120, -64),
		speed(220),
		straight(ctx, sc, 200),
		straight(ctx, sc, -192),
		wait(ctx, sc, 200),
		curve(ctx, sc, 710, 10),
		wait(ctx, sc, 150),
		motor(ctx, sc, sc.RightWheel, 100, 170),
		wait(ctx, sc, 100),
		// M07
		straight(ctx, sc, -210),
		turn(ctx, sc, 45),
		straight(ctx, sc, 210),
		turn(ctx, sc, 65),
		straight(ctx, sc, 90),
		motor(ctx, sc, sc.RightLift, 1000, -850),
		straight(ctx, sc, 100),
		motor(ctx, sc, sc.RightLift, 800, 720),
		speed(400),
		straight(ctx, sc, -550),
		turn(ctx, sc, 58),
		speed(600),
		straight(ctx, sc, -800),
		turn(ctx, sc, -22),
		straight(ctx, sc, -650),
		finish(sc),
	)
}

func run03(ctx context.Context, sc *robot.Shared, _ mission.Args) error {
	slow := []robot.MoveOption{robot.WithSpeed(100), robot.WithAccel(200)}
	return sequence(
		// M11
		turn(ctx, sc, -45),
		straight(ctx, sc, 300),
		turn(ctx, sc, 45),
		straight(ctx, sc, 500),
		turn(ctx, sc, 26),
		straight(ctx, sc, 330),
		motor(ctx, sc, sc.RightLift, 1000, 180*40),
		straight(ctx, sc, -130),
		turn(ctx, sc, -26),
		straight(ctx, sc, 225),
		// M10
		turn(ctx, sc, -88),
		straight(ctx, sc, 148, append(slow, robot.WithTimeout(2*time.Second))...),
		straight(ctx, sc, -148, slow...),
		turn(ctx, sc, 106, robot.WithRate(100), robot.WithAccel(300)),
		straight(ctx, sc, -430),
		turn(ctx, sc, -28),
		straight(ctx, sc, -900),
		finish(sc),
	)
}

func run04(ctx context.Context, sc *robot.Shared, _ mission.Args) error {
	return sequence(
		straight(ctx, sc, 350),
		straight(ctx, sc, -130),
		curve(ctx, sc, 850, 25, robot.WithSpeed(200), robot.WithTimeout(2*time.Second)),
		straight(ctx, sc, -550, robot.WithSpeed(350)),
		finish(sc),
	)
}

func run05(ctx context.Context, sc *robot.Shared, _ mission.Args) error {
	return sequence(
		// M01
		straight(ctx, sc, 590),
		straight(ctx, sc, -120),
		// M02
		turn(ctx, sc, 40),
		straight(ctx, sc, 220),
		turn(ctx, sc, -85),
		straight(ctx, sc, 205, robot.WithTimeout(3*time.Second)),
		straight(ctx, sc, -210),
		turn(ctx, sc, -45),
		straight(ctx, sc, 50),
		motor(ctx, sc, sc.LeftLift, 300, 180),
		straight(ctx, sc, -50),
		turn(ctx, sc, -70),
		straight(ctx, sc, 580),
		finish(sc),
	)
}

func run06(ctx context.Context, sc *robot.Shared, _ mission.Args) error {
	return sequence(
		// M13
		straight(ctx, sc, 650),
		turn(ctx, sc, 90),
		straight(ctx, sc, 262),
		turn(ctx, sc, 39),
		straight(ctx, sc, 140),
		wait(ctx, sc, 100),
		motor(ctx, sc, sc.RightLift, 150, 380),
		wait(ctx, sc, 300),
		turn(ctx, sc, -30),
		wait(ctx, sc, 700),
		turn(ctx, sc, 30),
		// M03
		straight(ctx, sc, -48),
		turn(ctx, sc, 245),
		motor(ctx, sc, sc.RightLift, 1000, -350),
		straight(ctx, sc, 48),
		motor(ctx, sc, sc.RightLift, 1000, 360*3),
		wait(ctx, sc, 500),
		motor(ctx, sc, sc.RightLift, 800, -50),
		turn(ctx, sc, -100),
		straight(ctx, sc, 300),
		turn(ctx, sc, -80),
		straight(ctx, sc, 700),
		finish(sc),
	)
}
