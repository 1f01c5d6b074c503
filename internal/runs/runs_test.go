package runs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mission-runner/internal/hardware/fake"
	"mission-runner/internal/mission"
	"mission-runner/internal/profile"
	"mission-runner/internal/robot"
	"mission-runner/internal/scheduler"
)

func shared(t *testing.T) (*robot.Shared, *fake.Drive, *strings.Builder) {
	t.Helper()
	p := profile.Default()
	rig, drive, _, _ := fake.Rig(p.Defaults)
	drive.DoneAfter = 1
	var out strings.Builder
	y := scheduler.Detached(scheduler.NewManualClock(time.Unix(0, 0)))
	return robot.NewShared(rig, fake.NewPanel(), y, &out, p), drive, &out
}

func TestCatalogRegisters(t *testing.T) {
	reg, err := mission.NewRegistry(Catalog()...)
	if err != nil {
		t.Fatalf("catalog is invalid: %v", err)
	}
	for i := 0; i < reg.Len(); i++ {
		if got := reg.At(i).DisplayNumber; got != i+1 {
			t.Errorf("%s display number = %d, want %d", reg.At(i).ID, got, i+1)
		}
	}
}

func TestMissionsComplete(t *testing.T) {
	reg, err := mission.NewRegistry(Catalog()...)
	if err != nil {
		t.Fatalf("catalog is invalid: %v", err)
	}
	for _, e := range reg.Entries() {
		t.Run(e.ID, func(t *testing.T) {
			sc, drive, out := shared(t)

			if err := e.Run(context.Background(), sc, e.Params); err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(drive.StartedWith) == 0 {
				t.Error("mission issued no drive actions")
			}
			if !strings.Contains(out.String(), "[RUN] "+e.ID+":"+e.Label+" start") {
				t.Errorf("missing timing output: %q", out.String())
			}
		})
	}
}

func TestMissionStopsAtFirstFault(t *testing.T) {
	sc, drive, _ := shared(t)
	drive.Err["turn"] = errors.New("gyro lost")

	err := run05(context.Background(), sc, nil)
	if err == nil {
		t.Fatal("Expected an error, but got nil")
	}
	// two straights, then the failing turn
	if len(drive.StartedWith) != 2 {
		t.Errorf("started %d actions before the fault, want 2", len(drive.StartedWith))
	}
}

func TestRun01ApproachParam(t *testing.T) {
	sc, drive, _ := shared(t)
	if err := run01(context.Background(), sc, mission.Args{"120"}); err != nil {
		t.Fatal(err)
	}
	// distance accumulates every straight; 120 replaces the default 450
	want := 120.0 + 250 + 34 - 720
	if d, _ := drive.Distance(); d != want {
		t.Errorf("distance = %v, want %v", d, want)
	}
}
