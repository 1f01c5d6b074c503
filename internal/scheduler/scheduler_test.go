package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRunStartsTasksInRegistrationOrder(t *testing.T) {
	s := New(NewManualClock(time.Unix(0, 0)))
	var mu sync.Mutex
	var order []string

	for _, name := range []string{"telemetry", "dispatcher", "extra"} {
		name := name
		if err := s.Register(name, func(ctx context.Context, h *Handle) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "telemetry,dispatcher,extra"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("start order = %s, want %s", got, want)
	}
}

func TestOnlyOneTaskRunsBetweenYields(t *testing.T) {
	s := New(SystemClock{})
	var active, maxActive int
	var mu sync.Mutex

	step := func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(200 * time.Microsecond)
		mu.Lock()
		active--
		mu.Unlock()
	}

	for _, name := range []string{"a", "b", "c"} {
		_ = s.Register(name, func(ctx context.Context, h *Handle) error {
			for i := 0; i < 20; i++ {
				step()
				if err := h.Wait(ctx, time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if maxActive != 1 {
		t.Errorf("max concurrently active steps = %d, want 1", maxActive)
	}
}

func TestFlagStopsLoopAtNextYield(t *testing.T) {
	s := New(NewManualClock(time.Unix(0, 0)))
	var flag Flag
	iterations := 0

	_ = s.Register("logger", func(ctx context.Context, h *Handle) error {
		for !flag.IsSet() {
			iterations++
			if err := h.Wait(ctx, 200*time.Millisecond); err != nil {
				return err
			}
		}
		return nil
	})
	_ = s.Register("main", func(ctx context.Context, h *Handle) error {
		if err := h.Wait(ctx, time.Second); err != nil {
			return err
		}
		flag.Set()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("telemetry loop did not observe the flag")
	}
	if iterations == 0 {
		t.Error("logger loop never ran")
	}
}

func TestTaskErrorCancelsOthers(t *testing.T) {
	s := New(SystemClock{})
	boom := errors.New("boom")

	_ = s.Register("forever", func(ctx context.Context, h *Handle) error {
		for {
			if err := h.Wait(ctx, 5*time.Millisecond); err != nil {
				return err
			}
		}
	})
	_ = s.Register("failing", func(ctx context.Context, h *Handle) error {
		return boom
	})

	err := s.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("run error = %v, want %v", err, boom)
	}
}

func TestPanicBecomesError(t *testing.T) {
	s := New(SystemClock{})
	_ = s.Register("panicky", func(ctx context.Context, h *Handle) error {
		panic("wheel fell off")
	})

	err := s.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "wheel fell off") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
}

func TestRegisterAfterRun(t *testing.T) {
	s := New(nil)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.Register("late", func(context.Context, *Handle) error { return nil }); !errors.Is(err, ErrStarted) {
		t.Errorf("register after run = %v, want ErrStarted", err)
	}
}

func TestWaitUntilOnDetachedHandle(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	h := Detached(clock)
	start := clock.Now()
	polls := 0

	err := h.WaitUntil(context.Background(), func() (bool, error) {
		polls++
		return polls == 4, nil
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait until: %v", err)
	}
	if got := clock.Now().Sub(start); got != 30*time.Millisecond {
		t.Errorf("elapsed = %v, want 30ms", got)
	}
}
