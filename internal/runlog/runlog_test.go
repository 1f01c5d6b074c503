package runlog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTeeMirrorsOnlyWhileOpen(t *testing.T) {
	var console bytes.Buffer
	tee := NewTee(&console)
	dir := filepath.Join(t.TempDir(), "logs")
	start := time.Date(2025, 11, 3, 9, 15, 42, 0, time.Local)

	fmt.Fprintln(tee, "before")
	rl, err := Open(tee, dir, "run03", start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !tee.Active() {
		t.Error("tee should be active while the run log is open")
	}
	fmt.Fprintln(tee, "during")
	if err := rl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	fmt.Fprintln(tee, "after")

	if got, want := console.String(), "before\nduring\nafter\n"; got != want {
		t.Errorf("console = %q, want %q", got, want)
	}
	if want := filepath.Join(dir, "run03-20251103-091542.log"); rl.Path != want {
		t.Errorf("path = %s, want %s", rl.Path, want)
	}
	data, err := os.ReadFile(rl.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "during\n" {
		t.Errorf("log contents = %q, want %q", data, "during\n")
	}
	if tee.Active() {
		t.Error("tee still active after close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tee := NewTee(nil)
	rl, err := Open(tee, t.TempDir(), "run01", time.Now())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSecondOpenIsRejected(t *testing.T) {
	tee := NewTee(nil)
	dir := t.TempDir()
	rl, err := Open(tee, dir, "run01", time.Now())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rl.Close()

	if _, err := Open(tee, dir, "run02", time.Now()); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second open error = %v, want ErrAlreadyOpen", err)
	}
}

func TestOpenAppends(t *testing.T) {
	tee := NewTee(nil)
	dir := t.TempDir()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)

	for _, line := range []string{"first\n", "second\n"} {
		rl, err := Open(tee, dir, "run05", at)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		fmt.Fprint(tee, line)
		_ = rl.Close()
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName("run05", at)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("contents = %q", data)
	}
}
