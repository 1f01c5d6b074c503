// Package runlog mirrors console output into one append-only file per mission
// run.
package runlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mission-runner/internal/logger"
)

const stampLayout = "20060102-150405"

// Tee writes everything to the console and, while a RunLog is open, to that
// run's file as well.
type Tee struct {
	mu      sync.Mutex
	console io.Writer
	sink    io.Writer
}

func NewTee(console io.Writer) *Tee {
	if console == nil {
		console = io.Discard
	}
	return &Tee{console: console}
}

func (t *Tee) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sink != nil {
		if _, err := t.sink.Write(p); err != nil {
			logger.Log.Printf("[RunLog] write failed: %v", err)
		}
	}
	return t.console.Write(p)
}

// Active reports whether a run log is attached.
func (t *Tee) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sink != nil
}

func (t *Tee) attach(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sink != nil {
		return ErrAlreadyOpen
	}
	t.sink = w
	return nil
}

func (t *Tee) detach(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sink == w {
		t.sink = nil
	}
}

// ErrAlreadyOpen is returned when a second run log is opened on one tee.
var ErrAlreadyOpen = errors.New("a run log is already open")

// RunLog is the file capturing one mission run.
type RunLog struct {
	Path string

	tee  *Tee
	file *os.File
	once sync.Once
	err  error
}

// FileName returns the log file name for a run started at now.
func FileName(runName string, now time.Time) string {
	return fmt.Sprintf("%s-%s.log", runName, now.Format(stampLayout))
}

// Open creates dir if needed, opens the run's file for appending and starts
// teeing into it.
func Open(tee *Tee, dir, runName string, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName(runName, now))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if err := tee.attach(file); err != nil {
		_ = file.Close()
		return nil, err
	}
	logger.Log.Printf("[RunLog] opened %s", path)
	return &RunLog{Path: path, tee: tee, file: file}, nil
}

// Close stops teeing and closes the file. It is safe to call more than once.
func (l *RunLog) Close() error {
	l.once.Do(func() {
		l.tee.detach(l.file)
		l.err = l.file.Close()
		logger.Log.Printf("[RunLog] closed %s", l.Path)
	})
	return l.err
}
