package listener

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"mission-runner/internal/hardware"
)

var rl *readline.Instance
var mu sync.Mutex

func Init() error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "",
		EOFPrompt:       "",
	})
	return err
}

func Close() {
	if rl != nil {
		_ = rl.Close()
	}
}

func SetPrompt(p string) {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		rl.SetPrompt(p)
	}
}

// AsyncPrintln prints s above the prompt without breaking the line being
// typed.
func AsyncPrintln(s string) {
	mu.Lock()
	defer mu.Unlock()
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}

func GetInput() (string, error) {
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Writer returns an io.Writer that prints each complete line through
// AsyncPrintln.
func Writer() io.Writer { return &lineWriter{} }

type lineWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(w.buf.Next(i + 1))
		AsyncPrintln(strings.TrimRight(line, "\r\n"))
	}
}

// Input is the operator panel as seen by the console.
type Input interface {
	Press(hardware.Button)
	Push(force float64)
	Trigger()
}

// Command is one parsed console line.
type Command struct {
	Button hardware.Button
	Force  float64 // negative: full range
	Quit   bool
	Help   bool
}

const Help = `commands:
  n, next, >     select the next mission (right button)
  p, prev, <     select the previous mission (left button)
  g, go [force]  press the force sensor (full range by default)
  h, help        show this help
  q, quit        leave`

// Parse maps a console line to a panel action.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, nil
	}
	switch fields[0] {
	case "n", "next", ">":
		return Command{Button: hardware.Right}, nil
	case "p", "prev", "<":
		return Command{Button: hardware.Left}, nil
	case "g", "go", "run":
		c := Command{Force: -1}
		if len(fields) > 1 {
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || f < 0 {
				return Command{}, fmt.Errorf("invalid force %q", fields[1])
			}
			c.Force = f
		}
		return c, nil
	case "h", "help", "?":
		return Command{Help: true}, nil
	case "q", "quit", "exit":
		return Command{Quit: true}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q (type 'help')", fields[0])
}

// Apply forwards c to in.
func (c Command) Apply(in Input) {
	switch {
	case c.Button != 0:
		in.Press(c.Button)
	case c.Force < 0:
		in.Trigger()
	case c.Force > 0:
		in.Push(c.Force)
	}
}

// Pump reads console lines into in until the operator quits, input ends or
// ctx is done. It returns nil on quit and EOF.
func Pump(ctx context.Context, in Input) error {
	for ctx.Err() == nil {
		line, err := GetInput()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		cmd, err := Parse(line)
		if err != nil {
			AsyncPrintln(err.Error())
			continue
		}
		if cmd.Quit {
			return nil
		}
		if cmd.Help {
			AsyncPrintln(Help)
			continue
		}
		cmd.Apply(in)
	}
	return ctx.Err()
}
