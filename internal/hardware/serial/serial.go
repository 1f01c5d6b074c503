// Package serial drives a hub that speaks a line protocol over a serial link.
//
// Each request is one line, "<seq> <device> <op> [args...]", and the hub
// answers with "<seq> ok [values...]" or "<seq> err <message>".
package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"mission-runner/internal/hardware"
)

const readTimeout = 2 * time.Second

// Bridge serializes calls to the hub. It is safe for concurrent use.
type Bridge struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    *bufio.Writer
	closer io.Closer
	seq    int
	broken error
}

// NewBridge talks to a hub over rw. If rw is an io.Closer, Close closes it.
func NewBridge(rw io.ReadWriter) *Bridge {
	b := &Bridge{in: bufio.NewReader(rw), out: bufio.NewWriter(rw)}
	if c, ok := rw.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// Open connects to the hub on port and waits for it to answer a ping.
func Open(port string, baud int) (*Bridge, error) {
	bus, err := serial.OpenPort(&serial.Config{
		Name:        port,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	b := NewBridge(bus)
	if _, err := b.Call("hub", "ping"); err != nil {
		bus.Close()
		return nil, fmt.Errorf("hub on %s did not answer: %w", port, err)
	}
	return b, nil
}

func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Call sends one request and returns the numeric values of the reply.
// Protocol and link failures come back as *hardware.Fault.
func (b *Bridge) Call(device, op string, args ...float64) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken != nil {
		return nil, hardware.NewFault(device, op, b.broken)
	}
	b.seq++
	seq := b.seq

	var line strings.Builder
	fmt.Fprintf(&line, "%d %s %s", seq, device, op)
	for _, a := range args {
		line.WriteByte(' ')
		line.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
	}
	line.WriteByte('\n')
	if _, err := b.out.WriteString(line.String()); err != nil {
		return nil, b.fail(device, op, err)
	}
	if err := b.out.Flush(); err != nil {
		return nil, b.fail(device, op, err)
	}

	for {
		reply, err := b.in.ReadString('\n')
		if err != nil {
			return nil, b.fail(device, op, err)
		}
		fields := strings.Fields(reply)
		if len(fields) < 2 {
			return nil, hardware.NewFault(device, op, fmt.Errorf("malformed reply %q", strings.TrimSpace(reply)))
		}
		got, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, hardware.NewFault(device, op, fmt.Errorf("malformed reply %q", strings.TrimSpace(reply)))
		}
		// a late answer to a request that already failed
		if got < seq {
			continue
		}
		if got != seq {
			return nil, hardware.NewFault(device, op, fmt.Errorf("reply %d out of sequence, want %d", got, seq))
		}
		switch fields[1] {
		case "ok":
			return parseValues(device, op, fields[2:])
		case "err":
			msg := strings.Join(fields[2:], " ")
			if msg == "" {
				msg = "unspecified error"
			}
			return nil, hardware.NewFault(device, op, errors.New(msg))
		default:
			return nil, hardware.NewFault(device, op, fmt.Errorf("unknown status %q", fields[1]))
		}
	}
}

// fail marks the link unusable. Called with b.mu held.
func (b *Bridge) fail(device, op string, err error) error {
	b.broken = fmt.Errorf("%w: %v", hardware.ErrDisconnected, err)
	return hardware.NewFault(device, op, b.broken)
}

func parseValues(device, op string, fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, hardware.NewFault(device, op, fmt.Errorf("bad value %q", f))
		}
		vals[i] = v
	}
	return vals, nil
}

// want calls and checks that the reply carries exactly n values.
func (b *Bridge) want(n int, device, op string, args ...float64) ([]float64, error) {
	vals, err := b.Call(device, op, args...)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, hardware.NewFault(device, op, fmt.Errorf("expected %d values, got %d", n, len(vals)))
	}
	return vals, nil
}

func (b *Bridge) float(device, op string) (float64, error) {
	vals, err := b.want(1, device, op)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

func (b *Bridge) flag(device, op string) (bool, error) {
	v, err := b.float(device, op)
	return v != 0, err
}

func (b *Bridge) exec(device, op string, args ...float64) error {
	_, err := b.Call(device, op, args...)
	return err
}

func boolArg(on bool) float64 {
	if on {
		return 1
	}
	return 0
}

// Rig exposes the hub through the driver interfaces.
func (b *Bridge) Rig() hardware.Rig {
	return hardware.Rig{
		Drive:      &Drive{b: b},
		IMU:        &IMU{b: b},
		LeftWheel:  &Motor{b: b, name: "left_wheel"},
		RightWheel: &Motor{b: b, name: "right_wheel"},
		LeftLift:   &Motor{b: b, name: "left_lift"},
		RightLift:  &Motor{b: b, name: "right_lift"},
	}
}
