package serial

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mission-runner/internal/hardware"
)

var _ hardware.DriveBase = (*Drive)(nil)
var _ hardware.Tunable = (*Drive)(nil)
var _ hardware.Motor = (*Motor)(nil)
var _ hardware.IMU = (*IMU)(nil)

// hub answers each request line through reply as soon as it is written.
type hub struct {
	pending  bytes.Buffer
	out      bytes.Buffer
	requests []string
	reply    func(seq, device, op string, args []string) string
}

func (h *hub) Write(p []byte) (int, error) {
	h.pending.Write(p)
	for {
		line, err := h.pending.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			h.pending.Reset()
			h.pending.WriteString(line)
			return len(p), nil
		}
		line = strings.TrimSpace(line)
		h.requests = append(h.requests, line)
		f := strings.Fields(line)
		if r := h.reply(f[0], f[1], f[2], f[3:]); r != "" {
			h.out.WriteString(r + "\n")
		}
	}
}

func (h *hub) Read(p []byte) (int, error) { return h.out.Read(p) }

func okHub(values map[string]string) *hub {
	h := &hub{}
	h.reply = func(seq, device, op string, _ []string) string {
		return strings.TrimSpace(seq + " ok " + values[device+" "+op])
	}
	return h
}

func TestRequestsAreEncoded(t *testing.T) {
	h := okHub(nil)
	rig := NewBridge(h).Rig()

	if err := rig.Drive.Curve(-150, 45.5); err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	if err := rig.RightLift.RunTime(200, 1500*time.Millisecond); err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	if err := rig.Drive.(hardware.Tunable).SetPID(hardware.PID{Kp: 1}, hardware.PID{Kp: 2, Kd: 0.5}); err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	want := []string{
		"1 drive curve -150 45.5",
		"2 right_lift run_time 200 1500",
		"3 drive pid 1 0 0 2 0 0.5",
	}
	if fmt.Sprint(h.requests) != fmt.Sprint(want) {
		t.Errorf("requests = %q, want %q", h.requests, want)
	}
}

func TestRepliesAreDecoded(t *testing.T) {
	h := okHub(map[string]string{
		"drive distance":   "312.5",
		"drive settings":   "250 700 120 400",
		"drive done":       "1",
		"imu heading":      "-89.9",
		"left_lift limits": "2000",
	})
	rig := NewBridge(h).Rig()

	if d, err := rig.Drive.Distance(); err != nil || d != 312.5 {
		t.Errorf("distance = %v, %v", d, err)
	}
	s, err := rig.Drive.Settings()
	if err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	if s != (hardware.Settings{StraightSpeed: 250, StraightAccel: 700, TurnRate: 120, TurnAccel: 400}) {
		t.Errorf("settings = %+v", s)
	}
	if done, err := rig.Drive.Done(); err != nil || !done {
		t.Errorf("done = %v, %v", done, err)
	}
	if hd, err := rig.IMU.Heading(); err != nil || hd != -89.9 {
		t.Errorf("heading = %v, %v", hd, err)
	}
	if l, err := rig.LeftLift.Limits(); err != nil || l.Accel != 2000 {
		t.Errorf("limits = %v, %v", l, err)
	}
}

func TestBadReplies(t *testing.T) {
	testCases := []struct {
		name  string
		reply func(seq string) string
	}{
		{name: "Hub error", reply: func(seq string) string { return seq + " err motor stalled" }},
		{name: "Wrong value count", reply: func(seq string) string { return seq + " ok 1 2" }},
		{name: "Not a number", reply: func(seq string) string { return seq + " ok abc" }},
		{name: "Unknown status", reply: func(seq string) string { return seq + " maybe" }},
		{name: "Out of sequence", reply: func(string) string { return "9 ok 1" }},
		{name: "Malformed", reply: func(string) string { return "hello" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := &hub{}
			h.reply = func(seq, _, _ string, _ []string) string { return tc.reply(seq) }
			_, err := NewBridge(h).Rig().LeftWheel.Angle()
			if err == nil {
				t.Fatal("Expected an error, but got nil")
			}
			var f *hardware.Fault
			if !errors.As(err, &f) || f.Device != "left_wheel" || f.Op != "angle" {
				t.Errorf("error %v is not a left_wheel angle fault", err)
			}
		})
	}
}

func TestLateRepliesAreSkipped(t *testing.T) {
	h := &hub{}
	h.reply = func(seq, _, _ string, _ []string) string {
		// the previous request's answer shows up just before this one's
		return "1 ok 5\n" + seq + " ok 7"
	}
	b := NewBridge(h)
	b.seq = 1
	v, err := b.Call("imu", "heading")
	if err != nil {
		t.Fatalf("Did not expect an error, but got: %v", err)
	}
	if len(v) != 1 || v[0] != 7 {
		t.Errorf("values = %v, want [7]", v)
	}
}

func TestLostLinkIsSticky(t *testing.T) {
	h := &hub{reply: func(string, string, string, []string) string { return "" }}
	b := NewBridge(h)

	_, err := b.Call("drive", "stop")
	if !errors.Is(err, hardware.ErrDisconnected) {
		t.Fatalf("expected a disconnected fault, got %v", err)
	}
	h.reply = func(seq, _, _ string, _ []string) string { return seq + " ok" }
	if _, err := b.Call("drive", "stop"); !errors.Is(err, hardware.ErrDisconnected) {
		t.Errorf("a broken link should stay broken, got %v", err)
	}
	if len(h.requests) != 1 {
		t.Errorf("requests after the link broke: %q", h.requests)
	}
}
