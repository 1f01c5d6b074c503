package listener

import (
	"fmt"
	"testing"

	"mission-runner/internal/hardware"
	"mission-runner/internal/panel"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		line        string
		want        Command
		expectError bool
	}{
		{name: "Next", line: "n", want: Command{Button: hardware.Right}},
		{name: "Prev arrow", line: " < ", want: Command{Button: hardware.Left}},
		{name: "Go at full range", line: "GO", want: Command{Force: -1}},
		{name: "Go with force", line: "g 3.5", want: Command{Force: 3.5}},
		{name: "Bad force", line: "g hard", expectError: true},
		{name: "Quit", line: "exit", want: Command{Quit: true}},
		{name: "Empty line", line: "   ", want: Command{}},
		{name: "Unknown", line: "jump", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.line)
			if tc.expectError {
				if err == nil {
					t.Error("Expected an error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Did not expect an error, but got: %v", err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestApplyDrivesPanel(t *testing.T) {
	p := panel.New(10)
	for _, line := range []string{"n", "g 2", "g"} {
		cmd, err := Parse(line)
		if err != nil {
			t.Fatal(err)
		}
		cmd.Apply(p)
	}

	pressed, _ := p.Pressed()
	if !pressed[hardware.Right] {
		t.Errorf("pressed = %v", pressed)
	}
	if f, _ := p.Force(); f != 10 {
		t.Errorf("force = %v, want full range", f)
	}
}

func TestWriterSplitsLines(t *testing.T) {
	// without readline the writer falls back to stdout; only buffering is checked
	w := Writer().(*lineWriter)
	fmt.Fprint(w, "partial")
	if w.buf.String() != "partial" {
		t.Fatalf("buffer = %q", w.buf.String())
	}
	fmt.Fprint(w, " line\nnext")
	if w.buf.String() != "next" {
		t.Errorf("buffer after newline = %q", w.buf.String())
	}
}
