// Package panel is a software stand-in for the hub's buttons, force sensor,
// display and status light. Operator input arrives from the console or the
// terminal UI; output is observed by whoever renders it.
package panel

import (
	"sync"

	"mission-runner/internal/hardware"
)

// DefaultRange is the force sensor range in newtons.
const DefaultRange = 10.0

// View is what the hub currently shows.
type View struct {
	Glyph rune
	Light hardware.Color
}

// Panel implements hardware.Panel. Button presses and force pulses are
// latched until the dispatcher polls them. Repeated presses of one button
// between two polls collapse into a single edge.
type Panel struct {
	mu      sync.Mutex
	view    View
	pressed map[hardware.Button]bool
	force   float64
	max     float64
	watch   []func(View)
}

func New(max float64) *Panel {
	if max <= 0 {
		max = DefaultRange
	}
	return &Panel{view: View{Glyph: ' '}, pressed: map[hardware.Button]bool{}, max: max}
}

// Press latches a button edge. A button already pending stays pending once.
func (p *Panel) Press(b hardware.Button) {
	p.mu.Lock()
	p.pressed[b] = true
	p.mu.Unlock()
}

// Push latches a force reading. The strongest pending pulse wins.
func (p *Panel) Push(force float64) {
	p.mu.Lock()
	if force > p.force {
		p.force = force
	}
	p.mu.Unlock()
}

// Trigger pushes a full-range pulse.
func (p *Panel) Trigger() { p.Push(p.max) }

// Watch registers fn to be called with every change of the view. fn must
// not block.
func (p *Panel) Watch(fn func(View)) {
	p.mu.Lock()
	p.watch = append(p.watch, fn)
	p.mu.Unlock()
}

func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Panel) update(fn func(*View)) {
	p.mu.Lock()
	before := p.view
	fn(&p.view)
	after := p.view
	watch := append([]func(View){}, p.watch...)
	p.mu.Unlock()

	if after == before {
		return
	}
	for _, w := range watch {
		w(after)
	}
}

func (p *Panel) Char(r rune) error {
	p.update(func(v *View) { v.Glyph = r })
	return nil
}

func (p *Panel) On(c hardware.Color) error {
	p.update(func(v *View) { v.Light = c })
	return nil
}

func (p *Panel) Off() error { return p.On(hardware.Off) }

// Pressed returns and clears the latched button edges.
func (p *Panel) Pressed() (map[hardware.Button]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pressed
	p.pressed = map[hardware.Button]bool{}
	return out, nil
}

// Force returns and clears the latched force pulse.
func (p *Panel) Force() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.force
	p.force = 0
	return f, nil
}

func (p *Panel) Range() float64 { return p.max }
