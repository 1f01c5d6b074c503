package panel

import (
	"testing"

	"mission-runner/internal/hardware"
)

var _ hardware.Panel = (*Panel)(nil)

func TestInputIsLatchedOnce(t *testing.T) {
	p := New(0)
	p.Press(hardware.Right)
	p.Push(3)
	p.Push(7)
	p.Push(2)

	pressed, _ := p.Pressed()
	if !pressed[hardware.Right] || pressed[hardware.Left] {
		t.Errorf("pressed = %v", pressed)
	}
	if f, _ := p.Force(); f != 7 {
		t.Errorf("force = %v, want the strongest pulse 7", f)
	}

	pressed, _ = p.Pressed()
	if len(pressed) != 0 {
		t.Errorf("edge reported twice: %v", pressed)
	}
	if f, _ := p.Force(); f != 0 {
		t.Errorf("force not cleared: %v", f)
	}
}

func TestRepeatedPressesCollapse(t *testing.T) {
	p := New(0)
	p.Press(hardware.Right)
	p.Press(hardware.Right)
	p.Press(hardware.Left)

	pressed, _ := p.Pressed()
	if len(pressed) != 2 || !pressed[hardware.Right] || !pressed[hardware.Left] {
		t.Errorf("pressed = %v, want one edge each for Right and Left", pressed)
	}
	if pressed, _ = p.Pressed(); len(pressed) != 0 {
		t.Errorf("second press of Right was kept: %v", pressed)
	}
}

func TestTriggerUsesFullRange(t *testing.T) {
	p := New(4)
	p.Trigger()
	if f, _ := p.Force(); f != 4 {
		t.Errorf("force = %v, want 4", f)
	}
	if p.Range() != 4 {
		t.Errorf("range = %v", p.Range())
	}
}

func TestWatchSeesChangesOnly(t *testing.T) {
	p := New(0)
	var views []View
	p.Watch(func(v View) { views = append(views, v) })

	_ = p.Char('3')
	_ = p.Char('3')
	_ = p.On(hardware.Red)
	_ = p.Off()

	if len(views) != 3 {
		t.Fatalf("got %d notifications, want 3: %+v", len(views), views)
	}
	if views[1] != (View{Glyph: '3', Light: hardware.Red}) {
		t.Errorf("second view = %+v", views[1])
	}
	if p.View().Light != hardware.Off {
		t.Errorf("light = %v", p.View().Light)
	}
}
