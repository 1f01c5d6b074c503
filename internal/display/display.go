// Package display renders runner state for the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/hardware"
	"mission-runner/internal/mission"
	"mission-runner/internal/panel"
)

const maxParamLength = 40

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	hubStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

var lightColors = map[hardware.Color]lipgloss.Color{
	hardware.Off:   lipgloss.Color("240"),
	hardware.Green: lipgloss.Color("42"),
	hardware.Blue:  lipgloss.Color("33"),
	hardware.Red:   lipgloss.Color("196"),
}

// FormatCatalog lists the registered missions in menu order, marking the
// entry at selected. Pass -1 to mark none.
func FormatCatalog(reg *mission.Registry, selected int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d mission(s):", reg.Len())) + "\n")
	for i, e := range reg.Entries() {
		line := fmt.Sprintf("[%c] %-8s %s", e.Glyph(), e.ID, e.Label)
		if len(e.Params) > 0 {
			line += mutedStyle.Render("  " + formatParams(e.Params))
		}
		if i == selected {
			sb.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String()
}

// FormatPanel draws the hub: the selection glyph inside a frame colored like
// the status light.
func FormatPanel(v panel.View) string {
	glyph := v.Glyph
	if glyph == 0 {
		glyph = ' '
	}
	style := hubStyle.BorderForeground(lightColors[v.Light])
	return style.Render(string(glyph)) + "\n" + mutedStyle.Render("light: "+v.Light.String())
}

// FormatStatus is the one-line dispatcher summary.
func FormatStatus(s dispatcher.Status) string {
	line := fmt.Sprintf("%s  %s (%s)", headerStyle.Render(s.State.String()), s.Selected.ID, s.Selected.Label)
	if s.Last != nil {
		line += mutedStyle.Render("  last: " + formatRunShort(*s.Last))
	}
	return line
}

func formatParams(a mission.Args) string {
	s := strings.Join(a, " ")
	if len(s) > maxParamLength {
		return s[:maxParamLength] + "..."
	}
	return s
}
