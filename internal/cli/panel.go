package cli

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/logger"
	"mission-runner/internal/panel"
	"mission-runner/internal/tui"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Run the mission menu with a terminal hub",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd.Context())
	},
}

func runPanel(ctx context.Context) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	s, err := openSession(reg, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	p := tea.NewProgram(tui.New(reg, s.panel), tea.WithAltScreen(), tea.WithContext(ctx))
	s.attach(tui.Writer(p))
	s.panel.Watch(func(v panel.View) { p.Send(tui.ViewMsg(v)) })

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		err := s.menu(ctx, 0, dispatcher.WithObserver(func(st dispatcher.Status) {
			p.Send(tui.StatusMsg(st))
		}))
		if err != nil {
			logger.Log.Printf("[CLI] dispatcher stopped: %v", err)
		}
		p.Send(tui.DoneMsg{Err: err})
		done <- err
	}()

	_, runErr := p.Run()
	cancel()
	menuErr := <-done
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return menuErr
}
