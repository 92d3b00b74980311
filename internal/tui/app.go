package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/chatlog/internal/model"
)

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, reader model.Reader, opts Options) error {
	p := tea.NewProgram(NewDashboardModel(reader, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
