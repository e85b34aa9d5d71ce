package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run mounts the shell for one session and blocks until the user quits or
// ctx is cancelled. The session is destroyed on return.
func Run(ctx context.Context, opts Options) error {
	defer opts.Controller.Destroy()

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running player UI: %w", err)
	}
	return nil
}
