package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the session until the user quits or ctx is cancelled.
// Wallet access requests raised through prompter are answered in the UI.
func Run(ctx context.Context, sess Session, prompter *Prompter) error {
	updates, cancel := sess.Subscribe()
	defer cancel()

	p := tea.NewProgram(newModel(ctx, sess, updates, prompter), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
