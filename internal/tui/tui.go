// Package tui is the interactive board: columns of lists that can be
// reordered from the keyboard or by dragging with the mouse.
package tui

import (
	"context"
	"log/slog"

	"planner-cli/internal/board"
	"planner-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	// NoColor renders without colors.
	NoColor bool
	Logger  *slog.Logger
}

// Notifier turns board change callbacks into program messages. Notify never
// blocks, so it is safe to call while the board holds its locks.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify is a board.WithOnChange callback.
func (n *Notifier) Notify(model.Scope) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

type boardChangedMsg struct{}

func (n *Notifier) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-n.ch:
			return boardChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Run shows b until the user quits or ctx ends. b must have been created
// with board.WithOnChange(n.Notify).
func Run(ctx context.Context, b *board.Board, n *Notifier, opts Options) error {
	if opts.NoColor {
		plainColors()
	}
	m := newModel(ctx, b, n, opts)
	final, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	).Run()
	if fm, ok := final.(boardModel); ok {
		m = fm
	}
	m.saveState()
	m.close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
