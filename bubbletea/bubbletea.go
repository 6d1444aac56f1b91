// Package bubbletea provides the Bubble Tea TUI for kgchat: the chat
// viewport with streamed answers, the session picker, and the memory
// consolidation overlay.
package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"

	"kgchat"
)

// Run starts the TUI program and blocks until it exits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// StreamEventMsg wraps a progress event for delivery to the model.
type StreamEventMsg struct {
	Event kgchat.Event
}

// AskDoneMsg signals that an Ask call has completed.
type AskDoneMsg struct {
	Turn kgchat.Turn
	Err  error
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
type ToggleMsg struct{}
