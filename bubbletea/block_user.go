package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*UserTurnBlock)(nil)

// UserTurnBlock renders a user question.
type UserTurnBlock struct {
	text   string
	styles Styles
}

// NewUserTurnBlock creates a UserTurnBlock.
func NewUserTurnBlock(text string, styles Styles) *UserTurnBlock {
	return &UserTurnBlock{text: text, styles: styles}
}

func (b *UserTurnBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *UserTurnBlock) View(width int) string {
	prompt := b.styles.UserMsg.Render("> ")
	return lipgloss.NewStyle().Width(width).Render(prompt + b.text)
}
