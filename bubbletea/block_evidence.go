package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kgchat"
)

var _ MessageBlock = (*EvidenceBlock)(nil)

// inlineEvidence is how many results show while collapsed; the full set
// is available by toggling.
const inlineEvidence = 2

// EvidenceBlock renders the retrieval result set for a question. The
// two highest-scored entries show inline; Tab expands the full set.
type EvidenceBlock struct {
	results   []kgchat.RetrievalResult
	styles    Styles
	collapsed bool
}

// NewEvidenceBlock creates an EvidenceBlock, collapsed.
func NewEvidenceBlock(results []kgchat.RetrievalResult, styles Styles) *EvidenceBlock {
	return &EvidenceBlock{results: results, styles: styles, collapsed: true}
}

// SetResults replaces the result set, e.g. when the sidecar's fresher
// set supersedes the answer metadata's embedded summary.
func (b *EvidenceBlock) SetResults(results []kgchat.RetrievalResult) {
	b.results = results
}

func (b *EvidenceBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *EvidenceBlock) View(width int) string {
	if len(b.results) == 0 {
		return ""
	}

	shown := b.results
	if b.collapsed && len(shown) > inlineEvidence {
		shown = shown[:inlineEvidence]
	}

	var lines []string
	lines = append(lines, b.styles.Muted.Render("evidence"))
	for _, r := range shown {
		line := fmt.Sprintf("  [%s] %.2f %s", r.ID, r.Score, r.Snippet)
		lines = append(lines, b.styles.Evidence.Render(line))
	}
	if hidden := len(b.results) - len(shown); hidden > 0 {
		lines = append(lines, b.styles.Muted.Render(fmt.Sprintf("  … %d more (tab to expand)", hidden)))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
