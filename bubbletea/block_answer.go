package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"kgchat"
	"kgchat/goldmark"
)

var _ MessageBlock = (*AnswerBlock)(nil)

// AnswerBlock renders a streamed answer with markdown formatting.
// Paragraphs ending at the last double newline are rendered once per
// width and cached; only the trailing in-flight text is re-rendered on
// each delta.
type AnswerBlock struct {
	content strings.Builder
	theme   kgchat.Theme

	// stableRaw is the prefix ending at the last double newline outside
	// any open code fence.
	stableRaw     string
	stableByWidth map[int]string
}

// NewAnswerBlock creates a block for a streamed assistant answer.
func NewAnswerBlock(theme kgchat.Theme) *AnswerBlock {
	return &AnswerBlock{
		theme:         theme,
		stableByWidth: make(map[int]string),
	}
}

// Append adds an answer text delta.
func (b *AnswerBlock) Append(text string) {
	b.content.WriteString(text)
	b.promoteStable()
}

func (b *AnswerBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AnswerBlock) View(width int) string {
	stable := b.renderStable(width)
	trailing := b.trailingRaw()
	if openFence(trailing) {
		// Close the fence for rendering only, so partial code blocks
		// display safely mid-stream.
		trailing += "\n```"
	}
	if trailing == "" {
		return stable
	}
	rendered := goldmark.Render(trailing, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return stable
	}
	if stable == "" {
		return rendered
	}
	return strings.TrimRight(stable, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteStable finds the last paragraph boundary that does not fall
// inside an open code fence and freezes everything before it.
func (b *AnswerBlock) promoteStable() {
	raw := b.content.String()
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !openFence(candidate) {
			if candidate != b.stableRaw {
				b.stableRaw = candidate
				clear(b.stableByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AnswerBlock) renderStable(width int) string {
	if width <= 0 || b.stableRaw == "" {
		return ""
	}
	if cached, ok := b.stableByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.stableRaw, width, b.theme)
	b.stableByWidth[width] = rendered
	return rendered
}

func (b *AnswerBlock) trailingRaw() string {
	raw := b.content.String()
	if b.stableRaw == "" {
		return raw
	}
	return strings.TrimPrefix(raw, b.stableRaw+"\n\n")
}

// openFence reports whether s ends inside a fenced code block, using a
// simple odd-count heuristic over "```" occurrences.
func openFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
