// Package goldmark renders assistant answers (markdown) to ANSI-styled
// terminal output, using goldmark for parsing and lipgloss for styling.
package goldmark

import "kgchat"

// Render parses markdown source and returns ANSI-styled output wrapped
// to width. Code blocks keep their own lines and are never reflowed.
func Render(source string, width int, theme kgchat.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	w := &walker{styles: newStyles(theme), width: width}
	return w.render([]byte(source))
}

// Plain renders markdown source as unstyled text wrapped to width, for
// transcript export and other non-terminal output.
func Plain(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	w := &walker{styles: plainStyles(), width: width}
	return w.render([]byte(source))
}
