package kgchat

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg  int // User turn accent
	Evidence int // Inline evidence snippets
	Error    int // Error messages
	Success  int // Success indicators
	Muted    int // Status bar, notices, placeholders
	CodeBg   int // Code block background
	Accent   int // Headings, links, session titles
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:  4,
		Evidence: 6,
		Error:    1,
		Success:  2,
		Muted:    8,
		CodeBg:   0,
		Accent:   5,
	}
}
