package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"kgchat"
	"kgchat/goldmark"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force ANSI output so styled elements produce visible escape codes
	// the assertions can see.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := kgchat.DefaultTheme()

	t.Run("empty input returns empty string", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", goldmark.Render("", 80, theme))
	})

	t.Run("plain answer text survives unchanged", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("Defect X is caused by moisture.", 80, theme)
		assert.Equal(t, "Defect X is caused by moisture.", stripANSI(result))
	})

	t.Run("paragraph wraps to width", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("one two three four five six seven eight", 15, theme)
		for _, line := range strings.Split(stripANSI(result), "\n") {
			assert.LessOrEqual(t, len(line), 15)
		}
	})

	t.Run("heading is styled differently from a paragraph", func(t *testing.T) {
		t.Parallel()
		heading := goldmark.Render("# Root cause", 80, theme)
		paragraph := goldmark.Render("Root cause", 80, theme)
		assert.Contains(t, stripANSI(heading), "Root cause")
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("emphasis and code spans keep their text", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("**critical** *maybe* `MATCH (n)`", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "critical")
		assert.Contains(t, plain, "maybe")
		assert.Contains(t, plain, "MATCH (n)")
	})

	t.Run("fenced code block is never reflowed", func(t *testing.T) {
		t.Parallel()
		src := "```cypher\nMATCH (d:Defect)-[:CAUSED_BY]->(c) RETURN c\n```"
		result := goldmark.Render(src, 20, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "MATCH (d:Defect)-[:CAUSED_BY]->(c) RETURN c")
		assert.Contains(t, plain, "cypher")
	})

	t.Run("unordered list gets bullet markers", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("- moisture\n- vibration", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "• moisture")
		assert.Contains(t, plain, "• vibration")
	})

	t.Run("ordered list keeps numbering", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("1. inspect\n2. reflow\n3. coat", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "1. inspect")
		assert.Contains(t, plain, "3. coat")
	})

	t.Run("long list items align continuation lines", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("- aaa bbb ccc ddd eee fff", 14, theme)
		lines := strings.Split(stripANSI(result), "\n")
		assert.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "• "))
		assert.True(t, strings.HasPrefix(lines[1], "  "))
	})

	t.Run("html blocks pass through raw", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("<br/>\n", 80, theme)
		assert.Contains(t, stripANSI(result), "<br/>")
	})

	t.Run("inline html passes through raw", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("a <sub>2</sub> b", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "<sub>")
		assert.Contains(t, plain, "</sub>")
	})

	t.Run("indented code block keeps every line", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("    first line\n    second line", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "first line")
		assert.Contains(t, plain, "second line")
	})

	t.Run("links keep text and destination", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("[datasheet](http://kg/doc/7)", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "datasheet")
		assert.Contains(t, plain, "(http://kg/doc/7)")
	})

	t.Run("zero width falls back to a sane default", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Render("hello", 0, theme)
		assert.Contains(t, stripANSI(result), "hello")
	})
}

func TestPlain(t *testing.T) {
	t.Parallel()

	t.Run("emits no escape sequences", func(t *testing.T) {
		t.Parallel()
		result := goldmark.Plain("# Title\n\n**bold** and `code`\n\n- item", 80)
		assert.Equal(t, result, stripANSI(result))
		assert.Contains(t, result, "Title")
		assert.Contains(t, result, "bold")
		assert.Contains(t, result, "• item")
	})

	t.Run("empty input returns empty string", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", goldmark.Plain("", 80))
	})
}
