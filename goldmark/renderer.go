package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"kgchat"
)

// styles holds the resolved lipgloss styles for one rendering pass.
type styles struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	underline lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	code      lipgloss.Style
}

func newStyles(theme kgchat.Theme) styles {
	return styles{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		underline: lipgloss.NewStyle().Underline(true),
		heading:   lipgloss.NewStyle().Foreground(themeColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(themeColor(theme.Muted)).Faint(true),
		code:      lipgloss.NewStyle().Background(themeColor(theme.CodeBg)),
	}
}

// plainStyles renders everything as-is, for non-terminal output.
func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{bold: plain, italic: plain, underline: plain, heading: plain, muted: plain, code: plain}
}

func themeColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// walker renders a parsed markdown tree block by block at a fixed width.
type walker struct {
	styles styles
	width  int
}

func (w *walker) render(source []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	w.blocks(doc, source, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

func (w *walker) blocks(node ast.Node, source []byte, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c, source, buf)
	}
}

// blockGap separates sibling blocks with a blank line.
func blockGap(node ast.Node, buf *bytes.Buffer) {
	if node.NextSibling() != nil {
		buf.WriteString("\n")
	}
}

func (w *walker) block(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph:
		buf.WriteString(w.wrap(w.inlines(n, source), w.width))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.Heading:
		buf.WriteString(w.wrap(w.styles.heading.Render(w.inlines(n, source)), w.width))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(w.styles.muted.Render(lang))
			buf.WriteString("\n")
		}
		w.codeLines(n.Lines(), source, buf)
		blockGap(n, buf)

	case *ast.CodeBlock:
		w.codeLines(n.Lines(), source, buf)
		blockGap(n, buf)

	case *ast.List:
		w.list(n, source, buf, 0)
		blockGap(n, buf)

	case *ast.ThematicBreak:
		buf.WriteString(w.styles.muted.Render(strings.Repeat("─", min(w.width, 24))))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(source))
		}

	default:
		// Blockquotes and anything unrecognized: render the children
		// unadorned.
		w.blocks(node, source, buf)
	}
}

func (w *walker) codeLines(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	gutter := w.styles.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content := strings.TrimRight(string(line.Value(source)), "\n")
		buf.WriteString(gutter + w.styles.code.Render(content))
		buf.WriteString("\n")
	}
}

func (w *walker) list(node *ast.List, source []byte, buf *bytes.Buffer, depth int) {
	num := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		var itemBuf bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				itemBuf.WriteString(w.inlines(in, source))
			case *ast.List:
				if itemBuf.Len() > 0 {
					w.listItem(buf, prefix, itemBuf.String())
					itemBuf.Reset()
					prefix = strings.Repeat(" ", runewidth.StringWidth(prefix))
				}
				w.list(in, source, buf, depth+1)
			default:
				w.block(ic, source, &itemBuf)
			}
		}
		if itemBuf.Len() > 0 {
			w.listItem(buf, prefix, itemBuf.String())
		}
	}
}

// listItem writes one item with continuation lines aligned under the
// first character after the marker. Marker width is measured in
// terminal cells, not bytes, so wide markers stay aligned.
func (w *walker) listItem(buf *bytes.Buffer, prefix, content string) {
	cells := runewidth.StringWidth(prefix)
	itemWidth := w.width - cells
	if itemWidth < 10 {
		itemWidth = 10
	}
	continuation := strings.Repeat(" ", cells)
	for i, line := range strings.Split(w.wrap(content, itemWidth), "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
		} else {
			buf.WriteString(continuation + line + "\n")
		}
	}
}

func (w *walker) wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (w *walker) inlines(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.inline(c, source, &buf)
	}
	return buf.String()
}

func (w *walker) inline(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() {
			buf.WriteByte(' ')
		}
		if n.HardLineBreak() {
			buf.WriteByte('\n')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := w.inlines(n, source)
		if n.Level == 1 {
			buf.WriteString(w.styles.italic.Render(inner))
		} else {
			buf.WriteString(w.styles.bold.Render(inner))
		}

	case *ast.CodeSpan:
		buf.WriteString(w.styles.code.Render(w.inlines(n, source)))

	case *ast.Link:
		buf.WriteString(w.styles.underline.Render(w.inlines(n, source)))
		buf.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(w.styles.underline.Render(string(n.URL(source))))

	case *ast.Image:
		buf.WriteString(w.styles.underline.Render(w.inlines(n, source)))
		buf.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.inline(c, source, buf)
		}
	}
}
