package bubbletea

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"kgchat"
	"kgchat/chat"
	"kgchat/goldmark"
)

var _ tea.Model = Model{}

// mode is the model's interaction mode.
type mode int

const (
	modeChat mode = iota
	modePicker
	modeSelecting
	modeReviewing
)

// Model is the Bubble Tea model for the kgchat TUI.
type Model struct {
	// Input is the question input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation area. Exported for test access.
	Viewport viewport.Model

	chat   *chat.Chat
	theme  kgchat.Theme
	styles Styles

	mode   mode
	blocks []MessageBlock

	// Active blocks for the in-flight answer.
	answer   *AnswerBlock
	evidence *EvidenceBlock

	asking  bool
	cancel  context.CancelFunc
	eventCh chan kgchat.Event
	doneCh  chan AskDoneMsg

	// Session picker state.
	sessions []kgchat.Session
	cursor   int

	// Consolidation selection cursor.
	selCursor int

	err    error
	status string
	ready  bool
}

// New creates the TUI model over a started Chat.
func New(c *chat.Chat, theme kgchat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the knowledge graph..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:  ti,
		chat:   c,
		theme:  theme,
		styles: NewStyles(theme),
	}
}

// Asking returns whether an answer is currently streaming.
func (m Model) Asking() bool { return m.asking }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Internal command results.
type sessionsMsg struct {
	sessions []kgchat.Session
	err      error
}

type switchedMsg struct{ err error }

// deletedMsg reports a session deletion. A delete can displace the
// active session, so the conversation blocks must be rebuilt.
type deletedMsg struct{ err error }

type summaryMsg struct {
	summary kgchat.MemorySummary
	err     error
}

type commitMsg struct {
	result kgchat.CommitResult
	err    error
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listen(m.eventCh, m.doneCh)
		}
		return m, nil

	case AskDoneMsg:
		// Give buffered sidecar events a last chance before the
		// channels go away.
		for drained := true; drained && m.eventCh != nil; {
			select {
			case e := <-m.eventCh:
				m = m.processEvent(e)
			default:
				drained = false
			}
		}
		m.asking = false
		if m.cancel != nil {
			// Ask has returned; releasing the context also unblocks a
			// still-running sidecar's event sends.
			m.cancel()
		}
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		m.answer = nil
		m.err = msg.Err
		m.status = ""
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)

	case sessionsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = modeChat
			return m, nil
		}
		m.sessions = msg.sessions
		m.cursor = 0
		if m.mode == modePicker {
			m.Viewport.SetContent(m.renderPicker())
		}
		return m, nil

	case switchedMsg:
		m.mode = modeChat
		if msg.err != nil {
			m.err = msg.err
			m.Viewport.SetContent(m.renderContent())
			return m, nil
		}
		m = m.rebuildFromLog()
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = modeChat
			m.Viewport.SetContent(m.renderContent())
			return m, nil
		}
		m = m.rebuildFromLog()
		m.Viewport.SetContent(m.renderPicker())
		return m, m.loadSessions()

	case summaryMsg:
		if msg.err != nil {
			m.err = msg.err
			// An empty selection keeps the workflow selecting; any
			// other failure discarded the candidate.
			if m.chat.ConsolidationState() == chat.ConsolidationSelecting {
				m.Viewport.SetContent(m.renderSelection())
			} else {
				m.mode = modeChat
				m.Viewport.SetContent(m.renderContent())
			}
			return m, nil
		}
		m.mode = modeReviewing
		m.err = nil
		m.Viewport.SetContent(m.renderReview(msg.summary))
		return m, nil

	case commitMsg:
		if msg.err != nil {
			m.err = msg.err
			m.Viewport.SetContent(m.renderReview(m.chat.Summary()))
			return m, nil
		}
		m.mode = modeChat
		m.err = nil
		text := fmt.Sprintf("memory committed (%s): %s", msg.result.Relationship, msg.result.Message)
		m.blocks = append(m.blocks, NewNoticeBlock(text, m.styles))
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.mode == modeChat && !m.asking {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := msg.Height - 3 // input + status + separators
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.rebuildFromLog()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
		m.Viewport.SetContent(m.renderContent())
	}
	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modePicker:
		return m.handlePickerKey(msg)
	case modeSelecting:
		return m.handleSelectingKey(msg)
	case modeReviewing:
		return m.handleReviewingKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.asking {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.asking {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitQuestion(text)

	case tea.KeyCtrlS:
		if m.asking {
			return m, nil
		}
		m.mode = modePicker
		return m, m.loadSessions()

	case tea.KeyCtrlK:
		if m.asking {
			return m, nil
		}
		if err := m.chat.BeginConsolidation(); err != nil {
			m.err = err
			return m, nil
		}
		m.mode = modeSelecting
		m.selCursor = 0
		m.err = nil
		m.Viewport.SetContent(m.renderSelection())
		return m, nil

	case tea.KeyTab:
		if m.evidence != nil && !m.asking {
			block, cmd := m.evidence.Update(ToggleMsg{})
			m.evidence = block.(*EvidenceBlock)
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil
	}

	if !m.asking {
		var cmd tea.Cmd
		var cmds []tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s":
		m.mode = modeChat
		m.Viewport.SetContent(m.renderContent())
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.Viewport.SetContent(m.renderPicker())
		return m, nil
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
		m.Viewport.SetContent(m.renderPicker())
		return m, nil
	case "enter":
		if m.cursor < len(m.sessions) {
			id := m.sessions[m.cursor].ID
			return m, func() tea.Msg {
				return switchedMsg{err: m.chat.Switch(context.Background(), id)}
			}
		}
		return m, nil
	case "n":
		return m, func() tea.Msg {
			_, err := m.chat.NewSession(context.Background(), "")
			return switchedMsg{err: err}
		}
	case "d":
		if m.cursor < len(m.sessions) {
			id := m.sessions[m.cursor].ID
			return m, func() tea.Msg {
				return deletedMsg{err: m.chat.Delete(context.Background(), id)}
			}
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleSelectingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	turns := m.chat.Turns()
	switch msg.String() {
	case "esc":
		if err := m.chat.CancelConsolidation(); err == nil {
			m.mode = modeChat
			m.err = nil
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	case "up", "k":
		if m.selCursor > 0 {
			m.selCursor--
		}
		m.Viewport.SetContent(m.renderSelection())
		return m, nil
	case "down", "j":
		if m.selCursor < len(turns)-1 {
			m.selCursor++
		}
		m.Viewport.SetContent(m.renderSelection())
		return m, nil
	case " ":
		if err := m.chat.ToggleTurn(m.selCursor); err != nil {
			m.err = err
		}
		m.Viewport.SetContent(m.renderSelection())
		return m, nil
	case "enter":
		return m, func() tea.Msg {
			summary, err := m.chat.SubmitSelection(context.Background())
			return summaryMsg{summary: summary, err: err}
		}
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleReviewingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		return m, func() tea.Msg {
			result, err := m.chat.ConfirmCommit(context.Background())
			return commitMsg{result: result, err: err}
		}
	case "esc", "n":
		if err := m.chat.CancelConsolidation(); err == nil {
			m.mode = modeChat
			m.err = nil
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) submitQuestion(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.status = "answering"

	m.blocks = append(m.blocks, NewUserTurnBlock(text, m.styles))
	m.answer = nil
	m.evidence = nil
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan kgchat.Event, 256)
	m.doneCh = make(chan AskDoneMsg, 1)
	m.asking = true
	m.Input.Blur()

	return m, tea.Batch(
		startAsk(ctx, m.chat, text, m.eventCh, m.doneCh),
		listen(m.eventCh, m.doneCh),
	)
}

// rebuildFromLog recreates the conversation blocks from the active
// session's turn log, e.g. after startup or a session switch.
func (m Model) rebuildFromLog() Model {
	m.blocks = nil
	m.answer = nil
	m.evidence = nil
	for _, turn := range m.chat.Turns() {
		switch turn.Role {
		case kgchat.RoleUser:
			m.blocks = append(m.blocks, NewUserTurnBlock(turn.Content, m.styles))
		case kgchat.RoleAssistant:
			block := NewAnswerBlock(m.theme)
			block.Append(turn.Content)
			m.blocks = append(m.blocks, block)
		}
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return m.styles.Muted.Render("No turns yet. Ask a question to get started.")
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// processEvent routes a progress event to the appropriate block.
func (m Model) processEvent(evt kgchat.Event) Model {
	switch e := evt.(type) {
	case kgchat.EventTextDelta:
		if m.answer == nil {
			m.answer = NewAnswerBlock(m.theme)
			m.blocks = append(m.blocks, m.answer)
		}
		m.answer.Append(e.Delta)

	case kgchat.EventEvidence:
		if m.evidence == nil {
			m.evidence = NewEvidenceBlock(e.Results, m.styles)
			m.blocks = append(m.blocks, m.evidence)
		} else {
			m.evidence.SetResults(e.Results)
		}

	case kgchat.EventGraphQuery:
		m.blocks = append(m.blocks, NewNoticeBlock("graph query: "+e.Query, m.styles))

	case kgchat.EventQuerySuggestion:
		m.blocks = append(m.blocks, NewNoticeBlock("suggested query: "+e.Suggestion.Query, m.styles))

	case kgchat.EventNotice:
		m.blocks = append(m.blocks, NewNoticeBlock(e.Text, m.styles))
	}
	return m
}

func (m Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Sessions"))
	b.WriteString("\n\n")
	if len(m.sessions) == 0 {
		b.WriteString(m.styles.Muted.Render("no sessions"))
	}
	maxTitle := m.Viewport.Width - 6
	if maxTitle < 8 {
		maxTitle = 8
	}
	for i, s := range m.sessions {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		title = runewidth.Truncate(title, maxTitle, "…")
		line := fmt.Sprintf("  %s (%d)", title, s.TurnCount)
		if i == m.cursor {
			line = m.styles.Accent.Render("▸" + line[1:])
		}
		if s.ID == m.chat.Active().ID {
			line += m.styles.Muted.Render(" · active")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("enter switch · n new · d delete · esc close"))
	return b.String()
}

func (m Model) renderSelection() string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render(fmt.Sprintf("Consolidate memory · %d selected", m.chat.SelectedCount())))
	b.WriteString("\n\n")
	maxLine := m.Viewport.Width - 10
	if maxLine < 8 {
		maxLine = 8
	}
	for i, turn := range m.chat.Turns() {
		mark := "[ ]"
		if m.chat.Selected(i) {
			mark = m.styles.Selected.Render("[x]")
		}
		cursor := "  "
		if i == m.selCursor {
			cursor = m.styles.Accent.Render("▸ ")
		}
		content := strings.SplitN(turn.Content, "\n", 2)[0]
		content = runewidth.Truncate(content, maxLine, "…")
		b.WriteString(fmt.Sprintf("%s%s %s: %s\n", cursor, mark, turn.Role, content))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("space toggle · enter summarize · esc cancel"))
	return b.String()
}

func (m Model) renderReview(summary kgchat.MemorySummary) string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Review memory summary"))
	b.WriteString("\n\n")
	b.WriteString(goldmark.Render(summary.Summary, m.Viewport.Width, m.theme))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(m.styles.Error.Render("commit failed: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render("y commit · esc discard"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render("Error: " + m.err.Error())
	}
	if m.asking {
		return m.styles.Muted.Render("Answering...")
	}
	title := m.chat.Active().Title
	if title == "" {
		title = m.chat.Active().ID
	}
	title = runewidth.Truncate(title, 32, "…")
	hints := "enter send · ctrl+s sessions · ctrl+k consolidate · ctrl+c quit"
	return m.styles.Accent.Render(title) + "  " + m.styles.Muted.Render(hints)
}

// loadSessions fetches the registry fresh from the remote store.
func (m Model) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.chat.Sessions(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

// startAsk runs the Ask call on its own goroutine, forwarding progress
// events into eventCh and the outcome into doneCh.
func startAsk(ctx context.Context, c *chat.Chat, question string, eventCh chan<- kgchat.Event, doneCh chan<- AskDoneMsg) tea.Cmd {
	return func() tea.Msg {
		turn, err := c.Ask(ctx, question, chat.WithEventHandler(func(e kgchat.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		}))
		doneCh <- AskDoneMsg{Turn: turn, Err: err}
		return nil
	}
}

// listen waits for the next progress event or the Ask outcome.
func listen(eventCh <-chan kgchat.Event, doneCh <-chan AskDoneMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-eventCh:
			return StreamEventMsg{Event: e}
		case done := <-doneCh:
			return done
		}
	}
}
