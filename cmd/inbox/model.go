package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nassor22/maarifaHub/clients/go/maarifa"
	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

const (
	sidebarWidth  = 34
	callTimeout   = 5 * time.Second
	startCommand  = "/new "
	defaultWidth  = 100
	defaultHeight = 30
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
)

type snapshotMsg struct {
	snap snapshot
	err  error
}

type notificationsMsg struct {
	items []models.Notification
	err   error
}

type actionMsg struct {
	status string
	err    error
}

type sessionEventMsg inbox.Event

type tickMsg time.Time

type model struct {
	backend      backend
	pollInterval time.Duration
	now          func() time.Time

	snap   snapshot
	feed   *feed.Feed
	cursor int
	focus  focusArea

	input    textinput.Model
	timeline viewport.Model
	theme    uiTheme

	width      int
	height     int
	ready      bool
	statusLine string
	lastErr    error
}

func newModel(b backend, pollInterval time.Duration) model {
	in := textinput.New()
	in.Placeholder = "Type a message, or /new <name> to start a conversation"
	in.CharLimit = 4096
	in.Prompt = "> "
	in.Focus()

	vp := viewport.New(defaultWidth-sidebarWidth-4, defaultHeight-8)

	return model{
		backend:      b,
		pollInterval: pollInterval,
		now:          time.Now,
		feed:         feed.New(nil),
		focus:        focusInput,
		input:        in,
		timeline:     vp,
		theme:        newTheme(),
		width:        defaultWidth,
		height:       defaultHeight,
		statusLine:   "loading inbox",
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.refreshCmd(), m.notificationsCmd()}
	if ch := m.backend.changes(); ch != nil {
		cmds = append(cmds, waitForEvent(ch))
	} else {
		cmds = append(cmds, tickEvery(m.pollInterval))
	}
	return tea.Batch(cmds...)
}

func tickEvery(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the session subscription. A closed channel yields
// no message, which ends the loop.
func waitForEvent(ch <-chan inbox.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg(ev)
	}
}

func (m model) refreshCmd() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		snap, err := b.snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) notificationsCmd() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		items, err := b.notifications(ctx)
		return notificationsMsg{items: items, err: err}
	}
}

func (m model) selectCmd(id string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := b.selectConversation(ctx, id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{}
	}
}

func (m model) sendCmd(conversationID, body string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := b.send(ctx, conversationID, body); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "sent"}
	}
}

func (m model) startCmd(name string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		c, err := b.start(ctx, name)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "started conversation with " + c.CounterpartName}
	}
}

// inputAction is what a submitted compose line asks for.
type inputAction struct {
	start bool
	text  string
}

// parseInput reads the compose line. Blank lines ask for nothing.
func parseInput(raw string) (inputAction, bool) {
	if strings.HasPrefix(raw, startCommand) {
		name := strings.TrimSpace(strings.TrimPrefix(raw, startCommand))
		if name == "" {
			return inputAction{}, false
		}
		return inputAction{start: true, text: name}, true
	}
	if strings.TrimSpace(raw) == "" {
		return inputAction{}, false
	}
	return inputAction{text: raw}, true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderTimeline()
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.ready = true
		m.lastErr = nil
		m.snap = msg.snap
		if m.focus == focusInput {
			m.cursor = m.activeIndex()
		}
		m.clampCursor()
		m.renderTimeline()
		if m.statusLine == "loading inbox" {
			m.statusLine = "ready"
		}
		return m, nil

	case notificationsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.feed = feed.New(msg.items)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else if msg.status != "" {
			m.statusLine = msg.status
			m.lastErr = nil
		}
		return m, m.refreshCmd()

	case sessionEventMsg:
		return m, tea.Batch(m.refreshCmd(), waitForEvent(m.backend.changes()))

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickEvery(m.pollInterval))

	case tea.MouseMsg:
		if m.feed.IsOpen() && msg.Action == tea.MouseActionPress && m.outsideOverlay(msg.X, msg.Y) {
			m.feed.Dismiss()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+b":
		m.feed.Toggle()
		return m, nil
	}

	// Any other key while the overlay is open only closes it.
	if m.feed.IsOpen() {
		m.feed.Dismiss()
		return m, nil
	}

	switch msg.String() {
	case "tab":
		m.toggleFocus()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd
	}

	if m.focus == focusList {
		switch msg.String() {
		case "up", "k":
			m.cursor--
			m.clampCursor()
		case "down", "j":
			m.cursor++
			m.clampCursor()
		case "enter":
			if c, ok := m.cursorConversation(); ok {
				m.focus = focusInput
				m.input.Focus()
				return m, m.selectCmd(c.ID)
			}
		}
		return m, nil
	}

	if msg.String() == "enter" {
		action, ok := parseInput(m.input.Value())
		m.input.SetValue("")
		if !ok {
			return m, nil
		}
		if action.start {
			return m, m.startCmd(action.text)
		}
		return m, m.sendCmd(m.snap.active, action.text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusList
		m.input.Blur()
		m.cursor = m.activeIndex()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m *model) setError(err error) {
	m.lastErr = err
	var apiErr *maarifa.APIError
	if errors.As(err, &apiErr) {
		m.statusLine = apiErr.Message
		return
	}
	m.statusLine = err.Error()
}

func (m model) activeIndex() int {
	for i, c := range m.snap.conversations {
		if c.ID == m.snap.active {
			return i
		}
	}
	return 0
}

func (m *model) clampCursor() {
	if n := len(m.snap.conversations); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) cursorConversation() (models.Conversation, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.conversations) {
		return models.Conversation{}, false
	}
	return m.snap.conversations[m.cursor], true
}

func (m model) activeConversation() (models.Conversation, bool) {
	for _, c := range m.snap.conversations {
		if c.ID == m.snap.active {
			return c, true
		}
	}
	return models.Conversation{}, false
}

func (m *model) resize() {
	w := m.width - sidebarWidth - 6
	if w < 20 {
		w = 20
	}
	h := m.height - 10
	if h < 3 {
		h = 3
	}
	m.timeline.Width = w
	m.timeline.Height = h
	m.input.Width = w - 4
}

// outsideOverlay reports whether a click at x,y falls outside the chat
// panel, where the notification overlay is drawn.
func (m model) outsideOverlay(x, y int) bool {
	top := headerHeight
	bottom := top + m.timeline.Height + 2
	return x < sidebarWidth+2 || y < top || y >= bottom
}

func (m *model) renderTimeline() {
	c, ok := m.activeConversation()
	if !ok {
		m.timeline.SetContent("")
		return
	}
	var b strings.Builder
	for i, msg := range m.snap.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		label := msg.SenderLabel(c.CounterpartName)
		style := m.theme.counterpart
		if msg.SenderIsSelf {
			style = m.theme.own
		}
		fmt.Fprintf(&b, "%s %s\n%s", style.Render(label), m.theme.muted.Render(msg.SentAtLabel), wrap(msg.Body, m.timeline.Width))
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}
