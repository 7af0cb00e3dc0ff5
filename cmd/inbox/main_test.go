package main

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
	"github.com/nassor22/maarifaHub/internal/store"
)

var epoch = time.Date(2024, time.March, 4, 10, 30, 0, 0, time.UTC)

func newTestModel(t *testing.T) (model, *inbox.VirtualScheduler) {
	t.Helper()
	fixtures, err := store.LoadFixtures("")
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	sched := inbox.NewVirtualScheduler(epoch)
	session, err := inbox.NewSession(fixtures.Roster(), inbox.Options{
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	b := newLocalBackend(session, feed.New(fixtures.NotificationList()))
	t.Cleanup(b.close)

	m := newModel(b, time.Second)
	m.now = sched.Now
	m, _ = step(t, m, m.refreshCmd()())
	m, _ = step(t, m, m.notificationsCmd()())
	return m, sched
}

func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

// settle runs a command chain until it stops producing work.
func settle(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	for i := 0; cmd != nil && i < 4; i++ {
		msg := cmd()
		if msg == nil {
			break
		}
		m, cmd = step(t, m, msg)
	}
	return m
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestParseInput(t *testing.T) {
	cases := []struct {
		raw   string
		ok    bool
		start bool
		text  string
	}{
		{raw: "hello", ok: true, text: "hello"},
		{raw: "   ", ok: false},
		{raw: "", ok: false},
		{raw: "/new Dr. Zawadi ", ok: true, start: true, text: "Dr. Zawadi"},
		{raw: "/new   ", ok: false},
		{raw: "/newish", ok: true, text: "/newish"},
	}
	for _, tc := range cases {
		got, ok := parseInput(tc.raw)
		if ok != tc.ok {
			t.Fatalf("parseInput(%q) ok=%v, want %v", tc.raw, ok, tc.ok)
		}
		if got.start != tc.start || got.text != tc.text {
			t.Fatalf("parseInput(%q) = %+v", tc.raw, got)
		}
	}
}

func TestInitialSnapshot(t *testing.T) {
	m, _ := newTestModel(t)
	if m.snap.active != "conv1" {
		t.Fatalf("expected conv1 active, got %q", m.snap.active)
	}
	if len(m.snap.conversations) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(m.snap.conversations))
	}
	if m.snap.conversations[0].UnreadCount != 0 {
		t.Fatalf("expected active conversation to start read")
	}
	view := m.View()
	for _, want := range []string{"Dr. Amina Kamau", "Prof. James Omondi", "Mary Wanjiru", "You"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}

func TestSendAndReceiveReply(t *testing.T) {
	m, sched := newTestModel(t)
	before := len(m.snap.messages)

	m = typeText(t, m, "Hello there")
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected send command")
	}
	if m.input.Value() != "" {
		t.Fatalf("expected compose box cleared, got %q", m.input.Value())
	}
	m = settle(t, m, cmd)

	if len(m.snap.messages) != before+1 {
		t.Fatalf("expected %d messages, got %d", before+1, len(m.snap.messages))
	}
	last := m.snap.messages[len(m.snap.messages)-1]
	if !last.SenderIsSelf || last.Body != "Hello there" {
		t.Fatalf("unexpected last message: %+v", last)
	}
	if m.statusLine != "sent" {
		t.Fatalf("expected sent status, got %q", m.statusLine)
	}
	if !strings.Contains(m.timeline.View(), "Hello there") {
		t.Fatalf("expected timeline to show the sent message")
	}

	sched.Advance(5 * time.Second)
	m = settle(t, m, m.refreshCmd())
	if len(m.snap.messages) != before+2 {
		t.Fatalf("expected reply, got %d messages", len(m.snap.messages))
	}
	if m.snap.messages[len(m.snap.messages)-1].SenderIsSelf {
		t.Fatalf("expected counterpart reply last")
	}
}

func TestBlankInputSendsNothing(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "   ")
	_, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no command for blank input")
	}
}

func TestSelectConversationFromList(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusList {
		t.Fatalf("expected list focus after tab")
	}
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", m.cursor)
	}
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", m.cursor)
	}

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, cmd)
	if m.snap.active != "conv3" {
		t.Fatalf("expected conv3 active, got %q", m.snap.active)
	}
	if m.snap.conversations[2].UnreadCount != 0 {
		t.Fatalf("expected selection to clear unread")
	}
	if m.focus != focusInput {
		t.Fatalf("expected focus back on compose box")
	}
	if len(m.snap.messages) != 0 {
		t.Fatalf("expected empty log for conv3, got %d", len(m.snap.messages))
	}
}

func TestStartConversationCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeText(t, m, "/new Dr. Zawadi")
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, cmd)

	if len(m.snap.conversations) != 4 {
		t.Fatalf("expected 4 conversations, got %d", len(m.snap.conversations))
	}
	added := m.snap.conversations[3]
	if added.CounterpartName != "Dr. Zawadi" || added.LastActivityLabel != "Just now" {
		t.Fatalf("unexpected conversation: %+v", added)
	}
	if m.snap.active != "conv1" {
		t.Fatalf("starting a conversation must not change the active one")
	}
	if !strings.Contains(m.statusLine, "Dr. Zawadi") {
		t.Fatalf("unexpected status: %q", m.statusLine)
	}
}

func TestNotificationOverlay(t *testing.T) {
	m, _ := newTestModel(t)
	if m.feed.UnreadCount() != 2 {
		t.Fatalf("expected 2 unread notifications, got %d", m.feed.UnreadCount())
	}

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	if !m.feed.IsOpen() {
		t.Fatalf("expected overlay open")
	}
	view := m.View()
	if !strings.Contains(view, "Notifications") || !strings.Contains(view, "Dr. Amina Kamau answered") {
		t.Fatalf("expected overlay content in view")
	}

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.feed.IsOpen() {
		t.Fatalf("expected any key to dismiss the overlay")
	}
	if m.input.Value() != "" {
		t.Fatalf("dismissing key leaked into compose box: %q", m.input.Value())
	}

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	if m.feed.IsOpen() {
		t.Fatalf("expected second toggle to close the overlay")
	}
}

func TestOverlayClickBounds(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})

	inside := tea.MouseMsg{X: sidebarWidth + 10, Y: headerHeight + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	m, _ = step(t, m, inside)
	if !m.feed.IsOpen() {
		t.Fatalf("click inside the overlay must keep it open")
	}

	outside := tea.MouseMsg{X: 2, Y: headerHeight + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	m, _ = step(t, m, outside)
	if m.feed.IsOpen() {
		t.Fatalf("click outside the overlay must close it")
	}
}

func TestActivityLabel(t *testing.T) {
	now := epoch.Add(time.Hour)
	fresh := models.Conversation{LastActivityLabel: "Just now", LastActivityAt: now.Add(-10 * time.Second)}
	if got := activityLabel(fresh, now); got != "Just now" {
		t.Fatalf("expected stored label, got %q", got)
	}
	seeded := models.Conversation{LastActivityLabel: "2h ago"}
	if got := activityLabel(seeded, now); got != "2h ago" {
		t.Fatalf("expected seed label, got %q", got)
	}
	old := models.Conversation{LastActivityLabel: "Just now", LastActivityAt: now.Add(-5 * time.Minute)}
	if got := activityLabel(old, now); got != "5 minutes ago" {
		t.Fatalf("expected relative label, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Prof. James Omondi", 6); got != "Prof.…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
