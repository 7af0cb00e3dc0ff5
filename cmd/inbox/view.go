package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nassor22/maarifaHub/internal/models"
)

// headerHeight is the header row plus its border.
const headerHeight = 3

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	panel       lipgloss.Style
	panelFocus  lipgloss.Style
	panelTitle  lipgloss.Style
	item        lipgloss.Style
	itemActive  lipgloss.Style
	itemCursor  lipgloss.Style
	badge       lipgloss.Style
	own         lipgloss.Style
	counterpart lipgloss.Style
	muted       lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	overlay     lipgloss.Style
	unreadDot   lipgloss.Style
}

func newTheme() uiTheme {
	green := lipgloss.Color("#2e7d32")
	mint := lipgloss.Color("#66bb6a")
	amber := lipgloss.Color("#ffb300")
	red := lipgloss.Color("#e53935")
	text := lipgloss.Color("#f5f5f5")
	muted := lipgloss.Color("#9e9e9e")

	return uiTheme{
		root: lipgloss.NewStyle().Foreground(text),
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		panelFocus: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(mint).Bold(true),
		item:       lipgloss.NewStyle().Foreground(text),
		itemActive: lipgloss.NewStyle().Foreground(mint).Bold(true),
		itemCursor: lipgloss.NewStyle().Foreground(amber).Bold(true),
		badge: lipgloss.NewStyle().
			Background(green).
			Foreground(text).
			Bold(true).
			Padding(0, 1),
		own:         lipgloss.NewStyle().Foreground(mint).Bold(true),
		counterpart: lipgloss.NewStyle().Foreground(amber).Bold(true),
		muted:       lipgloss.NewStyle().Foreground(muted),
		status:      lipgloss.NewStyle().Foreground(mint),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(amber).
			Padding(0, 1),
		unreadDot: lipgloss.NewStyle().Foreground(red).Bold(true),
	}
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// activityLabel prefers a live relative time once the stored label is
// older than a minute.
func activityLabel(c models.Conversation, now time.Time) string {
	if c.LastActivityAt.IsZero() || now.Sub(c.LastActivityAt) < time.Minute {
		return c.LastActivityLabel
	}
	return humanize.RelTime(c.LastActivityAt, now, "ago", "from now")
}

func (m model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderMain())
	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter()))
}

func (m model) renderHeader() string {
	bell := "🔔"
	if n := m.feed.UnreadCount(); n > 0 {
		bell += " " + m.theme.badge.Render(fmt.Sprintf("%d", n))
	}
	title := m.theme.panelTitle.Render("MaarifaHub Messages")
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(bell) - 6
	if gap < 1 {
		gap = 1
	}
	return m.theme.header.Width(m.width - 2).Render(title + strings.Repeat(" ", gap) + bell)
}

func (m model) renderSidebar() string {
	now := m.now()
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Conversations"))
	inner := sidebarWidth - 4
	for i, c := range m.snap.conversations {
		b.WriteString("\n\n")
		marker := "  "
		nameStyle := m.theme.item
		if c.ID == m.snap.active {
			nameStyle = m.theme.itemActive
		}
		if m.focus == focusList && i == m.cursor {
			marker = "> "
			nameStyle = m.theme.itemCursor
		}
		line := marker + nameStyle.Render(truncate(c.CounterpartName, inner-8))
		if c.UnreadCount > 0 {
			line += " " + m.theme.badge.Render(fmt.Sprintf("%d", c.UnreadCount))
		}
		b.WriteString(line)
		b.WriteString("\n  " + m.theme.muted.Render(truncate(c.LastMessagePreview, inner-2)))
		b.WriteString("\n  " + m.theme.muted.Render(activityLabel(c, now)))
	}

	style := m.theme.panel
	if m.focus == focusList {
		style = m.theme.panelFocus
	}
	return style.Width(sidebarWidth).Height(m.timeline.Height + 5).Render(b.String())
}

func (m model) renderMain() string {
	if m.feed.IsOpen() {
		return m.renderOverlay()
	}

	title := "No conversation selected"
	if c, ok := m.activeConversation(); ok {
		title = c.CounterpartName
	}
	chat := m.theme.panel.Render(m.theme.panelTitle.Render(title) + "\n" + m.timeline.View())

	inputStyle := m.theme.panel
	if m.focus == focusInput {
		inputStyle = m.theme.panelFocus
	}
	return lipgloss.JoinVertical(lipgloss.Left, chat, inputStyle.Width(m.timeline.Width+2).Render(m.input.View()))
}

func (m model) renderOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Notifications"))
	items := m.feed.List()
	if len(items) == 0 {
		b.WriteString("\n\n" + m.theme.muted.Render("Nothing new"))
	}
	for _, n := range items {
		dot := "  "
		if n.Unread {
			dot = m.theme.unreadDot.Render("● ")
		}
		b.WriteString("\n\n" + dot + categoryIcon(n.Category) + " " + wrap(n.Text, m.timeline.Width-6))
		b.WriteString("\n    " + m.theme.muted.Render(n.TimeLabel))
	}
	return m.theme.overlay.Width(m.timeline.Width + 2).Height(m.timeline.Height + 4).Render(b.String())
}

func categoryIcon(c models.NotificationCategory) string {
	switch c {
	case models.CategoryMessage:
		return "✉"
	case models.CategoryAnswer:
		return "✔"
	case models.CategoryUpvote:
		return "▲"
	default:
		return "•"
	}
}

func (m model) renderFooter() string {
	help := "tab focus · ↑/↓ pick · enter open/send · pgup/pgdn scroll · ctrl+b notifications · ctrl+c quit"
	status := m.theme.status.Render(m.statusLine)
	if m.lastErr != nil {
		status = m.theme.errorStatus.Render(m.statusLine)
	}
	return status + "  " + m.theme.muted.Render(help)
}
