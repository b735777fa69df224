// ABOUTME: Notification center overlay
// ABOUTME: All and unread tabs with mark read, mark all read and delete
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/telemsg/models"
)

type notificationsState struct {
	list       []models.Notification
	unreadOnly bool
	cursor     int
	loading    bool
}

type notificationsLoadedMsg struct {
	list []models.Notification
	err  error
}

type notificationActionMsg struct {
	action string
	err    error
}

func (m Model) openNotifications() (tea.Model, tea.Cmd) {
	m.overlay = OverlayNotifications
	m.notes = notificationsState{loading: true}
	return m, m.loadNotifications()
}

func (m Model) loadNotifications() tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		list, err := client.Notifications(ctx)
		return notificationsLoadedMsg{list: list, err: err}
	}
}

func (m Model) visibleNotifications() []models.Notification {
	if !m.notes.unreadOnly {
		return m.notes.list
	}
	var out []models.Notification
	for _, n := range m.notes.list {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

func notificationIcon(t models.NotificationType) string {
	switch t {
	case models.NotifyMessage:
		return "✉"
	case models.NotifyFriendRequest:
		return "+"
	case models.NotifyFile:
		return "▤"
	case models.NotifyCall:
		return "☎"
	}
	return "!"
}

func (m Model) renderNotificationsView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("NOTIFICATIONS"))
	s.WriteString("\n\n")

	unread := 0
	for _, n := range m.notes.list {
		if !n.Read {
			unread++
		}
	}
	tabs := []string{"All", fmt.Sprintf("Unread (%d)", unread)}
	var rendered []string
	for i, tab := range tabs {
		if (i == 1) == m.notes.unreadOnly {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n\n")

	list := m.visibleNotifications()
	switch {
	case m.notes.loading:
		s.WriteString(mutedStyle.Render("Loading..."))
		s.WriteString("\n")
	case len(list) == 0:
		s.WriteString(mutedStyle.Render("Nothing here"))
		s.WriteString("\n")
	}

	now := m.deps.Now()
	for i, n := range list {
		mark := " "
		if !n.Read {
			mark = "•"
		}
		line := fmt.Sprintf("%s %s %s  %s", mark, notificationIcon(n.Type), n.Title, mutedStyle.Render(models.FormatRelative(n.Timestamp, now)))
		if i == m.notes.cursor {
			line = selectedStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
		s.WriteString("    " + mutedStyle.Render(n.Content))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	help := []string{
		"Tab: All/Unread",
		"Enter: Mark read",
		"A: Mark all read",
		"d: Delete",
		"Esc: Back",
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return dialogStyle.Render(s.String())
}

func (m Model) handleNotificationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.visibleNotifications()
	client, ctx := m.deps.API, m.deps.Context

	switch msg.String() {
	case "esc", "q":
		m.overlay = OverlayNone
		return m, nil
	case "tab":
		m.notes.unreadOnly = !m.notes.unreadOnly
		m.notes.cursor = 0
	case "up", "k":
		if m.notes.cursor > 0 {
			m.notes.cursor--
		}
	case "down", "j":
		if m.notes.cursor < len(list)-1 {
			m.notes.cursor++
		}
	case "enter", "r":
		if m.notes.cursor >= len(list) || list[m.notes.cursor].Read {
			return m, nil
		}
		id := list[m.notes.cursor].ID
		return m, func() tea.Msg {
			return notificationActionMsg{action: "read", err: client.MarkNotificationRead(ctx, id)}
		}
	case "A":
		return m, func() tea.Msg {
			return notificationActionMsg{action: "read-all", err: client.MarkAllNotificationsRead(ctx)}
		}
	case "d":
		if m.notes.cursor >= len(list) {
			return m, nil
		}
		id := list[m.notes.cursor].ID
		return m, func() tea.Msg {
			return notificationActionMsg{action: "delete", err: client.DeleteNotification(ctx, id)}
		}
	}
	return m, nil
}

func (m Model) updateNotifications(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case notificationsLoadedMsg:
		m.notes.loading = false
		if msg.err != nil {
			m.setError("Failed to load notifications: " + msg.err.Error())
			return m, nil, true
		}
		m.notes.list = msg.list
		unread := 0
		for _, n := range msg.list {
			if !n.Read {
				unread++
			}
		}
		m.deps.Session.SetNotificationCount(unread)
		if n := len(m.visibleNotifications()); m.notes.cursor >= n {
			m.notes.cursor = max(n-1, 0)
		}
		return m, nil, true
	case notificationActionMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Notification %s failed: %v", msg.action, msg.err))
			return m, nil, true
		}
		m.clearStatus()
		return m, m.loadNotifications(), true
	}
	return m, nil, false
}
