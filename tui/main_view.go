// ABOUTME: Messaging screen with the contact list and the open conversation
// ABOUTME: Sends text optimistically, uploads files and starts calls
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/telemsg/config"
	"github.com/harperreed/telemsg/media"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/session"
)

const contactsPaneWidth = 30

type chatPane int

const (
	paneContacts chatPane = iota
	paneComposer
)

type chatState struct {
	pane      chatPane
	cursor    int
	search    textinput.Model
	searching bool
	composer  textinput.Model
	thread    viewport.Model
	loading   bool
}

func newChatState() chatState {
	search := textinput.New()
	search.Placeholder = "Search contacts..."
	search.CharLimit = 50
	search.Width = contactsPaneWidth - 4

	composer := textinput.New()
	composer.Placeholder = "Message, or /upload <path>"
	composer.CharLimit = 2000

	return chatState{search: search, composer: composer}
}

type contactsLoadedMsg struct {
	contacts []models.Contact
	err      error
}

type historyLoadedMsg struct {
	contactID string
	messages  []models.Message
	err       error
}

type messageSentMsg struct {
	tempID    string
	contactID string
	msg       *models.Message
	err       error
}

type uploadDoneMsg struct {
	contactID string
	fileName  string
	info      *models.FileInfo
	err       error
}

type notificationCountMsg struct {
	unread int
	err    error
}

func (m Model) loadContacts() tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		contacts, err := client.Contacts(ctx)
		return contactsLoadedMsg{contacts: contacts, err: err}
	}
}

func (m Model) loadHistory(contactID string) tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		msgs, err := client.Messages(ctx, contactID)
		return historyLoadedMsg{contactID: contactID, messages: msgs, err: err}
	}
}

func (m Model) loadNotificationCount() tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		list, err := client.Notifications(ctx)
		unread := 0
		for _, n := range list {
			if !n.Read {
				unread++
			}
		}
		return notificationCountMsg{unread: unread, err: err}
	}
}

// visibleContacts applies the search box to the session's contacts.
func (m Model) visibleContacts() []models.Contact {
	return models.FilterContacts(m.deps.Session.Contacts(), m.chat.search.Value())
}

func (m Model) selectedContact() (models.Contact, bool) {
	contacts := m.visibleContacts()
	if m.chat.cursor < 0 || m.chat.cursor >= len(contacts) {
		return models.Contact{}, false
	}
	return contacts[m.chat.cursor], true
}

// syncThread re-renders the open conversation into the viewport.
func (m *Model) syncThread() {
	if m.deps.Session == nil {
		return
	}
	me := m.currentUser()
	var b strings.Builder
	for _, msg := range m.deps.Session.Messages() {
		b.WriteString(renderMessage(msg, me.ID))
		b.WriteString("\n")
	}
	m.chat.thread.SetContent(b.String())
	m.chat.thread.GotoBottom()
}

var (
	ownMessageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	theirMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	fileMessageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	onlineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	busyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func statusMark(s models.MessageStatus) string {
	switch s {
	case models.StatusSending:
		return "…"
	case models.StatusSent:
		return "✓"
	case models.StatusRead:
		return "✓✓"
	}
	return ""
}

func renderMessage(msg models.Message, me string) string {
	body := msg.Content
	switch msg.Type {
	case models.MessageImage, models.MessageFile:
		label := "file"
		if msg.Type == models.MessageImage {
			label = "image"
		}
		body = fileMessageStyle.Render(fmt.Sprintf("[%s] %s (%s)", label, msg.FileName, msg.FileSize))
	}
	stamp := mutedStyle.Render(msg.Timestamp.Format("15:04"))
	if msg.SenderID == me {
		return fmt.Sprintf("%s %s %s", stamp, ownMessageStyle.Render("you: ")+body, mutedStyle.Render(statusMark(msg.Status)))
	}
	return fmt.Sprintf("%s %s", stamp, theirMessageStyle.Render(body))
}

func presenceDot(s models.ContactStatus) string {
	switch s {
	case models.ContactOnline:
		return onlineStyle.Render("●")
	case models.ContactBusy:
		return busyStyle.Render("●")
	}
	return mutedStyle.Render("○")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func (m Model) renderMainView() string {
	var s strings.Builder
	me := m.currentUser()

	header := titleStyle.Render("TELEMSG")
	header += mutedStyle.Render("  " + me.Name + " (@" + me.Username + ")")
	if n := m.deps.Session.NotificationCount(); n > 0 {
		header += "  " + badgeStyle.Render(fmt.Sprintf("%d new", n))
	}
	if m.deps.Link != nil {
		header += "  " + mutedStyle.Render("link: "+m.deps.Link.State().String())
	}
	s.WriteString(header)
	s.WriteString("\n")

	left := m.renderContactsPane()
	right := m.renderChatPane()
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderMainHelp(me.IsAdmin))
	return s.String()
}

func (m Model) renderContactsPane() string {
	var b strings.Builder
	if m.chat.searching || m.chat.search.Value() != "" {
		b.WriteString(m.chat.search.View())
		b.WriteString("\n")
	}
	contacts := m.visibleContacts()
	if len(contacts) == 0 {
		b.WriteString(mutedStyle.Render("No contacts"))
	}
	selected := m.deps.Session.SelectedID()
	for i, c := range contacts {
		line := presenceDot(c.Status) + " " + truncate(c.Name, contactsPaneWidth-10)
		if c.UnreadCount > 0 {
			line += " " + badgeStyle.Render(fmt.Sprintf("%d", c.UnreadCount))
		}
		if c.ID == selected {
			line = "▶ " + line
		} else {
			line = "  " + line
		}
		if i == m.chat.cursor && m.chat.pane == paneContacts {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if c.LastMessage != "" {
			b.WriteString("    " + mutedStyle.Render(truncate(c.LastMessage, contactsPaneWidth-6)))
			b.WriteString("\n")
		}
	}

	style := paneStyle
	if m.chat.pane == paneContacts {
		style = focusedPaneStyle
	}
	return style.Width(contactsPaneWidth).Height(m.chat.thread.Height + 3).Render(b.String())
}

func (m Model) renderChatPane() string {
	var b strings.Builder
	id := m.deps.Session.SelectedID()
	if id == "" {
		b.WriteString(mutedStyle.Render("Select a contact and press Enter to start chatting"))
	} else {
		c, _ := m.deps.Session.Contact(id)
		title := c.Name + " " + presenceDot(c.Status)
		if c.Status != models.ContactOnline && c.LastSeen != "" {
			title += mutedStyle.Render(" last seen " + c.LastSeen)
		}
		b.WriteString(title)
		b.WriteString("\n")
		if m.chat.loading {
			b.WriteString(mutedStyle.Render("Loading conversation..."))
		} else {
			b.WriteString(m.chat.thread.View())
		}
		b.WriteString("\n")
		b.WriteString(m.chat.composer.View())
	}

	style := paneStyle
	if m.chat.pane == paneComposer {
		style = focusedPaneStyle
	}
	return style.Width(m.chat.thread.Width + 2).Render(b.String())
}

func (m Model) renderMainHelp(admin bool) string {
	var help []string
	if m.chat.pane == paneComposer {
		help = []string{"Enter: Send", "PgUp/PgDn: Scroll", "Esc: Contacts"}
	} else {
		help = []string{
			"↑/↓: Navigate",
			"Enter: Open",
			"/: Search",
			"i: Write",
			"v/c: Video/Voice call",
			"n: Notifications",
			"s: Settings",
		}
		if admin {
			help = append(help, "a: Admin")
		}
		help = append(help, "L: Sign out", "q: Quit")
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chat.searching {
		return m.handleSearchKeys(msg)
	}
	if m.chat.pane == paneComposer {
		return m.handleComposerKeys(msg)
	}

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit
	case "up", "k":
		if m.chat.cursor > 0 {
			m.chat.cursor--
		}
	case "down", "j":
		if m.chat.cursor < len(m.visibleContacts())-1 {
			m.chat.cursor++
		}
	case "/":
		m.chat.searching = true
		m.chat.search.Focus()
		return m, textinput.Blink
	case "enter":
		c, ok := m.selectedContact()
		if !ok {
			return m, nil
		}
		m.chat.loading = true
		m.deps.Session.SelectConversation(c.ID, nil)
		m.syncThread()
		m.chat.pane = paneComposer
		m.chat.composer.Focus()
		return m, m.loadHistory(c.ID)
	case "i", "tab":
		if m.deps.Session.SelectedID() != "" {
			m.chat.pane = paneComposer
			m.chat.composer.Focus()
			return m, textinput.Blink
		}
	case "r":
		return m, m.loadContacts()
	case "v", "c":
		c, ok := m.selectedContact()
		if !ok {
			return m, nil
		}
		return m.startCall(c, msg.String() == "c")
	case "n":
		return m.openNotifications()
	case "s":
		return m.openSettings()
	case "a":
		if m.currentUser().IsAdmin {
			return m.openAdmin()
		}
		m.setError("Administrator access required")
	case "L":
		return m.logout()
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chat.searching = false
		m.chat.search.SetValue("")
		m.chat.search.Blur()
		m.chat.cursor = 0
		return m, nil
	case "enter":
		m.chat.searching = false
		m.chat.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.chat.search, cmd = m.chat.search.Update(msg)
	m.chat.cursor = 0
	return m, cmd
}

func (m Model) handleComposerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chat.pane = paneContacts
		m.chat.composer.Blur()
		return m, nil
	case "pgup":
		m.chat.thread.HalfViewUp()
		return m, nil
	case "pgdown":
		m.chat.thread.HalfViewDown()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.chat.composer.Value())
		if text == "" {
			return m, nil
		}
		m.chat.composer.SetValue("")
		if path, ok := strings.CutPrefix(text, "/upload "); ok {
			return m.sendFile(strings.TrimSpace(path))
		}
		return m.sendText(text)
	}

	var cmd tea.Cmd
	m.chat.composer, cmd = m.chat.composer.Update(msg)
	return m, cmd
}

// sendText shows the message as sending right away, then confirms it over REST.
func (m Model) sendText(text string) (tea.Model, tea.Cmd) {
	contactID := m.deps.Session.SelectedID()
	if contactID == "" {
		return m, nil
	}
	me := m.currentUser()
	tempID := "local-" + config.GenerateID()
	m.deps.Session.AppendMessage(models.Message{
		ID:        tempID,
		SenderID:  me.ID,
		Content:   text,
		Timestamp: m.deps.Now(),
		Type:      models.MessageText,
		Status:    models.StatusSending,
	})
	m.deps.Session.SetLastMessage(contactID, text)
	m.syncThread()

	client, ctx := m.deps.API, m.deps.Context
	return m, func() tea.Msg {
		sent, err := client.SendMessage(ctx, contactID, text, models.MessageText)
		return messageSentMsg{tempID: tempID, contactID: contactID, msg: sent, err: err}
	}
}

func (m Model) sendFile(path string) (tea.Model, tea.Cmd) {
	contactID := m.deps.Session.SelectedID()
	if contactID == "" || path == "" {
		return m, nil
	}
	m.setInfo("Uploading " + filepath.Base(path) + "...")
	client, ctx := m.deps.API, m.deps.Context
	return m, func() tea.Msg {
		info, err := client.UploadFile(ctx, contactID, path)
		return uploadDoneMsg{contactID: contactID, fileName: filepath.Base(path), info: info, err: err}
	}
}

// mirror forwards a stored message over the push channel. Failures are logged only.
func (m Model) mirror(msg models.Message, recipientID string) {
	if m.deps.Link == nil {
		return
	}
	if err := m.deps.Link.SendChatMessage(msg, recipientID); err != nil {
		m.deps.Logger.Debug("message not mirrored over realtime link", "id", msg.ID, "err", err)
	}
}

func (m Model) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case contactsLoadedMsg:
		if msg.err != nil {
			m.setError("Failed to load contacts: " + msg.err.Error())
			return m, nil
		}
		m.deps.Session.ReplaceContacts(msg.contacts)
		if n := len(m.visibleContacts()); m.chat.cursor >= n {
			m.chat.cursor = max(n-1, 0)
		}
		return m, nil

	case historyLoadedMsg:
		if msg.contactID != m.deps.Session.SelectedID() {
			return m, nil
		}
		m.chat.loading = false
		if msg.err != nil {
			m.setError("Failed to load messages: " + msg.err.Error())
			return m, nil
		}
		m.deps.Session.SelectConversation(msg.contactID, msg.messages)
		m.syncThread()
		return m, nil

	case messageSentMsg:
		if msg.err != nil {
			m.deps.Session.RemoveMessage(msg.tempID)
			m.syncThread()
			m.setError("Send failed: " + msg.err.Error())
			return m, nil
		}
		confirmed := *msg.msg
		if confirmed.Timestamp.IsZero() {
			confirmed.Timestamp = m.deps.Now()
		}
		if !m.deps.Session.ReplaceMessage(msg.tempID, confirmed) {
			if msg.contactID == m.deps.Session.SelectedID() {
				m.deps.Session.AppendMessage(confirmed)
			} else {
				m.deps.Session.SetLastMessage(msg.contactID, session.Preview(confirmed))
			}
		}
		m.syncThread()
		m.mirror(confirmed, msg.contactID)
		return m, nil

	case uploadDoneMsg:
		if msg.err != nil {
			m.setError("Upload failed: " + msg.err.Error())
			return m, nil
		}
		kind := models.MessageFile
		if media.IsImage(msg.fileName) {
			kind = models.MessageImage
		}
		fileMsg := models.Message{
			ID:        msg.info.ID,
			SenderID:  m.currentUser().ID,
			Content:   msg.fileName,
			Timestamp: m.deps.Now(),
			Type:      kind,
			FileURL:   msg.info.FileURL,
			FileName:  msg.info.FileName,
			FileSize:  msg.info.FileSize,
			Status:    models.StatusSent,
		}
		// The user may have opened another thread while the upload ran.
		if msg.contactID == m.deps.Session.SelectedID() {
			m.deps.Session.AppendMessage(fileMsg)
		}
		m.deps.Session.SetLastMessage(msg.contactID, session.Preview(fileMsg))
		m.syncThread()
		m.setInfo("Sent " + msg.fileName)
		m.mirror(fileMsg, msg.contactID)
		return m, nil

	case notificationCountMsg:
		if msg.err == nil {
			m.deps.Session.SetNotificationCount(msg.unread)
		}
		return m, nil
	}

	if next, cmd, ok := m.updateNotifications(msg); ok {
		return next, cmd
	}
	if next, cmd, ok := m.updateSettings(msg); ok {
		return next, cmd
	}
	if next, cmd, ok := m.updateCall(msg); ok {
		return next, cmd
	}
	return m, nil
}
