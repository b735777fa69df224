// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Root model switching between login, messaging and the admin center
package tui

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/realtime"
	"github.com/harperreed/telemsg/session"
)

// Screen is the top-level state of the application.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenMain
	ScreenAdmin
)

// Overlay is a dialog drawn over the main screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayNotifications
	OverlaySettings
	OverlayCall
)

// PreferenceStore persists the settings dialog preferences.
type PreferenceStore interface {
	LoadPreferences() (models.Preferences, error)
	SavePreferences(p models.Preferences) error
}

// Deps are the collaborators the TUI drives.
type Deps struct {
	API     *api.Client
	Session *session.Store
	Link    *realtime.Link
	Prefs   PreferenceStore
	Logger  *log.Logger
	Context context.Context
	Now     func() time.Time
}

// Model is the main bubbletea model
type Model struct {
	deps   Deps
	screen Screen

	overlay   Overlay
	events    chan realtime.Event
	listening bool

	login    loginState
	chat     chatState
	notes    notificationsState
	settings settingsState
	call     callState
	admin    adminState

	status    string
	statusErr bool

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	if deps.Session == nil {
		deps.Session = session.New(deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	m := Model{
		deps:   deps,
		screen: ScreenLogin,
		events: make(chan realtime.Event, 64),
		width:  100,
		height: 30,
	}
	m.login = newLoginState(false)
	m.chat = newChatState()
	m.admin = newAdminState()
	m.resize()
	return m
}

// Screen reports the current top-level screen.
func (m Model) Screen() Screen {
	return m.screen
}

type startupMsg struct {
	user *models.User
	err  error
}

type logoutDoneMsg struct{}

type pushMsg struct {
	event realtime.Event
}

func (m Model) Init() tea.Cmd {
	if m.deps.API == nil || m.deps.API.Token() == "" {
		return nil
	}
	token := m.deps.API.Token()
	if claims, err := api.ParseTokenClaims(token); err == nil && claims.Expired(m.deps.Now()) {
		m.deps.Logger.Info("stored token expired, signing in again")
		_ = m.deps.API.ClearToken()
		return nil
	}
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		u, err := client.CurrentUser(ctx)
		return startupMsg{user: u, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case startupMsg:
		return m.handleStartup(msg)
	case authResultMsg:
		return m.handleAuthResult(msg)
	case logoutDoneMsg:
		return m, nil
	case pushMsg:
		return m.handlePush(msg)
	}

	if m.screen == ScreenAdmin {
		return m.updateAdmin(msg)
	}
	return m.updateMain(msg)
}

func (m Model) View() string {
	switch m.screen {
	case ScreenLogin:
		return m.renderLoginView()
	case ScreenAdmin:
		return m.renderAdminView()
	}
	switch m.overlay {
	case OverlayNotifications:
		return m.renderNotificationsView()
	case OverlaySettings:
		return m.renderSettingsView()
	case OverlayCall:
		return m.renderCallView()
	}
	return m.renderMainView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenLogin:
		return m.handleLoginKeys(msg)
	case ScreenAdmin:
		return m.handleAdminKeys(msg)
	}

	switch m.overlay {
	case OverlayNotifications:
		return m.handleNotificationKeys(msg)
	case OverlaySettings:
		return m.handleSettingsKeys(msg)
	case OverlayCall:
		return m.handleCallKeys(msg)
	}
	return m.handleMainKeys(msg)
}

func (m Model) handleStartup(msg startupMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			_ = m.deps.API.ClearToken()
			m.setError("Session expired, please sign in again")
		} else {
			m.deps.Logger.Warn("could not restore session", "err", msg.err)
			m.setError(msg.err.Error())
		}
		return m, nil
	}
	return m.enterMain(*msg.user)
}

// enterMain moves to the messaging screen for user and starts the session.
func (m Model) enterMain(user models.User) (tea.Model, tea.Cmd) {
	api.NormalizeUser(&user, "")
	m.deps.Session.SetCurrentUser(user)
	m.screen = ScreenMain
	m.overlay = OverlayNone
	m.login = newLoginState(false)
	m.chat = newChatState()
	m.resize()
	m.clearStatus()

	cmds := []tea.Cmd{m.loadContacts(), m.loadNotificationCount()}
	if m.deps.Link != nil {
		events := m.events
		logger := m.deps.Logger
		err := m.deps.Link.Connect(m.deps.Context, func(ev realtime.Event) {
			select {
			case events <- ev:
			default:
				logger.Warn("push event dropped, TUI is behind", "type", ev.Type)
			}
		})
		if err != nil {
			m.deps.Logger.Error("failed to start realtime link", "err", err)
		}
		if !m.listening {
			m.listening = true
			cmds = append(cmds, waitForEvent(events))
		}
	}
	return m, tea.Batch(cmds...)
}

func waitForEvent(events <-chan realtime.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return pushMsg{event: ev}
	}
}

func (m Model) handlePush(msg pushMsg) (tea.Model, tea.Cmd) {
	next := waitForEvent(m.events)
	if !m.deps.Session.LoggedIn() {
		return m, next
	}
	if m.deps.Session.ApplyEvent(msg.event) && msg.event.Type == realtime.EventMessage {
		m.syncThread()
	}
	if msg.event.Type == realtime.EventNotification && m.overlay == OverlayNotifications {
		return m, tea.Batch(next, m.loadNotifications())
	}
	return m, next
}

// logout signs out best effort and returns to the login screen.
func (m Model) logout() (tea.Model, tea.Cmd) {
	m.shutdown()
	m.deps.Session.Clear()
	m.screen = ScreenLogin
	m.overlay = OverlayNone
	m.call = callState{}
	m.admin = newAdminState()
	m.login = newLoginState(false)
	m.setInfo("Signed out")

	client, ctx, logger := m.deps.API, m.deps.Context, m.deps.Logger
	if client == nil {
		return m, nil
	}
	// The token leaves disk now; the backend only hears about it later.
	tok := client.Token()
	if err := client.ClearToken(); err != nil {
		logger.Error("failed to clear token", "err", err)
	}
	return m, func() tea.Msg {
		if err := client.LogoutWithToken(ctx, tok); err != nil {
			logger.Debug("logout request failed", "err", err)
		}
		return logoutDoneMsg{}
	}
}

func (m *Model) shutdown() {
	if m.deps.Link != nil {
		m.deps.Link.Disconnect()
	}
}

func (m *Model) resize() {
	w := m.width - contactsPaneWidth - 6
	if w < 20 {
		w = 20
	}
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	if m.chat.thread.Width == 0 && m.chat.thread.Height == 0 {
		m.chat.thread = viewport.New(w, h)
	} else {
		m.chat.thread.Width = w
		m.chat.thread.Height = h
	}
	m.chat.composer.Width = w - 4
	m.syncThread()
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) setInfo(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render("✗ " + m.status)
	}
	return infoStyle.Render(m.status)
}

func (m Model) currentUser() models.User {
	u, _ := m.deps.Session.CurrentUser()
	return u
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("9")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("170"))

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 2)
)
