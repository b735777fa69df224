// ABOUTME: Settings overlay for the profile and synced preferences
// ABOUTME: Profile edits go to the backend; preferences go to the preference store
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/telemsg/models"
)

const (
	settingName = iota
	settingUsername
	settingNotifications
	settingSound
	settingDesktop
	settingTheme
	settingLanguage
	settingCount
)

var (
	themes    = []string{"light", "dark"}
	languages = []string{"en", "zh"}
)

type settingsState struct {
	inputs []textinput.Model
	prefs  models.Preferences
	focus  int
	saving bool
}

type profileSavedMsg struct {
	user     *models.User
	prefsErr error
	err      error
}

func (m Model) openSettings() (tea.Model, tea.Cmd) {
	me := m.currentUser()
	inputs := make([]textinput.Model, 2)
	for i, v := range []string{me.Name, me.Username} {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 64
		inputs[i].Width = 30
		inputs[i].SetValue(v)
	}
	inputs[0].Placeholder = "Display name"
	inputs[1].Placeholder = "Username"
	inputs[0].Focus()

	prefs := models.DefaultPreferences()
	if m.deps.Prefs != nil {
		loaded, err := m.deps.Prefs.LoadPreferences()
		if err != nil {
			m.deps.Logger.Warn("failed to load preferences", "err", err)
		} else {
			prefs = loaded
		}
	}

	m.settings = settingsState{inputs: inputs, prefs: prefs}
	m.overlay = OverlaySettings
	m.clearStatus()
	return m, textinput.Blink
}

func (s *settingsState) setFocus(i int) {
	s.focus = ((i % settingCount) + settingCount) % settingCount
	for j := range s.inputs {
		if j == s.focus {
			s.inputs[j].Focus()
		} else {
			s.inputs[j].Blur()
		}
	}
}

func cycle(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

// toggle flips or cycles the focused preference.
func (s *settingsState) toggle() {
	switch s.focus {
	case settingNotifications:
		s.prefs.Notifications = !s.prefs.Notifications
	case settingSound:
		s.prefs.Sound = !s.prefs.Sound
	case settingDesktop:
		s.prefs.Desktop = !s.prefs.Desktop
	case settingTheme:
		s.prefs.Theme = cycle(themes, s.prefs.Theme)
	case settingLanguage:
		s.prefs.Language = cycle(languages, s.prefs.Language)
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) renderSettingsView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("SETTINGS"))
	s.WriteString("\n\n")

	rows := make([]string, settingCount)
	rows[settingName] = "Name      " + m.settings.inputs[settingName].View()
	rows[settingUsername] = "Username  " + m.settings.inputs[settingUsername].View()
	rows[settingNotifications] = checkbox(m.settings.prefs.Notifications) + " Notifications"
	rows[settingSound] = checkbox(m.settings.prefs.Sound) + " Sound"
	rows[settingDesktop] = checkbox(m.settings.prefs.Desktop) + " Desktop alerts"
	rows[settingTheme] = "Theme     " + m.settings.prefs.Theme
	rows[settingLanguage] = "Language  " + m.settings.prefs.Language

	for i, row := range rows {
		if i == settingNotifications {
			s.WriteString("\n")
		}
		if i == m.settings.focus {
			s.WriteString("> " + row)
		} else {
			s.WriteString("  " + row)
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.settings.saving {
		s.WriteString(mutedStyle.Render("Saving..."))
	} else {
		s.WriteString(m.renderStatus())
	}
	help := []string{"Tab/↑/↓: Move", "Space: Toggle", "Enter: Save", "Esc: Close"}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return dialogStyle.Render(s.String())
}

func (m Model) handleSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.settings.saving {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
		return m, nil
	case "tab", "down":
		m.settings.setFocus(m.settings.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.settings.setFocus(m.settings.focus - 1)
		return m, nil
	case "enter":
		return m.saveSettings()
	case " ":
		if m.settings.focus >= settingNotifications {
			m.settings.toggle()
			return m, nil
		}
	}

	if m.settings.focus < len(m.settings.inputs) {
		var cmd tea.Cmd
		m.settings.inputs[m.settings.focus], cmd = m.settings.inputs[m.settings.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) saveSettings() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.settings.inputs[settingName].Value())
	username := strings.TrimSpace(m.settings.inputs[settingUsername].Value())
	if name == "" || username == "" {
		m.setError("Name and username cannot be empty")
		return m, nil
	}

	me := m.currentUser()
	profileChanged := name != me.Name || username != me.Username
	prefs, store := m.settings.prefs, m.deps.Prefs
	client, ctx := m.deps.API, m.deps.Context
	m.settings.saving = true

	return m, func() tea.Msg {
		var out profileSavedMsg
		if store != nil {
			out.prefsErr = store.SavePreferences(prefs)
		}
		if profileChanged {
			out.user, out.err = client.UpdateProfile(ctx, name, username)
		}
		return out
	}
}

func (m Model) updateSettings(msg tea.Msg) (Model, tea.Cmd, bool) {
	saved, ok := msg.(profileSavedMsg)
	if !ok {
		return m, nil, false
	}
	m.settings.saving = false
	if saved.err != nil {
		m.setError("Failed to update profile: " + saved.err.Error())
		return m, nil, true
	}
	if saved.user != nil {
		user := *saved.user
		me := m.currentUser()
		user.IsAdmin = user.IsAdmin || me.IsAdmin
		if user.ID == "" {
			user.ID = me.ID
		}
		m.deps.Session.SetCurrentUser(user)
	}
	if saved.prefsErr != nil {
		m.deps.Logger.Warn("failed to save preferences", "err", saved.prefsErr)
		m.setError("Profile saved, but preferences could not be stored")
		return m, nil, true
	}
	m.setInfo("Settings saved")
	return m, nil, true
}
