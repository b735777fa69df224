// ABOUTME: Sign-in and registration forms
// ABOUTME: Validates locally before calling the backend and maps failures to form messages
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/telemsg/api"
)

type loginState struct {
	register bool
	inputs   []textinput.Model
	focus    int
	err      string
	busy     bool
}

type authResultMsg struct {
	result   *api.AuthResult
	err      error
	register bool
}

func newLoginState(register bool) loginState {
	fields := []string{"Username", "Password"}
	if register {
		fields = []string{"Name", "Username", "Password", "Confirm password"}
	}

	inputs := make([]textinput.Model, len(fields))
	for i, placeholder := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholder
		inputs[i].CharLimit = 64
		inputs[i].Width = 32
		if strings.Contains(placeholder, "assword") {
			inputs[i].EchoMode = textinput.EchoPassword
			inputs[i].EchoCharacter = '•'
		}
	}
	inputs[0].Focus()
	return loginState{register: register, inputs: inputs}
}

func (s loginState) value(i int) string {
	return s.inputs[i].Value()
}

func (s *loginState) setFocus(i int) {
	n := len(s.inputs)
	s.focus = ((i % n) + n) % n
	for j := range s.inputs {
		if j == s.focus {
			s.inputs[j].Focus()
		} else {
			s.inputs[j].Blur()
		}
	}
}

func (m Model) renderLoginView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("TELEMSG"))
	s.WriteString("\n\n")

	tabs := []string{"Sign in", "Register"}
	var rendered []string
	for i, tab := range tabs {
		if (i == 1) == m.login.register {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n\n")

	for i, input := range m.login.inputs {
		if i == m.login.focus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	switch {
	case m.login.busy:
		s.WriteString(mutedStyle.Render("Contacting server..."))
	case m.login.err != "":
		s.WriteString(errorStyle.Render(m.login.err))
	default:
		s.WriteString(m.renderStatus())
	}
	s.WriteString("\n")

	help := []string{
		"Tab: Next field",
		"Enter: Submit",
		"Ctrl+R: Sign in / Register",
		"Ctrl+C: Quit",
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+r":
		m.login = newLoginState(!m.login.register)
		m.clearStatus()
		return m, nil
	case "tab", "down":
		m.login.setFocus(m.login.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.login.setFocus(m.login.focus - 1)
		return m, nil
	case "enter":
		if m.login.focus < len(m.login.inputs)-1 {
			m.login.setFocus(m.login.focus + 1)
			return m, nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	client, ctx := m.deps.API, m.deps.Context
	m.clearStatus()

	if m.login.register {
		name, username := strings.TrimSpace(m.login.value(0)), strings.TrimSpace(m.login.value(1))
		password, confirm := m.login.value(2), m.login.value(3)
		if problem := api.ValidateRegistration(name, username, password, confirm); problem != "" {
			m.login.err = problem
			return m, nil
		}
		m.login.err = ""
		m.login.busy = true
		return m, func() tea.Msg {
			res, err := client.Register(ctx, name, username, password)
			return authResultMsg{result: res, err: err, register: true}
		}
	}

	username, password := strings.TrimSpace(m.login.value(0)), m.login.value(1)
	if problem := api.ValidateLogin(username, password); problem != "" {
		m.login.err = problem
		return m, nil
	}
	m.login.err = ""
	m.login.busy = true
	return m, func() tea.Msg {
		res, err := client.Login(ctx, username, password)
		return authResultMsg{result: res, err: err}
	}
}

func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.deps.Logger.Info("authentication failed", "register", msg.register, "err", msg.err)
		if msg.register {
			m.login.err = api.DescribeRegisterError(msg.err)
		} else {
			m.login.err = api.DescribeLoginError(msg.err)
		}
		return m, nil
	}
	m.deps.Logger.Info("signed in", "user", msg.result.User.Username)
	return m.enterMain(msg.result.User)
}
