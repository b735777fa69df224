// ABOUTME: Voice and video call dialog
// ABOUTME: Shows connecting then a running duration with mute and camera toggles
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/telemsg/models"
)

const (
	callConnectDelay = 2 * time.Second
	callTickInterval = time.Second
)

type callPhase int

const (
	callConnecting callPhase = iota
	callConnected
)

type callState struct {
	contact   models.Contact
	voiceOnly bool
	phase     callPhase
	seconds   int
	muted     bool
	videoOff  bool
	callID    string
	// gen discards ticks that belong to an earlier call.
	gen int
}

type callStartedMsg struct {
	gen     int
	session *models.CallSession
	err     error
}

type callConnectedMsg struct{ gen int }

type callTickMsg struct{ gen int }

type callEndedMsg struct{ err error }

func (m Model) startCall(c models.Contact, voiceOnly bool) (tea.Model, tea.Cmd) {
	gen := m.call.gen + 1
	m.call = callState{contact: c, voiceOnly: voiceOnly, gen: gen}
	m.overlay = OverlayCall
	m.clearStatus()

	client, ctx := m.deps.API, m.deps.Context
	initiate := func() tea.Msg {
		session, err := client.InitiateCall(ctx, c.ID, voiceOnly)
		return callStartedMsg{gen: gen, session: session, err: err}
	}
	connect := tea.Tick(callConnectDelay, func(time.Time) tea.Msg {
		return callConnectedMsg{gen: gen}
	})
	return m, tea.Batch(initiate, connect)
}

func callTick(gen int) tea.Cmd {
	return tea.Tick(callTickInterval, func(time.Time) tea.Msg {
		return callTickMsg{gen: gen}
	})
}

func (m Model) endCall() (tea.Model, tea.Cmd) {
	callID := m.call.callID
	m.overlay = OverlayNone
	m.call = callState{gen: m.call.gen + 1}
	m.setInfo("Call ended")
	if callID == "" {
		return m, nil
	}
	client, ctx := m.deps.API, m.deps.Context
	return m, func() tea.Msg {
		return callEndedMsg{err: client.EndCall(ctx, callID)}
	}
}

func (m Model) renderCallView() string {
	var s strings.Builder
	kind := "Video call"
	if m.call.voiceOnly {
		kind = "Voice call"
	}
	s.WriteString(titleStyle.Render(strings.ToUpper(kind)))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("[%s]  %s\n\n", models.Initials(m.call.contact.Name), m.call.contact.Name))

	if m.call.phase == callConnecting {
		s.WriteString(mutedStyle.Render("Connecting..."))
	} else {
		s.WriteString(infoStyle.Render("Connected " + models.FormatDuration(m.call.seconds)))
	}
	s.WriteString("\n\n")

	mic := "Mic on"
	if m.call.muted {
		mic = "Muted"
	}
	s.WriteString(mic)
	if !m.call.voiceOnly {
		camera := "Camera on"
		if m.call.videoOff {
			camera = "Camera off"
		}
		s.WriteString("   " + camera)
	}
	s.WriteString("\n")

	help := []string{"m: Mute"}
	if !m.call.voiceOnly {
		help = append(help, "v: Camera")
	}
	help = append(help, "e/Esc: End call")
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return dialogStyle.Render(s.String())
}

func (m Model) handleCallKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "m":
		m.call.muted = !m.call.muted
	case "v":
		if !m.call.voiceOnly {
			m.call.videoOff = !m.call.videoOff
		}
	case "e", "esc":
		return m.endCall()
	}
	return m, nil
}

func (m Model) updateCall(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case callStartedMsg:
		if msg.gen != m.call.gen || m.overlay != OverlayCall {
			return m, nil, true
		}
		if msg.err != nil {
			// Signalling is optional; the dialog keeps running locally.
			m.deps.Logger.Warn("call initiation failed", "contact", m.call.contact.ID, "err", msg.err)
			return m, nil, true
		}
		m.call.callID = msg.session.CallID
		return m, nil, true
	case callConnectedMsg:
		if msg.gen != m.call.gen || m.overlay != OverlayCall {
			return m, nil, true
		}
		m.call.phase = callConnected
		return m, callTick(msg.gen), true
	case callTickMsg:
		if msg.gen != m.call.gen || m.overlay != OverlayCall {
			return m, nil, true
		}
		m.call.seconds++
		return m, callTick(msg.gen), true
	case callEndedMsg:
		if msg.err != nil {
			m.deps.Logger.Debug("end call request failed", "err", msg.err)
		}
		return m, nil, true
	}
	return m, nil, false
}
