// ABOUTME: Administration center with stats, users, roles, departments, approvals and logs tabs
// ABOUTME: Every mutation refetches the collection it changed
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/telemsg/models"
)

type adminTab int

const (
	tabStats adminTab = iota
	tabUsers
	tabRoles
	tabDepartments
	tabApprovals
	tabLogs
	adminTabCount
)

var adminTabNames = []string{"Stats", "Users", "Roles", "Departments", "Approvals", "Logs"}

type adminState struct {
	tab       adminTab
	cursor    int
	filter    textinput.Model
	filtering bool
	loading   bool

	stats       models.SystemStats
	users       []models.User
	roles       []models.Role
	departments []models.Department
	approvals   []models.ApprovalRequest
	logs        []models.OperationLog

	dialog adminDialog
}

func newAdminState() adminState {
	filter := textinput.New()
	filter.Placeholder = "Filter..."
	filter.CharLimit = 50
	filter.Width = 30
	return adminState{filter: filter}
}

type adminLoadedMsg struct {
	tab         adminTab
	stats       models.SystemStats
	users       []models.User
	roles       []models.Role
	departments []models.Department
	approvals   []models.ApprovalRequest
	logs        []models.OperationLog
	err         error
}

// adminMutationMsg reports a write; on success the tab's collection is reloaded.
type adminMutationMsg struct {
	what string
	tab  adminTab
	err  error
}

func (m Model) openAdmin() (tea.Model, tea.Cmd) {
	if !m.currentUser().IsAdmin {
		m.setError("Administrator access required")
		return m, nil
	}
	m.screen = ScreenAdmin
	m.admin = newAdminState()
	m.admin.loading = true
	m.clearStatus()
	return m, m.loadAdminTab(tabStats)
}

func (m Model) loadAdminTab(tab adminTab) tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	action := ""
	if tab == tabLogs {
		action = strings.TrimSpace(m.admin.filter.Value())
	}
	return func() tea.Msg {
		out := adminLoadedMsg{tab: tab}
		switch tab {
		case tabStats:
			out.stats, out.err = client.SystemStats(ctx)
		case tabUsers:
			out.users, out.err = client.AllUsers(ctx)
		case tabRoles:
			out.roles, out.err = client.Roles(ctx)
		case tabDepartments:
			out.departments, out.err = client.Departments(ctx)
		case tabApprovals:
			out.approvals, out.err = client.ApprovalRequests(ctx, "")
		case tabLogs:
			out.logs, out.err = client.OperationLogs(ctx, models.LogFilter{Action: action})
		}
		return out
	}
}

func (m Model) mutate(what string, tab adminTab, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return adminMutationMsg{what: what, tab: tab, err: fn()}
	}
}

func (m Model) visibleUsers() []models.User {
	return models.FilterUsers(m.admin.users, m.admin.filter.Value())
}

func (m Model) visibleDepartments() []models.Department {
	return models.FilterDepartments(m.admin.departments, m.admin.filter.Value())
}

func (m Model) adminRowCount() int {
	switch m.admin.tab {
	case tabUsers:
		return len(m.visibleUsers())
	case tabRoles:
		return len(m.admin.roles)
	case tabDepartments:
		return len(m.visibleDepartments())
	case tabApprovals:
		return len(m.admin.approvals)
	case tabLogs:
		return len(m.admin.logs)
	}
	return 0
}

func (m Model) switchAdminTab(tab adminTab) (tea.Model, tea.Cmd) {
	m.admin.tab = ((tab % adminTabCount) + adminTabCount) % adminTabCount
	m.admin.cursor = 0
	m.admin.filtering = false
	m.admin.filter.SetValue("")
	m.admin.filter.Blur()
	m.admin.loading = true
	return m, m.loadAdminTab(m.admin.tab)
}

func (m Model) renderAdminView() string {
	if m.admin.dialog.kind != dialogNone {
		return m.renderAdminDialog()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("ADMIN CENTER"))
	s.WriteString("\n\n")

	var tabs []string
	for i, name := range adminTabNames {
		if adminTab(i) == m.admin.tab {
			tabs = append(tabs, tabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(name))
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	s.WriteString("\n\n")

	if m.admin.filtering || m.admin.filter.Value() != "" {
		s.WriteString(m.admin.filter.View())
		s.WriteString("\n\n")
	}

	if m.admin.loading {
		s.WriteString(mutedStyle.Render("Loading..."))
		s.WriteString("\n")
	} else {
		s.WriteString(m.renderAdminTab())
		s.WriteString("\n")
	}

	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderAdminHelp())
	return s.String()
}

func (m Model) renderAdminTab() string {
	if m.admin.tab == tabStats {
		st := m.admin.stats
		lines := []string{
			fmt.Sprintf("Total users      %d", st.TotalUsers),
			fmt.Sprintf("Online now       %d", st.OnlineUsers),
			fmt.Sprintf("Messages         %d", st.TotalMessages),
			fmt.Sprintf("Storage used     %.1f GB", st.StorageUsed),
		}
		if st.TotalDepartments > 0 {
			lines = append(lines, fmt.Sprintf("Departments      %d", st.TotalDepartments))
		}
		if st.TotalRoles > 0 {
			lines = append(lines, fmt.Sprintf("Roles            %d", st.TotalRoles))
		}
		return paneStyle.Render(strings.Join(lines, "\n"))
	}

	var columns []table.Column
	var rows []table.Row

	switch m.admin.tab {
	case tabUsers:
		columns = []table.Column{
			{Title: "Name", Width: 16},
			{Title: "Username", Width: 14},
			{Title: "Role", Width: 14},
			{Title: "Department", Width: 16},
			{Title: "Status", Width: 10},
		}
		for _, u := range m.visibleUsers() {
			rows = append(rows, table.Row{u.Name, u.Username, u.Role, u.Department, string(u.Status)})
		}
	case tabRoles:
		columns = []table.Column{
			{Title: "Role", Width: 16},
			{Title: "Description", Width: 36},
			{Title: "Users", Width: 6},
			{Title: "Perms", Width: 6},
		}
		for _, r := range m.admin.roles {
			rows = append(rows, table.Row{r.Name, r.Description, fmt.Sprint(r.UserCount), fmt.Sprint(len(r.Permissions))})
		}
	case tabDepartments:
		columns = []table.Column{
			{Title: "Department", Width: 18},
			{Title: "Manager", Width: 14},
			{Title: "Parent", Width: 18},
			{Title: "Members", Width: 8},
		}
		for _, d := range m.visibleDepartments() {
			rows = append(rows, table.Row{d.Name, d.Manager, d.Parent, fmt.Sprint(d.MemberCount)})
		}
	case tabApprovals:
		columns = []table.Column{
			{Title: "Type", Width: 18},
			{Title: "Requester", Width: 14},
			{Title: "Status", Width: 10},
			{Title: "Created", Width: 20},
			{Title: "Note", Width: 20},
		}
		for _, a := range m.admin.approvals {
			note := a.Comment
			if a.Status == models.ApprovalRejected {
				note = a.Reason
			}
			rows = append(rows, table.Row{a.Type, a.RequesterName, string(a.Status), a.CreatedAt, note})
		}
	case tabLogs:
		columns = []table.Column{
			{Title: "Time", Width: 20},
			{Title: "User", Width: 12},
			{Title: "Action", Width: 16},
			{Title: "Details", Width: 30},
		}
		for _, l := range m.admin.logs {
			rows = append(rows, table.Row{l.Timestamp, l.UserName, l.Action, l.Details})
		}
	}

	if len(rows) == 0 {
		return mutedStyle.Render("No records")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 5)),
	)
	if m.admin.cursor < len(rows) {
		t.SetCursor(m.admin.cursor)
	}
	return t.View()
}

func (m Model) renderAdminHelp() string {
	help := []string{"Tab: Switch tabs", "↑/↓: Navigate", "r: Refresh"}
	switch m.admin.tab {
	case tabUsers:
		help = append(help, "/: Filter", "s: Cycle status")
	case tabRoles:
		help = append(help, "m: Members", "p: Permissions")
	case tabDepartments:
		help = append(help, "/: Filter", "e: Edit", "m: Members")
	case tabApprovals:
		help = append(help, "y: Approve", "n: Reject")
	case tabLogs:
		help = append(help, "/: Filter by action")
	}
	help = append(help, "Esc: Back to chat")
	return helpStyle.Render(strings.Join(help, " • "))
}

func nextUserStatus(s models.UserStatus) models.UserStatus {
	switch s {
	case models.UserActive:
		return models.UserInactive
	case models.UserInactive:
		return models.UserSuspended
	}
	return models.UserActive
}

func (m Model) handleAdminKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.admin.dialog.kind != dialogNone {
		return m.handleAdminDialogKeys(msg)
	}
	if m.admin.filtering {
		return m.handleAdminFilterKeys(msg)
	}

	client, ctx := m.deps.API, m.deps.Context

	switch msg.String() {
	case "esc", "q":
		m.screen = ScreenMain
		m.clearStatus()
		return m, nil
	case "tab", "right", "l":
		return m.switchAdminTab(m.admin.tab + 1)
	case "shift+tab", "left", "h":
		return m.switchAdminTab(m.admin.tab - 1)
	case "1", "2", "3", "4", "5", "6":
		return m.switchAdminTab(adminTab(msg.String()[0] - '1'))
	case "up", "k":
		if m.admin.cursor > 0 {
			m.admin.cursor--
		}
		return m, nil
	case "down", "j":
		if m.admin.cursor < m.adminRowCount()-1 {
			m.admin.cursor++
		}
		return m, nil
	case "r":
		m.admin.loading = true
		return m, m.loadAdminTab(m.admin.tab)
	case "/":
		if m.admin.tab == tabUsers || m.admin.tab == tabDepartments || m.admin.tab == tabLogs {
			m.admin.filtering = true
			m.admin.filter.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}

	switch m.admin.tab {
	case tabUsers:
		users := m.visibleUsers()
		if msg.String() == "s" && m.admin.cursor < len(users) {
			u := users[m.admin.cursor]
			next := nextUserStatus(u.Status)
			return m, m.mutate("status change", tabUsers, func() error {
				_, err := client.UpdateUserStatus(ctx, u.ID, next)
				return err
			})
		}
	case tabRoles:
		if m.admin.cursor >= len(m.admin.roles) {
			return m, nil
		}
		role := m.admin.roles[m.admin.cursor]
		switch msg.String() {
		case "m":
			return m.openRoleMembers(role)
		case "p":
			return m.openRolePermissions(role)
		}
	case tabDepartments:
		depts := m.visibleDepartments()
		if m.admin.cursor >= len(depts) {
			return m, nil
		}
		switch msg.String() {
		case "e":
			return m.openDepartmentEdit(depts[m.admin.cursor])
		case "m":
			return m.openDepartmentMembers(depts[m.admin.cursor])
		}
	case tabApprovals:
		if m.admin.cursor >= len(m.admin.approvals) {
			return m, nil
		}
		req := m.admin.approvals[m.admin.cursor]
		switch msg.String() {
		case "y", "n":
			if req.Status != models.ApprovalPending {
				m.setError("Request has already been " + string(req.Status))
				return m, nil
			}
			if msg.String() == "n" {
				return m.openReject(req)
			}
			return m, m.mutate("approval", tabApprovals, func() error {
				return client.ApproveRequest(ctx, req.ID, "")
			})
		}
	}
	return m, nil
}

func (m Model) handleAdminFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.admin.filtering = false
		m.admin.filter.SetValue("")
		m.admin.filter.Blur()
		m.admin.cursor = 0
		if m.admin.tab == tabLogs {
			m.admin.loading = true
			return m, m.loadAdminTab(tabLogs)
		}
		return m, nil
	case "enter":
		m.admin.filtering = false
		m.admin.filter.Blur()
		m.admin.cursor = 0
		if m.admin.tab == tabLogs {
			m.admin.loading = true
			return m, m.loadAdminTab(tabLogs)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.admin.filter, cmd = m.admin.filter.Update(msg)
	m.admin.cursor = 0
	return m, cmd
}

func (m Model) updateAdmin(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case adminLoadedMsg:
		if msg.tab != m.admin.tab {
			return m, nil
		}
		m.admin.loading = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Failed to load %s: %v", strings.ToLower(adminTabNames[msg.tab]), msg.err))
			return m, nil
		}
		switch msg.tab {
		case tabStats:
			m.admin.stats = msg.stats
		case tabUsers:
			m.admin.users = msg.users
		case tabRoles:
			m.admin.roles = msg.roles
		case tabDepartments:
			m.admin.departments = msg.departments
		case tabApprovals:
			m.admin.approvals = msg.approvals
		case tabLogs:
			m.admin.logs = msg.logs
		}
		if n := m.adminRowCount(); m.admin.cursor >= n {
			m.admin.cursor = max(n-1, 0)
		}
		return m, nil
	case adminMutationMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Failed to save %s: %v", msg.what, msg.err))
			return m, nil
		}
		m.setInfo(strings.ToUpper(msg.what[:1]) + msg.what[1:] + " saved")
		if msg.tab != m.admin.tab {
			return m, nil
		}
		return m, m.loadAdminTab(msg.tab)
	}

	if next, cmd, ok := m.updateAdminDialog(msg); ok {
		return next, cmd
	}
	// Chat results keep arriving while the admin center is open.
	return m.updateMain(msg)
}
