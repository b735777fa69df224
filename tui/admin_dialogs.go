// ABOUTME: Modal dialogs of the admin center
// ABOUTME: Role members and permissions, department edit and members, approval rejection
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
)

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogRoleMembers
	dialogRolePermissions
	dialogDeptEdit
	dialogDeptMembers
	dialogReject
)

type adminDialog struct {
	kind      dialogKind
	subjectID string
	title     string
	cursor    int
	loading   bool
	saving    bool

	members []models.User
	perms   models.PermissionSet
	rows    []models.Permission

	inputs []textinput.Model
	focus  int
}

type dialogMembersMsg struct {
	kind      dialogKind
	subjectID string
	members   []models.User
	err       error
}

type dialogPermsMsg struct {
	roleID string
	perms  []models.Permission
	err    error
}

// dialogSavedMsg reports a dialog write. Dialogs that stay open reload their members.
type dialogSavedMsg struct {
	kind dialogKind
	what string
	tab  adminTab
	err  error
}

// catalogRows flattens the permission catalog in display order.
func catalogRows() []models.Permission {
	var rows []models.Permission
	for _, cat := range models.PermissionCatalog {
		rows = append(rows, cat.Permissions...)
	}
	return rows
}

func (m Model) closeDialog() Model {
	m.admin.dialog = adminDialog{}
	return m
}

func (m Model) loadRoleMembers(roleID string) tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		members, err := client.RoleMembers(ctx, roleID)
		return dialogMembersMsg{kind: dialogRoleMembers, subjectID: roleID, members: members, err: err}
	}
}

func (m Model) loadDepartmentMembers(deptID string) tea.Cmd {
	client, ctx := m.deps.API, m.deps.Context
	return func() tea.Msg {
		members, err := client.DepartmentMembers(ctx, deptID)
		return dialogMembersMsg{kind: dialogDeptMembers, subjectID: deptID, members: members, err: err}
	}
}

func (m Model) openRoleMembers(role models.Role) (tea.Model, tea.Cmd) {
	m.admin.dialog = adminDialog{kind: dialogRoleMembers, subjectID: role.ID, title: role.Name + " members", loading: true}
	return m, m.loadRoleMembers(role.ID)
}

func (m Model) openDepartmentMembers(d models.Department) (tea.Model, tea.Cmd) {
	m.admin.dialog = adminDialog{kind: dialogDeptMembers, subjectID: d.ID, title: d.Name + " members", loading: true}
	return m, m.loadDepartmentMembers(d.ID)
}

func (m Model) openRolePermissions(role models.Role) (tea.Model, tea.Cmd) {
	m.admin.dialog = adminDialog{
		kind:      dialogRolePermissions,
		subjectID: role.ID,
		title:     role.Name + " permissions",
		loading:   true,
		perms:     models.NewPermissionSet(nil),
		rows:      catalogRows(),
	}
	client, ctx := m.deps.API, m.deps.Context
	return m, func() tea.Msg {
		perms, err := client.RolePermissions(ctx, role.ID)
		return dialogPermsMsg{roleID: role.ID, perms: perms, err: err}
	}
}

func newDialogInput(placeholder, value string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 100
	in.Width = 36
	in.SetValue(value)
	return in
}

func (m Model) openDepartmentEdit(d models.Department) (tea.Model, tea.Cmd) {
	inputs := []textinput.Model{
		newDialogInput("Name", d.Name),
		newDialogInput("Manager", d.Manager),
		newDialogInput("Parent department", d.Parent),
		newDialogInput("Description", d.Description),
	}
	inputs[0].Focus()
	m.admin.dialog = adminDialog{kind: dialogDeptEdit, subjectID: d.ID, title: "Edit " + d.Name, inputs: inputs}
	return m, textinput.Blink
}

func (m Model) openReject(req models.ApprovalRequest) (tea.Model, tea.Cmd) {
	reason := newDialogInput("Reason for rejection", "")
	reason.Focus()
	m.admin.dialog = adminDialog{
		kind:      dialogReject,
		subjectID: req.ID,
		title:     fmt.Sprintf("Reject %s from %s", req.Type, req.RequesterName),
		inputs:    []textinput.Model{reason},
	}
	return m, textinput.Blink
}

func (m Model) renderAdminDialog() string {
	d := m.admin.dialog
	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(d.title)))
	s.WriteString("\n\n")

	var help []string
	switch {
	case d.loading:
		s.WriteString(mutedStyle.Render("Loading..."))
		s.WriteString("\n")
		help = []string{"Esc: Close"}
	case d.kind == dialogRoleMembers || d.kind == dialogDeptMembers:
		if len(d.members) == 0 {
			s.WriteString(mutedStyle.Render("No members"))
			s.WriteString("\n")
		}
		for i, u := range d.members {
			line := fmt.Sprintf("%-16s @%-14s %s", u.Name, u.Username, u.Role)
			if i == d.cursor {
				line = selectedStyle.Render(line)
			}
			s.WriteString(line)
			s.WriteString("\n")
		}
		help = []string{"↑/↓: Navigate"}
		if d.kind == dialogDeptMembers {
			help = append(help, "d: Remove from department")
		}
		help = append(help, "Esc: Close")
	case d.kind == dialogRolePermissions:
		s.WriteString(m.renderPermissionMatrix())
		help = []string{"↑/↓: Navigate", "Space: Toggle", "Enter: Save", "Esc: Cancel"}
	case d.kind == dialogDeptEdit || d.kind == dialogReject:
		for i, in := range d.inputs {
			if i == d.focus {
				s.WriteString("> ")
			} else {
				s.WriteString("  ")
			}
			s.WriteString(in.View())
			s.WriteString("\n")
		}
		help = []string{"Tab: Next field", "Enter: Save", "Esc: Cancel"}
	}

	s.WriteString("\n")
	if d.saving {
		s.WriteString(mutedStyle.Render("Saving..."))
	} else {
		s.WriteString(m.renderStatus())
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return dialogStyle.Render(s.String())
}

func (m Model) renderPermissionMatrix() string {
	d := m.admin.dialog
	var s strings.Builder
	i := 0
	for _, cat := range models.PermissionCatalog {
		s.WriteString(tabActiveStyle.Render(cat.Category))
		s.WriteString("\n")
		for _, p := range cat.Permissions {
			line := fmt.Sprintf("%s %-20s %s", checkbox(d.perms.Has(p.ID)), p.ID, p.Name)
			if i == d.cursor {
				line = selectedStyle.Render(line)
			}
			s.WriteString(line)
			s.WriteString("\n")
			i++
		}
	}
	s.WriteString(mutedStyle.Render(fmt.Sprintf("%d granted", len(d.perms.IDs()))))
	s.WriteString("\n")
	return s.String()
}

func (m Model) handleAdminDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &m.admin.dialog
	if msg.String() == "esc" {
		return m.closeDialog(), nil
	}
	if d.loading || d.saving {
		return m, nil
	}

	client, ctx := m.deps.API, m.deps.Context

	switch d.kind {
	case dialogRoleMembers, dialogDeptMembers:
		switch msg.String() {
		case "up", "k":
			if d.cursor > 0 {
				d.cursor--
			}
		case "down", "j":
			if d.cursor < len(d.members)-1 {
				d.cursor++
			}
		case "d":
			if d.kind != dialogDeptMembers || d.cursor >= len(d.members) {
				return m, nil
			}
			deptID, userID := d.subjectID, d.members[d.cursor].ID
			d.saving = true
			return m, func() tea.Msg {
				err := client.RemoveDepartmentMember(ctx, deptID, userID)
				return dialogSavedMsg{kind: dialogDeptMembers, what: "member removal", tab: tabDepartments, err: err}
			}
		}
		return m, nil

	case dialogRolePermissions:
		switch msg.String() {
		case "up", "k":
			if d.cursor > 0 {
				d.cursor--
			}
		case "down", "j":
			if d.cursor < len(d.rows)-1 {
				d.cursor++
			}
		case " ":
			if d.cursor < len(d.rows) {
				d.perms.Toggle(d.rows[d.cursor].ID)
			}
		case "enter":
			roleID, ids := d.subjectID, d.perms.IDs()
			d.saving = true
			return m, func() tea.Msg {
				err := client.UpdateRolePermissions(ctx, roleID, ids)
				return dialogSavedMsg{kind: dialogRolePermissions, what: "permissions", tab: tabRoles, err: err}
			}
		}
		return m, nil

	case dialogDeptEdit, dialogReject:
		switch msg.String() {
		case "tab", "down":
			d.setFocus(d.focus + 1)
			return m, nil
		case "shift+tab", "up":
			d.setFocus(d.focus - 1)
			return m, nil
		case "enter":
			return m.submitDialog()
		}
		var cmd tea.Cmd
		d.inputs[d.focus], cmd = d.inputs[d.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (d *adminDialog) setFocus(i int) {
	n := len(d.inputs)
	d.focus = ((i % n) + n) % n
	for j := range d.inputs {
		if j == d.focus {
			d.inputs[j].Focus()
		} else {
			d.inputs[j].Blur()
		}
	}
}

func (m Model) submitDialog() (tea.Model, tea.Cmd) {
	d := &m.admin.dialog
	client, ctx := m.deps.API, m.deps.Context
	id := d.subjectID

	if d.kind == dialogReject {
		reason := strings.TrimSpace(d.inputs[0].Value())
		if reason == "" {
			m.setError("Enter a reason for the rejection")
			return m, nil
		}
		d.saving = true
		return m, func() tea.Msg {
			err := client.RejectRequest(ctx, id, reason)
			return dialogSavedMsg{kind: dialogReject, what: "rejection", tab: tabApprovals, err: err}
		}
	}

	update := api.DepartmentUpdate{
		Name:        strings.TrimSpace(d.inputs[0].Value()),
		Manager:     strings.TrimSpace(d.inputs[1].Value()),
		Parent:      strings.TrimSpace(d.inputs[2].Value()),
		Description: strings.TrimSpace(d.inputs[3].Value()),
	}
	if update.Name == "" {
		m.setError("Department name is required")
		return m, nil
	}
	d.saving = true
	return m, func() tea.Msg {
		_, err := client.UpdateDepartment(ctx, id, update)
		return dialogSavedMsg{kind: dialogDeptEdit, what: "department", tab: tabDepartments, err: err}
	}
}

func (m Model) updateAdminDialog(msg tea.Msg) (Model, tea.Cmd, bool) {
	d := &m.admin.dialog
	switch msg := msg.(type) {
	case dialogMembersMsg:
		if d.kind != msg.kind || d.subjectID != msg.subjectID {
			return m, nil, true
		}
		d.loading = false
		if msg.err != nil {
			m.setError("Failed to load members: " + msg.err.Error())
			return m, nil, true
		}
		d.members = msg.members
		if d.cursor >= len(d.members) {
			d.cursor = max(len(d.members)-1, 0)
		}
		return m, nil, true

	case dialogPermsMsg:
		if d.kind != dialogRolePermissions || d.subjectID != msg.roleID {
			return m, nil, true
		}
		d.loading = false
		if msg.err != nil {
			m.setError("Failed to load permissions: " + msg.err.Error())
			return m, nil, true
		}
		ids := make([]string, 0, len(msg.perms))
		for _, p := range msg.perms {
			ids = append(ids, p.ID)
		}
		d.perms = models.NewPermissionSet(ids)
		return m, nil, true

	case dialogSavedMsg:
		if d.kind != msg.kind {
			return m, nil, true
		}
		d.saving = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Failed to save %s: %v", msg.what, msg.err))
			return m, nil, true
		}
		m.setInfo(strings.ToUpper(msg.what[:1]) + msg.what[1:] + " saved")
		reload := m.loadAdminTab(msg.tab)
		if msg.kind == dialogDeptMembers {
			d.loading = true
			return m, tea.Batch(m.loadDepartmentMembers(d.subjectID), reload), true
		}
		m = m.closeDialog()
		return m, reload, true
	}
	return m, nil, false
}
