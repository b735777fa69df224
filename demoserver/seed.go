// ABOUTME: Seed data for the in-memory demo backend
// ABOUTME: Users, rosters, conversations, roles, departments, approvals and logs
package demoserver

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/harperreed/telemsg/models"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

type account struct {
	user         models.User
	passwordHash []byte
	roleID       string
	deptID       string
}

type storedMessage struct {
	models.Message
	RecipientID string
}

type storedFile struct {
	name      string
	data      []byte
	thumbnail []byte
}

func (s *Server) seed() error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	s.roles = []models.Role{
		{ID: "1", Name: "System Admin", Description: "Full access to every system feature"},
		{ID: "2", Name: "Department Manager", Description: "Manages department members and approvals"},
		{ID: "3", Name: "Employee", Description: "Basic communication features"},
	}
	s.rolePerms = map[string][]string{
		"1": {"approve.all", "audit.view", "role.manage", "system.settings", "user.manage.all"},
		"2": {"approve.dept", "data.export.dept", "group.manage.dept", "user.manage.dept"},
		"3": {"approve.view", "call.video", "call.voice", "file.send", "message.send"},
	}

	s.departments = []models.Department{
		{ID: "1", Name: "Engineering", Manager: "Zhang San", Description: "Product development and maintenance"},
		{ID: "2", Name: "Marketing", Parent: "1", Manager: "Li Si", Description: "Market development and sales"},
		{ID: "3", Name: "Human Resources", Manager: "Wang Wu", Description: "Recruiting and employee relations"},
		{ID: "4", Name: "Finance", Manager: "Zhao Liu", Description: "Financial management and accounting"},
	}

	seedUsers := []struct {
		id, name, username, role, dept string
		status                         models.UserStatus
		admin                          bool
		created                        string
	}{
		{"1", "Zhang San", "zhangsan", "1", "1", models.UserActive, true, "2024-01-15"},
		{"2", "Li Si", "lisi", "2", "2", models.UserActive, false, "2024-02-20"},
		{"3", "Wang Wu", "wangwu", "3", "1", models.UserActive, false, "2024-03-10"},
		{"4", "Zhao Liu", "zhaoliu", "3", "4", models.UserSuspended, false, "2024-04-02"},
	}
	for _, u := range seedUsers {
		s.accounts[u.id] = &account{
			user: models.User{
				ID:        u.id,
				Name:      u.name,
				Username:  u.username,
				Avatar:    models.AvatarURL(u.username),
				Status:    u.status,
				IsAdmin:   u.admin,
				CreatedAt: u.created,
			},
			passwordHash: hash,
			roleID:       u.role,
			deptID:       u.dept,
		}
		s.order = append(s.order, u.id)
	}

	s.rosters = map[string][]string{
		"1": {"2", "3"},
		"2": {"1", "3"},
		"3": {"1", "2"},
		"4": {"1"},
	}

	base := s.now().Add(-2 * time.Hour)
	convo := []struct{ from, to, text string }{
		{"2", "1", "Morning! Did the release go out?"},
		{"1", "2", "Yes, rolled out at 9. No incidents so far."},
		{"2", "1", "Great, I'll let the marketing team know."},
		{"3", "1", "Can you review my access request?"},
	}
	for i, m := range convo {
		status := models.StatusRead
		if i == len(convo)-1 {
			status = models.StatusSent
		}
		s.messages = append(s.messages, storedMessage{
			Message: models.Message{
				ID:        s.newID(),
				SenderID:  m.from,
				Content:   m.text,
				Timestamp: base.Add(time.Duration(i) * 10 * time.Minute),
				Type:      models.MessageText,
				Status:    status,
			},
			RecipientID: m.to,
		})
	}

	s.notifications["1"] = []models.Notification{
		{ID: s.newID(), Type: models.NotifyMessage, Title: "New message", Content: "Wang Wu sent you a message", Timestamp: s.now().Add(-5 * time.Minute)},
		{ID: s.newID(), Type: "approval", Title: "Approval pending", Content: "Li Si requested a department data export", Timestamp: s.now().Add(-3 * time.Hour)},
		{ID: s.newID(), Type: models.NotifySystem, Title: "Maintenance window", Content: "The backend restarts Sunday 02:00", Timestamp: s.now().Add(-26 * time.Hour), Read: true},
	}

	s.approvals = []models.ApprovalRequest{
		{ID: s.newID(), Type: "data_export", RequesterID: "2", RequesterName: "Li Si", Status: models.ApprovalPending,
			CreatedAt: s.now().Add(-3 * time.Hour).Format(time.RFC3339), Data: map[string]any{"scope": "department"}},
		{ID: s.newID(), Type: "group_create", RequesterID: "3", RequesterName: "Wang Wu", Status: models.ApprovalPending,
			CreatedAt: s.now().Add(-1 * time.Hour).Format(time.RFC3339), Data: map[string]any{"name": "Release crew"}},
		{ID: s.newID(), Type: "file_transfer", RequesterID: "3", RequesterName: "Wang Wu", Status: models.ApprovalApproved,
			CreatedAt: s.now().Add(-48 * time.Hour).Format(time.RFC3339), Comment: "ok"},
	}

	s.appendLog("1", "login", "Signed in", "10.0.0.8")
	s.appendLog("2", "login", "Signed in", "10.0.0.12")
	s.appendLog("1", "update_role", "Changed Wang Wu to Employee", "10.0.0.8")
	return nil
}
