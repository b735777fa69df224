// ABOUTME: Canned admin data served when the backend cannot answer
// ABOUTME: Keeps the admin console navigable in a disconnected demo
package api

import "github.com/harperreed/telemsg/models"

func fixtureStats() models.SystemStats {
	return models.SystemStats{
		TotalUsers:       247,
		OnlineUsers:      189,
		TotalMessages:    15420,
		StorageUsed:      45.6,
		TotalDepartments: 12,
		TotalRoles:       5,
	}
}

func fixtureUser(id, name, username, role, dept string, status models.UserStatus) models.User {
	return models.User{
		ID:         id,
		Name:       name,
		Username:   username,
		Avatar:     models.AvatarURL(username),
		Role:       role,
		Department: dept,
		Status:     status,
	}
}

func fixtureUsers() []models.User {
	zhang := fixtureUser("1", "Zhang San", "zhangsan", "System Admin", "Engineering", models.UserActive)
	zhang.IsAdmin = true
	zhang.LastActive = "just now"
	zhang.CreatedAt = "2024-01-15"

	li := fixtureUser("2", "Li Si", "lisi", "Department Manager", "Marketing", models.UserActive)
	li.LastActive = "5 minutes ago"
	li.CreatedAt = "2024-02-20"

	wang := fixtureUser("3", "Wang Wu", "wangwu", "Employee", "Engineering", models.UserInactive)
	wang.LastActive = "2 days ago"
	wang.CreatedAt = "2024-03-10"

	return []models.User{zhang, li, wang}
}

func fixtureDepartments() []models.Department {
	return []models.Department{
		{ID: "1", Name: "Engineering", Manager: "Zhang San", MemberCount: 45, Description: "Product development and maintenance"},
		{ID: "2", Name: "Marketing", Parent: "1", Manager: "Li Si", MemberCount: 32, Description: "Market development and sales"},
		{ID: "3", Name: "Human Resources", Manager: "Wang Wu", MemberCount: 18, Description: "Recruiting and employee relations"},
		{ID: "4", Name: "Finance", Manager: "Zhao Liu", MemberCount: 12, Description: "Financial management and accounting"},
	}
}

func fixtureDepartmentMembers() []models.User {
	return []models.User{
		fixtureUser("1", "Zhang San", "zhangsan", "System Admin", "Engineering", models.UserActive),
		fixtureUser("3", "Wang Wu", "wangwu", "Employee", "Engineering", models.UserActive),
	}
}

func fixtureRoles() []models.Role {
	return []models.Role{
		{ID: "1", Name: "System Admin", Description: "Full access to every system feature", UserCount: 3,
			Permissions: []string{"approve.all", "user.manage.all", "data.export.all", "system.settings", "role.manage", "audit.view"}},
		{ID: "2", Name: "Department Manager", Description: "Manages department members and approvals", UserCount: 8,
			Permissions: []string{"approve.dept", "user.manage.dept", "data.export.dept", "group.manage.dept"}},
		{ID: "3", Name: "Employee", Description: "Basic communication features", UserCount: 45,
			Permissions: []string{"message.send", "file.send", "call.voice", "call.video", "approve.view"}},
	}
}

func fixtureRoleMembers(roleID string) []models.User {
	if roleID == "1" {
		return []models.User{
			fixtureUser("1", "Zhang San", "zhangsan", "System Admin", "Engineering", models.UserActive),
		}
	}
	return []models.User{
		fixtureUser("2", "Li Si", "lisi", "", "Marketing", models.UserActive),
	}
}
