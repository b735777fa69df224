// ABOUTME: Administration MCP tool handlers
// ABOUTME: Exposes stats, user search, departments, approvals, audit logs and role permissions
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
)

type AdminHandlers struct {
	client *api.Client
}

func NewAdminHandlers(client *api.Client) *AdminHandlers {
	return &AdminHandlers{client: client}
}

type GetStatsInput struct{}

type StatsOutput struct {
	TotalUsers       int     `json:"total_users"`
	OnlineUsers      int     `json:"online_users"`
	TotalMessages    int     `json:"total_messages"`
	StorageUsedGB    float64 `json:"storage_used_gb"`
	TotalDepartments int     `json:"total_departments"`
	TotalRoles       int     `json:"total_roles"`
}

func (h *AdminHandlers) GetStats(ctx context.Context, _ *mcp.CallToolRequest, _ GetStatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	s, err := h.client.SystemStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to fetch stats: %w", err)
	}
	return nil, StatsOutput{
		TotalUsers:       s.TotalUsers,
		OnlineUsers:      s.OnlineUsers,
		TotalMessages:    s.TotalMessages,
		StorageUsedGB:    s.StorageUsed,
		TotalDepartments: s.TotalDepartments,
		TotalRoles:       s.TotalRoles,
	}, nil
}

type UserOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	Status     string `json:"status,omitempty"`
	LastActive string `json:"last_active,omitempty"`
}

func userToOutput(u models.User) UserOutput {
	return UserOutput{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Role:       u.Role,
		Department: u.Department,
		Status:     string(u.Status),
		LastActive: u.LastActive,
	}
}

type FindUsersInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Match name, username, department or role"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status (active, inactive, suspended)"`
}

type FindUsersOutput struct {
	Users []UserOutput `json:"users"`
}

func (h *AdminHandlers) FindUsers(ctx context.Context, _ *mcp.CallToolRequest, input FindUsersInput) (*mcp.CallToolResult, FindUsersOutput, error) {
	users, err := h.client.AllUsers(ctx)
	if err != nil {
		return nil, FindUsersOutput{}, fmt.Errorf("failed to list users: %w", err)
	}

	out := FindUsersOutput{Users: []UserOutput{}}
	for _, u := range models.FilterUsers(users, input.Query) {
		if input.Status != "" && string(u.Status) != input.Status {
			continue
		}
		out.Users = append(out.Users, userToOutput(u))
	}
	return nil, out, nil
}

type DepartmentOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Parent      string `json:"parent,omitempty"`
	Manager     string `json:"manager"`
	MemberCount int    `json:"member_count"`
	Description string `json:"description,omitempty"`
}

type ListDepartmentsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Filter departments by name or manager"`
}

type ListDepartmentsOutput struct {
	Departments []DepartmentOutput `json:"departments"`
}

func (h *AdminHandlers) ListDepartments(ctx context.Context, _ *mcp.CallToolRequest, input ListDepartmentsInput) (*mcp.CallToolResult, ListDepartmentsOutput, error) {
	depts, err := h.client.Departments(ctx)
	if err != nil {
		return nil, ListDepartmentsOutput{}, fmt.Errorf("failed to list departments: %w", err)
	}

	out := ListDepartmentsOutput{Departments: []DepartmentOutput{}}
	for _, d := range models.FilterDepartments(depts, input.Query) {
		out.Departments = append(out.Departments, DepartmentOutput{
			ID:          d.ID,
			Name:        d.Name,
			Parent:      d.Parent,
			Manager:     d.Manager,
			MemberCount: d.MemberCount,
			Description: d.Description,
		})
	}
	return nil, out, nil
}

type ApprovalOutput struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	RequesterName string `json:"requester_name"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	Comment       string `json:"comment,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type ListApprovalsInput struct {
	Status string `json:"status,omitempty" jsonschema:"pending, approved or rejected (default: all)"`
}

type ListApprovalsOutput struct {
	Approvals []ApprovalOutput `json:"approvals"`
}

func (h *AdminHandlers) ListApprovals(ctx context.Context, _ *mcp.CallToolRequest, input ListApprovalsInput) (*mcp.CallToolResult, ListApprovalsOutput, error) {
	list, err := h.client.ApprovalRequests(ctx, models.ApprovalStatus(input.Status))
	if err != nil {
		return nil, ListApprovalsOutput{}, fmt.Errorf("failed to list approvals: %w", err)
	}

	out := ListApprovalsOutput{Approvals: make([]ApprovalOutput, len(list))}
	for i, a := range list {
		out.Approvals[i] = ApprovalOutput{
			ID:            a.ID,
			Type:          a.Type,
			RequesterName: a.RequesterName,
			Status:        string(a.Status),
			CreatedAt:     a.CreatedAt,
			Comment:       a.Comment,
			Reason:        a.Reason,
		}
	}
	return nil, out, nil
}

type QueryLogsInput struct {
	UserID    string `json:"user_id,omitempty" jsonschema:"Only entries for this user"`
	Action    string `json:"action,omitempty" jsonschema:"Only entries with this action"`
	StartDate string `json:"start_date,omitempty" jsonschema:"Earliest date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"Latest date (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum entries (default 50)"`
}

type LogOutput struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
	IPAddress string `json:"ip_address,omitempty"`
}

type QueryLogsOutput struct {
	Logs []LogOutput `json:"logs"`
}

func (h *AdminHandlers) QueryLogs(ctx context.Context, _ *mcp.CallToolRequest, input QueryLogsInput) (*mcp.CallToolResult, QueryLogsOutput, error) {
	logs, err := h.client.OperationLogs(ctx, models.LogFilter{
		UserID:    input.UserID,
		Action:    input.Action,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	})
	if err != nil {
		return nil, QueryLogsOutput{}, fmt.Errorf("failed to query logs: %w", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}

	out := QueryLogsOutput{Logs: make([]LogOutput, len(logs))}
	for i, l := range logs {
		out.Logs[i] = LogOutput{
			ID:        l.ID,
			UserName:  l.UserName,
			Action:    l.Action,
			Details:   l.Details,
			Timestamp: l.Timestamp,
			IPAddress: l.IPAddress,
		}
	}
	return nil, out, nil
}

type RolePermissionsInput struct {
	RoleID string `json:"role_id" jsonschema:"Role ID (required)"`
}

type PermissionOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type RolePermissionsOutput struct {
	RoleID      string             `json:"role_id"`
	Permissions []PermissionOutput `json:"permissions"`
}

func (h *AdminHandlers) RolePermissions(ctx context.Context, _ *mcp.CallToolRequest, input RolePermissionsInput) (*mcp.CallToolResult, RolePermissionsOutput, error) {
	if input.RoleID == "" {
		return nil, RolePermissionsOutput{}, fmt.Errorf("role_id is required")
	}

	perms, err := h.client.RolePermissions(ctx, input.RoleID)
	if err != nil {
		return nil, RolePermissionsOutput{}, fmt.Errorf("failed to load permissions: %w", err)
	}

	out := RolePermissionsOutput{RoleID: input.RoleID, Permissions: make([]PermissionOutput, len(perms))}
	for i, p := range perms {
		out.Permissions[i] = PermissionOutput{ID: p.ID, Name: p.Name, Category: p.Category}
	}
	return nil, out, nil
}
