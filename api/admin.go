// ABOUTME: Administration endpoints for users, roles, departments, approvals and logs
// ABOUTME: Read endpoints fall back to fixtures; role permission edits fall back to local storage
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/harperreed/telemsg/models"
)

func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.get(ctx, "/admin/users", &out)
	return withFixture(c, "/admin/users", err, out, fixtureUsers)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.del(ctx, "/admin/users/"+escape(userID))
}

// UpdateUserRole sets the role by display name.
func (c *Client) UpdateUserRole(ctx context.Context, userID, role string) (*models.User, error) {
	var out models.User
	if err := c.put(ctx, "/admin/users/"+escape(userID)+"/role", map[string]string{"role": role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignUserRole sets the role by id.
func (c *Client) AssignUserRole(ctx context.Context, userID, roleID string) error {
	return c.put(ctx, "/admin/users/"+escape(userID)+"/role", map[string]string{"roleId": roleID}, nil)
}

func (c *Client) UpdateUserStatus(ctx context.Context, userID string, status models.UserStatus) (*models.User, error) {
	var out models.User
	if err := c.put(ctx, "/admin/users/"+escape(userID)+"/status", map[string]string{"status": string(status)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUserDepartment(ctx context.Context, userID, departmentID string) (*models.User, error) {
	var out models.User
	if err := c.put(ctx, "/admin/users/"+escape(userID)+"/department", map[string]string{"departmentId": departmentID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetUserPassword(ctx context.Context, userID, newPassword string) error {
	return c.put(ctx, "/admin/users/"+escape(userID)+"/password", map[string]string{"newPassword": newPassword}, nil)
}

func (c *Client) UserPermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	var out []models.Permission
	if err := c.get(ctx, "/admin/users/"+escape(userID)+"/permissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SystemStats(ctx context.Context) (models.SystemStats, error) {
	var out models.SystemStats
	err := c.get(ctx, "/admin/stats", &out)
	return withFixture(c, "/admin/stats", err, out, fixtureStats)
}

func (c *Client) Departments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	err := c.get(ctx, "/admin/departments", &out)
	return withFixture(c, "/admin/departments", err, out, fixtureDepartments)
}

func (c *Client) CreateDepartment(ctx context.Context, name, manager, parent string) (*models.Department, error) {
	body := map[string]string{"name": name, "manager": manager}
	if parent != "" {
		body["parent"] = parent
	}
	var out models.Department
	if err := c.post(ctx, "/admin/departments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DepartmentUpdate carries the fields to change. Empty fields are left alone.
type DepartmentUpdate struct {
	Name        string `json:"name,omitempty"`
	Manager     string `json:"manager,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *Client) UpdateDepartment(ctx context.Context, departmentID string, update DepartmentUpdate) (*models.Department, error) {
	var out models.Department
	if err := c.put(ctx, "/admin/departments/"+escape(departmentID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDepartment(ctx context.Context, departmentID string) error {
	return c.del(ctx, "/admin/departments/"+escape(departmentID))
}

func (c *Client) DepartmentMembers(ctx context.Context, departmentID string) ([]models.User, error) {
	var out []models.User
	endpoint := "/admin/departments/" + escape(departmentID) + "/members"
	err := c.get(ctx, endpoint, &out)
	return withFixture(c, endpoint, err, out, fixtureDepartmentMembers)
}

func (c *Client) AddDepartmentMember(ctx context.Context, departmentID, userID string) error {
	return c.post(ctx, "/admin/departments/"+escape(departmentID)+"/members", map[string]string{"userId": userID}, nil)
}

func (c *Client) RemoveDepartmentMember(ctx context.Context, departmentID, userID string) error {
	return c.del(ctx, "/admin/departments/"+escape(departmentID)+"/members/"+escape(userID))
}

func (c *Client) Roles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	err := c.get(ctx, "/admin/roles", &out)
	return withFixture(c, "/admin/roles", err, out, fixtureRoles)
}

func (c *Client) CreateRole(ctx context.Context, name, description string, permissions []string) (*models.Role, error) {
	if permissions == nil {
		permissions = []string{}
	}
	body := map[string]any{"name": name, "description": description, "permissions": permissions}
	var out models.Role
	if err := c.post(ctx, "/admin/roles", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoleUpdate carries the fields to change. Empty fields are left alone.
type RoleUpdate struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *Client) UpdateRole(ctx context.Context, roleID string, update RoleUpdate) (*models.Role, error) {
	var out models.Role
	if err := c.put(ctx, "/admin/roles/"+escape(roleID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRole(ctx context.Context, roleID string) error {
	return c.del(ctx, "/admin/roles/"+escape(roleID))
}

func (c *Client) RoleMembers(ctx context.Context, roleID string) ([]models.User, error) {
	var out []models.User
	endpoint := "/admin/roles/" + escape(roleID) + "/members"
	err := c.get(ctx, endpoint, &out)
	return withFixture(c, endpoint, err, out, func() []models.User { return fixtureRoleMembers(roleID) })
}

// RolePermissions loads a role's permissions. When the backend cannot answer,
// the set last saved locally for the role is returned (empty if none).
func (c *Client) RolePermissions(ctx context.Context, roleID string) ([]models.Permission, error) {
	var out []models.Permission
	err := c.get(ctx, "/admin/roles/"+escape(roleID)+"/permissions", &out)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || c.local == nil {
		return nil, err
	}

	c.logger.Warn("backend unavailable, reading local role permissions", "role", roleID, "err", err)
	ids, localErr := c.local.MockRolePermissions(roleID)
	if localErr != nil {
		return nil, errors.Join(err, localErr)
	}
	perms := make([]models.Permission, 0, len(ids))
	for _, id := range ids {
		perms = append(perms, models.PermissionFromID(id))
	}
	return perms, nil
}

// UpdateRolePermissions replaces a role's permission set with ids. The full
// collection is always sent. When the backend cannot accept it, the set is kept locally.
func (c *Client) UpdateRolePermissions(ctx context.Context, roleID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	err := c.put(ctx, "/admin/roles/"+escape(roleID)+"/permissions", map[string][]string{"permissionIds": ids}, nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || c.local == nil {
		return err
	}

	c.logger.Warn("backend unavailable, saving role permissions locally", "role", roleID, "count", len(ids), "err", err)
	if localErr := c.local.SaveMockRolePermissions(roleID, ids); localErr != nil {
		return errors.Join(err, localErr)
	}
	return nil
}

func (c *Client) AllPermissions(ctx context.Context) ([]models.Permission, error) {
	var out []models.Permission
	if err := c.get(ctx, "/admin/permissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApprovalRequests lists approvals, optionally restricted to one status.
func (c *Client) ApprovalRequests(ctx context.Context, status models.ApprovalStatus) ([]models.ApprovalRequest, error) {
	endpoint := "/admin/approvals"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(string(status))
	}
	var out []models.ApprovalRequest
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApproveRequest(ctx context.Context, requestID, comment string) error {
	return c.post(ctx, "/admin/approvals/"+escape(requestID)+"/approve", map[string]string{"comment": comment}, nil)
}

func (c *Client) RejectRequest(ctx context.Context, requestID, reason string) error {
	return c.post(ctx, "/admin/approvals/"+escape(requestID)+"/reject", map[string]string{"reason": reason}, nil)
}

func (c *Client) CreateApprovalRequest(ctx context.Context, kind string, data map[string]any) (*models.ApprovalRequest, error) {
	var out models.ApprovalRequest
	if err := c.post(ctx, "/admin/approvals", map[string]any{"type": kind, "data": data}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func logQuery(f models.LogFilter) string {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	if f.Action != "" {
		q.Set("action", f.Action)
	}
	if f.StartDate != "" {
		q.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("endDate", f.EndDate)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) OperationLogs(ctx context.Context, filter models.LogFilter) ([]models.OperationLog, error) {
	var out []models.OperationLog
	if err := c.get(ctx, "/admin/logs"+logQuery(filter), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportLogs streams the backend's log export into w and returns the byte count.
func (c *Client) ExportLogs(ctx context.Context, filter models.LogFilter, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/admin/logs/export"+logQuery(filter), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: fmt.Sprintf("export failed: status %d", resp.StatusCode)}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}
