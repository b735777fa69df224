// ABOUTME: Administrator routes of the demo backend
// ABOUTME: Users, departments, roles, permissions, approvals and operation logs
package demoserver

import (
	"encoding/csv"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/harperreed/telemsg/models"
)

func (s *Server) registerAdminRoutes(g *gin.RouterGroup) {
	g.GET("/stats", s.stats)

	g.GET("/users", s.listUsers)
	g.DELETE("/users/:id", s.deleteUser)
	g.PUT("/users/:id/role", s.setUserRole)
	g.PUT("/users/:id/status", s.setUserStatus)
	g.PUT("/users/:id/department", s.setUserDepartment)
	g.PUT("/users/:id/password", s.resetPassword)
	g.GET("/users/:id/permissions", s.userPermissions)

	g.GET("/departments", s.listDepartments)
	g.POST("/departments", s.createDepartment)
	g.PUT("/departments/:id", s.updateDepartment)
	g.DELETE("/departments/:id", s.deleteDepartment)
	g.GET("/departments/:id/members", s.departmentMembers)
	g.POST("/departments/:id/members", s.addDepartmentMember)
	g.DELETE("/departments/:id/members/:userId", s.removeDepartmentMember)

	g.GET("/roles", s.listRoles)
	g.POST("/roles", s.createRole)
	g.PUT("/roles/:id", s.updateRole)
	g.DELETE("/roles/:id", s.deleteRole)
	g.GET("/roles/:id/members", s.roleMembers)
	g.GET("/roles/:id/permissions", s.rolePermissions)
	g.PUT("/roles/:id/permissions", s.setRolePermissions)

	g.GET("/permissions", s.allPermissions)

	g.GET("/approvals", s.listApprovals)
	g.POST("/approvals", s.createApproval)
	g.POST("/approvals/:id/approve", s.decideApproval(true))
	g.POST("/approvals/:id/reject", s.decideApproval(false))

	g.GET("/logs", s.listLogs)
	g.GET("/logs/export", s.exportLogs)
}

func (s *Server) stats(c *gin.Context) {
	online := s.hub.onlineCount()
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int
	for _, f := range s.files {
		stored += len(f.data)
	}
	c.JSON(http.StatusOK, models.SystemStats{
		TotalUsers:       len(s.accounts),
		OnlineUsers:      online,
		TotalMessages:    len(s.messages),
		StorageUsed:      float64(stored) / (1 << 30),
		TotalDepartments: len(s.departments),
		TotalRoles:       len(s.roles),
	})
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.userView(s.accounts[id]))
	}
	c.JSON(http.StatusOK, out)
}

// withAccount runs fn on the account named by :id while holding s.mu.
func (s *Server) withAccount(c *gin.Context, fn func(a *account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[c.Param("id")]
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	fn(a)
}

func (s *Server) deleteUser(c *gin.Context) {
	s.withAccount(c, func(a *account) {
		id := a.user.ID
		if id == c.GetString("userID") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete yourself"})
			return
		}
		delete(s.accounts, id)
		delete(s.rosters, id)
		s.order = remove(s.order, id)
		for owner := range s.rosters {
			s.rosters[owner] = remove(s.rosters[owner], id)
		}
		s.appendLog(c.GetString("userID"), "delete_user", "Deleted "+a.user.Name, c.ClientIP())
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
	})
}

func (s *Server) setUserRole(c *gin.Context) {
	var req struct {
		Role   string `json:"role"`
		RoleID string `json:"roleId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.Role == "" && req.RoleID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role or roleId is required"})
		return
	}
	s.withAccount(c, func(a *account) {
		for _, r := range s.roles {
			if r.ID == req.RoleID || (req.RoleID == "" && r.Name == req.Role) {
				a.roleID = r.ID
				s.appendLog(c.GetString("userID"), "update_role", "Changed "+a.user.Name+" to "+r.Name, c.ClientIP())
				c.JSON(http.StatusOK, s.userView(a))
				return
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
	})
}

func (s *Server) setUserStatus(c *gin.Context) {
	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	switch req.Status {
	case models.UserActive, models.UserInactive, models.UserSuspended:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	s.withAccount(c, func(a *account) {
		a.user.Status = req.Status
		s.appendLog(c.GetString("userID"), "update_status", a.user.Name+" is now "+string(req.Status), c.ClientIP())
		c.JSON(http.StatusOK, s.userView(a))
	})
}

func (s *Server) setUserDepartment(c *gin.Context) {
	var req struct {
		DepartmentID string `json:"departmentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DepartmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departmentId is required"})
		return
	}
	s.withAccount(c, func(a *account) {
		if s.department(req.DepartmentID) == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown department"})
			return
		}
		a.deptID = req.DepartmentID
		c.JSON(http.StatusOK, s.userView(a))
	})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newPassword must be at least 6 characters"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.withAccount(c, func(a *account) {
		a.passwordHash = hash
		s.appendLog(c.GetString("userID"), "reset_password", "Reset password for "+a.user.Name, c.ClientIP())
		c.JSON(http.StatusOK, gin.H{"message": "password reset"})
	})
}

func (s *Server) userPermissions(c *gin.Context) {
	s.withAccount(c, func(a *account) {
		c.JSON(http.StatusOK, permissionList(s.rolePerms[a.roleID]))
	})
}

// department returns the department with id. Caller holds s.mu.
func (s *Server) department(id string) *models.Department {
	for i := range s.departments {
		if s.departments[i].ID == id {
			return &s.departments[i]
		}
	}
	return nil
}

func (s *Server) listDepartments(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Department, 0, len(s.departments))
	for _, d := range s.departments {
		d.MemberCount = 0
		for _, a := range s.accounts {
			if a.deptID == d.ID {
				d.MemberCount++
			}
		}
		out = append(out, d)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createDepartment(c *gin.Context) {
	var req models.Department
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Parent != "" && s.department(req.Parent) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown parent department"})
		return
	}
	req.ID = s.newID()
	req.MemberCount = 0
	s.departments = append(s.departments, req)
	s.appendLog(c.GetString("userID"), "create_department", "Created "+req.Name, c.ClientIP())
	c.JSON(http.StatusOK, req)
}

func (s *Server) updateDepartment(c *gin.Context) {
	var req models.Department
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.department(c.Param("id"))
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "department not found"})
		return
	}
	if req.Parent == d.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a department cannot be its own parent"})
		return
	}
	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Manager != "" {
		d.Manager = req.Manager
	}
	if req.Parent != "" {
		d.Parent = req.Parent
	}
	if req.Description != "" {
		d.Description = req.Description
	}
	c.JSON(http.StatusOK, *d)
}

func (s *Server) deleteDepartment(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.department(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "department not found"})
		return
	}
	kept := s.departments[:0]
	for _, d := range s.departments {
		if d.ID == id {
			continue
		}
		if d.Parent == id {
			d.Parent = ""
		}
		kept = append(kept, d)
	}
	s.departments = kept
	for _, a := range s.accounts {
		if a.deptID == id {
			a.deptID = ""
		}
	}
	s.appendLog(c.GetString("userID"), "delete_department", "Deleted department "+id, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) departmentMembers(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, uid := range s.order {
		if a := s.accounts[uid]; a.deptID == id {
			out = append(out, s.userView(a))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addDepartmentMember(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[req.UserID]
	if a == nil || s.department(c.Param("id")) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user or department not found"})
		return
	}
	a.deptID = c.Param("id")
	c.JSON(http.StatusOK, s.userView(a))
}

func (s *Server) removeDepartmentMember(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[c.Param("userId")]
	if a == nil || a.deptID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	a.deptID = ""
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// role returns the role with id. Caller holds s.mu.
func (s *Server) role(id string) *models.Role {
	for i := range s.roles {
		if s.roles[i].ID == id {
			return &s.roles[i]
		}
	}
	return nil
}

func (s *Server) listRoles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		r.UserCount = 0
		for _, a := range s.accounts {
			if a.roleID == r.ID {
				r.UserCount++
			}
		}
		r.Permissions = append([]string{}, s.rolePerms[r.ID]...)
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createRole(c *gin.Context) {
	var req models.Role
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.newID()
	s.rolePerms[req.ID] = models.NewPermissionSet(req.Permissions).IDs()
	req.Permissions = s.rolePerms[req.ID]
	req.UserCount = 0
	s.roles = append(s.roles, models.Role{ID: req.ID, Name: req.Name, Description: req.Description})
	s.appendLog(c.GetString("userID"), "create_role", "Created role "+req.Name, c.ClientIP())
	c.JSON(http.StatusOK, req)
}

func (s *Server) updateRole(c *gin.Context) {
	var req models.Role
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.role(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	if req.Name != "" {
		r.Name = req.Name
	}
	if req.Description != "" {
		r.Description = req.Description
	}
	c.JSON(http.StatusOK, *r)
}

func (s *Server) deleteRole(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	for _, a := range s.accounts {
		if a.roleID == id {
			c.JSON(http.StatusConflict, gin.H{"error": "role still has members"})
			return
		}
	}
	kept := s.roles[:0]
	for _, r := range s.roles {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.roles = kept
	delete(s.rolePerms, id)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) roleMembers(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, uid := range s.order {
		if a := s.accounts[uid]; a.roleID == id {
			out = append(out, s.userView(a))
		}
	}
	c.JSON(http.StatusOK, out)
}

func permissionList(ids []string) []models.Permission {
	out := make([]models.Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.PermissionFromID(id))
	}
	return out
}

func (s *Server) rolePermissions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role(c.Param("id")) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	c.JSON(http.StatusOK, permissionList(s.rolePerms[c.Param("id")]))
}

// setRolePermissions replaces the whole permission set of a role.
func (s *Server) setRolePermissions(c *gin.Context) {
	var req struct {
		PermissionIDs []string `json:"permissionIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PermissionIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "permissionIds is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.role(c.Param("id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	s.rolePerms[r.ID] = models.NewPermissionSet(req.PermissionIDs).IDs()
	s.appendLog(c.GetString("userID"), "update_permissions", "Updated permissions of "+r.Name, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (s *Server) allPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, permissionList(models.CatalogIDs()))
}

func (s *Server) listApprovals(c *gin.Context) {
	status := models.ApprovalStatus(c.Query("status"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ApprovalRequest{}
	for _, a := range s.approvals {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createApproval(c *gin.Context) {
	var req struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}
	me := c.GetString("userID")
	s.mu.Lock()
	defer s.mu.Unlock()
	a := models.ApprovalRequest{
		ID:            s.newID(),
		Type:          req.Type,
		RequesterID:   me,
		RequesterName: s.accounts[me].user.Name,
		Status:        models.ApprovalPending,
		CreatedAt:     s.now().Format(time.RFC3339),
		Data:          req.Data,
	}
	s.approvals = append(s.approvals, a)
	c.JSON(http.StatusOK, a)
}

func (s *Server) decideApproval(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Comment string `json:"comment"`
			Reason  string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)
		note, action := req.Comment, "approve"
		if !approve {
			note, action = req.Reason, "reject"
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.approvals {
			a := &s.approvals[i]
			if a.ID != c.Param("id") {
				continue
			}
			if err := a.Decide(approve, note); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			s.appendLog(c.GetString("userID"), action, a.Type+" request from "+a.RequesterName, c.ClientIP())
			c.JSON(http.StatusOK, *a)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "approval request not found"})
	}
}

// filteredLogs applies the query filters, newest first. Caller holds s.mu.
func (s *Server) filteredLogs(c *gin.Context) []models.OperationLog {
	f := models.LogFilter{
		UserID:    c.Query("userId"),
		Action:    c.Query("action"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	out := []models.OperationLog{}
	for _, l := range s.logs {
		day := l.Timestamp
		if len(day) > 10 {
			day = day[:10]
		}
		switch {
		case f.UserID != "" && l.UserID != f.UserID:
		case f.Action != "" && l.Action != f.Action:
		case f.StartDate != "" && day < f.StartDate:
		case f.EndDate != "" && day > f.EndDate:
		default:
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (s *Server) listLogs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.filteredLogs(c))
}

func (s *Server) exportLogs(c *gin.Context) {
	s.mu.Lock()
	logs := s.filteredLogs(c)
	s.mu.Unlock()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=\"operation-logs.csv\"")
	c.Status(http.StatusOK)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "timestamp", "user_id", "user_name", "action", "details", "ip_address"})
	for _, l := range logs {
		_ = w.Write([]string{l.ID, l.Timestamp, l.UserID, l.UserName, l.Action, l.Details, l.IPAddress})
	}
	w.Flush()
}
