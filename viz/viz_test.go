// ABOUTME: Tests for the department graph and admin dashboard
// ABOUTME: Uses in-memory fixtures in place of the backend
package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-graphviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/models"
)

var testDepartments = []models.Department{
	{ID: "d1", Name: "Headquarters", Manager: "Zhang San", MemberCount: 1},
	{ID: "d2", Name: "Engineering", Parent: "Headquarters", Manager: "Li Si", MemberCount: 8},
	{ID: "d3", Name: "Platform", Parent: "d2", MemberCount: 3},
	{ID: "d4", Name: "Orphan", Parent: "Nowhere"},
}

func TestParentIndexResolvesNamesAndIDs(t *testing.T) {
	parents := parentIndex(testDepartments)
	assert.Equal(t, "d1", parents["d2"])
	assert.Equal(t, "d2", parents["d3"])
	assert.NotContains(t, parents, "d1")
	assert.NotContains(t, parents, "d4")
}

func TestParentIndexIgnoresSelfReference(t *testing.T) {
	parents := parentIndex([]models.Department{{ID: "d1", Name: "Loop", Parent: "Loop"}})
	assert.Empty(t, parents)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, graphviz.SVG, FormatForPath("org.svg"))
	assert.Equal(t, graphviz.PNG, FormatForPath("ORG.PNG"))
	assert.Equal(t, graphviz.XDOT, FormatForPath("org.dot"))
	assert.Equal(t, graphviz.XDOT, FormatForPath("org"))
}

func TestDepartmentDOT(t *testing.T) {
	members := map[string][]models.User{
		"d2": {{ID: "u2", Name: "Li Si", Username: "lisi"}},
	}
	dot, err := NewGraphGenerator("Org chart").DepartmentDOT(context.Background(), testDepartments, members)
	require.NoError(t, err)
	assert.Contains(t, dot, "Engineering")
	assert.Contains(t, dot, "Platform")
	assert.Contains(t, dot, "lisi")
}

type fakeSource struct {
	logsErr error
}

func (fakeSource) SystemStats(context.Context) (models.SystemStats, error) {
	return models.SystemStats{TotalUsers: 4, OnlineUsers: 2, TotalMessages: 120, StorageUsed: 1.5}, nil
}

func (fakeSource) Departments(context.Context) ([]models.Department, error) {
	return testDepartments, nil
}

func (fakeSource) ApprovalRequests(_ context.Context, status models.ApprovalStatus) ([]models.ApprovalRequest, error) {
	return []models.ApprovalRequest{{ID: "a1", Type: "group_create", RequesterName: "Wang Wu", Status: status}}, nil
}

func (f fakeSource) OperationLogs(context.Context, models.LogFilter) ([]models.OperationLog, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	logs := make([]models.OperationLog, 8)
	for i := range logs {
		logs[i] = models.OperationLog{ID: "l", UserName: "zhangsan", Action: "login"}
	}
	return logs, nil
}

func TestGenerateDashboardStats(t *testing.T) {
	stats, err := GenerateDashboardStats(context.Background(), fakeSource{})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", stats.Departments[0].Name, "largest department first")
	assert.Len(t, stats.PendingApprovals, 1)
	assert.Len(t, stats.RecentActivity, recentActivityLimit)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "4 users (2 online)")
	assert.Contains(t, out, "1 approval requests pending")
	assert.True(t, strings.Contains(out, "██████████"), "largest department gets a full bar")
}

func TestDashboardToleratesMissingLogs(t *testing.T) {
	stats, err := GenerateDashboardStats(context.Background(), fakeSource{logsErr: errors.New("not found")})
	require.NoError(t, err)
	assert.Empty(t, stats.RecentActivity)
	assert.NotContains(t, RenderDashboard(stats), "RECENT ACTIVITY")
}
