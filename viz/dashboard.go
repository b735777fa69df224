// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII overview of the workspace for administrators
package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/telemsg/models"
)

// DashboardSource is the part of the admin API the dashboard reads.
type DashboardSource interface {
	SystemStats(ctx context.Context) (models.SystemStats, error)
	Departments(ctx context.Context) ([]models.Department, error)
	ApprovalRequests(ctx context.Context, status models.ApprovalStatus) ([]models.ApprovalRequest, error)
	OperationLogs(ctx context.Context, filter models.LogFilter) ([]models.OperationLog, error)
}

type DashboardStats struct {
	System      models.SystemStats
	Departments []models.Department

	PendingApprovals []models.ApprovalRequest
	RecentActivity   []models.OperationLog
}

const recentActivityLimit = 5

func GenerateDashboardStats(ctx context.Context, src DashboardSource) (*DashboardStats, error) {
	stats := &DashboardStats{}

	system, err := src.SystemStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	stats.System = system

	depts, err := src.Departments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	depts = append([]models.Department(nil), depts...)
	sort.SliceStable(depts, func(i, j int) bool { return depts[i].MemberCount > depts[j].MemberCount })
	stats.Departments = depts

	// Approvals and logs are optional on older backends.
	if pending, err := src.ApprovalRequests(ctx, models.ApprovalPending); err == nil {
		stats.PendingApprovals = pending
	}
	if logs, err := src.OperationLogs(ctx, models.LogFilter{}); err == nil {
		if len(logs) > recentActivityLimit {
			logs = logs[:recentActivityLimit]
		}
		stats.RecentActivity = logs
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  TELEMSG ADMIN DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  👥 %d users (%d online)  💬 %d messages  💾 %.1f GB\n\n",
		stats.System.TotalUsers, stats.System.OnlineUsers, stats.System.TotalMessages, stats.System.StorageUsed))

	if len(stats.Departments) > 0 {
		out.WriteString("DEPARTMENTS\n")
		renderHeadcount(&out, stats.Departments)
		out.WriteString("\n")
	}

	if len(stats.PendingApprovals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d approval requests pending\n", len(stats.PendingApprovals)))
		for _, a := range stats.PendingApprovals {
			out.WriteString(fmt.Sprintf("     %s from %s\n", a.Type, a.RequesterName))
		}
		out.WriteString("\n")
	}

	if len(stats.RecentActivity) > 0 {
		out.WriteString("RECENT ACTIVITY\n")
		for _, l := range stats.RecentActivity {
			out.WriteString(fmt.Sprintf("  %-20s %-12s %s\n", l.Timestamp, l.UserName, l.Action))
		}
	}

	return out.String()
}

func renderHeadcount(out *strings.Builder, depts []models.Department) {
	maxCount := 0
	for _, d := range depts {
		if d.MemberCount > maxCount {
			maxCount = d.MemberCount
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, d := range depts {
		barLength := (d.MemberCount * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-16s %s  %3d\n", d.Name, bar, d.MemberCount))
	}
}
