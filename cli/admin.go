// ABOUTME: Administration CLI commands
// ABOUTME: Users, roles, departments, approvals and audit logs for administrators
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/viz"
)

// AdminStatsCommand prints the dashboard overview.
func AdminStatsCommand(client *api.Client, _ []string) error {
	stats, err := viz.GenerateDashboardStats(context.Background(), client)
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderDashboard(stats))
	return nil
}

func UsersCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin users", flag.ExitOnError)
	query := fs.String("q", "", "Match name, username, department or role")
	_ = fs.Parse(args)

	users, err := client.AllUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	users = models.FilterUsers(users, *query)

	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tUSERNAME\tDEPARTMENT\tROLE\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "----\t--------\t----------\t----\t------\t--")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.Name, u.Username, orDash(u.Department), orDash(u.Role), u.Status, u.ID)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d user(s)\n", len(users))
	return nil
}

func RolesCommand(client *api.Client, _ []string) error {
	roles, err := client.Roles(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tUSERS\tDESCRIPTION\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----------\t--")
	for _, r := range roles {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Name, r.UserCount, r.Description, r.ID)
	}
	_ = w.Flush()
	return nil
}

// RolePermsCommand shows a role's permissions, or replaces them with --set.
func RolePermsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin role-perms", flag.ExitOnError)
	set := fs.String("set", "", "Comma-separated permission IDs to save as the full set")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("role ID is required")
	}
	roleID := fs.Arg(0)
	ctx := context.Background()

	if *set != "" {
		var ids []string
		for _, id := range strings.Split(*set, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := models.LookupPermission(id); !ok {
				return fmt.Errorf("unknown permission: %s", id)
			}
			ids = append(ids, id)
		}
		ids = models.NewPermissionSet(ids).IDs()
		if err := client.UpdateRolePermissions(ctx, roleID, ids); err != nil {
			return fmt.Errorf("failed to save permissions: %w", err)
		}
		fmt.Printf("✓ Saved %d permission(s) for role %s\n", len(ids), roleID)
	}

	perms, err := client.RolePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}
	granted := make([]string, len(perms))
	for i, p := range perms {
		granted[i] = p.ID
	}
	have := models.NewPermissionSet(granted)

	for _, cat := range models.PermissionCatalog {
		fmt.Println(cat.Category)
		for _, p := range cat.Permissions {
			box := "[ ]"
			if have.Has(p.ID) {
				box = "[x]"
			}
			fmt.Printf("  %s %-22s %s\n", box, p.ID, p.Name)
		}
	}
	return nil
}

func DepartmentsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin departments", flag.ExitOnError)
	query := fs.String("q", "", "Filter by name or manager")
	_ = fs.Parse(args)

	depts, err := client.Departments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list departments: %w", err)
	}
	depts = models.FilterDepartments(depts, *query)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tMANAGER\tMEMBERS\tPARENT\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t-------\t------\t--")
	for _, d := range depts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.Name, orDash(d.Manager), d.MemberCount, orDash(d.Parent), d.ID)
	}
	_ = w.Flush()
	return nil
}

// DeptGraphCommand renders the department hierarchy. The format follows the --out extension.
func DeptGraphCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin dept-graph", flag.ExitOnError)
	output := fs.String("out", "", "Output file (.dot, .svg, .png, .jpg; default: DOT to stdout)")
	withMembers := fs.Bool("members", false, "Include department members")
	_ = fs.Parse(args)

	ctx := context.Background()
	depts, err := client.Departments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list departments: %w", err)
	}

	var members map[string][]models.User
	if *withMembers {
		members = make(map[string][]models.User, len(depts))
		for _, d := range depts {
			list, err := client.DepartmentMembers(ctx, d.ID)
			if err != nil {
				return fmt.Errorf("failed to list members of %s: %w", d.Name, err)
			}
			members[d.ID] = list
		}
	}

	generator := viz.NewGraphGenerator("Organization")
	if *output == "" {
		dot, err := generator.DepartmentDOT(ctx, depts, members)
		if err != nil {
			return err
		}
		fmt.Println(dot)
		return nil
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *output, err)
	}
	defer func() { _ = f.Close() }()

	if err := generator.RenderDepartments(ctx, depts, members, viz.FormatForPath(*output), f); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", *output)
	return nil
}

func ApprovalsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin approvals", flag.ExitOnError)
	status := fs.String("status", "pending", "pending, approved, rejected or all")
	_ = fs.Parse(args)

	filter := models.ApprovalStatus(*status)
	if *status == "all" {
		filter = ""
	}

	list, err := client.ApprovalRequests(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list approvals: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No approval requests")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tREQUESTER\tSTATUS\tCREATED\tID")
	_, _ = fmt.Fprintln(w, "----\t---------\t------\t-------\t--")
	for _, a := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Type, a.RequesterName, a.Status, a.CreatedAt, a.ID)
	}
	_ = w.Flush()
	return nil
}

func ApproveCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin approve", flag.ExitOnError)
	comment := fs.String("comment", "", "Optional comment")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("approval request ID is required")
	}
	if err := client.ApproveRequest(context.Background(), fs.Arg(0), *comment); err != nil {
		return fmt.Errorf("failed to approve: %w", err)
	}
	fmt.Printf("✓ Approved %s\n", fs.Arg(0))
	return nil
}

func RejectCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin reject", flag.ExitOnError)
	reason := fs.String("reason", "", "Reason for rejecting (required)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("approval request ID is required")
	}
	if strings.TrimSpace(*reason) == "" {
		return fmt.Errorf("--reason is required")
	}
	if err := client.RejectRequest(context.Background(), fs.Arg(0), *reason); err != nil {
		return fmt.Errorf("failed to reject: %w", err)
	}
	fmt.Printf("✓ Rejected %s\n", fs.Arg(0))
	return nil
}

func logFilterFlags(fs *flag.FlagSet) *models.LogFilter {
	f := &models.LogFilter{}
	fs.StringVar(&f.Action, "action", "", "Only entries with this action")
	fs.StringVar(&f.UserID, "user", "", "Only entries for this user ID")
	fs.StringVar(&f.StartDate, "from", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&f.EndDate, "to", "", "End date (YYYY-MM-DD)")
	return f
}

func LogsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin logs", flag.ExitOnError)
	filter := logFilterFlags(fs)
	_ = fs.Parse(args)

	logs, err := client.OperationLogs(context.Background(), *filter)
	if err != nil {
		return fmt.Errorf("failed to query logs: %w", err)
	}

	if len(logs) == 0 {
		fmt.Println("No log entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS\tIP")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t-------\t--")
	for _, l := range logs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Timestamp, l.UserName, l.Action, l.Details, orDash(l.IPAddress))
	}
	_ = w.Flush()
	return nil
}

// ExportLogsCommand downloads the CSV export to --out.
func ExportLogsCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("admin export-logs", flag.ExitOnError)
	output := fs.String("out", "", "Output CSV file (required)")
	filter := logFilterFlags(fs)
	_ = fs.Parse(args)

	if *output == "" {
		return fmt.Errorf("--out is required")
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *output, err)
	}
	n, err := client.ExportLogs(context.Background(), *filter, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to export logs: %w", err)
	}

	fmt.Printf("✓ Exported %d bytes to %s\n", n, *output)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
