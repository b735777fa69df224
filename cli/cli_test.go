// ABOUTME: Tests for the CLI commands
// ABOUTME: Drives each command against the in-memory demo backend
package cli

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/demoserver"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/store"
)

func setupTestCLI(t *testing.T) *api.Client {
	t.Helper()
	srv, err := demoserver.New(demoserver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	local, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = local.Close() })

	return api.New(api.Options{BaseURL: ts.URL + "/api/", Timeout: 5 * time.Second}, local)
}

func loginAs(t *testing.T, client *api.Client, username string) {
	t.Helper()
	err := LoginCommand(client, []string{"--username", username, "--password", demoserver.DemoPassword})
	if err != nil {
		t.Fatalf("LoginCommand failed: %v", err)
	}
}

func TestLoginCommand(t *testing.T) {
	client := setupTestCLI(t)

	err := LoginCommand(client, []string{"--username", "lisi", "--password", "wrong-password"})
	if err == nil || err.Error() != api.MsgWrongCredentials {
		t.Errorf("Expected wrong credentials message, got %v", err)
	}

	loginAs(t, client, "lisi")
	if client.Token() == "" {
		t.Error("Login should store the token")
	}
	if err := WhoamiCommand(client, nil); err != nil {
		t.Errorf("WhoamiCommand failed: %v", err)
	}

	if err := LogoutCommand(client, nil); err != nil {
		t.Errorf("LogoutCommand failed: %v", err)
	}
	if err := WhoamiCommand(client, nil); err == nil {
		t.Error("Whoami should fail after logout")
	}
}

func TestRegisterCommandValidates(t *testing.T) {
	client := setupTestCLI(t)

	err := RegisterCommand(client, []string{"--name", "New Hire", "--username", "nh", "--password", "secret1"})
	if err == nil {
		t.Error("Short username should be refused")
	}

	err = RegisterCommand(client, []string{"--name", "New Hire", "--username", "newhire", "--password", "secret1"})
	if err != nil {
		t.Errorf("RegisterCommand failed: %v", err)
	}
}

func TestChatCommands(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	if err := ContactsCommand(client, []string{"--q", "li"}); err != nil {
		t.Errorf("ContactsCommand failed: %v", err)
	}
	if err := SendCommand(client, []string{"2", "lunch", "at", "noon?"}); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if err := SendCommand(client, []string{"2"}); err == nil {
		t.Error("Send without text should fail")
	}

	msgs, err := client.Messages(context.Background(), "2")
	if err != nil {
		t.Fatal(err)
	}
	if last := msgs[len(msgs)-1]; last.Content != "lunch at noon?" {
		t.Errorf("Expected sent message last, got %q", last.Content)
	}

	if err := HistoryCommand(client, []string{"--limit", "2", "2"}); err != nil {
		t.Errorf("HistoryCommand failed: %v", err)
	}
}

func TestUploadCommand(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("release notes"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := UploadCommand(client, []string{"2", path}); err != nil {
		t.Errorf("UploadCommand failed: %v", err)
	}
	if err := UploadCommand(client, []string{"2", filepath.Join(t.TempDir(), "missing.txt")}); err == nil {
		t.Error("Uploading a missing file should fail")
	}
}

func TestNotificationCommands(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	if err := NotificationsCommand(client, []string{"--unread"}); err != nil {
		t.Errorf("NotificationsCommand failed: %v", err)
	}
	if err := ReadAllNotificationsCommand(client, nil); err != nil {
		t.Fatalf("ReadAllNotificationsCommand failed: %v", err)
	}

	list, err := client.Notifications(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range list {
		if !n.Read {
			t.Errorf("Notification %s should be read", n.ID)
		}
	}

	if err := DeleteNotificationCommand(client, []string{list[0].ID}); err != nil {
		t.Errorf("DeleteNotificationCommand failed: %v", err)
	}
	if err := ReadNotificationCommand(client, nil); err == nil {
		t.Error("Read without an ID should fail")
	}
}

func TestCallCommands(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	call, err := client.InitiateCall(context.Background(), "2", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := CallStartCommand(client, []string{"--voice", "3"}); err != nil {
		t.Errorf("CallStartCommand failed: %v", err)
	}
	if err := CallEndCommand(client, []string{call.CallID}); err != nil {
		t.Errorf("CallEndCommand failed: %v", err)
	}
}

func TestAdminReadCommands(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	commands := map[string]func(*api.Client, []string) error{
		"stats":       AdminStatsCommand,
		"users":       UsersCommand,
		"roles":       RolesCommand,
		"departments": DepartmentsCommand,
		"approvals":   ApprovalsCommand,
		"logs":        LogsCommand,
		"dept-graph":  DeptGraphCommand,
	}
	for name, cmd := range commands {
		if err := cmd(client, nil); err != nil {
			t.Errorf("%s failed: %v", name, err)
		}
	}
}

func TestRolePermsCommand(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	if err := RolePermsCommand(client, []string{"--set", "message.send,no.such", "3"}); err == nil {
		t.Error("Unknown permission should be refused")
	}
	if err := RolePermsCommand(client, []string{"--set", "message.send, file.send", "3"}); err != nil {
		t.Fatalf("RolePermsCommand failed: %v", err)
	}

	perms, err := client.RolePermissions(context.Background(), "3")
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 2 {
		t.Errorf("Expected the full set to be replaced, got %d permissions", len(perms))
	}
}

func TestApprovalCommands(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")
	ctx := context.Background()

	pending, err := client.ApprovalRequests(ctx, models.ApprovalPending)
	if err != nil || len(pending) != 2 {
		t.Fatalf("Expected 2 pending requests, got %d (%v)", len(pending), err)
	}

	if err := RejectCommand(client, []string{pending[0].ID}); err == nil {
		t.Error("Reject without a reason should fail")
	}
	if err := RejectCommand(client, []string{"--reason", "out of scope", pending[0].ID}); err != nil {
		t.Errorf("RejectCommand failed: %v", err)
	}
	if err := ApproveCommand(client, []string{pending[1].ID}); err != nil {
		t.Errorf("ApproveCommand failed: %v", err)
	}

	left, err := client.ApprovalRequests(ctx, models.ApprovalPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("Expected no pending requests, got %d", len(left))
	}
}

func TestExportLogsCommand(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	if err := ExportLogsCommand(client, nil); err == nil {
		t.Error("Export without --out should fail")
	}

	out := filepath.Join(t.TempDir(), "logs.csv")
	if err := ExportLogsCommand(client, []string{"--out", out, "--action", "login"}); err != nil {
		t.Fatalf("ExportLogsCommand failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,timestamp,user_id") {
		t.Errorf("Expected CSV header, got %q", string(data))
	}
}

func TestDeptGraphCommandWritesFile(t *testing.T) {
	client := setupTestCLI(t)
	loginAs(t, client, "zhangsan")

	out := filepath.Join(t.TempDir(), "org.dot")
	if err := DeptGraphCommand(client, []string{"--members", "--out", out}); err != nil {
		t.Fatalf("DeptGraphCommand failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Marketing") {
		t.Error("Graph should name the departments")
	}
}
