// ABOUTME: Tests for MCP tool, resource and prompt handlers
// ABOUTME: Runs every handler against the in-memory demo backend
package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/demoserver"
	"github.com/harperreed/telemsg/store"
)

// signedInClient logs in as the given demo user.
func signedInClient(t *testing.T, username string) *api.Client {
	t.Helper()
	srv, err := demoserver.New(demoserver.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	local, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	client := api.New(api.Options{BaseURL: ts.URL + "/api/", Timeout: 5 * time.Second}, local)
	_, err = client.Login(context.Background(), username, demoserver.DemoPassword)
	require.NoError(t, err)
	return client
}

func TestListContacts(t *testing.T) {
	h := NewChatHandlers(signedInClient(t, "zhangsan"))

	_, out, err := h.ListContacts(context.Background(), nil, ListContactsInput{})
	require.NoError(t, err)
	assert.Len(t, out.Contacts, 2)

	_, out, err = h.ListContacts(context.Background(), nil, ListContactsInput{Query: "wang"})
	require.NoError(t, err)
	require.Len(t, out.Contacts, 1)
	assert.Equal(t, "Wang Wu", out.Contacts[0].Name)
}

func TestGetHistoryAndSend(t *testing.T) {
	h := NewChatHandlers(signedInClient(t, "zhangsan"))
	ctx := context.Background()

	_, _, err := h.GetHistory(ctx, nil, GetHistoryInput{})
	assert.Error(t, err, "contact_id is required")

	_, hist, err := h.GetHistory(ctx, nil, GetHistoryInput{ContactID: "2", Limit: 2})
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "Great, I'll let the marketing team know.", hist.Messages[1].Content)

	_, sent, err := h.SendMessage(ctx, nil, SendMessageInput{ContactID: "2", Text: "  ship it  "})
	require.NoError(t, err)
	assert.Equal(t, "ship it", sent.Content)
	assert.NotEmpty(t, sent.ID)

	_, _, err = h.SendMessage(ctx, nil, SendMessageInput{ContactID: "2", Text: "   "})
	assert.Error(t, err)
}

func TestNotificationsTools(t *testing.T) {
	h := NewChatHandlers(signedInClient(t, "zhangsan"))
	ctx := context.Background()

	_, out, err := h.ListNotifications(ctx, nil, ListNotificationsInput{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Unread)
	assert.Len(t, out.Notifications, 2)

	_, _, err = h.MarkNotificationsRead(ctx, nil, MarkNotificationsReadInput{})
	assert.Error(t, err)

	_, marked, err := h.MarkNotificationsRead(ctx, nil, MarkNotificationsReadInput{All: true})
	require.NoError(t, err)
	assert.Equal(t, "all", marked.Marked)

	_, out, err = h.ListNotifications(ctx, nil, ListNotificationsInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Unread)
	assert.Len(t, out.Notifications, 3)
}

func TestAdminTools(t *testing.T) {
	h := NewAdminHandlers(signedInClient(t, "zhangsan"))
	ctx := context.Background()

	_, stats, err := h.GetStats(ctx, nil, GetStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalUsers)

	_, users, err := h.FindUsers(ctx, nil, FindUsersInput{Status: "suspended"})
	require.NoError(t, err)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "zhaoliu", users.Users[0].Username)

	_, depts, err := h.ListDepartments(ctx, nil, ListDepartmentsInput{Query: "market"})
	require.NoError(t, err)
	require.Len(t, depts.Departments, 1)
	assert.Equal(t, "1", depts.Departments[0].Parent)

	_, approvals, err := h.ListApprovals(ctx, nil, ListApprovalsInput{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, approvals.Approvals, 2)

	_, logs, err := h.QueryLogs(ctx, nil, QueryLogsInput{Action: "login"})
	require.NoError(t, err)
	require.NotEmpty(t, logs.Logs)
	for _, l := range logs.Logs {
		assert.Equal(t, "login", l.Action)
	}

	_, perms, err := h.RolePermissions(ctx, nil, RolePermissionsInput{RoleID: "3"})
	require.NoError(t, err)
	assert.Len(t, perms.Permissions, 5)

	_, _, err = h.RolePermissions(ctx, nil, RolePermissionsInput{})
	assert.Error(t, err)
}

func TestDepartmentGraphTool(t *testing.T) {
	h := NewVizHandlers(signedInClient(t, "zhangsan"))

	_, out, err := h.DepartmentGraph(context.Background(), nil, DepartmentGraphInput{WithMembers: true})
	require.NoError(t, err)
	assert.Equal(t, 4, out.DepartmentCount)
	assert.Equal(t, 4, out.MemberCount)
	assert.Contains(t, out.DOTSource, "Marketing")
	assert.Contains(t, out.DOTSource, "->")
}

func TestReadResource(t *testing.T) {
	h := NewResourceHandlers(signedInClient(t, "zhangsan"))
	ctx := context.Background()

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("telemsg://contacts")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "Li Si")
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	res, err = read("telemsg://contacts/3/messages")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "access request")

	res, err = read("telemsg://permissions")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "message.send")

	_, err = read("crm://contacts")
	assert.Error(t, err)
	_, err = read("telemsg://unknown")
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	h := NewPromptHandlers(signedInClient(t, "zhangsan"))
	ctx := context.Background()

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	res, err := get("conversation-summary", map[string]string{"contact_id": "2"})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "conversation with Li Si")
	assert.Contains(t, text, "Me: Yes, rolled out at 9.")

	_, err = get("conversation-summary", nil)
	assert.Error(t, err)

	res, err = get("approval-review", nil)
	require.NoError(t, err)
	text = res.Messages[0].Content.(*mcp.TextContent).Text
	assert.True(t, strings.HasPrefix(text, "Review 2 pending approval requests."))

	_, err = get("nope", nil)
	assert.Error(t, err)
}
