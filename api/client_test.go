// ABOUTME: Tests for the REST client against the in-memory demo backend
// ABOUTME: Covers auth, typed failures, fixture fallback and local permission fallback
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/demoserver"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/store"
)

func newLocal(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newDemoClient(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	srv, err := demoserver.New(demoserver.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	local := newLocal(t)
	return New(Options{BaseURL: ts.URL + "/api/", Timeout: 5 * time.Second}, local), local
}

// deadURL returns the address of a server that is no longer listening.
func deadURL() string {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	return url + "/api"
}

func TestLoginStoresToken(t *testing.T) {
	c, local := newDemoClient(t)
	ctx := context.Background()

	res, err := c.Login(ctx, "lisi", demoserver.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "Li Si", res.User.Name)
	assert.NotEmpty(t, res.User.Avatar)
	assert.Equal(t, res.Token, local.Token())

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", me.ID)

	claims, err := ParseTokenClaims(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "2", claims.UserID)
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(time.Now().Add(48*time.Hour)))
}

func TestLoginFailuresAreDescribed(t *testing.T) {
	c, local := newDemoClient(t)
	ctx := context.Background()

	_, err := c.Login(ctx, "lisi", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, MsgWrongCredentials, DescribeLoginError(err))
	assert.Empty(t, local.Token())

	_, err = c.Login(ctx, "zhaoliu", demoserver.DemoPassword)
	assert.Equal(t, MsgAccountDisabled, DescribeLoginError(err))
	assert.Equal(t, 403, StatusOf(err))

	_, err = c.Login(ctx, "nobody", demoserver.DemoPassword)
	assert.Equal(t, MsgUserNotFound, DescribeLoginError(err))
}

func TestRegisterDuplicateIsDescribed(t *testing.T) {
	c, _ := newDemoClient(t)

	_, err := c.Register(context.Background(), "Someone", "lisi", "secret1")
	require.Error(t, err)
	assert.Equal(t, MsgUsernameTaken, DescribeRegisterError(err))
}

func TestLogoutAlwaysClearsToken(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SetToken("stale"))
	c := New(Options{BaseURL: deadURL(), Timeout: time.Second}, local)

	err := c.Logout(context.Background())
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Empty(t, local.Token())
}

func TestLogoutWithTokenUsesCapturedBearer(t *testing.T) {
	var gotAuth, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	local := newLocal(t)
	require.NoError(t, local.SetToken("live-token"))
	c := New(Options{BaseURL: ts.URL + "/api", Timeout: time.Second}, local)

	tok := c.Token()
	require.NoError(t, c.ClearToken())
	require.NoError(t, c.LogoutWithToken(context.Background(), tok))
	assert.Equal(t, "Bearer live-token", gotAuth)
	assert.Equal(t, "/api/auth/logout", gotPath)
	assert.Empty(t, local.Token())

	gotPath = ""
	require.NoError(t, c.LogoutWithToken(context.Background(), ""))
	assert.Empty(t, gotPath, "no request without a token")
}

func TestUnauthorizedAndMissingEndpoint(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()

	_, err := c.CurrentUser(ctx)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = c.Login(ctx, "zhangsan", demoserver.DemoPassword)
	require.NoError(t, err)
	err = c.get(ctx, "/no/such/endpoint", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 404, StatusOf(err))
}

func TestServerErrorMessageSurfaces(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "lisi", demoserver.DemoPassword)
	require.NoError(t, err)

	_, err = c.SendMessage(ctx, "", "", models.MessageText)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTP))
	assert.Contains(t, err.Error(), "recipientId and content are required")
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestFixtureFallbackOnDeadBackend(t *testing.T) {
	c := New(Options{BaseURL: deadURL(), Timeout: time.Second, FixtureFallback: true}, newLocal(t))
	ctx := context.Background()

	users, err := c.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	stats, err := c.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 247, stats.TotalUsers)

	_, err = c.OperationLogs(ctx, models.LogFilter{})
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestFixtureFallbackOnMissingAdminEndpoints(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	c := New(Options{BaseURL: ts.URL + "/api", Timeout: time.Second, FixtureFallback: true}, newLocal(t))
	ctx := context.Background()

	stats, err := c.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStats{
		TotalUsers:       247,
		OnlineUsers:      189,
		TotalMessages:    15420,
		StorageUsed:      45.6,
		TotalDepartments: 12,
		TotalRoles:       5,
	}, stats)

	users, err := c.AllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixtureUsers(), users)

	roles, err := c.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixtureRoles(), roles)

	depts, err := c.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixtureDepartments(), depts)
}

func TestNoFixtureWhenDisabled(t *testing.T) {
	c := New(Options{BaseURL: deadURL(), Timeout: time.Second}, newLocal(t))

	_, err := c.Departments(context.Background())
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestRolePermissionsLocalFallback(t *testing.T) {
	local := newLocal(t)
	c := New(Options{BaseURL: deadURL(), Timeout: time.Second}, local)
	ctx := context.Background()

	perms, err := c.RolePermissions(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, perms)

	require.NoError(t, c.UpdateRolePermissions(ctx, "7", []string{"message.send", "custom.thing"}))

	perms, err = c.RolePermissions(ctx, "7")
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "Send messages", perms[0].Name)
	assert.Equal(t, "custom.thing", perms[1].Name)
	assert.Equal(t, "custom", perms[1].Category)
}

func TestRolePermissionsRoundTripLive(t *testing.T) {
	c, local := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "zhangsan", demoserver.DemoPassword)
	require.NoError(t, err)

	require.NoError(t, c.UpdateRolePermissions(ctx, "3", []string{"message.send"}))
	perms, err := c.RolePermissions(ctx, "3")
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "message.send", perms[0].ID)

	ids, err := local.MockRolePermissions("3")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUploadCreatesFileMessage(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "lisi", demoserver.DemoPassword)
	require.NoError(t, err)

	info, err := c.Upload(ctx, "1", "notes.txt", strings.NewReader("meeting at 3"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", info.FileName)
	assert.True(t, strings.HasPrefix(info.FileURL, "/api/files/"))

	history, err := c.Messages(ctx, "1")
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, models.MessageFile, last.Type)
	assert.Equal(t, "notes.txt", last.FileName)
}

func TestUploadRejectedIsUploadError(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "lisi", demoserver.DemoPassword)
	require.NoError(t, err)

	_, err = c.Upload(ctx, "", "notes.txt", strings.NewReader("x"))
	assert.True(t, errors.Is(err, ErrUpload))
	assert.Equal(t, 400, StatusOf(err))
}

func TestNotificationsAreNormalized(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "zhangsan", demoserver.DemoPassword)
	require.NoError(t, err)

	list, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		assert.NotEqual(t, models.NotificationType("approval"), n.Type)
	}

	require.NoError(t, c.MarkAllNotificationsRead(ctx))
	list, err = c.Notifications(ctx)
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.Read)
	}
}

func TestExportLogsStreamsCSV(t *testing.T) {
	c, _ := newDemoClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "zhangsan", demoserver.DemoPassword)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := c.ExportLogs(ctx, models.LogFilter{UserID: "1"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, strings.HasPrefix(buf.String(), "id,timestamp"))
}

func TestWebSocketURL(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SetToken("abc"))

	c := New(Options{BaseURL: "http://localhost:8080/api"}, local)
	assert.Equal(t, "ws://localhost:8080/api/ws?token=abc&userId=42", c.WebSocketURL("42"))

	c = New(Options{BaseURL: "https://chat.example.com/api/"}, local)
	assert.Equal(t, "wss://chat.example.com/api/ws?token=abc&userId=42", c.WebSocketURL("42"))
}

func TestDecodeBodyUnwrapsEnvelope(t *testing.T) {
	var u models.User
	require.NoError(t, decodeBody(strings.NewReader(`{"code":0,"data":{"id":"9","name":"Nine"}}`), &u))
	assert.Equal(t, "Nine", u.Name)

	var plain models.User
	require.NoError(t, decodeBody(strings.NewReader(`{"id":"8","name":"Eight"}`), &plain))
	assert.Equal(t, "8", plain.ID)

	err := decodeBody(strings.NewReader(`not json`), &plain)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDescribeUntypedErrors(t *testing.T) {
	assert.Equal(t, MsgWrongCredentials, DescribeLoginError(errors.New("request failed with 401")))
	assert.Equal(t, MsgNetworkFailed, DescribeLoginError(errors.New("Network unreachable")))
	assert.Equal(t, MsgLoginFailed, DescribeLoginError(errors.New("boom")))
	assert.Equal(t, MsgRegisterIncomplete, DescribeRegisterError(errors.New("status 400")))
	assert.Equal(t, "", DescribeLoginError(nil))
}

func TestValidateForms(t *testing.T) {
	assert.Equal(t, "", ValidateLogin("lisi", "pw"))
	assert.NotEmpty(t, ValidateLogin("  ", "pw"))
	assert.NotEmpty(t, ValidateLogin("lisi", ""))

	assert.Equal(t, "", ValidateRegistration("Li", "lisi", "secret1", "secret1"))
	assert.Equal(t, "Username must be at least 3 characters", ValidateRegistration("Li", "li", "secret1", "secret1"))
	assert.Equal(t, "Password must be at least 6 characters", ValidateRegistration("Li", "lisi", "short", "short"))
	assert.Equal(t, "The two passwords do not match", ValidateRegistration("Li", "lisi", "secret1", "secret2"))
}
