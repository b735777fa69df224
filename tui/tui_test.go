// ABOUTME: Tests for the root model, login, messaging and overlays
// ABOUTME: Drives the model with key presses and result messages without a backend
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/realtime"
	"github.com/harperreed/telemsg/store"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) Model {
	t.Helper()
	client := api.New(api.Options{BaseURL: "http://127.0.0.1:1/api", Timeout: 100 * time.Millisecond}, nil)
	return NewModel(Deps{API: client, Now: func() time.Time { return testNow }})
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func signedIn(t *testing.T, admin bool) Model {
	t.Helper()
	m := newTestModel(t)
	updated, _ := m.enterMain(models.User{ID: "u1", Name: "Zhang San", Username: "zhangsan", IsAdmin: admin})
	m = updated.(Model)
	updated, _ = m.Update(contactsLoadedMsg{contacts: []models.Contact{
		{ID: "c1", Name: "Li Si", Status: models.ContactOnline},
		{ID: "c2", Name: "Wang Wu", Status: models.ContactOffline},
	}})
	return updated.(Model)
}

type memoryPrefs struct {
	saved *models.Preferences
}

func (p *memoryPrefs) LoadPreferences() (models.Preferences, error) {
	if p.saved == nil {
		return models.DefaultPreferences(), nil
	}
	return *p.saved, nil
}

func (p *memoryPrefs) SavePreferences(prefs models.Preferences) error {
	p.saved = &prefs
	return nil
}

func TestNewModelStartsAtLogin(t *testing.T) {
	m := newTestModel(t)
	if m.Screen() != ScreenLogin {
		t.Errorf("Expected login screen, got %v", m.Screen())
	}
	if cmd := m.Init(); cmd != nil {
		t.Error("Init should not restore a session without a token")
	}
	if !strings.Contains(m.View(), "TELEMSG") {
		t.Error("Login view should contain the title")
	}
}

func TestLoginValidationBlocksSubmit(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.handleLoginKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.login.focus != 1 {
		t.Fatalf("Enter should move to the password field, focus is %d", m.login.focus)
	}

	updated, cmd := m.handleLoginKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd != nil {
		t.Error("Empty form should not be submitted")
	}
	if m.login.err == "" {
		t.Error("Expected a validation message")
	}
}

func TestToggleRegisterForm(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.handleLoginKeys(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(Model)
	if !m.login.register {
		t.Error("Ctrl+R should switch to registration")
	}
	if len(m.login.inputs) != 4 {
		t.Errorf("Registration should have 4 fields, got %d", len(m.login.inputs))
	}
}

func TestAuthFailureShowsMappedMessage(t *testing.T) {
	m := newTestModel(t)
	m.login.busy = true
	err := &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "Invalid password"}

	updated, _ := m.Update(authResultMsg{err: err})
	m = updated.(Model)
	if m.Screen() != ScreenLogin {
		t.Error("Failed login should stay on the login screen")
	}
	if m.login.busy {
		t.Error("Form should no longer be busy")
	}
	if m.login.err != api.DescribeLoginError(err) {
		t.Errorf("Expected %q, got %q", api.DescribeLoginError(err), m.login.err)
	}
}

func TestAuthSuccessEntersMain(t *testing.T) {
	m := newTestModel(t)
	res := &api.AuthResult{Token: "tok", User: models.User{ID: "u1", Username: "zhangsan"}}

	updated, cmd := m.Update(authResultMsg{result: res})
	m = updated.(Model)
	if m.Screen() != ScreenMain {
		t.Errorf("Expected main screen, got %v", m.Screen())
	}
	if cmd == nil {
		t.Error("Entering main should load contacts")
	}
	u, ok := m.deps.Session.CurrentUser()
	if !ok || u.Name != "zhangsan" {
		t.Errorf("Session user should fall back to the username, got %+v", u)
	}
}

func TestStartupUnauthorizedClearsToken(t *testing.T) {
	local, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = local.Close() }()
	_ = local.SetToken("stale")

	client := api.New(api.Options{BaseURL: "http://127.0.0.1:1/api"}, local)
	m := NewModel(Deps{API: client})

	updated, _ := m.Update(startupMsg{err: &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "expired"}})
	m = updated.(Model)
	if local.Token() != "" {
		t.Error("Token should be cleared after a 401 on startup")
	}
	if m.Screen() != ScreenLogin {
		t.Error("Should stay on the login screen")
	}
}

func TestContactNavigationAndSearch(t *testing.T) {
	m := signedIn(t, false)

	updated, _ := m.handleMainKeys(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if c, _ := m.selectedContact(); c.ID != "c2" {
		t.Errorf("Expected c2 selected, got %q", c.ID)
	}

	updated, _ = m.handleMainKeys(keyRune('/'))
	m = updated.(Model)
	if !m.chat.searching {
		t.Fatal("Slash should start searching")
	}
	m.chat.search.SetValue("li")
	m.chat.cursor = 0
	if got := m.visibleContacts(); len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("Search should narrow to Li Si, got %+v", got)
	}

	updated, _ = m.handleMainKeys(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.chat.searching || len(m.visibleContacts()) != 2 {
		t.Error("Esc should clear the search")
	}
}

func TestPushMessageBumpsUnread(t *testing.T) {
	m := signedIn(t, false)

	ev := realtime.Event{Type: realtime.EventMessage, Message: &models.Message{ID: "m1", SenderID: "c2", Content: "hi", Type: models.MessageText}}
	updated, cmd := m.Update(pushMsg{event: ev})
	m = updated.(Model)
	if cmd == nil {
		t.Error("Push handling should keep listening")
	}
	c, _ := m.deps.Session.Contact("c2")
	if c.UnreadCount != 1 || c.LastMessage != "hi" {
		t.Errorf("Expected unread 1 with preview, got %+v", c)
	}

	updated, _ = m.Update(pushMsg{event: realtime.Event{Type: realtime.EventContactStatus, ContactID: "c2", Status: models.ContactOnline}})
	m = updated.(Model)
	if c, _ := m.deps.Session.Contact("c2"); c.Status != models.ContactOnline {
		t.Errorf("Expected c2 online, got %s", c.Status)
	}
}

func openConversation(t *testing.T, m Model) Model {
	t.Helper()
	updated, cmd := m.handleMainKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("Opening a conversation should load history")
	}
	updated, _ = m.Update(historyLoadedMsg{contactID: "c1", messages: []models.Message{
		{ID: "h1", SenderID: "c1", Content: "hello", Type: models.MessageText, Status: models.StatusRead, Timestamp: testNow},
	}})
	return updated.(Model)
}

func TestOptimisticSendConfirmed(t *testing.T) {
	m := openConversation(t, signedIn(t, false))
	if m.chat.pane != paneComposer {
		t.Fatal("Composer should be focused after opening a conversation")
	}

	m.chat.composer.SetValue("how are you")
	updated, cmd := m.handleComposerKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("Sending should issue a request")
	}
	msgs := m.deps.Session.Messages()
	if len(msgs) != 2 || msgs[1].Status != models.StatusSending {
		t.Fatalf("Expected a sending message, got %+v", msgs)
	}
	tempID := msgs[1].ID
	if !strings.HasPrefix(tempID, "local-") {
		t.Errorf("Optimistic id should be local, got %q", tempID)
	}

	sent := &models.Message{ID: "srv-1", SenderID: "u1", Content: "how are you", Type: models.MessageText, Status: models.StatusSent}
	updated, _ = m.Update(messageSentMsg{tempID: tempID, contactID: "c1", msg: sent})
	m = updated.(Model)
	msgs = m.deps.Session.Messages()
	if len(msgs) != 2 || msgs[1].ID != "srv-1" || msgs[1].Status != models.StatusSent {
		t.Errorf("Expected the confirmed message, got %+v", msgs)
	}
}

func TestOptimisticSendFailureRemovesMessage(t *testing.T) {
	m := openConversation(t, signedIn(t, false))
	m.chat.composer.SetValue("lost")
	updated, _ := m.handleComposerKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	tempID := m.deps.Session.Messages()[1].ID

	updated, _ = m.Update(messageSentMsg{tempID: tempID, contactID: "c1", err: errors.New("boom")})
	m = updated.(Model)
	if len(m.deps.Session.Messages()) != 1 {
		t.Error("Failed message should be removed")
	}
	if !m.statusErr || !strings.Contains(m.status, "boom") {
		t.Errorf("Expected an error toast, got %q", m.status)
	}
}

func TestSendConfirmedAfterSwitchingContacts(t *testing.T) {
	m := openConversation(t, signedIn(t, false))
	m.chat.composer.SetValue("hello li si")
	updated, _ := m.handleComposerKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	tempID := m.deps.Session.Messages()[1].ID

	m.deps.Session.SelectConversation("c2", nil)
	sent := &models.Message{ID: "srv-2", SenderID: "u1", Content: "hello li si", Type: models.MessageText, Status: models.StatusSent}
	updated, _ = m.Update(messageSentMsg{tempID: tempID, contactID: "c1", msg: sent})
	m = updated.(Model)

	if msgs := m.deps.Session.Messages(); len(msgs) != 0 {
		t.Errorf("Wang Wu's thread should stay empty, got %+v", msgs)
	}
	if c, _ := m.deps.Session.Contact("c1"); c.LastMessage != "hello li si" {
		t.Errorf("Expected Li Si's preview to update, got %q", c.LastMessage)
	}
}

func TestUploadDoneAfterSwitchingContacts(t *testing.T) {
	m := openConversation(t, signedIn(t, false))
	m.deps.Session.SelectConversation("c2", nil)

	info := &models.FileInfo{ID: "f1", FileURL: "/files/f1", FileName: "report.pdf", FileSize: "2 KB"}
	updated, _ := m.Update(uploadDoneMsg{contactID: "c1", fileName: "report.pdf", info: info})
	m = updated.(Model)

	if msgs := m.deps.Session.Messages(); len(msgs) != 0 {
		t.Errorf("File sent to Li Si should not show in Wang Wu's thread, got %+v", msgs)
	}
	if c, _ := m.deps.Session.Contact("c1"); c.LastMessage == "" {
		t.Error("Expected Li Si's preview to mention the file")
	}

	m.deps.Session.SelectConversation("c1", nil)
	updated, _ = m.Update(uploadDoneMsg{contactID: "c1", fileName: "photo.png", info: &models.FileInfo{ID: "f2", FileName: "photo.png"}})
	m = updated.(Model)
	msgs := m.deps.Session.Messages()
	if len(msgs) != 1 || msgs[0].Type != models.MessageImage {
		t.Errorf("Expected the image in the open thread, got %+v", msgs)
	}
}

func TestAdminRequiresAdmin(t *testing.T) {
	m := signedIn(t, false)
	updated, cmd := m.handleMainKeys(keyRune('a'))
	m = updated.(Model)
	if m.Screen() != ScreenMain || cmd != nil {
		t.Error("Non-admin should not enter the admin center")
	}
	if !m.statusErr {
		t.Error("Expected an access error")
	}

	m = signedIn(t, true)
	updated, cmd = m.handleMainKeys(keyRune('a'))
	m = updated.(Model)
	if m.Screen() != ScreenAdmin {
		t.Errorf("Admin should enter the admin center, got %v", m.Screen())
	}
	if cmd == nil {
		t.Error("Admin center should load stats")
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	m := signedIn(t, false)
	updated, cmd := m.handleMainKeys(keyRune('L'))
	m = updated.(Model)
	if m.Screen() != ScreenLogin {
		t.Errorf("Expected login screen, got %v", m.Screen())
	}
	if m.deps.Session.LoggedIn() {
		t.Error("Session should be cleared")
	}
	if cmd == nil {
		t.Error("Logout should notify the backend")
	}
}

func TestLogoutClearsTokenBeforeBackendAnswers(t *testing.T) {
	local, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = local.Close() }()
	_ = local.SetToken("live-token")

	client := api.New(api.Options{BaseURL: "http://127.0.0.1:1/api", Timeout: 100 * time.Millisecond}, local)
	m := NewModel(Deps{API: client, Now: func() time.Time { return testNow }})
	updated, _ := m.enterMain(models.User{ID: "u1", Name: "Zhang San", Username: "zhangsan"})
	m = updated.(Model)

	updated, cmd := m.handleMainKeys(keyRune('L'))
	m = updated.(Model)
	if local.Token() != "" {
		t.Errorf("Token should be gone as soon as the user signs out, got %q", local.Token())
	}
	if m.Screen() != ScreenLogin {
		t.Errorf("Expected login screen, got %v", m.Screen())
	}
	if cmd == nil {
		t.Fatal("Logout should still notify the backend")
	}
	if _, ok := cmd().(logoutDoneMsg); !ok {
		t.Error("Expected the backend call to finish with logoutDoneMsg")
	}
	if local.Token() != "" {
		t.Error("Token should stay cleared after the backend call")
	}
}

func TestNotificationCenter(t *testing.T) {
	m := signedIn(t, false)
	updated, cmd := m.handleMainKeys(keyRune('n'))
	m = updated.(Model)
	if m.overlay != OverlayNotifications || cmd == nil {
		t.Fatal("n should open the notification center and load it")
	}

	updated, _ = m.Update(notificationsLoadedMsg{list: []models.Notification{
		{ID: "n1", Type: models.NotifyMessage, Title: "New message", Timestamp: testNow.Add(-5 * time.Minute)},
		{ID: "n2", Type: models.NotifySystem, Title: "Maintenance", Read: true, Timestamp: testNow.Add(-48 * time.Hour)},
	}})
	m = updated.(Model)
	if m.deps.Session.NotificationCount() != 1 {
		t.Errorf("Expected 1 unread, got %d", m.deps.Session.NotificationCount())
	}
	if !strings.Contains(m.View(), "5 minutes ago") {
		t.Error("Notifications should show relative times")
	}

	updated, _ = m.handleNotificationKeys(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if got := m.visibleNotifications(); len(got) != 1 || got[0].ID != "n1" {
		t.Errorf("Unread tab should only show n1, got %+v", got)
	}

	updated, cmd = m.handleNotificationKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil {
		t.Error("Enter should mark the notification read")
	}

	updated, _ = m.handleNotificationKeys(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.overlay != OverlayNone {
		t.Error("Esc should close the notification center")
	}
}

func TestSettingsSavePreferences(t *testing.T) {
	m := signedIn(t, false)
	prefs := &memoryPrefs{}
	m.deps.Prefs = prefs

	updated, _ := m.handleMainKeys(keyRune('s'))
	m = updated.(Model)
	if m.overlay != OverlaySettings {
		t.Fatal("s should open settings")
	}
	if m.settings.inputs[settingName].Value() != "Zhang San" {
		t.Errorf("Name should be prefilled, got %q", m.settings.inputs[settingName].Value())
	}

	for i := 0; i < settingNotifications; i++ {
		updated, _ = m.handleSettingsKeys(tea.KeyMsg{Type: tea.KeyDown})
		m = updated.(Model)
	}
	updated, _ = m.handleSettingsKeys(tea.KeyMsg{Type: tea.KeySpace})
	m = updated.(Model)
	if m.settings.prefs.Notifications {
		t.Error("Space should turn notifications off")
	}

	updated, cmd := m.handleSettingsKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil || !m.settings.saving {
		t.Fatal("Enter should save")
	}

	// Profile is unchanged so the command only touches the preference store.
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if prefs.saved == nil || prefs.saved.Notifications {
		t.Errorf("Preferences were not saved: %+v", prefs.saved)
	}
	if m.statusErr || m.status != "Settings saved" {
		t.Errorf("Expected confirmation, got %q", m.status)
	}
}

func TestCallDialogLifecycle(t *testing.T) {
	m := signedIn(t, false)
	updated, cmd := m.handleMainKeys(keyRune('v'))
	m = updated.(Model)
	if m.overlay != OverlayCall || cmd == nil {
		t.Fatal("v should start a video call")
	}
	if m.call.voiceOnly || m.call.phase != callConnecting {
		t.Errorf("Expected a connecting video call, got %+v", m.call)
	}
	gen := m.call.gen

	updated, _ = m.Update(callConnectedMsg{gen: gen})
	m = updated.(Model)
	if m.call.phase != callConnected {
		t.Fatal("Call should be connected")
	}
	for i := 0; i < 2; i++ {
		updated, _ = m.Update(callTickMsg{gen: gen})
		m = updated.(Model)
	}
	updated, _ = m.Update(callTickMsg{gen: gen - 1})
	m = updated.(Model)
	if m.call.seconds != 2 {
		t.Errorf("Expected 2 seconds, got %d", m.call.seconds)
	}
	if !strings.Contains(m.View(), "00:02") {
		t.Error("Call view should show the duration")
	}

	updated, _ = m.handleCallKeys(keyRune('m'))
	m = updated.(Model)
	updated, _ = m.handleCallKeys(keyRune('v'))
	m = updated.(Model)
	if !m.call.muted || !m.call.videoOff {
		t.Error("m and v should toggle mute and camera")
	}

	updated, _ = m.handleCallKeys(keyRune('e'))
	m = updated.(Model)
	if m.overlay != OverlayNone {
		t.Error("e should end the call")
	}
}

func TestVoiceCallIgnoresCameraToggle(t *testing.T) {
	m := signedIn(t, false)
	updated, _ := m.handleMainKeys(keyRune('c'))
	m = updated.(Model)
	if !m.call.voiceOnly {
		t.Fatal("c should start a voice call")
	}
	updated, _ = m.handleCallKeys(keyRune('v'))
	m = updated.(Model)
	if m.call.videoOff {
		t.Error("Voice calls have no camera")
	}
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m = updated.(Model)
	if m.width != 160 || m.height != 50 {
		t.Errorf("Expected 160x50, got %dx%d", m.width, m.height)
	}
	if m.chat.thread.Width != 160-contactsPaneWidth-6 {
		t.Errorf("Thread width not updated: %d", m.chat.thread.Width)
	}
}
