// ABOUTME: Tests for the realtime link against the demo backend socket
// ABOUTME: Covers push delivery, reconnect after a drop and disconnect without redial
package realtime

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/demoserver"
	"github.com/harperreed/telemsg/models"
)

type fixture struct {
	srv   *demoserver.Server
	ts    *httptest.Server
	dials atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv, err := demoserver.New(demoserver.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, ts: ts}
}

func (f *fixture) link(t *testing.T, userID string) *Link {
	t.Helper()
	token, err := f.srv.IssueToken(userID)
	require.NoError(t, err)

	q := url.Values{}
	q.Set("token", token)
	q.Set("userId", userID)
	target := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/ws?" + q.Encode()

	l := New(Options{
		URL: func() string {
			f.dials.Add(1)
			return target
		},
		ReconnectDelay: 50 * time.Millisecond,
	})
	t.Cleanup(l.Disconnect)
	return l
}

func collect(ch chan Event) Handler {
	return func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

func waitFor(t *testing.T, ch chan Event, kind string) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event received", kind)
			return Event{}
		}
	}
}

func TestLinkDeliversPushEvents(t *testing.T) {
	f := newFixture(t)
	l := f.link(t, "1")
	events := make(chan Event, 16)

	require.NoError(t, l.Connect(context.Background(), collect(events)))
	require.Eventually(t, func() bool { return f.srv.Online("1") }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, Connected, l.State())

	f.srv.Push("1", map[string]any{"type": "notification", "notification": map[string]any{"id": "n1", "type": "system", "title": "hi"}})
	ev := waitFor(t, events, EventNotification)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "hi", ev.Notification.Title)
}

func TestLinkReconnectsAfterDrop(t *testing.T) {
	f := newFixture(t)
	l := f.link(t, "1")
	events := make(chan Event, 16)

	require.NoError(t, l.Connect(context.Background(), collect(events)))
	require.Eventually(t, func() bool { return f.srv.Online("1") }, 2*time.Second, 10*time.Millisecond)

	f.srv.DropConnections("1")
	require.Eventually(t, func() bool { return f.dials.Load() >= 2 && l.State() == Connected }, 3*time.Second, 10*time.Millisecond)

	// Push until the redialed socket is registered on the server.
	var got Event
	require.Eventually(t, func() bool {
		f.srv.Push("1", map[string]any{"type": "contact_status", "contactId": "2", "status": "busy"})
		select {
		case got = <-events:
			return got.Type == EventContactStatus
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 30*time.Millisecond)
	assert.Equal(t, "2", got.ContactID)
	assert.Equal(t, models.ContactBusy, got.Status)
}

func TestDisconnectStopsRedial(t *testing.T) {
	f := newFixture(t)
	var states []State
	stateCh := make(chan State, 16)
	l := f.link(t, "1")
	l.onState = func(s State) { stateCh <- s }

	require.NoError(t, l.Connect(context.Background(), func(Event) {}))
	require.Eventually(t, func() bool { return f.srv.Online("1") }, 2*time.Second, 10*time.Millisecond)

	l.Disconnect()
	assert.Equal(t, Disconnected, l.State())
	dials := f.dials.Load()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, dials, f.dials.Load())
	assert.False(t, f.srv.Online("1"))

	for len(stateCh) > 0 {
		states = append(states, <-stateCh)
	}
	require.NotEmpty(t, states)
	assert.Equal(t, Disconnected, states[len(states)-1])
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	l := New(Options{URL: func() string { return "ws://127.0.0.1:1/ws" }})

	err := l.Send(map[string]string{"type": "ping"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendChatMessageReachesRecipient(t *testing.T) {
	f := newFixture(t)
	inbox := make(chan Event, 16)

	receiver := f.link(t, "2")
	require.NoError(t, receiver.Connect(context.Background(), collect(inbox)))
	require.Eventually(t, func() bool { return f.srv.Online("2") }, 2*time.Second, 10*time.Millisecond)

	sender := f.link(t, "3")
	require.NoError(t, sender.Connect(context.Background(), func(Event) {}))
	require.Eventually(t, func() bool { return sender.State() == Connected }, 2*time.Second, 10*time.Millisecond)

	msg := models.Message{ID: "m1", SenderID: "3", Content: "over the link", Type: models.MessageText, Status: models.StatusSent}
	require.NoError(t, sender.SendChatMessage(msg, "2"))

	ev := waitFor(t, inbox, EventMessage)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "over the link", ev.Message.Content)
}

func TestConnectRequiresHandler(t *testing.T) {
	l := New(Options{URL: func() string { return "" }})
	assert.Error(t, l.Connect(context.Background(), nil))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"message","message":{"id":"1","senderId":"2","content":"x","type":"text","status":"sent"}}`))
	require.NoError(t, err)
	assert.True(t, ev.Known())
	assert.Equal(t, "x", ev.Message.Content)
	assert.NotEmpty(t, ev.Raw)

	ev, err = DecodeEvent([]byte(`{"type":"typing","contactId":"4"}`))
	require.NoError(t, err)
	assert.False(t, ev.Known())

	_, err = DecodeEvent([]byte(`{"type":"message"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`garbage`))
	assert.Error(t, err)
}
