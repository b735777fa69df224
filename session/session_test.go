// ABOUTME: Tests for the session store and push event folding
// ABOUTME: Conversation filtering, unread counters and status transitions
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/realtime"
)

func seeded() *Store {
	s := New(nil)
	s.SetCurrentUser(models.User{ID: "1", Name: "Zhang San"})
	s.ReplaceContacts([]models.Contact{
		{ID: "2", Name: "Li Si", Status: models.ContactOffline},
		{ID: "3", Name: "Wang Wu", Status: models.ContactOnline, UnreadCount: 2},
	})
	return s
}

func msg(id, sender, text string) models.Message {
	return models.Message{ID: id, SenderID: sender, Content: text, Type: models.MessageText, Status: models.StatusSent}
}

func TestSelectConversationResetsUnread(t *testing.T) {
	s := seeded()
	s.SelectConversation("3", []models.Message{msg("a", "3", "hi")})

	c, ok := s.Contact("3")
	require.True(t, ok)
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, "3", s.SelectedID())
	assert.Len(t, s.Messages(), 1)
}

func TestAppendMessageOnlyForOpenThread(t *testing.T) {
	s := seeded()
	assert.False(t, s.AppendMessage(msg("x", "2", "nothing selected")))

	s.SelectConversation("2", nil)
	assert.True(t, s.AppendMessage(msg("a", "2", "from the contact")))
	assert.True(t, s.AppendMessage(msg("b", "1", "from me")))
	assert.False(t, s.AppendMessage(msg("c", "3", "from someone else")))
	assert.False(t, s.AppendMessage(msg("a", "2", "duplicate")))

	assert.Len(t, s.Messages(), 2)
}

func TestApplyMessageEventOutsideThreadBumpsUnread(t *testing.T) {
	s := seeded()
	s.SelectConversation("2", nil)

	m := msg("m1", "3", "ping")
	changed := s.ApplyEvent(realtime.Event{Type: realtime.EventMessage, Message: &m})
	assert.True(t, changed)
	assert.Empty(t, s.Messages())

	c, _ := s.Contact("3")
	assert.Equal(t, 1, c.UnreadCount)
	assert.Equal(t, "ping", c.LastMessage)
}

func TestApplyMessageEventInThreadDoesNotBumpUnread(t *testing.T) {
	s := seeded()
	s.SelectConversation("2", nil)

	m := msg("m1", "2", "hello")
	s.ApplyEvent(realtime.Event{Type: realtime.EventMessage, Message: &m})

	c, _ := s.Contact("2")
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, "hello", c.LastMessage)
	assert.Len(t, s.Messages(), 1)
}

func TestApplyMessageEventFromUnknownSender(t *testing.T) {
	s := seeded()
	changed := s.ApplyEvent(realtime.Event{Type: realtime.EventMessage, Message: &models.Message{ID: "x", SenderID: "99", Content: "who?"}})
	assert.False(t, changed)
	for _, c := range s.Contacts() {
		assert.NotEqual(t, "who?", c.LastMessage)
	}
	c, _ := s.Contact("3")
	assert.Equal(t, 2, c.UnreadCount)
}

func TestAppendOwnMessageWithNoThreadOpen(t *testing.T) {
	s := seeded()
	assert.False(t, s.AppendMessage(msg("mine", "1", "hello")))
	assert.Empty(t, s.Messages())

	s.SelectConversation("2", nil)
	assert.True(t, s.AppendMessage(msg("mine", "1", "hello")))
	assert.Len(t, s.Messages(), 1)
}

func TestApplyNotificationAndPresence(t *testing.T) {
	s := seeded()

	s.ApplyEvent(realtime.Event{Type: realtime.EventNotification})
	s.ApplyEvent(realtime.Event{Type: realtime.EventNotification})
	assert.Equal(t, 2, s.NotificationCount())

	assert.True(t, s.ApplyEvent(realtime.Event{Type: realtime.EventContactStatus, ContactID: "2", Status: models.ContactOnline}))
	c, _ := s.Contact("2")
	assert.Equal(t, models.ContactOnline, c.Status)

	assert.False(t, s.ApplyEvent(realtime.Event{Type: realtime.EventContactStatus, ContactID: "99", Status: models.ContactOnline}))
	assert.False(t, s.ApplyEvent(realtime.Event{Type: "typing"}))
}

func TestPromoteMessageForwardOnly(t *testing.T) {
	s := seeded()
	s.SelectConversation("2", nil)
	local := msg("tmp", "1", "draft")
	local.Status = models.StatusSending
	s.AppendMessage(local)

	require.NoError(t, s.PromoteMessage("tmp", models.StatusSent))
	require.NoError(t, s.PromoteMessage("tmp", models.StatusRead))
	assert.ErrorIs(t, s.PromoteMessage("tmp", models.StatusSent), models.ErrStatusRegression)
	assert.Equal(t, models.StatusRead, s.Messages()[0].Status)
}

func TestReplaceAndRemoveMessage(t *testing.T) {
	s := seeded()
	s.SelectConversation("2", nil)
	s.AppendMessage(msg("tmp", "1", "draft"))

	assert.True(t, s.ReplaceMessage("tmp", msg("101", "1", "draft")))
	assert.Equal(t, "101", s.Messages()[0].ID)

	assert.True(t, s.RemoveMessage("101"))
	assert.Empty(t, s.Messages())
	assert.False(t, s.RemoveMessage("101"))
}

func TestClearDropsEverything(t *testing.T) {
	s := seeded()
	s.SelectConversation("2", []models.Message{msg("a", "2", "x")})
	s.IncrementNotifications()

	s.Clear()
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.Contacts())
	assert.Empty(t, s.Messages())
	assert.Equal(t, "", s.SelectedID())
	assert.Equal(t, 0, s.NotificationCount())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hi", Preview(msg("1", "2", "hi")))
	assert.Equal(t, "[file] a.pdf", Preview(models.Message{Type: models.MessageFile, FileName: "a.pdf"}))
	assert.Equal(t, "[image] b.png", Preview(models.Message{Type: models.MessageImage, FileName: "b.png"}))
}
