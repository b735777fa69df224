// ABOUTME: Client session state shared by the views
// ABOUTME: Current user, contacts, the open conversation and the notification counter
package session

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/realtime"
)

// Store holds everything the client knows about the signed-in user.
// Only the selected conversation's messages are kept.
type Store struct {
	mu     sync.Mutex
	logger *log.Logger

	user          *models.User
	contacts      []models.Contact
	selectedID    string
	messages      []models.Message
	notifications int
}

func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{logger: logger}
}

func (s *Store) SetCurrentUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// CurrentUser returns a copy of the signed-in user and whether there is one.
func (s *Store) CurrentUser() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Store) LoggedIn() bool {
	_, ok := s.CurrentUser()
	return ok
}

// Clear drops all session state on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.contacts = nil
	s.selectedID = ""
	s.messages = nil
	s.notifications = 0
}

func (s *Store) ReplaceContacts(contacts []models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append([]models.Contact(nil), contacts...)
	if s.selectedID != "" {
		if i := s.indexOf(s.selectedID); i >= 0 {
			s.contacts[i].ResetUnread()
		}
	}
}

func (s *Store) Contacts() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Contact(nil), s.contacts...)
}

func (s *Store) Contact(id string) (models.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.contacts[i], true
	}
	return models.Contact{}, false
}

// indexOf expects s.mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdateContactStatus reports whether the contact is known.
func (s *Store) UpdateContactStatus(id string, status models.ContactStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.contacts[i].Status = status
	return true
}

// SelectConversation opens a contact's thread with the loaded history and clears its unread count.
func (s *Store) SelectConversation(id string, history []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
	s.messages = append([]models.Message(nil), history...)
	if i := s.indexOf(id); i >= 0 {
		s.contacts[i].ResetUnread()
	}
}

func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// AppendMessage adds m to the open thread when it belongs there: sent by the
// selected contact or by the current user. Duplicate ids are ignored.
// With no thread open nothing is kept, not even the user's own messages;
// the next SelectConversation loads them from history.
func (s *Store) AppendMessage(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return false
	}
	mine := s.user != nil && m.SenderID == s.user.ID
	if m.SenderID != s.selectedID && !mine {
		return false
	}
	for _, existing := range s.messages {
		if m.ID != "" && existing.ID == m.ID {
			return false
		}
	}
	s.messages = append(s.messages, m)
	return true
}

// ReplaceMessage swaps the message with id for m, keeping its position.
// Used when an optimistic local message is confirmed by the backend.
func (s *Store) ReplaceMessage(id string, m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i] = m
			return true
		}
	}
	return false
}

// RemoveMessage drops a message from the open thread, e.g. a failed optimistic send.
func (s *Store) RemoveMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// PromoteMessage moves a message's status forward. Backward moves are rejected.
func (s *Store) PromoteMessage(id string, status models.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			return s.messages[i].Promote(status)
		}
	}
	return nil
}

// BumpUnread records a message from contactID that arrived outside the open thread.
func (s *Store) BumpUnread(contactID, preview string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(contactID)
	if i < 0 {
		return
	}
	if preview != "" {
		s.contacts[i].LastMessage = preview
	}
	if contactID != s.selectedID {
		s.contacts[i].BumpUnread()
	}
}

// SetLastMessage refreshes a contact's preview without touching unread.
func (s *Store) SetLastMessage(contactID, preview string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(contactID); i >= 0 {
		s.contacts[i].LastMessage = preview
	}
}

func (s *Store) IncrementNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications++
}

func (s *Store) SetNotificationCount(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = n
}

func (s *Store) NotificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications
}

// ApplyEvent folds one push event into the session. It reports whether
// anything visible changed.
func (s *Store) ApplyEvent(ev realtime.Event) bool {
	switch ev.Type {
	case realtime.EventMessage:
		if ev.Message == nil {
			return false
		}
		m := *ev.Message
		appended := s.AppendMessage(m)
		if user, ok := s.CurrentUser(); ok && m.SenderID == user.ID {
			return appended
		}
		if _, known := s.Contact(m.SenderID); !known {
			return appended
		}
		s.BumpUnread(m.SenderID, Preview(m))
		return true
	case realtime.EventNotification:
		s.IncrementNotifications()
		return true
	case realtime.EventContactStatus:
		return s.UpdateContactStatus(ev.ContactID, ev.Status)
	}
	s.logger.Debug("ignoring push event", "type", ev.Type)
	return false
}

// Preview is the one-line summary shown under a contact.
func Preview(m models.Message) string {
	switch m.Type {
	case models.MessageImage:
		return "[image] " + m.FileName
	case models.MessageFile:
		return "[file] " + m.FileName
	}
	return m.Content
}
