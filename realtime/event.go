// ABOUTME: Push event frames received from the backend
// ABOUTME: Decodes message, notification and contact_status frames
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/harperreed/telemsg/models"
)

const (
	EventMessage       = "message"
	EventNotification  = "notification"
	EventContactStatus = "contact_status"
)

// Event is one inbound frame. Only the fields of its Type are set.
type Event struct {
	Type         string               `json:"type"`
	Message      *models.Message      `json:"message,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	ContactID    string               `json:"contactId,omitempty"`
	Status       models.ContactStatus `json:"status,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (e Event) Known() bool {
	switch e.Type {
	case EventMessage, EventNotification, EventContactStatus:
		return true
	}
	return false
}

func DecodeEvent(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode push frame: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("push frame has no type")
	}
	if ev.Type == EventMessage && ev.Message == nil {
		return Event{}, fmt.Errorf("message frame without message")
	}
	ev.Raw = append(json.RawMessage(nil), frame...)
	return ev, nil
}
