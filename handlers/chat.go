// ABOUTME: Messaging MCP tool handlers
// ABOUTME: Implements list_contacts, get_history, send_message, list_notifications and mark_notifications_read
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
)

type ChatHandlers struct {
	client *api.Client
}

func NewChatHandlers(client *api.Client) *ChatHandlers {
	return &ChatHandlers{client: client}
}

type ContactOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	LastMessage string `json:"last_message,omitempty"`
	UnreadCount int    `json:"unread_count"`
	LastSeen    string `json:"last_seen,omitempty"`
}

type MessageOutput struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	FileName  string `json:"file_name,omitempty"`
	FileURL   string `json:"file_url,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type NotificationOutput struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Read      bool   `json:"read"`
	Timestamp string `json:"timestamp"`
}

func contactToOutput(c models.Contact) ContactOutput {
	return ContactOutput{
		ID:          c.ID,
		Name:        c.Name,
		Status:      string(c.Status),
		LastMessage: c.LastMessage,
		UnreadCount: c.UnreadCount,
		LastSeen:    c.LastSeen,
	}
}

func messageToOutput(m models.Message) MessageOutput {
	return MessageOutput{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Type:      string(m.Type),
		Content:   m.Content,
		FileName:  m.FileName,
		FileURL:   m.FileURL,
		Status:    string(m.Status),
		Timestamp: m.Timestamp.Format(time.RFC3339),
	}
}

func notificationToOutput(n models.Notification) NotificationOutput {
	return NotificationOutput{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Content:   n.Content,
		Read:      n.Read,
		Timestamp: n.Timestamp.Format(time.RFC3339),
	}
}

type ListContactsInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Filter contacts by name"`
	OnlineOnly bool   `json:"online_only,omitempty" jsonschema:"Only return contacts that are online"`
}

type ListContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ChatHandlers) ListContacts(ctx context.Context, _ *mcp.CallToolRequest, input ListContactsInput) (*mcp.CallToolResult, ListContactsOutput, error) {
	contacts, err := h.client.Contacts(ctx)
	if err != nil {
		return nil, ListContactsOutput{}, fmt.Errorf("failed to list contacts: %w", err)
	}

	out := ListContactsOutput{Contacts: []ContactOutput{}}
	for _, c := range models.FilterContacts(contacts, input.Query) {
		if input.OnlineOnly && c.Status != models.ContactOnline {
			continue
		}
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}
	return nil, out, nil
}

type GetHistoryInput struct {
	ContactID string `json:"contact_id" jsonschema:"Contact ID (required)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of most recent messages (default 20)"`
}

type GetHistoryOutput struct {
	Messages []MessageOutput `json:"messages"`
}

func (h *ChatHandlers) GetHistory(ctx context.Context, _ *mcp.CallToolRequest, input GetHistoryInput) (*mcp.CallToolResult, GetHistoryOutput, error) {
	if input.ContactID == "" {
		return nil, GetHistoryOutput{}, fmt.Errorf("contact_id is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	msgs, err := h.client.Messages(ctx, input.ContactID)
	if err != nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("failed to load history: %w", err)
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := GetHistoryOutput{Messages: make([]MessageOutput, len(msgs))}
	for i, m := range msgs {
		out.Messages[i] = messageToOutput(m)
	}
	return nil, out, nil
}

type SendMessageInput struct {
	ContactID string `json:"contact_id" jsonschema:"Recipient contact ID (required)"`
	Text      string `json:"text" jsonschema:"Message text (required)"`
}

func (h *ChatHandlers) SendMessage(ctx context.Context, _ *mcp.CallToolRequest, input SendMessageInput) (*mcp.CallToolResult, MessageOutput, error) {
	text := strings.TrimSpace(input.Text)
	if input.ContactID == "" || text == "" {
		return nil, MessageOutput{}, fmt.Errorf("contact_id and text are required")
	}

	msg, err := h.client.SendMessage(ctx, input.ContactID, text, models.MessageText)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to send message: %w", err)
	}
	return nil, messageToOutput(*msg), nil
}

type ListNotificationsInput struct {
	UnreadOnly bool `json:"unread_only,omitempty" jsonschema:"Only return unread notifications"`
}

type ListNotificationsOutput struct {
	Notifications []NotificationOutput `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func (h *ChatHandlers) ListNotifications(ctx context.Context, _ *mcp.CallToolRequest, input ListNotificationsInput) (*mcp.CallToolResult, ListNotificationsOutput, error) {
	list, err := h.client.Notifications(ctx)
	if err != nil {
		return nil, ListNotificationsOutput{}, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := ListNotificationsOutput{Notifications: []NotificationOutput{}}
	for _, n := range list {
		if !n.Read {
			out.Unread++
		} else if input.UnreadOnly {
			continue
		}
		out.Notifications = append(out.Notifications, notificationToOutput(n))
	}
	return nil, out, nil
}

type MarkNotificationsReadInput struct {
	ID  string `json:"id,omitempty" jsonschema:"Notification ID to mark read"`
	All bool   `json:"all,omitempty" jsonschema:"Mark every notification read"`
}

type MarkNotificationsReadOutput struct {
	Marked string `json:"marked"`
}

func (h *ChatHandlers) MarkNotificationsRead(ctx context.Context, _ *mcp.CallToolRequest, input MarkNotificationsReadInput) (*mcp.CallToolResult, MarkNotificationsReadOutput, error) {
	switch {
	case input.All:
		if err := h.client.MarkAllNotificationsRead(ctx); err != nil {
			return nil, MarkNotificationsReadOutput{}, fmt.Errorf("failed to mark notifications read: %w", err)
		}
		return nil, MarkNotificationsReadOutput{Marked: "all"}, nil
	case input.ID != "":
		if err := h.client.MarkNotificationRead(ctx, input.ID); err != nil {
			return nil, MarkNotificationsReadOutput{}, fmt.Errorf("failed to mark notification read: %w", err)
		}
		return nil, MarkNotificationsReadOutput{Marked: input.ID}, nil
	}
	return nil, MarkNotificationsReadOutput{}, fmt.Errorf("either id or all is required")
}
