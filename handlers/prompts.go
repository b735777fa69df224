// ABOUTME: MCP prompt handlers for reusable messaging and admin workflows
// ABOUTME: Provides conversation-summary and approval-review templates
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
)

// conversationWindow caps how much history goes into a summary prompt.
const conversationWindow = 50

type PromptHandlers struct {
	client *api.Client
}

func NewPromptHandlers(client *api.Client) *PromptHandlers {
	return &PromptHandlers{client: client}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "conversation-summary":
		return h.conversationSummary(ctx, request.Params.Arguments)
	case "approval-review":
		return h.approvalReview(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) conversationSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	contactID := args["contact_id"]
	if contactID == "" {
		return nil, fmt.Errorf("contact_id is required")
	}

	name := contactID
	if contacts, err := h.client.Contacts(ctx); err == nil {
		for _, c := range contacts {
			if c.ID == contactID {
				name = c.Name
				break
			}
		}
	}

	msgs, err := h.client.Messages(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(msgs) > conversationWindow {
		msgs = msgs[len(msgs)-conversationWindow:]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Summarize my conversation with %s.\n\n", name))
	if len(msgs) == 0 {
		sb.WriteString("(no messages yet)\n")
	}
	for _, m := range msgs {
		who := name
		if m.SenderID != contactID {
			who = "Me"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), who, describeMessage(m)))
	}
	sb.WriteString("\nList open questions, commitments made by either side, and anything I still need to reply to.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Conversation summary for %s", name),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: sb.String()}},
		},
	}, nil
}

func describeMessage(m models.Message) string {
	switch m.Type {
	case models.MessageFile, models.MessageImage:
		return fmt.Sprintf("[%s %s]", m.Type, m.FileName)
	}
	return m.Content
}

func (h *PromptHandlers) approvalReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	pending, err := h.client.ApprovalRequests(ctx, models.ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch approvals: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Review %d pending approval requests.\n\n", len(pending)))
	for _, a := range pending {
		sb.WriteString(fmt.Sprintf("- %s: %s requested by %s on %s", a.ID, a.Type, a.RequesterName, a.CreatedAt))
		for k, v := range a.Data {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nFor each request recommend approve or reject. Give a one-line reason for every rejection.")

	return &mcp.GetPromptResult{
		Description: "Pending approval review",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: sb.String()}},
		},
	}, nil
}
