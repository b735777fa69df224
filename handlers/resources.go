// ABOUTME: MCP resource handlers for exposing workspace data
// ABOUTME: Provides read-only access to contacts, conversations, departments and permissions via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
)

const resourceScheme = "telemsg://"

type ResourceHandlers struct {
	client *api.Client
}

func NewResourceHandlers(client *api.Client) *ResourceHandlers {
	return &ResourceHandlers{client: client}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(uri, resourceScheme), "/"), "/")

	switch parts[0] {
	case "contacts":
		if len(parts) == 1 {
			contacts, err := h.client.Contacts(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch contacts: %w", err)
			}
			return jsonResource(uri, contacts)
		}
		if len(parts) == 3 && parts[2] == "messages" {
			msgs, err := h.client.Messages(ctx, parts[1])
			if err != nil {
				return nil, fmt.Errorf("failed to fetch messages: %w", err)
			}
			return jsonResource(uri, msgs)
		}

	case "departments":
		if len(parts) == 1 {
			depts, err := h.client.Departments(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch departments: %w", err)
			}
			return jsonResource(uri, depts)
		}

	case "permissions":
		if len(parts) == 1 {
			return jsonResource(uri, models.PermissionCatalog)
		}
	}

	return nil, mcp.ResourceNotFoundError(uri)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
