// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for desktop agent integration
package cli

import (
	"context"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/handlers"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(client *api.Client, version string) error {
	log.Println("Starting TeleMsg MCP Server...")

	chatHandlers := handlers.NewChatHandlers(client)
	adminHandlers := handlers.NewAdminHandlers(client)
	vizHandlers := handlers.NewVizHandlers(client)
	resourceHandlers := handlers.NewResourceHandlers(client)
	promptHandlers := handlers.NewPromptHandlers(client)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "telemsg",
		Version: version,
	}, nil)

	// Messaging tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List the signed-in user's contacts with presence and unread counts",
	}, chatHandlers.ListContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_history",
		Description: "Fetch the most recent messages of a conversation",
	}, chatHandlers.GetHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a text message to a contact",
	}, chatHandlers.SendMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_notifications",
		Description: "List notifications with the unread count",
	}, chatHandlers.ListNotifications)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_notifications_read",
		Description: "Mark one notification, or all of them, as read",
	}, chatHandlers.MarkNotificationsRead)

	// Admin tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "System statistics: users, online users, messages and storage",
	}, adminHandlers.GetStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_users",
		Description: "Search users by name, username, department or role, optionally by status",
	}, adminHandlers.FindUsers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_departments",
		Description: "List departments with manager, parent and member count",
	}, adminHandlers.ListDepartments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_approvals",
		Description: "List approval requests, optionally by status",
	}, adminHandlers.ListApprovals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_logs",
		Description: "Query the operation audit log by user, action and date range",
	}, adminHandlers.QueryLogs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "role_permissions",
		Description: "Show the permissions granted to a role",
	}, adminHandlers.RolePermissions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "department_graph",
		Description: "Generate a GraphViz DOT graph of the department hierarchy",
	}, vizHandlers.DepartmentGraph)

	// Resources
	server.AddResource(&mcp.Resource{
		URI:      "telemsg://contacts",
		Name:     "contacts",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "telemsg://contacts/{id}/messages",
		Name:        "conversation",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:      "telemsg://departments",
		Name:     "departments",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:      "telemsg://permissions",
		Name:     "permission catalog",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	// Prompts
	server.AddPrompt(&mcp.Prompt{
		Name:        "conversation-summary",
		Description: "Summarize a conversation and list open items",
		Arguments: []*mcp.PromptArgument{
			{Name: "contact_id", Description: "Contact to summarize", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "approval-review",
		Description: "Recommend a decision for every pending approval request",
	}, promptHandlers.GetPrompt)

	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
