// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the department_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/models"
	"github.com/harperreed/telemsg/viz"
)

type VizHandlers struct {
	client *api.Client
}

func NewVizHandlers(client *api.Client) *VizHandlers {
	return &VizHandlers{client: client}
}

type DepartmentGraphInput struct {
	WithMembers bool `json:"with_members,omitempty" jsonschema:"Include department members as nodes"`
}

type DepartmentGraphOutput struct {
	DOTSource       string `json:"dot_source"`
	DepartmentCount int    `json:"department_count"`
	MemberCount     int    `json:"member_count"`
}

func (h *VizHandlers) DepartmentGraph(ctx context.Context, _ *mcp.CallToolRequest, input DepartmentGraphInput) (*mcp.CallToolResult, DepartmentGraphOutput, error) {
	depts, err := h.client.Departments(ctx)
	if err != nil {
		return nil, DepartmentGraphOutput{}, fmt.Errorf("failed to list departments: %w", err)
	}

	var members map[string][]models.User
	memberCount := 0
	if input.WithMembers {
		members = make(map[string][]models.User, len(depts))
		for _, d := range depts {
			list, err := h.client.DepartmentMembers(ctx, d.ID)
			if err != nil {
				return nil, DepartmentGraphOutput{}, fmt.Errorf("failed to list members of %s: %w", d.Name, err)
			}
			members[d.ID] = list
			memberCount += len(list)
		}
	}

	dot, err := viz.NewGraphGenerator("Organization").DepartmentDOT(ctx, depts, members)
	if err != nil {
		return nil, DepartmentGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, DepartmentGraphOutput{
		DOTSource:       strings.TrimSpace(dot),
		DepartmentCount: len(depts),
		MemberCount:     memberCount,
	}, nil
}
