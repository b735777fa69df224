// ABOUTME: Department hierarchy graph generation
// ABOUTME: Renders departments and optionally their members with graphviz
package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/telemsg/models"
)

// GraphGenerator renders organisation data with graphviz.
type GraphGenerator struct {
	Title string
}

func NewGraphGenerator(title string) *GraphGenerator {
	return &GraphGenerator{Title: title}
}

// FormatForPath picks the output format from a file extension. Unknown
// extensions get DOT source.
func FormatForPath(path string) graphviz.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return graphviz.SVG
	case ".png":
		return graphviz.PNG
	case ".jpg", ".jpeg":
		return graphviz.JPG
	}
	return graphviz.XDOT
}

// parentIndex resolves each department's parent, which the backend may give
// either as an id or as a display name. Departments without a known parent are roots.
func parentIndex(depts []models.Department) map[string]string {
	byID := make(map[string]string, len(depts))
	byName := make(map[string]string, len(depts))
	for _, d := range depts {
		byID[d.ID] = d.ID
		byName[d.Name] = d.ID
	}
	parents := make(map[string]string)
	for _, d := range depts {
		if d.Parent == "" {
			continue
		}
		if id, ok := byID[d.Parent]; ok && id != d.ID {
			parents[d.ID] = id
		} else if id, ok := byName[d.Parent]; ok && id != d.ID {
			parents[d.ID] = id
		}
	}
	return parents
}

// RenderDepartments writes the department tree in format to w. members is
// keyed by department id and may be nil.
func (g *GraphGenerator) RenderDepartments(ctx context.Context, depts []models.Department, members map[string][]models.User, format graphviz.Format, w io.Writer) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	if g.Title != "" {
		graph.SetLabel(g.Title)
	}
	graph.SetRankDir(cgraph.LRRank)

	nodes := make(map[string]*cgraph.Node, len(depts))
	for _, d := range depts {
		node, err := graph.CreateNodeByName("dept_" + d.ID)
		if err != nil {
			return fmt.Errorf("failed to create department node: %w", err)
		}
		label := d.Name
		if d.Manager != "" {
			label += "\nmanager: " + d.Manager
		}
		label += fmt.Sprintf("\n%d members", d.MemberCount)
		node.SetLabel(label)
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightblue")
		nodes[d.ID] = node
	}

	for child, parent := range parentIndex(depts) {
		if _, err := graph.CreateEdgeByName("parent_"+child, nodes[parent], nodes[child]); err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
	}

	seen := make(map[string]*cgraph.Node)
	for _, d := range depts {
		for _, u := range members[d.ID] {
			node, ok := seen[u.ID]
			if !ok {
				node, err = graph.CreateNodeByName("user_" + u.ID)
				if err != nil {
					return fmt.Errorf("failed to create member node: %w", err)
				}
				node.SetLabel(fmt.Sprintf("%s\n@%s", u.Name, u.Username))
				node.SetShape("ellipse")
				node.SetStyle("filled")
				node.SetFillColor("lightgreen")
				seen[u.ID] = node
			}
			edge, err := graph.CreateEdgeByName("member_"+d.ID+"_"+u.ID, nodes[d.ID], node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
	}

	if err := gv.Render(ctx, graph, format, w); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}

// DepartmentDOT returns the department tree as DOT source.
func (g *GraphGenerator) DepartmentDOT(ctx context.Context, depts []models.Department, members map[string][]models.User) (string, error) {
	var buf bytes.Buffer
	if err := g.RenderDepartments(ctx, depts, members, graphviz.XDOT, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
