package rendergraph

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table renders the passes of the graph in view order as a text table, followed by unassigned
// passes.
func (g *Graph) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"View", "Node", "Pass", "Sort", "Viewport", "Target", "Clear", "Deps"})

	order := g.PassesInViewOrder()
	for i := range g.Passes {
		if g.Passes[i].ViewID == ViewIDUnassigned {
			order = append(order, i)
		}
	}
	for _, i := range order {
		p := &g.Passes[i]
		n := &g.Nodes[p.Node]
		view := "-"
		if p.ViewID != ViewIDUnassigned {
			view = fmt.Sprintf("%d", p.ViewID)
		}
		deps := make([]string, 0, len(n.Dependencies))
		for _, d := range n.Dependencies {
			deps = append(deps, g.Nodes[d].Name)
		}
		table.Append([]string{
			view,
			n.Name,
			p.Type.String(),
			p.Sort.String(),
			fmt.Sprintf("%d,%d %dx%d", p.Viewport.X, p.Viewport.Y, p.Viewport.W, p.Viewport.H),
			fmt.Sprintf("%dx%d", p.TargetRect.W, p.TargetRect.H),
			formatClear(p.Clear, p.ClearRGBA),
			strings.Join(deps, ","),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d nodes", len(g.Nodes)), fmt.Sprintf("%d passes", len(g.Passes)), "", "", fmt.Sprintf("%d targets", len(g.Targets)), "", ""})

	table.Render()
	return buf.String()
}

func formatClear(c ClearFlags, rgba uint32) string {
	if c == 0 {
		return "-"
	}
	var parts []string
	if c&ClearColor != 0 {
		parts = append(parts, fmt.Sprintf("color #%08x", rgba))
	}
	if c&ClearDepth != 0 {
		parts = append(parts, "depth")
	}
	if c&ClearStencil != 0 {
		parts = append(parts, "stencil")
	}
	return strings.Join(parts, "+")
}
