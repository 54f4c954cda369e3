package rendergraph

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// ScreenToWorldID names the pick chains rebuilt with the graph.
type ScreenToWorldID int

const (
	ScreenToWorldMainCamera ScreenToWorldID = iota
	ScreenToWorldSprites
	ScreenToWorldUILayer
)

// ScreenToWorldChain is the list of passes a screen position goes through on its way to the
// world. Root provides the viewport; List is applied in order after it.
type ScreenToWorldChain struct {
	Root int
	List []int
}

// Blitter draws a graph texture into a fullscreen pass.
type Blitter struct {
	Source int
	Pass   int
	Color  mgl32.Vec4
}

// Graph is the arena of nodes, passes and targets. Elements refer to each other by index.
// Only the render graph builder and pass preparation mutate it; submission reads it.
type Graph struct {
	Nodes         []Node
	Passes        []Pass
	Targets       []Target
	Blitters      []Blitter
	ScreenToWorld map[ScreenToWorldID]ScreenToWorldChain

	// MainNode is the node cameras render into, FrontNode the node presenting to the display.
	// They are the same node in ModeDirect.
	MainNode  int
	FrontNode int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ScreenToWorld: map[ScreenToWorldID]ScreenToWorldChain{},
		MainNode:      NoIndex,
		FrontNode:     NoIndex,
	}
}

// AddNode appends a node without targets and returns its index.
func (g *Graph) AddNode(name string) int {
	g.Nodes = append(g.Nodes, Node{Name: name, Color: NoIndex, Depth: NoIndex})
	return len(g.Nodes) - 1
}

// AddPass appends p to the arena and to its node's pass list.
func (g *Graph) AddPass(p Pass) int {
	g.Passes = append(g.Passes, p)
	idx := len(g.Passes) - 1
	g.Nodes[p.Node].Passes = append(g.Nodes[p.Node].Passes, idx)
	return idx
}

// AddTarget appends a target and returns its index.
func (g *Graph) AddTarget(t Target) int {
	g.Targets = append(g.Targets, t)
	return len(g.Targets) - 1
}

// LinkNodes records that node depends on dependsOn: every pass of dependsOn runs first.
func (g *Graph) LinkNodes(node, dependsOn int) {
	g.Nodes[node].Dependencies = append(g.Nodes[node].Dependencies, dependsOn)
}

// FindPassOnNode returns the first pass of the given type on a node, or NoIndex.
func (g *Graph) FindPassOnNode(node int, t PassType) int {
	if node == NoIndex {
		return NoIndex
	}
	for _, p := range g.Nodes[node].Passes {
		if g.Passes[p].Type == t {
			return p
		}
	}
	return NoIndex
}

// ColorOutput returns the color target of a node, or NoIndex.
func (g *Graph) ColorOutput(node int) int {
	if node == NoIndex {
		return NoIndex
	}
	return g.Nodes[node].Color
}

// TargetHandle returns the backend texture of target idx, or the invalid handle.
func (g *Graph) TargetHandle(idx int) renderer.Handle {
	if idx < 0 || idx >= len(g.Targets) {
		return renderer.Handle{}
	}
	return g.Targets[idx].handle
}

// RenderBufferSize returns the current size of the main view in pixels.
func (g *Graph) RenderBufferSize() (int, int) {
	if g.MainNode == NoIndex {
		return 0, 0
	}
	r := g.Nodes[g.MainNode].Rect
	return int(r.W), int(r.H)
}

// PassesInViewOrder returns the assigned passes sorted by view id.
func (g *Graph) PassesInViewOrder() []int {
	out := make([]int, 0, len(g.Passes))
	for i := range g.Passes {
		if g.Passes[i].ViewID != ViewIDUnassigned {
			out = append(out, i)
		}
	}
	slices.SortFunc(out, func(a, b int) int {
		return cmp.Compare(g.Passes[a].ViewID, g.Passes[b].ViewID)
	})
	return out
}

func (g *Graph) addRenderToTexture(node int, w, h int, color, depth bool, linear bool) {
	n := &g.Nodes[node]
	if color {
		format := renderer.TextureRGBA8
		if linear {
			format = renderer.TextureRGBA8SRGB
		}
		n.Color = g.AddTarget(Target{
			Label:  n.Name + ".color",
			Format: format,
			Flags:  renderer.TextureSampled | renderer.TextureRenderTarget | renderer.TextureClamp,
			Width:  uint16(w),
			Height: uint16(h),
		})
	}
	if depth {
		n.Depth = g.AddTarget(Target{
			Label:  n.Name + ".depth",
			Format: renderer.TextureDepth24,
			Flags:  renderer.TextureRenderTarget | renderer.TextureClamp,
			Width:  uint16(w),
			Height: uint16(h),
		})
	}
	n.Rect = common.Rect16{W: uint16(w), H: uint16(h)}
}

func (g *Graph) addShadowMapTarget(node int, size int) int {
	n := &g.Nodes[node]
	n.Depth = g.AddTarget(Target{
		Label:  n.Name + ".shadow",
		Format: renderer.TextureDepth32F,
		Flags:  renderer.TextureSampled | renderer.TextureRenderTarget | renderer.TextureCompare | renderer.TextureClamp,
		Width:  uint16(size),
		Height: uint16(size),
	})
	n.Rect = common.Rect16{W: uint16(size), H: uint16(size)}
	return n.Depth
}

// release destroys the backend resources of the graph. Nil backends are allowed for graphs
// that were never prepared.
func (g *Graph) release(b renderer.Backend) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.frameBuffer.Valid() && b != nil {
			b.Destroy(n.frameBuffer)
		}
		n.frameBuffer = renderer.Handle{}
	}
	for i := range g.Targets {
		t := &g.Targets[i]
		if t.handle.Valid() && b != nil {
			b.Destroy(t.handle)
		}
		t.handle = renderer.Handle{}
	}
}

// reset empties the arena.
func (g *Graph) reset() {
	g.Nodes = g.Nodes[:0]
	g.Passes = g.Passes[:0]
	g.Targets = g.Targets[:0]
	g.Blitters = g.Blitters[:0]
	clear(g.ScreenToWorld)
	g.MainNode = NoIndex
	g.FrontNode = NoIndex
}
