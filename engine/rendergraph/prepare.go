package rendergraph

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

func (r *renderGraphImpl) PreparePasses(display DisplayInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.graph
	assignViewIDs(g)

	fbW, fbH := display.Framebuffer()
	for i := range g.Nodes {
		resizeAutoScaleNode(g, i, fbW, fbH)
	}

	for i := range g.Passes {
		p := &g.Passes[i]
		if p.AutoSizeToNode {
			n := &g.Nodes[p.Node]
			switch {
			case n.Primary:
				p.Viewport = common.Rect16{W: uint16(fbW), H: uint16(fbH)}
				p.TargetRect = p.Viewport
			case n.HasTexture():
				p.Viewport = n.Rect
				p.TargetRect = n.Rect
			}
		}
		if p.FromCamera != nil {
			updateFromCamera(p, p.FromCamera, display)
		}
		if p.ClearColorFromBorder {
			p.ClearRGBA = display.displayColor(display.BorderColor)
		}
		if p.FromCascade != nil && p.Cascade != NoIndex {
			cs := p.FromCascade.Cascades()[p.Cascade]
			p.View = cs.View
			p.Projection = cs.Projection
			p.Frustum = cs.Frustum
		}
		if p.FromLight != nil {
			m := p.FromLight.Matrices()
			p.View = m.View
			p.Projection = m.Projection
			p.Frustum = m.Frustum
		}
		if p.BlitSource != NoIndex {
			p.View = blitAspectTransform(g.Targets[p.BlitSource], p.Viewport)
		}
		p.ViewProjection = p.Projection.Mul4(p.View)
	}
}

// assignViewIDs numbers every pass reachable from a primary node. Dependencies are numbered before
// the passes of the node that reads them, so the view id order is a valid execution order.
// Passes that stay unassigned are logged; they are never drawn.
func assignViewIDs(g *Graph) {
	for i := range g.Passes {
		g.Passes[i].ViewID = ViewIDUnassigned
	}

	type frame struct {
		node     int
		expanded bool
	}
	visited := common.NewBitset(len(g.Nodes))
	next := uint16(0)
	for root := range g.Nodes {
		if !g.Nodes[root].Primary {
			continue
		}
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.expanded {
				for _, p := range g.Nodes[top.node].Passes {
					g.Passes[p].ViewID = next
					next++
				}
				continue
			}
			if visited.Has(top.node) {
				continue
			}
			visited.Set(top.node)
			stack = append(stack, frame{node: top.node, expanded: true})
			deps := g.Nodes[top.node].Dependencies
			for i := len(deps) - 1; i >= 0; i-- {
				if !visited.Has(deps[i]) {
					stack = append(stack, frame{node: deps[i]})
				}
			}
		}
	}

	for i := range g.Passes {
		if g.Passes[i].ViewID == ViewIDUnassigned {
			logger.Errorf("Render pass %d (%s) on node %q is not reachable from a primary surface", i, g.Passes[i].Type, g.Nodes[g.Passes[i].Node].Name)
		}
	}
}

// resizeAutoScaleNode makes front buffer and auto scale nodes follow the display. The backend
// textures are recreated by PrepareViews when the target size no longer matches them.
func resizeAutoScaleNode(g *Graph, node, fbW, fbH int) {
	n := &g.Nodes[node]
	if n.Primary && !n.HasTexture() {
		n.Rect = common.Rect16{W: uint16(fbW), H: uint16(fbH)}
	}
	if n.AutoScale == nil {
		return
	}
	n.AutoScale.Resized = false
	if !n.HasTexture() || fbW <= 0 || fbH <= 0 {
		return
	}
	w, h := ComputeAutoScaleSize(fbW, fbH, n.AutoScale.MaxSize)
	if int(n.Rect.W) == w && int(n.Rect.H) == h {
		return
	}
	for _, t := range []int{n.Color, n.Depth} {
		if t != NoIndex {
			g.Targets[t].Width = uint16(w)
			g.Targets[t].Height = uint16(h)
		}
	}
	n.Rect.W = uint16(w)
	n.Rect.H = uint16(h)
	n.AutoScale.Resized = true
	logger.Infof("Resize render target texture: tex = %d,%d display = %d,%d", w, h, fbW, fbH)
}

func updateFromCamera(p *Pass, cam camera.Camera, display DisplayInfo) {
	m := cam.Matrices()
	p.View = m.View
	p.Projection = m.Projection
	p.Frustum = m.Frustum

	vp := cam.ViewportRect()
	t := p.TargetRect
	p.Viewport = common.Rect16{
		X: uint16(vp.X*float32(t.W) + float32(t.X)),
		Y: uint16(vp.Y*float32(t.H) + float32(t.Y)),
		W: uint16(vp.W * float32(t.W)),
		H: uint16(vp.H * float32(t.H)),
	}
	p.CameraMask = cam.Mask()
	p.ShadowMask = common.AllBits

	if !p.UpdateClear {
		return
	}
	switch cam.ClearMode() {
	case camera.ClearDepthOnly:
		p.Clear = ClearDepth | ClearStencil
	case camera.ClearNothing:
		p.Clear = 0
	default:
		p.Clear = ClearColor | ClearDepth | ClearStencil
	}
	p.ClearRGBA = display.displayColor(cam.BackgroundColor())
}

// blitAspectTransform scales a fullscreen quad so the source texture keeps its aspect inside the
// destination viewport, leaving bars on the longer axis.
func blitAspectTransform(src Target, dest common.Rect16) mgl32.Mat4 {
	m := mgl32.Ident4()
	if src.Height == 0 || dest.H == 0 {
		return m
	}
	srcAspect := float32(src.Width) / float32(src.Height)
	destAspect := float32(dest.W) / float32(dest.H)
	if destAspect <= srcAspect {
		m[5] = destAspect / srcAspect
	} else {
		m[0] = srcAspect / destAspect
	}
	return m
}
