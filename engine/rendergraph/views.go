package rendergraph

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// ErrUnassignedView is the panic value of PrepareViews for a pass that never got a view id.
var ErrUnassignedView = errors.New("rendergraph: pass has no view id")

func (r *renderGraphImpl) PrepareViews() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.createTargets(); err != nil {
		return err
	}

	g := r.graph
	caps := r.backend.Caps()
	for i := range g.Passes {
		p := &g.Passes[i]
		if p.ViewID == ViewIDUnassigned {
			logger.Errorf("Render pass %d (%s) on node %q has no view id; the graph is corrupt", i, p.Type, g.Nodes[p.Node].Name)
			panic(fmt.Errorf("%w: pass %d on node %q", ErrUnassignedView, i, g.Nodes[p.Node].Name))
		}
		node := &g.Nodes[p.Node]
		prepareView(r.backend, caps, p, node)
	}
	return nil
}

// prepareView configures the backend view of one pass.
//
// Parameters:
//   - b: the backend
//   - caps: the backend conventions
//   - p: the pass, its flags are updated for submission
//   - node: the node the pass renders into
func prepareView(b renderer.Backend, caps renderer.Caps, p *Pass, node *Node) {
	view := p.ViewID
	rtt := node.HasTexture()
	if rtt {
		p.Flags |= PassFlagRenderToTexture
	} else {
		p.Flags &^= PassFlagRenderToTexture
	}

	proj := p.Projection
	if caps.HomogeneousDepth && caps.OriginBottomLeft {
		p.Flags &^= PassFlagCullingMask
	} else {
		yflip := caps.NeedsYFlip(rtt)
		proj = renderer.AdjustProjection(proj, !caps.HomogeneousDepth, yflip)
		if yflip {
			p.Flags |= PassFlagFlipCulling
		} else {
			p.Flags &^= PassFlagCullingMask
		}
	}
	// culling and sort keys work on the unadjusted transform
	p.ViewProjection = p.Projection.Mul4(p.View)

	b.SetViewName(view, fmt.Sprintf("%s.%s", node.Name, p.Type))
	b.SetViewMode(view, p.Sort.ViewMode())
	b.SetViewTransform(view, p.View, proj)

	vp := p.Viewport
	scissor := p.Scissor
	if caps.OriginBottomLeft || !rtt {
		vp = flipRectY(vp, p.TargetRect)
		if scissor.H != 0 {
			scissor = flipRectY(scissor, p.TargetRect)
		} else {
			scissor = common.Rect16{}
		}
	}
	b.SetViewRect(view, vp)
	b.SetViewScissor(view, scissor)
	b.SetViewClear(view, renderer.ClearFlags(p.Clear), p.ClearRGBA, p.ClearDepth, p.ClearStencil)
	b.SetViewFrameBuffer(view, node.frameBuffer)
	b.Touch(view)
}

// flipRectY converts a bottom-left origin rect to top-left within target, or back.
func flipRectY(r, target common.Rect16) common.Rect16 {
	y := int(target.H) - int(r.Y) - int(r.H)
	if y < 0 {
		y = 0
	}
	return common.Rect16{X: r.X, Y: uint16(y), W: r.W, H: r.H}
}

// createTargets creates missing textures and frame buffers, and recreates the ones whose size
// changed since they were created.
func (r *renderGraphImpl) createTargets() error {
	g := r.graph
	b := r.backend
	recreated := common.NewBitset(len(g.Targets))
	for i := range g.Targets {
		t := &g.Targets[i]
		if t.handle.Valid() && t.created == [2]uint16{t.Width, t.Height} {
			continue
		}
		if t.handle.Valid() {
			b.Destroy(t.handle)
		}
		h, err := b.CreateTexture(renderer.TextureDesc{
			Label:  t.Label,
			Width:  t.Width,
			Height: t.Height,
			Format: t.Format,
			Flags:  t.Flags,
		}, nil)
		if err != nil {
			t.handle = renderer.Handle{}
			return fmt.Errorf("rendergraph: failed to create render target %q: %w", t.Label, err)
		}
		t.handle = h
		t.created = [2]uint16{t.Width, t.Height}
		recreated.Set(i)
		logger.Debugf("Created render target %q %dx%d", t.Label, t.Width, t.Height)
	}

	changed := func(t int) bool {
		return t != NoIndex && recreated.Has(t)
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.HasTexture() {
			continue
		}
		if n.frameBuffer.Valid() && !changed(n.Color) && !changed(n.Depth) {
			continue
		}
		if n.frameBuffer.Valid() {
			b.Destroy(n.frameBuffer)
		}
		var attachments []renderer.Handle
		for _, t := range []int{n.Color, n.Depth} {
			if t != NoIndex {
				attachments = append(attachments, g.Targets[t].handle)
			}
		}
		fb, err := b.CreateFrameBuffer(attachments...)
		if err != nil {
			n.frameBuffer = renderer.Handle{}
			return fmt.Errorf("rendergraph: failed to create frame buffer for node %q: %w", n.Name, err)
		}
		n.frameBuffer = fb
	}
	return nil
}
