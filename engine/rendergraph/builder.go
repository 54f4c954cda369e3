package rendergraph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Clear colors of the shadow passes, visible only when inspecting the shadow map.
var (
	cascadeClearColors = [light.CascadeCount]uint32{0xff0000ff, 0xff7f00ff, 0xffff00ff, 0x00ff00ff}
	shadowClearColor   = uint32(0x0000ffff)
)

const cameraClearColor = uint32(0xff00ffff)

// ComputeAutoScaleSize fits a size into maxSize on both axes, keeping the aspect.
// Sizes that already fit keep their value; a minimised (zero) front buffer yields 1x1.
//
// Parameters:
//   - w, h: the front buffer size
//   - maxSize: the largest allowed side, must be positive
//
// Returns:
//   - int: the scaled width, at least 1
//   - int: the scaled height, at least 1
func ComputeAutoScaleSize(w, h, maxSize int) (int, int) {
	if maxSize <= 0 {
		panic(fmt.Sprintf("rendergraph: auto scale max size must be positive, got %d", maxSize))
	}
	if w > maxSize || h > maxSize {
		scale := float64(maxSize) / float64(max(w, h))
		w, h = int(float64(w)*scale), int(float64(h)*scale)
	}
	return max(w, 1), max(h, 1)
}

func (r *renderGraphImpl) Update(src Source, display DisplayInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cams := collectCameras(src.Cameras())
	rebuild := true
	switch {
	case r.forceRebuild:
		logger.Notice("Forced render graph rebuild!")
		r.forceRebuild = false
	case r.graph.MainNode == NoIndex:
		logger.Noticef("Building render graph in %s mode", r.config.Mode)
	case !r.config.Equal(r.currentConfig):
		logger.Noticef("Render graph config changed (%s %dx%d -> %s %dx%d), rebuilding",
			r.currentConfig.Mode, r.currentConfig.RenderBufferWidth, r.currentConfig.RenderBufferHeight,
			r.config.Mode, r.config.RenderBufferWidth, r.config.RenderBufferHeight)
	case !sameCameras(cams, r.activeCameras):
		logger.Noticef("Camera list changed (%d -> %d active cameras), rebuilding render graph", len(r.activeCameras), len(cams))
	default:
		rebuild = false
	}

	if rebuild {
		r.rebuild(cams, display)
	}
	if r.buildLightNodes(src.Lights()) > 0 {
		r.groups.Invalidate()
	}
	return rebuild
}

// rebuild throws the whole graph away and builds it again from the configuration and cameras.
func (r *renderGraphImpl) rebuild(cams []sortedCamera, display DisplayInfo) {
	r.destroy()
	r.rebuilds++
	r.currentConfig = r.config
	r.activeCameras = cams

	g := r.graph
	fbW, fbH := display.Framebuffer()
	var main, front int
	if r.config.Mode == ModeDirect {
		if display.ColorSpace != common.ColorSpaceGamma {
			logger.Warning("Direct render graph mode expects a gamma display; colors will not be converted")
		}
		front = r.buildFrontBufferNode(fbW, fbH)
		g.Nodes[front].MainView = true
		main = front
	} else {
		w, h := r.config.RenderBufferWidth, r.config.RenderBufferHeight
		var autoScale *AutoScale
		if r.config.Mode == ModeScaled {
			w, h = ComputeAutoScaleSize(fbW, fbH, r.config.RenderBufferMaxSize)
			autoScale = &AutoScale{MaxSize: r.config.RenderBufferMaxSize}
		}
		main = g.AddNode("main")
		g.Nodes[main].MainView = true
		g.Nodes[main].AutoScale = autoScale
		g.addRenderToTexture(main, w, h, true, true, display.ColorSpace == common.ColorSpaceLinear)

		front = r.buildFrontBufferNode(fbW, fbH)
		g.LinkNodes(front, main)
		r.addBlitter(main, front)
	}
	g.MainNode = main
	g.FrontNode = front

	for _, c := range cams {
		r.buildCameraPasses(main, c.cam)
	}
	r.buildScreenToWorld()
	r.groups.Invalidate()
	warnCameraSetup(cams)

	logger.Infof("Render graph rebuilt: %d node(s), %d pass(es), %d target(s)", len(g.Nodes), len(g.Passes), len(g.Targets))
}

// destroy releases the backend resources and clears the arena. Shadow casting lights forget
// their node and shadow map so the next Update gives them new ones.
func (r *renderGraphImpl) destroy() {
	r.graph.release(r.backend)
	for _, l := range r.shadowLights {
		l.SetShadowRefs(light.NoRef, light.NoRef)
	}
	r.shadowLights = r.shadowLights[:0]
	r.graph.reset()
	r.groups.Invalidate()
}

func (r *renderGraphImpl) buildFrontBufferNode(w, h int) int {
	g := r.graph
	node := g.AddNode("front")
	g.Nodes[node].Primary = true
	g.Nodes[node].Rect = common.Rect16{W: uint16(w), H: uint16(h)}
	rect := g.Nodes[node].Rect

	quad := newPass(node, PassFullscreenQuad, SortUnsorted, rect, common.AllBits)
	quad.Clear = ClearColor
	quad.ClearRGBA = 0xff
	quad.AutoSizeToNode = true
	quad.ClearColorFromBorder = true
	g.AddPass(quad)

	overlay := newPass(node, PassDebugOverlay, SortSorted, rect, common.AllBits)
	overlay.AutoSizeToNode = true
	g.AddPass(overlay)
	return node
}

func (r *renderGraphImpl) addBlitter(source, dest int) {
	g := r.graph
	pass := g.FindPassOnNode(dest, PassFullscreenQuad)
	if pass == NoIndex {
		panic(fmt.Sprintf("rendergraph: node %q has no fullscreen pass to blit into", g.Nodes[dest].Name))
	}
	color := g.ColorOutput(source)
	g.Passes[pass].BlitSource = color
	g.Blitters = append(g.Blitters, Blitter{Source: color, Pass: pass, Color: mgl32.Vec4{1, 1, 1, 1}})
}

// buildCameraPasses adds the clear, opaque, sprites, UI and transparent passes of one camera.
func (r *renderGraphImpl) buildCameraPasses(node int, cam camera.Camera) {
	g := r.graph
	target := g.Nodes[node].Rect
	vp := cam.ViewportRect()
	rect := common.Rect16{
		X: uint16(vp.X * float32(target.W)),
		Y: uint16(vp.Y * float32(target.H)),
		W: uint16(vp.W * float32(target.W)),
		H: uint16(vp.H * float32(target.H)),
	}
	mask := cam.Mask()

	add := func(t PassType, sort SortMode, viewport common.Rect16) int {
		p := newPass(node, t, sort, target, mask)
		p.Viewport = viewport
		p.AutoSizeToNode = true
		p.FromCamera = cam
		return g.AddPass(p)
	}

	clearPass := add(PassClear, SortUnsorted, rect)
	g.Passes[clearPass].Clear = ClearDepth | ClearColor
	g.Passes[clearPass].ClearRGBA = cameraClearColor
	g.Passes[clearPass].UpdateClear = true

	add(PassOpaque, SortUnsorted, rect)
	add(PassSprites, SortZGreater, rect)
	add(PassUI, SortSorted, common.Rect16{W: target.W, H: target.H})
	add(PassTransparent, SortZLess, rect)
}

// buildLightNodes adds a shadow map node for every shadow casting light that has none yet.
//
// Returns:
//   - int: the number of nodes added
func (r *renderGraphImpl) buildLightNodes(lights []light.Light) int {
	if r.graph.MainNode == NoIndex {
		return 0
	}
	added := 0
	for _, l := range lights {
		info, ok := l.Shadow()
		if !ok || info.Node != light.NoRef {
			continue
		}
		if l.Kind() == light.KindPoint {
			logger.Debugf("Point light %d is marked as shadow casting; point light shadows are not supported", l.ID())
			continue
		}
		r.addShadowNode(l, info)
		added++
	}
	return added
}

func (r *renderGraphImpl) addShadowNode(l light.Light, info light.ShadowInfo) int {
	g := r.graph
	res := common.Coalesce(info.Resolution, light.ShadowMapResolution)
	node := g.AddNode(fmt.Sprintf("shadow.light%d", l.ID()))
	g.Nodes[node].ShadowLight = l
	shadowMap := g.addShadowMapTarget(node, res)
	full := common.Rect16{W: uint16(res), H: uint16(res)}

	passes := 1
	if l.Cascade() != nil {
		passes = light.CascadeCount
		half := uint16(res >> 1)
		for i := 0; i < light.CascadeCount; i++ {
			p := newPass(node, PassShadowMap, SortUnsorted, full, common.AllBits)
			p.Viewport = common.Rect16{X: half * uint16(i>>1), Y: half * uint16(i&1), W: half, H: half}
			p.Clear = ClearDepth
			p.ClearRGBA = cascadeClearColors[i]
			p.FromCascade = l
			p.Cascade = i
			g.AddPass(p)
		}
	} else {
		p := newPass(node, PassShadowMap, SortUnsorted, full, common.AllBits)
		p.Clear = ClearDepth
		p.ClearRGBA = shadowClearColor
		p.FromLight = l
		g.AddPass(p)
	}

	g.LinkNodes(g.MainNode, node)
	l.SetShadowRefs(node, shadowMap)
	r.shadowLights = append(r.shadowLights, l)
	logger.Infof("Added shadow map node %q for %s light %d: %dx%d, %d pass(es)", g.Nodes[node].Name, l.Kind(), l.ID(), res, res, passes)
	return node
}

// buildScreenToWorld links the pick chains to the passes cameras draw with. With a separate
// main node the front buffer's fullscreen pass maps the screen into the render buffer first.
func (r *renderGraphImpl) buildScreenToWorld() {
	g := r.graph
	chains := []struct {
		id ScreenToWorldID
		t  PassType
	}{
		{ScreenToWorldMainCamera, PassOpaque},
		{ScreenToWorldSprites, PassSprites},
		{ScreenToWorldUILayer, PassUI},
	}
	for _, c := range chains {
		if g.MainNode != g.FrontNode {
			g.ScreenToWorld[c.id] = ScreenToWorldChain{
				Root: g.FindPassOnNode(g.FrontNode, PassFullscreenQuad),
				List: []int{g.FindPassOnNode(g.MainNode, c.t)},
			}
			continue
		}
		g.ScreenToWorld[c.id] = ScreenToWorldChain{Root: g.FindPassOnNode(g.FrontNode, c.t)}
	}
}

// collectCameras returns the enabled cameras ordered by depth, then id.
func collectCameras(cams []camera.Camera) []sortedCamera {
	out := make([]sortedCamera, 0, len(cams))
	for _, c := range cams {
		mask := c.Mask()
		if mask == 0 {
			continue
		}
		out = append(out, sortedCamera{depth: c.Depth(), id: c.ID(), mask: mask, cam: c})
	}
	slices.SortFunc(out, func(a, b sortedCamera) int {
		if c := cmp.Compare(a.depth, b.depth); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return out
}

func sameCameras(a, b []sortedCamera) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].id != b[i].id || a[i].mask != b[i].mask {
			return false
		}
	}
	return true
}

// warnCameraSetup logs cameras that are completely painted over by solid color cameras drawn
// after them, and cameras sharing a depth.
//
// Returns:
//   - int: the number of warnings logged
func warnCameraSetup(cams []sortedCamera) int {
	n := 0
	var covered []common.Rect
	for i := len(cams) - 1; i >= 0; i-- {
		c := cams[i].cam
		if c.ClearMode() != camera.ClearSolidColor {
			continue
		}
		vp := c.ViewportRect()
		if isRectCovered(vp, covered) {
			logger.Warningf("Camera %d is fully overwritten by cameras drawn after it; it still renders with no visible effect", c.ID())
			n++
		}
		covered = append(covered, vp)
	}
	for i := 0; i+1 < len(cams); i++ {
		if cams[i].depth == cams[i+1].depth {
			logger.Warningf("Cameras %d and %d have the same depth %.2f; they are ordered by id", cams[i].id, cams[i+1].id, cams[i].depth)
			n++
		}
	}
	return n
}

func isRectCovered(r common.Rect, by []common.Rect) bool {
	if r.IsEmpty() {
		return true
	}
	if len(by) == 0 {
		return false
	}
	for _, rest := range r.Subtract(by[0]) {
		if !isRectCovered(rest, by[1:]) {
			return false
		}
	}
	return true
}
