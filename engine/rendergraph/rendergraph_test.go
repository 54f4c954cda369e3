package rendergraph

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeSource struct {
	cameras []camera.Camera
	lights  []light.Light
}

func (s *fakeSource) Cameras() []camera.Camera { return s.cameras }
func (s *fakeSource) Lights() []light.Light    { return s.lights }

type fakeDrawable struct {
	transparent bool
	cameraMask  uint32
	shadowMask  uint32
	group       int
}

func (d *fakeDrawable) Transparent() bool        { return d.transparent }
func (d *fakeDrawable) CameraMask() uint32       { return d.cameraMask }
func (d *fakeDrawable) ShadowMask() uint32       { return d.shadowMask }
func (d *fakeDrawable) SetRenderGroup(group int) { d.group = group }

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	log.SetSink(&buf)
	t.Cleanup(func() { log.SetSink(os.Stdout) })
	return &buf
}

func gammaDisplay(w, h int) DisplayInfo {
	return DisplayInfo{Width: w, Height: h, ColorSpace: common.ColorSpaceGamma, BorderColor: mgl32.Vec4{0, 0, 0, 1}}
}

func lookAtOrigin(options ...camera.CameraBuilderOption) camera.Camera {
	options = append([]camera.CameraBuilderOption{
		camera.WithLookAt(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 0}),
		camera.WithClip(0.1, 100),
	}, options...)
	return camera.NewCamera(options...)
}

// prepareFrame runs the per-frame graph steps and submits an empty frame so the recording
// backend snapshots the views.
func prepareFrame(t *testing.T, rg RenderGraph, b renderer.RecordingBackend, src Source, display DisplayInfo) renderer.FrameRecord {
	rg.Update(src, display)
	rg.PreparePasses(display)
	if err := rg.PrepareViews(); err != nil {
		t.Fatalf("expected PrepareViews to succeed; got %v", err)
	}
	if _, err := b.Frame(); err != nil {
		t.Fatalf("expected Frame to succeed; got %v", err)
	}
	return b.LastFrame()
}

func viewRecord(f renderer.FrameRecord, id uint16) (renderer.ViewRecord, bool) {
	for _, v := range f.Views {
		if v.ID == id {
			return v, true
		}
	}
	return renderer.ViewRecord{}, false
}

func TestComputeAutoScaleSize(t *testing.T) {
	type spec struct {
		w, h, max  int
		expW, expH int
	}

	specs := []spec{
		{w: 1920, h: 1080, max: 2048, expW: 1920, expH: 1080},
		{w: 4096, h: 2048, max: 2048, expW: 2048, expH: 1024},
		{w: 1000, h: 3000, max: 1500, expW: 500, expH: 1500},
		{w: 5000, h: 1, max: 1000, expW: 1000, expH: 1},
		{w: 2048, h: 2048, max: 2048, expW: 2048, expH: 2048},
		{w: 0, h: 0, max: 2048, expW: 1, expH: 1},
		{w: 800, h: 0, max: 2048, expW: 800, expH: 1},
	}

	for index, s := range specs {
		w, h := ComputeAutoScaleSize(s.w, s.h, s.max)
		if w != s.expW || h != s.expH {
			t.Fatalf("[spec %d] expected %dx%d; got %dx%d", index, s.expW, s.expH, w, h)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a zero max size to panic")
		}
	}()
	ComputeAutoScaleSize(100, 100, 0)
}

func TestViewIDTopologicalOrder(t *testing.T) {
	buf := captureLog(t)

	g := NewGraph()
	front := g.AddNode("front")
	g.Nodes[front].Primary = true
	main := g.AddNode("main")
	shadowA := g.AddNode("shadowA")
	shadowB := g.AddNode("shadowB")
	shared := g.AddNode("shared")
	orphan := g.AddNode("orphan")

	// front reads main and shared, main reads both shadows and shadowA reads shared as well.
	g.LinkNodes(front, main)
	g.LinkNodes(front, shared)
	g.LinkNodes(main, shadowA)
	g.LinkNodes(main, shadowB)
	g.LinkNodes(shadowA, shared)

	passOf := map[int][]int{}
	for _, n := range []int{front, front, main, shadowA, shadowB, shared, orphan} {
		passOf[n] = append(passOf[n], g.AddPass(newPass(n, PassOpaque, SortUnsorted, common.Rect16{W: 1, H: 1}, common.AllBits)))
	}

	assignViewIDs(g)

	type spec struct {
		node int
		exp  []uint16
	}

	specs := []spec{
		{node: shared, exp: []uint16{0}},
		{node: shadowA, exp: []uint16{1}},
		{node: shadowB, exp: []uint16{2}},
		{node: main, exp: []uint16{3}},
		{node: front, exp: []uint16{4, 5}},
		{node: orphan, exp: []uint16{ViewIDUnassigned}},
	}

	for index, s := range specs {
		for i, p := range passOf[s.node] {
			if g.Passes[p].ViewID != s.exp[i] {
				t.Fatalf("[spec %d] expected view id %d for pass %d of node %q; got %d", index, s.exp[i], i, g.Nodes[s.node].Name, g.Passes[p].ViewID)
			}
		}
	}

	if !strings.Contains(buf.String(), `"orphan" is not reachable`) {
		t.Fatalf("expected the orphan pass to be logged; got %q", buf.String())
	}
}

func TestModeSwitchRebuildsOnce(t *testing.T) {
	buf := captureLog(t)
	b := renderer.NewRecordingBackend()
	rg := NewRenderGraph(b)
	src := &fakeSource{cameras: []camera.Camera{lookAtOrigin()}}
	display := gammaDisplay(1280, 720)

	if !rg.Update(src, display) {
		t.Fatalf("expected the first update to build the graph")
	}
	prepareFrame(t, rg, b, src, display)
	if n := b.LiveCount(renderer.HandleTexture); n != 2 {
		t.Fatalf("expected 2 render target textures in fixed mode; got %d", n)
	}
	if n := b.LiveCount(renderer.HandleFrameBuffer); n != 1 {
		t.Fatalf("expected 1 frame buffer in fixed mode; got %d", n)
	}
	if w, h := rg.Graph().RenderBufferSize(); w != 1920 || h != 1080 {
		t.Fatalf("expected a 1920x1080 render buffer; got %dx%d", w, h)
	}

	cfg := rg.Config()
	cfg.Mode = ModeDirect
	rg.SetConfig(cfg)

	if !rg.Update(src, display) {
		t.Fatalf("expected the mode switch to rebuild the graph")
	}
	if rg.Update(src, display) {
		t.Fatalf("expected no rebuild without changes")
	}
	if rg.Rebuilds() != 2 {
		t.Fatalf("expected 2 rebuilds; got %d", rg.Rebuilds())
	}
	if !strings.Contains(buf.String(), "config changed (fixed 1920x1080 -> direct 1920x1080)") {
		t.Fatalf("expected the rebuild reason to be logged; got %q", buf.String())
	}
	if n := b.LiveCount(renderer.HandleTexture); n != 0 {
		t.Fatalf("expected the fixed mode textures to be destroyed; got %d live", n)
	}

	g := rg.Graph()
	if g.MainNode != g.FrontNode {
		t.Fatalf("expected the main node to be the front node in direct mode")
	}
	if w, h := g.RenderBufferSize(); w != 1280 || h != 720 {
		t.Fatalf("expected the render buffer to follow the display in direct mode; got %dx%d", w, h)
	}
}

func TestRebuildTriggers(t *testing.T) {
	type spec struct {
		change func(src *fakeSource, rg RenderGraph)
		exp    bool
		log    string
	}

	specs := []spec{
		{change: func(src *fakeSource, rg RenderGraph) {}, exp: false},
		{change: func(src *fakeSource, rg RenderGraph) { rg.ForceRebuild() }, exp: true, log: "Forced render graph rebuild!"},
		{change: func(src *fakeSource, rg RenderGraph) {
			src.cameras = append(src.cameras, lookAtOrigin(camera.WithDepth(5)))
		}, exp: true, log: "Camera list changed (1 -> 2 active cameras)"},
		{change: func(src *fakeSource, rg RenderGraph) {
			src.cameras = append(src.cameras, lookAtOrigin(camera.WithMask(0)))
		}, exp: false},
		{change: func(src *fakeSource, rg RenderGraph) { src.cameras[0].SetMask(2) }, exp: true, log: "Camera list changed"},
		{change: func(src *fakeSource, rg RenderGraph) { src.cameras[0].SetDepth(1) }, exp: false},
		{change: func(src *fakeSource, rg RenderGraph) {
			cfg := rg.Config()
			cfg.RenderBufferMaxSize = 512
			rg.SetConfig(cfg)
		}, exp: false},
		{change: func(src *fakeSource, rg RenderGraph) {
			cfg := rg.Config()
			cfg.RenderBufferWidth = 800
			rg.SetConfig(cfg)
		}, exp: true, log: "config changed"},
	}

	for index, s := range specs {
		buf := captureLog(t)
		rg := NewRenderGraph(renderer.NewRecordingBackend())
		src := &fakeSource{cameras: []camera.Camera{lookAtOrigin()}}
		rg.Update(src, gammaDisplay(640, 480))

		s.change(src, rg)
		buf.Reset()
		if got := rg.Update(src, gammaDisplay(640, 480)); got != s.exp {
			t.Fatalf("[spec %d] expected rebuild %t; got %t", index, s.exp, got)
		}
		if s.log != "" && !strings.Contains(buf.String(), s.log) {
			t.Fatalf("[spec %d] expected log to contain %q; got %q", index, s.log, buf.String())
		}
	}
}

func TestShadowNodes(t *testing.T) {
	cam := lookAtOrigin()
	csm := light.NewLight(light.KindDirectional,
		light.WithShadow(1024),
		light.WithAutoMoving(common.AABB{Extents: mgl32.Vec3{10, 10, 10}}, false, cam),
		light.WithCascades(cam, mgl32.Vec3{0.5, 0.25, 0.125}, 0.1))
	spot := light.NewLight(light.KindSpot, light.WithShadow(512))
	point := light.NewLight(light.KindPoint, light.WithShadow(512))
	unshadowed := light.NewLight(light.KindSpot)

	b := renderer.NewRecordingBackend()
	rg := NewRenderGraph(b)
	src := &fakeSource{cameras: []camera.Camera{cam}, lights: []light.Light{csm, spot, point, unshadowed}}
	prepareFrame(t, rg, b, src, gammaDisplay(1280, 720))
	g := rg.Graph()

	type spec struct {
		l        light.Light
		passes   int
		viewport []common.Rect16
		clear    []uint32
	}

	specs := []spec{
		{
			l:      csm,
			passes: 4,
			viewport: []common.Rect16{
				{X: 0, Y: 0, W: 512, H: 512},
				{X: 0, Y: 512, W: 512, H: 512},
				{X: 512, Y: 0, W: 512, H: 512},
				{X: 512, Y: 512, W: 512, H: 512},
			},
			clear: []uint32{0xff0000ff, 0xff7f00ff, 0xffff00ff, 0x00ff00ff},
		},
		{
			l:        spot,
			passes:   1,
			viewport: []common.Rect16{{W: 512, H: 512}},
			clear:    []uint32{0x0000ffff},
		},
	}

	for index, s := range specs {
		info, _ := s.l.Shadow()
		if info.Node == light.NoRef || info.ShadowMap == light.NoRef {
			t.Fatalf("[spec %d] expected shadow references to be set; got %+v", index, info)
		}
		n := g.Nodes[info.Node]
		if n.Depth != info.ShadowMap || len(n.Passes) != s.passes {
			t.Fatalf("[spec %d] expected %d passes into the shadow map; got %d", index, s.passes, len(n.Passes))
		}
		if !g.Targets[info.ShadowMap].Handle().Valid() {
			t.Fatalf("[spec %d] expected the shadow map texture to be created", index)
		}
		for i, p := range n.Passes {
			pass := g.Passes[p]
			if pass.Type != PassShadowMap || pass.Viewport != s.viewport[i] || pass.ClearRGBA != s.clear[i] || pass.Clear != ClearDepth {
				t.Fatalf("[spec %d] unexpected shadow pass %d: %+v", index, i, pass)
			}
		}
		deps := g.Nodes[g.MainNode].Dependencies
		found := false
		for _, d := range deps {
			found = found || d == info.Node
		}
		if !found {
			t.Fatalf("[spec %d] expected the main node to depend on the shadow node", index)
		}
	}

	if info, _ := point.Shadow(); info.Node != light.NoRef {
		t.Fatalf("expected point lights to get no shadow node; got node %d", info.Node)
	}

	nodes := len(g.Nodes)
	rg.Update(src, gammaDisplay(1280, 720))
	if len(g.Nodes) != nodes {
		t.Fatalf("expected no new shadow nodes for known lights; got %d nodes, was %d", len(g.Nodes), nodes)
	}

	rg.ForceRebuild()
	rg.Update(src, gammaDisplay(1280, 720))
	if info, _ := spot.Shadow(); info.Node == light.NoRef || g.Nodes[info.Node].ShadowLight != spot {
		t.Fatalf("expected the rebuilt graph to give the spot light a new shadow node; got %+v", info)
	}
}

func TestPrepareViewsConventions(t *testing.T) {
	type spec struct {
		bottomLeft   bool
		homogeneous  bool
		expRect      common.Rect16
		expFlip      bool
		expProjY     float32
		expZCompress bool
	}

	specs := []spec{
		{bottomLeft: true, homogeneous: true, expRect: common.Rect16{X: 0, Y: 540, W: 960, H: 540}, expFlip: false, expProjY: 1},
		{bottomLeft: false, homogeneous: false, expRect: common.Rect16{X: 0, Y: 0, W: 960, H: 540}, expFlip: true, expProjY: -1, expZCompress: true},
		{bottomLeft: true, homogeneous: false, expRect: common.Rect16{X: 0, Y: 540, W: 960, H: 540}, expFlip: false, expProjY: 1, expZCompress: true},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend(renderer.WithConventions(s.bottomLeft, s.homogeneous))
		rg := NewRenderGraph(b)
		cam := lookAtOrigin(camera.WithViewportRect(common.Rect{X: 0, Y: 0, W: 0.5, H: 0.5}))
		src := &fakeSource{cameras: []camera.Camera{cam}}
		frame := prepareFrame(t, rg, b, src, gammaDisplay(1280, 720))

		g := rg.Graph()
		p := g.Passes[g.FindPassOnNode(g.MainNode, PassOpaque)]
		v, ok := viewRecord(frame, p.ViewID)
		if !ok {
			t.Fatalf("[spec %d] expected view %d to be recorded", index, p.ViewID)
		}
		if v.Rect != s.expRect {
			t.Fatalf("[spec %d] expected view rect %+v; got %+v", index, s.expRect, v.Rect)
		}
		if p.FlipCulling() != s.expFlip || !p.RenderToTexture() {
			t.Fatalf("[spec %d] expected flip culling %t and render to texture; got flags %d", index, s.expFlip, p.Flags)
		}
		if !mgl32.FloatEqualThreshold(v.Projection[5], s.expProjY*p.Projection[5], 1e-5) {
			t.Fatalf("[spec %d] expected projection y scale %f; got %f", index, s.expProjY*p.Projection[5], v.Projection[5])
		}
		compressed := !mgl32.FloatEqualThreshold(v.Projection[10], p.Projection[10], 1e-5)
		if compressed != s.expZCompress {
			t.Fatalf("[spec %d] expected z compression %t; got %t", index, s.expZCompress, compressed)
		}
		if !v.FrameBuffer.Valid() || !v.Touched {
			t.Fatalf("[spec %d] expected the view to render into the main frame buffer and be touched", index)
		}
	}
}

func TestPrepareViewsPanicsOnUnassignedView(t *testing.T) {
	captureLog(t)
	b := renderer.NewRecordingBackend()
	rg := NewRenderGraph(b)
	display := gammaDisplay(640, 480)
	rg.Update(&fakeSource{cameras: []camera.Camera{lookAtOrigin()}}, display)
	rg.PreparePasses(display)
	rg.Graph().Passes[0].ViewID = ViewIDUnassigned

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrUnassignedView) {
			t.Fatalf("expected a panic with ErrUnassignedView; got %v", rec)
		}
	}()
	rg.PrepareViews()
}

func TestPreparePassesFromCamera(t *testing.T) {
	type spec struct {
		mode     camera.ClearMode
		expClear ClearFlags
	}

	specs := []spec{
		{mode: camera.ClearSolidColor, expClear: ClearColor | ClearDepth | ClearStencil},
		{mode: camera.ClearDepthOnly, expClear: ClearDepth | ClearStencil},
		{mode: camera.ClearNothing, expClear: 0},
	}

	for index, s := range specs {
		rg := NewRenderGraph(renderer.NewRecordingBackend())
		cam := lookAtOrigin(
			camera.WithClearMode(s.mode, mgl32.Vec4{1, 0, 0, 1}),
			camera.WithViewportRect(common.Rect{X: 0.5, Y: 0, W: 0.5, H: 1}),
			camera.WithMask(6),
		)
		display := DisplayInfo{Width: 800, Height: 600, ColorSpace: common.ColorSpaceLinear}
		rg.Update(&fakeSource{cameras: []camera.Camera{cam}}, display)
		rg.PreparePasses(display)

		g := rg.Graph()
		clearPass := g.Passes[g.FindPassOnNode(g.MainNode, PassClear)]
		if clearPass.Clear != s.expClear {
			t.Fatalf("[spec %d] expected clear flags %d; got %d", index, s.expClear, clearPass.Clear)
		}
		if clearPass.ClearRGBA != 0xff0000ff {
			t.Fatalf("[spec %d] expected clear color 0xff0000ff; got %#08x", index, clearPass.ClearRGBA)
		}
		exp := common.Rect16{X: 960, Y: 0, W: 960, H: 1080}
		if clearPass.Viewport != exp || clearPass.CameraMask != 6 {
			t.Fatalf("[spec %d] expected viewport %+v and mask 6; got %+v and %d", index, exp, clearPass.Viewport, clearPass.CameraMask)
		}
		if clearPass.ViewProjection != cam.Matrices().ViewProjection {
			t.Fatalf("[spec %d] expected the pass to take the camera view projection", index)
		}
	}
}

func TestBlitKeepsAspect(t *testing.T) {
	type spec struct {
		w, h     int
		expScale mgl32.Vec2
	}

	specs := []spec{
		{w: 1920, h: 1080, expScale: mgl32.Vec2{1, 1}},
		{w: 1000, h: 1000, expScale: mgl32.Vec2{1, 0.5625}},
		{w: 3840, h: 1080, expScale: mgl32.Vec2{0.5, 1}},
	}

	for index, s := range specs {
		rg := NewRenderGraph(renderer.NewRecordingBackend())
		display := gammaDisplay(s.w, s.h)
		rg.Update(&fakeSource{cameras: []camera.Camera{lookAtOrigin()}}, display)
		rg.PreparePasses(display)

		g := rg.Graph()
		quad := g.Passes[g.FindPassOnNode(g.FrontNode, PassFullscreenQuad)]
		got := mgl32.Vec2{quad.View[0], quad.View[5]}
		if !got.ApproxEqualThreshold(s.expScale, 1e-5) {
			t.Fatalf("[spec %d] expected blit scale %v; got %v", index, s.expScale, got)
		}
		if len(g.Blitters) != 1 || g.Blitters[0].Source != g.ColorOutput(g.MainNode) {
			t.Fatalf("[spec %d] expected one blitter reading the main color target", index)
		}
	}
}

func TestScaledModeFollowsDisplay(t *testing.T) {
	buf := captureLog(t)
	b := renderer.NewRecordingBackend()
	rg := NewRenderGraph(b, WithMode(ModeScaled), WithRenderBufferSize(0, 0, 1024))
	src := &fakeSource{cameras: []camera.Camera{lookAtOrigin()}}

	prepareFrame(t, rg, b, src, gammaDisplay(800, 600))
	if w, h := rg.Graph().RenderBufferSize(); w != 800 || h != 600 {
		t.Fatalf("expected an 800x600 render buffer; got %dx%d", w, h)
	}
	first := rg.Graph().TargetHandle(rg.Graph().ColorOutput(rg.Graph().MainNode))

	prepareFrame(t, rg, b, src, gammaDisplay(2048, 1024))
	g := rg.Graph()
	if w, h := g.RenderBufferSize(); w != 1024 || h != 512 {
		t.Fatalf("expected a 1024x512 render buffer; got %dx%d", w, h)
	}
	if !g.Nodes[g.MainNode].AutoScale.Resized {
		t.Fatalf("expected the main node to be flagged as resized")
	}
	if b.IsLive(first) || b.LiveCount(renderer.HandleTexture) != 2 {
		t.Fatalf("expected the render targets to be recreated at the new size")
	}
	if rg.Rebuilds() != 1 {
		t.Fatalf("expected a resize to not rebuild the graph; got %d rebuilds", rg.Rebuilds())
	}
	if !strings.Contains(buf.String(), "Resize render target texture: tex = 1024,512 display = 2048,1024") {
		t.Fatalf("expected the resize to be logged; got %q", buf.String())
	}
}

func TestRenderGroups(t *testing.T) {
	camA := lookAtOrigin(camera.WithMask(1))
	camB := lookAtOrigin(camera.WithMask(2), camera.WithDepth(1))
	spot := light.NewLight(light.KindSpot, light.WithShadow(256))
	rg := NewRenderGraph(renderer.NewRecordingBackend())
	display := gammaDisplay(640, 480)
	rg.Update(&fakeSource{cameras: []camera.Camera{camA, camB}, lights: []light.Light{spot}}, display)
	rg.PreparePasses(display)
	g := rg.Graph()

	type spec struct {
		d        *fakeDrawable
		expTypes []PassType
	}

	specs := []spec{
		{d: &fakeDrawable{cameraMask: 1, shadowMask: common.AllBits}, expTypes: []PassType{PassOpaque, PassShadowMap}},
		{d: &fakeDrawable{cameraMask: 2, shadowMask: common.AllBits}, expTypes: []PassType{PassOpaque, PassShadowMap}},
		{d: &fakeDrawable{cameraMask: 3, shadowMask: common.AllBits}, expTypes: []PassType{PassOpaque, PassOpaque, PassShadowMap}},
		{d: &fakeDrawable{transparent: true, cameraMask: 2, shadowMask: common.AllBits}, expTypes: []PassType{PassTransparent}},
		{d: &fakeDrawable{cameraMask: 1, shadowMask: common.AllBits}, expTypes: []PassType{PassOpaque, PassShadowMap}},
	}

	drawables := make([]Drawable, len(specs))
	for i, s := range specs {
		drawables[i] = s.d
	}
	if n := rg.Groups().AssignRenderGroups(g, drawables); n != 4 {
		t.Fatalf("expected 4 distinct groups; got %d", n)
	}

	for index, s := range specs {
		group := rg.Groups().Group(s.d.group)
		counts := map[PassType]int{}
		for _, p := range group.Passes {
			counts[g.Passes[p].Type]++
		}
		exp := map[PassType]int{}
		for _, pt := range s.expTypes {
			exp[pt]++
		}
		if len(counts) != len(exp) {
			t.Fatalf("[spec %d] expected pass types %v; got %v", index, exp, counts)
		}
		for pt, n := range exp {
			if counts[pt] != n {
				t.Fatalf("[spec %d] expected %d %s pass(es); got %d", index, n, pt, counts[pt])
			}
		}
	}
	if specs[0].d.group != specs[4].d.group {
		t.Fatalf("expected equal keys to share a group")
	}

	gen := rg.Groups().Generation()
	rg.ForceRebuild()
	rg.Update(&fakeSource{cameras: []camera.Camera{camA, camB}, lights: []light.Light{spot}}, display)
	if rg.Groups().Len() != 0 || rg.Groups().Generation() == gen {
		t.Fatalf("expected a rebuild to invalidate the group cache")
	}
}

func TestComputeSortDepthOrdersNearToFar(t *testing.T) {
	cam := lookAtOrigin()
	p := newPass(0, PassTransparent, SortZLess, common.Rect16{W: 1, H: 1}, common.AllBits)
	p.ViewProjection = cam.Matrices().ViewProjection

	type spec struct {
		near, far mgl32.Vec3
	}

	specs := []spec{
		{near: mgl32.Vec3{0, 0, 0}, far: mgl32.Vec3{0, 0, 50}},
		{near: mgl32.Vec3{1, 1, -5}, far: mgl32.Vec3{1, 1, 0}},
		{near: mgl32.Vec3{0, 0, -9}, far: mgl32.Vec3{-3, 2, 80}},
	}

	for index, s := range specs {
		n := p.ComputeSortDepth(s.near.Vec4(1))
		f := p.ComputeSortDepth(s.far.Vec4(1))
		if n >= f {
			t.Fatalf("[spec %d] expected near key < far key; got %d >= %d", index, n, f)
		}
	}
}

func TestScreenToWorldRoundTrip(t *testing.T) {
	type spec struct {
		mode  Mode
		w, h  int
		point mgl32.Vec3
	}

	specs := []spec{
		{mode: ModeFixed, w: 1280, h: 720, point: mgl32.Vec3{1, 2, 0}},
		{mode: ModeFixed, w: 1000, h: 1000, point: mgl32.Vec3{-2, 0.5, 3}},
		{mode: ModeScaled, w: 800, h: 600, point: mgl32.Vec3{0.25, -1, 10}},
		{mode: ModeDirect, w: 640, h: 480, point: mgl32.Vec3{3, 1, -2}},
	}

	for index, s := range specs {
		captureLog(t)
		rg := NewRenderGraph(renderer.NewRecordingBackend(), WithMode(s.mode))
		cam := lookAtOrigin()
		display := gammaDisplay(s.w, s.h)
		rg.Update(&fakeSource{cameras: []camera.Camera{cam}}, display)
		rg.PreparePasses(display)
		g := rg.Graph()

		screen, ok := g.WorldSpaceToScreenSpace(s.point, ScreenToWorldMainCamera)
		if !ok {
			t.Fatalf("[spec %d] expected a main camera pick chain", index)
		}
		if screen.X() < 0 || screen.X() > float32(s.w) || screen.Y() < 0 || screen.Y() > float32(s.h) {
			t.Fatalf("[spec %d] expected the point to land on screen; got %v", index, screen)
		}
		back, _ := g.ScreenSpaceToWorldSpace(screen.Vec2(), screen.Z(), ScreenToWorldMainCamera)
		if !back.ApproxEqualThreshold(s.point, 1e-2) {
			t.Fatalf("[spec %d] expected round trip to %v; got %v", index, s.point, back)
		}

		origin, dir, _ := g.ScreenSpaceToWorldSpaceRay(screen.Vec2(), ScreenToWorldMainCamera)
		toPoint := s.point.Sub(origin).Normalize()
		if !dir.ApproxEqualThreshold(toPoint, 1e-2) {
			t.Fatalf("[spec %d] expected the pick ray to point at %v; got %v", index, toPoint, dir)
		}
	}
}

func TestScreenSpaceToWorldSpacePos(t *testing.T) {
	cam := lookAtOrigin()
	rg := NewRenderGraph(renderer.NewRecordingBackend(), WithMode(ModeDirect))
	display := gammaDisplay(640, 480)
	rg.Update(&fakeSource{cameras: []camera.Camera{cam}}, display)
	rg.PreparePasses(display)

	if DefaultCamera([]camera.Camera{lookAtOrigin(camera.WithDepth(3)), cam}) != cam {
		t.Fatalf("expected the lowest depth camera to be the default camera")
	}

	pos, ok := rg.Graph().ScreenSpaceToWorldSpacePos(mgl32.Vec2{320, 240}, 10, cam, ScreenToWorldMainCamera)
	if !ok || !pos.ApproxEqualThreshold(mgl32.Vec3{0, 0, 0}, 1e-2) {
		t.Fatalf("expected the screen center 10 units in front of the camera to be the origin; got %v", pos)
	}

	hiDPI := DisplayInfo{Width: 640, Height: 480, FramebufferWidth: 1280, FramebufferHeight: 960}
	if px := AdjustInputPositionToPixels(mgl32.Vec2{100, 50}, hiDPI); px != (mgl32.Vec2{200, 100}) {
		t.Fatalf("expected points to scale to pixels; got %v", px)
	}
}

func TestWarnCameraSetup(t *testing.T) {
	full := common.Rect{W: 1, H: 1}
	left := common.Rect{W: 0.5, H: 1}
	right := common.Rect{X: 0.5, W: 0.5, H: 1}
	solid := func(r common.Rect, depth float32) camera.Camera {
		return lookAtOrigin(camera.WithViewportRect(r), camera.WithDepth(depth))
	}

	type spec struct {
		cams []camera.Camera
		exp  int
	}

	specs := []spec{
		{cams: []camera.Camera{solid(full, 0), solid(full, 1)}, exp: 1},
		{cams: []camera.Camera{solid(full, 0), solid(left, 1), solid(right, 2)}, exp: 1},
		{cams: []camera.Camera{solid(full, 0), solid(left, 1)}, exp: 0},
		{cams: []camera.Camera{
			lookAtOrigin(camera.WithClearMode(camera.ClearNothing, mgl32.Vec4{}), camera.WithDepth(0)),
			solid(full, 1),
		}, exp: 0},
		{cams: []camera.Camera{solid(left, 0), solid(right, 0)}, exp: 1},
	}

	for index, s := range specs {
		captureLog(t)
		if n := warnCameraSetup(collectCameras(s.cams)); n != s.exp {
			t.Fatalf("[spec %d] expected %d warning(s); got %d", index, s.exp, n)
		}
	}
}

func TestGraphTable(t *testing.T) {
	rg := NewRenderGraph(renderer.NewRecordingBackend())
	display := gammaDisplay(640, 480)
	rg.Update(&fakeSource{cameras: []camera.Camera{lookAtOrigin()}}, display)
	rg.PreparePasses(display)

	out := rg.Graph().Table()
	for _, s := range []string{"main", "front", "opaque", "fullscreen", "z-less", "2 targets"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected the table to contain %q; got\n%s", s, out)
		}
	}
}

func TestParseMode(t *testing.T) {
	type spec struct {
		in     string
		exp    Mode
		expErr bool
	}

	specs := []spec{
		{in: "fixed", exp: ModeFixed},
		{in: " Scaled ", exp: ModeScaled},
		{in: "DIRECT", exp: ModeDirect},
		{in: "stretched", expErr: true},
	}

	for index, s := range specs {
		m, err := ParseMode(s.in)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error for %q", index, s.in)
			}
			continue
		}
		if err != nil || m != s.exp {
			t.Fatalf("[spec %d] expected %s; got %s (%v)", index, s.exp, m, err)
		}
	}

	a := DefaultConfig()
	b := a
	b.RenderBufferMaxSize = 1
	if !a.Equal(b) {
		t.Fatalf("expected configs differing only in max size to be equal")
	}
}
