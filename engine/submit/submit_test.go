package submit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

// testGraph serves a hand built graph. Only the methods submission calls are implemented.
type testGraph struct {
	rendergraph.RenderGraph
	g      *rendergraph.Graph
	groups *rendergraph.GroupCache
}

func (t *testGraph) Graph() *rendergraph.Graph { return t.g }

func (t *testGraph) Groups() *rendergraph.GroupCache { return t.groups }

func (t *testGraph) pass(view uint16) *rendergraph.Pass { return &t.g.Passes[view] }

// newTestGraph creates one pass per type with view ids in order and identity transforms, so
// the frustum of every pass is the [-1, 1] cube.
func newTestGraph(types ...rendergraph.PassType) *testGraph {
	g := rendergraph.NewGraph()
	node := g.AddNode("main")
	for i, t := range types {
		g.AddPass(rendergraph.Pass{
			Node:           node,
			Type:           t,
			ViewID:         uint16(i),
			Projection:     mgl32.Ident4(),
			View:           mgl32.Ident4(),
			ViewProjection: mgl32.Ident4(),
			Viewport:       common.Rect16{W: 100, H: 100},
			TargetRect:     common.Rect16{W: 100, H: 100},
			Frustum:        common.FrustumFromMatrix(mgl32.Ident4()),
			CameraMask:     common.AllBits,
			ShadowMask:     common.AllBits,
			Cascade:        rendergraph.NoIndex,
			BlitSource:     rendergraph.NoIndex,
		})
	}
	return &testGraph{g: g, groups: rendergraph.NewGroupCache()}
}

func makeQuad() *mesh.Data {
	white := [4]float32{1, 1, 1, 1}
	vertices := []mesh.SimpleVertex{
		{Position: [3]float32{-0.25, -0.25, 0}, Color: white},
		{Position: [3]float32{0.25, -0.25, 0}, Color: white},
		{Position: [3]float32{0.25, 0.25, 0}, Color: white},
		{Position: [3]float32{-0.25, 0.25, 0}, Color: white},
	}
	return mesh.NewSimpleData("quad", vertices, []uint16{0, 1, 2, 0, 2, 3})
}

func makeLitTriangle() *mesh.Data {
	vertices := []mesh.LitVertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}, Tangent: [3]float32{1, 0, 0}},
		{Position: [3]float32{0.2, 0, 0}, Normal: [3]float32{0, 0, 1}, Tangent: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 0.2, 0}, Normal: [3]float32{0, 0, 1}, Tangent: [3]float32{1, 0, 0}},
	}
	return mesh.NewLitData("triangle", vertices, []uint16{0, 1, 2})
}

func makeObject(transparent bool, options ...game_object.GameObjectBuilderOption) game_object.GameObject {
	m := mesh.NewSimpleMaterial()
	m.Transparent = transparent
	base := []game_object.GameObjectBuilderOption{
		game_object.WithMesh(makeQuad()),
		game_object.WithSimpleMaterial(m),
	}
	return game_object.NewGameObject(append(base, options...)...)
}

func makeParticles() *mesh.DynamicMesh {
	dm := mesh.NewDynamicMesh(mesh.KindSimple, 4, 6, false)
	copy(dm.Simple, makeQuad().Simple)
	copy(dm.Indices, []uint16{0, 1, 2, 0, 2, 3})
	dm.NumVertices = 4
	dm.NumIndices = 6
	return dm
}

// submitOnce runs the frame stages submission depends on and submits one frame.
func submitOnce(t *testing.T, b renderer.RecordingBackend, sub Submitter, sc scene.Scene, g *testGraph) renderer.FrameRecord {
	t.Helper()
	sc.UpdateBounds()
	g.groups.AssignRenderGroups(g.g, sc.Drawables())
	sc.AssignChunks()
	if _, err := sub.SubmitFrame(context.Background(), Frame{Graph: g, Scene: sc}); err != nil {
		t.Fatalf("expected the frame to submit; got %v", err)
	}
	return b.LastFrame()
}

func newSubmitter(t *testing.T, b renderer.Backend, options ...SubmitterBuilderOption) *submitter {
	t.Helper()
	sub, err := NewSubmitter(b, options...)
	if err != nil {
		t.Fatalf("expected a submitter; got %v", err)
	}
	t.Cleanup(sub.Release)
	return sub.(*submitter)
}

func TestSubmitPassTypes(t *testing.T) {
	b := renderer.NewRecordingBackend()
	sub := newSubmitter(t, b, WithWorkers(2))
	g := newTestGraph(rendergraph.PassZOnly, rendergraph.PassOpaque, rendergraph.PassShadowMap, rendergraph.PassTransparent)
	sc := scene.NewScene("passes", scene.WithBoundsWorkers(1), scene.WithObjects(
		makeObject(false),
		makeObject(true, game_object.WithPosition(0.1, 0, 0.5)),
	))
	defer sc.Close()

	frame := submitOnce(t, b, sub, sc, g)
	p := sub.Programs()

	type spec struct {
		view       uint16
		expProgram renderer.Handle
		expState   uint64
		expDepth   uint32
	}

	specs := []spec{
		{view: 0, expProgram: p.Depth, expState: renderer.DepthOnlyState},
		{view: 1, expProgram: p.Simple, expState: mesh.MaterialState(false, false, false)},
		{view: 2, expProgram: p.Depth, expState: renderer.FlipCulling(renderer.DepthOnlyState)},
		{
			view:       3,
			expProgram: p.Simple,
			expState:   mesh.MaterialState(false, false, true),
			expDepth:   g.pass(3).ComputeSortDepth(mgl32.Vec4{0.1, 0, 0.5, 1}),
		},
	}

	for index, s := range specs {
		draws := frame.DrawsInView(s.view)
		if len(draws) != 1 {
			t.Fatalf("[spec %d] expected 1 draw in view %d; got %d", index, s.view, len(draws))
		}
		d := draws[0]
		if d.Program != s.expProgram || d.State != s.expState || d.Depth != s.expDepth {
			t.Fatalf("[spec %d] expected program %v state %x depth %d; got %v %x %d", index, s.expProgram, s.expState, s.expDepth, d.Program, d.State, d.Depth)
		}
	}

	stats := sub.LastStats()
	if stats.Draws != 4 || stats.Chunks != 2 {
		t.Fatalf("expected 4 draws from 2 chunks; got %+v", stats)
	}
	if bias := frame.DrawsInView(0)[0].Uniforms[sub.u.bias]; len(bias) != 1 || bias[0] != (mgl32.Vec4{}) {
		t.Fatalf("expected a zero depth bias; got %v", bias)
	}
}

func TestSubmitCulling(t *testing.T) {
	type spec struct {
		options    []game_object.GameObjectBuilderOption
		expOpaque  int
		expShadow  int
		expCulled  int
		boxCulling bool
	}

	specs := []spec{
		{expOpaque: 1, expShadow: 1},
		{options: []game_object.GameObjectBuilderOption{game_object.WithPosition(10, 0, 0)}, expCulled: 2},
		{options: []game_object.GameObjectBuilderOption{game_object.WithPosition(0, -5, 0)}, expCulled: 2, boxCulling: true},
		{options: []game_object.GameObjectBuilderOption{game_object.WithPosition(0.9, 0.9, 0)}, expOpaque: 1, expShadow: 1, boxCulling: true},
		{options: []game_object.GameObjectBuilderOption{game_object.WithShadowCasting(game_object.ShadowsOff)}, expOpaque: 1},
		{options: []game_object.GameObjectBuilderOption{game_object.WithShadowCasting(game_object.ShadowsOnly)}, expShadow: 1},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend()
		sub := newSubmitter(t, b, WithWorkers(1), WithBoxCulling(s.boxCulling))
		g := newTestGraph(rendergraph.PassOpaque, rendergraph.PassShadowMap)
		sc := scene.NewScene("culling", scene.WithBoundsWorkers(1), scene.WithObjects(makeObject(false, s.options...)))

		frame := submitOnce(t, b, sub, sc, g)
		sc.Close()

		opaque, shadow := len(frame.DrawsInView(0)), len(frame.DrawsInView(1))
		if opaque != s.expOpaque || shadow != s.expShadow {
			t.Fatalf("[spec %d] expected %d opaque and %d shadow draws; got %d and %d", index, s.expOpaque, s.expShadow, opaque, shadow)
		}
		stats := sub.LastStats()
		if stats.Culled+stats.ChunksCulled != s.expCulled {
			t.Fatalf("[spec %d] expected %d culled; got %+v", index, s.expCulled, stats)
		}
	}
}

func TestSubmitFlipCulling(t *testing.T) {
	type spec struct {
		passType rendergraph.PassType
		flip     bool
		expState uint64
	}

	opaque := mesh.MaterialState(false, false, false)
	specs := []spec{
		{passType: rendergraph.PassOpaque, flip: false, expState: opaque},
		{passType: rendergraph.PassOpaque, flip: true, expState: renderer.FlipCulling(opaque)},
		{passType: rendergraph.PassZOnly, flip: true, expState: renderer.FlipCulling(renderer.DepthOnlyState)},
		{passType: rendergraph.PassShadowMap, flip: true, expState: renderer.DepthOnlyState},
		{passType: rendergraph.PassShadowMap, flip: false, expState: renderer.FlipCulling(renderer.DepthOnlyState)},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend()
		sub := newSubmitter(t, b, WithWorkers(0))
		g := newTestGraph(s.passType)
		if s.flip {
			g.pass(0).Flags |= rendergraph.PassFlagFlipCulling
		}
		sc := scene.NewScene("flip", scene.WithBoundsWorkers(1), scene.WithObjects(makeObject(false)))

		frame := submitOnce(t, b, sub, sc, g)
		sc.Close()

		draws := frame.DrawsInView(0)
		if len(draws) != 1 || draws[0].State != s.expState {
			t.Fatalf("[spec %d] expected one draw with state %x; got %d draws", index, s.expState, len(draws))
		}
	}
}

func TestSubmitParticlesTransientMemory(t *testing.T) {
	type spec struct {
		budget     int
		strict     bool
		expDraws   int
		expSkipped int
		expPanic   bool
	}

	specs := []spec{
		{budget: 4 << 20, expDraws: 2},
		{budget: 16, expSkipped: 2},
		{budget: 16, strict: true, expPanic: true},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend(renderer.WithTransientBudget(s.budget, 1024))
		sub := newSubmitter(t, b, WithWorkers(1), WithStrict(s.strict))
		g := newTestGraph(rendergraph.PassOpaque, rendergraph.PassShadowMap)
		obj := game_object.NewGameObject(
			game_object.WithParticles(makeParticles()),
			game_object.WithSimpleMaterial(mesh.NewSimpleMaterial()),
		)
		sc := scene.NewScene("particles", scene.WithBoundsWorkers(1), scene.WithObjects(obj))

		panicked := func() (p bool) {
			defer func() {
				if r := recover(); r != nil {
					p = true
				}
			}()
			submitOnce(t, b, sub, sc, g)
			return false
		}()
		sc.Close()

		if panicked != s.expPanic {
			t.Fatalf("[spec %d] expected panic %v; got %v", index, s.expPanic, panicked)
		}
		if s.expPanic {
			continue
		}
		frame := b.LastFrame()
		if len(frame.Draws) != s.expDraws {
			t.Fatalf("[spec %d] expected %d draws; got %d", index, s.expDraws, len(frame.Draws))
		}
		for _, d := range frame.Draws {
			if !d.Transient || d.IndexCount != 6 || d.VertexCount != 4 {
				t.Fatalf("[spec %d] expected a transient draw of 6 indices and 4 vertices; got %+v", index, d)
			}
		}
		if stats := sub.LastStats(); stats.Skipped != s.expSkipped {
			t.Fatalf("[spec %d] expected %d skipped; got %d", index, s.expSkipped, stats.Skipped)
		}
		if s.expDraws > 0 && frame.TransientIndex != 6 {
			t.Fatalf("[spec %d] expected one shared allocation of 6 indices; got %d", index, frame.TransientIndex)
		}
	}
}

func TestSubmitSkinned(t *testing.T) {
	weights := make([]mesh.SkinnedVertex, 4)
	for i := range weights {
		weights[i] = mesh.SkinnedVertex{BoneWeight: [4]float32{1, 0, 0, 0}}
	}
	bones := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0.1, 0, 0)}

	type spec struct {
		gpuSkinning bool
		canUseGPU   bool
		canUseCPU   bool
		expDraws    int
		expStreams  uint8
		expSkinned  bool
	}

	specs := []spec{
		{gpuSkinning: true, canUseGPU: true, expDraws: 1, expStreams: 2, expSkinned: true},
		{gpuSkinning: false, canUseGPU: true},
		{gpuSkinning: true, canUseCPU: true},
		{gpuSkinning: false, canUseCPU: true, expDraws: 1, expStreams: 1},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend()
		sub := newSubmitter(t, b, WithWorkers(1), WithGPUSkinning(s.gpuSkinning))
		g := newTestGraph(rendergraph.PassOpaque)

		cpu := mesh.NewDynamicMesh(mesh.KindSimple, 4, 6, false)
		copy(cpu.Simple, makeQuad().Simple)
		copy(cpu.Indices, []uint16{0, 1, 2, 0, 2, 3})
		cpu.NumVertices, cpu.NumIndices = 4, 6

		skin := &game_object.Skin{Bones: bones, Weights: weights, CanUseGPU: s.canUseGPU, CanUseCPU: s.canUseCPU, SkinnedCPU: cpu}
		obj := makeObject(false, game_object.WithSkin(skin))
		sc := scene.NewScene("skinned", scene.WithBoundsWorkers(1), scene.WithObjects(obj))

		frame := submitOnce(t, b, sub, sc, g)
		sc.Close()

		if len(frame.Draws) != s.expDraws {
			t.Fatalf("[spec %d] expected %d draws; got %d", index, s.expDraws, len(frame.Draws))
		}
		if s.expDraws == 0 {
			if sub.LastStats().Skipped != 1 {
				t.Fatalf("[spec %d] expected the object to be skipped; got %+v", index, sub.LastStats())
			}
			continue
		}
		d := frame.Draws[0]
		if d.Streams != s.expStreams {
			t.Fatalf("[spec %d] expected %d vertex streams; got %d", index, s.expStreams, d.Streams)
		}
		expProgram := sub.Programs().Simple
		if s.expSkinned {
			expProgram = sub.Programs().SimpleSkinned
			if got := d.Uniforms[sub.u.bones]; len(got) != 8 {
				t.Fatalf("[spec %d] expected 2 bone matrices; got %d vectors", index, len(got))
			}
		}
		if d.Program != expProgram {
			t.Fatalf("[spec %d] expected program %v; got %v", index, expProgram, d.Program)
		}
	}
}

func TestSubmitLitPlaceholderShadows(t *testing.T) {
	b := renderer.NewRecordingBackend()
	sub := newSubmitter(t, b, WithWorkers(0))
	g := newTestGraph(rendergraph.PassOpaque)
	obj := game_object.NewGameObject(
		game_object.WithMesh(makeLitTriangle()),
		game_object.WithLitMaterial(mesh.NewLitMaterial()),
	)
	sc := scene.NewScene("lit", scene.WithBoundsWorkers(1), scene.WithObjects(obj))
	defer sc.Close()

	frame := submitOnce(t, b, sub, sc, g)
	if len(frame.Draws) != 1 {
		t.Fatalf("expected one lit draw; got %d", len(frame.Draws))
	}
	d := frame.Draws[0]
	if d.Program != sub.Programs().Lit {
		t.Fatalf("expected the lit program; got %v", d.Program)
	}

	bound := map[uint8]renderer.Handle{}
	for _, tb := range d.Textures {
		bound[tb.Stage] = tb.Texture
	}
	for _, stage := range []uint8{stageShadow0, stageShadow1, stageShadowCSM} {
		if bound[stage] != sub.noShadow {
			t.Fatalf("expected the shadow placeholder at stage %d; got %v", stage, bound[stage])
		}
	}
	if bound[stageNormal] != sub.Defaults().UpTexture || bound[stageAlbedo] != sub.Defaults().WhiteTexture {
		t.Fatalf("expected placeholder material textures; got %v", bound)
	}
	if n := d.Uniforms[sub.u.numLights]; len(n) != 1 || n[0] != (mgl32.Vec4{}) {
		t.Fatalf("expected no lights; got %v", n)
	}
}

func TestSubmitCheckState(t *testing.T) {
	b := renderer.NewRecordingBackend(renderer.WithBackBufferSize(640, 480))
	sub := newSubmitter(t, b, WithWorkers(0))
	g := newTestGraph()
	sc := scene.NewScene("empty", scene.WithBoundsWorkers(1))
	defer sc.Close()

	sc.UpdateBounds()
	display := rendergraph.DisplayInfo{Width: 640, Height: 480}
	if _, err := sub.SubmitFrame(context.Background(), Frame{Graph: g, Scene: sc, Display: display}); err != nil {
		t.Fatalf("expected the frame to submit; got %v", err)
	}

	frame := b.LastFrame()
	if len(frame.Views) != 1 {
		t.Fatalf("expected view 0 to be set up; got %d views", len(frame.Views))
	}
	v := frame.Views[0]
	if v.ID != 0 || !v.Touched || v.ClearFlags != renderer.ClearColor|renderer.ClearDepth || v.Rect.W != 640 || v.Rect.H != 480 {
		t.Fatalf("expected view 0 cleared and touched at 640x480; got %+v", v)
	}
}

func TestSubmitCanceled(t *testing.T) {
	b := renderer.NewRecordingBackend()
	sub := newSubmitter(t, b, WithWorkers(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.SubmitFrame(ctx, Frame{Graph: newTestGraph()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled; got %v", err)
	}
}

func TestSubmitReleasesUnusedMeshes(t *testing.T) {
	b := renderer.NewRecordingBackend()
	sub := newSubmitter(t, b, WithWorkers(1))
	g := newTestGraph(rendergraph.PassOpaque)
	obj := makeObject(false)
	sc := scene.NewScene("sweep", scene.WithBoundsWorkers(1), scene.WithObjects(obj))
	defer sc.Close()

	submitOnce(t, b, sub, sc, g)
	if n := b.LiveCount(renderer.HandleVertexBuffer); n != 1 {
		t.Fatalf("expected 1 vertex buffer after the first frame; got %d", n)
	}

	sc.Remove(obj.ID())
	submitOnce(t, b, sub, sc, g)
	if n := b.LiveCount(renderer.HandleVertexBuffer); n != 0 {
		t.Fatalf("expected the vertex buffer to be released; got %d", n)
	}
}

func TestWorkerClamp(t *testing.T) {
	type spec struct {
		maxEncoders int
		workers     int
		expWorkers  int
	}

	specs := []spec{
		{maxEncoders: 8, workers: 3, expWorkers: 3},
		{maxEncoders: 3, workers: 8, expWorkers: 2},
		{maxEncoders: 1, workers: 4, expWorkers: 0},
	}

	for index, s := range specs {
		b := renderer.NewRecordingBackend(renderer.WithMaxEncoders(s.maxEncoders))
		sub := newSubmitter(t, b, WithWorkers(s.workers))
		if sub.Workers() != s.expWorkers {
			t.Fatalf("[spec %d] expected %d workers; got %d", index, s.expWorkers, sub.Workers())
		}
	}
}

func TestRunOnSlotsRaisesTaskPanic(t *testing.T) {
	type spec struct {
		workers int
	}

	specs := []spec{
		{workers: 0},
		{workers: 2},
	}

	for index, s := range specs {
		sub := newSubmitter(t, renderer.NewRecordingBackend(renderer.WithMaxEncoders(8)), WithWorkers(s.workers))
		var done atomic.Int32
		task := func(_ *slot, i int) {
			if i == 3 {
				panic("encode failed")
			}
			done.Add(1)
		}

		func() {
			defer func() {
				if r := recover(); r != "encode failed" {
					t.Fatalf("[spec %d] expected the task panic on the calling goroutine; got %v", index, r)
				}
			}()
			sub.runOnSlots(6, task)
		}()

		if s.workers > 0 && done.Load() != 5 {
			t.Fatalf("[spec %d] expected the other tasks to finish; got %d", index, done.Load())
		}

		// Every slot must have been handed back.
		done.Store(0)
		sub.runOnSlots(3, func(_ *slot, _ int) { done.Add(1) })
		if done.Load() != 3 {
			t.Fatalf("[spec %d] expected 3 tasks after the panic; got %d", index, done.Load())
		}
	}
}

func TestLineQuad(t *testing.T) {
	type spec struct {
		p0, p1    mgl32.Vec3
		zeroToOne bool
		expOK     bool
		exp0      mgl32.Vec3
		exp2      mgl32.Vec3
	}

	specs := []spec{
		{p0: mgl32.Vec3{0, 0, 0}, p1: mgl32.Vec3{0.5, 0, 0}, expOK: true, exp0: mgl32.Vec3{-0.05, 0.1, 0}, exp2: mgl32.Vec3{0.55, -0.1, 0}},
		{p0: mgl32.Vec3{0, 0, 0}, p1: mgl32.Vec3{2, 0, 0}, expOK: true, exp0: mgl32.Vec3{-0.05, 0.1, 0}, exp2: mgl32.Vec3{1.05, -0.1, 0}},
		{p0: mgl32.Vec3{5, 0, 0}, p1: mgl32.Vec3{6, 0, 0}},
		{p0: mgl32.Vec3{0.3, 0.3, 0}, p1: mgl32.Vec3{0.3, 0.3, 0}},
		{p0: mgl32.Vec3{0, 0, -0.5}, p1: mgl32.Vec3{0.5, 0, -0.5}, expOK: true, exp0: mgl32.Vec3{-0.05, 0.1, -0.5}, exp2: mgl32.Vec3{0.55, -0.1, -0.5}},
		{p0: mgl32.Vec3{0, 0, -0.5}, p1: mgl32.Vec3{0.5, 0, -0.5}, zeroToOne: true},
	}

	color := mgl32.Vec4{1, 0, 0, 1}
	for index, s := range specs {
		quad, ok := lineQuad(s.p0, s.p1, color, mgl32.Vec2{0.1, 0.1}, mgl32.Ident4(), s.zeroToOne)
		if ok != s.expOK {
			t.Fatalf("[spec %d] expected ok %v; got %v", index, s.expOK, ok)
		}
		if !ok {
			continue
		}
		if got := mgl32.Vec3(quad[0].Position); !got.ApproxEqualThreshold(s.exp0, eps) {
			t.Fatalf("[spec %d] expected vertex 0 at %v; got %v", index, s.exp0, got)
		}
		if got := mgl32.Vec3(quad[2].Position); !got.ApproxEqualThreshold(s.exp2, eps) {
			t.Fatalf("[spec %d] expected vertex 2 at %v; got %v", index, s.exp2, got)
		}
		if quad[0].TexCoord[1] != 1 || quad[1].TexCoord[1] != -1 || quad[1].Color != [4]float32(color) {
			t.Fatalf("[spec %d] expected edge coordinates and color on the quad; got %+v", index, quad)
		}
	}
}

func TestSubmitGizmos(t *testing.T) {
	b := renderer.NewRecordingBackend()
	sub := newSubmitter(t, b, WithWorkers(0))
	g := newTestGraph(rendergraph.PassOpaque, rendergraph.PassShadowMap)
	// a rotated view keeps every axis from projecting to a point
	g.pass(0).View = mgl32.HomogRotate3DY(0.5).Mul4(mgl32.HomogRotate3DX(0.5))
	obj := makeObject(false, game_object.WithGizmos(game_object.GizmoTransform))
	sc := scene.NewScene("gizmos", scene.WithBoundsWorkers(1), scene.WithObjects(obj))
	defer sc.Close()

	frame := submitOnce(t, b, sub, sc, g)

	var lines []renderer.DrawRecord
	for _, d := range frame.DrawsInView(0) {
		if d.Program == sub.Programs().Line {
			lines = append(lines, d)
		}
	}
	if len(lines) != 1 || lines[0].State != renderer.LineState || !lines[0].Transient {
		t.Fatalf("expected one transient line draw in the opaque view; got %d", len(lines))
	}
	if lines[0].IndexCount != 18 || sub.LastStats().Lines != 3 {
		t.Fatalf("expected 3 transform axes; got %d indices and %d lines", lines[0].IndexCount, sub.LastStats().Lines)
	}
	for _, d := range frame.DrawsInView(1) {
		if d.Program == sub.Programs().Line {
			t.Fatalf("expected no gizmo lines in the shadow map view")
		}
	}
}
