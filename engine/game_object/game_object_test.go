package game_object

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func makeQuad() *mesh.Data {
	vertices := []mesh.SimpleVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{1, 1, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	return mesh.NewSimpleData("quad", vertices, []uint16{0, 1, 2, 0, 2, 3})
}

func makeLitQuad() *mesh.Data {
	vertices := []mesh.LitVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{1, 1, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	return mesh.NewLitData("lit quad", vertices, []uint16{0, 1, 2, 0, 2, 3})
}

func expectPanic(t *testing.T, index int, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("[spec %d] expected a panic", index)
		}
	}()
	fn()
}

func TestNewGameObjectValidation(t *testing.T) {
	type spec struct {
		options []GameObjectBuilderOption
	}

	dyn := mesh.NewDynamicMesh(mesh.KindSimple, 4, 6, false)
	specs := []spec{
		{[]GameObjectBuilderOption{WithSimpleMaterial(mesh.NewSimpleMaterial())}},
		{[]GameObjectBuilderOption{WithMesh(makeQuad())}},
		{[]GameObjectBuilderOption{WithMesh(makeQuad()), WithDynamicMesh(dyn), WithSimpleMaterial(mesh.NewSimpleMaterial())}},
		{[]GameObjectBuilderOption{WithMesh(makeQuad()), WithLitMaterial(mesh.NewLitMaterial())}},
		{[]GameObjectBuilderOption{WithMesh(makeQuad()), WithSimpleMaterial(mesh.NewSimpleMaterial()), WithSkin(nil)}},
	}

	for index, s := range specs {
		expectPanic(t, index, func() { NewGameObject(s.options...) })
	}
}

func TestDefaults(t *testing.T) {
	obj := NewGameObject(WithMesh(makeLitQuad()), WithLitMaterial(mesh.NewLitMaterial()))

	if !obj.Enabled() || obj.Kind() != KindMesh || !obj.Lit() || obj.Transparent() {
		t.Fatalf("expected an enabled opaque lit mesh; got enabled=%v kind=%s lit=%v transparent=%v", obj.Enabled(), obj.Kind(), obj.Lit(), obj.Transparent())
	}
	if obj.CameraMask() != common.AllBits || obj.ShadowMask() != common.AllBits {
		t.Fatalf("expected all bits masks; got %x %x", obj.CameraMask(), obj.ShadowMask())
	}
	if _, ok := obj.LightMask(); ok {
		t.Fatalf("expected no light mask")
	}
	if obj.LightingRef() != lighting.NoRef || obj.RenderGroup() != rendergraph.NoGroup {
		t.Fatalf("expected unassigned refs; got %d %d", obj.LightingRef(), obj.RenderGroup())
	}
	if start, count := obj.IndexRange(); start != 0 || count != -1 {
		t.Fatalf("expected the full index range; got %d %d", start, count)
	}
}

func TestTransform(t *testing.T) {
	type spec struct {
		obj      GameObject
		point    mgl32.Vec3
		expPoint mgl32.Vec3
	}

	rotated := NewGameObject(WithMesh(makeQuad()), WithSimpleMaterial(mesh.NewSimpleMaterial()))
	rotated.SetRotation(0, 0, math.Pi/2)

	moved := NewGameObject(WithMesh(makeQuad()), WithSimpleMaterial(mesh.NewSimpleMaterial()), WithScale(2, 2, 2))
	moved.SetPosition(1, 2, 3)

	specs := []spec{
		{rotated, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{moved, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{3, 2, 3}},
		{moved, mgl32.Vec3{}, mgl32.Vec3{1, 2, 3}},
	}

	for index, s := range specs {
		got := common.TransformPoint(s.obj.World(), s.point)
		if !got.ApproxEqualThreshold(s.expPoint, eps) {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.expPoint, got)
		}
	}
}

func TestUpdateBounds(t *testing.T) {
	type spec struct {
		obj       GameObject
		expCenter mgl32.Vec3
		expRadius float32
		expMin    mgl32.Vec3
		expMax    mgl32.Vec3
	}

	scaled := NewGameObject(WithMesh(makeQuad()), WithSimpleMaterial(mesh.NewSimpleMaterial()),
		WithPosition(10, 0, 0), WithScale(2, 2, 2))

	dyn := mesh.NewDynamicMesh(mesh.KindSimple, 8, 12, false)
	dyn.Simple[0].Position = [3]float32{-1, -1, -1}
	dyn.Simple[1].Position = [3]float32{1, 1, 1}
	dyn.NumVertices = 2
	particles := NewGameObject(WithParticles(dyn), WithSimpleMaterial(mesh.NewSimpleMaterial()))

	specs := []spec{
		{scaled, mgl32.Vec3{11, 1, 0}, 2 * float32(math.Sqrt(0.5)), mgl32.Vec3{10, 0, 0}, mgl32.Vec3{12, 2, 0}},
		{particles, mgl32.Vec3{}, float32(math.Sqrt(3)), mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}},
	}

	for index, s := range specs {
		wb, ws := s.obj.UpdateBounds()
		if !ws.Position.ApproxEqualThreshold(s.expCenter, eps) {
			t.Fatalf("[spec %d] expected sphere center %v; got %v", index, s.expCenter, ws.Position)
		}
		if !mgl32.FloatEqualThreshold(ws.Radius, s.expRadius, eps) {
			t.Fatalf("[spec %d] expected radius %f; got %f", index, s.expRadius, ws.Radius)
		}
		box := common.WorldBoundsToAxisAligned(wb)
		if !box.Min().ApproxEqualThreshold(s.expMin, eps) || !box.Max().ApproxEqualThreshold(s.expMax, eps) {
			t.Fatalf("[spec %d] expected box %v-%v; got %v-%v", index, s.expMin, s.expMax, box.Min(), box.Max())
		}
		if gotWB, gotWS := s.obj.Bounds(); gotWB != wb || gotWS != ws {
			t.Fatalf("[spec %d] expected Bounds to return the last computed bounds", index)
		}
	}
}

func TestSkinUsable(t *testing.T) {
	type spec struct {
		skin        Skin
		gpuSkinning bool
		exp         bool
	}

	specs := []spec{
		{Skin{CanUseGPU: true, CanUseCPU: true}, true, true},
		{Skin{CanUseGPU: true, CanUseCPU: true}, false, true},
		{Skin{CanUseCPU: true}, true, false},
		{Skin{CanUseCPU: true}, false, true},
		{Skin{CanUseGPU: true}, false, false},
		{Skin{CanUseGPU: true}, true, true},
	}

	for index, s := range specs {
		if got := s.skin.Usable(s.gpuSkinning); got != s.exp {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.exp, got)
		}
	}
}
