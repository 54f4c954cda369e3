package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-3

func TestLightMatricesByKind(t *testing.T) {
	type spec struct {
		light   Light
		inside  mgl32.Vec3
		outside mgl32.Vec3
	}

	specs := []spec{
		{
			light:   NewLight(KindSpot, WithLookAt(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 0, 0}), WithClip(0.5, 20), WithSpot(45, 0.2, 1)),
			inside:  mgl32.Vec3{0, 0, 0},
			outside: mgl32.Vec3{0, 10, 0},
		},
		{
			light:   NewLight(KindDirectional),
			inside:  mgl32.Vec3{0.5, -0.5, 0.5},
			outside: mgl32.Vec3{0, 0, -0.5},
		},
		{
			light:   NewLight(KindPoint, WithWorld(mgl32.Translate3D(3, 0, 0)), WithClip(0.1, 2)),
			inside:  mgl32.Vec3{4.5, 1, -1},
			outside: mgl32.Vec3{0, 0, 0},
		},
	}

	for index, s := range specs {
		m := s.light.UpdateMatrices()
		in := common.WorldBoundingSphere{Position: s.inside, Radius: 0.01}
		out := common.WorldBoundingSphere{Position: s.outside, Radius: 0.01}
		if got := common.CullSphere(in, &m.Frustum); got != common.Inside {
			t.Fatalf("[spec %d] expected %v inside the %s light frustum; got %s", index, s.inside, s.light.Kind(), got)
		}
		if got := common.CullSphere(out, &m.Frustum); got != common.Outside {
			t.Fatalf("[spec %d] expected %v outside the %s light frustum; got %s", index, s.outside, s.light.Kind(), got)
		}
	}
}

func TestClipLinePlane(t *testing.T) {
	plane := common.Plane{Normal: mgl32.Vec3{1, 0, 0}, W: 0} // inside when x >= 0

	type spec struct {
		p0, p1           mgl32.Vec3
		expected         bool
		expect0, expect1 mgl32.Vec3
	}

	specs := []spec{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{2, 0, 0}, true, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{2, 0, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{-2, 0, 0}, false, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{-2, 0, 0}},
		{mgl32.Vec3{-1, 1, 0}, mgl32.Vec3{1, 1, 0}, true, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 1, 0}},
		{mgl32.Vec3{3, 0, 2}, mgl32.Vec3{-1, 0, 2}, true, mgl32.Vec3{3, 0, 2}, mgl32.Vec3{0, 0, 2}},
	}

	for index, s := range specs {
		p0, p1 := s.p0, s.p1
		if got := ClipLinePlane(&p0, &p1, plane); got != s.expected {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.expected, got)
		}
		if !p0.ApproxEqualThreshold(s.expect0, eps) || !p1.ApproxEqualThreshold(s.expect1, eps) {
			t.Fatalf("[spec %d] expected segment %v-%v; got %v-%v", index, s.expect0, s.expect1, p0, p1)
		}
	}
}

func TestClipAABBByFrustum(t *testing.T) {
	cam := camera.NewCamera(camera.WithLookAt(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 0}), camera.WithClip(0.1, 100))
	m := cam.Update(common.AABB{}, 0)

	inside := common.AABB{Center: mgl32.Vec3{0, 0, 5}, Extents: mgl32.Vec3{1, 1, 1}}
	got := ClipAABBByFrustum(inside, &m.Frustum, cam)
	if !got.Center.ApproxEqualThreshold(inside.Center, eps) || !got.Extents.ApproxEqualThreshold(inside.Extents, eps) {
		t.Fatalf("expected a box inside the frustum to be unchanged; got %+v", got)
	}

	outside := common.AABB{Center: mgl32.Vec3{0, 0, -50}, Extents: mgl32.Vec3{1, 1, 1}}
	if got := ClipAABBByFrustum(outside, &m.Frustum, cam); !got.IsEmpty() {
		t.Fatalf("expected a box behind the camera to clip to nothing; got %+v", got)
	}

	huge := common.AABB{Extents: mgl32.Vec3{5000, 5000, 5000}}
	got = ClipAABBByFrustum(huge, &m.Frustum, cam)
	if !huge.Contains(got, eps) || got.Max().Z() > 90.1+eps {
		t.Fatalf("expected a box around the frustum to clip to the frustum bounds; got %+v", got)
	}
}

func TestAutoMovingCoversBounds(t *testing.T) {
	bounds := common.AABB{Center: mgl32.Vec3{0, 0, 10}, Extents: mgl32.Vec3{2, 3, 4}}
	l := NewLight(KindDirectional, WithShadow(1024), WithAutoMoving(bounds, false, nil), WithClip(5, 50))

	UpdateAutoMoving(l, common.AABB{})
	d := l.Data()
	if d.ClipZNear != 0 || d.ClipZFar != 1 {
		t.Fatalf("expected the clip range to be reset to [0, 1]; got [%f, %f]", d.ClipZNear, d.ClipZFar)
	}
	if !d.Position().ApproxEqualThreshold(mgl32.Vec3{0, 0, 6}, eps) {
		t.Fatalf("expected the light on the near face of the bounds; got %v", d.Position())
	}

	m := l.UpdateMatrices()
	wb := common.AxisAlignedToWorldBounds(mgl32.Ident4(), bounds)
	for i, c := range wb.Corners {
		p := common.ProjectPoint(m.ViewProj, c)
		for axis := 0; axis < 3; axis++ {
			if mgl32.Abs(p[axis]) > 1+eps {
				t.Fatalf("[corner %d] expected the corner inside the light clip volume; got %v", i, p)
			}
		}
	}
}

func TestAutoBoundsTracksWorld(t *testing.T) {
	l := NewLight(KindDirectional, WithShadow(512), WithAutoMoving(common.AABB{}, true, nil))
	world := common.AABB{Center: mgl32.Vec3{1, 2, 3}, Extents: mgl32.Vec3{1, 1, 1}}
	UpdateAutoMoving(l, world)
	if l.AutoMoving().Bounds != world {
		t.Fatalf("expected auto bounds to track the world bounds; got %+v", l.AutoMoving().Bounds)
	}
}

func TestCascadesCenterOnCamera(t *testing.T) {
	cam := camera.NewCamera(camera.WithLookAt(mgl32.Vec3{3, 1, -5}, mgl32.Vec3{3, 0, 5}), camera.WithClip(0.1, 50))
	cam.Update(common.AABB{}, 0)

	bounds := common.AABB{Extents: mgl32.Vec3{40, 40, 40}}
	l := NewLight(KindDirectional,
		WithLookAt(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0}),
		WithShadow(2048),
		WithAutoMoving(bounds, false, cam),
		WithCascades(cam, mgl32.Vec3{0.5, 0.25, 0.125}, 0.1),
	)
	UpdateAutoMoving(l, common.AABB{})

	cascades := l.Cascades()
	if cascades[0].Scale != 1 || cascades[0].Offset != (mgl32.Vec2{}) {
		t.Fatalf("expected cascade 0 to cover the whole light box; got scale %f offset %v", cascades[0].Scale, cascades[0].Offset)
	}

	expectedScale := [CascadeCount]float32{1, 2, 4, 8}
	for i, c := range cascades {
		if !mgl32.FloatEqualThreshold(c.Scale, expectedScale[i], eps) {
			t.Fatalf("[cascade %d] expected scale %f; got %f", i, expectedScale[i], c.Scale)
		}
		if i == 0 {
			continue
		}
		p := common.ProjectPoint(c.Projection.Mul4(c.View), cam.Position())
		if !mgl32.FloatEqualThreshold(p.X(), 0, eps) || !mgl32.FloatEqualThreshold(p.Y(), 0, eps) {
			t.Fatalf("[cascade %d] expected the camera at the cascade center; got %v", i, p)
		}
	}
}

func TestCascadeValidation(t *testing.T) {
	type spec struct {
		scale mgl32.Vec3
		blend float32
	}

	specs := []spec{
		{mgl32.Vec3{0.25, 0.5, 0.125}, 0.1},
		{mgl32.Vec3{1, 0.5, 0.25}, 0.1},
		{mgl32.Vec3{0.5, 0.25, 0}, 0.1},
		{mgl32.Vec3{0.5, 0.25, 0.125}, 1.5},
	}

	for index, s := range specs {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("[spec %d] expected invalid cascade settings to panic", index)
				}
			}()
			c := CascadeShadowmappedLight{Scale: s.scale, BlendWidth: s.blend}
			c.Validate()
		}()
	}
}

func TestCascadeClipCameraMismatchPanics(t *testing.T) {
	camA := camera.NewCamera()
	camB := camera.NewCamera()
	camA.Update(common.AABB{}, 0)
	l := NewLight(KindDirectional, WithShadow(1024),
		WithAutoMoving(common.AABB{Extents: mgl32.Vec3{10, 10, 10}}, false, camA),
		WithCascades(camB, mgl32.Vec3{0.5, 0.25, 0.125}, 0))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a clip camera different from the cascade camera to panic")
		}
	}()
	UpdateAutoMoving(l, common.AABB{})
}

func TestCascadeLightRequirements(t *testing.T) {
	cam := camera.NewCamera()
	cascades := WithCascades(cam, mgl32.Vec3{0.5, 0.25, 0.125}, 0.1)
	autoMoving := WithAutoMoving(common.AABB{}, true, cam)

	type spec struct {
		kind     Kind
		options  []LightBuilderOption
		expPanic bool
	}

	specs := []spec{
		{KindDirectional, []LightBuilderOption{WithShadow(2048), autoMoving, cascades}, false},
		{KindDirectional, []LightBuilderOption{WithShadow(2048), cascades}, true},
		{KindDirectional, []LightBuilderOption{autoMoving, cascades}, true},
		{KindSpot, []LightBuilderOption{WithShadow(2048), autoMoving, cascades}, true},
	}

	for index, s := range specs {
		func() {
			defer func() {
				if panicked := recover() != nil; panicked != s.expPanic {
					t.Fatalf("[spec %d] expected panic %t; got %t", index, s.expPanic, panicked)
				}
			}()
			l := NewLight(s.kind, s.options...)
			if l.Cascade() == nil || l.AutoMoving() == nil {
				t.Fatalf("[spec %d] expected cascade and auto moving settings", index)
			}
		}()
	}
}

func TestFogEqual(t *testing.T) {
	a := Fog{Mode: FogNone, Density: 1}
	b := Fog{Mode: FogNone, Density: 2}
	if !a.Equal(b) {
		t.Fatalf("expected two disabled fogs to be equal")
	}
	c := Fog{Mode: FogLinear, Start: 1, End: 10}
	if c.Equal(a) || !c.Equal(c) {
		t.Fatalf("expected linear fog to equal only itself")
	}
}
