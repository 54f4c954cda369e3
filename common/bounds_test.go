package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const testEps = 1e-4

func testTransforms() []mgl32.Mat4 {
	return []mgl32.Mat4{
		mgl32.Ident4(),
		mgl32.Translate3D(1, -2, 3),
		mgl32.Translate3D(4, 0, -1).Mul4(mgl32.HomogRotate3DY(0.7)).Mul4(mgl32.Scale3D(2, 0.5, 3)),
		mgl32.HomogRotate3DX(1.2).Mul4(mgl32.HomogRotate3DZ(-0.4)),
	}
}

func TestAxisAlignedToWorldBoundsMatchesCorners(t *testing.T) {
	box := AABB{Center: mgl32.Vec3{0.5, 1, -2}, Extents: mgl32.Vec3{1, 2, 0.25}}

	for index, tx := range testTransforms() {
		wb := AxisAlignedToWorldBounds(tx, box)
		for mask := 0; mask < 8; mask++ {
			expected := TransformPoint(tx, SelectCoordsMinMax(box.Min(), box.Max(), mask))
			if !wb.Corners[mask].ApproxEqualThreshold(expected, testEps) {
				t.Fatalf("[spec %d] expected corner %d to be %v; got %v", index, mask, expected, wb.Corners[mask])
			}
		}
	}
}

func TestWorldBoundsRoundTrip(t *testing.T) {
	box := AABB{Center: mgl32.Vec3{1, 2, 3}, Extents: mgl32.Vec3{0.5, 1.5, 2}}

	for index, tx := range testTransforms() {
		got := WorldBoundsToAxisAligned(AxisAlignedToWorldBounds(tx, box))

		min, max := EmptyMinMax()
		for mask := 0; mask < 8; mask++ {
			GrowBounds(&min, &max, TransformPoint(tx, SelectCoordsMinMax(box.Min(), box.Max(), mask)))
		}
		expected := AABBFromMinMax(min, max)

		if !got.Center.ApproxEqualThreshold(expected.Center, testEps) || !got.Extents.ApproxEqualThreshold(expected.Extents, testEps) {
			t.Fatalf("[spec %d] expected world aabb %v; got %v", index, expected, got)
		}
	}
}

func TestEdgeTableConnectsAdjacentCorners(t *testing.T) {
	seen := map[[2]int]bool{}
	for i := range EdgeTable {
		p0, p1 := EdgeCorners(i)
		diff := p0 ^ p1
		if diff != 1 && diff != 2 && diff != 4 {
			t.Fatalf("edge %d joins non adjacent corners %d and %d", i, p0, p1)
		}
		key := [2]int{min(p0, p1), max(p0, p1)}
		if seen[key] {
			t.Fatalf("edge %d is a duplicate of %v", i, key)
		}
		seen[key] = true
	}
}

func TestWorldSphereFromAABB(t *testing.T) {
	box := AABB{Center: mgl32.Vec3{1, 0, 0}, Extents: mgl32.Vec3{1, 2, 2}}
	tx := mgl32.Translate3D(0, 5, 0).Mul4(mgl32.Scale3D(1, 3, 2))

	s := WorldSphereFromAABB(tx, box)
	if !s.Position.ApproxEqualThreshold(mgl32.Vec3{1, 5, 0}, testEps) {
		t.Fatalf("expected sphere center (1,5,0); got %v", s.Position)
	}
	if !mgl32.FloatEqualThreshold(s.Radius, 9, testEps) {
		t.Fatalf("expected radius 9; got %f", s.Radius)
	}
}

func TestSphereMerge(t *testing.T) {
	type spec struct {
		a, b     WorldBoundingSphere
		inside   int
		expected WorldBoundingSphere
	}

	specs := []spec{
		{
			a:        WorldBoundingSphere{Position: mgl32.Vec3{0, 0, 0}, Radius: 10},
			b:        WorldBoundingSphere{Position: mgl32.Vec3{1, 0, 0}, Radius: 2},
			inside:   1,
			expected: WorldBoundingSphere{Position: mgl32.Vec3{0, 0, 0}, Radius: 10},
		},
		{
			a:        WorldBoundingSphere{Position: mgl32.Vec3{1, 0, 0}, Radius: 2},
			b:        WorldBoundingSphere{Position: mgl32.Vec3{0, 0, 0}, Radius: 10},
			inside:   2,
			expected: WorldBoundingSphere{Position: mgl32.Vec3{0, 0, 0}, Radius: 10},
		},
		{
			a:        WorldBoundingSphere{Position: mgl32.Vec3{-2, 0, 0}, Radius: 1},
			b:        WorldBoundingSphere{Position: mgl32.Vec3{2, 0, 0}, Radius: 1},
			inside:   0,
			expected: WorldBoundingSphere{Position: mgl32.Vec3{0, 0, 0}, Radius: 3},
		},
		{
			a:        WorldBoundingSphere{Radius: NoSphereRadius},
			b:        WorldBoundingSphere{Position: mgl32.Vec3{3, 3, 3}, Radius: 1},
			inside:   2,
			expected: WorldBoundingSphere{Position: mgl32.Vec3{3, 3, 3}, Radius: 1},
		},
	}

	for index, s := range specs {
		if s.a.Radius > 0 {
			if got := SphereInSphere(s.a, s.b); got != s.inside {
				t.Fatalf("[spec %d] expected SphereInSphere to return %d; got %d", index, s.inside, got)
			}
		}
		got := MergeSpheres(s.a, s.b)
		if !got.Position.ApproxEqualThreshold(s.expected.Position, testEps) || !mgl32.FloatEqualThreshold(got.Radius, s.expected.Radius, testEps) {
			t.Fatalf("[spec %d] expected merged sphere %v; got %v", index, s.expected, got)
		}
	}
}

func TestChunkBoundsContainMembers(t *testing.T) {
	chunk := NewChunkBounds()
	if chunk.Sphere().Radius != NoSphereRadius {
		t.Fatalf("expected empty chunk to carry the guard radius; got %f", chunk.Sphere().Radius)
	}

	boxes := []AABB{
		{Center: mgl32.Vec3{0, 0, 0}, Extents: mgl32.Vec3{1, 1, 1}},
		{Center: mgl32.Vec3{5, 2, -3}, Extents: mgl32.Vec3{0.5, 2, 1}},
		{Center: mgl32.Vec3{-4, 1, 8}, Extents: mgl32.Vec3{2, 0.1, 0.1}},
	}
	var members []WorldBoundingSphere
	var memberBoxes []AABB
	for i, b := range boxes {
		tx := testTransforms()[i%len(testTransforms())]
		wb := AxisAlignedToWorldBounds(tx, b)
		ws := WorldSphereFromAABB(tx, b)
		chunk.Add(wb, ws)
		members = append(members, ws)
		memberBoxes = append(memberBoxes, WorldBoundsToAxisAligned(wb))
	}

	if chunk.Count() != len(boxes) {
		t.Fatalf("expected %d members; got %d", len(boxes), chunk.Count())
	}
	for index, b := range memberBoxes {
		if !chunk.AABB().Contains(b, testEps) {
			t.Fatalf("[member %d] expected chunk box %v to contain %v", index, chunk.AABB(), b)
		}
	}
	for index, s := range members {
		d := chunk.Sphere().Position.Sub(s.Position).Len()
		if d+s.Radius > chunk.Sphere().Radius+testEps {
			t.Fatalf("[member %d] expected chunk sphere %v to contain %v", index, chunk.Sphere(), s)
		}
	}
}
