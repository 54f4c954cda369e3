package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: dot(n, p) + w = 0.
// Points with a positive signed distance are on the inside.
type Plane struct {
	Normal mgl32.Vec3
	W      float32
}

// Distance returns the signed distance from the plane to p.
// The distance is exact only for normalized planes.
func (p Plane) Distance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.W
}

// IsZero reports whether the plane is all zero. Zero planes pad frustums with fewer than six planes
// and never cull anything.
func (p Plane) IsZero() bool {
	return p.Normal == (mgl32.Vec3{}) && p.W == 0
}

// Normalized returns the plane scaled so that its normal has unit length.
// Zero planes are returned unchanged.
func (p Plane) Normalized() Plane {
	length := p.Normal.Len()
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.W *= invLen
	}
	return p
}

// Frustum is a convex volume bounded by up to six planes.
// Only the first PlanesCount planes take part in culling tests.
type Frustum struct {
	Planes      [6]Plane // Left, Right, Bottom, Top, Near, Far
	PlanesCount int
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ActivePlanes returns the planes that take part in culling.
func (f *Frustum) ActivePlanes() []Plane {
	n := f.PlanesCount
	if n > len(f.Planes) {
		n = len(f.Planes)
	}
	return f.Planes[:n]
}

// FrustumFromMatrix extracts frustum planes from a combined projection * view matrix.
// Uses the Gribb/Hartmann method for plane extraction against a [-1, 1] clip volume.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the extracted frustum with six normalized planes
func FrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	r0 := viewProj.Row(0)
	r1 := viewProj.Row(1)
	r2 := viewProj.Row(2)
	r3 := viewProj.Row(3)

	rows := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}

	f := Frustum{PlanesCount: 6}
	for i, r := range rows {
		f.Planes[i] = Plane{Normal: r.Vec3(), W: r[3]}.Normalized()
	}
	return f
}

// FrustumFromMinMax builds the six inward facing planes of an axis aligned box.
//
// Parameters:
//   - min: the minimum corner of the box
//   - max: the maximum corner of the box
//
// Returns:
//   - Frustum: a frustum whose inside is the box
func FrustumFromMinMax(min, max mgl32.Vec3) Frustum {
	f := Frustum{PlanesCount: 6}
	f.Planes[FrustumLeft] = Plane{Normal: mgl32.Vec3{1, 0, 0}, W: -min[0]}
	f.Planes[FrustumRight] = Plane{Normal: mgl32.Vec3{-1, 0, 0}, W: max[0]}
	f.Planes[FrustumBottom] = Plane{Normal: mgl32.Vec3{0, 1, 0}, W: -min[1]}
	f.Planes[FrustumTop] = Plane{Normal: mgl32.Vec3{0, -1, 0}, W: max[1]}
	f.Planes[FrustumNear] = Plane{Normal: mgl32.Vec3{0, 0, 1}, W: -min[2]}
	f.Planes[FrustumFar] = Plane{Normal: mgl32.Vec3{0, 0, -1}, W: max[2]}
	return f
}

// FrustumFromAABB builds the inward facing planes of a center/extents box.
func FrustumFromAABB(b AABB) Frustum {
	return FrustumFromMinMax(b.Min(), b.Max())
}

// FrustumFromCube builds the frustum of a cube centered on pos with the given half size.
// Point lights use it as their culling volume.
//
// Parameters:
//   - pos: the cube center
//   - size: the half size of the cube
//
// Returns:
//   - Frustum: the cube frustum
func FrustumFromCube(pos mgl32.Vec3, size float32) Frustum {
	half := mgl32.Vec3{size, size, size}
	return FrustumFromMinMax(pos.Sub(half), pos.Add(half))
}
