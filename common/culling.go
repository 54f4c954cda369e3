package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CullingResult is the tri-state outcome of a frustum test.
type CullingResult int

const (
	Outside CullingResult = iota
	Intersects
	Inside
)

func (r CullingResult) String() string {
	switch r {
	case Outside:
		return "Outside"
	case Intersects:
		return "Intersects"
	case Inside:
		return "Inside"
	}
	return "Unknown"
}

// CullSpherePlane classifies a sphere against one plane.
//
// Parameters:
//   - s: the sphere to test
//   - p: a normalized plane
//
// Returns:
//   - CullingResult: Outside when the sphere is entirely behind the plane, Inside when entirely in front
func CullSpherePlane(s WorldBoundingSphere, p Plane) CullingResult {
	dist := p.Distance(s.Position)
	if dist <= -s.Radius {
		return Outside
	}
	if dist >= s.Radius {
		return Inside
	}
	return Intersects
}

// CullSphere classifies a sphere against every active plane of a frustum.
// Any Outside plane makes the sphere Outside; any Intersects plane makes it Intersects.
func CullSphere(s WorldBoundingSphere, f *Frustum) CullingResult {
	result := Inside
	for _, p := range f.ActivePlanes() {
		switch CullSpherePlane(s, p) {
		case Outside:
			return Outside
		case Intersects:
			result = Intersects
		}
	}
	return result
}

// IsPointCulled reports whether p is strictly behind the plane.
// An all zero plane never culls.
func IsPointCulled(p mgl32.Vec3, pl Plane) bool {
	return pl.Normal.Dot(p) < -pl.W
}

// culledMask returns a bit per corner that lies behind the plane.
func culledMask(wb *WorldBounds, pl Plane) uint8 {
	var mask uint8
	for i, c := range wb.Corners {
		if IsPointCulled(c, pl) {
			mask |= 1 << i
		}
	}
	return mask
}

// CullBox classifies world bounds against every active plane of a frustum.
// The test is conservative: boxes straddling two planes near a frustum corner may be reported as
// Intersects even when no corner is inside.
//
// Parameters:
//   - wb: the world bounds to test
//   - f: the frustum
//
// Returns:
//   - CullingResult: Outside if all corners are behind one plane, Inside if no corner is behind any plane
func CullBox(wb *WorldBounds, f *Frustum) CullingResult {
	var union uint8
	for _, p := range f.ActivePlanes() {
		m := culledMask(wb, p)
		if m == 0xff {
			return Outside
		}
		union |= m
	}
	if union == 0 {
		return Inside
	}
	return Intersects
}

// IsCulled reports whether all eight corners lie behind any single frustum plane.
func IsCulled(wb *WorldBounds, f *Frustum) bool {
	for _, p := range f.ActivePlanes() {
		if culledMask(wb, p) == 0xff {
			return true
		}
	}
	return false
}
