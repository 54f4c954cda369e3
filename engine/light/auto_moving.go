package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// AutoMovingDirectionalLight moves and sizes a shadow mapped directional light every frame so its
// shadow map covers the tracked bounds, optionally clipped to a camera frustum.
// The light's world scale is overwritten, so it is not suitable for projected light textures.
type AutoMovingDirectionalLight struct {
	// Bounds is the world space region to cover.
	Bounds common.AABB
	// AutoBounds replaces Bounds with the whole world bounds every frame.
	AutoBounds bool
	// ClipToCamera, if set, clips Bounds to that camera's frustum.
	ClipToCamera camera.Camera
	// BoundsClipped is the last clipped region, in world space.
	BoundsClipped common.AABB
}

// ClipLinePlane clips the segment p0-p1 to the inside of plane.
// A point is inside when dot(n, p) >= -w.
//
// Parameters:
//   - p0: first end point, updated in place
//   - p1: second end point, updated in place
//   - plane: the clip plane
//
// Returns:
//   - bool: false if the whole segment is outside
func ClipLinePlane(p0, p1 *mgl32.Vec3, plane common.Plane) bool {
	p0Inside := plane.Normal.Dot(*p0) >= -plane.W
	p1Inside := plane.Normal.Dot(*p1) >= -plane.W
	if !p0Inside && !p1Inside {
		return false
	}
	if p0Inside && p1Inside {
		return true
	}

	dp := p1.Sub(*p0)
	t := -(plane.W + plane.Normal.Dot(*p0)) / plane.Normal.Dot(dp)
	if !(t > 0 && t < 1) {
		// parallel or touching: collapse to the inside point
		if p0Inside {
			*p1 = *p0
		} else {
			*p0 = *p1
		}
		return true
	}

	p := p0.Add(dp.Mul(t))
	if p0Inside {
		*p1 = p
	} else {
		*p0 = p
	}
	return true
}

func clipLineFrustum(p0, p1 mgl32.Vec3, f *common.Frustum, dest []mgl32.Vec3) []mgl32.Vec3 {
	for _, pl := range f.ActivePlanes() {
		if !ClipLinePlane(&p0, &p1, pl) {
			return dest
		}
	}
	return append(dest, p0, p1)
}

// ClipAABBByFrustum returns the bounds of the intersection of b and a camera frustum.
// The edges of b are clipped against the frustum and the edges of the frustum against b; the
// result bounds all surviving end points and is empty if none survive.
//
// Parameters:
//   - b: the world space box
//   - f: the camera's world space frustum
//   - cam: the camera, used for its frustum corners and world transform
//
// Returns:
//   - common.AABB: the clipped bounds
func ClipAABBByFrustum(b common.AABB, f *common.Frustum, cam camera.Camera) common.AABB {
	bMin, bMax := b.Min(), b.Max()
	inside := make([]mgl32.Vec3, 0, 48)

	for i := range common.EdgeTable {
		c0, c1 := common.EdgeCorners(i)
		inside = clipLineFrustum(common.SelectCoordsMinMax(bMin, bMax, c0), common.SelectCoordsMinMax(bMin, bMax, c1), f, inside)
	}

	boxFrustum := common.FrustumFromAABB(b)
	wb := common.TransformWorldBounds(cam.World(), camera.BoundsFromCamera(cam))
	for i := range common.EdgeTable {
		c0, c1 := common.EdgeCorners(i)
		inside = clipLineFrustum(wb.Corners[c0], wb.Corners[c1], &boxFrustum, inside)
	}

	if len(inside) == 0 {
		return common.AABB{}
	}
	lo, hi := common.EmptyMinMax()
	for _, p := range inside {
		common.GrowBounds(&lo, &hi, p)
	}
	return common.AABBFromMinMax(lo, hi)
}

// fit computes the light's world transform for the current bounds. The light keeps its rotation,
// is placed on the near face of the bounds in light space and scaled so its unit ortho box covers them.
func (a *AutoMovingDirectionalLight) fit(world mgl32.Mat4, wholeWorld common.AABB) mgl32.Mat4 {
	if a.AutoBounds {
		a.Bounds = wholeWorld
	}

	bounds := a.Bounds
	if a.ClipToCamera != nil {
		frustum := a.ClipToCamera.Matrices().Frustum
		a.BoundsClipped = ClipAABBByFrustum(bounds, &frustum, a.ClipToCamera)
		bounds = a.BoundsClipped
	}

	rot := common.RotationTranslation(world)
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	ls := common.WorldBoundsToAxisAligned(common.AxisAlignedToWorldBounds(rot.Transpose(), bounds))

	posLS := mgl32.Vec3{ls.Center.X(), ls.Center.Y(), ls.Center.Z() - ls.Extents.Z()}
	pos := common.TransformPoint(rot, posLS)
	size := max(ls.Extents.X(), ls.Extents.Y())

	out := rot
	out.SetCol(3, pos.Vec4(1))
	return out.Mul4(mgl32.Scale3D(size, size, ls.Extents.Z()*2))
}

// UpdateAutoMoving refits an auto moving directional light to wholeWorld (or its own bounds),
// resets its clip range to [0, 1] and recomputes its cascades if it has any.
// Lights without an auto moving component are left unchanged.
//
// Parameters:
//   - l: the light
//   - wholeWorld: the bounds of all renderers in the world
func UpdateAutoMoving(l Light, wholeWorld common.AABB) {
	impl, ok := l.(*lightImpl)
	if !ok {
		return
	}

	impl.mu.Lock()
	a := impl.autoMove
	if a == nil {
		impl.mu.Unlock()
		return
	}
	impl.clipZNear = 0
	impl.clipZFar = 1
	impl.world = a.fit(impl.world, wholeWorld)
	csm := impl.csm
	impl.mu.Unlock()

	if csm != nil {
		if a.ClipToCamera != nil && a.ClipToCamera != csm.Camera {
			panic("light: an auto moving light must clip to its cascade camera")
		}
		l.UpdateCascades()
	}
}
