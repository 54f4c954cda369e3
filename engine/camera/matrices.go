package camera

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Matrices is the per-frame derived state of a camera. It is never authored directly.
type Matrices struct {
	Projection     mgl32.Mat4
	View           mgl32.Mat4
	ViewProjection mgl32.Mat4
	Frustum        common.Frustum
}

// computeMatrices derives projection, view and frustum from camera settings and its world transform.
func computeMatrices(mode ProjectionMode, near, far, fov, aspect float32, world mgl32.Mat4) Matrices {
	var proj mgl32.Mat4
	if mode == ModeOrthographic {
		proj = ProjectionMatrixOrtho(near, far, fov, aspect)
	} else {
		proj = ProjectionMatrixPerspective(near, far, fov, aspect)
	}
	view := world.Inv()
	vp := proj.Mul4(view)
	return Matrices{
		Projection:     proj,
		View:           view,
		ViewProjection: vp,
		Frustum:        common.FrustumFromMatrix(vp),
	}
}

// autoZFar returns the far plane that just encloses the world bounds seen from the camera,
// clamped to the configured range.
func autoZFar(world mgl32.Mat4, worldBounds common.AABB, cfg AutoZFar) float32 {
	wb := common.AxisAlignedToWorldBounds(mgl32.Ident4(), worldBounds)
	camSpace := common.WorldBoundsToAxisAligned(common.TransformWorldBounds(world.Inv(), wb))
	return mgl32.Clamp(camSpace.Max()[2], cfg.Min, cfg.Max)
}

// autoAspect scales the target aspect by the viewport's own aspect when the viewport is not empty.
func autoAspect(targetAspect float32, viewport common.Rect) float32 {
	if viewport.IsEmpty() {
		return targetAspect
	}
	return targetAspect * viewport.W / viewport.H
}
