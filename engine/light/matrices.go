package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// Matrices holds the per-frame view data of a light.
type Matrices struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	ViewProj   mgl32.Mat4
	Frustum    common.Frustum
}

// computeMatrices builds the light's projection, view and frustum.
// Spot lights project with a square perspective of their cone, directional lights with a unit
// ortho box over [0, 1] in light space and point lights with a cube frustum of half size far.
func computeMatrices(kind Kind, near, far, fovDeg float32, world mgl32.Mat4) Matrices {
	m := Matrices{View: world.Inv()}

	switch kind {
	case KindSpot:
		m.Projection = camera.ProjectionMatrixPerspective(near, far, fovDeg, 1)
	case KindDirectional:
		m.Projection = camera.ProjectionMatrixOrtho(0, 1, 1, 1)
	default:
		m.Projection = mgl32.Ident4()
	}
	m.ViewProj = m.Projection.Mul4(m.View)

	if kind == KindPoint {
		m.Frustum = common.FrustumFromCube(common.Translation(world), far)
	} else {
		m.Frustum = common.FrustumFromMatrix(m.ViewProj)
	}
	return m
}
