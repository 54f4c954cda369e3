package light

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// CascadeCount is the number of cascades of a cascade shadow mapped light.
const CascadeCount = 4

// CascadeShadowmappedLight splits a directional light's shadow map into four cascades centered
// on a camera. Cascade 0 covers the whole light box; cascades 1 to 3 cover Scale.X, Scale.Y and
// Scale.Z of it around the camera.
type CascadeShadowmappedLight struct {
	Scale      mgl32.Vec3
	BlendWidth float32
	Camera     camera.Camera
}

// Validate panics unless 0 < Scale.Z < Scale.Y < Scale.X < 1 and BlendWidth is in [0, 1].
func (c *CascadeShadowmappedLight) Validate() {
	s := c.Scale
	if !(0 < s.Z() && s.Z() < s.Y() && s.Y() < s.X() && s.X() < 1) {
		panic(fmt.Sprintf("light: cascade scales must satisfy 0 < z < y < x < 1, got %v", s))
	}
	if c.BlendWidth < 0 || c.BlendWidth > 1 {
		panic(fmt.Sprintf("light: cascade blend width must be in [0, 1], got %f", c.BlendWidth))
	}
}

// Cascade holds the view data of one cascade.
type Cascade struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Frustum    common.Frustum
	// Offset is the cascade center in the light's unit space, already scaled by -Scale.
	Offset mgl32.Vec2
	// Scale is the inverse of the cascade's split ratio.
	Scale float32
}

// ComputeCascades fits the four cascades of csm into the unit box of lightWorld.
// Cascades 1 to 3 are centered on the camera position projected into light space.
//
// Parameters:
//   - lightWorld: the directional light's world transform, scaled to cover the shadowed bounds
//   - csm: the cascade settings
//
// Returns:
//   - [CascadeCount]Cascade: the computed cascades
//   - bool: false if csm has no camera
func ComputeCascades(lightWorld mgl32.Mat4, csm *CascadeShadowmappedLight) ([CascadeCount]Cascade, bool) {
	var out [CascadeCount]Cascade
	csm.Validate()
	if csm.Camera == nil {
		return out, false
	}

	view := lightWorld.Inv()
	camPosLS := common.TransformPoint(view, csm.Camera.Position())
	ratios := [CascadeCount]float32{1, csm.Scale.X(), csm.Scale.Y(), csm.Scale.Z()}

	for i, ratio := range ratios {
		offset := mgl32.Vec2{camPosLS.X(), camPosLS.Y()}
		if i == 0 {
			offset = mgl32.Vec2{}
		}
		invRatio := 1 / ratio
		useOffset := offset.Mul(-invRatio)

		c := Cascade{
			Projection: camera.ProjectionMatrixUnitOrthoOffset(useOffset, invRatio),
			View:       view,
			Offset:     useOffset,
			Scale:      invRatio,
		}
		c.Frustum = common.FrustumFromMatrix(c.Projection.Mul4(c.View))
		out[i] = c
	}
	return out, true
}
