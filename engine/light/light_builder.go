package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithWorld is an option builder that sets the light's world transform. Lights face +z.
//
// Parameters:
//   - m: the light to world matrix
//
// Returns:
//   - LightBuilderOption: a function that applies the transform to a lightImpl
func WithWorld(m mgl32.Mat4) LightBuilderOption {
	return func(l *lightImpl) {
		l.world = m
	}
}

// WithLookAt is an option builder that places the light at eye facing target.
//
// Parameters:
//   - eye: the light position
//   - target: the point the light faces
//
// Returns:
//   - LightBuilderOption: a function that applies the transform to a lightImpl
func WithLookAt(eye, target mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		up := mgl32.Vec3{0, 1, 0}
		if d := target.Sub(eye).Normalize(); mgl32.Abs(d.Dot(up)) > 0.999 {
			up = mgl32.Vec3{0, 0, 1}
		}
		l.world = camera.LookAtWorld(eye, target, up)
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithClip is an option builder that sets the near and far clip distances.
// The far clip of a point light is its range.
func WithClip(near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.clipZNear = near
		l.clipZFar = far
	}
}

// WithSpot is an option builder that sets the cone of a spot light.
//
// Parameters:
//   - fovDeg: the full cone angle in degrees
//   - innerRadius: normalized radius where angular falloff starts, in [0, 1)
//   - ratio: width / height of the cone cross section
//
// Returns:
//   - LightBuilderOption: a function that applies the cone to a lightImpl
func WithSpot(fovDeg, innerRadius, ratio float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.spot = SpotParams{FovDeg: fovDeg, InnerRadius: innerRadius, Ratio: ratio}
	}
}

// WithMask is an option builder that restricts the light to renderers sharing a mask bit.
func WithMask(mask uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.mask = &mask
	}
}

// WithShadow is an option builder that marks the light as shadow mapped.
//
// Parameters:
//   - resolution: the shadow map width and height in texels
//
// Returns:
//   - LightBuilderOption: a function that enables shadows on a lightImpl
func WithShadow(resolution int) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadow = &ShadowInfo{Resolution: resolution, Node: NoRef, ShadowMap: NoRef}
	}
}

// WithCascades is an option builder that turns a shadow mapped directional light into a
// cascade shadow mapped light that follows cam.
//
// Parameters:
//   - cam: the camera the cascades are fitted around
//   - scale: split ratios of cascades 1 to 3, with 0 < z < y < x < 1
//   - blendWidth: fraction of a cascade blended into the next one, in [0, 1]
//
// Returns:
//   - LightBuilderOption: a function that enables cascades on a lightImpl
func WithCascades(cam camera.Camera, scale mgl32.Vec3, blendWidth float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.csm = &CascadeShadowmappedLight{Scale: scale, BlendWidth: blendWidth, Camera: cam}
	}
}

// WithDisabled is an option builder that creates the light disabled.
func WithDisabled() LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = false
	}
}

// WithAutoMoving is an option builder that refits a directional light to bounds every frame.
//
// Parameters:
//   - bounds: the world space region to cover, ignored when autoBounds is set
//   - autoBounds: track the whole world bounds instead of bounds
//   - clipTo: optional camera whose frustum clips the covered region, may be nil
//
// Returns:
//   - LightBuilderOption: a function that enables auto moving on a lightImpl
func WithAutoMoving(bounds common.AABB, autoBounds bool, clipTo camera.Camera) LightBuilderOption {
	return func(l *lightImpl) {
		l.autoMove = &AutoMovingDirectionalLight{Bounds: bounds, AutoBounds: autoBounds, ClipToCamera: clipTo}
	}
}
