package camera

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

type CameraBuilderOption func(*cameraImpl)

// WithWorld sets the camera's initial world transform.
//
// Parameters:
//   - m: the camera to world matrix
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's world transform
func WithWorld(m mgl32.Mat4) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.world = m
	}
}

// WithLookAt places the camera at eye facing target with +y up.
//
// Parameters:
//   - eye: the camera position
//   - target: the point the camera looks at
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's world transform
func WithLookAt(eye, target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.world = LookAtWorld(eye, target, mgl32.Vec3{0, 1, 0})
	}
}

// WithFov sets the camera's field of view in degrees, or its half size for orthographic cameras.
//
// Parameters:
//   - fov: field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClip sets the near and far clip distances.
//
// Parameters:
//   - near: the near clip distance
//   - far: the far clip distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip range
func WithClip(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clipZNear = near
		c.clipZFar = far
	}
}

// WithOrthographic switches the camera to an orthographic projection with the given half size.
func WithOrthographic(halfSize float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.mode = ModeOrthographic
		c.fov = halfSize
	}
}

// WithViewportRect sets the normalized viewport rectangle.
func WithViewportRect(r common.Rect) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewportRect = r
	}
}

// WithDepth sets the camera stacking order.
func WithDepth(depth float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.depth = depth
	}
}

// WithClearMode sets what the camera clears and the linear background color used by ClearSolidColor.
//
// Parameters:
//   - mode: the clear mode
//   - color: the linear background color
//
// Returns:
//   - CameraBuilderOption: a function that sets the clear settings
func WithClearMode(mode ClearMode, color mgl32.Vec4) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clearMode = mode
		c.backgroundColor = color
	}
}

// WithMask sets the camera mask.
func WithMask(mask uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.mask = mask
	}
}

// WithAutoZFar clamps the far plane to the whole world bounds, within [min, max].
func WithAutoZFar(min, max float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.autoZFar = &AutoZFar{Min: min, Max: max}
	}
}

// WithAutoAspect makes the aspect follow the render target.
func WithAutoAspect() CameraBuilderOption {
	return func(c *cameraImpl) {
		c.autoAspect = true
	}
}

// WithController attaches a controller that drives the camera's world transform.
func WithController(cc CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = cc
	}
}
