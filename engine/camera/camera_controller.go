package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController drives a camera's world transform from user input.
// Supports orbit controls around a target and planar panning along the camera's local axes.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the camera position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the orbit target
	Target() mgl32.Vec3

	// SetTarget sets the orbit target and recomputes the position.
	//
	// Parameters:
	//   - target: the new orbit target
	SetTarget(target mgl32.Vec3)

	// Zoom moves the camera towards (positive) or away from (negative) the target.
	//
	// Parameters:
	//   - delta: zoom steps, scaled by the zoom speed
	Zoom(delta float32)

	// WorldMatrix returns the camera world transform facing the target.
	//
	// Returns:
	//   - mgl32.Mat4: the camera to world matrix
	WorldMatrix() mgl32.Mat4
}

type orbitCameraController interface {
	// OrbitLeft rotates the camera left around the target by one orbit step.
	OrbitLeft()

	// OrbitRight rotates the camera right around the target by one orbit step.
	OrbitRight()

	// OrbitUp raises the camera elevation by one orbit step.
	OrbitUp()

	// OrbitDown lowers the camera elevation by one orbit step.
	OrbitDown()

	// Radius returns the distance between the camera and the target.
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the configured range.
	SetRadius(radius float32)
}

type planarCameraController interface {
	// PanRight moves camera and target along the camera's right axis.
	//
	// Parameters:
	//   - delta: distance in pan speed units; negative pans left
	PanRight(delta float32)

	// PanUp moves camera and target along the camera's up axis.
	PanUp(delta float32)

	// PanForward moves camera and target along the view direction.
	PanForward(delta float32)
}
