package camera

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraCount is an atomic counter used to generate unique camera ids.
var cameraCount atomic.Int64

// ProjectionMode selects between perspective and orthographic projection.
type ProjectionMode uint8

const (
	ModePerspective ProjectionMode = iota
	ModeOrthographic
)

// ClearMode selects what a camera clears before rendering.
type ClearMode uint8

const (
	ClearNothing ClearMode = iota
	ClearDepthOnly
	ClearSolidColor
)

// AutoZFar clamps the far plane to the whole world bounds seen from the camera.
type AutoZFar struct {
	Min, Max float32
}

type cameraImpl struct {
	mu *sync.Mutex

	id    int
	world mgl32.Mat4

	mode      ProjectionMode
	clipZNear float32
	clipZFar  float32
	fov       float32
	aspect    float32

	viewportRect    common.Rect
	depth           float32
	clearMode       ClearMode
	backgroundColor mgl32.Vec4
	mask            uint32

	autoZFar   *AutoZFar
	autoAspect bool

	matrices   Matrices
	controller CameraController
}

// Camera is a view into the world. It holds projection settings and derives its view/projection
// matrices and frustum once per frame through Update.
//
// The fov is in degrees for perspective cameras and is the vertical half size for orthographic ones.
type Camera interface {
	// ID returns the camera's unique id, used to order cameras of equal depth.
	//
	// Returns:
	//   - int: the camera id
	ID() int

	// World returns the camera's world transform.
	//
	// Returns:
	//   - mgl32.Mat4: the camera to world matrix
	World() mgl32.Mat4

	// SetWorld sets the camera's world transform.
	//
	// Parameters:
	//   - m: the camera to world matrix
	SetWorld(m mgl32.Mat4)

	// Position returns the world space position of the camera.
	Position() mgl32.Vec3

	// Mode returns the projection mode.
	Mode() ProjectionMode
	// SetMode sets the projection mode.
	SetMode(mode ProjectionMode)

	// ClipZNear returns the near clip distance.
	ClipZNear() float32
	// ClipZFar returns the far clip distance.
	ClipZFar() float32
	// SetClip sets the near and far clip distances.
	SetClip(near, far float32)

	// Fov returns the vertical field of view in degrees, or the half size for orthographic cameras.
	Fov() float32
	// SetFov sets the field of view (or half size).
	SetFov(fov float32)

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32
	// SetAspect sets the aspect ratio.
	SetAspect(aspect float32)

	// ViewportRect returns the normalized viewport rectangle.
	ViewportRect() common.Rect
	// SetViewportRect sets the normalized viewport rectangle.
	SetViewportRect(r common.Rect)

	// Depth returns the stacking order of the camera; lower depths render first.
	Depth() float32
	// SetDepth sets the stacking order.
	SetDepth(depth float32)

	// ClearMode returns what the camera clears before rendering.
	ClearMode() ClearMode
	// SetClearMode sets what the camera clears.
	SetClearMode(mode ClearMode)

	// BackgroundColor returns the linear clear color.
	BackgroundColor() mgl32.Vec4
	// SetBackgroundColor sets the linear clear color.
	SetBackgroundColor(c mgl32.Vec4)

	// Mask returns the camera mask. A mask of 0 disables the camera.
	Mask() uint32
	// SetMask sets the camera mask.
	SetMask(mask uint32)

	// AutoZFar returns the far plane clamp settings and whether the camera uses them.
	AutoZFar() (AutoZFar, bool)
	// SetAutoZFar enables far plane clamping; nil disables it.
	SetAutoZFar(a *AutoZFar)

	// AutoAspect reports whether the aspect follows the render target.
	AutoAspect() bool
	// SetAutoAspect sets whether the aspect follows the render target.
	SetAutoAspect(enabled bool)

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController
	// SetController attaches a controller that drives the world transform on Update.
	SetController(cc CameraController)

	// Matrices returns the matrices computed by the last Update.
	//
	// Returns:
	//   - Matrices: projection, view and frustum
	Matrices() Matrices

	// Update recomputes the camera matrices for the frame.
	// The world transform is taken from the controller when one is attached, the aspect follows
	// targetAspect for auto aspect cameras and the far plane follows worldBounds for auto z-far cameras.
	//
	// Parameters:
	//   - worldBounds: the whole world bounds computed by the bounds stage
	//   - targetAspect: the aspect of the render target the camera draws to (ignored when <= 0)
	//
	// Returns:
	//   - Matrices: the recomputed matrices
	Update(worldBounds common.AABB, targetAspect float32) Matrices
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera at the origin looking down +z.
// Defaults: near 0.1, far 1000, fov 60 degrees, aspect 16:9, full viewport, solid color clear, all mask bits.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:              &sync.Mutex{},
		id:              int(cameraCount.Add(1)),
		world:           mgl32.Ident4(),
		mode:            ModePerspective,
		clipZNear:       0.1,
		clipZFar:        1000,
		fov:             60,
		aspect:          16.0 / 9.0,
		viewportRect:    common.Rect{X: 0, Y: 0, W: 1, H: 1},
		clearMode:       ClearSolidColor,
		backgroundColor: mgl32.Vec4{0.1, 0.1, 0.1, 1},
		mask:            common.AllBits,
	}

	for _, option := range options {
		option(c)
	}

	c.matrices = computeMatrices(c.mode, c.clipZNear, c.clipZFar, c.fov, c.aspect, c.world)
	return c
}

func (c *cameraImpl) ID() int {
	return c.id
}

func (c *cameraImpl) World() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world
}

func (c *cameraImpl) SetWorld(m mgl32.Mat4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.world = m
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.Translation(c.world)
}

func (c *cameraImpl) Mode() ProjectionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *cameraImpl) SetMode(mode ProjectionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

func (c *cameraImpl) ClipZNear() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clipZNear
}

func (c *cameraImpl) ClipZFar() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clipZFar
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clipZNear = near
	c.clipZFar = far
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) ViewportRect() common.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewportRect
}

func (c *cameraImpl) SetViewportRect(r common.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportRect = r
}

func (c *cameraImpl) Depth() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

func (c *cameraImpl) SetDepth(depth float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth = depth
}

func (c *cameraImpl) ClearMode() ClearMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearMode
}

func (c *cameraImpl) SetClearMode(mode ClearMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearMode = mode
}

func (c *cameraImpl) BackgroundColor() mgl32.Vec4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backgroundColor
}

func (c *cameraImpl) SetBackgroundColor(col mgl32.Vec4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backgroundColor = col
}

func (c *cameraImpl) Mask() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mask
}

func (c *cameraImpl) SetMask(mask uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mask = mask
}

func (c *cameraImpl) AutoZFar() (AutoZFar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoZFar == nil {
		return AutoZFar{}, false
	}
	return *c.autoZFar, true
}

func (c *cameraImpl) SetAutoZFar(a *AutoZFar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil {
		c.autoZFar = nil
		return
	}
	cp := *a
	c.autoZFar = &cp
}

func (c *cameraImpl) AutoAspect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoAspect
}

func (c *cameraImpl) SetAutoAspect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoAspect = enabled
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(cc CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = cc
}

func (c *cameraImpl) Matrices() Matrices {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matrices
}

func (c *cameraImpl) Update(worldBounds common.AABB, targetAspect float32) Matrices {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.controller != nil {
		c.world = c.controller.WorldMatrix()
	}

	if c.autoAspect && targetAspect > 0 {
		c.aspect = autoAspect(targetAspect, c.viewportRect)
	}

	if c.autoZFar != nil {
		c.clipZFar = autoZFar(c.world, worldBounds, *c.autoZFar)
	}

	c.matrices = computeMatrices(c.mode, c.clipZNear, c.clipZFar, c.fov, c.aspect, c.world)
	return c.matrices
}
