package light

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

var lightCount atomic.Int64

// Kind identifies the variant of a light source.
type Kind int

const (
	// KindPoint emits in all directions from a position and attenuates with distance up to its far clip.
	KindPoint Kind = iota

	// KindSpot emits in a cone along +z of its world transform.
	KindSpot

	// KindDirectional has no position, only the +z direction of its world transform.
	KindDirectional
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindSpot:
		return "spot"
	case KindDirectional:
		return "directional"
	}
	return "unknown"
}

// SpotParams holds the cone of a spot light.
type SpotParams struct {
	// FovDeg is the full cone angle in degrees.
	FovDeg float32
	// InnerRadius is the normalized radius in [0, 1) where the angular falloff starts.
	InnerRadius float32
	// Ratio is the width / height ratio of the cone cross section.
	Ratio float32
}

// NoRef marks a render graph reference that has not been created yet.
const NoRef = -1

// ShadowInfo marks a light as shadow mapped. The render graph lazily creates the shadow map
// texture and its render node the first time it sees the light and stores the references here.
type ShadowInfo struct {
	Resolution int
	ShadowMap  int
	Node       int
}

// Data is a read-only snapshot of a light, taken before parallel encoding starts.
type Data struct {
	ID        int
	Kind      Kind
	World     mgl32.Mat4
	ClipZNear float32
	ClipZFar  float32
	Intensity float32
	Color     mgl32.Vec3
	Spot      SpotParams
	Shadow    ShadowInfo
	Shadowed  bool
	Cascaded  bool
	Matrices  Matrices
	Cascades  [CascadeCount]Cascade
}

// Position returns the world position of the light.
func (d *Data) Position() mgl32.Vec3 { return common.Translation(d.World) }

// Forward returns the normalized world direction the light faces.
func (d *Data) Forward() mgl32.Vec3 { return common.Forward(d.World) }

type lightImpl struct {
	mu *sync.Mutex

	id      int
	kind    Kind
	world   mgl32.Mat4
	enabled bool

	clipZNear float32
	clipZFar  float32
	intensity float32
	color     mgl32.Vec3
	spot      SpotParams

	mask     *uint32
	shadow   *ShadowInfo
	csm      *CascadeShadowmappedLight
	autoMove *AutoMovingDirectionalLight

	matrices Matrices
	cascades [CascadeCount]Cascade
}

// Light is a light source component. Every light has a base (clip range, intensity, color),
// a variant tag (point, spot or directional) and optional shadow mapping, cascade and mask extras.
//
// Matrices and cascades are recomputed once per frame by UpdateMatrices and UpdateCascades
// before the lighting aggregator and render graph read them.
type Light interface {
	// ID returns the unique id of the light.
	ID() int

	// Kind returns the variant of the light.
	//
	// Returns:
	//   - Kind: point, spot or directional
	Kind() Kind

	// World returns the light's world transform. Lights face +z.
	World() mgl32.Mat4

	// SetWorld sets the light's world transform.
	//
	// Parameters:
	//   - m: the light to world matrix
	SetWorld(m mgl32.Mat4)

	// Enabled reports whether the light takes part in lighting.
	Enabled() bool

	// SetEnabled enables or disables the light.
	SetEnabled(enabled bool)

	// SetColor sets the linear color and the intensity multiplier.
	SetColor(color mgl32.Vec3, intensity float32)

	// SetClip sets the near/far range. For point lights the far clip is the light range.
	SetClip(near, far float32)

	// Mask returns the light mask and whether the light has one.
	// Lights without a mask affect every renderer.
	Mask() (uint32, bool)

	// Shadow returns the shadow info and whether the light is shadow mapped.
	Shadow() (ShadowInfo, bool)

	// SetShadowRefs stores the render graph node and texture created for the light's shadow map.
	//
	// Parameters:
	//   - node: the shadow render node reference, or NoRef
	//   - shadowMap: the shadow map texture reference, or NoRef
	SetShadowRefs(node, shadowMap int)

	// Cascade returns the cascade settings, or nil when the light has no cascades.
	Cascade() *CascadeShadowmappedLight

	// AutoMoving returns the auto moving settings, or nil when the light is placed manually.
	AutoMoving() *AutoMovingDirectionalLight

	// Matrices returns the matrices computed by the last UpdateMatrices call.
	Matrices() Matrices

	// Cascades returns the cascades computed by the last UpdateCascades call.
	Cascades() [CascadeCount]Cascade

	// UpdateMatrices recomputes the light's projection, view and frustum.
	//
	// Returns:
	//   - Matrices: the recomputed matrices
	UpdateMatrices() Matrices

	// UpdateCascades recomputes the cascades of a cascade shadow mapped light.
	// Lights without cascades, or whose cascade camera is missing, are left unchanged.
	//
	// Returns:
	//   - bool: true if the cascades were recomputed
	UpdateCascades() bool

	// Data returns a value snapshot of the light.
	//
	// Returns:
	//   - Data: the snapshot
	Data() Data
}

var _ Light = &lightImpl{}

// NewLight creates a light of the given kind.
// Defaults: white, intensity 1, clip range [0.1, 100], 60 degree spot cone, enabled, no mask, no shadows.
//
// Parameters:
//   - kind: the light variant
//   - options: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(kind Kind, options ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		id:        int(lightCount.Add(1)),
		kind:      kind,
		world:     mgl32.Ident4(),
		enabled:   true,
		clipZNear: 0.1,
		clipZFar:  100,
		intensity: 1,
		color:     mgl32.Vec3{1, 1, 1},
		spot:      SpotParams{FovDeg: 60, InnerRadius: 0.5, Ratio: 1},
	}

	for _, option := range options {
		option(l)
	}

	if l.csm != nil {
		if l.kind != KindDirectional || l.shadow == nil || l.autoMove == nil {
			panic("light: cascade shadow mapped lights must be shadow mapped auto moving directional lights")
		}
		l.csm.Validate()
	}

	l.matrices = computeMatrices(l.kind, l.clipZNear, l.clipZFar, l.spot.FovDeg, l.world)
	return l
}

func (l *lightImpl) ID() int {
	return l.id
}

func (l *lightImpl) Kind() Kind {
	return l.kind
}

func (l *lightImpl) World() mgl32.Mat4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world
}

func (l *lightImpl) SetWorld(m mgl32.Mat4) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.world = m
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *lightImpl) SetColor(color mgl32.Vec3, intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
	l.intensity = intensity
}

func (l *lightImpl) SetClip(near, far float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clipZNear = near
	l.clipZFar = far
}

func (l *lightImpl) Mask() (uint32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mask == nil {
		return common.AllBits, false
	}
	return *l.mask, true
}

func (l *lightImpl) Shadow() (ShadowInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shadow == nil {
		return ShadowInfo{Node: NoRef, ShadowMap: NoRef}, false
	}
	return *l.shadow, true
}

func (l *lightImpl) SetShadowRefs(node, shadowMap int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shadow == nil {
		return
	}
	l.shadow.Node = node
	l.shadow.ShadowMap = shadowMap
}

func (l *lightImpl) Cascade() *CascadeShadowmappedLight {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.csm
}

func (l *lightImpl) AutoMoving() *AutoMovingDirectionalLight {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autoMove
}

func (l *lightImpl) Matrices() Matrices {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matrices
}

func (l *lightImpl) Cascades() [CascadeCount]Cascade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cascades
}

func (l *lightImpl) UpdateMatrices() Matrices {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matrices = computeMatrices(l.kind, l.clipZNear, l.clipZFar, l.spot.FovDeg, l.world)
	return l.matrices
}

func (l *lightImpl) UpdateCascades() bool {
	l.mu.Lock()
	csm := l.csm
	world := l.world
	l.mu.Unlock()

	if csm == nil {
		return false
	}
	cascades, ok := ComputeCascades(world, csm)
	if !ok {
		return false
	}

	l.mu.Lock()
	l.cascades = cascades
	l.mu.Unlock()
	return true
}

func (l *lightImpl) Data() Data {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := Data{
		ID:        l.id,
		Kind:      l.kind,
		World:     l.world,
		ClipZNear: l.clipZNear,
		ClipZFar:  l.clipZFar,
		Intensity: l.intensity,
		Color:     l.color,
		Spot:      l.spot,
		Shadow:    ShadowInfo{Node: NoRef, ShadowMap: NoRef},
		Matrices:  l.matrices,
		Cascades:  l.cascades,
	}
	if l.shadow != nil {
		d.Shadow = *l.shadow
		d.Shadowed = true
	}
	d.Cascaded = l.csm != nil
	return d
}
