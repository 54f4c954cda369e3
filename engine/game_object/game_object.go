package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind selects the submission path of a GameObject.
type Kind int

const (
	// KindMesh draws a static mesh, or a dynamic mesh that is uploaded when dirty.
	KindMesh Kind = iota
	// KindParticles copies its dynamic mesh into transient buffers every frame.
	KindParticles
	// KindSkinned draws a mesh deformed by bone matrices on the GPU, or a CPU skinned dynamic mesh.
	KindSkinned
)

func (k Kind) String() string {
	switch k {
	case KindParticles:
		return "particles"
	case KindSkinned:
		return "skinned"
	}
	return "mesh"
}

// ShadowCastingMode controls which pass types an object is drawn into.
type ShadowCastingMode int

const (
	// ShadowsOn draws the object into color and shadow map passes.
	ShadowsOn ShadowCastingMode = iota
	// ShadowsOff skips shadow map passes.
	ShadowsOff
	// ShadowsOnly skips opaque and transparent passes.
	ShadowsOnly
)

// Skin holds the bone palette of a skinned object. GPU skinning uploads Bones as a uniform array
// and reads Weights, one per bind pose vertex, as a second vertex stream. CPU skinning draws the
// pre-skinned dynamic mesh produced by an external skinning step.
type Skin struct {
	Bones      []mgl32.Mat4
	Weights    []mesh.SkinnedVertex
	CanUseGPU  bool
	CanUseCPU  bool
	SkinnedCPU *mesh.DynamicMesh
}

// Usable reports whether the skin can be drawn with the selected skinning path.
// GPU and CPU skinning are exclusive: an object that only supports the other path is skipped.
func (s *Skin) Usable(gpuSkinning bool) bool {
	if gpuSkinning && s.CanUseCPU && !s.CanUseGPU {
		return false
	}
	if !gpuSkinning && !s.CanUseCPU && s.CanUseGPU {
		return false
	}
	return true
}

// Gizmo is a bit set of debug shapes drawn for an object.
type Gizmo uint8

const (
	GizmoWorldBounds Gizmo = 1 << iota
	GizmoObjectBounds
	GizmoSphere
	GizmoTransform
	GizmoNormals
)

// GizmoStyle configures how gizmo lines are drawn.
type GizmoStyle struct {
	// Width is the line width in pixels.
	Width float32
	Color mgl32.Vec4
	// Length is the axis length of GizmoTransform and GizmoNormals.
	Length float32
	// Subdiv is the number of segments of each GizmoSphere circle, at least 4.
	Subdiv int
}

// DefaultGizmoStyle is used when an object enables gizmos without a style.
var DefaultGizmoStyle = GizmoStyle{Width: 2, Color: mgl32.Vec4{1, 1, 0, 1}, Length: 1, Subdiv: 16}

type gameObject struct {
	mu      *sync.Mutex
	id      uint64
	name    string
	enabled atomic.Bool
	kind    Kind

	meshData   *mesh.Data
	dynamic    *mesh.DynamicMesh
	startIndex int
	indexCount int
	simpleMat  *mesh.SimpleMaterial
	litMat     *mesh.LitMaterial

	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3
	world    mgl32.Mat4

	cameraMask    uint32
	shadowMask    uint32
	lightMask     uint32
	hasLightMask  bool
	shadowCasting ShadowCastingMode

	localBounds common.AABB
	worldBounds common.WorldBounds
	worldSphere common.WorldBoundingSphere

	lightingRef int
	renderGroup int

	skin          *Skin
	gizmos        Gizmo
	gizmoStyle    GizmoStyle
	attachedLight light.Light
}

// GameObject is a drawable entity: a mesh with a material, a world transform, visibility masks and
// the bounds and references the frame stages compute for it.
//
// The bounds stage writes world bounds, the lighting aggregator writes the lighting reference and
// render group assignment writes the render group. Submission reads them from several workers,
// so every accessor is safe for concurrent use.
type GameObject interface {
	rendergraph.Drawable
	lighting.Receiver

	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Name returns the label used in logs.
	Name() string

	// Enabled returns whether this object is drawn.
	Enabled() bool

	// SetEnabled sets whether the object is drawn.
	SetEnabled(enabled bool)

	// Kind returns the submission path of the object.
	Kind() Kind

	// Mesh returns the static mesh data, or nil when the object draws a dynamic mesh.
	Mesh() *mesh.Data

	// DynamicMesh returns the dynamic mesh, or nil when the object draws static data.
	DynamicMesh() *mesh.DynamicMesh

	// IndexRange returns the first index and the number of indices drawn. A negative count draws
	// every index from start.
	IndexRange() (start, count int)

	// SimpleMaterial returns the unlit material, or nil.
	SimpleMaterial() *mesh.SimpleMaterial

	// LitMaterial returns the lit material, or nil.
	LitMaterial() *mesh.LitMaterial

	// Lit reports whether the object uses a lit material and therefore receives a lighting setup.
	Lit() bool

	// Position returns the translation of the object.
	Position() mgl32.Vec3

	// SetPosition moves the object, keeping rotation and scale.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// Rotation returns the euler angles of the object in radians, applied x then y then z.
	Rotation() mgl32.Vec3

	// SetRotation rotates the object, keeping position and scale.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation angles in radians
	SetRotation(rx, ry, rz float32)

	// Scale returns the scale of the object.
	Scale() mgl32.Vec3

	// SetScale scales the object, keeping position and rotation.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// World returns the object to world matrix.
	World() mgl32.Mat4

	// SetWorld replaces the object to world matrix. Position, rotation and scale are not updated
	// and are overwritten by the next call to one of their setters.
	//
	// Parameters:
	//   - m: the object to world matrix
	SetWorld(m mgl32.Mat4)

	// SetCameraMask sets the cameras the object is visible to.
	SetCameraMask(mask uint32)

	// SetShadowMask sets the shadow casting lights the object is drawn for.
	SetShadowMask(mask uint32)

	// SetLightMask sets the lights affecting the object. ok=false clears the mask so every light applies.
	SetLightMask(mask uint32, ok bool)

	// ShadowCasting returns whether the object is drawn into color passes, shadow passes or both.
	ShadowCasting() ShadowCastingMode

	// RenderGroup returns the render group assigned by the render graph, or rendergraph.NoGroup.
	RenderGroup() int

	// LocalBounds returns the object space bounds of the mesh.
	LocalBounds() common.AABB

	// UpdateBounds recomputes the world bounds and bounding sphere from the world matrix and the
	// local bounds. Dynamic meshes recompute their local bounds first.
	//
	// Returns:
	//   - common.WorldBounds: the eight world corners
	//   - common.WorldBoundingSphere: the world bounding sphere
	UpdateBounds() (common.WorldBounds, common.WorldBoundingSphere)

	// Bounds returns the values computed by the last UpdateBounds call.
	Bounds() (common.WorldBounds, common.WorldBoundingSphere)

	// Skin returns the bone palette of a skinned object, or nil.
	Skin() *Skin

	// SetBones replaces the bone matrices of a skinned object.
	SetBones(bones []mgl32.Mat4)

	// Gizmos returns the enabled debug shapes and their style.
	Gizmos() (Gizmo, GizmoStyle)

	// SetGizmos enables debug shapes.
	SetGizmos(g Gizmo, style GizmoStyle)

	// Light returns the Light attached to this object, or nil if none is set.
	//
	// Returns:
	//   - light.Light: the attached light or nil
	Light() light.Light

	// SetLight attaches a Light to this object. The scene moves an attached light with the
	// object every frame. Pass nil to detach.
	//
	// Parameters:
	//   - l: the Light to attach, or nil to detach
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Exactly one of a static or a dynamic mesh and exactly one of a simple or a lit material are
// required, and a lit material needs lit vertices. Violations panic.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:          &sync.Mutex{},
		scale:       mgl32.Vec3{1, 1, 1},
		world:       mgl32.Ident4(),
		indexCount:  -1,
		cameraMask:  common.AllBits,
		shadowMask:  common.AllBits,
		lightingRef: lighting.NoRef,
		renderGroup: rendergraph.NoGroup,
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}

	if (obj.meshData == nil) == (obj.dynamic == nil) {
		panic("game_object: an object needs exactly one of a static or a dynamic mesh")
	}
	if (obj.simpleMat == nil) == (obj.litMat == nil) {
		panic("game_object: an object needs exactly one of a simple or a lit material")
	}
	if obj.litMat != nil && obj.meshKind() != mesh.KindLit {
		panic("game_object: a lit material needs a lit mesh")
	}
	if obj.kind == KindParticles && obj.dynamic == nil {
		panic("game_object: particles need a dynamic mesh")
	}
	if obj.kind == KindSkinned && obj.skin == nil {
		panic("game_object: a skinned object needs a skin")
	}
	if obj.meshData != nil {
		obj.localBounds = obj.meshData.ComputeBounds()
	}
	return obj
}

func (g *gameObject) meshKind() mesh.Kind {
	if g.meshData != nil {
		return g.meshData.Kind
	}
	return g.dynamic.Kind
}

func (g *gameObject) composeWorld() {
	rot := mgl32.AnglesToQuat(g.rotation.X(), g.rotation.Y(), g.rotation.Z(), mgl32.XYZ).Mat4()
	g.world = mgl32.Translate3D(g.position.X(), g.position.Y(), g.position.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(g.scale.X(), g.scale.Y(), g.scale.Z()))
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Kind() Kind {
	return g.kind
}

func (g *gameObject) Mesh() *mesh.Data {
	return g.meshData
}

func (g *gameObject) DynamicMesh() *mesh.DynamicMesh {
	return g.dynamic
}

func (g *gameObject) IndexRange() (start, count int) {
	return g.startIndex, g.indexCount
}

func (g *gameObject) SimpleMaterial() *mesh.SimpleMaterial {
	return g.simpleMat
}

func (g *gameObject) LitMaterial() *mesh.LitMaterial {
	return g.litMat
}

func (g *gameObject) Lit() bool {
	return g.litMat != nil
}

func (g *gameObject) Transparent() bool {
	if g.litMat != nil {
		return g.litMat.Transparent
	}
	return g.simpleMat.Transparent
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = mgl32.Vec3{x, y, z}
	g.composeWorld()
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = mgl32.Vec3{rx, ry, rz}
	g.composeWorld()
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
	g.composeWorld()
}

func (g *gameObject) World() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world
}

func (g *gameObject) SetWorld(m mgl32.Mat4) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.world = m
}

func (g *gameObject) CameraMask() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cameraMask
}

func (g *gameObject) SetCameraMask(mask uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cameraMask = mask
}

func (g *gameObject) ShadowMask() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowMask
}

func (g *gameObject) SetShadowMask(mask uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shadowMask = mask
}

func (g *gameObject) LightMask() (uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lightMask, g.hasLightMask
}

func (g *gameObject) SetLightMask(mask uint32, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lightMask = mask
	g.hasLightMask = ok
}

func (g *gameObject) ShadowCasting() ShadowCastingMode {
	return g.shadowCasting
}

func (g *gameObject) LightingRef() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lightingRef
}

func (g *gameObject) SetLightingRef(ref int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lightingRef = ref
}

func (g *gameObject) RenderGroup() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.renderGroup
}

func (g *gameObject) SetRenderGroup(group int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.renderGroup = group
}

func (g *gameObject) LocalBounds() common.AABB {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.localBounds
}

func (g *gameObject) UpdateBounds() (common.WorldBounds, common.WorldBoundingSphere) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.meshData == nil {
		src := g.dynamic
		if g.skin != nil && g.skin.SkinnedCPU != nil {
			src = g.skin.SkinnedCPU
		}
		g.localBounds = src.ComputeBounds()
	}
	g.worldBounds = common.AxisAlignedToWorldBounds(g.world, g.localBounds)
	g.worldSphere = common.WorldSphereFromAABB(g.world, g.localBounds)
	return g.worldBounds, g.worldSphere
}

func (g *gameObject) Bounds() (common.WorldBounds, common.WorldBoundingSphere) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.worldBounds, g.worldSphere
}

func (g *gameObject) Skin() *Skin {
	return g.skin
}

func (g *gameObject) SetBones(bones []mgl32.Mat4) {
	if g.skin == nil {
		panic("game_object: SetBones on an object without a skin")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.skin.Bones = bones
}

func (g *gameObject) Gizmos() (Gizmo, GizmoStyle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gizmos, g.gizmoStyle
}

func (g *gameObject) SetGizmos(gz Gizmo, style GizmoStyle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gizmos = gz
	g.gizmoStyle = style
}

func (g *gameObject) Light() light.Light {
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light) {
	g.attachedLight = l
}
