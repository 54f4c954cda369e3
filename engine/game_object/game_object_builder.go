package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithName sets the label used in logs.
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject is drawn. Objects are enabled by default.
//
// Parameters:
//   - enabled: true to draw the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithMesh draws static mesh data.
//
// Parameters:
//   - d: the mesh data
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the mesh
func WithMesh(d *mesh.Data) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.meshData = d
	}
}

// WithDynamicMesh draws a dynamic mesh that is uploaded whenever it is marked dirty.
func WithDynamicMesh(m *mesh.DynamicMesh) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.dynamic = m
	}
}

// WithParticles draws a dynamic mesh through per-frame transient buffers.
//
// Parameters:
//   - m: the particle geometry, rewritten by the particle system every frame
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the particle mesh
func WithParticles(m *mesh.DynamicMesh) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.dynamic = m
		obj.kind = KindParticles
	}
}

// WithSkin makes the object a skinned mesh. The static mesh holds the bind pose.
//
// Parameters:
//   - s: the bone palette and supported skinning paths
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the skin
func WithSkin(s *Skin) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.skin = s
		obj.kind = KindSkinned
	}
}

// WithIndexRange draws a sub range of the mesh indices. A negative count draws every index from start.
func WithIndexRange(start, count int) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.startIndex = start
		obj.indexCount = count
	}
}

// WithSimpleMaterial sets an unlit material.
func WithSimpleMaterial(m *mesh.SimpleMaterial) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.simpleMat = m
	}
}

// WithLitMaterial sets a lit material. Lit objects receive a lighting setup.
func WithLitMaterial(m *mesh.LitMaterial) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.litMat = m
	}
}

// WithPosition sets the initial position of the GameObject.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = mgl32.Vec3{x, y, z}
		obj.composeWorld()
	}
}

// WithScale sets the initial scale of the GameObject.
//
// Parameters:
//   - sx: the x scale factor
//   - sy: the y scale factor
//   - sz: the z scale factor
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial scale
func WithScale(sx, sy, sz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = mgl32.Vec3{sx, sy, sz}
		obj.composeWorld()
	}
}

// WithRotation sets the initial rotation of the GameObject in radians.
//
// Parameters:
//   - rx: the x rotation angle
//   - ry: the y rotation angle
//   - rz: the z rotation angle
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial rotation
func WithRotation(rx, ry, rz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = mgl32.Vec3{rx, ry, rz}
		obj.composeWorld()
	}
}

// WithWorld sets the object to world matrix directly.
func WithWorld(m mgl32.Mat4) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.world = m
	}
}

// WithCameraMask limits the cameras the object is visible to.
func WithCameraMask(mask uint32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.cameraMask = mask
	}
}

// WithShadowMask limits the shadow casting lights the object is drawn for.
func WithShadowMask(mask uint32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.shadowMask = mask
	}
}

// WithLightMask limits the lights that affect the object.
func WithLightMask(mask uint32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.lightMask = mask
		obj.hasLightMask = true
	}
}

// WithShadowCasting selects whether the object is drawn into color passes, shadow passes or both.
func WithShadowCasting(mode ShadowCastingMode) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.shadowCasting = mode
	}
}

// WithGizmos enables debug shapes with the default style.
func WithGizmos(g Gizmo) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.gizmos = g
		obj.gizmoStyle = DefaultGizmoStyle
	}
}

// WithLight attaches a Light to the GameObject. The scene moves the light with the object every frame.
//
// Parameters:
//   - l: the Light to attach
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the attached light
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.attachedLight = l
	}
}
