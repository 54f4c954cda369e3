package lighting

import "github.com/go-gl/mathgl/mgl32"

// ViewSpace caches the light positions and directions of one setup transformed into a view.
// Each encoder slot owns one, so the transform runs once per view instead of once per draw.
type ViewSpace struct {
	PositionOrDir [MaxPlainLights]mgl32.Vec4
	MappedLight0  mgl32.Vec4
	MappedLight1  mgl32.Vec4
	CSMLight      mgl32.Vec4

	viewID   int
	setupRef int
}

// NewViewSpace returns an invalidated cache.
func NewViewSpace() ViewSpace {
	return ViewSpace{viewID: -1, setupRef: NoRef}
}

// Flush invalidates the cache. Called once per frame since view ids are reassigned.
func (v *ViewSpace) Flush() {
	v.viewID = -1
	v.setupRef = NoRef
}

// Valid reports whether the cache holds setupRef transformed for viewID.
func (v *ViewSpace) Valid(viewID uint16, setupRef int) bool {
	return v.viewID == int(viewID) && v.setupRef == setupRef
}

// TransformToViewSpace fills dest with g's lights transformed by view, unless dest already holds
// them for viewID and setupRef.
//
// Parameters:
//   - view: the world to view matrix
//   - dest: the slot's cache
//   - viewID: the view being encoded
//   - setupRef: the setup g was built from
//
// Returns:
//   - bool: true if the cache was refreshed
func (g *GPULighting) TransformToViewSpace(view mgl32.Mat4, dest *ViewSpace, viewID uint16, setupRef int) bool {
	if dest.Valid(viewID, setupRef) {
		return false
	}
	for i := 0; i < g.NumPlainLights; i++ {
		dest.PositionOrDir[i] = view.Mul4x1(g.PositionOrDir[i])
	}
	dest.MappedLight0 = view.Mul4x1(g.MappedLight0.WorldPosOrDir)
	dest.MappedLight1 = view.Mul4x1(g.MappedLight1.WorldPosOrDir)
	dest.CSMLight = view.Mul4x1(g.CSMLight.WorldPosOrDir)
	dest.viewID = int(viewID)
	dest.setupRef = setupRef
	return true
}
