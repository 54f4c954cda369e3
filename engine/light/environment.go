package light

import "github.com/go-gl/mathgl/mgl32"

// AmbientLight is the flat light added to every lit surface whose light mask shares a bit with
// Mask. A zero Mask reaches every surface.
type AmbientLight struct {
	Color     mgl32.Vec3
	Intensity float32
	Mask      uint32
}

// Affects reports whether the ambient light reaches receivers with the given light mask.
func (a AmbientLight) Affects(entMask uint32) bool {
	return a.Mask == 0 || a.Mask&entMask != 0
}

// Effective returns the color scaled by the intensity.
func (a AmbientLight) Effective() mgl32.Vec3 {
	return a.Color.Mul(a.Intensity)
}

// Brightness returns the squared length of the effective ambient color.
func (a AmbientLight) Brightness() float32 {
	c := a.Effective()
	return c.Dot(c)
}

// FogMode selects the fog falloff.
type FogMode int

const (
	FogNone   FogMode = 0
	FogLinear FogMode = 1
	FogExp    FogMode = 2
	FogExp2   FogMode = 4
)

// Fog describes distance fog. Like AmbientLight, a zero Mask applies it to every receiver.
type Fog struct {
	Mode    FogMode
	Color   mgl32.Vec4
	Density float32
	Start   float32
	End     float32
	Mask    uint32
}

// Affects reports whether the fog applies to receivers with the given light mask.
func (f Fog) Affects(entMask uint32) bool {
	return f.Mask == 0 || f.Mask&entMask != 0
}

// Equal compares two fogs. Any two fogs with mode FogNone are equal.
func (f Fog) Equal(o Fog) bool {
	if f.Mode == FogNone && o.Mode == FogNone {
		return true
	}
	return f == o
}
