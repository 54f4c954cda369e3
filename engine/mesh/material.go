package mesh

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// SimpleMaterial is the logical description of an unlit material. Colors are linear.
type SimpleMaterial struct {
	Albedo       *Texture
	ConstAlbedo  mgl32.Vec3
	ConstOpacity float32
	TwoSided     bool
	Billboarded  bool
	Transparent  bool
	// Scale and Offset transform the main texture coordinates.
	Scale  mgl32.Vec2
	Offset mgl32.Vec2
}

// NewSimpleMaterial returns an opaque white material.
func NewSimpleMaterial() *SimpleMaterial {
	return &SimpleMaterial{ConstAlbedo: mgl32.Vec3{1, 1, 1}, ConstOpacity: 1, Scale: mgl32.Vec2{1, 1}}
}

// LitMaterial is the logical description of a lit material. Colors are linear.
type LitMaterial struct {
	Albedo   *Texture
	Metal    *Texture
	Normal   *Texture
	Emissive *Texture
	// Program overrides the default lit program when valid.
	Program renderer.Handle

	ConstAlbedo     mgl32.Vec3
	ConstOpacity    float32
	ConstMetal      float32
	ConstSmoothness float32
	ConstEmissive   mgl32.Vec3
	NormalMapZScale float32
	// SmoothnessAlbedoAlpha takes smoothness from the albedo alpha instead of the metal alpha.
	SmoothnessAlbedoAlpha bool

	TwoSided    bool
	Billboarded bool
	Transparent bool
	Scale       mgl32.Vec2
	Offset      mgl32.Vec2
}

// NewLitMaterial returns an opaque white dielectric material.
func NewLitMaterial() *LitMaterial {
	return &LitMaterial{
		ConstAlbedo:     mgl32.Vec3{1, 1, 1},
		ConstOpacity:    1,
		ConstSmoothness: 0.5,
		NormalMapZScale: 1,
		Scale:           mgl32.Vec2{1, 1},
	}
}

// Defaults are the placeholder resources materials fall back to.
type Defaults struct {
	WhiteTexture  renderer.Handle
	UpTexture     renderer.Handle
	LitProgram    renderer.Handle
	SimpleProgram renderer.Handle
}

// SimpleMaterialGPU is the resolved, draw-ready form of a SimpleMaterial.
type SimpleMaterialGPU struct {
	TexAlbedoOpacity renderer.Handle
	// ConstAlbedoOpacity is in sRGB when the display is gamma, otherwise linear.
	ConstAlbedoOpacity        mgl32.Vec4
	MainTextureScaleTranslate mgl32.Vec4
	Billboarded               mgl32.Vec4
	State                     uint64
	Loading                   bool
}

// LitMaterialGPU is the resolved, draw-ready form of a LitMaterial.
type LitMaterialGPU struct {
	TexAlbedoOpacity renderer.Handle
	TexMetal         renderer.Handle
	TexNormal        renderer.Handle
	TexEmissive      renderer.Handle
	Program          renderer.Handle

	ConstAlbedoOpacity            mgl32.Vec4
	ConstMetalSmoothnessBillboard mgl32.Vec4
	ConstEmissiveNormalMapZScale  mgl32.Vec4
	MainTextureScaleTranslate     mgl32.Vec4
	// Smoothness is x: smoothness from albedo alpha, y: smoothness from metal alpha, z: opaque.
	Smoothness mgl32.Vec4
	State      uint64
	Loading    bool
}

// MaterialState is the render state of a material: depth tested color writes, back face culling
// unless two sided or billboarded, and premultiplied alpha blending without depth writes when transparent.
func MaterialState(twoSided, billboarded, transparent bool) uint64 {
	state := renderer.StateWriteRgb | renderer.StateWriteA | renderer.StateDepthTestLess
	if !twoSided && !billboarded {
		state |= renderer.StateCullCcw
	}
	if transparent {
		state |= renderer.BlendFunc(renderer.StateBlendOne, renderer.StateBlendInvSrcAlpha)
	} else {
		state |= renderer.StateWriteZ
	}
	return state
}

func displayColor(c mgl32.Vec3, gamma bool) mgl32.Vec3 {
	if gamma {
		return common.LinearToSRGB(c.Vec4(1)).Vec3()
	}
	return c
}

func resolveTexture(b renderer.Backend, t *Texture, placeholder renderer.Handle) (renderer.Handle, bool) {
	if t == nil {
		return placeholder, false
	}
	return t.Resolve(b, placeholder)
}

func boolf(v bool) float32 {
	if v {
		return 1
	}
	return 0
}

// BuildSimpleMaterialGPU resolves a simple material.
//
// Parameters:
//   - b: the backend used to create texture handles
//   - m: the material
//   - d: placeholder resources
//   - gamma: convert constant colors to sRGB
//
// Returns:
//   - SimpleMaterialGPU: the draw-ready material; Loading is set while a texture is still loading
func BuildSimpleMaterialGPU(b renderer.Backend, m *SimpleMaterial, d Defaults, gamma bool) SimpleMaterialGPU {
	tex, loading := resolveTexture(b, m.Albedo, d.WhiteTexture)
	return SimpleMaterialGPU{
		TexAlbedoOpacity:          tex,
		ConstAlbedoOpacity:        displayColor(m.ConstAlbedo, gamma).Vec4(m.ConstOpacity),
		MainTextureScaleTranslate: mgl32.Vec4{m.Scale.X(), m.Scale.Y(), m.Offset.X(), m.Offset.Y()},
		Billboarded:               mgl32.Vec4{boolf(m.Billboarded), 0, 0, 0},
		State:                     MaterialState(m.TwoSided, m.Billboarded, m.Transparent),
		Loading:                   loading,
	}
}

// BuildLitMaterialGPU resolves a lit material.
//
// Parameters:
//   - b: the backend used to create texture handles
//   - m: the material
//   - d: placeholder resources
//   - gamma: convert constant colors to sRGB
//
// Returns:
//   - LitMaterialGPU: the draw-ready material; Loading is set while any texture is still loading
func BuildLitMaterialGPU(b renderer.Backend, m *LitMaterial, d Defaults, gamma bool) LitMaterialGPU {
	g := LitMaterialGPU{Program: d.LitProgram}
	if m.Program.Valid() {
		g.Program = m.Program
	}

	var loading [4]bool
	g.TexAlbedoOpacity, loading[0] = resolveTexture(b, m.Albedo, d.WhiteTexture)
	g.TexNormal, loading[1] = resolveTexture(b, m.Normal, d.UpTexture)
	g.TexMetal, loading[2] = resolveTexture(b, m.Metal, d.WhiteTexture)
	g.TexEmissive, loading[3] = resolveTexture(b, m.Emissive, d.WhiteTexture)
	g.Loading = loading[0] || loading[1] || loading[2] || loading[3]

	g.ConstAlbedoOpacity = displayColor(m.ConstAlbedo, gamma).Vec4(m.ConstOpacity)
	g.ConstMetalSmoothnessBillboard = mgl32.Vec4{m.ConstMetal, m.ConstSmoothness, boolf(m.Billboarded), 0}
	g.ConstEmissiveNormalMapZScale = displayColor(m.ConstEmissive, gamma).Vec4(m.NormalMapZScale)
	g.MainTextureScaleTranslate = mgl32.Vec4{m.Scale.X(), m.Scale.Y(), m.Offset.X(), m.Offset.Y()}
	g.Smoothness = mgl32.Vec4{
		boolf(!m.Transparent && m.SmoothnessAlbedoAlpha),
		boolf(!m.Transparent && !m.SmoothnessAlbedoAlpha),
		boolf(!m.Transparent),
		0,
	}
	g.State = MaterialState(m.TwoSided, m.Billboarded, m.Transparent)
	return g
}
