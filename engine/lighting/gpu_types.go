package lighting

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// NoShadowMap is the shadow map reference of a mapped light whose shadow map does not exist yet.
// Backends bind a 1x1 "never shadowed" texture in its place.
const NoShadowMap = -1

// GPULightingSize is the size in bytes of a marshaled GPULighting uniform block.
const GPULightingSize = 47 * 16

// MappedLightGPU is the uniform data of one shadow mapped light.
type MappedLightGPU struct {
	ShadowMap        int
	Projection       mgl32.Mat4
	ColorInvRangeSqr mgl32.Vec4
	WorldPosOrDir    mgl32.Vec4
	Mask             mgl32.Vec4
}

// Set fills the mapped light. The inverse squared range is multiplied by worldPosOrDir.w so
// directional lights (w = 0) never attenuate.
func (m *MappedLightGPU) Set(proj mgl32.Mat4, color mgl32.Vec3, worldPosOrDir mgl32.Vec4, lightRange float32, mask mgl32.Vec4, shadowMap int) {
	m.Projection = proj
	m.ColorInvRangeSqr = color.Vec4(common.InverseSquare(lightRange) * worldPosOrDir.W())
	m.WorldPosOrDir = worldPosOrDir
	m.Mask = mask
	m.ShadowMap = shadowMap
}

// GPULighting is the per-setup lighting uniform data consumed by lit programs.
type GPULighting struct {
	NumPlainLights  int
	PositionOrDir   [MaxPlainLights]mgl32.Vec4
	ColorIVR        [MaxPlainLights]mgl32.Vec4
	NumMappedLights int
	MappedLight0    MappedLightGPU
	MappedLight1    MappedLightGPU
	// MappedLight01SIS holds (size, 1/size) of mapped light 0 in xy and of mapped light 1 in zw.
	MappedLight01SIS mgl32.Vec4
	NumCSMLights     int
	CSMLight         MappedLightGPU
	// CSMLightSIS holds (size, 1/size, 1 - 3/size): the full map size and the cascade border.
	CSMLightSIS    mgl32.Vec4
	CSMOffsetScale [light.CascadeCount]mgl32.Vec4
	Ambient        mgl32.Vec4
	// FogParams holds (mode, density, end, 1 / (end - start)).
	FogParams mgl32.Vec4
	FogColor  mgl32.Vec4
}

// SetPointLight writes plain light idx as a point light.
//
// Parameters:
//   - idx: plain light slot in [0, MaxPlainLights)
//   - pos: world position
//   - lightRange: attenuation range, must be positive
//   - color: premultiplied color, must not be black
func (g *GPULighting) SetPointLight(idx int, pos mgl32.Vec3, lightRange float32, color mgl32.Vec3) {
	if idx < 0 || idx >= MaxPlainLights {
		panic(fmt.Sprintf("lighting: plain light index %d out of range", idx))
	}
	if color.Dot(color) <= 0 || lightRange <= 0 {
		panic("lighting: point lights need a color and a positive range")
	}
	g.PositionOrDir[idx] = pos.Vec4(1)
	g.ColorIVR[idx] = color.Vec4(common.InverseSquare(lightRange))
}

// SetDirLight writes plain light idx as a directional light. The stored vector points towards the light.
//
// Parameters:
//   - idx: plain light slot in [0, MaxPlainLights)
//   - dir: world direction the light shines in
//   - color: premultiplied color, must not be black
func (g *GPULighting) SetDirLight(idx int, dir mgl32.Vec3, color mgl32.Vec3) {
	if idx < 0 || idx >= MaxPlainLights {
		panic(fmt.Sprintf("lighting: plain light index %d out of range", idx))
	}
	if color.Dot(color) <= 0 || dir.Dot(dir) <= 0 {
		panic("lighting: directional lights need a color and a direction")
	}
	g.PositionOrDir[idx] = dir.Mul(-1).Vec4(0)
	g.ColorIVR[idx] = color.Vec4(0)
}

// SetMappedLight writes mapped slot idx: 0 and 1 are spot or directional lights, 2 is the cascade light.
func (g *GPULighting) SetMappedLight(idx int, proj mgl32.Mat4, color mgl32.Vec3, worldPosOrDir mgl32.Vec4, lightRange float32, mask mgl32.Vec4, shadowMap, shadowMapSize int) {
	size := float32(shadowMapSize)
	switch idx {
	case 0:
		g.MappedLight0.Set(proj, color, worldPosOrDir, lightRange, mask, shadowMap)
		g.MappedLight01SIS[0] = size
		g.MappedLight01SIS[1] = 1 / size
	case 1:
		g.MappedLight1.Set(proj, color, worldPosOrDir, lightRange, mask, shadowMap)
		g.MappedLight01SIS[2] = size
		g.MappedLight01SIS[3] = 1 / size
	case 2:
		g.CSMLight.Set(proj, color, worldPosOrDir, lightRange, mask, shadowMap)
		g.CSMLightSIS = mgl32.Vec4{size, 1 / size, 1 - 3/size, 0}
	default:
		panic(fmt.Sprintf("lighting: mapped light index %d out of range", idx))
	}
}

// ComputeSpotMask returns the shader parameters of a spot cone's angular falloff:
// s = mask.xy * ndc.xy, falloff = min(max(mask.z - dot(s, s), mask.w), 1).
//
// Parameters:
//   - innerRadius: normalized radius where the falloff starts, in [0, 1)
//   - ratio: width / height of the cone, in (0, 1]
//
// Returns:
//   - mgl32.Vec4: the mask parameters
func ComputeSpotMask(innerRadius, ratio float32) mgl32.Vec4 {
	if innerRadius < 0 || innerRadius >= 1 || ratio <= 0 || ratio > 1 {
		panic(fmt.Sprintf("lighting: invalid spot cone inner radius %f ratio %f", innerRadius, ratio))
	}
	iri := 1 / (1 - innerRadius)
	siri := float32(math.Sqrt(float64(iri)))
	return mgl32.Vec4{siri, siri / ratio, 1 + innerRadius*iri, 0}
}

func lightColor(d *light.Data, gamma bool) mgl32.Vec3 {
	c := d.Color
	if gamma {
		c = common.LinearToSRGB(c.Vec4(1)).Vec3()
	}
	return c.Mul(d.Intensity)
}

func shadowMapOf(d *light.Data) (int, int) {
	if !d.Shadowed || d.Shadow.ShadowMap == light.NoRef {
		return NoShadowMap, 1
	}
	return d.Shadow.ShadowMap, d.Shadow.Resolution
}

func (g *GPULighting) addMappedLight(d *light.Data, gamma bool) {
	if g.NumMappedLights >= MaxMappedLights {
		panic("lighting: too many mapped lights")
	}
	tex, size := shadowMapOf(d)
	mask := mgl32.Vec4{0, 0, 0, 1}
	posOrDir := d.Forward().Mul(-1).Vec4(0)
	if d.Kind == light.KindSpot {
		mask = ComputeSpotMask(d.Spot.InnerRadius, d.Spot.Ratio)
		posOrDir = d.Position().Vec4(1)
	}
	g.SetMappedLight(g.NumMappedLights, d.Matrices.ViewProj, lightColor(d, gamma), posOrDir, d.ClipZFar, mask, tex, size)
	g.NumMappedLights++
}

func (g *GPULighting) addCascadeLight(d *light.Data, gamma bool) {
	if g.NumCSMLights >= MaxCSMLights {
		panic("lighting: too many cascade mapped lights")
	}
	tex, size := shadowMapOf(d)
	posOrDir := d.Forward().Mul(-1).Vec4(0)
	g.SetMappedLight(MaxMappedLights+g.NumCSMLights, d.Matrices.ViewProj, lightColor(d, gamma), posOrDir, d.ClipZFar, mgl32.Vec4{}, tex, size)
	for i, c := range d.Cascades {
		g.CSMOffsetScale[i] = mgl32.Vec4{c.Offset.X(), c.Offset.Y(), 0, c.Scale}
	}
	g.NumCSMLights++
}

// BuildGPULighting converts a setup into uniform data. Light snapshots are taken here, so the
// result can be shared by encoders running in parallel.
//
// Parameters:
//   - s: the lighting setup
//   - gamma: convert colors from linear to sRGB
//
// Returns:
//   - GPULighting: the uniform data
func BuildGPULighting(s *Setup, gamma bool) GPULighting {
	g := GPULighting{}
	g.MappedLight0.ShadowMap = NoShadowMap
	g.MappedLight1.ShadowMap = NoShadowMap
	g.CSMLight.ShadowMap = NoShadowMap

	if s.Ambient != nil {
		c := s.Ambient.Color
		if gamma {
			c = common.LinearToSRGB(c.Vec4(1)).Vec3()
		}
		g.Ambient = c.Mul(s.Ambient.Intensity).Vec4(0)
	}

	if s.Fog != nil {
		fog := s.Fog
		g.FogColor = fog.Color
		if gamma {
			g.FogColor = common.LinearToSRGB(fog.Color)
		}
		fogRange := fog.End - fog.Start
		if fogRange <= 0 {
			panic("lighting: fog end must be greater than fog start")
		}
		g.FogParams = mgl32.Vec4{float32(fog.Mode), fog.Density, fog.End, 1 / fogRange}
	}

	for i, l := range s.PlainLights {
		d := l.Data()
		if d.Kind == light.KindDirectional {
			g.SetDirLight(i, d.Forward(), lightColor(&d, gamma))
		} else {
			g.SetPointLight(i, d.Position(), d.ClipZFar, lightColor(&d, gamma))
		}
	}
	g.NumPlainLights = len(s.PlainLights)

	for _, l := range s.MappedLights() {
		d := l.Data()
		g.addMappedLight(&d, gamma)
	}

	if s.CSMLight != nil {
		d := s.CSMLight.Data()
		g.addCascadeLight(&d, gamma)
	}
	return g
}

func putVec4(buf []byte, off int, v mgl32.Vec4) int {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(v[i]))
	}
	return off + 16
}

func putMappedLight(buf []byte, off int, m *MappedLightGPU) int {
	for c := 0; c < 4; c++ {
		off = putVec4(buf, off, m.Projection.Col(c))
	}
	off = putVec4(buf, off, m.ColorInvRangeSqr)
	off = putVec4(buf, off, m.WorldPosOrDir)
	return putVec4(buf, off, m.Mask)
}

// Marshal serializes the lighting into a uniform block. Matrices are column major and the light
// counts lead the block as floats.
//
// Returns:
//   - []byte: GPULightingSize bytes ready for upload
func (g *GPULighting) Marshal() []byte {
	buf := make([]byte, GPULightingSize)
	off := putVec4(buf, 0, mgl32.Vec4{float32(g.NumPlainLights), float32(g.NumMappedLights), float32(g.NumCSMLights), 0})
	for i := range g.PositionOrDir {
		off = putVec4(buf, off, g.PositionOrDir[i])
	}
	for i := range g.ColorIVR {
		off = putVec4(buf, off, g.ColorIVR[i])
	}
	off = putMappedLight(buf, off, &g.MappedLight0)
	off = putMappedLight(buf, off, &g.MappedLight1)
	off = putVec4(buf, off, g.MappedLight01SIS)
	off = putMappedLight(buf, off, &g.CSMLight)
	off = putVec4(buf, off, g.CSMLightSIS)
	for i := range g.CSMOffsetScale {
		off = putVec4(buf, off, g.CSMOffsetScale[i])
	}
	off = putVec4(buf, off, g.Ambient)
	off = putVec4(buf, off, g.FogParams)
	putVec4(buf, off, g.FogColor)
	return buf
}
