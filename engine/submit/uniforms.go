package submit

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// MaxBones is the size of the bone matrix array of the skinned programs.
const MaxBones = 64

// Texture stages of the lit programs.
const (
	stageAlbedo uint8 = iota
	stageMetal
	stageNormal
	stageEmissive
	stageShadow0
	stageShadow1
	stageShadowCSM
)

// uniforms holds the handles of every uniform the programs read. They are created once and shared
// by all encoder slots.
type uniforms struct {
	// simple and lit material
	color                    renderer.Handle
	texMad                   renderer.Handle
	billboarded              renderer.Handle
	modelInverseTranspose    renderer.Handle
	albedoOpacity            renderer.Handle
	metalSmoothnessBillboard renderer.Handle
	emissiveNormalZScale     renderer.Handle
	smoothness               renderer.Handle

	// plain lights
	numLights     renderer.Handle
	lightPosOrDir renderer.Handle
	lightColorIVR renderer.Handle

	// mapped lights, two of each
	mappedMatrix        renderer.Handle
	mappedColorIVR      renderer.Handle
	mappedViewPosOrDir  renderer.Handle
	mappedMask          renderer.Handle
	mappedSizeInvSize01 renderer.Handle

	// cascade shadow mapped light
	csmMatrix      renderer.Handle
	csmColorIVR    renderer.Handle
	csmViewDir     renderer.Handle
	csmSizeInvSize renderer.Handle
	csmOffsetScale renderer.Handle

	ambient   renderer.Handle
	fogParams renderer.Handle
	fogColor  renderer.Handle

	bias  renderer.Handle
	bones renderer.Handle

	texAlbedo    renderer.Handle
	texMetal     renderer.Handle
	texNormal    renderer.Handle
	texEmissive  renderer.Handle
	texShadow0   renderer.Handle
	texShadow1   renderer.Handle
	texShadowCSM renderer.Handle

	all []renderer.Handle
}

type uniformDecl struct {
	dst  *renderer.Handle
	name string
	kind renderer.UniformType
	num  int
}

// createUniforms registers every uniform on the backend. On failure the uniforms created so far
// are destroyed.
func createUniforms(b renderer.Backend) (*uniforms, error) {
	u := &uniforms{}
	decls := []uniformDecl{
		{&u.color, "u_color0", renderer.UniformVec4, 1},
		{&u.texMad, "u_texmad", renderer.UniformVec4, 1},
		{&u.billboarded, "u_billboarded", renderer.UniformVec4, 1},
		{&u.modelInverseTranspose, "u_modelInverseTranspose", renderer.UniformMat4, 1},
		{&u.albedoOpacity, "u_albedo_opacity", renderer.UniformVec4, 1},
		{&u.metalSmoothnessBillboard, "u_metal_smoothness_billboarded", renderer.UniformVec4, 1},
		{&u.emissiveNormalZScale, "u_emissive_normalz", renderer.UniformVec4, 1},
		{&u.smoothness, "u_smoothness_params", renderer.UniformVec4, 1},
		{&u.numLights, "u_numlights", renderer.UniformVec4, 1},
		{&u.lightPosOrDir, "u_simplelight_posordir", renderer.UniformVec4, lighting.MaxPlainLights},
		{&u.lightColorIVR, "u_simplelight_color_ivr", renderer.UniformVec4, lighting.MaxPlainLights},
		{&u.mappedMatrix, "u_wl_light", renderer.UniformMat4, lighting.MaxMappedLights},
		{&u.mappedColorIVR, "u_light_color_ivr", renderer.UniformVec4, lighting.MaxMappedLights},
		{&u.mappedViewPosOrDir, "u_light_pos", renderer.UniformVec4, lighting.MaxMappedLights},
		{&u.mappedMask, "u_light_mask", renderer.UniformVec4, lighting.MaxMappedLights},
		{&u.mappedSizeInvSize01, "u_texShadow01sis", renderer.UniformVec4, 1},
		{&u.csmMatrix, "u_wl_csm", renderer.UniformMat4, 1},
		{&u.csmColorIVR, "u_csm_light_color", renderer.UniformVec4, 1},
		{&u.csmViewDir, "u_csm_light_dir", renderer.UniformVec4, 1},
		{&u.csmSizeInvSize, "u_csm_texsis", renderer.UniformVec4, 1},
		{&u.csmOffsetScale, "u_csm_offset_scale", renderer.UniformVec4, light.CascadeCount},
		{&u.ambient, "u_ambient", renderer.UniformVec4, 1},
		{&u.fogParams, "u_fogparams", renderer.UniformVec4, 1},
		{&u.fogColor, "u_fogcolor", renderer.UniformVec4, 1},
		{&u.bias, "u_bias", renderer.UniformVec4, 1},
		{&u.bones, "u_bones", renderer.UniformMat4, MaxBones},
		{&u.texAlbedo, "s_texAlbedoOpacity", renderer.UniformSampler, 1},
		{&u.texMetal, "s_texMetal", renderer.UniformSampler, 1},
		{&u.texNormal, "s_texNormal", renderer.UniformSampler, 1},
		{&u.texEmissive, "s_texEmissive", renderer.UniformSampler, 1},
		{&u.texShadow0, "s_texShadow0", renderer.UniformSampler, 1},
		{&u.texShadow1, "s_texShadow1", renderer.UniformSampler, 1},
		{&u.texShadowCSM, "s_texShadowCSM", renderer.UniformSampler, 1},
	}

	for _, d := range decls {
		h, err := b.CreateUniform(d.name, d.kind, d.num)
		if err != nil {
			u.destroy(b)
			return nil, fmt.Errorf("submit: create uniform %q: %w", d.name, err)
		}
		*d.dst = h
		u.all = append(u.all, h)
	}
	return u, nil
}

func (u *uniforms) destroy(b renderer.Backend) {
	for _, h := range u.all {
		b.Destroy(h)
	}
	u.all = nil
}
