package submit

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

// visible reports whether an item survives the pass frustum. The sphere test rejects first; an
// item fully inside the sphere test skips the box test.
func (s *submitter) visible(it *drawItem, p *rendergraph.Pass) bool {
	if it.sphere.Radius > 0 {
		switch common.CullSphere(it.sphere, &p.Frustum) {
		case common.Outside:
			return false
		case common.Inside:
			return true
		}
	}
	if s.boxCulling {
		return common.CullBox(&it.bounds, &p.Frustum) != common.Outside
	}
	return true
}

// encode draws one item into one pass.
func (s *submitter) encode(sl *slot, fs *frameState, it *drawItem, p *rendergraph.Pass) {
	if p.ViewID == rendergraph.ViewIDUnassigned {
		return
	}
	switch it.shadowMode {
	case game_object.ShadowsOff:
		if p.Type == rendergraph.PassShadowMap {
			return
		}
	case game_object.ShadowsOnly:
		if p.Type == rendergraph.PassOpaque || p.Type == rendergraph.PassTransparent {
			return
		}
	}
	if !s.visible(it, p) {
		sl.stats.Culled++
		return
	}
	if it.particles != nil && !s.allocParticles(sl, fs, it) {
		return
	}

	enc := s.encoder(sl)
	switch p.Type {
	case rendergraph.PassZOnly:
		state := renderer.DepthOnlyState
		if p.FlipCulling() {
			state = renderer.FlipCulling(state)
		}
		s.encodeDepth(sl, enc, it, p, state)
	case rendergraph.PassShadowMap:
		state := renderer.DepthOnlyState
		if !p.FlipCulling() {
			state = renderer.FlipCulling(state)
		}
		s.encodeDepth(sl, enc, it, p, state)
	case rendergraph.PassTransparent:
		s.encodeColor(sl, fs, enc, it, p, p.ComputeSortDepth(it.sortPos))
	case rendergraph.PassOpaque:
		s.encodeColor(sl, fs, enc, it, p, 0)
	default:
		logger.Errorf("Object %d is in render group %d with a %s pass.", it.obj.ID(), it.group, p.Type)
		panic(fmt.Sprintf("submit: pass type %s is not drawable", p.Type))
	}
}

func (s *submitter) encodeColor(sl *slot, fs *frameState, enc renderer.Encoder, it *drawItem, p *rendergraph.Pass, depth uint32) {
	if it.lit != nil {
		s.encodeLit(sl, fs, enc, it, p, depth)
	} else {
		s.encodeSimple(sl, enc, it, p, depth)
	}
}

// encodeDepth draws an item with the depth only program.
func (s *submitter) encodeDepth(sl *slot, enc renderer.Encoder, it *drawItem, p *rendergraph.Pass, state uint64) {
	enc.SetState(state, 0)
	enc.SetTransform(it.world)
	enc.SetUniform(s.u.bias, mgl32.Vec4{})
	if len(it.bones) > 0 {
		enc.SetUniformMat4(s.u.bones, it.bones...)
	}
	it.bind(enc)
	enc.Submit(p.ViewID, it.programs.depth, 0)
	sl.stats.Draws++
}

func (s *submitter) encodeSimple(sl *slot, enc renderer.Encoder, it *drawItem, p *rendergraph.Pass, depth uint32) {
	m := it.simple
	state := m.State
	if p.FlipCulling() {
		state = renderer.FlipCulling(state)
	}
	enc.SetState(state, 0)
	enc.SetTransform(it.world)
	enc.SetUniform(s.u.color, m.ConstAlbedoOpacity)
	enc.SetUniform(s.u.texMad, m.MainTextureScaleTranslate)
	enc.SetUniform(s.u.billboarded, m.Billboarded)
	enc.SetTexture(stageAlbedo, s.u.texAlbedo, m.TexAlbedoOpacity)
	if len(it.bones) > 0 {
		enc.SetUniformMat4(s.u.bones, it.bones...)
	}
	it.bind(enc)
	enc.Submit(p.ViewID, it.programs.color, depth)
	sl.stats.Draws++
}

func (s *submitter) encodeLit(sl *slot, fs *frameState, enc renderer.Encoder, it *drawItem, p *rendergraph.Pass, depth uint32) {
	m := it.lit
	state := m.State
	if p.FlipCulling() {
		state = renderer.FlipCulling(state)
	}
	enc.SetState(state, 0)
	enc.SetTransform(it.world)
	enc.SetUniformMat4(s.u.modelInverseTranspose, it.world.Inv().Transpose())
	enc.SetUniform(s.u.albedoOpacity, m.ConstAlbedoOpacity)
	enc.SetUniform(s.u.metalSmoothnessBillboard, m.ConstMetalSmoothnessBillboard)
	enc.SetUniform(s.u.emissiveNormalZScale, m.ConstEmissiveNormalMapZScale)
	enc.SetUniform(s.u.texMad, m.MainTextureScaleTranslate)
	enc.SetUniform(s.u.smoothness, m.Smoothness)
	enc.SetTexture(stageAlbedo, s.u.texAlbedo, m.TexAlbedoOpacity)
	enc.SetTexture(stageMetal, s.u.texMetal, m.TexMetal)
	enc.SetTexture(stageNormal, s.u.texNormal, m.TexNormal)
	enc.SetTexture(stageEmissive, s.u.texEmissive, m.TexEmissive)
	s.setLighting(sl, fs, enc, it.lightingRef, p)
	if len(it.bones) > 0 {
		enc.SetUniformMat4(s.u.bones, it.bones...)
	}
	it.bind(enc)
	enc.Submit(p.ViewID, it.programs.color, depth)
	sl.stats.Draws++
}

// setLighting uploads the lights of a setup. Light positions and directions are transformed into
// the pass view once per slot, view and setup.
func (s *submitter) setLighting(sl *slot, fs *frameState, enc renderer.Encoder, ref int, p *rendergraph.Pass) {
	g := fs.lightingFor(ref)
	g.TransformToViewSpace(p.View, &sl.viewSpace, p.ViewID, ref)
	vs := &sl.viewSpace

	n := g.NumPlainLights
	enc.SetUniform(s.u.numLights, mgl32.Vec4{float32(n), float32(g.NumMappedLights), float32(g.NumCSMLights), 0})
	if n > 0 {
		enc.SetUniform(s.u.lightPosOrDir, vs.PositionOrDir[:n]...)
		enc.SetUniform(s.u.lightColorIVR, g.ColorIVR[:n]...)
	}

	enc.SetUniformMat4(s.u.mappedMatrix, g.MappedLight0.Projection, g.MappedLight1.Projection)
	enc.SetUniform(s.u.mappedColorIVR, g.MappedLight0.ColorInvRangeSqr, g.MappedLight1.ColorInvRangeSqr)
	enc.SetUniform(s.u.mappedViewPosOrDir, vs.MappedLight0, vs.MappedLight1)
	enc.SetUniform(s.u.mappedMask, g.MappedLight0.Mask, g.MappedLight1.Mask)
	enc.SetUniform(s.u.mappedSizeInvSize01, g.MappedLight01SIS)
	enc.SetTexture(stageShadow0, s.u.texShadow0, s.shadowTexture(fs, g.MappedLight0.ShadowMap))
	enc.SetTexture(stageShadow1, s.u.texShadow1, s.shadowTexture(fs, g.MappedLight1.ShadowMap))

	enc.SetUniformMat4(s.u.csmMatrix, g.CSMLight.Projection)
	enc.SetUniform(s.u.csmColorIVR, g.CSMLight.ColorInvRangeSqr)
	enc.SetUniform(s.u.csmViewDir, vs.CSMLight)
	enc.SetUniform(s.u.csmSizeInvSize, g.CSMLightSIS)
	enc.SetUniform(s.u.csmOffsetScale, g.CSMOffsetScale[:]...)
	enc.SetTexture(stageShadowCSM, s.u.texShadowCSM, s.shadowTexture(fs, g.CSMLight.ShadowMap))

	enc.SetUniform(s.u.ambient, g.Ambient)
	enc.SetUniform(s.u.fogParams, g.FogParams)
	enc.SetUniform(s.u.fogColor, g.FogColor)
}

// shadowTexture returns the texture of a shadow map target, or the placeholder that never shadows.
func (s *submitter) shadowTexture(fs *frameState, target int) renderer.Handle {
	if target == lighting.NoShadowMap {
		return s.noShadow
	}
	if h := fs.graph.TargetHandle(target); h.Valid() {
		return h
	}
	return s.noShadow
}
