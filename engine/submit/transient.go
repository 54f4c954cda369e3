package submit

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

// allocTransient allocates per-frame buffers. Running out of transient memory panics in strict
// mode and skips the draw otherwise.
//
// Parameters:
//   - sl: the slot whose counters record a skipped draw
//   - layout: the vertex layout
//   - numVertices: the number of vertices
//   - numIndices: the number of indices
//
// Returns:
//   - *renderer.TransientVertexBuffer: the vertex allocation, nil when skipped
//   - *renderer.TransientIndexBuffer: the index allocation, nil when skipped
func (s *submitter) allocTransient(sl *slot, layout renderer.VertexLayout, numVertices, numIndices int) (*renderer.TransientVertexBuffer, *renderer.TransientIndexBuffer) {
	tvb, tib, err := s.backend.AllocTransientBuffers(layout, uint32(numVertices), uint32(numIndices))
	if err == nil {
		return tvb, tib
	}
	if s.strict {
		logger.Errorf("Transient allocation of %d vertices and %d indices failed: %v", numVertices, numIndices, err)
		panic(fmt.Errorf("submit: out of transient memory: %w", err))
	}
	logger.Warning("Out of transient memory! Skipping draw call.")
	sl.stats.Skipped++
	return nil, nil
}

// allocParticles copies a particle mesh into transient buffers on the first pass that draws it.
// The allocation is shared by every later pass of the frame.
func (s *submitter) allocParticles(sl *slot, fs *frameState, it *drawItem) bool {
	if it.tvb != nil {
		return true
	}
	if it.oom {
		sl.stats.Skipped++
		return false
	}

	dm := it.particles
	tvb, tib := s.allocTransient(sl, dm.Kind.Layout(), dm.NumVertices, dm.NumIndices)
	if tvb == nil {
		it.oom = true
		return false
	}
	if dm.Kind == mesh.KindLit {
		copy(tvb.Data, mesh.MarshalLitVertices(dm.Lit[:dm.NumVertices]))
	} else {
		copy(tvb.Data, mesh.MarshalSimpleVertices(dm.Simple[:dm.NumVertices]))
	}
	copy(tib.Data, dm.Indices[:dm.NumIndices])
	it.tvb, it.tib = tvb, tib
	return true
}

// blitQuad returns a fullscreen quad in normalized device coordinates. Texture rows start at the
// top unless the backend's origin is bottom left.
func blitQuad(caps renderer.Caps) []mesh.SimpleVertex {
	v0, v1 := float32(1), float32(0)
	if caps.OriginBottomLeft {
		v0, v1 = 0, 1
	}
	white := [4]float32{1, 1, 1, 1}
	return []mesh.SimpleVertex{
		{Position: [3]float32{-1, -1, 0}, TexCoord: [2]float32{0, v0}, Color: white},
		{Position: [3]float32{1, -1, 0}, TexCoord: [2]float32{1, v0}, Color: white},
		{Position: [3]float32{1, 1, 0}, TexCoord: [2]float32{1, v1}, Color: white},
		{Position: [3]float32{-1, 1, 0}, TexCoord: [2]float32{0, v1}, Color: white},
	}
}

// submitBlitters draws every graph blitter: the source target as a textured quad into its
// fullscreen pass, scaled by the pass view matrix to keep the source aspect.
func (s *submitter) submitBlitters(sl *slot, fs *frameState) {
	for _, b := range fs.graph.Blitters {
		if b.Pass < 0 || b.Pass >= len(fs.graph.Passes) {
			continue
		}
		p := &fs.graph.Passes[b.Pass]
		if p.ViewID == rendergraph.ViewIDUnassigned {
			continue
		}
		tex := fs.graph.TargetHandle(b.Source)
		if !tex.Valid() {
			logger.Warningf("Blit into view %d has no source texture.", p.ViewID)
			sl.stats.Skipped++
			continue
		}

		tvb, tib := s.allocTransient(sl, mesh.SimpleLayout, 4, len(quadIndices))
		if tvb == nil {
			continue
		}
		copy(tvb.Data, mesh.MarshalSimpleVertices(blitQuad(fs.caps)))
		copy(tib.Data, quadIndices)

		enc := s.encoder(sl)
		enc.SetState(renderer.BlitState, 0)
		enc.SetTransform(mgl32.Ident4())
		enc.SetUniform(s.u.color, b.Color)
		enc.SetUniform(s.u.texMad, mgl32.Vec4{1, 1, 0, 0})
		enc.SetUniform(s.u.billboarded, mgl32.Vec4{})
		enc.SetTexture(stageAlbedo, s.u.texAlbedo, tex)
		enc.SetTransientIndexBuffer(tib, 0, tib.Count)
		enc.SetTransientVertexBuffer(0, tvb, 0, tvb.Count)
		enc.Submit(p.ViewID, s.programs.Simple, 0)
		sl.stats.Draws++
	}
}
