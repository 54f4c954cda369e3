package renderer

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Built-in members of the draw uniform block, filled from the draw and its view.
const (
	uniformModel = "u_model"
	uniformView  = "u_view"
	uniformProj  = "u_proj"
)

// uniformAlignment is the dynamic offset alignment of uniform buffers.
const uniformAlignment = 256

// transientLayout places the transient allocations of a frame in one vertex and one index upload.
// Both byte slices are padded to 4 bytes per allocation.
type transientLayout struct {
	vertices      []byte
	indices       []byte
	vertexOffsets map[*TransientVertexBuffer]uint64
	indexOffsets  map[*TransientIndexBuffer]uint32
}

// layoutTransients collects the transient allocations referenced by draws, each once.
//
// Parameters:
//   - draws: the draws of a frame
//
// Returns:
//   - transientLayout: the upload data with byte offsets per vertex allocation and index offsets
//     per index allocation
func layoutTransients(draws []DrawRecord) transientLayout {
	l := transientLayout{
		vertexOffsets: map[*TransientVertexBuffer]uint64{},
		indexOffsets:  map[*TransientIndexBuffer]uint32{},
	}
	for i := range draws {
		d := &draws[i]
		if tvb := d.TransientVertices; tvb != nil {
			if _, ok := l.vertexOffsets[tvb]; !ok {
				l.vertexOffsets[tvb] = uint64(len(l.vertices))
				l.vertices = append(l.vertices, tvb.Data...)
				l.vertices = append(l.vertices, make([]byte, int(align(uint64(len(l.vertices)), 4))-len(l.vertices))...)
			}
		}
		if tib := d.TransientIndices; tib != nil {
			if _, ok := l.indexOffsets[tib]; !ok {
				l.indexOffsets[tib] = uint32(len(l.indices) / 2)
				for _, idx := range tib.Data {
					l.indices = binary.LittleEndian.AppendUint16(l.indices, idx)
				}
				if len(l.indices)%4 != 0 {
					l.indices = append(l.indices, 0, 0)
				}
			}
		}
	}
	return l
}

// firstIndex returns the first index of a transient draw inside the frame's index upload.
func (l *transientLayout) firstIndex(d *DrawRecord) uint32 {
	return l.indexOffsets[d.TransientIndices] + d.StartIndex - d.TransientIndices.StartIndex
}

// packDrawUniforms writes the draw uniform block of one draw. Members without a value keep what
// dst holds; values beyond the size of their member are dropped.
//
// Parameters:
//   - dst: the destination, at least block.Size bytes
//   - block: the reflected layout of the block
//   - d: the draw, source of the model matrix and the named uniforms
//   - v: the view of the draw, source of the view and projection matrices
//   - name: resolves a uniform handle to its name
func packDrawUniforms(dst []byte, block shader.UniformBlock, d *DrawRecord, v *ViewRecord, name func(Handle) string) {
	writeMember(dst, block, uniformModel, Mat4ToVec4(d.Transform))
	if v != nil {
		writeMember(dst, block, uniformView, Mat4ToVec4(v.View))
		writeMember(dst, block, uniformProj, Mat4ToVec4(v.Projection))
	}
	for h, values := range d.Uniforms {
		writeMember(dst, block, name(h), values)
	}
}

func writeMember(dst []byte, block shader.UniformBlock, name string, values []mgl32.Vec4) {
	m, ok := block.Member(name)
	if !ok {
		return
	}
	end := min(m.Offset+m.Size(), uint64(len(dst)))
	off := m.Offset
	for _, v := range values {
		for _, f := range v {
			if off+4 > end {
				return
			}
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(f))
			off += 4
		}
	}
}
