package mesh

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// SimpleVertex is the vertex of unlit meshes, sprites, particles and gizmo lines.
// Size: 48 bytes, tightly packed.
type SimpleVertex struct {
	Position     [3]float32 // offset  0
	TexCoord     [2]float32 // offset 12
	Color        [4]float32 // offset 20
	BillboardPos [3]float32 // offset 36
}

// Size returns the size of the SimpleVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *SimpleVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (v *SimpleVertex) Marshal() []byte {
	buf := make([]byte, SimpleVertexSize)
	v.put(buf)
	return buf
}

func (v *SimpleVertex) put(buf []byte) {
	off := putFloats(buf, 0, v.Position[:]...)
	off = putFloats(buf, off, v.TexCoord[:]...)
	off = putFloats(buf, off, v.Color[:]...)
	putFloats(buf, off, v.BillboardPos[:]...)
}

// LitVertex is the vertex of lit meshes.
// Size: 80 bytes, tightly packed.
type LitVertex struct {
	Position        [3]float32 // offset  0
	TexCoord        [2]float32 // offset 12
	Normal          [3]float32 // offset 20
	Tangent         [3]float32 // offset 32
	BillboardPos    [3]float32 // offset 44
	AlbedoOpacity   [4]float32 // offset 56
	MetalSmoothness [2]float32 // offset 72
}

// Size returns the size of the LitVertex struct in bytes.
func (v *LitVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (v *LitVertex) Marshal() []byte {
	buf := make([]byte, LitVertexSize)
	v.put(buf)
	return buf
}

func (v *LitVertex) put(buf []byte) {
	off := putFloats(buf, 0, v.Position[:]...)
	off = putFloats(buf, off, v.TexCoord[:]...)
	off = putFloats(buf, off, v.Normal[:]...)
	off = putFloats(buf, off, v.Tangent[:]...)
	off = putFloats(buf, off, v.BillboardPos[:]...)
	off = putFloats(buf, off, v.AlbedoOpacity[:]...)
	putFloats(buf, off, v.MetalSmoothness[:]...)
}

// SkinnedVertex is the second vertex stream of GPU skinned meshes: four bone weights and the
// matching indices into the bone palette, stored as floats.
// Size: 32 bytes, tightly packed.
type SkinnedVertex struct {
	BoneWeight [4]float32 // offset  0
	BoneIndex  [4]float32 // offset 16
}

func (v *SkinnedVertex) put(buf []byte) {
	off := putFloats(buf, 0, v.BoneWeight[:]...)
	putFloats(buf, off, v.BoneIndex[:]...)
}

const (
	SimpleVertexSize  = 48
	LitVertexSize     = 80
	SkinnedVertexSize = 32
)

func putFloats(buf []byte, off int, fs ...float32) int {
	for _, f := range fs {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	return off
}

// MarshalSimpleVertices packs vertices into one upload buffer.
func MarshalSimpleVertices(vs []SimpleVertex) []byte {
	buf := make([]byte, len(vs)*SimpleVertexSize)
	for i := range vs {
		vs[i].put(buf[i*SimpleVertexSize:])
	}
	return buf
}

// MarshalLitVertices packs vertices into one upload buffer.
func MarshalLitVertices(vs []LitVertex) []byte {
	buf := make([]byte, len(vs)*LitVertexSize)
	for i := range vs {
		vs[i].put(buf[i*LitVertexSize:])
	}
	return buf
}

// MarshalSkinnedVertices packs bone weights into one upload buffer.
func MarshalSkinnedVertices(vs []SkinnedVertex) []byte {
	buf := make([]byte, len(vs)*SkinnedVertexSize)
	for i := range vs {
		vs[i].put(buf[i*SkinnedVertexSize:])
	}
	return buf
}

// SimpleLayout is the vertex layout of SimpleVertex.
var SimpleLayout = renderer.VertexLayout{
	Name:   "simple",
	Stride: SimpleVertexSize,
	Attributes: []renderer.VertexAttribute{
		{Location: 0, Offset: 0, Components: 3},
		{Location: 1, Offset: 12, Components: 2},
		{Location: 2, Offset: 20, Components: 4},
		{Location: 3, Offset: 36, Components: 3},
	},
}

// LitLayout is the vertex layout of LitVertex.
var LitLayout = renderer.VertexLayout{
	Name:   "lit",
	Stride: LitVertexSize,
	Attributes: []renderer.VertexAttribute{
		{Location: 0, Offset: 0, Components: 3},
		{Location: 1, Offset: 12, Components: 2},
		{Location: 2, Offset: 20, Components: 3},
		{Location: 3, Offset: 32, Components: 3},
		{Location: 4, Offset: 44, Components: 3},
		{Location: 5, Offset: 56, Components: 4},
		{Location: 6, Offset: 72, Components: 2},
	},
}

// SkinnedLayout is the vertex layout of SkinnedVertex, bound as stream 1 after the lit or simple stream.
var SkinnedLayout = renderer.VertexLayout{
	Name:   "skinned",
	Stride: SkinnedVertexSize,
	Attributes: []renderer.VertexAttribute{
		{Location: 7, Offset: 0, Components: 4},
		{Location: 8, Offset: 16, Components: 4},
	},
}
