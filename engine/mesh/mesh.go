package mesh

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("mesh")

var meshCount atomic.Int64

// Kind selects the vertex schema of a mesh.
type Kind int

const (
	KindSimple Kind = iota
	KindLit
)

func (k Kind) String() string {
	if k == KindLit {
		return "lit"
	}
	return "simple"
}

// Layout returns the vertex layout of the schema.
func (k Kind) Layout() renderer.VertexLayout {
	if k == KindLit {
		return LitLayout
	}
	return SimpleLayout
}

// Data is immutable static mesh data. Exactly one of Simple and Lit holds the vertices.
type Data struct {
	id      int64
	Name    string
	Kind    Kind
	Indices []uint16
	Simple  []SimpleVertex
	Lit     []LitVertex
}

// NewSimpleData creates unlit mesh data.
//
// Parameters:
//   - name: a label for logs
//   - vertices: the vertices
//   - indices: triangle list indices
//
// Returns:
//   - *Data: the mesh data
func NewSimpleData(name string, vertices []SimpleVertex, indices []uint16) *Data {
	return &Data{id: meshCount.Add(1), Name: name, Kind: KindSimple, Simple: vertices, Indices: indices}
}

// NewLitData creates lit mesh data.
func NewLitData(name string, vertices []LitVertex, indices []uint16) *Data {
	return &Data{id: meshCount.Add(1), Name: name, Kind: KindLit, Lit: vertices, Indices: indices}
}

// ID returns the unique id of the mesh data.
func (d *Data) ID() int64 {
	return d.id
}

// VertexCount returns the number of vertices.
func (d *Data) VertexCount() int {
	if d.Kind == KindLit {
		return len(d.Lit)
	}
	return len(d.Simple)
}

// Position returns the position of vertex i.
func (d *Data) Position(i int) mgl32.Vec3 {
	if d.Kind == KindLit {
		return mgl32.Vec3(d.Lit[i].Position)
	}
	return mgl32.Vec3(d.Simple[i].Position)
}

// VertexBytes marshals the vertices for upload.
func (d *Data) VertexBytes() []byte {
	if d.Kind == KindLit {
		return MarshalLitVertices(d.Lit)
	}
	return MarshalSimpleVertices(d.Simple)
}

// ComputeBounds returns the object space bounds of the first n vertices.
func (d *Data) ComputeBounds() common.AABB {
	return computeBounds(d.VertexCount(), d.Position)
}

func computeBounds(n int, position func(i int) mgl32.Vec3) common.AABB {
	if n == 0 {
		return common.AABB{}
	}
	bbMin, bbMax := common.EmptyMinMax()
	for i := 0; i < n; i++ {
		common.GrowBounds(&bbMin, &bbMax, position(i))
	}
	return common.AABBFromMinMax(bbMin, bbMax)
}

// GPUMesh is the GPU mirror of a mesh. It owns its buffers.
type GPUMesh struct {
	Kind           Kind
	VertexBuffer   renderer.Handle
	IndexBuffer    renderer.Handle
	Dynamic        bool
	IndexCount     int
	VertexCount    int
	IndexCapacity  int
	VertexCapacity int
}

// Valid reports whether both buffers exist.
func (g *GPUMesh) Valid() bool {
	return g.VertexBuffer.Valid() && g.IndexBuffer.Valid()
}

// CreateStatic uploads static mesh data.
//
// Parameters:
//   - b: the backend
//   - d: the mesh data
//
// Returns:
//   - *GPUMesh: the GPU mirror
//   - error: an error if a buffer could not be created
func CreateStatic(b renderer.Backend, d *Data) (*GPUMesh, error) {
	return createStatic(b, d.Kind, d.VertexBytes(), d.VertexCount(), d.Indices)
}

func createStatic(b renderer.Backend, kind Kind, vertexData []byte, numVertices int, indices []uint16) (*GPUMesh, error) {
	vb, err := b.CreateVertexBuffer(vertexData, kind.Layout())
	if err != nil {
		return nil, fmt.Errorf("mesh: create vertex buffer: %w", err)
	}
	ib, err := b.CreateIndexBuffer(indices)
	if err != nil {
		b.Destroy(vb)
		return nil, fmt.Errorf("mesh: create index buffer: %w", err)
	}
	return &GPUMesh{
		Kind:           kind,
		VertexBuffer:   vb,
		IndexBuffer:    ib,
		IndexCount:     len(indices),
		VertexCount:    numVertices,
		IndexCapacity:  len(indices),
		VertexCapacity: numVertices,
	}, nil
}

func createDynamic(b renderer.Backend, kind Kind, maxVertices, maxIndices int) (*GPUMesh, error) {
	vb, err := b.CreateDynamicVertexBuffer(uint32(maxVertices), kind.Layout())
	if err != nil {
		return nil, fmt.Errorf("mesh: create dynamic vertex buffer: %w", err)
	}
	ib, err := b.CreateDynamicIndexBuffer(uint32(maxIndices))
	if err != nil {
		b.Destroy(vb)
		return nil, fmt.Errorf("mesh: create dynamic index buffer: %w", err)
	}
	return &GPUMesh{
		Kind:           kind,
		VertexBuffer:   vb,
		IndexBuffer:    ib,
		Dynamic:        true,
		IndexCapacity:  maxIndices,
		VertexCapacity: maxVertices,
	}, nil
}

// SetForSubmit binds the buffers on an encoder. A negative count draws every index from start.
// Ranges outside the mesh are a programming error and panic.
//
// Parameters:
//   - enc: the encoder
//   - startIndex: the first index to draw
//   - count: the number of indices, or -1
func (g *GPUMesh) SetForSubmit(enc renderer.Encoder, startIndex, count int) {
	if count < 0 {
		count = g.IndexCount - startIndex
	}
	if startIndex < 0 || startIndex+count > g.IndexCount {
		panic(fmt.Sprintf("mesh: index range [%d, %d) outside of %d indices", startIndex, startIndex+count, g.IndexCount))
	}
	enc.SetIndexBuffer(g.IndexBuffer, uint32(startIndex), uint32(count))
	enc.SetVertexBuffer(0, g.VertexBuffer, 0, uint32(g.VertexCount))
}

// Destroy releases the buffers and invalidates the mirror.
func (g *GPUMesh) Destroy(b renderer.Backend) {
	if g.IndexBuffer.Valid() {
		b.Destroy(g.IndexBuffer)
	}
	if g.VertexBuffer.Valid() {
		b.Destroy(g.VertexBuffer)
	}
	*g = GPUMesh{}
}
