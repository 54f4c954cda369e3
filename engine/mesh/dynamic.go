package mesh

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// DynamicMesh is a CPU side mesh mirrored to the GPU. Producers (text, UI, CPU skinning) write the
// vertex and index slices, set the counts and mark the mesh dirty; Sync uploads it once per frame.
//
// Capacity and count are tracked separately so counts can change within capacity without
// reallocating GPU buffers. Changing a capacity or UseDynamicGPUBuffer reallocates.
type DynamicMesh struct {
	Kind Kind

	// Dirty requests an upload; Sync clears it.
	Dirty bool
	// UseDynamicGPUBuffer allocates updatable GPU buffers. Leave it off for data that rarely changes.
	UseDynamicGPUBuffer bool

	VertexCapacity int
	IndexCapacity  int
	NumVertices    int
	NumIndices     int

	Simple  []SimpleVertex
	Lit     []LitVertex
	Indices []uint16

	gpu *GPUMesh
}

// NewDynamicMesh creates a dynamic mesh with CPU buffers sized to the capacities.
//
// Parameters:
//   - kind: the vertex schema
//   - vertexCapacity: the maximum number of vertices
//   - indexCapacity: the maximum number of indices
//   - dynamicBuffers: allocate updatable GPU buffers
//
// Returns:
//   - *DynamicMesh: the new mesh, dirty
func NewDynamicMesh(kind Kind, vertexCapacity, indexCapacity int, dynamicBuffers bool) *DynamicMesh {
	m := &DynamicMesh{
		Kind:                kind,
		Dirty:               true,
		UseDynamicGPUBuffer: dynamicBuffers,
		VertexCapacity:      vertexCapacity,
		IndexCapacity:       indexCapacity,
		Indices:             make([]uint16, indexCapacity),
	}
	if kind == KindLit {
		m.Lit = make([]LitVertex, vertexCapacity)
	} else {
		m.Simple = make([]SimpleVertex, vertexCapacity)
	}
	return m
}

// GPU returns the GPU mirror, or nil before the first Sync.
func (m *DynamicMesh) GPU() *GPUMesh {
	return m.gpu
}

func (m *DynamicMesh) position(i int) mgl32.Vec3 {
	if m.Kind == KindLit {
		return mgl32.Vec3(m.Lit[i].Position)
	}
	return mgl32.Vec3(m.Simple[i].Position)
}

// ComputeBounds returns the bounds of the first NumVertices vertices.
func (m *DynamicMesh) ComputeBounds() common.AABB {
	return computeBounds(m.NumVertices, m.position)
}

func (m *DynamicMesh) vertexBytes() []byte {
	if m.Kind == KindLit {
		return MarshalLitVertices(m.Lit[:m.NumVertices])
	}
	return MarshalSimpleVertices(m.Simple[:m.NumVertices])
}

// validFor reports whether the GPU mirror still matches the mesh settings.
func (m *DynamicMesh) validFor() bool {
	g := m.gpu
	if g == nil || !g.Valid() {
		return false
	}
	if g.Dynamic != m.UseDynamicGPUBuffer {
		return false
	}
	if g.Dynamic && (g.IndexCapacity != m.IndexCapacity || g.VertexCapacity != m.VertexCapacity) {
		return false
	}
	return true
}

// Sync brings the GPU mirror up to date.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - bool: true if data was uploaded
//   - error: an error if counts exceed capacities or a buffer operation failed
func (m *DynamicMesh) Sync(b renderer.Backend) (bool, error) {
	if m.NumVertices > m.VertexCapacity || m.NumIndices > m.IndexCapacity {
		return false, fmt.Errorf("mesh: dynamic mesh counts %d/%d exceed capacities %d/%d", m.NumVertices, m.NumIndices, m.VertexCapacity, m.IndexCapacity)
	}

	if !m.validFor() {
		if m.gpu != nil {
			logger.Debugf("Reallocating dynamic mesh buffers (%d vertices, %d indices).", m.VertexCapacity, m.IndexCapacity)
			m.gpu.Destroy(b)
			m.gpu = nil
		}
		if m.UseDynamicGPUBuffer {
			g, err := createDynamic(b, m.Kind, m.VertexCapacity, m.IndexCapacity)
			if err != nil {
				return false, err
			}
			m.gpu = g
		}
		m.Dirty = true
	}

	if !m.Dirty {
		return false, nil
	}
	if m.NumIndices == 0 || m.NumVertices == 0 {
		if m.gpu != nil {
			m.gpu.IndexCount = 0
			m.gpu.VertexCount = 0
		}
		m.Dirty = false
		return false, nil
	}

	if m.UseDynamicGPUBuffer {
		if err := b.UpdateDynamicIndexBuffer(m.gpu.IndexBuffer, 0, m.Indices[:m.NumIndices]); err != nil {
			return false, fmt.Errorf("mesh: update dynamic indices: %w", err)
		}
		if err := b.UpdateDynamicVertexBuffer(m.gpu.VertexBuffer, 0, m.vertexBytes()); err != nil {
			return false, fmt.Errorf("mesh: update dynamic vertices: %w", err)
		}
		m.gpu.IndexCount = m.NumIndices
		m.gpu.VertexCount = m.NumVertices
	} else {
		if m.gpu != nil {
			m.gpu.Destroy(b)
		}
		g, err := createStatic(b, m.Kind, m.vertexBytes(), m.NumVertices, m.Indices[:m.NumIndices])
		if err != nil {
			m.gpu = nil
			return false, err
		}
		m.gpu = g
	}
	m.Dirty = false
	return true, nil
}

// Destroy releases the GPU mirror.
func (m *DynamicMesh) Destroy(b renderer.Backend) {
	if m.gpu != nil {
		m.gpu.Destroy(b)
		m.gpu = nil
	}
}
