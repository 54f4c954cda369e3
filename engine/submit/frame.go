package submit

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

// frameState is the read-only snapshot the encoders work from. Everything an encoder looks up
// while chunks are encoded in parallel is resolved here first.
type frameState struct {
	graph   *rendergraph.Graph
	groups  *rendergraph.GroupCache
	display rendergraph.DisplayInfo
	caps    renderer.Caps
	gamma   bool
	cameras int

	lighting []lighting.GPULighting

	chunks []*chunkWork
	loose  []*drawItem
	gizmos []*drawItem

	simpleMats map[*mesh.SimpleMaterial]*mesh.SimpleMaterialGPU
	litMats    map[*mesh.LitMaterial]*mesh.LitMaterialGPU
}

type chunkWork struct {
	group  int
	bounds common.ChunkBounds
	items  []*drawItem
}

// programSet holds the programs of an item for color passes and for depth passes.
type programSet struct {
	color renderer.Handle
	depth renderer.Handle
}

// drawItem is one object resolved for the frame: transform, bounds, geometry and material.
type drawItem struct {
	obj         game_object.GameObject
	world       mgl32.Mat4
	bounds      common.WorldBounds
	sphere      common.WorldBoundingSphere
	sortPos     mgl32.Vec4
	group       int
	lightingRef int
	shadowMode  game_object.ShadowCastingMode

	simple   *mesh.SimpleMaterialGPU
	lit      *mesh.LitMaterialGPU
	programs programSet
	bones    []mgl32.Mat4

	// gpu draws a static or synced dynamic mesh.
	gpu   *mesh.GPUMesh
	start int
	count int

	// particles is copied into transient buffers on the first pass that sees the item.
	particles *mesh.DynamicMesh
	tvb       *renderer.TransientVertexBuffer
	tib       *renderer.TransientIndexBuffer
	oom       bool

	weights     renderer.Handle
	weightCount uint32
}

// bind sets the index and vertex streams of the item.
func (it *drawItem) bind(enc renderer.Encoder) {
	if it.tvb != nil {
		enc.SetTransientIndexBuffer(it.tib, 0, it.tib.Count)
		enc.SetTransientVertexBuffer(0, it.tvb, 0, it.tvb.Count)
	} else {
		it.gpu.SetForSubmit(enc, it.start, it.count)
	}
	if it.weights.Valid() {
		enc.SetVertexBuffer(1, it.weights, 0, it.weightCount)
	}
}

var noLighting = lighting.GPULighting{
	MappedLight0: lighting.MappedLightGPU{ShadowMap: lighting.NoShadowMap},
	MappedLight1: lighting.MappedLightGPU{ShadowMap: lighting.NoShadowMap},
	CSMLight:     lighting.MappedLightGPU{ShadowMap: lighting.NoShadowMap},
}

// lightingFor returns the uniform data of a lighting setup. Unknown references get no lights.
func (fs *frameState) lightingFor(ref int) *lighting.GPULighting {
	if ref < 0 || ref >= len(fs.lighting) {
		return &noLighting
	}
	return &fs.lighting[ref]
}

// snapshot resolves everything the frame draws. It runs on the submitting goroutine, so GPU
// mirrors are created and dynamic meshes synced before any worker starts.
func (s *submitter) snapshot(f Frame) *frameState {
	fs := &frameState{
		graph:      f.Graph.Graph(),
		groups:     f.Graph.Groups(),
		display:    f.Display,
		caps:       s.backend.Caps(),
		gamma:      f.Display.ColorSpace == common.ColorSpaceGamma,
		simpleMats: map[*mesh.SimpleMaterial]*mesh.SimpleMaterialGPU{},
		litMats:    map[*mesh.LitMaterial]*mesh.LitMaterialGPU{},
	}
	if f.Scene == nil {
		return fs
	}
	fs.cameras = len(f.Scene.Cameras())

	if f.Lighting != nil {
		setups := f.Lighting.Setups()
		fs.lighting = make([]lighting.GPULighting, len(setups))
		for i, setup := range setups {
			if setup == nil {
				fs.lighting[i] = noLighting
				continue
			}
			fs.lighting[i] = lighting.BuildGPULighting(setup, fs.gamma)
		}
	}

	chunked := map[uint64]struct{}{}
	for _, c := range f.Scene.Chunks() {
		work := &chunkWork{group: c.RenderGroup, bounds: c.Bounds}
		for _, o := range c.Objects {
			chunked[o.ID()] = struct{}{}
			if it := s.prepareObject(fs, o); it != nil {
				work.items = append(work.items, it)
			}
		}
		if len(work.items) > 0 {
			fs.chunks = append(fs.chunks, work)
		}
	}

	for _, o := range f.Scene.Objects() {
		if !o.Enabled() {
			continue
		}
		if g, _ := o.Gizmos(); g != 0 {
			fs.gizmos = append(fs.gizmos, &drawItem{obj: o, world: o.World(), group: o.RenderGroup()})
		}
		if _, ok := chunked[o.ID()]; ok {
			continue
		}
		if o.RenderGroup() == rendergraph.NoGroup {
			continue
		}
		if it := s.prepareObject(fs, o); it != nil {
			fs.loose = append(fs.loose, it)
		}
	}
	return fs
}

// prepareObject resolves one object, or returns nil when it cannot be drawn this frame.
func (s *submitter) prepareObject(fs *frameState, o game_object.GameObject) *drawItem {
	it := &drawItem{
		obj:         o,
		world:       o.World(),
		group:       o.RenderGroup(),
		lightingRef: o.LightingRef(),
		shadowMode:  o.ShadowCasting(),
		programs:    programSet{color: s.programs.Simple, depth: s.programs.Depth},
	}
	it.bounds, it.sphere = o.Bounds()
	it.sortPos = common.Translation(it.world).Vec4(1)

	if o.Lit() {
		m := o.LitMaterial()
		if m == nil {
			return s.skip(o, "lit object without a lit material")
		}
		it.lit = s.litMaterial(fs, m)
		it.programs.color = it.lit.Program
	} else {
		m := o.SimpleMaterial()
		if m == nil {
			return s.skip(o, "object without a material")
		}
		it.simple = s.simpleMaterial(fs, m)
	}

	switch o.Kind() {
	case game_object.KindMesh:
		if !s.prepareMesh(it, o.Mesh(), o.DynamicMesh()) {
			return nil
		}
		it.start, it.count = o.IndexRange()
	case game_object.KindParticles:
		dm := o.DynamicMesh()
		if dm == nil || dm.NumIndices == 0 || dm.NumVertices == 0 {
			return nil
		}
		it.particles = dm
		it.sortPos = it.sphere.Position.Vec4(1)
	case game_object.KindSkinned:
		if !s.prepareSkinned(it, o) {
			return nil
		}
	default:
		logger.Errorf("Object %d has unknown kind %d.", o.ID(), o.Kind())
		return nil
	}
	return it
}

// prepareMesh resolves the GPU mirror of a static mesh, or syncs a dynamic one.
func (s *submitter) prepareMesh(it *drawItem, d *mesh.Data, dm *mesh.DynamicMesh) bool {
	if d != nil {
		g, err := mesh.AcquireGPUMesh(s.meshes, s.backend, d)
		if err != nil {
			logger.Warningf("Mesh %q could not be uploaded: %v", d.Name, err)
			s.slots[mainSlot].stats.Skipped++
			return false
		}
		it.gpu = g
		return true
	}
	if dm == nil {
		return false
	}

	s.dynamics.Acquire(dm, func() (*mesh.DynamicMesh, error) { return dm, nil })
	if _, err := dm.Sync(s.backend); err != nil {
		logger.Warningf("Dynamic mesh of object %d could not be synced: %v", it.obj.ID(), err)
		s.slots[mainSlot].stats.Skipped++
		return false
	}
	g := dm.GPU()
	if g == nil || !g.Valid() || g.IndexCount == 0 {
		return false
	}
	it.gpu = g
	return true
}

func (s *submitter) skip(o game_object.GameObject, reason string) *drawItem {
	logger.Debugf("Skipping object %d: %s.", o.ID(), reason)
	s.slots[mainSlot].stats.Skipped++
	return nil
}

// simpleMaterial returns the frame's GPU mirror of m, rebuilding it on first use in the frame.
func (s *submitter) simpleMaterial(fs *frameState, m *mesh.SimpleMaterial) *mesh.SimpleMaterialGPU {
	if g, ok := fs.simpleMats[m]; ok {
		return g
	}
	g, _ := s.simpleMats.Acquire(m, func() (*mesh.SimpleMaterialGPU, error) { return &mesh.SimpleMaterialGPU{}, nil })
	*g = mesh.BuildSimpleMaterialGPU(s.backend, m, s.defaults, fs.gamma)
	fs.simpleMats[m] = g
	return g
}

func (s *submitter) litMaterial(fs *frameState, m *mesh.LitMaterial) *mesh.LitMaterialGPU {
	if g, ok := fs.litMats[m]; ok {
		return g
	}
	g, _ := s.litMats.Acquire(m, func() (*mesh.LitMaterialGPU, error) { return &mesh.LitMaterialGPU{}, nil })
	*g = mesh.BuildLitMaterialGPU(s.backend, m, s.defaults, fs.gamma)
	fs.litMats[m] = g
	return g
}
