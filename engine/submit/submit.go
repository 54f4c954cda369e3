package submit

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

var logger = log.New("submit")

// mainSlot is the encoder slot of the submitting goroutine. Pool tasks use slots 1 to workers.
const mainSlot = 0

// Stats counts what one frame submitted.
type Stats struct {
	// Chunks is the number of chunk jobs run, ChunksCulled the chunk and pass pairs rejected by
	// the chunk sphere.
	Chunks       int
	ChunksCulled int
	Draws        int
	Culled       int
	// Skipped counts draws dropped for missing GPU data or transient memory.
	Skipped int
	Lines   int
}

func (s *Stats) add(o Stats) {
	s.Chunks += o.Chunks
	s.ChunksCulled += o.ChunksCulled
	s.Draws += o.Draws
	s.Culled += o.Culled
	s.Skipped += o.Skipped
	s.Lines += o.Lines
}

// Frame is everything one SubmitFrame call reads. Every earlier frame stage must have completed:
// bounds, lighting aggregation, render groups, chunks, pass preparation and views.
type Frame struct {
	Graph    rendergraph.RenderGraph
	Scene    scene.Scene
	Lighting *lighting.Aggregator
	Display  rendergraph.DisplayInfo
}

// slot is one encoder plus the scratch state of the goroutine that owns it for the frame.
type slot struct {
	index     int
	enc       renderer.Encoder
	viewSpace lighting.ViewSpace
	stats     Stats
}

type submitter struct {
	mu      *sync.Mutex
	backend renderer.Backend

	workers     int
	strict      bool
	boxCulling  bool
	gpuSkinning bool
	gizmos      bool

	pool        worker.DynamicWorkerPool
	poolRunning bool
	slots       []*slot
	free        chan int

	u        *uniforms
	programs *Programs
	defaults mesh.Defaults
	noShadow renderer.Handle

	meshes     *mesh.ResourceSet[*mesh.Data, *mesh.GPUMesh]
	dynamics   *mesh.ResourceSet[*mesh.DynamicMesh, *mesh.DynamicMesh]
	simpleMats *mesh.ResourceSet[*mesh.SimpleMaterial, *mesh.SimpleMaterialGPU]
	litMats    *mesh.ResourceSet[*mesh.LitMaterial, *mesh.LitMaterialGPU]
	weights    *mesh.ResourceSet[*game_object.Skin, renderer.Handle]

	stats  Stats
	frames int
}

// Submitter encodes the drawable objects of a scene into the passes of a render graph. Chunks of
// static meshes are encoded in parallel, one encoder slot per worker; dynamic meshes, particles,
// skinned meshes, blits and gizmos are encoded on the calling goroutine.
//
// The submitter owns the GPU mirrors of meshes and materials: they are created the first frame an
// object needs them and destroyed the first frame no object uses them any more.
type Submitter interface {
	// SubmitFrame encodes one frame and hands it to the backend.
	//
	// Parameters:
	//   - ctx: checked before anything is encoded
	//   - f: the frame inputs
	//
	// Returns:
	//   - uint32: the number of the submitted frame
	//   - error: the context error, or a backend error from Frame
	SubmitFrame(ctx context.Context, f Frame) (uint32, error)

	// LastStats returns the counters of the last submitted frame.
	LastStats() Stats

	// Programs returns the built-in programs.
	Programs() *Programs

	// Defaults returns the placeholder textures and default programs of materials.
	Defaults() mesh.Defaults

	// Workers returns the number of pool workers encoding chunks.
	Workers() int

	// Release stops the worker pool and destroys every resource the submitter created.
	Release()
}

var _ Submitter = &submitter{}

// NewSubmitter creates a submitter: uniforms, programs, placeholder textures and the worker pool.
// The number of workers is clamped so workers + 1 encoders fit in the backend's MaxEncoders.
//
// Parameters:
//   - backend: the GPU backend
//   - options: functional options to configure the submitter
//
// Returns:
//   - Submitter: the submitter
//   - error: an error if a backend resource could not be created
func NewSubmitter(backend renderer.Backend, options ...SubmitterBuilderOption) (Submitter, error) {
	s := &submitter{
		mu:          &sync.Mutex{},
		backend:     backend,
		workers:     max(runtime.NumCPU()-1, 1),
		gpuSkinning: true,
		gizmos:      true,
	}
	for _, option := range options {
		option(s)
	}

	maxEncoders := backend.Caps().MaxEncoders
	if s.workers+1 > maxEncoders {
		clamped := max(maxEncoders-1, 0)
		logger.Warningf("%d submit workers need %d encoders but the backend has %d; using %d workers.", s.workers, s.workers+1, maxEncoders, clamped)
		s.workers = clamped
	}

	var err error
	if s.u, err = createUniforms(backend); err != nil {
		return nil, err
	}
	if s.programs, err = LoadPrograms(backend); err != nil {
		s.u.destroy(backend)
		return nil, err
	}
	if err = s.createPlaceholders(); err != nil {
		s.programs.Destroy(backend)
		s.u.destroy(backend)
		return nil, err
	}

	s.meshes = mesh.NewGPUMeshSet(backend)
	s.dynamics = mesh.NewResourceSet[*mesh.DynamicMesh, *mesh.DynamicMesh](func(m *mesh.DynamicMesh) { m.Destroy(backend) })
	s.simpleMats = mesh.NewResourceSet[*mesh.SimpleMaterial, *mesh.SimpleMaterialGPU](func(m *mesh.SimpleMaterialGPU) { *m = mesh.SimpleMaterialGPU{} })
	s.litMats = mesh.NewResourceSet[*mesh.LitMaterial, *mesh.LitMaterialGPU](func(m *mesh.LitMaterialGPU) { *m = mesh.LitMaterialGPU{} })
	s.weights = mesh.NewResourceSet[*game_object.Skin, renderer.Handle](func(h renderer.Handle) { backend.Destroy(h) })

	s.slots = make([]*slot, s.workers+1)
	for i := range s.slots {
		s.slots[i] = &slot{index: i, viewSpace: lighting.NewViewSpace()}
	}
	s.free = make(chan int, s.workers)
	for i := 1; i <= s.workers; i++ {
		s.free <- i
	}
	if s.workers > 0 {
		s.pool = worker.NewDynamicWorkerPool(s.workers, 1024, 1*time.Second)
		s.poolRunning = true
	}
	return s, nil
}

// createPlaceholders creates the 1x1 textures bound in place of missing or loading textures.
func (s *submitter) createPlaceholders() error {
	b := s.backend
	white, err := b.CreateTexture(renderer.TextureDesc{
		Label: "placeholder white", Width: 1, Height: 1, Format: renderer.TextureRGBA8, Flags: renderer.TextureSampled,
	}, []byte{255, 255, 255, 255})
	if err != nil {
		return fmt.Errorf("submit: create white texture: %w", err)
	}
	up, err := b.CreateTexture(renderer.TextureDesc{
		Label: "placeholder normal", Width: 1, Height: 1, Format: renderer.TextureRGBA8, Flags: renderer.TextureSampled,
	}, []byte{128, 128, 255, 255})
	if err != nil {
		b.Destroy(white)
		return fmt.Errorf("submit: create normal texture: %w", err)
	}
	// a depth of 1 passes every comparison, so lights without a shadow map are never shadowed
	noShadow, err := b.CreateTexture(renderer.TextureDesc{
		Label: "placeholder shadow", Width: 1, Height: 1, Format: renderer.TextureDepth16,
		Flags: renderer.TextureSampled | renderer.TextureCompare | renderer.TextureClamp,
	}, []byte{0xff, 0xff})
	if err != nil {
		b.Destroy(white)
		b.Destroy(up)
		return fmt.Errorf("submit: create shadow placeholder: %w", err)
	}

	s.noShadow = noShadow
	s.defaults = mesh.Defaults{
		WhiteTexture:  white,
		UpTexture:     up,
		LitProgram:    s.programs.Lit,
		SimpleProgram: s.programs.Simple,
	}
	return nil
}

func (s *submitter) LastStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *submitter) Programs() *Programs {
	return s.programs
}

func (s *submitter) Defaults() mesh.Defaults {
	return s.defaults
}

func (s *submitter) Workers() int {
	return s.workers
}

func (s *submitter) SubmitFrame(ctx context.Context, f Frame) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("submit: frame not submitted: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.slots {
		sl.viewSpace.Flush()
		sl.stats = Stats{}
	}
	fs := s.snapshot(f)

	s.submitChunks(fs)

	main := s.slots[mainSlot]
	for _, it := range fs.loose {
		s.submitItem(main, fs, it)
	}
	s.submitBlitters(main, fs)
	if s.gizmos {
		s.submitGizmos(main, fs)
	}

	s.stats = s.waitForEncoders()
	s.checkState(fs)

	n, err := s.backend.Frame()
	if err != nil {
		return n, fmt.Errorf("submit: frame %d: %w", n, err)
	}
	s.sweep()
	s.frames++
	if s.frames%600 == 0 {
		logger.Debugf("Frame %d: %d draws, %d culled, %d skipped, %d chunks.", n, s.stats.Draws, s.stats.Culled, s.stats.Skipped, s.stats.Chunks)
	}
	return n, nil
}

// submitChunks encodes every chunk on the worker pool and waits for all of them. Without workers
// the chunks are encoded on the calling goroutine.
func (s *submitter) submitChunks(fs *frameState) {
	s.runOnSlots(len(fs.chunks), func(sl *slot, i int) {
		s.submitChunk(sl, fs, fs.chunks[i])
	})
}

// runOnSlots calls fn for 0..n-1, each call holding a free encoder slot, and returns once all
// calls are done. A panic in any call is raised again on the calling goroutine after the wait.
func (s *submitter) runOnSlots(n int, fn func(sl *slot, i int)) {
	if s.workers == 0 {
		main := s.slots[mainSlot]
		for i := range n {
			fn(main, i)
		}
		return
	}

	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  any
	)
	for i := range n {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicOnce.Do(func() { panicked = r })
					}
				}()
				idx := <-s.free
				defer func() { s.free <- idx }()
				fn(s.slots[idx], i)
				return nil, nil
			},
		})
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
}

// submitChunk encodes one chunk into every pass of its render group. A pass that does not see the
// chunk's bounding sphere skips all members at once.
func (s *submitter) submitChunk(sl *slot, fs *frameState, c *chunkWork) {
	sl.stats.Chunks++
	group := fs.groups.Group(c.group)
	sphere := c.bounds.Sphere()
	for _, pi := range group.Passes {
		p := &fs.graph.Passes[pi]
		if p.ViewID == rendergraph.ViewIDUnassigned {
			continue
		}
		if sphere.Radius > 0 && common.CullSphere(sphere, &p.Frustum) == common.Outside {
			sl.stats.ChunksCulled++
			continue
		}
		for _, it := range c.items {
			s.encode(sl, fs, it, p)
		}
	}
}

// submitItem encodes one object into every pass of its render group.
func (s *submitter) submitItem(sl *slot, fs *frameState, it *drawItem) {
	group := fs.groups.Group(it.group)
	for _, pi := range group.Passes {
		s.encode(sl, fs, it, &fs.graph.Passes[pi])
	}
}

// encoder returns the slot's encoder, beginning it on first use in the frame.
func (s *submitter) encoder(sl *slot) renderer.Encoder {
	if sl.enc != nil {
		return sl.enc
	}
	enc, err := s.backend.BeginEncoder()
	if err != nil {
		logger.Errorf("Encoder slot %d could not begin: %v", sl.index, err)
		panic(fmt.Errorf("submit: begin encoder for slot %d: %w", sl.index, err))
	}
	sl.enc = enc
	return enc
}

// waitForEncoders ends every encoder begun this frame and sums the slot counters. All chunk jobs
// have finished when it runs.
func (s *submitter) waitForEncoders() Stats {
	total := Stats{}
	for _, sl := range s.slots {
		if sl.enc != nil {
			s.backend.EndEncoder(sl.enc)
			sl.enc = nil
		}
		total.add(sl.stats)
	}
	return total
}

// checkState makes sure the front buffer is cleared when nothing renders to it: without a main
// node or without a camera view 0 is cleared and touched.
func (s *submitter) checkState(fs *frameState) {
	if fs.graph.MainNode != rendergraph.NoIndex && fs.cameras > 0 {
		return
	}
	w, h := fs.display.Framebuffer()
	s.backend.SetViewRect(0, common.Rect16{W: uint16(w), H: uint16(h)})
	s.backend.SetViewClear(0, renderer.ClearColor|renderer.ClearDepth, common.PackRGBA(fs.display.BorderColor), 1, 0)
	s.backend.Touch(0)
}

// sweep destroys the GPU mirrors no object used this frame.
func (s *submitter) sweep() {
	n := s.meshes.Sweep() + s.dynamics.Sweep() + s.weights.Sweep()
	s.simpleMats.Sweep()
	s.litMats.Sweep()
	if n > 0 {
		logger.Debugf("Released %d unused GPU mirrors.", n)
	}
}

func (s *submitter) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poolRunning {
		s.pool.Stop()
		s.poolRunning = false
	}
	s.meshes.Clear()
	s.dynamics.Clear()
	s.weights.Clear()
	s.simpleMats.Clear()
	s.litMats.Clear()
	for _, h := range []renderer.Handle{s.defaults.WhiteTexture, s.defaults.UpTexture, s.noShadow} {
		if h.Valid() {
			s.backend.Destroy(h)
		}
	}
	s.defaults = mesh.Defaults{}
	s.noShadow = renderer.Handle{}
	s.programs.Destroy(s.backend)
	s.u.destroy(s.backend)
}
