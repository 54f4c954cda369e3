package scene

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
)

var logger = log.New("scene")

// DefaultChunkCapacity is the maximum number of objects in one chunk.
const DefaultChunkCapacity = 128

// boundsBatchSize is the number of objects one bounds task updates.
const boundsBatchSize = 256

// Chunk is a batch of static mesh objects sharing a render group and a lighting setup.
// Submission rejects a whole chunk with one sphere test before testing its members.
type Chunk struct {
	RenderGroup int
	LightingRef int
	Objects     []game_object.GameObject
	// Bounds always contains the bounds of every member.
	Bounds common.ChunkBounds
}

type chunkKey struct {
	group int
	ref   int
}

// Scene is the long-lived world the renderer draws: cameras, lights, environment and drawable
// objects. It computes the per-object, per-chunk and whole-world bounds the frame stages read, and
// serves as the source of the render graph and the lighting aggregator.
// Thread-safe for concurrent access.
type Scene interface {
	rendergraph.Source
	lighting.Source

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Add adds a GameObject to the scene and returns its ID. Objects without an ID are assigned
	// the next free one. A light attached to the object is added to the scene's lights.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a GameObject and its attached light from the scene.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Count returns the number of objects in the scene, enabled or not.
	Count() int

	// Objects returns every object in the order they were added.
	Objects() []game_object.GameObject

	// Clear removes all objects, cameras, lights and environment from the scene.
	Clear()

	// AddCamera adds a camera. Cameras with a zero mask are kept but not rendered.
	AddCamera(cam camera.Camera)

	// RemoveCamera removes a camera by reference.
	RemoveCamera(cam camera.Camera)

	// AddLight adds a light source to the scene.
	//
	// Parameters:
	//   - l: the Light to add
	AddLight(l light.Light)

	// RemoveLight removes a light source from the scene by reference.
	//
	// Parameters:
	//   - l: the Light to remove
	RemoveLight(l light.Light)

	// AddAmbientLight adds an ambient light. Only the brightest one is used per lighting setup.
	AddAmbientLight(a *light.AmbientLight)

	// AddFog adds a fog. Only the first one that is not disabled is used per lighting setup.
	AddFog(f *light.Fog)

	// Drawables returns the enabled objects for render group assignment.
	Drawables() []rendergraph.Drawable

	// UpdateBounds recomputes the world bounds and sphere of every enabled object, the merged
	// bounds of every chunk and the whole-world box. Objects are updated in parallel.
	//
	// Returns:
	//   - common.AABB: the whole-world box, empty when no object is enabled
	UpdateBounds() common.AABB

	// WholeWorldBounds returns the box computed by the last UpdateBounds call.
	WholeWorldBounds() common.AABB

	// UpdateCameras recomputes the matrices of every camera against the whole-world box.
	//
	// Parameters:
	//   - targetAspect: the aspect of the main render target, used by auto aspect cameras
	UpdateCameras(targetAspect float32)

	// UpdateLights moves attached and auto moving lights, then recomputes every light's matrices
	// and cascades. Cameras must be updated first since cascades follow their camera.
	UpdateLights()

	// AssignChunks regroups the static mesh objects into chunks when a render group, lighting
	// reference or the set of enabled objects changed since the last call, and merges chunk bounds.
	//
	// Returns:
	//   - bool: true if the chunks were rebuilt
	AssignChunks() bool

	// Chunks returns the chunks built by the last AssignChunks call.
	Chunks() []*Chunk

	// Close stops the worker pool of the bounds stage.
	Close()
}

type scene struct {
	mu     *sync.RWMutex
	name   string
	active bool

	registry map[uint64]game_object.GameObject
	order    []game_object.GameObject
	nextID   uint64

	cameras  []camera.Camera
	lights   []light.Light
	ambients []*light.AmbientLight
	fogs     []*light.Fog

	chunkCapacity int
	chunks        []*Chunk
	chunked       map[uint64]chunkKey
	chunksDirty   bool

	wholeWorld common.AABB

	// boundsPool runs the bounds stage. Workers persist across frames and a WaitGroup is the
	// per-frame barrier, since pool.Wait() waits for workers to idle out.
	boundsPool    worker.DynamicWorkerPool
	boundsWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty, inactive scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:            &sync.RWMutex{},
		name:          name,
		registry:      make(map[uint64]game_object.GameObject),
		nextID:        1,
		chunkCapacity: DefaultChunkCapacity,
		chunked:       make(map[uint64]chunkKey),
		boundsWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the pool after options so WithBoundsWorkers can override the default.
	s.boundsPool = worker.NewDynamicWorkerPool(s.boundsWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	if obj == nil {
		panic("scene: Add requires a non-nil GameObject")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(obj)
}

func (s *scene) addLocked(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	if obj.ID() >= s.nextID {
		s.nextID = obj.ID() + 1
	}
	if _, exists := s.registry[obj.ID()]; exists {
		logger.Warningf("Object %d (%s) is already in scene %q, ignoring", obj.ID(), obj.Name(), s.name)
		return obj.ID()
	}
	s.registry[obj.ID()] = obj
	s.order = append(s.order, obj)
	if l := obj.Light(); l != nil && !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
	s.chunksDirty = true
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.registry[id]
	if !ok {
		return
	}
	delete(s.registry, id)
	s.order = slices.DeleteFunc(s.order, func(o game_object.GameObject) bool { return o == obj })
	if l := obj.Light(); l != nil {
		s.lights = slices.DeleteFunc(s.lights, func(o light.Light) bool { return o == l })
	}
	s.chunksDirty = true
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.registry)
	clear(s.chunked)
	s.order = nil
	s.cameras = nil
	s.lights = nil
	s.ambients = nil
	s.fogs = nil
	s.chunks = nil
	s.wholeWorld = common.AABB{}
}

func (s *scene) AddCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.cameras, cam) {
		s.cameras = append(s.cameras, cam)
	}
}

func (s *scene) RemoveCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = slices.DeleteFunc(s.cameras, func(c camera.Camera) bool { return c == cam })
}

func (s *scene) Cameras() []camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = slices.DeleteFunc(s.lights, func(o light.Light) bool { return o == l })
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) AddAmbientLight(a *light.AmbientLight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambients = append(s.ambients, a)
}

func (s *scene) AmbientLights() []*light.AmbientLight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ambients)
}

func (s *scene) AddFog(f *light.Fog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fogs = append(s.fogs, f)
}

func (s *scene) Fogs() []*light.Fog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fogs)
}

func (s *scene) enabledObjects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]game_object.GameObject, 0, len(s.order))
	for _, o := range s.order {
		if o.Enabled() {
			out = append(out, o)
		}
	}
	return out
}

func (s *scene) LitReceivers() []lighting.Receiver {
	objs := s.enabledObjects()
	out := make([]lighting.Receiver, 0, len(objs))
	for _, o := range objs {
		if o.Lit() {
			out = append(out, o)
		}
	}
	return out
}

func (s *scene) Drawables() []rendergraph.Drawable {
	objs := s.enabledObjects()
	out := make([]rendergraph.Drawable, len(objs))
	for i, o := range objs {
		out[i] = o
	}
	return out
}

func (s *scene) UpdateBounds() common.AABB {
	objs := s.enabledObjects()

	var wg sync.WaitGroup
	for start := 0; start < len(objs); start += boundsBatchSize {
		batch := objs[start:min(start+boundsBatchSize, len(objs))]
		wg.Add(1)
		s.boundsPool.SubmitTask(worker.Task{
			ID: start,
			Do: func() (any, error) {
				defer wg.Done()
				for _, o := range batch {
					o.UpdateBounds()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	bbMin, bbMax := common.EmptyMinMax()
	for _, o := range objs {
		wb, _ := o.Bounds()
		for _, c := range wb.Corners {
			common.GrowBounds(&bbMin, &bbMax, c)
		}
	}
	whole := common.AABB{}
	if len(objs) > 0 {
		whole = common.AABBFromMinMax(bbMin, bbMax)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wholeWorld = whole
	for _, c := range s.chunks {
		mergeChunkBounds(c)
	}
	return whole
}

func (s *scene) WholeWorldBounds() common.AABB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wholeWorld
}

func (s *scene) UpdateCameras(targetAspect float32) {
	world := s.WholeWorldBounds()
	for _, cam := range s.Cameras() {
		cam.Update(world, targetAspect)
	}
}

func (s *scene) UpdateLights() {
	for _, o := range s.Objects() {
		if l := o.Light(); l != nil && l.AutoMoving() == nil {
			l.SetWorld(common.RotationTranslation(o.World()))
		}
	}

	world := s.WholeWorldBounds()
	for _, l := range s.Lights() {
		if l.AutoMoving() != nil {
			light.UpdateAutoMoving(l, world)
			l.UpdateMatrices()
			continue
		}
		l.UpdateMatrices()
		if l.Cascade() != nil {
			l.UpdateCascades()
		}
	}
}

func chunkable(o game_object.GameObject) bool {
	return o.Enabled() && o.Kind() == game_object.KindMesh && o.Mesh() != nil && o.RenderGroup() != rendergraph.NoGroup
}

func (s *scene) AssignChunks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.chunksDirty
	count := 0
	for _, o := range s.order {
		if !chunkable(o) {
			continue
		}
		count++
		key, ok := s.chunked[o.ID()]
		if !ok || key != (chunkKey{group: o.RenderGroup(), ref: o.LightingRef()}) {
			changed = true
		}
	}
	if count != len(s.chunked) {
		changed = true
	}
	if !changed {
		return false
	}

	clear(s.chunked)
	s.chunks = s.chunks[:0]
	open := map[chunkKey]*Chunk{}
	for _, o := range s.order {
		if !chunkable(o) {
			continue
		}
		key := chunkKey{group: o.RenderGroup(), ref: o.LightingRef()}
		s.chunked[o.ID()] = key
		c := open[key]
		if c == nil || len(c.Objects) >= s.chunkCapacity {
			c = &Chunk{RenderGroup: key.group, LightingRef: key.ref}
			open[key] = c
			s.chunks = append(s.chunks, c)
		}
		c.Objects = append(c.Objects, o)
	}
	for _, c := range s.chunks {
		mergeChunkBounds(c)
	}
	s.chunksDirty = false
	logger.Debugf("Scene %q: %d objects in %d chunks", s.name, count, len(s.chunks))
	return true
}

func mergeChunkBounds(c *Chunk) {
	c.Bounds = common.NewChunkBounds()
	for _, o := range c.Objects {
		c.Bounds.Add(o.Bounds())
	}
}

func (s *scene) Chunks() []*Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks)
}

func (s *scene) Close() {
	s.boundsPool.Stop()
}
