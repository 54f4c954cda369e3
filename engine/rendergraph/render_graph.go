package rendergraph

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

var logger = log.New("rendergraph")

// Source provides the cameras and lights the graph is built from.
type Source interface {
	Cameras() []camera.Camera
	Lights() []light.Light
}

type sortedCamera struct {
	depth float32
	id    int
	mask  uint32
	cam   camera.Camera
}

type renderGraphImpl struct {
	mu *sync.Mutex

	backend renderer.Backend
	graph   *Graph
	groups  *GroupCache

	config        Config
	currentConfig Config
	activeCameras []sortedCamera
	shadowLights  []light.Light
	forceRebuild  bool
	rebuilds      int
}

// RenderGraph is the long-lived render graph context. It owns the node/pass arena, the active
// camera list and the render group cache, and is driven once per frame in this order:
// Update, PreparePasses, PrepareViews.
type RenderGraph interface {
	// Graph returns the arena. Submission treats it as read only.
	//
	// Returns:
	//   - *Graph: the current graph
	Graph() *Graph

	// Groups returns the render group cache, invalidated on every rebuild.
	Groups() *GroupCache

	// Config returns the requested configuration.
	Config() Config

	// SetConfig requests a configuration. A change rebuilds the graph on the next Update.
	SetConfig(c Config)

	// ForceRebuild makes the next Update rebuild the graph.
	ForceRebuild()

	// Rebuilds returns the number of full rebuilds so far.
	Rebuilds() int

	// Update rebuilds the graph when the configuration or the camera list changed, or a
	// rebuild was forced, and creates shadow map nodes for newly seen shadow casting lights.
	//
	// Parameters:
	//   - src: the world's cameras and lights
	//   - display: the front buffer description
	//
	// Returns:
	//   - bool: true if the graph was rebuilt
	Update(src Source, display DisplayInfo) bool

	// PreparePasses assigns view ids and refreshes every pass from its camera, light or node.
	//
	// Parameters:
	//   - display: the front buffer description
	PreparePasses(display DisplayInfo)

	// PrepareViews creates missing render targets and configures one backend view per pass.
	// A pass without a view id at this point is a corrupt graph and panics.
	//
	// Returns:
	//   - error: an error if a render target could not be created
	PrepareViews() error

	// MainAspect returns the aspect of the main view, used by auto aspect cameras.
	MainAspect() float32

	// ShadowMapTexture returns the shadow map texture of a light shadow reference.
	ShadowMapTexture(ref int) renderer.Handle

	// Release destroys every backend resource owned by the graph.
	Release()
}

var _ RenderGraph = &renderGraphImpl{}

// NewRenderGraph creates an empty render graph. It is built on the first Update.
//
// Parameters:
//   - backend: the backend render targets are created on
//   - options: functional options to configure the graph
//
// Returns:
//   - RenderGraph: the render graph
func NewRenderGraph(backend renderer.Backend, options ...RenderGraphBuilderOption) RenderGraph {
	r := &renderGraphImpl{
		mu:      &sync.Mutex{},
		backend: backend,
		graph:   NewGraph(),
		groups:  NewGroupCache(),
		config:  DefaultConfig(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *renderGraphImpl) Graph() *Graph {
	return r.graph
}

func (r *renderGraphImpl) Groups() *GroupCache {
	return r.groups
}

func (r *renderGraphImpl) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

func (r *renderGraphImpl) SetConfig(c Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = c
}

func (r *renderGraphImpl) ForceRebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forceRebuild = true
}

func (r *renderGraphImpl) Rebuilds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuilds
}

func (r *renderGraphImpl) MainAspect() float32 {
	w, h := r.graph.RenderBufferSize()
	if w == 0 || h == 0 {
		return 1
	}
	return float32(w) / float32(h)
}

func (r *renderGraphImpl) ShadowMapTexture(ref int) renderer.Handle {
	return r.graph.TargetHandle(ref)
}

func (r *renderGraphImpl) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroy()
	r.activeCameras = nil
}
