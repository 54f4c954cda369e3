package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/submit"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

var logger = log.New("engine")

var (
	// ErrNoScene is returned by RenderFrame when no active scene is set.
	ErrNoScene = errors.New("engine: no active scene")

	// ErrFrameAborted is returned by RenderFrame when a frame stage panicked. The engine stops
	// after such a frame.
	ErrFrameAborted = errors.New("engine: frame aborted")
)

// Frame stage names, in the order they run. They are the keys of the profiler statistics.
const (
	StageBounds   = "bounds"
	StageCameras  = "cameras"
	StageLights   = "lights"
	StageLighting = "lighting"
	StageGraph    = "graph"
	StageGroups   = "groups"
	StageChunks   = "chunks"
	StagePasses   = "passes"
	StageViews    = "views"
	StageSubmit   = "submit"
)

// FrameResult describes one rendered frame.
type FrameResult struct {
	Frame           uint32
	Rebuilt         bool
	LightingChanged int
	ChunksChanged   bool
	Stats           submit.Stats
}

// engine implements the Engine interface.
// Coordinates the engine tick, render, and window threads around one scene.
type engine struct {
	mu *sync.Mutex

	backend    renderer.Backend
	graph      rendergraph.RenderGraph
	submitter  submit.Submitter
	aggregator *lighting.Aggregator
	scene      scene.Scene
	display    rendergraph.DisplayInfo

	graphOptions     []rendergraph.RenderGraphBuilderOption
	submitterOptions []submit.SubmitterBuilderOption
	strictLights     bool

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frames           uint64
}

// Engine is the main entry point for the engine.
// It owns the render graph, the lighting aggregator and the submitter, runs the frame stages in
// order over the active scene, and drives the tick and render loops.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Backend returns the GPU backend frames are submitted to.
	Backend() renderer.Backend

	// Graph returns the render graph.
	Graph() rendergraph.RenderGraph

	// Lighting returns the lighting aggregator.
	Lighting() *lighting.Aggregator

	// Scene returns the active scene, or nil.
	Scene() scene.Scene

	// SetScene replaces the active scene. The caller keeps ownership of the previous one.
	SetScene(s scene.Scene)

	// Display returns the front buffer description used by the next frame.
	Display() rendergraph.DisplayInfo

	// SetDisplay changes the front buffer description and resizes the backend.
	//
	// Parameters:
	//   - d: the new display description
	//
	// Returns:
	//   - error: error if the backend could not be resized
	SetDisplay(d rendergraph.DisplayInfo) error

	// RenderFrame runs every frame stage once, synchronously: bounds, camera matrices, light
	// matrices, lighting aggregation, render graph maintenance, render groups, chunks, pass
	// preparation, backend views and submission.
	//
	// Parameters:
	//   - ctx: cancels the frame before it starts or before submission
	//
	// Returns:
	//   - FrameResult: what changed in the frame and the submission statistics
	//   - error: ErrNoScene, ErrFrameAborted after a panic, or a stage error
	RenderFrame(ctx context.Context) (FrameResult, error)

	// Profiler returns the frame stage profiler.
	Profiler() *profiler.Profiler

	// EnableProfiler enables stage timing and the periodic frame statistics log.
	EnableProfiler()

	// DisableProfiler disables stage timing and the periodic frame statistics log.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine loops. With a window it blocks until the window closes, headless it
	// blocks until Quit is called or a frame aborts.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release destroys the submitter programs and the render graph targets.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates an engine rendering to the given backend.
//
// Parameters:
//   - backend: the GPU backend
//   - options: functional options for engine configuration (profiling, tick rate, scene, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the submitter programs could not be created
func NewEngine(backend renderer.Backend, options ...EngineBuilderOption) (Engine, error) {
	w, h := backend.BackBufferSize()
	e := &engine{
		mu:               &sync.Mutex{},
		backend:          backend,
		display:          rendergraph.DisplayInfo{Width: w, Height: h},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	e.graph = rendergraph.NewRenderGraph(backend, e.graphOptions...)
	e.aggregator = lighting.NewAggregator(lighting.WithStrictMappedLights(e.strictLights))
	sub, err := submit.NewSubmitter(backend, e.submitterOptions...)
	if err != nil {
		e.graph.Release()
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.submitter = sub

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			d := e.Display()
			d.FramebufferWidth, d.FramebufferHeight = width, height
			d.Width, d.Height = e.window.Width(), e.window.Height()
			if err := e.SetDisplay(d); err != nil {
				logger.Warningf("Resize to %dx%d failed: %v", width, height, err)
			}
		})
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Backend() renderer.Backend {
	return e.backend
}

func (e *engine) Graph() rendergraph.RenderGraph {
	return e.graph
}

func (e *engine) Lighting() *lighting.Aggregator {
	return e.aggregator
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = s
}

func (e *engine) Display() rendergraph.DisplayInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

func (e *engine) SetDisplay(d rendergraph.DisplayInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fw, fh := d.Framebuffer()
	if bw, bh := e.backend.BackBufferSize(); bw != fw || bh != fh {
		if err := e.backend.Resize(fw, fh); err != nil {
			return fmt.Errorf("engine: resize to %dx%d: %w", fw, fh, err)
		}
		logger.Infof("Display resized to %dx%d.", fw, fh)
	}
	e.display = d
	return nil
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

// measure times a stage when profiling is enabled.
func (e *engine) measure(stage string) func() {
	if !e.profilingEnabled {
		return func() {}
	}
	return e.profiler.Measure(stage)
}

func (e *engine) RenderFrame(ctx context.Context) (res FrameResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Frame %d aborted: %v", e.frames, r)
			err = fmt.Errorf("%w: %v", ErrFrameAborted, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("engine: frame not rendered: %w", err)
	}
	s := e.scene
	if s == nil || !s.Active() {
		return res, ErrNoScene
	}

	stop := e.measure(StageBounds)
	s.UpdateBounds()
	stop()

	stop = e.measure(StageCameras)
	s.UpdateCameras(e.graph.MainAspect())
	stop()

	stop = e.measure(StageLights)
	s.UpdateLights()
	stop()

	stop = e.measure(StageLighting)
	res.LightingChanged = e.aggregator.Update(s)
	stop()

	stop = e.measure(StageGraph)
	res.Rebuilt = e.graph.Update(s, e.display)
	stop()

	stop = e.measure(StageGroups)
	e.graph.Groups().AssignRenderGroups(e.graph.Graph(), s.Drawables())
	stop()

	stop = e.measure(StageChunks)
	res.ChunksChanged = s.AssignChunks()
	stop()

	stop = e.measure(StagePasses)
	e.graph.PreparePasses(e.display)
	stop()

	stop = e.measure(StageViews)
	err = e.graph.PrepareViews()
	stop()
	if err != nil {
		return res, fmt.Errorf("engine: %w", err)
	}

	stop = e.measure(StageSubmit)
	res.Frame, err = e.submitter.SubmitFrame(ctx, submit.Frame{
		Graph:    e.graph,
		Scene:    s,
		Lighting: e.aggregator,
		Display:  e.display,
	})
	stop()
	if err != nil {
		return res, fmt.Errorf("engine: %w", err)
	}
	res.Stats = e.submitter.LastStats()
	e.frames++

	if res.Rebuilt {
		logger.Debugf("Frame %d rebuilt the render graph (%d rebuilds).", res.Frame, e.graph.Rebuilds())
	}
	return res, nil
}

// Run starts the engine loops. With a window the calling goroutine runs the message loop, so it
// must be the main thread.
func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Release() {
	e.signalQuit()
	e.submitter.Release()
	e.graph.Release()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A frame that panicked stops the engine; a missing scene renders nothing.
func (e *engine) handleRender() {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.quitChannel:
			cancel()
		case <-ctx.Done():
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			_, err := e.RenderFrame(ctx)
			switch {
			case err == nil, errors.Is(err, ErrNoScene), errors.Is(err, context.Canceled):
			case errors.Is(err, ErrFrameAborted):
				logger.Errorf("render goroutine recovered from panic: %v", err)
				e.signalQuit()
				return
			default:
				logger.Warningf("Frame failed: %v", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickDuration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func tickDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
