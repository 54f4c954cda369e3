package engine

import (
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/submit"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables stage timing and the periodic frame statistics log.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickDuration(fps)
	}
}

// WithWindow attaches a window. Its framebuffer resizes are forwarded to the display and the
// backend, and Run drives its message loop.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
		if w == nil {
			return
		}
		fw, fh := w.FramebufferSize()
		e.display.Width, e.display.Height = w.Width(), w.Height()
		e.display.FramebufferWidth, e.display.FramebufferHeight = fw, fh
	}
}

// WithScene sets the scene rendered by the engine.
//
// Parameters:
//   - s: the Scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithDisplay sets the initial front buffer description. The backend is not resized.
//
// Parameters:
//   - d: the display description
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDisplay(d rendergraph.DisplayInfo) EngineBuilderOption {
	return func(e *engine) {
		e.display = d
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithGraphOptions passes options to the render graph.
func WithGraphOptions(options ...rendergraph.RenderGraphBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.graphOptions = append(e.graphOptions, options...)
	}
}

// WithSubmitterOptions passes options to the submitter.
func WithSubmitterOptions(options ...submit.SubmitterBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.submitterOptions = append(e.submitterOptions, options...)
	}
}

// WithStrictLights makes a third shadow mapped light in one lighting setup panic instead of
// being dropped with a warning.
func WithStrictLights(strict bool) EngineBuilderOption {
	return func(e *engine) {
		e.strictLights = strict
	}
}
