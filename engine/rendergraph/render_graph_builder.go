package rendergraph

// RenderGraphBuilderOption is a functional option for configuring a RenderGraph.
type RenderGraphBuilderOption func(*renderGraphImpl)

// WithConfig sets the initial configuration.
//
// Parameters:
//   - c: the configuration
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the configuration
func WithConfig(c Config) RenderGraphBuilderOption {
	return func(r *renderGraphImpl) {
		r.config = c
	}
}

// WithMode sets the mode of the default configuration.
func WithMode(mode Mode) RenderGraphBuilderOption {
	return func(r *renderGraphImpl) {
		r.config.Mode = mode
	}
}

// WithRenderBufferSize sets the fixed render buffer size and the scaled mode maximum.
func WithRenderBufferSize(width, height, maxSize int) RenderGraphBuilderOption {
	return func(r *renderGraphImpl) {
		r.config.RenderBufferWidth = width
		r.config.RenderBufferHeight = height
		r.config.RenderBufferMaxSize = maxSize
	}
}
