package renderer

// WGPUBackendOption is a functional option applied to the WebGPU backend during construction via
// NewWGPUBackend.
type WGPUBackendOption func(*wgpuBackendImpl)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync, Uncapped or TripleBuffered)
//
// Returns:
//   - WGPUBackendOption: a function that applies the present mode option to a backend
func WithPresentMode(mode PresentMode) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the back buffer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Render targets created with CreateTexture are never multisampled.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - WGPUBackendOption: a function that applies the MSAA option to a backend
func WithMSAA(count MSAASampleCount) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.sampleCount = max(count, MSAAOff)
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUBackendOption: a function that applies the force software renderer option to a backend
func WithForceSoftwareRenderer(force bool) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.forceFallbackAdapter = force
	}
}

// WithEncoders sets how many encoders may be open at once, usually the submit worker count.
func WithEncoders(n int) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.recordingOptions = append(b.recordingOptions, WithMaxEncoders(n))
	}
}

// WithTransientMemory sets the per-frame transient vertex bytes and index count.
//
// Parameters:
//   - vertexBytes: bytes of transient vertex memory per frame
//   - indices: number of transient indices per frame
//
// Returns:
//   - WGPUBackendOption: a function that applies the budget to a backend
func WithTransientMemory(vertexBytes, indices int) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.recordingOptions = append(b.recordingOptions, WithTransientBudget(vertexBytes, indices))
	}
}
