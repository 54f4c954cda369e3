package renderer

// RecordingBackendOption is a functional option for NewRecordingBackend.
type RecordingBackendOption func(*recordingBackendImpl)

// WithConventions sets the origin and depth conventions reported by Caps.
//
// Parameters:
//   - originBottomLeft: true for GL style bottom-left origins
//   - homogeneousDepth: true for a [-1, 1] clip space depth range
//
// Returns:
//   - RecordingBackendOption: functional option to set the conventions
func WithConventions(originBottomLeft, homogeneousDepth bool) RecordingBackendOption {
	return func(b *recordingBackendImpl) {
		b.caps.OriginBottomLeft = originBottomLeft
		b.caps.HomogeneousDepth = homogeneousDepth
	}
}

// WithMaxEncoders sets how many encoders may be open at once.
func WithMaxEncoders(n int) RecordingBackendOption {
	return func(b *recordingBackendImpl) {
		b.caps.MaxEncoders = max(n, 1)
	}
}

// WithTransientBudget sets the per-frame transient vertex bytes and index count.
//
// Parameters:
//   - vertexBytes: bytes of transient vertex memory per frame
//   - indices: number of transient indices per frame
//
// Returns:
//   - RecordingBackendOption: functional option to set the budget
func WithTransientBudget(vertexBytes, indices int) RecordingBackendOption {
	return func(b *recordingBackendImpl) {
		b.caps.TransientVertexBytes = vertexBytes
		b.caps.TransientIndexCount = indices
	}
}

// WithBackBufferSize sets the initial front buffer size.
func WithBackBufferSize(width, height int) RecordingBackendOption {
	return func(b *recordingBackendImpl) {
		b.width = width
		b.height = height
	}
}
