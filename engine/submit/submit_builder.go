package submit

// SubmitterBuilderOption is a functional option for NewSubmitter.
type SubmitterBuilderOption func(s *submitter)

// WithWorkers sets the number of pool workers encoding chunks. Zero encodes everything on the
// calling goroutine.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - SubmitterBuilderOption: functional option to set the worker count
func WithWorkers(n int) SubmitterBuilderOption {
	return func(s *submitter) {
		s.workers = max(n, 0)
	}
}

// WithStrict makes running out of transient memory panic instead of skipping the draw.
func WithStrict(strict bool) SubmitterBuilderOption {
	return func(s *submitter) {
		s.strict = strict
	}
}

// WithBoxCulling adds a box test after the sphere test for objects the sphere test could not decide.
func WithBoxCulling(enabled bool) SubmitterBuilderOption {
	return func(s *submitter) {
		s.boxCulling = enabled
	}
}

// WithGPUSkinning selects GPU skinning, the default, or CPU skinning.
func WithGPUSkinning(enabled bool) SubmitterBuilderOption {
	return func(s *submitter) {
		s.gpuSkinning = enabled
	}
}

// WithGizmos enables or disables gizmo lines.
func WithGizmos(enabled bool) SubmitterBuilderOption {
	return func(s *submitter) {
		s.gizmos = enabled
	}
}
