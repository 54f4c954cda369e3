package profiler

import "time"

// ProfilerBuilderOption is a functional option for NewProfiler.
type ProfilerBuilderOption func(p *Profiler)

// WithWindow sets how many samples per stage are kept. Values below 1 keep one.
func WithWindow(n int) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.window = max(n, 1)
	}
}

// WithUpdateInterval sets how often Tick logs frame statistics.
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}
