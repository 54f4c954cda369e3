package profiler

import (
	"bytes"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

var logger = log.New("profiler")

// StageStats summarises the recorded durations of one frame stage.
type StageStats struct {
	Stage   string
	Samples int
	Mean    time.Duration
	StdDev  time.Duration
	P95     time.Duration
	Max     time.Duration
}

// Profiler records how long each frame stage takes over a rolling window of frames and logs
// frame rate and memory statistics at an interval.
type Profiler struct {
	mu *sync.Mutex

	window  int
	stages  []string
	samples map[string][]float64
	next    map[string]int

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a profiler keeping the last 240 samples per stage and logging once a
// second, unless options say otherwise.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		window:         240,
		samples:        make(map[string][]float64),
		next:           make(map[string]int),
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Record adds one duration sample to a stage. Once the window is full the oldest sample is
// overwritten.
func (p *Profiler) Record(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.samples[stage]
	if !ok {
		p.stages = append(p.stages, stage)
	}
	ms := float64(d) / float64(time.Millisecond)
	if len(s) < p.window {
		p.samples[stage] = append(s, ms)
		return
	}
	i := p.next[stage]
	s[i] = ms
	p.next[stage] = (i + 1) % p.window
}

// Measure starts timing a stage. Calling the returned function records the elapsed time.
//
//	defer prof.Measure("submit")()
func (p *Profiler) Measure(stage string) func() {
	start := time.Now()
	return func() {
		p.Record(stage, time.Since(start))
	}
}

// Stats summarises every stage in the order stages were first recorded.
//
// Returns:
//   - []StageStats: one entry per stage
func (p *Profiler) Stats() []StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]StageStats, 0, len(p.stages))
	for _, stage := range p.stages {
		x := slices.Clone(p.samples[stage])
		slices.Sort(x)

		st := StageStats{Stage: stage, Samples: len(x)}
		if len(x) > 0 {
			mean := stat.Mean(x, nil)
			st.Mean = fromMillis(mean)
			if len(x) > 1 {
				st.StdDev = fromMillis(stat.StdDev(x, nil))
			}
			st.P95 = fromMillis(stat.Quantile(0.95, stat.Empirical, x, nil))
			st.Max = fromMillis(x[len(x)-1])
		}
		out = append(out, st)
	}
	return out
}

// Table renders Stats as a text table.
func (p *Profiler) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stage", "Samples", "Mean", "StdDev", "P95", "Max"})

	var total time.Duration
	for _, st := range p.Stats() {
		table.Append([]string{
			st.Stage,
			fmt.Sprintf("%d", st.Samples),
			formatDuration(st.Mean),
			formatDuration(st.StdDev),
			formatDuration(st.P95),
			formatDuration(st.Max),
		})
		total += st.Mean
	}
	table.SetFooter([]string{"total", "", formatDuration(total), "", "", ""})
	table.Render()
	return buf.String()
}

// Reset drops every recorded sample.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = nil
	p.samples = make(map[string][]float64)
	p.next = make(map[string]int)
}

// Tick should be called once per frame. When the update interval has elapsed it logs the frame
// rate, heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logger.Infof("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}
