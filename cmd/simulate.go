package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/submit"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Simulate renders the demo world headless on the recording backend and prints the stage timings
// and submission statistics.
func Simulate(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := parseRenderOptions(ctx)
	if err != nil {
		return err
	}
	frames := max(ctx.Int("frames"), 1)

	backend := renderer.NewRecordingBackend(
		renderer.WithBackBufferSize(opts.Width, opts.Height),
		renderer.WithMaxEncoders(opts.Workers),
	)
	defer backend.Shutdown()

	sc, cam := buildDemoScene(opts.Demo)
	defer sc.Close()

	e, err := engine.NewEngine(backend, append(opts.engineOptions(opts.Width, opts.Height),
		engine.WithScene(sc),
		engine.WithProfiling(true),
	)...)
	if err != nil {
		return err
	}
	defer e.Release()

	var (
		total    submit.Stats
		rebuilds int
		start    = time.Now()
	)
	for i := range frames {
		// Orbit a little every frame so culling and cascades see movement.
		cam.Controller().OrbitRight()

		res, err := e.RenderFrame(context.Background())
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if res.Rebuilt {
			rebuilds++
		}
		total.Chunks += res.Stats.Chunks
		total.ChunksCulled += res.Stats.ChunksCulled
		total.Draws += res.Stats.Draws
		total.Culled += res.Stats.Culled
		total.Skipped += res.Stats.Skipped
		total.Lines += res.Stats.Lines
	}
	elapsed := time.Since(start)

	last := backend.LastFrame()
	logger.Noticef("rendered %d frames in %s (%d graph rebuilds, %d views in the last frame)", frames, elapsed, rebuilds, len(last.Views))
	logger.Noticef("stage timings\n%s", e.Profiler().Table())
	displaySubmitStats(total, frames)
	displayResources(backend)
	return nil
}

func displaySubmitStats(total submit.Stats, frames int) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Counter", "Total", "Per frame"})
	rows := []struct {
		name  string
		value int
	}{
		{"chunk jobs", total.Chunks},
		{"chunks culled", total.ChunksCulled},
		{"draws", total.Draws},
		{"objects culled", total.Culled},
		{"draws skipped", total.Skipped},
		{"gizmo lines", total.Lines},
	}
	for _, r := range rows {
		table.Append([]string{
			r.name,
			fmt.Sprintf("%d", r.value),
			fmt.Sprintf("%.1f", float64(r.value)/float64(frames)),
		})
	}
	table.Render()
	logger.Noticef("submission statistics\n%s", buf.String())
}

func displayResources(backend renderer.RecordingBackend) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Resource", "Live"})
	for kind := renderer.HandleVertexBuffer; kind <= renderer.HandleUniform; kind++ {
		table.Append([]string{kind.String(), fmt.Sprintf("%d", backend.LiveCount(kind))})
	}
	table.Render()
	logger.Noticef("backend resources\n%s", buf.String())
}
