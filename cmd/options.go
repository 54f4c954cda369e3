package cmd

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/Carmen-Shannon/oxy-render/engine/submit"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// renderOptions are the command line settings shared by every command.
type renderOptions struct {
	Mode    rendergraph.Mode
	Width   int
	Height  int
	MaxSize int
	Workers int
	Strict  bool
	Gamma   bool
	Demo    demoOptions
}

func parseRenderOptions(ctx *cli.Context) (renderOptions, error) {
	mode, err := rendergraph.ParseMode(ctx.String("mode"))
	if err != nil {
		return renderOptions{}, err
	}
	opts := renderOptions{
		Mode:    mode,
		Width:   ctx.Int("width"),
		Height:  ctx.Int("height"),
		MaxSize: ctx.Int("max-size"),
		Workers: max(ctx.Int("workers"), 1),
		Strict:  ctx.Bool("strict"),
		Gamma:   ctx.Bool("gamma"),
		Demo: demoOptions{
			Cubes:   max(ctx.Int("cubes"), 0),
			Lights:  max(ctx.Int("lights"), 1),
			Cameras: max(ctx.Int("cameras"), 1),
			Gizmos:  ctx.Bool("gizmos"),
		},
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return renderOptions{}, fmt.Errorf("invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Mode == rendergraph.ModeDirect && !opts.Gamma {
		logger.Warning("direct mode with a linear display skips the gamma conversion")
	}
	return opts, nil
}

// display returns the front buffer description for a window of the given size.
func (o renderOptions) display(width, height, fbWidth, fbHeight int) rendergraph.DisplayInfo {
	cs := common.ColorSpaceLinear
	if o.Gamma {
		cs = common.ColorSpaceGamma
	}
	return rendergraph.DisplayInfo{
		Width:             width,
		Height:            height,
		FramebufferWidth:  fbWidth,
		FramebufferHeight: fbHeight,
		ColorSpace:        cs,
		BorderColor:       mgl32.Vec4{0, 0, 0, 1},
	}
}

// engineOptions translates the settings into engine options. fbWidth and fbHeight are the front
// buffer size in pixels; the fixed render buffer takes the size from the command line.
func (o renderOptions) engineOptions(fbWidth, fbHeight int) []engine.EngineBuilderOption {
	return []engine.EngineBuilderOption{
		engine.WithGraphOptions(
			rendergraph.WithMode(o.Mode),
			rendergraph.WithRenderBufferSize(o.Width, o.Height, o.MaxSize),
		),
		engine.WithSubmitterOptions(
			submit.WithWorkers(o.Workers),
			submit.WithStrict(o.Strict),
			submit.WithGizmos(o.Demo.Gizmos),
		),
		engine.WithStrictLights(o.Strict),
		engine.WithDisplay(o.display(o.Width, o.Height, fbWidth, fbHeight)),
	}
}
