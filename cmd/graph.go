package cmd

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/urfave/cli"
)

// Graph builds the render graph of the demo world for one frame and prints its nodes and passes.
func Graph(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := parseRenderOptions(ctx)
	if err != nil {
		return err
	}

	backend := renderer.NewRecordingBackend(
		renderer.WithBackBufferSize(opts.Width, opts.Height),
		renderer.WithMaxEncoders(opts.Workers),
	)
	defer backend.Shutdown()

	sc, _ := buildDemoScene(opts.Demo)
	defer sc.Close()

	e, err := engine.NewEngine(backend, append(opts.engineOptions(opts.Width, opts.Height), engine.WithScene(sc))...)
	if err != nil {
		return err
	}
	defer e.Release()

	if _, err := e.RenderFrame(context.Background()); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}

	g := e.Graph()
	logger.Noticef("render graph: mode %s, main aspect %.3f\n%s", g.Config().Mode, g.MainAspect(), g.Graph().Table())
	return nil
}
