package cmd

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
)

func TestBuildDemoScene(t *testing.T) {
	type spec struct {
		opts       demoOptions
		expObjects int
		expLights  int
		expCameras int
	}

	specs := []spec{
		{demoOptions{Cubes: 0, Lights: 1, Cameras: 1}, 1, 1, 1},
		{demoOptions{Cubes: 8, Lights: 4, Cameras: 3, Gizmos: true}, 9, 4, 3},
	}

	for index, s := range specs {
		sc, cam := buildDemoScene(s.opts)
		if got := len(sc.Objects()); got != s.expObjects {
			t.Fatalf("[spec %d] expected %d objects; got %d", index, s.expObjects, got)
		}
		if got := len(sc.Lights()); got != s.expLights {
			t.Fatalf("[spec %d] expected %d lights; got %d", index, s.expLights, got)
		}
		if got := len(sc.Cameras()); got != s.expCameras {
			t.Fatalf("[spec %d] expected %d cameras; got %d", index, s.expCameras, got)
		}
		if cam.Controller() == nil {
			t.Fatalf("[spec %d] expected the main camera to carry a controller", index)
		}

		sun := sc.Lights()[0]
		if sun.Kind() != light.KindDirectional || sun.Cascade() == nil {
			t.Fatalf("[spec %d] expected the first light to be the cascaded sun", index)
		}
		a := sun.AutoMoving()
		if a == nil || !a.AutoBounds || a.ClipToCamera != sun.Cascade().Camera {
			t.Fatalf("[spec %d] expected the sun to track the world and clip to its cascade camera", index)
		}
		sc.Close()
	}
}

func TestDemoSceneRenders(t *testing.T) {
	opts := renderOptions{
		Mode:    rendergraph.ModeFixed,
		Width:   640,
		Height:  360,
		MaxSize: 2048,
		Workers: 2,
		Demo:    demoOptions{Cubes: 16, Lights: 3, Cameras: 2},
	}

	backend := renderer.NewRecordingBackend(renderer.WithBackBufferSize(opts.Width, opts.Height))
	defer backend.Shutdown()
	sc, _ := buildDemoScene(opts.Demo)
	defer sc.Close()

	e, err := engine.NewEngine(backend, append(opts.engineOptions(opts.Width, opts.Height), engine.WithScene(sc))...)
	if err != nil {
		t.Fatalf("expected an engine; got %v", err)
	}
	defer e.Release()

	for i := range 3 {
		res, err := e.RenderFrame(context.Background())
		if err != nil {
			t.Fatalf("[frame %d] expected the demo to render; got %v", i, err)
		}
		if res.Stats.Draws == 0 {
			t.Fatalf("[frame %d] expected draws", i)
		}
	}
	if len(backend.LastFrame().Views) == 0 {
		t.Fatalf("expected the last frame to record views")
	}
}
