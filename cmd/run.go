package cmd

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"github.com/urfave/cli"
)

// Pixels of mouse movement per orbit step.
const orbitStepPixels = 4

// Run opens a window and renders the demo world with the WebGPU backend until the window closes.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := parseRenderOptions(ctx)
	if err != nil {
		return err
	}

	w, err := window.NewWindow(
		window.WithTitle("oxy-render"),
		window.WithWidth(opts.Width),
		window.WithHeight(opts.Height),
		window.WithResizable(true),
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer w.Close()

	presentMode := renderer.PresentModeUncapped
	if ctx.Bool("vsync") {
		presentMode = renderer.PresentModeVSync
	}
	msaa := renderer.MSAA4x
	if ctx.Bool("no-msaa") {
		msaa = renderer.MSAAOff
	}
	fbWidth, fbHeight := w.FramebufferSize()
	backend, err := renderer.NewWGPUBackend(w.SurfaceDescriptor(), fbWidth, fbHeight,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(ctx.Bool("software")),
		renderer.WithEncoders(opts.Workers),
	)
	if err != nil {
		return err
	}
	defer backend.Shutdown()

	sc, cam := buildDemoScene(opts.Demo)
	defer sc.Close()

	options := append(opts.engineOptions(fbWidth, fbHeight),
		engine.WithWindow(w),
		engine.WithScene(sc),
		engine.WithProfiling(ctx.GlobalBool("v") || ctx.GlobalBool("vv")),
		engine.WithDisplay(opts.display(w.Width(), w.Height(), fbWidth, fbHeight)),
	)
	if limit := ctx.Float64("fps"); limit > 0 {
		options = append(options, engine.WithRenderFrameLimit(limit))
	}
	e, err := engine.NewEngine(backend, options...)
	if err != nil {
		return err
	}
	defer e.Release()

	setupInput(e, w, cam.Controller())

	logger.Noticef("rendering %dx%d (%s mode), WASD to pan (shift is faster), Q/E up and down, middle mouse to orbit, scroll to zoom, Esc to quit", fbWidth, fbHeight, opts.Mode)
	e.Run()
	return nil
}

// setupInput drives the camera controller from the window. Keys are polled on the engine tick;
// Esc is handled by the window itself.
func setupInput(e engine.Engine, w window.Window, cc camera.CameraController) {
	var (
		mu       sync.Mutex
		keys     = map[uint32]bool{}
		dragging bool
		lastX    int32
		lastY    int32
	)

	w.SetKeyDownCallback(func(keyCode uint32) {
		mu.Lock()
		keys[keyCode] = true
		mu.Unlock()
	})
	w.SetKeyUpCallback(func(keyCode uint32) {
		mu.Lock()
		keys[keyCode] = false
		mu.Unlock()
	})

	w.SetMiddleMouseDownCallback(func(x, y int32) {
		dragging = true
		lastX, lastY = x, y
	})
	w.SetMiddleMouseUpCallback(func(_, _ int32) {
		dragging = false
	})
	w.SetMouseMoveCallback(func(x, y int32) {
		if !dragging {
			return
		}
		for ; x-lastX >= orbitStepPixels; lastX += orbitStepPixels {
			cc.OrbitRight()
		}
		for ; lastX-x >= orbitStepPixels; lastX -= orbitStepPixels {
			cc.OrbitLeft()
		}
		for ; y-lastY >= orbitStepPixels; lastY += orbitStepPixels {
			cc.OrbitUp()
		}
		for ; lastY-y >= orbitStepPixels; lastY -= orbitStepPixels {
			cc.OrbitDown()
		}
	})
	w.SetScrollCallback(func(delta float32) {
		cc.Zoom(delta)
	})

	e.SetTickCallback(func(_ float32) {
		mu.Lock()
		defer mu.Unlock()
		step := float32(1)
		if keys[common.KeyLeftShift] {
			step = 3
		}
		if keys[common.KeyW] {
			cc.PanForward(step)
		}
		if keys[common.KeyS] {
			cc.PanForward(-step)
		}
		if keys[common.KeyA] {
			cc.PanRight(-step)
		}
		if keys[common.KeyD] {
			cc.PanRight(step)
		}
		if keys[common.KeyQ] {
			cc.PanUp(step)
		}
		if keys[common.KeyE] {
			cc.PanUp(-step)
		}
	})
}
