package main

import (
	"os"

	"github.com/Carmen-Shannon/oxy-render/cmd"
	"github.com/urfave/cli"
)

// renderFlags are shared by every command that builds the demo world.
var renderFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "mode",
		Value: "fixed",
		Usage: "render buffer mode: fixed, scaled or direct",
	},
	cli.IntFlag{
		Name:  "width",
		Value: 1280,
		Usage: "window or back buffer width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: 720,
		Usage: "window or back buffer height",
	},
	cli.IntFlag{
		Name:  "max-size",
		Value: 2048,
		Usage: "largest render buffer dimension",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 4,
		Usage: "number of parallel submit workers",
	},
	cli.BoolFlag{
		Name:  "strict",
		Usage: "fail the frame on recoverable submit errors",
	},
	cli.BoolFlag{
		Name:  "gamma",
		Usage: "the display expects gamma encoded color",
	},
	cli.IntFlag{
		Name:  "cubes",
		Value: 256,
		Usage: "number of cubes in the demo world",
	},
	cli.IntFlag{
		Name:  "lights",
		Value: 4,
		Usage: "number of lights, the first is a shadowed sun",
	},
	cli.IntFlag{
		Name:  "cameras",
		Value: 1,
		Usage: "number of cameras, extra cameras render picture in picture",
	},
	cli.BoolFlag{
		Name:  "gizmos",
		Usage: "draw world bounds of every cube",
	},
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-render"
	app.Usage = "render lit, shadowed scenes through a multi-stage render graph"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "simulate",
			Usage: "render frames headless and report statistics",
			Description: `
Build the demo world and render it against the recording backend. No GPU or
window is needed; the command prints the stage timings, the accumulated submit
statistics and the live GPU resources once all frames are done.`,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "frames",
					Value: 120,
					Usage: "number of frames to render",
				},
			}, renderFlags...),
			Action: cmd.Simulate,
		},
		{
			Name:   "graph",
			Usage:  "print the render graph views and targets after one frame",
			Flags:  renderFlags,
			Action: cmd.Graph,
		},
		{
			Name:  "run",
			Usage: "render the demo world in a window",
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "vsync",
					Usage: "wait for vertical sync",
				},
				cli.BoolFlag{
					Name:  "no-msaa",
					Usage: "disable multisampling of the back buffer",
				},
				cli.BoolFlag{
					Name:  "software",
					Usage: "force the fallback software adapter",
				},
				cli.Float64Flag{
					Name:  "fps",
					Usage: "render frame limit, 0 is uncapped",
				},
			}, renderFlags...),
			Action: cmd.Run,
		},
	}

	app.Run(os.Args)
}
