package cmd

import (
	"math"
	"math/rand"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	demoGridSide    = 16
	demoCubeSpacing = 3
	demoGroundSize  = 80
)

// demoOptions sizes the demo world.
type demoOptions struct {
	Cubes   int
	Lights  int
	Cameras int
	Gizmos  bool
}

// faceColors gives each cube face a distinct linear albedo.
var faceColors = [6]mgl32.Vec3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 1, 0},
	{1, 0, 1},
	{0, 1, 1},
}

// cubeFaces holds the 4 corners and the normal of each face of a unit cube.
var cubeFaces = [6]struct {
	corners [4][3]float32
	normal  [3]float32
	tangent [3]float32
}{
	{[4][3]float32{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	{[4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {-0.5, -0.5, -0.5}}, [3]float32{-1, 0, 0}, [3]float32{0, 0, -1}},
	{[4][3]float32{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}}, [3]float32{0, 1, 0}, [3]float32{1, 0, 0}},
	{[4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}}, [3]float32{0, -1, 0}, [3]float32{1, 0, 0}},
	{[4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}, [3]float32{0, 0, 1}, [3]float32{1, 0, 0}},
	{[4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, [3]float32{0, 0, -1}, [3]float32{-1, 0, 0}},
}

var faceTexCoords = [4][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}

// buildCubeMesh creates a unit lit cube. Rainbow cubes color each face, otherwise every face is
// white and the material provides the color.
func buildCubeMesh(name string, rainbow bool) *mesh.Data {
	vertices := make([]mesh.LitVertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for fi, face := range cubeFaces {
		albedo := mgl32.Vec3{1, 1, 1}
		if rainbow {
			albedo = faceColors[fi]
		}
		base := uint16(len(vertices))
		for ci, corner := range face.corners {
			vertices = append(vertices, mesh.LitVertex{
				Position:        corner,
				TexCoord:        faceTexCoords[ci],
				Normal:          face.normal,
				Tangent:         face.tangent,
				AlbedoOpacity:   [4]float32{albedo[0], albedo[1], albedo[2], 1},
				MetalSmoothness: [2]float32{0, 0.5},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return mesh.NewLitData(name, vertices, indices)
}

// buildDemoScene creates a ground plane with a grid of cubes, a cascade shadow mapped sun and
// the requested number of extra point and spot lights and cameras. The first camera carries an
// orbit controller.
//
// Parameters:
//   - opts: the world size
//
// Returns:
//   - scene.Scene: the active scene
//   - camera.Camera: the controlled camera
func buildDemoScene(opts demoOptions) (scene.Scene, camera.Camera) {
	cameras := make([]camera.Camera, 0, max(opts.Cameras, 1))
	mainCam := camera.NewCamera(
		camera.WithFov(60),
		camera.WithClip(0.1, 500),
		camera.WithAutoAspect(),
		camera.WithClearMode(camera.ClearSolidColor, mgl32.Vec4{0.05, 0.06, 0.09, 1}),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(60),
			camera.WithElevation(0.45),
			camera.WithAzimuth(0.6),
			camera.WithTarget(mgl32.Vec3{0, 4, 0}),
			camera.WithRadiusLimits(2, 400),
		)),
	)
	cameras = append(cameras, mainCam)

	// Extra cameras render picture in picture strips along the top of the main view.
	extra := max(opts.Cameras-1, 0)
	for i := range extra {
		w := 1 / float32(extra)
		angle := 2 * math.Pi * float64(i) / float64(extra)
		eye := mgl32.Vec3{float32(math.Cos(angle)) * 40, 25, float32(math.Sin(angle)) * 40}
		cameras = append(cameras, camera.NewCamera(
			camera.WithLookAt(eye, mgl32.Vec3{}),
			camera.WithFov(50),
			camera.WithClip(0.1, 300),
			camera.WithAutoAspect(),
			camera.WithViewportRect(common.Rect{X: float32(i) * w, Y: 0.75, W: w, H: 0.25}),
			camera.WithDepth(float32(i+1)),
			camera.WithClearMode(camera.ClearSolidColor, mgl32.Vec4{0.1, 0.1, 0.12, 1}),
		))
	}

	var objects []game_object.GameObject
	groundMat := mesh.NewLitMaterial()
	groundMat.ConstAlbedo = mgl32.Vec3{0.45, 0.45, 0.42}
	objects = append(objects, game_object.NewGameObject(
		game_object.WithName("ground"),
		game_object.WithMesh(buildCubeMesh("ground", false)),
		game_object.WithLitMaterial(groundMat),
		game_object.WithPosition(0, -0.5, 0),
		game_object.WithScale(demoGroundSize, 1, demoGroundSize),
	))

	cube := buildCubeMesh("cube", true)
	cubeMat := mesh.NewLitMaterial()
	gizmos := game_object.Gizmo(0)
	if opts.Gizmos {
		gizmos = game_object.GizmoWorldBounds
	}
	for i := range opts.Cubes {
		col := i % demoGridSide
		row := (i / demoGridSide) % demoGridSide
		layer := i / (demoGridSide * demoGridSide)
		x := (float32(col) - float32(demoGridSide-1)/2) * demoCubeSpacing
		z := (float32(row) - float32(demoGridSide-1)/2) * demoCubeSpacing
		y := 0.5 + float32(layer)*demoCubeSpacing
		objects = append(objects, game_object.NewGameObject(
			game_object.WithMesh(cube),
			game_object.WithLitMaterial(cubeMat),
			game_object.WithPosition(x, y, z),
			game_object.WithRotation(0, rand.Float32()*math.Pi, 0),
			game_object.WithGizmos(gizmos),
		))
	}

	lights := []light.Light{
		light.NewLight(light.KindDirectional,
			light.WithLookAt(mgl32.Vec3{30, 60, -20}, mgl32.Vec3{}),
			light.WithColor(1, 0.95, 0.85),
			light.WithIntensity(1.2),
			light.WithShadow(2048),
			light.WithAutoMoving(common.AABB{}, true, mainCam),
			light.WithCascades(mainCam, mgl32.Vec3{0.5, 0.25, 0.1}, 0.1),
		),
	}
	for i := 1; i < opts.Lights; i++ {
		angle := 2 * math.Pi * float64(i) / float64(opts.Lights)
		pos := mgl32.Vec3{float32(math.Cos(angle)) * 20, 8, float32(math.Sin(angle)) * 20}
		c := faceColors[i%len(faceColors)]
		if i == 1 {
			// The first extra light is a shadow mapped spot light over the grid center.
			lights = append(lights, light.NewLight(light.KindSpot,
				light.WithLookAt(mgl32.Vec3{0, 30, 10}, mgl32.Vec3{}),
				light.WithColor(c[0], c[1], c[2]),
				light.WithIntensity(2),
				light.WithClip(0.5, 80),
				light.WithSpot(50, 0.6, 1),
				light.WithShadow(1024),
			))
			continue
		}
		lights = append(lights, light.NewLight(light.KindPoint,
			light.WithWorld(mgl32.Translate3D(pos[0], pos[1], pos[2])),
			light.WithColor(c[0], c[1], c[2]),
			light.WithIntensity(1.5),
			light.WithClip(0.1, 30),
		))
	}

	sc := scene.NewScene("demo",
		scene.WithActive(true),
		scene.WithCameras(cameras...),
		scene.WithObjects(objects...),
		scene.WithLights(lights...),
		scene.WithAmbientLight(&light.AmbientLight{Color: mgl32.Vec3{0.6, 0.65, 0.8}, Intensity: 0.15}),
		scene.WithFog(&light.Fog{Mode: light.FogExp2, Color: mgl32.Vec4{0.05, 0.06, 0.09, 1}, Density: 0.004}),
	)
	return sc, mainCam
}
