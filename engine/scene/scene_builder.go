package scene

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs and attached lights are registered.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			s.addLocked(obj)
		}
	}
}

// WithCameras adds initial cameras.
func WithCameras(cameras ...camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cameras = append(s.cameras, cameras...)
	}
}

// WithLights adds initial lights.
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithAmbientLight adds an ambient light.
func WithAmbientLight(a *light.AmbientLight) SceneBuilderOption {
	return func(s *scene) {
		s.ambients = append(s.ambients, a)
	}
}

// WithFog adds a fog.
func WithFog(f *light.Fog) SceneBuilderOption {
	return func(s *scene) {
		s.fogs = append(s.fogs, f)
	}
}

// WithBoundsWorkers sets the number of worker goroutines used by UpdateBounds.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers, at least 1
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBoundsWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.boundsWorkers = max(n, 1)
	}
}

// WithChunkCapacity sets the maximum number of objects in one chunk.
func WithChunkCapacity(n int) SceneBuilderOption {
	return func(s *scene) {
		s.chunkCapacity = max(n, 1)
	}
}
