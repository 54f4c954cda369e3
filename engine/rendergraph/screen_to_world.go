package rendergraph

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// PassTransform applies the view and projection of a pass followed by the perspective divide.
func PassTransform(pos mgl32.Vec4, p *Pass) mgl32.Vec4 {
	pp := p.Projection.Mul4x1(p.View.Mul4x1(pos))
	return pp.Mul(1 / pp.W())
}

// InversePassTransform undoes PassTransform up to the homogeneous divide.
func InversePassTransform(pos mgl32.Vec4, p *Pass) mgl32.Vec4 {
	pos = pos.Mul(pos.W())
	pp := p.Projection.Inv().Mul4x1(pos)
	return p.View.Inv().Mul4x1(pp)
}

// ViewPortTransform maps normalized device coordinates in [-1, 1] to pixels of the pass viewport.
func ViewPortTransform(ndc mgl32.Vec2, p *Pass) mgl32.Vec2 {
	vp := p.Viewport
	return mgl32.Vec2{
		(ndc.X()+1)*0.5*float32(vp.W) + float32(vp.X),
		(ndc.Y()+1)*0.5*float32(vp.H) + float32(vp.Y),
	}
}

// InverseViewPortTransform maps pixels of the pass viewport to normalized device coordinates.
func InverseViewPortTransform(px mgl32.Vec2, p *Pass) mgl32.Vec2 {
	vp := p.Viewport
	return mgl32.Vec2{
		(px.X()-float32(vp.X))/float32(vp.W)*2 - 1,
		(px.Y()-float32(vp.Y))/float32(vp.H)*2 - 1,
	}
}

// WorldSpaceToScreenSpace projects a world position through a pick chain.
//
// Parameters:
//   - world: the world position
//   - id: the pick chain
//
// Returns:
//   - mgl32.Vec3: x and y in pixels, z normalized with -1 near and 1 far
//   - bool: false if the graph has no such chain
func (g *Graph) WorldSpaceToScreenSpace(world mgl32.Vec3, id ScreenToWorldID) (mgl32.Vec3, bool) {
	chain, ok := g.ScreenToWorld[id]
	if !ok || chain.Root == NoIndex {
		return mgl32.Vec3{}, false
	}
	pp := world.Vec4(1)
	for i := len(chain.List) - 1; i >= 0; i-- {
		pp = PassTransform(pp, &g.Passes[chain.List[i]])
	}
	root := &g.Passes[chain.Root]
	pp = PassTransform(pp, root)
	xy := ViewPortTransform(pp.Vec2(), root)
	return mgl32.Vec3{xy.X(), xy.Y(), pp.Z()}, true
}

// ScreenSpaceToWorldSpace unprojects a pixel position through a pick chain.
// The position is in pixels, not points; see AdjustInputPositionToPixels.
//
// Parameters:
//   - screen: the position in pixels
//   - normalizedZ: the depth, -1 near and 1 far
//   - id: the pick chain
//
// Returns:
//   - mgl32.Vec3: the world position
//   - bool: false if the graph has no such chain
func (g *Graph) ScreenSpaceToWorldSpace(screen mgl32.Vec2, normalizedZ float32, id ScreenToWorldID) (mgl32.Vec3, bool) {
	chain, ok := g.ScreenToWorld[id]
	if !ok || chain.Root == NoIndex {
		return mgl32.Vec3{}, false
	}
	root := &g.Passes[chain.Root]
	ndc := InverseViewPortTransform(screen, root)
	pp := InversePassTransform(mgl32.Vec4{ndc.X(), ndc.Y(), normalizedZ, 1}, root)
	for _, p := range chain.List {
		pp = InversePassTransform(pp, &g.Passes[p])
	}
	pp = pp.Mul(1 / pp.W())
	return pp.Vec3(), true
}

// ScreenSpaceToWorldSpaceRay returns the normalized world ray under a pixel position.
func (g *Graph) ScreenSpaceToWorldSpaceRay(screen mgl32.Vec2, id ScreenToWorldID) (origin, direction mgl32.Vec3, ok bool) {
	origin, ok = g.ScreenSpaceToWorldSpace(screen, 0, id)
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, false
	}
	far, _ := g.ScreenSpaceToWorldSpace(screen, 1, id)
	direction = far.Sub(origin)
	if l := direction.Len(); l > 0 {
		direction = direction.Mul(1 / l)
	}
	return origin, direction, true
}

// ScreenSpaceToWorldSpacePos returns the point under a pixel position on the plane facing cam at
// distance in front of it.
//
// Parameters:
//   - screen: the position in pixels
//   - distance: the distance of the plane in front of the camera
//   - cam: the camera the plane faces
//   - id: the pick chain
//
// Returns:
//   - mgl32.Vec3: the world position
//   - bool: false if the chain is missing or the ray is parallel to the plane
func (g *Graph) ScreenSpaceToWorldSpacePos(screen mgl32.Vec2, distance float32, cam camera.Camera, id ScreenToWorldID) (mgl32.Vec3, bool) {
	origin, dir, ok := g.ScreenSpaceToWorldSpaceRay(screen, id)
	if !ok || cam == nil {
		return mgl32.Vec3{}, false
	}
	pos, up, left := WorldSpaceCameraPlane(cam, distance)
	normal := up.Cross(left)
	denom := normal.Dot(dir)
	if float32(math.Abs(float64(denom))) < 1e-8 {
		return mgl32.Vec3{}, false
	}
	t := normal.Dot(pos.Sub(origin)) / denom
	return origin.Add(dir.Mul(t)), true
}

// WorldSpaceCameraPlane returns a plane distance units along the camera's view axis, described by
// its center and the camera's up and left axes.
func WorldSpaceCameraPlane(cam camera.Camera, distance float32) (pos, up, left mgl32.Vec3) {
	w := cam.World()
	pos = w.Col(3).Vec3().Add(w.Col(2).Vec3().Mul(distance))
	return pos, w.Col(1).Vec3(), w.Col(0).Vec3()
}

// DefaultCamera returns the camera with the lowest depth, or nil.
func DefaultCamera(cams []camera.Camera) camera.Camera {
	var found camera.Camera
	best := float32(math.MaxFloat32)
	for _, c := range cams {
		if d := c.Depth(); d < best {
			best = d
			found = c
		}
	}
	return found
}

// AdjustInputPositionToPixels converts a position in window points to front buffer pixels.
func AdjustInputPositionToPixels(pos mgl32.Vec2, display DisplayInfo) mgl32.Vec2 {
	if display.Width == 0 || display.Height == 0 {
		return pos
	}
	fbW, fbH := display.Framebuffer()
	return mgl32.Vec2{
		pos.X() * float32(fbW) / float32(display.Width),
		pos.Y() * float32(fbH) / float32(display.Height),
	}
}
