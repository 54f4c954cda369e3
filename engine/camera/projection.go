package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionMatrixPerspective builds a perspective projection mapping view space depth [near, far]
// to clip space [-1, 1]. The camera looks down +z.
//
// Parameters:
//   - near: near clip distance (> 0)
//   - far: far clip distance (> near)
//   - fovDeg: vertical field of view in degrees
//   - aspect: width / height
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func ProjectionMatrixPerspective(near, far, fovDeg, aspect float32) mgl32.Mat4 {
	tanHalf := float32(math.Tan(float64(mgl32.DegToRad(fovDeg)) * 0.5))
	var m mgl32.Mat4
	m.Set(0, 0, 1/(tanHalf*aspect))
	m.Set(1, 1, 1/tanHalf)
	m.Set(2, 2, (far+near)/(far-near))
	m.Set(2, 3, -2*far*near/(far-near))
	m.Set(3, 2, 1)
	return m
}

// ProjectionMatrixOrtho builds an orthographic projection with the same conventions as
// ProjectionMatrixPerspective. size is the vertical half size of the view volume.
func ProjectionMatrixOrtho(near, far, size, aspect float32) mgl32.Mat4 {
	var m mgl32.Mat4
	m.Set(0, 0, 1/(size*aspect))
	m.Set(1, 1, 1/size)
	m.Set(2, 2, 2/(far-near))
	m.Set(2, 3, -(far+near)/(far-near))
	m.Set(3, 3, 1)
	return m
}

// ProjectionMatrixUnitOrthoOffset builds the orthographic projection of one shadow cascade.
// Light space x and y are scaled by invSize and shifted by offset; z in [0, 1] maps to [-1, 1].
//
// Parameters:
//   - offset: clip space offset applied after scaling
//   - invSize: inverse of the cascade ratio
//
// Returns:
//   - mgl32.Mat4: the cascade projection
func ProjectionMatrixUnitOrthoOffset(offset mgl32.Vec2, invSize float32) mgl32.Mat4 {
	m := mgl32.Ident4()
	m.Set(0, 0, invSize)
	m.Set(0, 3, offset[0])
	m.Set(1, 1, invSize)
	m.Set(1, 3, offset[1])
	m.Set(2, 2, 2)
	m.Set(2, 3, -1)
	return m
}

// FrustumVertexPerspective returns frustum vertex idx in camera space.
// Vertices 0-3 lie on the near plane and 4-7 on the far plane; bit0 negates x and bit1 negates y,
// so vertices are indexed like the corners of common.WorldBounds.
//
// Parameters:
//   - idx: vertex index in [0, 8)
//   - w: half width of the frustum at distance 1
//   - h: half height of the frustum at distance 1
//   - near: near clip distance
//   - far: far clip distance
//
// Returns:
//   - mgl32.Vec3: the camera space vertex
func FrustumVertexPerspective(idx int, w, h, near, far float32) mgl32.Vec3 {
	d := near
	if idx >= 4 {
		d = far
	}
	r := mgl32.Vec3{w * d, h * d, d}
	return negateByIndex(idx, r)
}

// FrustumVertexOrtho returns frustum vertex idx of an orthographic camera in camera space.
func FrustumVertexOrtho(idx int, w, h, near, far float32) mgl32.Vec3 {
	z := near
	if idx >= 4 {
		z = far
	}
	return negateByIndex(idx, mgl32.Vec3{w, h, z})
}

func negateByIndex(idx int, r mgl32.Vec3) mgl32.Vec3 {
	switch idx & 3 {
	case 1:
		r[0] = -r[0]
	case 2:
		r[1] = -r[1]
	case 3:
		r[0] = -r[0]
		r[1] = -r[1]
	}
	return r
}

// BoundsFromCamera returns the eight frustum vertices of a camera in camera space.
// The result is indexed like common.WorldBounds so common.EdgeTable walks the frustum edges.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - common.WorldBounds: the camera space frustum corners
func BoundsFromCamera(c Camera) common.WorldBounds {
	var wb common.WorldBounds
	near, far := c.ClipZNear(), c.ClipZFar()
	aspect := c.Aspect()

	var w, h float32
	if c.Mode() == ModeOrthographic {
		h = c.Fov()
		w = h * aspect
	} else {
		h = float32(math.Tan(float64(mgl32.DegToRad(c.Fov())) * 0.5))
		w = h * aspect
	}

	for i := range wb.Corners {
		if c.Mode() == ModeOrthographic {
			wb.Corners[i] = FrustumVertexOrtho(i, w, h, near, far)
		} else {
			wb.Corners[i] = FrustumVertexPerspective(i, w, h, near, far)
		}
	}
	return wb
}

// LookAtWorld builds the world matrix of an object at eye facing target, for the +z forward convention.
// The object's x axis points right and its y axis up.
//
// Parameters:
//   - eye: the world position
//   - target: the point to face
//   - up: the world up vector
//
// Returns:
//   - mgl32.Mat4: the world matrix
func LookAtWorld(eye, target, up mgl32.Vec3) mgl32.Mat4 {
	f := target.Sub(eye)
	if f.Len() < 1e-8 {
		return mgl32.Translate3D(eye[0], eye[1], eye[2])
	}
	f = f.Normalize()
	r := up.Cross(f)
	if r.Len() < 1e-8 {
		r = mgl32.Vec3{1, 0, 0}
	}
	r = r.Normalize()
	u := f.Cross(r)

	return mgl32.Mat4FromCols(r.Vec4(0), u.Vec4(0), f.Vec4(0), eye.Vec4(1))
}
