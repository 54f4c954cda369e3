package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// AllBits is the default value of every camera, light and shadow mask.
const AllBits = ^uint32(0)

// TransformPoint transforms a point by a 4x4 matrix, treating it as a position (w = 1).
// The result is not homogenized.
//
// Parameters:
//   - m: the transform to apply
//   - p: the point to transform
//
// Returns:
//   - mgl32.Vec3: the transformed point
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection transforms a direction by a 4x4 matrix, ignoring translation (w = 0).
//
// Parameters:
//   - m: the transform to apply
//   - d: the direction to transform
//
// Returns:
//   - mgl32.Vec3: the transformed direction
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// ProjectPoint transforms a position by a projection matrix and divides by w.
//
// Parameters:
//   - m: the (view-)projection matrix
//   - p: the world or view space position
//
// Returns:
//   - mgl32.Vec3: the position in normalized device coordinates
func ProjectPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(p.Vec4(1))
	if v[3] == 0 {
		return v.Vec3()
	}
	return v.Vec3().Mul(1 / v[3])
}

// Translation returns the translation column of a world matrix.
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

// Forward returns the normalized +z axis of a world matrix, the direction cameras and lights face.
func Forward(m mgl32.Mat4) mgl32.Vec3 {
	f := m.Col(2).Vec3()
	if f.Len() == 0 {
		return mgl32.Vec3{0, 0, 1}
	}
	return f.Normalize()
}

// RotationTranslation strips scale from a world matrix, keeping orthonormal rotation columns and translation.
//
// Parameters:
//   - m: the world matrix
//
// Returns:
//   - mgl32.Mat4: the rigid part of the transform
func RotationTranslation(m mgl32.Mat4) mgl32.Mat4 {
	out := m
	for c := 0; c < 3; c++ {
		col := m.Col(c).Vec3()
		if l := col.Len(); l > 0 {
			col = col.Mul(1 / l)
		}
		out.SetCol(c, col.Vec4(0))
	}
	return out
}

// MaxAxisScale returns the largest column length of the upper 3x3 of a transform.
func MaxAxisScale(m mgl32.Mat4) float32 {
	var maxSq float32
	for c := 0; c < 3; c++ {
		col := m.Col(c).Vec3()
		if l := col.Dot(col); l > maxSq {
			maxSq = l
		}
	}
	return float32(math.Sqrt(float64(maxSq)))
}

// InverseSquare returns 1/x², or 0 when x is not positive. Used for light ranges where 0 means infinite.
func InverseSquare(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return 1 / (x * x)
}

// AsUint reinterprets the bit pattern of a float as an unsigned integer.
// Ordering is preserved for non-negative floats.
func AsUint(f float32) uint32 {
	return math.Float32bits(f)
}

// LinearToSRGB converts a linear color to the sRGB display color space. Alpha is passed through.
//
// Parameters:
//   - c: the linear RGBA color
//
// Returns:
//   - mgl32.Vec4: the sRGB color
func LinearToSRGB(c mgl32.Vec4) mgl32.Vec4 {
	out := c
	for i := 0; i < 3; i++ {
		v := c[i]
		switch {
		case v <= 0:
			out[i] = 0
		case v <= 0.0031308:
			out[i] = v * 12.92
		default:
			out[i] = 1.055*float32(math.Pow(float64(v), 1/2.4)) - 0.055
		}
	}
	return out
}

// PackRGBA packs a [0,1] RGBA color into a 0xRRGGBBAA word as expected by view clear parameters.
//
// Parameters:
//   - c: the color to pack, each channel clamped to [0,1]
//
// Returns:
//   - uint32: the packed color
func PackRGBA(c mgl32.Vec4) uint32 {
	var out uint32
	for i := 0; i < 4; i++ {
		v := mgl32.Clamp(c[i], 0, 1)
		out = out<<8 | uint32(v*255+0.5)
	}
	return out
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
