package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NoSphereRadius marks a bounding sphere that has not been assigned yet.
// Spheres with a radius of zero or less never contribute to merges.
const NoSphereRadius float32 = -100000

// AABB is an axis aligned box stored as center and half extents.
type AABB struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

// AABBFromMinMax creates a center/extents box from its minimum and maximum corners.
func AABBFromMinMax(min, max mgl32.Vec3) AABB {
	return AABB{
		Center:  min.Add(max).Mul(0.5),
		Extents: max.Sub(min).Mul(0.5),
	}
}

// Min returns the minimum corner of the box.
func (b AABB) Min() mgl32.Vec3 { return b.Center.Sub(b.Extents) }

// Max returns the maximum corner of the box.
func (b AABB) Max() mgl32.Vec3 { return b.Center.Add(b.Extents) }

// Size returns the full size of the box along every axis.
func (b AABB) Size() mgl32.Vec3 { return b.Extents.Mul(2) }

// IsEmpty reports whether the box has no volume and no extent on any axis.
func (b AABB) IsEmpty() bool { return b.Extents == (mgl32.Vec3{}) }

// Contains reports whether o lies within b, allowing eps of slack on every axis.
func (b AABB) Contains(o AABB, eps float32) bool {
	bMin, bMax := b.Min(), b.Max()
	oMin, oMax := o.Min(), o.Max()
	for i := 0; i < 3; i++ {
		if oMin[i] < bMin[i]-eps || oMax[i] > bMax[i]+eps {
			return false
		}
	}
	return true
}

// WorldBounds holds the eight corners of an object space box transformed to world space.
// Corner i is the corner selected by SelectCoordsMinMax with mask i (bit0 = x, bit1 = y, bit2 = z).
type WorldBounds struct {
	Corners [8]mgl32.Vec3
}

// WorldBoundingSphere is a world space bounding sphere.
type WorldBoundingSphere struct {
	Position mgl32.Vec3
	Radius   float32
}

// EdgeTable lists the twelve box edges as pairs of corner indices packed as p0 | p1<<3.
var EdgeTable = [12]uint8{
	0b000_001, 0b000_100, 0b001_101, 0b101_100,
	0b010_011, 0b010_110, 0b011_111, 0b111_110,
	0b000_010, 0b001_011, 0b101_111, 0b100_110,
}

// EdgeCorners unpacks edge i of EdgeTable into its two corner indices.
func EdgeCorners(i int) (p0, p1 int) {
	e := EdgeTable[i]
	return int(e & 7), int(e >> 3)
}

// SelectCoordsMinMax picks, per axis, the min or max coordinate according to the mask bits.
//
// Parameters:
//   - min: the minimum corner
//   - max: the maximum corner
//   - mask: bit0 selects x, bit1 selects y, bit2 selects z from max
//
// Returns:
//   - mgl32.Vec3: the selected corner
func SelectCoordsMinMax(min, max mgl32.Vec3, mask int) mgl32.Vec3 {
	out := min
	for axis := 0; axis < 3; axis++ {
		if mask&(1<<axis) != 0 {
			out[axis] = max[axis]
		}
	}
	return out
}

// AxisAlignedToWorldBounds transforms an object space box into eight world space corners.
// Non-uniform scale and shear are preserved since nothing is re-axis-aligned.
//
// Parameters:
//   - tx: the object to world transform
//   - aabb: the object space box
//
// Returns:
//   - WorldBounds: the transformed corners
func AxisAlignedToWorldBounds(tx mgl32.Mat4, aabb AABB) WorldBounds {
	size := aabb.Size()
	o := TransformPoint(tx, aabb.Min())
	dx := TransformDirection(tx, mgl32.Vec3{size[0], 0, 0})
	dy := TransformDirection(tx, mgl32.Vec3{0, size[1], 0})
	dz := TransformDirection(tx, mgl32.Vec3{0, 0, size[2]})

	var wb WorldBounds
	for mask := 0; mask < 8; mask++ {
		c := o
		if mask&1 != 0 {
			c = c.Add(dx)
		}
		if mask&2 != 0 {
			c = c.Add(dy)
		}
		if mask&4 != 0 {
			c = c.Add(dz)
		}
		wb.Corners[mask] = c
	}
	return wb
}

// GrowBounds extends the min/max pair so that it contains p.
func GrowBounds(min, max *mgl32.Vec3, p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < min[i] {
			min[i] = p[i]
		}
		if p[i] > max[i] {
			max[i] = p[i]
		}
	}
}

// EmptyMinMax returns a min/max pair that any GrowBounds call will replace.
func EmptyMinMax() (min, max mgl32.Vec3) {
	inf := float32(math.Inf(1))
	return mgl32.Vec3{inf, inf, inf}, mgl32.Vec3{-inf, -inf, -inf}
}

// WorldBoundsToAxisAligned returns the world axis aligned box enclosing all eight corners.
func WorldBoundsToAxisAligned(wb WorldBounds) AABB {
	min, max := wb.Corners[0], wb.Corners[0]
	for _, c := range wb.Corners[1:] {
		GrowBounds(&min, &max, c)
	}
	return AABBFromMinMax(min, max)
}

// TransformWorldBounds transforms every corner of wb by tx.
func TransformWorldBounds(tx mgl32.Mat4, wb WorldBounds) WorldBounds {
	var out WorldBounds
	for i, c := range wb.Corners {
		out.Corners[i] = TransformPoint(tx, c)
	}
	return out
}

// WorldSphereFromAABB computes a conservative world bounding sphere for an object space box.
// The radius is the box extents length scaled by the largest axis scale of the transform.
//
// Parameters:
//   - tx: the object to world transform
//   - aabb: the object space box
//
// Returns:
//   - WorldBoundingSphere: the world space sphere
func WorldSphereFromAABB(tx mgl32.Mat4, aabb AABB) WorldBoundingSphere {
	return WorldBoundingSphere{
		Position: TransformPoint(tx, aabb.Center),
		Radius:   MaxAxisScale(tx) * aabb.Extents.Len(),
	}
}

// SphereInSphere reports containment between two spheres.
//
// Returns:
//   - int: 1 if s2 is inside s1, 2 if s1 is inside s2, 0 otherwise
func SphereInSphere(s1, s2 WorldBoundingSphere) int {
	d := s1.Position.Sub(s2.Position).Len()
	if d+s2.Radius <= s1.Radius {
		return 1
	}
	if d+s1.Radius <= s2.Radius {
		return 2
	}
	return 0
}

// MergeSpheres returns the smallest sphere enclosing both inputs.
// A sphere with a radius of zero or less is ignored.
//
// Parameters:
//   - s1: the first sphere
//   - s2: the second sphere
//
// Returns:
//   - WorldBoundingSphere: the merged sphere
func MergeSpheres(s1, s2 WorldBoundingSphere) WorldBoundingSphere {
	if s2.Radius <= 0 {
		return s1
	}
	if s1.Radius <= 0 {
		return s2
	}
	switch SphereInSphere(s1, s2) {
	case 1:
		return s1
	case 2:
		return s2
	}

	delta := s2.Position.Sub(s1.Position)
	d := delta.Len()
	r := (d + s1.Radius + s2.Radius) * 0.5
	return WorldBoundingSphere{
		Position: s1.Position.Add(delta.Mul((r - s1.Radius) / d)),
		Radius:   r,
	}
}

// ChunkBounds accumulates the bounds of a batch of entities.
// The zero value is not usable; create one with NewChunkBounds.
type ChunkBounds struct {
	min, max mgl32.Vec3
	sphere   WorldBoundingSphere
	count    int
}

// NewChunkBounds returns an empty accumulator.
func NewChunkBounds() ChunkBounds {
	min, max := EmptyMinMax()
	return ChunkBounds{
		min:    min,
		max:    max,
		sphere: WorldBoundingSphere{Radius: NoSphereRadius},
	}
}

// Add merges one member's box corners and sphere into the chunk.
func (c *ChunkBounds) Add(wb WorldBounds, ws WorldBoundingSphere) {
	for _, corner := range wb.Corners {
		GrowBounds(&c.min, &c.max, corner)
	}
	c.sphere = MergeSpheres(c.sphere, ws)
	c.count++
}

// Count returns the number of merged members.
func (c *ChunkBounds) Count() int { return c.count }

// AABB returns the chunk's world axis aligned box, or an empty box if nothing was added.
func (c *ChunkBounds) AABB() AABB {
	if c.count == 0 {
		return AABB{}
	}
	return AABBFromMinMax(c.min, c.max)
}

// WorldBounds returns the chunk's world box as eight corners.
func (c *ChunkBounds) WorldBounds() WorldBounds {
	return AxisAlignedToWorldBounds(mgl32.Ident4(), c.AABB())
}

// Sphere returns the merged sphere. Its radius is NoSphereRadius if no member had a sphere.
func (c *ChunkBounds) Sphere() WorldBoundingSphere { return c.sphere }
