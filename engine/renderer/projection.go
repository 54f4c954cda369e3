package renderer

import "github.com/go-gl/mathgl/mgl32"

// AdjustProjection converts a GL style projection (clip z in [-1, 1], y up) to the conventions of a backend.
//
// Parameters:
//   - m: the projection matrix
//   - zCompress: remap clip z to [0, 1] for backends without homogeneous depth
//   - yFlip: negate clip y, used when rendering to textures on top-left origin backends
//
// Returns:
//   - mgl32.Mat4: the adjusted projection
func AdjustProjection(m mgl32.Mat4, zCompress, yFlip bool) mgl32.Mat4 {
	out := m
	for c := 0; c < 4; c++ {
		if zCompress {
			out[c*4+2] = (out[c*4+2] + out[c*4+3]) * 0.5
		}
		if yFlip {
			out[c*4+1] = -out[c*4+1]
		}
	}
	return out
}

// NeedsYFlip reports whether passes rendering into a texture need their projection flipped.
func (c Caps) NeedsYFlip(renderToTexture bool) bool {
	if c.HomogeneousDepth && c.OriginBottomLeft {
		return false
	}
	return !c.OriginBottomLeft && renderToTexture
}
