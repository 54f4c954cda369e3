// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// ColorSpace is the color space of the display surface.
type ColorSpace int

const (
	// ColorSpaceLinear outputs linear colors unchanged.
	ColorSpaceLinear ColorSpace = iota
	// ColorSpaceGamma expects sRGB encoded colors, so linear inputs are converted before use.
	ColorSpaceGamma
)

// Rect is a floating point rectangle. Camera viewports use it in normalized [0,1] units.
type Rect struct {
	X, Y, W, H float32
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether r fully covers o.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Intersect returns the overlap of two rectangles, or an empty rectangle.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Subtract returns the parts of r not covered by o, as up to four rectangles.
//
// Parameters:
//   - o: the rectangle to remove
//
// Returns:
//   - []Rect: the remaining pieces of r; empty when o covers r
func (r Rect) Subtract(o Rect) []Rect {
	in := r.Intersect(o)
	if in.IsEmpty() {
		return []Rect{r}
	}
	out := make([]Rect, 0, 4)
	if in.Y > r.Y {
		out = append(out, Rect{X: r.X, Y: r.Y, W: r.W, H: in.Y - r.Y})
	}
	if top := in.Y + in.H; top < r.Y+r.H {
		out = append(out, Rect{X: r.X, Y: top, W: r.W, H: r.Y + r.H - top})
	}
	if in.X > r.X {
		out = append(out, Rect{X: r.X, Y: in.Y, W: in.X - r.X, H: in.H})
	}
	if right := in.X + in.W; right < r.X+r.W {
		out = append(out, Rect{X: right, Y: in.Y, W: r.X + r.W - right, H: in.H})
	}
	return out
}

// Rect16 is a pixel rectangle as used by render pass viewports, scissors and targets.
type Rect16 struct {
	X, Y, W, H uint16
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect16) IsEmpty() bool {
	return r.W == 0 || r.H == 0
}
