package submit

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/rendergraph"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	gizmoRed   = mgl32.Vec4{1, 0, 0, 1}
	gizmoGreen = mgl32.Vec4{0, 1, 0, 1}
	gizmoBlue  = mgl32.Vec4{0, 0, 1, 1}
)

// maxGizmoQuads keeps every quad vertex addressable by a 16 bit index.
const maxGizmoQuads = 0x10000 / 4

// gizmoLine is a segment in the space mvp transforms to clip space.
type gizmoLine struct {
	p0, p1 mgl32.Vec3
	color  mgl32.Vec4
	mvp    mgl32.Mat4
}

// clipSegment clips a-b to the half space where the signed distance is not negative.
func clipSegment(a, b *mgl32.Vec4, da, db float32) bool {
	if da < 0 && db < 0 {
		return false
	}
	if da >= 0 && db >= 0 {
		return true
	}
	t := da / (da - db)
	p := a.Add(b.Sub(*a).Mul(t))
	if da < 0 {
		*a = p
	} else {
		*b = p
	}
	return true
}

// lineQuad expands a line into a screen aligned quad in normalized device coordinates. The
// segment is clipped against the view volume first.
//
// Parameters:
//   - p0, p1: the end points
//   - color: the line color
//   - normWidth: the line width divided by the viewport size, per axis
//   - mvp: the transform to clip space
//   - zeroToOne: clip z runs from 0 to w instead of -w to w
//
// Returns:
//   - [4]mesh.SimpleVertex: the quad, texcoord y running from -1 to 1 across the line
//   - bool: false if the line is outside the view or has no screen length
func lineQuad(p0, p1 mgl32.Vec3, color mgl32.Vec4, normWidth mgl32.Vec2, mvp mgl32.Mat4, zeroToOne bool) ([4]mesh.SimpleVertex, bool) {
	var quad [4]mesh.SimpleVertex
	a := mvp.Mul4x1(p0.Vec4(1))
	b := mvp.Mul4x1(p1.Vec4(1))

	for c := 0; c < 3; c++ {
		if !clipSegment(&a, &b, a.W()-a[c], b.W()-b[c]) {
			return quad, false
		}
		if c == 2 && zeroToOne {
			if !clipSegment(&a, &b, a[c], b[c]) {
				return quad, false
			}
			continue
		}
		if !clipSegment(&a, &b, a.W()+a[c], b.W()+b[c]) {
			return quad, false
		}
	}
	if a.W() <= 0 || b.W() <= 0 {
		return quad, false
	}

	n0 := a.Vec3().Mul(1 / a.W())
	n1 := b.Vec3().Mul(1 / b.W())
	d := n1.Vec2().Sub(n0.Vec2())
	l := d.Len()
	if l < 1e-7 {
		return quad, false
	}
	dp := d.Mul(1 / l)
	dv := mgl32.Vec2{-dp.Y() * normWidth.X(), dp.X() * normWidth.Y()}
	du := mgl32.Vec2{dp.X() * normWidth.X() * 0.5, dp.Y() * normWidth.Y() * 0.5}

	c4 := [4]float32(color)
	corner := func(n mgl32.Vec3, u, v mgl32.Vec2, tu, tv float32) mesh.SimpleVertex {
		xy := n.Vec2().Add(u).Add(v)
		return mesh.SimpleVertex{
			Position: [3]float32{xy.X(), xy.Y(), n.Z()},
			TexCoord: [2]float32{tu, tv},
			Color:    c4,
		}
	}
	quad[0] = corner(n0, du.Mul(-1), dv, 0, 1)
	quad[1] = corner(n0, du.Mul(-1), dv.Mul(-1), 0, -1)
	quad[2] = corner(n1, du, dv.Mul(-1), 1, -1)
	quad[3] = corner(n1, du, dv, 1, 1)
	return quad, true
}

// gizmoLines returns the lines of every gizmo an object enables. viewProj takes world space to
// clip space.
func gizmoLines(o game_object.GameObject, world, viewProj mgl32.Mat4) []gizmoLine {
	gizmos, style := o.Gizmos()
	if style == (game_object.GizmoStyle{}) {
		style = game_object.DefaultGizmoStyle
	}
	mvp := viewProj.Mul4(world)
	var lines []gizmoLine

	if gizmos&game_object.GizmoWorldBounds != 0 {
		wb, _ := o.Bounds()
		for i := 0; i < 12; i++ {
			c0, c1 := common.EdgeCorners(i)
			lines = append(lines, gizmoLine{wb.Corners[c0], wb.Corners[c1], style.Color, viewProj})
		}
	}
	if gizmos&game_object.GizmoObjectBounds != 0 {
		lb := o.LocalBounds()
		for i := 0; i < 12; i++ {
			c0, c1 := common.EdgeCorners(i)
			p0 := common.SelectCoordsMinMax(lb.Min(), lb.Max(), c0)
			p1 := common.SelectCoordsMinMax(lb.Min(), lb.Max(), c1)
			lines = append(lines, gizmoLine{p0, p1, style.Color, mvp})
		}
	}
	if gizmos&game_object.GizmoSphere != 0 {
		_, ws := o.Bounds()
		if ws.Radius > 0 {
			lines = append(lines, sphereLines(ws, max(style.Subdiv, 4), viewProj)...)
		}
	}
	if gizmos&game_object.GizmoTransform != 0 {
		l := style.Length
		lines = append(lines,
			gizmoLine{mgl32.Vec3{}, mgl32.Vec3{l, 0, 0}, gizmoRed, mvp},
			gizmoLine{mgl32.Vec3{}, mgl32.Vec3{0, l, 0}, gizmoGreen, mvp},
			gizmoLine{mgl32.Vec3{}, mgl32.Vec3{0, 0, l}, gizmoBlue, mvp},
		)
	}
	if gizmos&game_object.GizmoNormals != 0 {
		if d := o.Mesh(); d != nil && d.Kind == mesh.KindLit {
			for _, v := range d.Lit {
				pos := mgl32.Vec3(v.Position)
				lines = append(lines,
					gizmoLine{pos, pos.Add(mgl32.Vec3(v.Normal).Mul(style.Length)), gizmoBlue, mvp},
					gizmoLine{pos, pos.Add(mgl32.Vec3(v.Tangent).Mul(style.Length)), gizmoRed, mvp},
				)
			}
		}
	}
	return lines
}

// sphereLines draws three axis aligned circles in red, green and blue.
func sphereLines(ws common.WorldBoundingSphere, subdiv int, viewProj mgl32.Mat4) []gizmoLine {
	colors := [3]mgl32.Vec4{gizmoRed, gizmoGreen, gizmoBlue}
	lines := make([]gizmoLine, 0, 3*subdiv)
	point := func(axis int, i int) mgl32.Vec3 {
		a := 2 * math.Pi * float64(i) / float64(subdiv)
		s, c := float32(math.Sin(a))*ws.Radius, float32(math.Cos(a))*ws.Radius
		var off mgl32.Vec3
		off[(axis+1)%3] = c
		off[(axis+2)%3] = s
		return ws.Position.Add(off)
	}
	for axis := 0; axis < 3; axis++ {
		for i := 0; i < subdiv; i++ {
			lines = append(lines, gizmoLine{point(axis, i), point(axis, i+1), colors[axis], viewProj})
		}
	}
	return lines
}

// submitGizmos draws the gizmo lines of every object into the opaque and transparent passes of
// its render group. Lines are expanded on the CPU into transient quads.
func (s *submitter) submitGizmos(sl *slot, fs *frameState) {
	for _, it := range fs.gizmos {
		for _, pi := range fs.groups.Group(it.group).Passes {
			p := &fs.graph.Passes[pi]
			if p.ViewID == rendergraph.ViewIDUnassigned {
				continue
			}
			if p.Type != rendergraph.PassOpaque && p.Type != rendergraph.PassTransparent {
				continue
			}
			s.drawGizmo(sl, fs, it, p)
		}
	}
}

func (s *submitter) drawGizmo(sl *slot, fs *frameState, it *drawItem, p *rendergraph.Pass) {
	caps := fs.caps
	proj := p.Projection
	if !(caps.HomogeneousDepth && caps.OriginBottomLeft) {
		proj = renderer.AdjustProjection(proj, !caps.HomogeneousDepth, caps.NeedsYFlip(p.RenderToTexture()))
	}
	viewProj := proj.Mul4(p.View)

	_, style := it.obj.Gizmos()
	width := style.Width
	if width <= 0 {
		width = game_object.DefaultGizmoStyle.Width
	}
	var normWidth mgl32.Vec2
	if p.Viewport.W > 0 && p.Viewport.H > 0 {
		normWidth = mgl32.Vec2{width / float32(p.Viewport.W), width / float32(p.Viewport.H)}
	}

	var quads [][4]mesh.SimpleVertex
	for _, l := range gizmoLines(it.obj, it.world, viewProj) {
		q, ok := lineQuad(l.p0, l.p1, l.color, normWidth, l.mvp, !caps.HomogeneousDepth)
		if ok {
			quads = append(quads, q)
		}
	}
	if len(quads) == 0 {
		return
	}
	if len(quads) > maxGizmoQuads {
		logger.Warningf("Object %d has %d gizmo lines, drawing the first %d.", it.obj.ID(), len(quads), maxGizmoQuads)
		quads = quads[:maxGizmoQuads]
	}

	tvb, tib := s.allocTransient(sl, mesh.SimpleLayout, 4*len(quads), 6*len(quads))
	if tvb == nil {
		return
	}
	vertices := make([]mesh.SimpleVertex, 0, 4*len(quads))
	for i, q := range quads {
		vertices = append(vertices, q[:]...)
		base := uint16(4 * i)
		for j, idx := range quadIndices {
			tib.Data[6*i+j] = base + idx
		}
	}
	copy(tvb.Data, mesh.MarshalSimpleVertices(vertices))

	enc := s.encoder(sl)
	enc.SetState(renderer.LineState, 0)
	enc.SetTransform(mgl32.Ident4())
	enc.SetTransientIndexBuffer(tib, 0, tib.Count)
	enc.SetTransientVertexBuffer(0, tvb, 0, tvb.Count)
	enc.Submit(p.ViewID, s.programs.Line, 0)
	sl.stats.Draws++
	sl.stats.Lines += len(quads)
}
