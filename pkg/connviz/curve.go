package connviz

import "github.com/ha1tch/netcanvas/pkg/scene"

// Point is a screen-space coordinate.
type Point = scene.Point

// Curve is a chain of cubic Bézier segments: [P0, C1, C2, P1, C3, C4, P2, ...].
type Curve []Point

// Eval returns the point at t in [0,1] along the whole chain.
func (c Curve) Eval(t float64) Point {
	switch {
	case len(c) == 0:
		return Point{}
	case len(c) < 4:
		return c[0]
	}
	i, u := c.segment(t)
	p0, p1, p2, p3 := c[i], c[i+1], c[i+2], c[i+3]
	mt := 1 - u
	a, b, d, e := mt*mt*mt, 3*mt*mt*u, 3*mt*u*u, u*u*u
	return Point{
		X: a*p0.X + b*p1.X + d*p2.X + e*p3.X,
		Y: a*p0.Y + b*p1.Y + d*p2.Y + e*p3.Y,
	}
}

// Tangent returns the derivative at t.
func (c Curve) Tangent(t float64) Point {
	if len(c) < 4 {
		if len(c) >= 2 {
			return Point{X: c[len(c)-1].X - c[0].X, Y: c[len(c)-1].Y - c[0].Y}
		}
		return Point{X: 1, Y: 0}
	}
	i, u := c.segment(t)
	p0, p1, p2, p3 := c[i], c[i+1], c[i+2], c[i+3]
	mt := 1 - u
	return Point{
		X: 3*mt*mt*(p1.X-p0.X) + 6*mt*u*(p2.X-p1.X) + 3*u*u*(p3.X-p2.X),
		Y: 3*mt*mt*(p1.Y-p0.Y) + 6*mt*u*(p2.Y-p1.Y) + 3*u*u*(p3.Y-p2.Y),
	}
}

// segment maps a global t to a segment start index and a local parameter.
func (c Curve) segment(t float64) (int, float64) {
	n := (len(c) - 1) / 3
	s := int(t * float64(n))
	if s >= n {
		s = n - 1
	}
	if s < 0 {
		s = 0
	}
	u := t*float64(n) - float64(s)
	return s * 3, max(0, min(1, u))
}

// Sample returns n+1 evenly spaced points along the curve.
func (c Curve) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	out := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, c.Eval(float64(i)/float64(n)))
	}
	return out
}

// Bounds returns the control-point bounding box plus a 10% margin.
func (c Curve) Bounds() scene.Rect {
	if len(c) == 0 {
		return scene.Rect{}
	}
	minX, minY, maxX, maxY := c[0].X, c[0].Y, c[0].X, c[0].Y
	for _, p := range c[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	dx, dy := (maxX-minX)*0.1, (maxY-minY)*0.1
	return scene.RectFromCorners(minX-dx, minY-dy, maxX+dx, maxY+dy)
}

// link is the S-shaped curve between an output anchor and an input anchor.
// The horizontal pull is half the horizontal distance, but never less than
// minPull, so that backwards links loop around instead of folding flat.
func link(from, to Point, minPull float64) Curve {
	pull := max((to.X-from.X)/2, -(to.X-from.X)/2, minPull)
	return Curve{
		from,
		{X: from.X + pull, Y: from.Y},
		{X: to.X - pull, Y: to.Y},
		to,
	}
}

// loopParams shapes a self-loop drawn off a node's right edge.
type loopParams struct {
	index      int     // nth self-loop on the same node
	baseOffset float64 // edge-to-apex distance for the first loop
	spacing    float64 // extra distance per additional loop
	portOffset float64 // port distance from the mid-line, as a fraction of half-height
}

var defaultLoop = loopParams{baseOffset: 25, spacing: 18, portOffset: 0.35}

// selfLoop returns the two-segment curve for a loop leaving the box's
// right edge above its middle and returning below it.
func selfLoop(box scene.Rect, p loopParams, scale float64) Curve {
	c := box.Center()
	rx, ry := box.W/2, box.H/2
	offset := (p.baseOffset + float64(p.index)*p.spacing) * scale
	portY := ry * p.portOffset
	spread := ry * 0.5
	dx := rx + offset
	return Curve{
		{X: c.X + rx, Y: c.Y - portY},
		{X: c.X + rx + dx*0.4, Y: c.Y - portY - spread},
		{X: c.X + dx, Y: c.Y - spread},
		{X: c.X + dx, Y: c.Y},
		{X: c.X + dx, Y: c.Y + spread},
		{X: c.X + rx + dx*0.4, Y: c.Y + portY + spread},
		{X: c.X + rx, Y: c.Y + portY},
	}
}
