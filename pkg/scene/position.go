package scene

import "fmt"

// Frame says which coordinate system a Position is expressed in.
type Frame int

const (
	FrameWorld Frame = iota // unbounded canvas plane
	FrameGroup              // relative to the owning group's top-left corner
)

func (f Frame) String() string {
	if f == FrameGroup {
		return "group"
	}
	return "world"
}

// Position is a point tagged with its frame. Group is set only for
// FrameGroup positions.
type Position struct {
	Frame Frame
	Group GroupID
	X, Y  float64
}

// World returns a world-frame position.
func World(x, y float64) Position {
	return Position{Frame: FrameWorld, X: x, Y: y}
}

// Local returns a position relative to group g.
func Local(g GroupID, x, y float64) Position {
	return Position{Frame: FrameGroup, Group: g, X: x, Y: y}
}

// IsWorld reports whether p is in the world frame.
func (p Position) IsWorld() bool { return p.Frame == FrameWorld }

func (p Position) String() string {
	if p.Frame == FrameGroup {
		return fmt.Sprintf("group-%d(%g,%g)", p.Group, p.X, p.Y)
	}
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Point is a bare 2D coordinate.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// RectFromCorners builds a rectangle from two arbitrary corners.
func RectFromCorners(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Intersects reports whether r and o overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() && r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return RectFromCorners(
		min(r.X, o.X), min(r.Y, o.Y),
		max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom()),
	)
}
