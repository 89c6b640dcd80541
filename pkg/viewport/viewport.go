// Package viewport maps between the unbounded world plane and the visible
// canvas. It is the only holder of pan and zoom state; every other component
// converts coordinates through it.
package viewport

import "math"

// Default zoom limits and step.
const (
	DefaultMinScale = 0.2
	DefaultMaxScale = 2.0
	DefaultZoomStep = 0.1
)

// Viewport is the affine map screen = world*scale + pan.
type Viewport struct {
	panX, panY float64
	scale      float64
	minScale   float64
	maxScale   float64
}

// New creates a viewport at scale 1 and zero pan with the given zoom limits.
// Limits are swapped if given in the wrong order; non-positive limits fall
// back to the defaults.
func New(minScale, maxScale float64) *Viewport {
	if minScale <= 0 {
		minScale = DefaultMinScale
	}
	if maxScale <= 0 {
		maxScale = DefaultMaxScale
	}
	if minScale > maxScale {
		minScale, maxScale = maxScale, minScale
	}
	v := &Viewport{minScale: minScale, maxScale: maxScale}
	v.setScale(1)
	return v
}

// Default creates a viewport with the default zoom limits.
func Default() *Viewport {
	return New(DefaultMinScale, DefaultMaxScale)
}

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 { return v.scale }

// Offset returns the current pan.
func (v *Viewport) Offset() (float64, float64) { return v.panX, v.panY }

// Limits returns the zoom clamp range.
func (v *Viewport) Limits() (float64, float64) { return v.minScale, v.maxScale }

// Percent returns the zoom level as a rounded percentage, as shown in a
// zoom indicator.
func (v *Viewport) Percent() int {
	return int(math.Round(v.scale * 100))
}

// WorldToScreen converts a world point to screen coordinates.
func (v *Viewport) WorldToScreen(x, y float64) (float64, float64) {
	return x*v.scale + v.panX, y*v.scale + v.panY
}

// ScreenToWorld converts a screen point to world coordinates.
func (v *Viewport) ScreenToWorld(x, y float64) (float64, float64) {
	return (x - v.panX) / v.scale, (y - v.panY) / v.scale
}

// WorldLength converts a screen distance to a world distance.
func (v *Viewport) WorldLength(d float64) float64 {
	return d / v.scale
}

// Zoom changes the scale by delta while keeping the world point under the
// screen point (cx, cy) fixed. It reports whether the scale changed; a delta
// absorbed entirely by the clamp leaves pan untouched.
func (v *Viewport) Zoom(delta, cx, cy float64) bool {
	next := v.clamp(v.scale + delta)
	if next == v.scale {
		return false
	}
	wx, wy := v.ScreenToWorld(cx, cy)
	v.scale = next
	v.panX = cx - wx*v.scale
	v.panY = cy - wy*v.scale
	return true
}

// Pan shifts the view by (dx, dy) screen units. World space is unbounded so
// there is no clamp.
func (v *Viewport) Pan(dx, dy float64) {
	v.panX += dx
	v.panY += dy
}

// Reset restores scale 1 and zero pan.
func (v *Viewport) Reset() {
	v.panX, v.panY = 0, 0
	v.setScale(1)
}

// Set replaces the whole transform. The scale is clamped.
func (v *Viewport) Set(panX, panY, scale float64) {
	v.panX, v.panY = panX, panY
	v.setScale(scale)
}

func (v *Viewport) setScale(s float64) {
	v.scale = v.clamp(s)
}

func (v *Viewport) clamp(s float64) float64 {
	if s < v.minScale {
		return v.minScale
	}
	if s > v.maxScale {
		return v.maxScale
	}
	return s
}
