// Package render draws a saved scene as a PNG or SVG image. The scene is
// loaded into a live canvas, fitted into the image, and connections are
// taken from the same visualizer the editor uses.
package render

import (
	"io"
	"log/slog"
	"math"

	"github.com/ha1tch/netcanvas/pkg/connviz"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/scene"
	"github.com/ha1tch/netcanvas/pkg/viewport"
)

// Options configures both renderers.
type Options struct {
	Width    int
	Height   int
	Padding  int
	FontSize int
	Title    string
}

// DefaultOptions returns the export defaults.
func DefaultOptions() Options {
	return Options{
		Width:    1200,
		Height:   800,
		Padding:  40,
		FontSize: 12,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Padding < 0 {
		o.Padding = d.Padding
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	return o
}

// maxFit keeps small scenes from being blown up past the editor's zoom.
const maxFit = viewport.DefaultMaxScale

// box is a node or group in image coordinates.
type box struct {
	rect     scene.Rect
	label    string
	category layers.Category
	expanded bool
}

// frame is everything a renderer draws.
type frame struct {
	zoom   float64 // world to image units
	groups []box
	nodes  []box
	paths  []*connviz.Path
}

// layout loads d into a private scene and fits it into the image. The
// supersample factor multiplies every image-space length.
func layout(d *netfile.Document, catalog layers.Catalog, opts Options, supersample float64) (*frame, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sc := scene.New(catalog, log)
	if _, err := netfile.Load(d, sc, log); err != nil {
		return nil, err
	}

	vp := viewport.New(1e-6, 1e6)
	f := &frame{zoom: supersample}
	bounds, ok := sc.Bounds()
	if !ok {
		return f, nil
	}

	top := float64(opts.Padding)
	if opts.Title != "" {
		top += float64(opts.FontSize) * 2
	}
	availW := float64(opts.Width - 2*opts.Padding)
	availH := float64(opts.Height) - top - float64(opts.Padding)
	fit := maxFit
	if bounds.W > 0 {
		fit = math.Min(fit, availW/bounds.W)
	}
	if bounds.H > 0 {
		fit = math.Min(fit, availH/bounds.H)
	}
	fit = math.Max(fit, 1e-3)

	s := fit * supersample
	offX := (float64(opts.Padding) + (availW-bounds.W*fit)/2) * supersample
	offY := (top + (availH-bounds.H*fit)/2) * supersample
	vp.Set(offX-bounds.X*s, offY-bounds.Y*s, s)
	f.zoom = s

	viz := connviz.New(vp, sc, log)
	viz.UpdateAllConnections()
	f.paths = viz.Paths()

	toImage := func(r scene.Rect) scene.Rect {
		x, y := vp.WorldToScreen(r.X, r.Y)
		return scene.Rect{X: x, Y: y, W: r.W * s, H: r.H * s}
	}
	for _, g := range sc.Groups.All() {
		f.groups = append(f.groups, box{rect: toImage(g.Rect), label: g.Name, expanded: g.Expanded})
	}
	for _, n := range sc.Nodes.All() {
		if n.Hidden {
			continue
		}
		r, _ := sc.Groups.WorldRect(n.ID)
		b := box{rect: toImage(r), label: layers.DisplayName(n.Type)}
		if def, ok := catalog.Lookup(n.Type); ok {
			b.category = def.Category
		}
		f.nodes = append(f.nodes, b)
	}
	return f, nil
}
