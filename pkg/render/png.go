package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/netcanvas/pkg/connviz"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

// supersample is the factor the PNG is drawn at before downsampling.
const supersample = 4

var (
	colorWhite    = color.RGBA{255, 255, 255, 255}
	colorInk      = color.RGBA{51, 51, 51, 255}    // #333
	colorEdge     = color.RGBA{102, 102, 102, 255} // #666
	colorGroup    = color.RGBA{245, 247, 250, 255} // #f5f7fa
	colorGroupBdr = color.RGBA{144, 164, 174, 255} // #90a4ae
	colorHeader   = color.RGBA{207, 216, 220, 255} // #cfd8dc
)

// categoryColors holds fill and border per palette category.
var categoryColors = map[layers.Category][2]color.RGBA{
	layers.CategoryInput:    {{232, 245, 233, 255}, {46, 125, 50, 255}},  // #e8f5e9 / #2e7d32
	layers.CategoryLayer:    {{227, 242, 253, 255}, {21, 101, 192, 255}}, // #e3f2fd / #1565c0
	layers.CategoryFunction: {{255, 243, 224, 255}, {230, 81, 0, 255}},   // #fff3e0 / #e65100
	layers.CategoryOutput:   {{243, 229, 245, 255}, {106, 27, 154, 255}}, // #f3e5f5 / #6a1b9a
}

func nodeColors(c layers.Category) (fill, border color.RGBA) {
	if cc, ok := categoryColors[c]; ok {
		return cc[0], cc[1]
	}
	return colorWhite, colorInk
}

type canvas struct {
	img       *image.RGBA
	scale     float64
	lineWidth float64
	face      font.Face
}

func newCanvas(w, h int, scale float64, fontSize int) (*canvas, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(fontSize) * scale,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)
	return &canvas{img: img, scale: scale, lineWidth: 1.5 * scale, face: face}, nil
}

// RenderPNG draws d and writes it as PNG. The image is drawn at four times
// the requested size and downsampled.
func RenderPNG(d *netfile.Document, catalog layers.Catalog, w io.Writer, opts Options) error {
	opts = opts.withDefaults()
	f, err := layout(d, catalog, opts, supersample)
	if err != nil {
		return err
	}
	c, err := newCanvas(opts.Width*supersample, opts.Height*supersample, supersample, opts.FontSize)
	if err != nil {
		return err
	}
	defer c.face.Close()

	if opts.Title != "" {
		c.text(float64(opts.Width*supersample)/2, float64(opts.Padding+opts.FontSize)*supersample, opts.Title, colorInk)
	}
	for _, g := range f.groups {
		c.fillRect(g.rect, colorGroup)
		header := g.rect
		header.H = math.Min(g.rect.H, scene.HeaderHeight*f.zoom)
		c.fillRect(header, colorHeader)
		c.strokeRect(g.rect, colorGroupBdr)
		c.text(g.rect.X+g.rect.W/2, g.rect.Y+header.H/2, g.label, colorInk)
	}
	for _, p := range f.paths {
		c.curve(p.Curve, colorEdge)
	}
	for _, n := range f.nodes {
		fill, border := nodeColors(n.category)
		c.fillRect(n.rect, fill)
		c.strokeRect(n.rect, border)
		c.text(n.rect.X+n.rect.W/2, n.rect.Y+n.rect.H/2, n.label, colorInk)
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), c.img, c.img.Bounds(), draw.Over, nil)
	return png.Encode(w, out)
}

func (c *canvas) fillRect(r scene.Rect, col color.Color) {
	rect := image.Rect(int(r.X), int(r.Y), int(math.Ceil(r.Right())), int(math.Ceil(r.Bottom())))
	draw.Draw(c.img, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) strokeRect(r scene.Rect, col color.Color) {
	c.line(r.X, r.Y, r.Right(), r.Y, col)
	c.line(r.Right(), r.Y, r.Right(), r.Bottom(), col)
	c.line(r.Right(), r.Bottom(), r.X, r.Bottom(), col)
	c.line(r.X, r.Bottom(), r.X, r.Y, col)
}

// line draws a thick segment.
func (c *canvas) line(x1, y1, x2, y2 float64, col color.Color) {
	dx, dy := x2-x1, y2-y1
	steps := math.Max(math.Max(math.Abs(dx), math.Abs(dy)), 1)
	half := c.lineWidth / 2
	dist := math.Hypot(dx, dy)
	px, py := 0.0, 1.0
	if dist >= 1 {
		px, py = -dy/dist, dx/dist
	}
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx, cy := x1+dx*t, y1+dy*t
		for off := -half; off <= half; off += 0.5 {
			c.img.Set(int(cx+px*off), int(cy+py*off), col)
		}
	}
}

// curve draws a connection with an arrowhead at its end.
func (c *canvas) curve(cv connviz.Curve, col color.Color) {
	if len(cv) < 2 {
		return
	}
	pts := cv.Sample(24 * ((len(cv) - 1) / 3))
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, col)
	}

	end := pts[len(pts)-1]
	tan := cv.Tangent(1)
	dist := math.Hypot(tan.X, tan.Y)
	if dist == 0 {
		return
	}
	nx, ny := tan.X/dist, tan.Y/dist
	arrowLen, arrowWidth := 8*c.scale, 4*c.scale
	ax1, ay1 := end.X-nx*arrowLen+ny*arrowWidth, end.Y-ny*arrowLen-nx*arrowWidth
	ax2, ay2 := end.X-nx*arrowLen-ny*arrowWidth, end.Y-ny*arrowLen+nx*arrowWidth
	for t := 0.0; t <= 1.0; t += 0.05 {
		c.line(end.X, end.Y, ax1+(ax2-ax1)*t, ay1+(ay2-ay1)*t, col)
	}
}

// text draws s centred on (x, y).
func (c *canvas) text(x, y float64, s string, col color.Color) {
	width := font.MeasureString(c.face, s).Ceil()
	ascent := c.face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(int(x)-width/2, int(y)+ascent/3),
	}
	d.DrawString(s)
}
