package render

import (
	"fmt"
	"html"
	"image/color"
	"strings"

	"github.com/ha1tch/netcanvas/pkg/connviz"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

// GenerateSVG draws d as a standalone SVG document.
func GenerateSVG(d *netfile.Document, catalog layers.Catalog, opts Options) (string, error) {
	opts = opts.withDefaults()
	f, err := layout(d, catalog, opts, 1)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height))
	sb.WriteString("  <defs>\n")
	sb.WriteString(`    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">` + "\n")
	sb.WriteString(`      <path d="M 0 0 L 10 5 L 0 10 z" fill="#666"/>` + "\n")
	sb.WriteString("    </marker>\n")
	sb.WriteString("  </defs>\n")
	sb.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")
	sb.WriteString(fmt.Sprintf(`  <g font-family="Helvetica, Arial, sans-serif" font-size="%d">`+"\n", opts.FontSize))

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`    <text x="%d" y="%d" text-anchor="middle" font-size="%d" font-weight="bold">%s</text>`+"\n",
			opts.Width/2, opts.Padding+opts.FontSize, opts.FontSize+4, html.EscapeString(opts.Title)))
	}

	for _, g := range f.groups {
		r := g.rect
		state := "expanded"
		if !g.expanded {
			state = "collapsed"
		}
		header := min(r.H, scene.HeaderHeight*f.zoom)
		sb.WriteString(fmt.Sprintf(`    <g class="group %s">`+"\n", state))
		sb.WriteString(fmt.Sprintf(`      <rect x="%s" y="%s" width="%s" height="%s" rx="6" fill="%s" stroke="%s" stroke-dasharray="6 3"/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), rgb(colorGroup), rgb(colorGroupBdr)))
		sb.WriteString(fmt.Sprintf(`      <rect x="%s" y="%s" width="%s" height="%s" rx="6" fill="%s"/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(header), rgb(colorHeader)))
		sb.WriteString(fmt.Sprintf(`      <text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			num(r.X+r.W/2), num(r.Y+header/2), html.EscapeString(g.label)))
		sb.WriteString("    </g>\n")
	}

	for _, p := range f.paths {
		sb.WriteString(fmt.Sprintf(`    <path d="%s" fill="none" stroke="%s" stroke-width="1.5" marker-end="url(#arrow)"/>`+"\n",
			pathData(p.Curve), rgb(colorEdge)))
	}

	for _, n := range f.nodes {
		r := n.rect
		fill, border := nodeColors(n.category)
		sb.WriteString(fmt.Sprintf(`    <rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), rgb(fill), rgb(border)))
		sb.WriteString(fmt.Sprintf(`    <text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			num(r.X+r.W/2), num(r.Y+r.H/2), html.EscapeString(n.label)))
	}

	sb.WriteString("  </g>\n")
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// pathData writes a chain of cubic segments as SVG path data.
func pathData(c connviz.Curve) string {
	if len(c) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("M %s %s", num(c[0].X), num(c[0].Y)))
	for i := 1; i+2 < len(c); i += 3 {
		sb.WriteString(fmt.Sprintf(" C %s %s, %s %s, %s %s",
			num(c[i].X), num(c[i].Y), num(c[i+1].X), num(c[i+1].Y), num(c[i+2].X), num(c[i+2].Y)))
	}
	return sb.String()
}

func rgb(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
