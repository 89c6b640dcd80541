package netfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/netcanvas/pkg/layers"
)

// GenerateDOT converts a saved scene to Graphviz DOT. Groups become
// clusters; function nodes are folded into their anchor's label.
func GenerateDOT(d *Document, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph Network {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	activations := make(map[Ref][]string)
	hidden := make(map[Ref]bool)
	for _, l := range d.Layers {
		if a, ok := l.AttachedTo(); ok {
			activations[a] = append(activations[a], layers.DisplayName(l.Type))
			hidden[l.ID] = true
		}
	}

	writeNode := func(indent string, l Layer) {
		label := escapeDOT(layers.DisplayName(l.Type))
		if acts := activations[l.ID]; len(acts) > 0 {
			label += "\\n+ " + escapeDOT(strings.Join(acts, ", "))
		}
		sb.WriteString(fmt.Sprintf("%s\"n%s\" [label=\"%s\"];\n", indent, escapeDOT(string(l.ID)), label))
	}

	grouped := make(map[Ref]bool)
	for i, g := range d.Groups {
		sb.WriteString(fmt.Sprintf("    subgraph cluster_%d {\n", i))
		sb.WriteString(fmt.Sprintf("        label=\"%s\";\n", escapeDOT(g.Name)))
		sb.WriteString("        style=dashed;\n")
		// An invisible point lets edges target the group itself.
		sb.WriteString(fmt.Sprintf("        \"%s\" [shape=point, style=invis];\n", escapeDOT(string(g.ID))))
		for _, m := range g.NodeIDs {
			for _, l := range d.Layers {
				if l.ID == m && !hidden[l.ID] {
					writeNode("        ", l)
				}
			}
			grouped[m] = true
		}
		sb.WriteString("    }\n")
	}

	for _, l := range d.Layers {
		if !grouped[l.ID] && !hidden[l.ID] {
			writeNode("    ", l)
		}
	}
	sb.WriteString("\n")

	for _, c := range d.Connections {
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\";\n",
			dotID(c.SourceID), dotID(c.TargetID)))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func dotID(r Ref) string {
	if strings.HasPrefix(string(r), "group-") {
		return escapeDOT(string(r))
	}
	return "n" + escapeDOT(string(r))
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	return s
}
