// Package codegen turns a saved network into PyTorch source.
package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
)

// Options tune the generated module.
type Options struct {
	// ClassName defaults to GeneratedNet.
	ClassName string
	// Instance, when set, appends `<Instance> = <ClassName>()`.
	Instance string
}

type unit struct {
	idx   int
	layer netfile.Layer
	def   *layers.Definition
}

// GeneratePyTorch emits an nn.Module with one attribute per layer and a
// forward pass ordered by a depth-first topological sort of the
// connections. Cycles are broken where they are found. Function nodes
// become activation modules applied right after their anchor.
func GeneratePyTorch(d *netfile.Document, catalog layers.Catalog, opts Options) string {
	name := className(opts.ClassName)

	units := make([]*unit, len(d.Layers))
	byID := make(map[netfile.Ref]*unit, len(d.Layers))
	attached := make(map[netfile.Ref][]*unit)
	for i, l := range d.Layers {
		u := &unit{idx: i, layer: l}
		u.def, _ = catalog.Lookup(l.Type)
		units[i] = u
		byID[l.ID] = u
	}
	for _, u := range units {
		if anchor, ok := u.layer.AttachedTo(); ok {
			if _, ok := byID[anchor]; ok {
				attached[anchor] = append(attached[anchor], u)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("# Code generated from a netcanvas scene. DO NOT EDIT.\n")
	sb.WriteString(fmt.Sprintf("# Layers: %d, connections: %d\n\n", len(d.Layers), len(d.Connections)))
	sb.WriteString("import torch\n")
	sb.WriteString("import torch.nn as nn\n\n\n")
	sb.WriteString(fmt.Sprintf("class %s(nn.Module):\n", name))
	sb.WriteString("    def __init__(self):\n")
	sb.WriteString("        super().__init__()\n")
	for _, u := range units {
		sb.WriteString(fmt.Sprintf("        self.layer%d = %s\n", u.idx, constructor(u)))
	}
	sb.WriteString("\n")

	sb.WriteString("    def forward(self, x):\n")
	for _, u := range forwardOrder(d, units, byID) {
		sb.WriteString(callLine(u))
		for _, fn := range attached[u.layer.ID] {
			sb.WriteString(callLine(fn))
		}
	}
	sb.WriteString("        return x\n")

	if opts.Instance != "" {
		sb.WriteString(fmt.Sprintf("\n\n%s = %s()\n", sanitizeName(opts.Instance), name))
	}
	return sb.String()
}

// forwardOrder sorts the free-standing layers so every layer follows the
// layers feeding it. Edges touching a group stand for edges to each of its
// members.
func forwardOrder(d *netfile.Document, units []*unit, byID map[netfile.Ref]*unit) []*unit {
	members := make(map[netfile.Ref][]netfile.Ref, len(d.Groups))
	for _, g := range d.Groups {
		members[g.ID] = g.NodeIDs
	}
	expand := func(r netfile.Ref) []netfile.Ref {
		if m, ok := members[r]; ok {
			return m
		}
		return []netfile.Ref{r}
	}

	deps := make(map[netfile.Ref][]netfile.Ref)
	for _, c := range d.Connections {
		for _, src := range expand(c.SourceID) {
			for _, dst := range expand(c.TargetID) {
				if byID[src] == nil || byID[dst] == nil || src == dst {
					continue
				}
				deps[dst] = append(deps[dst], src)
			}
		}
	}

	var order []*unit
	visited := make(map[netfile.Ref]bool)
	onPath := make(map[netfile.Ref]bool)
	var visit func(id netfile.Ref)
	visit = func(id netfile.Ref) {
		if visited[id] || onPath[id] {
			return
		}
		onPath[id] = true
		for _, dep := range deps[id] {
			visit(dep)
		}
		delete(onPath, id)
		visited[id] = true
		if u := byID[id]; !isAttached(u) {
			order = append(order, u)
		}
	}
	for _, u := range units {
		visit(u.layer.ID)
	}
	return order
}

func isAttached(u *unit) bool {
	_, ok := u.layer.AttachedTo()
	return ok
}

func callLine(u *unit) string {
	switch u.layer.Type {
	case "AttentionLayer":
		return fmt.Sprintf("        x, _ = self.layer%d(x, x, x)\n", u.idx)
	case "RecurrentLayer":
		return fmt.Sprintf("        x, _ = self.layer%d(x)\n", u.idx)
	}
	return fmt.Sprintf("        x = self.layer%d(x)\n", u.idx)
}

// constructor returns the nn expression building one layer.
func constructor(u *unit) string {
	p := params{layer: u.layer, def: u.def}
	switch u.layer.Type {
	case "ConvolutionalLayer":
		kind := convName(p.str("conv_type"))
		args := []string{
			p.num("in_channels"), p.num("out_channels"),
			"kernel_size=" + p.num("kernel_size"),
			"stride=" + p.num("stride"),
			"padding=" + p.num("padding"),
			"dilation=" + p.num("dilation"),
			"groups=" + p.num("groups"),
			"bias=" + p.boolean("bias"),
		}
		if !strings.Contains(kind, "Transpose") {
			args = append(args, "padding_mode="+quote(strings.ToLower(p.str("padding_mode"))))
		}
		return call(kind, args...)
	case "PoolingLayer":
		kind := title(p.str("pooling_type")) + "Pool" + dimSuffix(p.str("pool_dimension"))
		return call(kind, p.num("kernel_size"), "stride="+p.num("stride"), "padding="+p.num("padding"))
	case "DenseLayer":
		return call("Linear", p.num("in_features"), p.num("out_features"), "bias="+p.boolean("bias"))
	case "FlatteningLayer":
		return call("Flatten")
	case "DropoutLayer":
		return call("Dropout", "p="+p.num("probability"), "inplace="+p.boolean("inplace"))
	case "EmbeddingLayer":
		return call("Embedding", p.num("num_embeddings"), p.num("embedding_dim"),
			"max_norm="+p.num("max_norm"), "norm_type="+p.num("norm_type"),
			"scale_grad_by_freq="+p.boolean("scale_grad_by_freq"), "sparse="+p.boolean("sparse"))
	case "AttentionLayer":
		return call("MultiheadAttention", p.num("embed_dim"), p.num("num_heads"),
			"dropout="+p.num("dropout"), "bias="+p.boolean("bias"),
			"add_bias_kv="+p.boolean("add_bias_kv"), "add_zero_attn="+p.boolean("add_zero_attn"),
			"batch_first="+p.boolean("batch_first"))
	case "NormalizationLayer":
		kind := "LayerNorm"
		if t := p.str("normalization_type"); strings.HasPrefix(t, "BATCHNORM") {
			kind = "BatchNorm" + dimSuffix(t)
		}
		return call(kind, p.num("num_features"), "eps="+p.num("eps"))
	case "RecurrentLayer":
		return call(strings.ToUpper(p.str("recurrent_type")), p.num("input_size"), p.num("hidden_size"),
			"num_layers="+p.num("num_layers"), "bias="+p.boolean("bias"),
			"batch_first="+p.boolean("batch_first"), "dropout="+p.num("dropout"),
			"bidirectional="+p.boolean("bidirectional"))
	case "ReLUFunction":
		return call("ReLU")
	case "TanhFunction":
		return call("Tanh")
	case "SoftMaxFunction":
		return call("Softmax", "dim="+p.num("dim"))
	case "LeakyReLUFunction":
		return call("LeakyReLU", "negative_slope="+p.num("negative_slope"))
	}
	if u.def == nil {
		return call("Identity") + "  # unknown type " + u.layer.Type
	}
	return call("Identity")
}

func call(kind string, args ...string) string {
	return "nn." + kind + "(" + strings.Join(args, ", ") + ")"
}

var convNames = map[string]string{
	"CONV1D": "Conv1d", "CONV2D": "Conv2d", "CONV3D": "Conv3d",
	"CONVTRANSPOSE1D": "ConvTranspose1d", "CONVTRANSPOSE2D": "ConvTranspose2d", "CONVTRANSPOSE3D": "ConvTranspose3d",
}

func convName(t string) string {
	if n, ok := convNames[strings.ToUpper(t)]; ok {
		return n
	}
	return "Conv2d"
}

// dimSuffix maps "POOL2D" or "BATCHNORM3D" to "2d" or "3d".
func dimSuffix(s string) string {
	s = strings.ToLower(s)
	for _, d := range []string{"1d", "2d", "3d"} {
		if strings.HasSuffix(s, d) {
			return d
		}
	}
	return "2d"
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

// params reads layer properties, falling back to catalog defaults.
type params struct {
	layer netfile.Layer
	def   *layers.Definition
}

func (p params) get(name string) (any, bool) {
	if v, ok := p.layer.Properties[name]; ok {
		return v, true
	}
	if p.def != nil {
		for _, d := range p.def.Params {
			if d.Name == name && d.Default != nil {
				return d.Default, true
			}
		}
	}
	return nil, false
}

func (p params) str(name string) string {
	v, ok := p.get(name)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (p params) num(name string) string {
	v, ok := p.get(name)
	if !ok {
		return "None"
	}
	return pyValue(v)
}

func (p params) boolean(name string) string {
	v, ok := p.get(name)
	if !ok {
		return "False"
	}
	switch b := v.(type) {
	case bool:
		return pyBool(b)
	case string:
		t, _ := strconv.ParseBool(b)
		return pyBool(t)
	}
	return pyValue(v)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// pyValue writes v as a Python literal.
func pyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		return pyBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		if _, err := strconv.ParseFloat(x, 64); err == nil {
			return x
		}
		return quote(x)
	}
	return quote(fmt.Sprint(v))
}
