// Package layers describes the layer types that can be placed on the canvas:
// their parameters, defaults and on-canvas footprint.
package layers

import (
	"sort"
	"strings"
)

// ParamKind is the value type of a layer parameter.
type ParamKind string

const (
	KindNumber ParamKind = "number"
	KindBool   ParamKind = "bool"
	KindEnum   ParamKind = "enum"
	KindString ParamKind = "string"
)

// Param describes one configurable parameter.
type Param struct {
	Name    string
	Kind    ParamKind
	Default any // nil means "no default"
	Enum    []string
}

// Category groups definitions in the palette.
type Category string

const (
	CategoryInput    Category = "input"
	CategoryLayer    Category = "layer"
	CategoryFunction Category = "function"
	CategoryOutput   Category = "output"
)

// Definition is a placeable layer type.
type Definition struct {
	Name     string
	Category Category
	Width    float64
	Height   float64
	Params   []Param
}

// IsFunction reports whether nodes of this type attach to another node
// instead of being placed freely.
func (d *Definition) IsFunction() bool {
	return d.Category == CategoryFunction
}

// AttachInset is how far a function node overhangs the top-right corner of
// the node it is attached to.
const AttachInset = 22

// DropOffset is the distance from a node's top-left corner to the point the
// pointer holds when the node is dropped.
func (d *Definition) DropOffset() (float64, float64) {
	if d.IsFunction() {
		return AttachInset, AttachInset
	}
	return d.Width / 2, d.Height / 2
}

// DefaultParams builds a parameter map from the definition's defaults.
// Parameters without a default get nil for numbers (an unset optional
// value), the first value for enums and the zero value otherwise.
func (d *Definition) DefaultParams() map[string]any {
	params := make(map[string]any, len(d.Params))
	for _, p := range d.Params {
		switch {
		case p.Default != nil:
			params[p.Name] = p.Default
		case p.Kind == KindNumber:
			params[p.Name] = nil
		case p.Kind == KindEnum && len(p.Enum) > 0:
			params[p.Name] = p.Enum[0]
		case p.Kind == KindBool:
			params[p.Name] = false
		default:
			params[p.Name] = ""
		}
	}
	return params
}

// Catalog resolves layer type names.
type Catalog interface {
	Lookup(name string) (*Definition, bool)
}

// Registry is an in-memory Catalog.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates a catalog from the given definitions. Later
// definitions replace earlier ones of the same name.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		r.defs[d.Name] = &d
	}
	return r
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns all type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns the definitions in one category, sorted by name.
func (r *Registry) ByCategory(c Category) []*Definition {
	var out []*Definition
	for _, d := range r.defs {
		if d.Category == c {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DisplayName turns "DenseLayer" into "Dense Layer" and "ReLUFunction" into
// "ReLU".
func DisplayName(name string) string {
	if strings.HasSuffix(name, "Function") {
		return strings.TrimSuffix(name, "Function")
	}
	return strings.Replace(name, "Layer", " Layer", 1)
}
