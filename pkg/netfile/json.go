// Package netfile reads and writes saved scenes and converts them to and
// from a live scene.Scene.
package netfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ha1tch/netcanvas/pkg/scene"
)

// ErrInvalidDocument wraps every failure to decode or apply a saved scene.
var ErrInvalidDocument = errors.New("invalid scene document")

// AttachedToKey is the layer property that records a function node's
// anchor.
const AttachedToKey = "attachedTo"

// Document is the saved form of a scene.
type Document struct {
	Layers      []Layer      `json:"layers"`
	Connections []Connection `json:"connections"`
	Groups      []Group      `json:"groups"`
}

// Layer is one saved node. X and Y are world coordinates even for grouped
// nodes.
type Layer struct {
	ID         Ref            `json:"id"`
	Type       string         `json:"type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Properties map[string]any `json:"properties"`
	GroupID    *Ref           `json:"groupId"`
}

// AttachedTo returns the anchor recorded in the layer's properties.
func (l Layer) AttachedTo() (Ref, bool) {
	v, ok := l.Properties[AttachedToKey]
	if !ok || v == nil {
		return "", false
	}
	return refOf(v), true
}

// Connection is one saved edge. Endpoints are node ids or "group-N".
type Connection struct {
	ID       Ref `json:"id"`
	SourceID Ref `json:"sourceId"`
	TargetID Ref `json:"targetId"`
}

// Group is one saved group. Width and Height are the expanded size, also
// for collapsed groups.
type Group struct {
	ID       Ref     `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Expanded bool    `json:"expanded"`
	NodeIDs  []Ref   `json:"nodeIds"`
}

// Ref is an id that may be written as a JSON string or number. Numeric
// refs are written back as numbers.
type Ref string

// UnmarshalJSON accepts strings, numbers and null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*r = Ref(x)
	case float64:
		*r = Ref(strconv.FormatFloat(x, 'f', -1, 64))
	case nil:
		*r = ""
	default:
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}
	return nil
}

// MarshalJSON writes integer refs as numbers and everything else as
// strings.
func (r Ref) MarshalJSON() ([]byte, error) {
	if n, err := strconv.Atoi(string(r)); err == nil {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(r))
}

// Endpoint interprets the ref as a connection endpoint.
func (r Ref) Endpoint() (scene.Endpoint, error) {
	return scene.ParseEndpoint(string(r))
}

// NodeRef returns the ref for a node id.
func NodeRef(id scene.NodeID) Ref { return Ref(strconv.Itoa(int(id))) }

// GroupRef returns the ref for a group id.
func GroupRef(id scene.GroupID) Ref { return Ref(id.String()) }

// Parse decodes a saved scene.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &d, nil
}

// Marshal encodes a document, indented when pretty is set.
func Marshal(d *Document, pretty bool) ([]byte, error) {
	out := *d
	if out.Layers == nil {
		out.Layers = []Layer{}
	}
	if out.Connections == nil {
		out.Connections = []Connection{}
	}
	if out.Groups == nil {
		out.Groups = []Group{}
	}
	if pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
