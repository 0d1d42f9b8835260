package project

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/recompose/pkg/errors"
)

// CurrentVersion is written into saved projects.
const CurrentVersion = "1.0.0"

// Node types understood by the engine. Other types are carried through
// untouched.
const (
	TypeLoader    = "loader"
	TypeRemapper  = "remapper"
	TypeKnowledge = "knowledge"
	TypeExport    = "export"
)

// Input handles of a remapper node.
const (
	HandleSource    = "source"
	HandleTarget    = "target"
	HandleKnowledge = "knowledge"
)

// Project is a persisted node graph.
type Project struct {
	Version   string   `json:"version" bson:"version"`
	Timestamp int64    `json:"timestamp" bson:"timestamp"` // unix millis
	Nodes     []Node   `json:"nodes" bson:"nodes"`
	Edges     []Edge   `json:"edges" bson:"edges"`
	Viewport  Viewport `json:"viewport" bson:"viewport"`
}

// Node is a graph node. Data is owned by the editor and opaque to the
// engine apart from the keys [Sanitize] inspects.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Type     string         `json:"type" bson:"type"`
	Position Position       `json:"position" bson:"position"`
	Data     map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// Position is a node's canvas location.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Edge connects a producer's output slot to a consumer's input handle.
type Edge struct {
	ID           string `json:"id" bson:"id"`
	Source       string `json:"source" bson:"source"`
	SourceHandle string `json:"sourceHandle,omitempty" bson:"source_handle,omitempty"`
	Target       string `json:"target" bson:"target"`
	TargetHandle string `json:"targetHandle,omitempty" bson:"target_handle,omitempty"`
}

// Viewport is the editor camera.
type Viewport struct {
	X    float64 `json:"x" bson:"x"`
	Y    float64 `json:"y" bson:"y"`
	Zoom float64 `json:"zoom" bson:"zoom"`
}

// New returns an empty project stamped with the current version and time.
func New() *Project {
	return &Project{
		Version:   CurrentVersion,
		Timestamp: time.Now().UnixMilli(),
		Nodes:     []Node{},
		Edges:     []Edge{},
		Viewport:  Viewport{Zoom: 1},
	}
}

// Node returns the node with id.
func (p *Project) Node(id string) (*Node, bool) {
	for i := range p.Nodes {
		if p.Nodes[i].ID == id {
			return &p.Nodes[i], true
		}
	}
	return nil, false
}

// Upstream returns the edge feeding handle of node nodeID. An empty handle
// matches any handle.
func (p *Project) Upstream(nodeID, handle string) (Edge, bool) {
	for _, e := range p.Edges {
		if e.Target == nodeID && (handle == "" || e.TargetHandle == handle) {
			return e, true
		}
	}
	return Edge{}, false
}

// Downstream returns the edges leaving node nodeID, optionally limited to one
// output slot.
func (p *Project) Downstream(nodeID, slot string) []Edge {
	var out []Edge
	for _, e := range p.Edges {
		if e.Source == nodeID && (slot == "" || e.SourceHandle == slot) {
			out = append(out, e)
		}
	}
	return out
}

// RemoveNode deletes a node and every edge touching it. It reports whether
// the node existed.
func (p *Project) RemoveNode(id string) bool {
	found := false
	nodes := p.Nodes[:0]
	for _, n := range p.Nodes {
		if n.ID == id {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	p.Nodes = nodes

	edges := p.Edges[:0]
	for _, e := range p.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	p.Edges = edges
	return found
}

// Validate checks raw project JSON structurally and decodes it. The nodes
// and edges arrays must be present and viewport.x must be a number. A
// version other than [CurrentVersion] is logged as a warning.
func Validate(raw []byte, logger *log.Logger) (*Project, error) {
	var shape struct {
		Version  string           `json:"version"`
		Nodes    *json.RawMessage `json:"nodes"`
		Edges    *json.RawMessage `json:"edges"`
		Viewport *struct {
			X json.RawMessage `json:"x"`
		} `json:"viewport"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProject, err, "project is not valid JSON")
	}
	if shape.Nodes == nil || !isArray(*shape.Nodes) {
		return nil, errors.New(errors.ErrCodeInvalidProject, "project has no nodes array")
	}
	if shape.Edges == nil || !isArray(*shape.Edges) {
		return nil, errors.New(errors.ErrCodeInvalidProject, "project has no edges array")
	}
	if shape.Viewport == nil {
		return nil, errors.New(errors.ErrCodeInvalidProject, "project has no viewport")
	}
	var x float64
	if err := json.Unmarshal(shape.Viewport.X, &x); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidProject, "viewport.x is not a number")
	}

	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProject, err, "decode project")
	}
	if p.Version != CurrentVersion {
		if logger == nil {
			logger = log.New(io.Discard)
		}
		logger.Warn("project version mismatch", "got", p.Version, "want", CurrentVersion)
	}
	return &p, nil
}

// Parse reads and validates a project from r.
func Parse(r io.Reader, logger *log.Logger) (*Project, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProject, err, "read project")
	}
	return Validate(raw, logger)
}

// Marshal encodes p as indented JSON.
func Marshal(p *Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "encode project")
	}
	return data, nil
}

func isArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		}
		return false
	}
	return false
}
