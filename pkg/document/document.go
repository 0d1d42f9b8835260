package document

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/design"
)

// Document is a parsed layered design document.
type Document struct {
	Width     int
	Height    int
	Children  []*Node
	Thumbnail image.Image
}

// Node is a single layer or group.
type Node struct {
	Name   string
	Top    *float64
	Left   *float64
	Bottom *float64
	Right  *float64

	Hidden    bool
	Opacity   float64
	BlendMode string
	Effects   map[string]any
	Clipping  bool

	// Image holds decoded pixel data, or nil for groups and for documents
	// decoded with SkipPixelData. It is never modified after decode.
	Image image.Image

	// Children is non-nil for groups, even when empty. The first child is
	// the bottom of the stack.
	Children []*Node
}

// IsGroup reports whether n is a group node.
func (n *Node) IsGroup() bool { return n.Children != nil }

// Rect returns the node's rectangle with absent edges read as 0.
func (n *Node) Rect() design.Rect {
	left, top := deref(n.Left), deref(n.Top)
	return design.Rect{
		X: left,
		Y: top,
		W: deref(n.Right) - left,
		H: deref(n.Bottom) - top,
	}
}

// SetRect replaces the node's edges with r.
func (n *Node) SetRect(r design.Rect) {
	n.Left = ptr(r.X)
	n.Top = ptr(r.Y)
	n.Right = ptr(r.X + r.W)
	n.Bottom = ptr(r.Y + r.H)
}

// CloneMeta returns a copy of n without pixel data or children. Effects are
// copied so the clone owns its map.
func (n *Node) CloneMeta() *Node {
	c := &Node{
		Name:      n.Name,
		Top:       copyPtr(n.Top),
		Left:      copyPtr(n.Left),
		Bottom:    copyPtr(n.Bottom),
		Right:     copyPtr(n.Right),
		Hidden:    n.Hidden,
		Opacity:   n.Opacity,
		BlendMode: n.BlendMode,
		Clipping:  n.Clipping,
	}
	if n.Effects != nil {
		c.Effects = make(map[string]any, len(n.Effects))
		for k, v := range n.Effects {
			c.Effects[k] = v
		}
	}
	return c
}

// NewGroup returns an empty group named name covering r.
func NewGroup(name string, r design.Rect) *Node {
	n := &Node{Name: name, Opacity: 1, Children: []*Node{}}
	n.SetRect(r)
	return n
}

// NewPixelLayer returns a pixel layer named name covering r.
func NewPixelLayer(name string, r design.Rect, img image.Image) *Node {
	n := &Node{Name: name, Opacity: 1, Image: img}
	n.SetRect(r)
	return n
}

// Layers builds the design layer tree of doc with hierarchy-path IDs.
func Layers(doc *Document) []design.Layer {
	if doc == nil {
		return nil
	}
	return buildLayers(doc.Children, "")
}

func buildLayers(nodes []*Node, prefix string) []design.Layer {
	out := make([]design.Layer, 0, len(nodes))
	for i, n := range nodes {
		id := strconv.Itoa(i)
		if prefix != "" {
			id = prefix + "." + id
		}
		l := design.Layer{
			ID:      id,
			Name:    n.Name,
			Kind:    design.KindLeaf,
			Visible: !n.Hidden,
			Opacity: n.Opacity,
			Coords:  n.Rect(),
		}
		if n.IsGroup() {
			l.Kind = design.KindGroup
			l.Children = buildLayers(n.Children, id)
		}
		out = append(out, l)
	}
	return out
}

// Locate resolves a hierarchy path produced by [Layers] to its node.
func Locate(doc *Document, id string) (*Node, bool) {
	if doc == nil || id == "" {
		return nil, false
	}
	nodes := doc.Children
	var cur *Node
	for _, part := range strings.Split(id, ".") {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 || i >= len(nodes) {
			return nil, false
		}
		cur = nodes[i]
		nodes = cur.Children
	}
	return cur, cur != nil
}

// FindGroup returns the first direct child group of doc named name.
func FindGroup(doc *Document, name string) (*Node, bool) {
	if doc == nil {
		return nil, false
	}
	for _, n := range doc.Children {
		if n.IsGroup() && n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Flatten composites every visible pixel layer of doc onto a transparent
// canvas, bottom layer first.
func Flatten(doc *Document) *image.NRGBA {
	w, h := max(doc.Width, 1), max(doc.Height, 1)
	canvas := imaging.New(w, h, color.Transparent)
	for _, n := range doc.Children {
		canvas = flattenNode(canvas, n, 1)
	}
	return canvas
}

func flattenNode(canvas *image.NRGBA, n *Node, opacity float64) *image.NRGBA {
	if n.Hidden {
		return canvas
	}
	opacity *= n.Opacity
	if n.IsGroup() {
		for _, c := range n.Children {
			canvas = flattenNode(canvas, c, opacity)
		}
		return canvas
	}
	if n.Image == nil || opacity <= 0 {
		return canvas
	}
	r := n.Rect()
	return imaging.Overlay(canvas, n.Image, image.Pt(int(r.X), int(r.Y)), opacity)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(v float64) *float64 { return &v }

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
