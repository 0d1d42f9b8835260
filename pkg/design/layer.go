package design

// LayerKind discriminates layer tree nodes.
type LayerKind string

const (
	KindLeaf       LayerKind = "leaf"
	KindGroup      LayerKind = "group"
	KindGenerative LayerKind = "generative"
)

// Layer is a node of a parsed design document's layer tree.
// Coords are absolute document pixels.
type Layer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     LayerKind `json:"type"`
	Visible  bool      `json:"isVisible"`
	Opacity  float64   `json:"opacity"`
	Coords   Rect      `json:"coords"`
	Children []Layer   `json:"children,omitempty"`
}

// IsGroup reports whether l is a group node.
func (l Layer) IsGroup() bool { return l.Kind == KindGroup }

// Transform records how a layer moved from its source position.
// Rotation is in degrees clockwise and is only applied at render time.
type Transform struct {
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
	Rotation float64 `json:"rotation,omitempty"`
}

// TransformedLayer is a Layer positioned inside a target container.
// Values are rebuilt wholesale on every recompute.
type TransformedLayer struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Kind             LayerKind          `json:"type"`
	Visible          bool               `json:"isVisible"`
	Opacity          float64            `json:"opacity"`
	Coords           Rect               `json:"coords"`
	Transform        Transform          `json:"transform"`
	GenerativePrompt string             `json:"generativePrompt,omitempty"`
	Children         []TransformedLayer `json:"children,omitempty"`
}

// IsGenerative reports whether the layer is synthetic.
func (l TransformedLayer) IsGenerative() bool { return l.Kind == KindGenerative }

// Walk calls fn for every layer in the forest in pre-order. Returning false
// from fn skips that layer's children.
func Walk(layers []TransformedLayer, fn func(l *TransformedLayer) bool) {
	for i := range layers {
		if fn(&layers[i]) {
			Walk(layers[i].Children, fn)
		}
	}
}

// WalkLayers is the [Layer] counterpart of [Walk].
func WalkLayers(layers []Layer, fn func(l *Layer) bool) {
	for i := range layers {
		if fn(&layers[i]) {
			WalkLayers(layers[i].Children, fn)
		}
	}
}

// CountLayers returns the number of nodes in the forest.
func CountLayers(layers []TransformedLayer) int {
	n := 0
	Walk(layers, func(*TransformedLayer) bool { n++; return true })
	return n
}

// StripGenerative returns a copy of layers with every generative node
// removed at any depth. The input is not modified.
func StripGenerative(layers []TransformedLayer) []TransformedLayer {
	if layers == nil {
		return nil
	}
	out := make([]TransformedLayer, 0, len(layers))
	for _, l := range layers {
		if l.IsGenerative() {
			continue
		}
		l.Children = StripGenerative(l.Children)
		out = append(out, l)
	}
	return out
}

// HasGenerative reports whether any node in the forest is generative.
func HasGenerative(layers []TransformedLayer) bool {
	found := false
	Walk(layers, func(l *TransformedLayer) bool {
		if l.IsGenerative() {
			found = true
		}
		return !found
	})
	return found
}
