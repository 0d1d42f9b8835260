package transform

import (
	"math"

	"github.com/google/uuid"

	"github.com/matzehuels/recompose/pkg/design"
)

// BleedRatio is the fraction of the target height a layer may overflow
// vertically.
const BleedRatio = 0.03

// GenerativeLayerName is the display name of synthetic layers.
const GenerativeLayerName = "Generative Fill"

// generativeNamespace seeds deterministic generative layer IDs.
var generativeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("recompose:generative-layer"))

// Input collects everything a transform depends on.
type Input struct {
	Source       *design.Container
	SourceLayers []design.Layer
	Target       *design.Container
	Strategy     *design.Strategy

	// ConfirmedPrompt is the generative prompt the user approved. The
	// generative layer is only emitted when it equals Strategy.GenerativePrompt.
	ConfirmedPrompt string

	// GenerationAllowed is the generation gate. nil leaves it unstated; false
	// suppresses generative layers regardless of confirmation.
	GenerationAllowed *bool
}

// Compute returns the transformed payload for in. ok is false when the source
// or target container is missing or has no area.
func Compute(in Input) (p design.Payload, ok bool) {
	if in.Source == nil || in.Target == nil || in.Source.Bounds.Empty() || in.Target.Bounds.Empty() {
		return design.Payload{}, false
	}

	src, dst := in.Source.Bounds, in.Target.Bounds
	scale := Scale(src, dst, in.Strategy)
	ax, ay := Anchor(src, dst, scale, in.Strategy)

	e := engine{
		src:    src,
		dst:    dst,
		scale:  scale,
		anchor: [2]float64{ax, ay},
		strat:  in.Strategy,
		used:   map[string]bool{},
	}
	layers := e.layers(in.SourceLayers)

	status := design.StatusSuccess
	var requiresGen *bool
	if prompt := generativePrompt(in.Strategy); prompt != "" {
		denied := in.GenerationAllowed != nil && !*in.GenerationAllowed
		requiresGen = design.Bool(!denied)
		switch {
		case denied:
		case prompt == in.ConfirmedPrompt:
			layers = append(layers, GenerativeLayer(*in.Target, prompt))
		default:
			status = design.StatusAwaitingConfirmation
		}
	}

	source, target := *in.Source, *in.Target
	return design.Payload{
		Status:          status,
		SourceContainer: &source,
		TargetContainer: &target,
		Layers:          layers,
		ScaleFactor:     scale,
		Metrics: design.Metrics{
			Source:        design.Size{W: src.W, H: src.H},
			Target:        design.Size{W: dst.W, H: dst.H},
			LayerCount:    design.CountLayers(layers),
			OverrideCount: len(e.used),
		},
		RequiresGeneration: requiresGen,
		GenerationAllowed:  in.GenerationAllowed,
	}, true
}

// Scale returns the global scale factor for mapping src onto dst.
func Scale(src, dst design.Rect, s *design.Strategy) float64 {
	if s != nil && s.SuggestedScale > 0 {
		return s.SuggestedScale
	}
	return math.Min(dst.W/src.W, dst.H/src.H)
}

// Anchor returns the point the scaled source origin maps to.
func Anchor(src, dst design.Rect, scale float64, s *design.Strategy) (x, y float64) {
	w, h := src.W*scale, src.H*scale
	x = dst.X + (dst.W-w)/2
	y = dst.Y + (dst.H-h)/2
	if s == nil {
		return x, y
	}
	switch s.Anchor {
	case design.AnchorTop:
		y = dst.Y
	case design.AnchorBottom:
		y = dst.Y + dst.H - h
	}
	return x, y
}

// GenerativeLayer returns the synthetic layer for prompt on target. Compute
// appends it last so it paints above the mapped layers.
func GenerativeLayer(target design.Container, prompt string) design.TransformedLayer {
	return design.TransformedLayer{
		ID:               GenerativeID(target.ID, prompt),
		Name:             GenerativeLayerName,
		Kind:             design.KindGenerative,
		Visible:          true,
		Opacity:          1,
		Coords:           target.Bounds,
		Transform:        design.Transform{ScaleX: 1, ScaleY: 1},
		GenerativePrompt: prompt,
	}
}

// GenerativeID returns the deterministic ID of the generative layer for
// prompt on the target container.
func GenerativeID(targetID, prompt string) string {
	return "gen-" + uuid.NewSHA1(generativeNamespace, []byte(targetID+"\x00"+prompt)).String()
}

func generativePrompt(s *design.Strategy) string {
	if s == nil {
		return ""
	}
	return s.GenerativePrompt
}

type engine struct {
	src, dst design.Rect
	scale    float64
	anchor   [2]float64
	strat    *design.Strategy
	used     map[string]bool
}

func (e *engine) layers(in []design.Layer) []design.TransformedLayer {
	if in == nil {
		return nil
	}
	out := make([]design.TransformedLayer, 0, len(in))
	for _, l := range in {
		out = append(out, e.layer(l))
	}
	return out
}

func (e *engine) layer(l design.Layer) design.TransformedLayer {
	sx, sy := e.scale, e.scale
	x := e.anchor[0] + (l.Coords.X-e.src.X)*e.scale
	y := e.anchor[1] + (l.Coords.Y-e.src.Y)*e.scale

	var rotation float64
	if o, ok := e.strat.OverrideFor(l.ID); ok {
		e.used[l.ID] = true
		x = e.dst.X + o.XOffset
		y = e.dst.Y + o.YOffset
		if o.IndividualScale != 0 {
			sx *= o.IndividualScale
			sy *= o.IndividualScale
		}
		rotation = o.Rotation
	}

	bleed := e.dst.H * BleedRatio
	y = clamp(y, e.dst.Y-bleed, e.dst.Y+e.dst.H+bleed)

	return design.TransformedLayer{
		ID:      l.ID,
		Name:    l.Name,
		Kind:    l.Kind,
		Visible: l.Visible,
		Opacity: l.Opacity,
		Coords: design.Rect{
			X: x,
			Y: y,
			W: l.Coords.W * sx,
			H: l.Coords.H * sy,
		},
		Transform: design.Transform{
			ScaleX:   sx,
			ScaleY:   sy,
			OffsetX:  x - l.Coords.X,
			OffsetY:  y - l.Coords.Y,
			Rotation: rotation,
		},
		Children: e.layers(l.Children),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
