package transform

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/recompose/pkg/design"
)

func box(id string, x, y, w, h float64) *design.Container {
	return &design.Container{ID: id, Name: id, Bounds: design.Rect{X: x, Y: y, W: w, H: h}}
}

func leaf(id string, x, y, w, h float64) design.Layer {
	return design.Layer{ID: id, Name: id, Kind: design.KindLeaf, Visible: true, Opacity: 1,
		Coords: design.Rect{X: x, Y: y, W: w, H: h}}
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestComputeBaseline(t *testing.T) {
	p, ok := Compute(Input{
		Source:       box("src", 0, 0, 100, 200),
		SourceLayers: []design.Layer{leaf("0", 0, 0, 100, 200)},
		Target:       box("dst", 0, 0, 50, 50),
	})
	if !ok {
		t.Fatal("Compute() not ready")
	}
	if p.ScaleFactor != 0.25 {
		t.Errorf("ScaleFactor = %v, want 0.25", p.ScaleFactor)
	}
	if p.Status != design.StatusSuccess {
		t.Errorf("Status = %s, want success", p.Status)
	}
	want := design.Rect{X: 12.5, Y: 0, W: 25, H: 50}
	if diff := cmp.Diff(want, p.Layers[0].Coords, approx); diff != "" {
		t.Errorf("layer coords mismatch (-want +got):\n%s", diff)
	}
	if tr := p.Layers[0].Transform; tr.ScaleX != 0.25 || tr.ScaleY != 0.25 {
		t.Errorf("transform scale = %v,%v", tr.ScaleX, tr.ScaleY)
	}
	wantMetrics := design.Metrics{
		Source:     design.Size{W: 100, H: 200},
		Target:     design.Size{W: 50, H: 50},
		LayerCount: 1,
	}
	if diff := cmp.Diff(wantMetrics, p.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeRelativePlacement(t *testing.T) {
	p, _ := Compute(Input{
		Source: box("src", 100, 100, 200, 100),
		SourceLayers: []design.Layer{
			leaf("0", 100, 100, 100, 50),
			leaf("1", 250, 150, 50, 50),
		},
		Target: box("dst", 0, 0, 100, 100),
	})
	// scale 0.5 -> 100x50 content centered vertically at y=25.
	want := []design.Rect{
		{X: 0, Y: 25, W: 50, H: 25},
		{X: 75, Y: 50, W: 25, H: 25},
	}
	for i, w := range want {
		if diff := cmp.Diff(w, p.Layers[i].Coords, approx); diff != "" {
			t.Errorf("layer %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestComputeStrategyAnchor(t *testing.T) {
	src := box("src", 0, 0, 100, 100)
	dst := box("dst", 0, 0, 200, 400)
	layers := []design.Layer{leaf("0", 0, 0, 100, 100)}

	tests := []struct {
		name     string
		strategy *design.Strategy
		want     design.Rect
	}{
		{"no strategy", nil, design.Rect{X: 0, Y: 100, W: 200, H: 200}},
		{"top", &design.Strategy{SuggestedScale: 1, Anchor: design.AnchorTop}, design.Rect{X: 50, Y: 0, W: 100, H: 100}},
		{"bottom", &design.Strategy{SuggestedScale: 1, Anchor: design.AnchorBottom}, design.Rect{X: 50, Y: 300, W: 100, H: 100}},
		{"center", &design.Strategy{SuggestedScale: 1, Anchor: design.AnchorCenter}, design.Rect{X: 50, Y: 150, W: 100, H: 100}},
		{"stretch centers", &design.Strategy{SuggestedScale: 1, Anchor: design.AnchorStretch}, design.Rect{X: 50, Y: 150, W: 100, H: 100}},
		{"zero scale falls back to fit", &design.Strategy{Anchor: design.AnchorTop}, design.Rect{X: 0, Y: 0, W: 200, H: 200}},
		{"overflow scale", &design.Strategy{SuggestedScale: 3, Anchor: design.AnchorTop}, design.Rect{X: -50, Y: 0, W: 300, H: 300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := Compute(Input{Source: src, SourceLayers: layers, Target: dst, Strategy: tt.strategy})
			if diff := cmp.Diff(tt.want, p.Layers[0].Coords, approx); diff != "" {
				t.Errorf("coords mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeOverrideReplacesPosition(t *testing.T) {
	in := Input{
		Source:       box("src", 0, 0, 100, 100),
		SourceLayers: []design.Layer{leaf("0", 10, 10, 20, 20)},
		Target:       box("dst", 0, 0, 100, 100),
	}
	base, _ := Compute(in)
	if got := base.Layers[0].Coords; got.X != 10 || got.Y != 10 {
		t.Fatalf("baseline position = (%v,%v), want (10,10)", got.X, got.Y)
	}

	in.Strategy = &design.Strategy{Overrides: []design.Override{{LayerID: "0", XOffset: 5, YOffset: 5}}}
	p, _ := Compute(in)
	if got := p.Layers[0].Coords; got.X != 5 || got.Y != 5 {
		t.Errorf("override position = (%v,%v), want (5,5)", got.X, got.Y)
	}
	if p.Metrics.OverrideCount != 1 {
		t.Errorf("OverrideCount = %d, want 1", p.Metrics.OverrideCount)
	}
}

func TestComputeOverrideScaleAndRotation(t *testing.T) {
	in := Input{
		Source: box("src", 0, 0, 100, 100),
		SourceLayers: []design.Layer{
			leaf("0", 0, 0, 20, 20),
			leaf("1", 0, 0, 20, 20),
		},
		Target: box("dst", 0, 0, 100, 100),
		Strategy: &design.Strategy{Overrides: []design.Override{
			{LayerID: "0", IndividualScale: 2, Rotation: 15},
			{LayerID: "1", IndividualScale: 0},
			{LayerID: "missing", XOffset: 1},
		}},
	}
	p, _ := Compute(in)

	scaled := p.Layers[0]
	if scaled.Coords.W != 40 || scaled.Coords.H != 40 {
		t.Errorf("individual scale size = %vx%v, want 40x40", scaled.Coords.W, scaled.Coords.H)
	}
	if scaled.Transform.ScaleX != 2 || scaled.Transform.Rotation != 15 {
		t.Errorf("transform = %+v", scaled.Transform)
	}
	if scaled.Coords.X != 0 || scaled.Coords.Y != 0 {
		t.Errorf("rotation moved the layer to (%v,%v)", scaled.Coords.X, scaled.Coords.Y)
	}
	if got := p.Layers[1].Transform.ScaleX; got != 1 {
		t.Errorf("zero individual scale = %v, want 1", got)
	}
	if p.Metrics.OverrideCount != 2 {
		t.Errorf("OverrideCount = %d, want 2", p.Metrics.OverrideCount)
	}
}

func TestComputeBleedClamp(t *testing.T) {
	tests := []struct {
		name       string
		xOff, yOff float64
		wantX      float64
		wantY      float64
	}{
		{"inside", 10, 10, 10, 10},
		{"below", 0, 1000, 0, 103},
		{"above", 0, -50, 0, -3},
		{"within bleed", 0, -2, 0, -2},
		// Horizontal overflow is left as is.
		{"x unclamped", 500, 0, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := Compute(Input{
				Source:       box("src", 0, 0, 100, 100),
				SourceLayers: []design.Layer{leaf("0", 0, 0, 10, 10)},
				Target:       box("dst", 0, 0, 100, 100),
				Strategy: &design.Strategy{Overrides: []design.Override{
					{LayerID: "0", XOffset: tt.xOff, YOffset: tt.yOff},
				}},
			})
			got := p.Layers[0].Coords
			if diff := cmp.Diff([2]float64{tt.wantX, tt.wantY}, [2]float64{got.X, got.Y}, approx); diff != "" {
				t.Errorf("position mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeChildrenShareScale(t *testing.T) {
	grp := design.Layer{
		ID: "0", Name: "g", Kind: design.KindGroup, Visible: true, Opacity: 1,
		Coords: design.Rect{X: 0, Y: 0, W: 100, H: 100},
		Children: []design.Layer{
			leaf("0.0", 50, 50, 50, 50),
		},
	}
	p, _ := Compute(Input{
		Source:       box("src", 0, 0, 100, 100),
		SourceLayers: []design.Layer{grp},
		Target:       box("dst", 200, 200, 50, 50),
	})
	child := p.Layers[0].Children[0]
	want := design.Rect{X: 225, Y: 225, W: 25, H: 25}
	if diff := cmp.Diff(want, child.Coords, approx); diff != "" {
		t.Errorf("child coords mismatch (-want +got):\n%s", diff)
	}
	if child.ID != "0.0" {
		t.Errorf("child id = %q, want source id", child.ID)
	}
}

func TestComputeGenerativeGate(t *testing.T) {
	strategy := &design.Strategy{Method: design.MethodHybrid, GenerativePrompt: "extend the sky"}
	base := Input{
		Source:       box("src", 0, 0, 100, 100),
		SourceLayers: []design.Layer{leaf("0", 0, 0, 100, 100)},
		Target:       box("dst", 10, 20, 300, 100),
		Strategy:     strategy,
	}

	t.Run("unconfirmed", func(t *testing.T) {
		p, _ := Compute(base)
		if p.Status != design.StatusAwaitingConfirmation {
			t.Errorf("Status = %s, want awaiting_confirmation", p.Status)
		}
		if design.HasGenerative(p.Layers) {
			t.Error("generative layer emitted before confirmation")
		}
		if !design.BoolValue(p.RequiresGeneration) {
			t.Error("RequiresGeneration not set")
		}
	})

	t.Run("confirmed other prompt", func(t *testing.T) {
		in := base
		in.ConfirmedPrompt = "something else"
		p, _ := Compute(in)
		if design.HasGenerative(p.Layers) {
			t.Error("generative layer emitted for stale confirmation")
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		in := base
		in.ConfirmedPrompt = "extend the sky"
		p, _ := Compute(in)
		if p.Status != design.StatusSuccess {
			t.Errorf("Status = %s, want success", p.Status)
		}
		gen := p.Layers[len(p.Layers)-1]
		if !gen.IsGenerative() || gen.GenerativePrompt != "extend the sky" {
			t.Fatalf("topmost layer = %+v, want generative", gen)
		}
		if p.Layers[0].ID != "0" {
			t.Errorf("mapped layer moved to %q, want it beneath the fill", p.Layers[0].ID)
		}
		if gen.Coords != in.Target.Bounds {
			t.Errorf("generative coords = %+v, want target bounds", gen.Coords)
		}
		if !strings.HasPrefix(gen.ID, "gen-") {
			t.Errorf("generative id = %q", gen.ID)
		}
		again, _ := Compute(in)
		if again.Layers[len(again.Layers)-1].ID != gen.ID {
			t.Error("generative id not deterministic")
		}
		if p.Metrics.LayerCount != 2 {
			t.Errorf("LayerCount = %d, want 2", p.Metrics.LayerCount)
		}
	})

	t.Run("denied", func(t *testing.T) {
		in := base
		in.ConfirmedPrompt = "extend the sky"
		in.GenerationAllowed = design.Bool(false)
		p, _ := Compute(in)
		if design.HasGenerative(p.Layers) {
			t.Error("generative layer emitted with generation disabled")
		}
		if p.Status != design.StatusSuccess {
			t.Errorf("Status = %s, want success", p.Status)
		}
		if !p.GenerationDenied() {
			t.Error("gate not carried onto payload")
		}
	})
}

func TestComputeNotReady(t *testing.T) {
	layers := []design.Layer{leaf("0", 0, 0, 1, 1)}
	tests := []struct {
		name string
		in   Input
	}{
		{"no source", Input{Target: box("dst", 0, 0, 10, 10), SourceLayers: layers}},
		{"no target", Input{Source: box("src", 0, 0, 10, 10), SourceLayers: layers}},
		{"empty source", Input{Source: box("src", 0, 0, 0, 10), Target: box("dst", 0, 0, 10, 10)}},
		{"empty target", Input{Source: box("src", 0, 0, 10, 10), Target: box("dst", 0, 0, 10, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Compute(tt.in); ok {
				t.Error("Compute() ok = true, want false")
			}
		})
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	layers := []design.Layer{leaf("0", 10, 10, 20, 20)}
	src := box("src", 0, 0, 100, 100)
	Compute(Input{Source: src, SourceLayers: layers, Target: box("dst", 0, 0, 50, 50)})
	if layers[0].Coords != (design.Rect{X: 10, Y: 10, W: 20, H: 20}) {
		t.Errorf("source layer mutated: %+v", layers[0].Coords)
	}
	if src.Bounds.W != 100 {
		t.Error("source container mutated")
	}
}

func ExampleCompute() {
	p, _ := Compute(Input{
		Source: &design.Container{ID: "container-0-HERO", Bounds: design.Rect{W: 200, H: 100}},
		SourceLayers: []design.Layer{{
			ID: "1.0", Name: "photo", Kind: design.KindLeaf, Visible: true, Opacity: 1,
			Coords: design.Rect{W: 200, H: 100},
		}},
		Target: &design.Container{ID: "container-0-SQUARE", Bounds: design.Rect{W: 100, H: 100}},
	})
	l := p.Layers[0]
	fmt.Println(p.ScaleFactor, l.Coords.X, l.Coords.Y, l.Coords.W, l.Coords.H)
	// Output: 0.5 0 25 100 50
}
