package design

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRectContains(t *testing.T) {
	outer := Rect{X: 0, Y: 0, W: 100, H: 100}
	tests := []struct {
		name  string
		inner Rect
		tol   float64
		want  bool
	}{
		{"inside", Rect{X: 10, Y: 10, W: 50, H: 50}, 0, true},
		{"same", outer, 0, true},
		{"overflow right", Rect{X: 60, Y: 0, W: 50, H: 10}, 0, false},
		{"overflow within tolerance", Rect{X: 60, Y: 0, W: 41, H: 10}, 1, true},
		{"negative origin", Rect{X: -5, Y: 0, W: 10, H: 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.Contains(tt.inner, tt.tol); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestStripGenerative(t *testing.T) {
	in := []TransformedLayer{
		{ID: "gen-1", Kind: KindGenerative},
		{ID: "0", Kind: KindGroup, Children: []TransformedLayer{
			{ID: "0.0", Kind: KindLeaf},
			{ID: "gen-2", Kind: KindGenerative},
		}},
	}
	got := StripGenerative(in)
	want := []TransformedLayer{
		{ID: "0", Kind: KindGroup, Children: []TransformedLayer{
			{ID: "0.0", Kind: KindLeaf},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StripGenerative() mismatch (-want +got):\n%s", diff)
	}
	if !HasGenerative(in) {
		t.Error("input was modified")
	}
	if HasGenerative(got) {
		t.Error("HasGenerative(stripped) = true")
	}
}

func TestCountLayers(t *testing.T) {
	layers := []TransformedLayer{
		{ID: "0", Children: []TransformedLayer{{ID: "0.0"}, {ID: "0.1"}}},
		{ID: "1"},
	}
	if got := CountLayers(layers); got != 4 {
		t.Errorf("CountLayers() = %d, want 4", got)
	}
}

func TestPayloadClone(t *testing.T) {
	p := Payload{
		Status:          StatusSuccess,
		TargetContainer: &Container{ID: "container-0-HERO"},
		Layers:          []TransformedLayer{{ID: "0", Children: []TransformedLayer{{ID: "0.0"}}}},
		IsConfirmed:     Bool(true),
	}
	c := p.Clone()
	c.TargetContainer.ID = "other"
	c.Layers[0].Children[0].ID = "changed"
	*c.IsConfirmed = false

	if p.TargetContainer.ID != "container-0-HERO" {
		t.Error("clone shares target container")
	}
	if p.Layers[0].Children[0].ID != "0.0" {
		t.Error("clone shares layer children")
	}
	if !p.Confirmed() {
		t.Error("clone shares confirmation flag")
	}
}

func TestPayloadPatchApply(t *testing.T) {
	base := Payload{
		Status:       StatusSuccess,
		ScaleFactor:  0.5,
		PreviewURL:   "data:old",
		GenerationID: 7,
		IsConfirmed:  Bool(true),
	}
	preview := "data:new"
	got := PayloadPatch{PreviewURL: &preview, IsConfirmed: Bool(false)}.Apply(base)

	if got.PreviewURL != "data:new" || got.Confirmed() {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.ScaleFactor != 0.5 || got.GenerationID != 7 {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if base.PreviewURL != "data:old" || !base.Confirmed() {
		t.Error("base was modified")
	}
}

func TestPayloadJSONOmitsUnsetFlags(t *testing.T) {
	data, err := json.Marshal(Payload{Status: StatusIdle})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"isConfirmed", "isTransient", "previewUrl", "generationId"} {
		if _, ok := m[k]; ok {
			t.Errorf("unset field %q serialized", k)
		}
	}
}

func TestStrategyOverrideFor(t *testing.T) {
	s := &Strategy{Overrides: []Override{{LayerID: "0.1", XOffset: 5}}}
	if o, ok := s.OverrideFor("0.1"); !ok || o.XOffset != 5 {
		t.Errorf("OverrideFor(0.1) = %+v, %v", o, ok)
	}
	if _, ok := s.OverrideFor("0.2"); ok {
		t.Error("OverrideFor(0.2) found an override")
	}
	var nilStrategy *Strategy
	if _, ok := nilStrategy.OverrideFor("0.1"); ok {
		t.Error("nil strategy returned an override")
	}
}
