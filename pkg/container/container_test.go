package container

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
)

func decode(t *testing.T, s string) *document.Document {
	t.Helper()
	doc, err := document.JSONCodec{}.Decode(strings.NewReader(s), document.DecodeOptions{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestExtractHero(t *testing.T) {
	doc := decode(t, `{"width": 800, "height": 400, "children": [
		{"name": "!!TEMPLATE", "children": [
			{"name": "!!HERO", "top": 0, "left": 0, "bottom": 100, "right": 200, "children": []}
		]}
	]}`)

	got := Extract(doc, Options{})
	want := Template{
		CanvasW: 800,
		CanvasH: 400,
		Containers: []design.Container{{
			ID:           "container-0-HERO",
			Name:         "HERO",
			OriginalName: "!!HERO",
			Bounds:       design.Rect{X: 0, Y: 0, W: 200, H: 100},
			Normalized:   design.Rect{X: 0, Y: 0, W: 0.25, H: 0.25},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractOrderAndNormalization(t *testing.T) {
	doc := decode(t, `{"width": 1080, "height": 1920, "children": [
		{"name": "Background"},
		{"name": "!!TEMPLATE", "children": [
			{"name": "!!Title Block", "top": 100, "left": 40, "bottom": 300, "right": 1040},
			{"name": "!!HERO", "top": 320, "left": 0, "bottom": 1400, "right": 1080},
			{"name": "footer", "bottom": 1920, "right": 1080},
			{"name": "!!HERO", "top": 1500, "left": 0, "bottom": 1900, "right": 540}
		]}
	]}`)

	tpl := Extract(doc, Options{})
	wantIDs := []string{
		"container-0-Title_Block",
		"container-1-HERO",
		"container-2-footer",
		"container-3-HERO",
	}
	var ids []string
	seen := map[string]bool{}
	for _, c := range tpl.Containers {
		ids = append(ids, c.ID)
		if seen[c.ID] {
			t.Errorf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true

		for _, pair := range [][2]float64{
			{c.Normalized.X, c.Bounds.X / 1080},
			{c.Normalized.Y, c.Bounds.Y / 1920},
			{c.Normalized.W, c.Bounds.W / 1080},
			{c.Normalized.H, c.Bounds.H / 1920},
		} {
			if math.Abs(pair[0]-pair[1]) > 1e-9 {
				t.Errorf("%s: normalized %v, want %v", c.ID, pair[0], pair[1])
			}
		}
	}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Errorf("container order mismatch (-want +got):\n%s", diff)
	}
	if footer := tpl.Containers[2]; footer.Bounds != (design.Rect{W: 1080, H: 1920}) {
		t.Errorf("missing edges not defaulted to 0: %+v", footer.Bounds)
	}
}

func TestExtractWithoutTemplate(t *testing.T) {
	doc := decode(t, `{"width": 300, "height": 200, "children": [{"name": "TEMPLATE", "children": []}]}`)
	tpl := Extract(doc, Options{})
	if len(tpl.Containers) != 0 {
		t.Errorf("got %d containers, want 0", len(tpl.Containers))
	}
	if tpl.CanvasW != 300 || tpl.CanvasH != 200 {
		t.Errorf("canvas = %dx%d, want 300x200", tpl.CanvasW, tpl.CanvasH)
	}
}

func TestExtractZeroCanvas(t *testing.T) {
	doc := decode(t, `{"width": 0, "height": 0, "children": [
		{"name": "!!TEMPLATE", "children": [{"name": "!!A", "bottom": 5, "right": 7}]}
	]}`)
	c := Extract(doc, Options{}).Containers[0]
	if c.Normalized != c.Bounds {
		t.Errorf("zero canvas normalized = %+v, want %+v", c.Normalized, c.Bounds)
	}
}

func TestExtractCustomMarkers(t *testing.T) {
	doc := decode(t, `{"width": 100, "height": 100, "children": [
		{"name": "#SLOTS", "children": [{"name": "#logo", "bottom": 10, "right": 10}]}
	]}`)
	tpl := Extract(doc, Options{TemplateName: "#SLOTS", Prefix: "#"})
	if len(tpl.Containers) != 1 || tpl.Containers[0].Name != "logo" {
		t.Fatalf("Extract() = %+v", tpl.Containers)
	}
	if _, ok := tpl.ByName("logo"); !ok {
		t.Error("ByName(logo) not found")
	}
	if _, ok := tpl.ByID("container-0-logo"); !ok {
		t.Error("ByID not found")
	}
}

func ExampleExtract() {
	doc := &document.Document{Width: 800, Height: 400}
	tpl := document.NewGroup("!!TEMPLATE", design.Rect{})
	tpl.Children = append(tpl.Children, document.NewGroup("!!HERO", design.Rect{W: 200, H: 100}))
	doc.Children = append(doc.Children, tpl)

	for _, c := range Extract(doc, Options{}).Containers {
		fmt.Println(c.ID, c.Normalized.W, c.Normalized.H)
	}
	// Output: container-0-HERO 0.25 0.25
}
