package document

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
)

const sampleJSON = `{
  "width": 800,
  "height": 400,
  "children": [
    {"name": "!!TEMPLATE", "children": [
      {"name": "!!HERO", "top": 0, "left": 0, "bottom": 100, "right": 200, "children": []}
    ]},
    {"name": "HERO", "children": [
      {"name": "photo", "top": 10, "left": 20, "bottom": 60, "right": 120, "opacity": 0.5},
      {"name": "nested", "children": [
        {"name": "caption", "hidden": true, "top": 70, "left": 20, "bottom": 90, "right": 180}
      ]}
    ]}
  ]
}`

func TestJSONCodecDecode(t *testing.T) {
	doc, err := JSONCodec{}.Decode(strings.NewReader(sampleJSON), DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Width != 800 || doc.Height != 400 {
		t.Errorf("canvas = %dx%d, want 800x400", doc.Width, doc.Height)
	}
	hero, ok := Locate(doc, "0.0")
	if !ok || hero.Name != "!!HERO" {
		t.Fatalf("Locate(0.0) = %v, %v", hero, ok)
	}
	if !hero.IsGroup() {
		t.Error("empty container group decoded as pixel layer")
	}
	photo, _ := Locate(doc, "1.0")
	if photo.Opacity != 0.5 {
		t.Errorf("photo opacity = %v, want 0.5", photo.Opacity)
	}
	if caption, _ := Locate(doc, "1.1.0"); caption.Opacity != 1 {
		t.Errorf("default opacity = %v, want 1", caption.Opacity)
	}
}

func TestJSONCodecDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated", `{"width": 10, "children": [`},
		{"not json", `8BPS binary`},
		{"negative canvas", `{"width": -1, "height": 10, "children": []}`},
		{"bad opacity", `{"width": 1, "height": 1, "children": [{"name": "a", "opacity": 2}]}`},
		{"bad pixels", `{"width": 1, "height": 1, "children": [{"name": "a", "image": "!!"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSONCodec{}.Decode(strings.NewReader(tt.input), DecodeOptions{})
			if !errors.Is(err, errors.ErrCodeDecode) {
				t.Errorf("Decode() error = %v, want %s", err, errors.ErrCodeDecode)
			}
		})
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	img := imaging.New(4, 2, color.NRGBA{R: 255, A: 255})
	doc := &Document{
		Width:  10,
		Height: 10,
		Children: []*Node{
			NewGroup("HERO", design.Rect{W: 10, H: 10}),
		},
	}
	doc.Children[0].Children = append(doc.Children[0].Children,
		NewPixelLayer("red", design.Rect{X: 1, Y: 2, W: 4, H: 2}, img))
	doc.Children[0].Children[0].BlendMode = "multiply"

	var buf bytes.Buffer
	if err := (JSONCodec{}).Encode(&buf, doc, EncodeOptions{GenerateThumbnail: true}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := JSONCodec{}.Decode(bytes.NewReader(buf.Bytes()), DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Thumbnail == nil {
		t.Error("thumbnail not generated")
	}
	red, ok := Locate(got, "0.0")
	if !ok {
		t.Fatal("pixel layer lost")
	}
	if red.BlendMode != "multiply" {
		t.Errorf("blend mode = %q, want multiply", red.BlendMode)
	}
	if b := red.Image.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("pixel size = %v, want 4x2", b)
	}
	if diff := cmp.Diff(design.Rect{X: 1, Y: 2, W: 4, H: 2}, red.Rect()); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}

	skipped, err := JSONCodec{}.Decode(bytes.NewReader(buf.Bytes()), DecodeOptions{SkipPixelData: true, SkipThumbnail: true})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := Locate(skipped, "0.0"); n.Image != nil || skipped.Thumbnail != nil {
		t.Error("skip options ignored")
	}
}

func TestLayers(t *testing.T) {
	doc, err := JSONCodec{}.Decode(strings.NewReader(sampleJSON), DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got := Layers(doc)
	want := []design.Layer{
		{ID: "0", Name: "!!TEMPLATE", Kind: design.KindGroup, Visible: true, Opacity: 1, Children: []design.Layer{
			{ID: "0.0", Name: "!!HERO", Kind: design.KindGroup, Visible: true, Opacity: 1,
				Coords: design.Rect{W: 200, H: 100}, Children: []design.Layer{}},
		}},
		{ID: "1", Name: "HERO", Kind: design.KindGroup, Visible: true, Opacity: 1, Children: []design.Layer{
			{ID: "1.0", Name: "photo", Kind: design.KindLeaf, Visible: true, Opacity: 0.5,
				Coords: design.Rect{X: 20, Y: 10, W: 100, H: 50}},
			{ID: "1.1", Name: "nested", Kind: design.KindGroup, Visible: true, Opacity: 1, Children: []design.Layer{
				{ID: "1.1.0", Name: "caption", Kind: design.KindLeaf, Visible: false, Opacity: 1,
					Coords: design.Rect{X: 20, Y: 70, W: 160, H: 20}},
			}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Layers() mismatch (-want +got):\n%s", diff)
	}

	again := Layers(doc)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("Layers() not stable across calls:\n%s", diff)
	}
}

func TestLocate(t *testing.T) {
	doc, _ := JSONCodec{}.Decode(strings.NewReader(sampleJSON), DecodeOptions{})
	tests := []struct {
		id   string
		want string
		ok   bool
	}{
		{"1.1.0", "caption", true},
		{"1", "HERO", true},
		{"", "", false},
		{"5", "", false},
		{"1.x", "", false},
		{"gen-1234", "", false},
		{"1.0.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, ok := Locate(doc, tt.id)
			if ok != tt.ok {
				t.Fatalf("Locate(%q) ok = %v, want %v", tt.id, ok, tt.ok)
			}
			if ok && n.Name != tt.want {
				t.Errorf("Locate(%q) = %q, want %q", tt.id, n.Name, tt.want)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	red := imaging.New(2, 2, color.NRGBA{R: 255, A: 255})
	blue := imaging.New(2, 2, color.NRGBA{B: 255, A: 255})
	doc := &Document{
		Width:  4,
		Height: 4,
		Children: []*Node{
			NewPixelLayer("bottom", design.Rect{X: 0, Y: 0, W: 2, H: 2}, red),
			NewPixelLayer("top", design.Rect{X: 1, Y: 1, W: 2, H: 2}, blue),
		},
	}
	flat := Flatten(doc)
	if c := flat.NRGBAAt(1, 1); c.B != 255 || c.R != 0 {
		t.Errorf("overlap pixel = %v, want blue on top", c)
	}
	if c := flat.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("pixel (0,0) = %v, want red", c)
	}
	if c := flat.NRGBAAt(3, 0); c.A != 0 {
		t.Errorf("pixel (3,0) = %v, want transparent", c)
	}
}

func TestDataURL(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 5))
	s, err := DataURL(img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Fatalf("DataURL() = %q", s[:30])
	}
	got, err := DecodeDataURL(s)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.Bounds(); b.Dx() != 3 || b.Dy() != 5 {
		t.Errorf("decoded size = %v", b)
	}
	if _, err := DecodeDataURL("https://example.com/a.png"); !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("remote URL error = %v", err)
	}
}
