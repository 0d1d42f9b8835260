package assemble

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/recompose/pkg/ai"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
	"github.com/matzehuels/recompose/pkg/httputil"
	"github.com/matzehuels/recompose/pkg/observability"
)

// DefaultConcurrency bounds parallel asset resolution.
const DefaultConcurrency = 4

// Slot is one target container and the payload bound to it.
type Slot struct {
	Container design.Container
	// Payload is nil for an unconnected slot, which is omitted from output.
	Payload *design.Payload
	// Source is the document the payload's layer ids refer to.
	Source *document.Document
	// Reference is an optional PNG style reference for fallback generation.
	Reference []byte
}

// Canvas is the output document size.
type Canvas struct {
	Width, Height int
}

// Fetcher reads remote preview URLs.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Assembler builds output documents.
type Assembler struct {
	// Generator produces assets for confirmed layers without a preview. Nil
	// skips such layers.
	Generator ai.Generator
	// Fetcher reads http(s) previews. Nil drops layers that need one.
	Fetcher Fetcher

	Concurrency int
	Logger      *log.Logger
}

// New returns an assembler using gen for fallback generation.
func New(gen ai.Generator, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assembler{Generator: gen, Concurrency: DefaultConcurrency, Logger: logger}
}

func (a *Assembler) logger() *log.Logger {
	if a.Logger == nil {
		return log.New(io.Discard)
	}
	return a.Logger
}

type assetKey struct {
	slot  int
	layer string
}

// Stats summarizes an assembly.
type Stats struct {
	Slots   int // groups written
	Layers  int // layers written, groups included
	Dropped int // layers dropped after a failure
	Skipped int // slots left out: unbound or blocked
}

// Assemble builds a document with one top-level group per slot that has a
// payload. Slots whose container is blocked in skip are left out; a nil
// report blocks nothing.
func (a *Assembler) Assemble(ctx context.Context, canvas Canvas, slots []Slot, skip *Report) (*document.Document, Stats) {
	start := time.Now()
	observability.Pipeline().OnAssembleStart(ctx, len(slots))

	assets := a.resolveAssets(ctx, slots)

	doc := &document.Document{Width: canvas.Width, Height: canvas.Height, Children: []*document.Node{}}
	var st Stats
	for i, s := range slots {
		if s.Payload == nil || skip.Blocked(s.Container.ID) {
			st.Skipped++
			continue
		}
		b := builder{
			slot:      i,
			src:       s.Source,
			confirmed: s.Payload.Confirmed() && !s.Payload.GenerationDenied(),
			assets:    assets,
			logger:    a.logger().With("container", s.Container.Name),
		}
		group := document.NewGroup(s.Container.OriginalName, s.Container.Bounds)
		group.Children = b.nodes(s.Payload.Layers)
		st.Layers += b.count
		st.Dropped += b.dropped
		doc.Children = append(doc.Children, group)
	}
	st.Slots = len(doc.Children)

	observability.Pipeline().OnAssembleComplete(ctx, st.Slots, st.Dropped, time.Since(start), nil)
	return doc, st
}

// resolveAssets runs phase A: every confirmed generative layer gets pixels
// sized to its bounds. Failures leave the layer without an asset.
func (a *Assembler) resolveAssets(ctx context.Context, slots []Slot) map[assetKey]image.Image {
	var (
		mu     sync.Mutex
		assets = map[assetKey]image.Image{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Concurrency, 1))

	for i, s := range slots {
		p := s.Payload
		if p == nil || !p.Confirmed() || p.GenerationDenied() {
			continue
		}
		design.Walk(p.Layers, func(l *design.TransformedLayer) bool {
			if !l.IsGenerative() {
				return true
			}
			key, layer, ref := assetKey{slot: i, layer: l.ID}, *l, s.Reference
			g.Go(func() error {
				img, err := a.resolveAsset(gctx, p.PreviewURL, layer, ref)
				if err != nil {
					a.logger().Warn("generative layer dropped", "layer", layer.ID, "error", err)
					return nil
				}
				mu.Lock()
				assets[key] = img
				mu.Unlock()
				return nil
			})
			return false
		})
	}
	_ = g.Wait()
	return assets
}

func (a *Assembler) resolveAsset(ctx context.Context, preview string, l design.TransformedLayer, ref []byte) (image.Image, error) {
	var src image.Image
	switch {
	case httputil.IsRemote(preview):
		if a.Fetcher == nil {
			return nil, errNoFetcher
		}
		data, err := a.Fetcher.Get(ctx, preview)
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		src = img
	case preview != "":
		img, err := document.DecodeDataURL(preview)
		if err != nil {
			return nil, err
		}
		src = img
	case a.Generator != nil:
		data, _, err := ai.Synthesize(ctx, a.Generator, l.GenerativePrompt, ref)
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		src = img
	default:
		return nil, errNoGenerator
	}
	w, h := pixels(l.Coords.W), pixels(l.Coords.H)
	if w < 1 || h < 1 {
		return nil, errEmptyBounds
	}
	return imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos), nil
}

// builder runs phase B for one slot.
type builder struct {
	slot      int
	src       *document.Document
	confirmed bool
	assets    map[assetKey]image.Image
	logger    *log.Logger
	count     int
	dropped   int
}

func (b *builder) nodes(layers []design.TransformedLayer) []*document.Node {
	out := make([]*document.Node, 0, len(layers))
	for _, l := range layers {
		if n := b.node(l); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (b *builder) node(l design.TransformedLayer) *document.Node {
	if l.IsGenerative() {
		if !b.confirmed {
			return nil
		}
		img, ok := b.assets[assetKey{slot: b.slot, layer: l.ID}]
		if !ok {
			b.dropped++
			return nil
		}
		b.count++
		n := document.NewPixelLayer(l.Name, l.Coords, img)
		n.Hidden = !l.Visible
		return n
	}

	orig, ok := document.Locate(b.src, l.ID)
	if !ok {
		b.logger.Warn("layer not found in source document", "layer", l.ID, "name", l.Name)
		b.dropped++
		return nil
	}
	n := orig.CloneMeta()
	n.SetRect(l.Coords)
	n.Hidden = !l.Visible
	n.Opacity = l.Opacity

	if orig.IsGroup() {
		n.Children = b.nodes(l.Children)
		b.count++
		return n
	}
	if orig.Image != nil {
		img, rect, err := rasterize(orig.Image, l)
		if err != nil {
			b.logger.Warn("layer dropped", "layer", l.ID, "error", err)
			b.dropped++
			return nil
		}
		n.Image = img
		n.SetRect(rect)
	}
	b.count++
	return n
}

// rasterize returns pixels for l at its transformed size. The source image
// is returned unchanged when neither size nor rotation changed. A rotated
// layer grows to the bounding box of the rotation, centred on its box.
func rasterize(img image.Image, l design.TransformedLayer) (image.Image, design.Rect, error) {
	w, h := pixels(l.Coords.W), pixels(l.Coords.H)
	if w < 1 || h < 1 {
		return nil, design.Rect{}, errEmptyBounds
	}
	rect := l.Coords
	b := img.Bounds()
	rotation := math.Mod(l.Transform.Rotation, 360)
	if rotation == 0 && b.Dx() == w && b.Dy() == h {
		return img, rect, nil
	}

	out := image.Image(imaging.Resize(img, w, h, imaging.Lanczos))
	if rotation != 0 {
		// imaging rotates counter-clockwise.
		rotated := imaging.Rotate(out, -rotation, color.Transparent)
		rw, rh := float64(rotated.Bounds().Dx()), float64(rotated.Bounds().Dy())
		rect = design.Rect{X: rect.CenterX() - rw/2, Y: rect.CenterY() - rh/2, W: rw, H: rh}
		out = rotated
	}
	return out, rect, nil
}

func pixels(v float64) int { return int(math.Round(v)) }
