package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/assemble"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
)

// Slots returns one assembly slot per template container of the target
// document, in template order. Containers no instance is bound to, or whose
// slot is idle, carry a nil payload.
func (r *Runner) Slots(targetDoc string) ([]assemble.Slot, assemble.Canvas, error) {
	d, ok := r.Document(targetDoc)
	if !ok {
		return nil, assemble.Canvas{}, errors.New(errors.ErrCodeDocumentNotFound, "document %q is not loaded", targetDoc)
	}

	bound := map[string]assemble.Slot{}
	for _, producer := range r.producers() {
		for _, i := range r.Instances(producer) {
			m, ok := r.Mapping(producer, i)
			if !ok || m.TargetDoc != targetDoc {
				continue
			}
			c := lookupContainer(d.Template, m.TargetContainer)
			if c == nil {
				continue
			}
			key := SlotKey(producer, i)
			p, ok := r.Store.Payload(key)
			if !ok || p.Status == design.StatusIdle {
				continue
			}
			slot := assemble.Slot{Container: *c, Payload: &p, Reference: r.reference(m)}
			if src, ok := r.Document(m.SourceDoc); ok {
				slot.Source = src.Document
			}
			if _, dup := bound[c.ID]; dup {
				r.Logger.Warn("container bound twice, keeping the later slot", "container", c.Name, "slot", key)
			}
			bound[c.ID] = slot
		}
	}

	slots := make([]assemble.Slot, 0, len(d.Template.Containers))
	for _, c := range d.Template.Containers {
		if s, ok := bound[c.ID]; ok {
			slots = append(slots, s)
			continue
		}
		slots = append(slots, assemble.Slot{Container: c})
	}
	return slots, assemble.Canvas{Width: d.Document.Width, Height: d.Document.Height}, nil
}

// Export assembles every bound slot of the target document and writes the
// result with the runner's codec. Slots that fail the procedural audit are
// left out and reported.
func (r *Runner) Export(ctx context.Context, w io.Writer, targetDoc string) (assemble.Report, assemble.Stats, error) {
	slots, canvas, err := r.Slots(targetDoc)
	if err != nil {
		return assemble.Report{}, assemble.Stats{}, err
	}
	a := r.assembler()
	rep, stats, err := a.Export(ctx, w, r.Codec, canvas, slots)
	if err != nil {
		return rep, stats, fmt.Errorf("export %s: %w", targetDoc, err)
	}
	for _, v := range rep.Violations {
		r.Logger.Warn("procedural violation", "kind", v.Kind, "container", v.Container, "layer", v.LayerID, "msg", v.Message)
	}
	r.Logger.Info("exported document",
		"target", targetDoc,
		"slots", stats.Slots,
		"layers", stats.Layers,
		"dropped", stats.Dropped,
		"skipped", stats.Skipped)
	return rep, stats, nil
}

// Preview renders the slot of an instance on its own and returns the target
// container region as PNG.
func (r *Runner) Preview(ctx context.Context, producer string, index int) ([]byte, error) {
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return nil, err
	}
	key := SlotKey(producer, index)
	p, ok := r.Store.Payload(key)
	if !ok || p.TargetContainer == nil || p.Status == design.StatusIdle {
		return nil, errors.New(errors.ErrCodeNotReady, "slot %s has nothing to render", key)
	}
	return r.renderSlot(ctx, m, p)
}

func (r *Runner) renderSlot(ctx context.Context, m Mapping, p design.Payload) ([]byte, error) {
	src, ok := r.Document(m.SourceDoc)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotReady, "source document is not loaded")
	}
	canvas := assemble.Canvas{Width: 1, Height: 1}
	if dst, ok := r.Document(m.TargetDoc); ok {
		canvas = assemble.Canvas{Width: dst.Document.Width, Height: dst.Document.Height}
	}

	a := r.assembler()
	doc, _ := a.Assemble(ctx, canvas, []assemble.Slot{{
		Container: *p.TargetContainer,
		Payload:   &p,
		Source:    src.Document,
		Reference: r.reference(m),
	}}, nil)

	crop := cropFlat(doc, p.TargetContainer.Bounds)
	if crop.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeNotReady, "target container lies outside the canvas")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, crop, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "encode preview")
	}
	return buf.Bytes(), nil
}

func (r *Runner) assembler() *assemble.Assembler {
	a := assemble.New(r.Generator, r.Logger)
	if r.Fetcher != nil {
		a.Fetcher = r.Fetcher
	}
	return a
}
