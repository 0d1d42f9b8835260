package assemble

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
	"github.com/matzehuels/recompose/pkg/errors"
)

// BoundsTolerance is the slack, in pixels, allowed before a layer counts as
// outside its container.
const BoundsTolerance = 1.0

// ViolationKind classifies procedural violations.
type ViolationKind string

const (
	// OutOfBounds: a source layer extends outside its source container.
	OutOfBounds ViolationKind = "OUT_OF_BOUNDS"
	// TargetMismatch: a payload targets a different container than the
	// slot it is bound to.
	TargetMismatch ViolationKind = "TARGET_MISMATCH"
)

// Violation is one procedural problem found by [Audit].
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Container string        `json:"container"` // slot container id
	LayerID   string        `json:"layerId,omitempty"`
	Message   string        `json:"message"`
}

// Report lists the violations of an export attempt. Violating slots are
// blocked; the others may still be exported.
type Report struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether no violations were found.
func (r *Report) OK() bool { return r == nil || len(r.Violations) == 0 }

// Blocked reports whether the slot for containerID has a violation.
func (r *Report) Blocked(containerID string) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.Violations, func(v Violation) bool { return v.Container == containerID })
}

// BlockedContainers returns the distinct blocked container ids in report
// order.
func (r *Report) BlockedContainers() []string {
	var out []string
	for _, v := range r.Violations {
		if !slices.Contains(out, v.Container) {
			out = append(out, v.Container)
		}
	}
	return out
}

// Audit checks every bound slot for procedural violations.
func Audit(slots []Slot) Report {
	rep := Report{Violations: []Violation{}}
	for _, s := range slots {
		p := s.Payload
		if p == nil {
			continue
		}
		if p.TargetContainer != nil && p.TargetContainer.ID != s.Container.ID {
			rep.Violations = append(rep.Violations, Violation{
				Kind:      TargetMismatch,
				Container: s.Container.ID,
				Message:   fmt.Sprintf("payload targets %q but is bound to %q", p.TargetContainer.ID, s.Container.ID),
			})
		}
		if p.SourceContainer == nil || s.Source == nil {
			continue
		}
		bounds := p.SourceContainer.Bounds
		design.Walk(p.Layers, func(l *design.TransformedLayer) bool {
			if l.IsGenerative() {
				return false
			}
			orig, ok := document.Locate(s.Source, l.ID)
			if !ok || orig.IsGroup() {
				return true
			}
			r := orig.Rect()
			if r.Empty() || bounds.Contains(r, BoundsTolerance) {
				return true
			}
			rep.Violations = append(rep.Violations, Violation{
				Kind:      OutOfBounds,
				Container: s.Container.ID,
				LayerID:   l.ID,
				Message:   fmt.Sprintf("layer %q extends outside source container %q", orig.Name, p.SourceContainer.Name),
			})
			return true
		})
	}
	return rep
}

// Export audits slots, assembles the unblocked ones and encodes the result
// to w. Only an encode failure is returned as an error; the report and stats
// are valid either way.
func (a *Assembler) Export(ctx context.Context, w io.Writer, codec document.Codec, canvas Canvas, slots []Slot) (Report, Stats, error) {
	rep := Audit(slots)
	for _, id := range rep.BlockedContainers() {
		a.logger().Warn("slot blocked by procedural violation", "container", id)
	}
	doc, st := a.Assemble(ctx, canvas, slots, &rep)
	if err := codec.Encode(w, doc, document.EncodeOptions{GenerateThumbnail: true}); err != nil {
		if errors.GetCode(err) == errors.ErrCodeEncode {
			return rep, st, err
		}
		return rep, st, errors.Wrap(errors.ErrCodeEncode, err, "encode assembled document")
	}
	return rep, st, nil
}
