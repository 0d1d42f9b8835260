package reconcile

import "github.com/matzehuels/recompose/pkg/design"

// Merge folds candidate into current and returns the payload to store.
// accepted is false when the candidate is stale; the returned payload is
// then a copy of current. current may be nil for an empty slot. Neither
// argument is modified.
func Merge(candidate design.Payload, current *design.Payload) (merged design.Payload, accepted bool) {
	// 1. Gate enforcement.
	if candidate.GenerationDenied() {
		out := candidate.Clone()
		out.Layers = design.StripGenerative(out.Layers)
		out.PreviewURL = ""
		out.IsConfirmed = nil
		out.IsTransient = nil
		out.IsSynthesizing = nil
		out.RequiresGeneration = nil
		return out, true
	}

	// 2. Staleness rejection.
	if current != nil && IsStale(candidate.GenerationID, current.GenerationID) {
		return current.Clone(), false
	}

	var out design.Payload
	switch {
	// 3. Idle reset.
	case candidate.Status == design.StatusIdle:
		out = candidate.Clone()
		out.PreviewURL = ""
		out.IsConfirmed = nil
		out.IsTransient = nil
		out.IsSynthesizing = nil

	// 4. Synthesis-start flush.
	case candidate.Synthesizing() && current != nil:
		out = overlay(current.Clone(), candidate)
		out.PreviewURL = current.PreviewURL
		out.SourceReference = current.SourceReference
		out.TargetContainer = current.Clone().TargetContainer
		out.Metrics = current.Metrics
		out.GenerationID = current.GenerationID

	// 6. Geometric-update preservation.
	case current != nil && candidate.GenerationID == 0 && current.GenerationID != 0:
		keep := current.Clone()
		out = candidate.Clone()
		out.PreviewURL = keep.PreviewURL
		out.GenerationID = keep.GenerationID
		out.IsSynthesizing = keep.IsSynthesizing
		out.IsConfirmed = keep.IsConfirmed
		out.IsTransient = keep.IsTransient
		out.SourceReference = keep.SourceReference

	// 7. Default.
	default:
		out = candidate.Clone()
		if current != nil {
			keep := current.Clone()
			if out.SourceReference == "" {
				out.SourceReference = keep.SourceReference
			}
			if out.GenerationID == 0 {
				out.GenerationID = keep.GenerationID
			}
			if out.IsConfirmed == nil {
				out.IsConfirmed = keep.IsConfirmed
			}
		}
	}

	// 5. Confirmation guard.
	if design.BoolValue(out.IsTransient) {
		out.IsConfirmed = design.Bool(false)
	}
	return out, true
}

// IsStale reports whether a candidate token loses against the stored one.
// Zero means "no token" and is never stale.
func IsStale(candidate, current int64) bool {
	return candidate != 0 && current != 0 && candidate < current
}

// overlay copies every field candidate states onto base. Optional fields
// count as stated when non-nil or non-empty.
func overlay(base design.Payload, candidate design.Payload) design.Payload {
	c := candidate.Clone()
	base.Status = c.Status
	if c.SourceContainer != nil {
		base.SourceContainer = c.SourceContainer
	}
	if c.TargetContainer != nil {
		base.TargetContainer = c.TargetContainer
	}
	if c.Layers != nil {
		base.Layers = c.Layers
		base.ScaleFactor = c.ScaleFactor
	}
	if c.Error != "" {
		base.Error = c.Error
	}
	if c.PreviewURL != "" {
		base.PreviewURL = c.PreviewURL
	}
	if c.SourceReference != "" {
		base.SourceReference = c.SourceReference
	}
	if c.GenerationID != 0 {
		base.GenerationID = c.GenerationID
	}
	if c.RequiresGeneration != nil {
		base.RequiresGeneration = c.RequiresGeneration
	}
	if c.IsConfirmed != nil {
		base.IsConfirmed = c.IsConfirmed
	}
	if c.IsTransient != nil {
		base.IsTransient = c.IsTransient
	}
	if c.IsSynthesizing != nil {
		base.IsSynthesizing = c.IsSynthesizing
	}
	if c.GenerationAllowed != nil {
		base.GenerationAllowed = c.GenerationAllowed
	}
	return base
}
