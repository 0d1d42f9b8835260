// Package transform maps a source container's layer tree onto a target
// container.
//
// # Placement
//
// Without a strategy the content is fit uniformly:
//
//	scale = min(targetW/sourceW, targetH/sourceH)
//
// and centered on both axes. A [design.Strategy] replaces the scale with its
// SuggestedScale (which may exceed the fit and overflow deliberately) and
// picks the vertical alignment from its Anchor; horizontal alignment is
// always centered.
//
// Every layer keeps its position relative to the source container, so the
// whole subtree moves as one rigid body:
//
//	pos = anchor + (layer - source) * scale
//
// # Overrides
//
// A strategy override keyed by layer ID replaces the projected position
// outright with target origin + offset, and multiplies that layer's scale by
// IndividualScale on both axes. Rotation is recorded in the layer's
// [design.Transform] and applied when the document is assembled; it does not
// affect placement.
//
// # Bleed Clamp
//
// After placement the vertical position is clamped to the target's vertical
// span widened by [BleedRatio] of its height on each side. The horizontal
// position is not clamped.
//
// # Generative Layers
//
// When the strategy carries a generative prompt and that exact prompt has
// been confirmed (and generation is not disabled), a synthetic layer sized to
// the target bounds is placed on top of the tree. Its ID is derived from the
// target and prompt, so recomputing yields the same ID.
package transform
