// Package assemble rebuilds a layered design document from settled
// payloads.
//
// Assembly runs in two phases. Phase A resolves the pixels of every
// confirmed generative layer concurrently: a stored preview is decoded and
// cover-fitted to the layer's bounds, and a confirmed layer without preview
// is generated on the spot. Unconfirmed generative layers are never
// rendered. Phase B walks each slot's transformed layer tree, clones the
// original node found by its path id, moves it to its new rectangle and
// re-rasterizes pixels that were scaled or rotated.
//
// Before export, [Audit] checks the procedural rules: source layers must
// stay inside their container and a payload must target the container of
// the slot it is bound to. Violating slots are left out of the export; the
// rest of the document is still written.
//
// Per-layer failures (a missing original, an undecodable preview, a failed
// generation call) are logged and the layer is dropped. Only encoding the
// final document can fail an export.
package assemble
