// Package design defines the data model shared by every stage of the
// recompose pipeline.
//
// The types fall into three groups:
//
//   - Geometry: [Rect] and [Container], the named rectangular slots a
//     template document defines.
//   - Layer trees: [Layer] is a read-only node of a parsed design document;
//     [TransformedLayer] is the same node after it has been remapped onto a
//     target container.
//   - Exchange units: [Strategy] carries an AI-proposed layout decision and
//     [Payload] is the authoritative result one producer publishes on one of
//     its output slots.
//
// # Identity
//
// A layer's ID is its hierarchy path built from parent-array indices at parse
// time ("0", "0.3", "0.3.1"). Names may repeat inside a document; paths may
// not. Every non-generative [TransformedLayer] keeps the ID of the [Layer] it
// was computed from so the assembler can locate the original pixel data.
// Generative layers get a synthetic "gen-" ID that never resolves.
//
// # Optional fields
//
// Payload flags that the reconciliation policy must tell apart from "false"
// (IsConfirmed, IsTransient, ...) are *bool. A GenerationID of 0 means "no
// token"; issued tokens always start above zero.
package design
