// Package document defines the layered design document the engine reads and
// writes, and the codec boundary around it.
//
// # Overview
//
// A [Document] is a canvas size plus a tree of [Node] values. Group nodes
// have a non-nil Children slice; pixel nodes carry an [image.Image]. Each
// node's rectangle is given by its Top/Left/Bottom/Right edges in canvas
// pixels; absent edges read as 0. Children are stacked bottom first, as in
// design tools' layer files.
//
// The binary layered format used by design tools is treated as a black box
// behind the [Codec] interface. [JSONCodec] is the codec this module ships:
// a layered JSON format with PNG pixel data, round-trippable and easy to
// produce from other tools.
//
// # JSON Format
//
//	{
//	  "width": 800,
//	  "height": 400,
//	  "children": [
//	    {"name": "!!TEMPLATE", "children": [
//	      {"name": "!!HERO", "top": 0, "left": 0, "bottom": 100, "right": 200, "children": []}
//	    ]},
//	    {"name": "HERO", "children": [
//	      {"name": "photo", "top": 0, "left": 0, "bottom": 100, "right": 200, "image": "<base64 png>"}
//	    ]}
//	  ]
//	}
//
// Optional node fields: hidden, opacity (default 1), blendMode, effects,
// clipping.
//
// # Layer Paths
//
// [Layers] converts a document into the engine's [design.Layer] tree. Every
// layer ID is the dot-joined list of child indices from the root ("0.3.1").
// [Locate] resolves such a path back to the original node, which is how the
// assembler finds pixel data for a transformed layer. Paths depend only on
// document structure, so reparsing the same file yields the same IDs.
package document
