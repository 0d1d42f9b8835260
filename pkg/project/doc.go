// Package project reads, validates and persists editor project files.
//
// A project is the node graph an editor session works on: loader nodes that
// hold a parsed design document, remapper nodes that map one source
// container onto a target container, knowledge nodes holding brand rules and
// export nodes. Edges connect a producer's output slot (sourceHandle) to a
// consumer's input handle (targetHandle); the (source, sourceHandle) pair of
// an edge is the key the reconciliation store files payloads under.
//
// # File format
//
//	{
//	  "version": "1.0.0",
//	  "timestamp": 1718000000000,
//	  "nodes": [{"id": "n1", "type": "loader", "position": {"x": 0, "y": 0}, "data": {...}}],
//	  "edges": [{"id": "e1", "source": "n1", "sourceHandle": "container-0-post", "target": "n2", "targetHandle": "source"}],
//	  "viewport": {"x": 0, "y": 0, "zoom": 1}
//	}
//
// [Validate] checks the structure before a file replaces live state. Version
// mismatches are logged, not rejected. [Sanitize] strips generated previews
// before a project is saved; knowledge rules and optimised reference images
// are kept verbatim.
//
// # Storage
//
// [FileStore] keeps one JSON file per project and [MongoStore] one document
// per project in a MongoDB collection. Both implement [Store].
//
// # Graph rendering
//
// [ToDOT] and [RenderSVG] draw the node graph with Graphviz for inspection.
package project
