// Package pkg provides the core libraries of recompose, a procedural
// geometry and reconciliation engine for layered design documents.
//
// # Overview
//
// Recompose projects the design groups of one layered document onto the
// template containers of another. A template marks named rectangular slots
// ("!!HERO", "!!FOOTER"); each slot is filled by scaling and anchoring the
// matching group from a source document, optionally extended with generated
// imagery. The pkg directory is organized into four areas:
//
//  1. Model: [design], [document], [container]
//  2. Geometry: [resolve], [transform], [assemble]
//  3. State: [reconcile], [pipeline], [project], [history]
//  4. Infrastructure: [cache], [httputil], [config], [errors], [observability]
//
// # Architecture
//
// The data flow through recompose:
//
//	Layered document (source, target)
//	         ↓
//	    [container] package (extract template slots)
//	         ↓
//	    [resolve] package (match a slot to its design group)
//	         ↓
//	    [transform] package (scale, anchor and flag layers)
//	         ↓
//	    [reconcile] package (merge into the slot's stored payload)
//	         ↓
//	    [assemble] package (build the output document)
//
// Generation runs beside this flow: [ai] proposes layout strategies and
// synthesizes fills, [knowledge] supplies brand rules, and every dispatch is
// sequenced by [reconcile] so stale results are discarded.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(pipeline.Options{}, nil, nil, logger)
//	defer runner.Close()
//
//	runner.LoadDocument(ctx, "source", src)
//	runner.LoadDocument(ctx, "target", dst)
//	runner.Configure("remap-1", 0, pipeline.Mapping{
//	    SourceDoc: "source", SourceContainer: "HERO",
//	    TargetDoc: "target", TargetContainer: "HERO",
//	})
//	payload, _, _ := runner.Recompute(ctx, "remap-1", 0)
//	runner.Export(ctx, out, "target")
//
// # Entry Points
//
// The CLI (cmd/recompose) and the HTTP API (internal/api) drive the same
// [pipeline.Runner], so both share caching, sequencing and history.
//
// [design]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/design
// [document]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/document
// [container]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/container
// [resolve]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/resolve
// [transform]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/transform
// [assemble]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/assemble
// [reconcile]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/reconcile
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/pipeline#Runner
// [project]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/project
// [history]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/history
// [cache]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/httputil
// [config]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/observability
// [ai]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/ai
// [knowledge]: https://pkg.go.dev/github.com/matzehuels/recompose/pkg/knowledge
package pkg
