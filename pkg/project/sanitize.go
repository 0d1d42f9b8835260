package project

import (
	"maps"
	"slices"
)

// transientKeys are node data keys that only hold generated previews.
var transientKeys = []string{"previewUrl", "transientPreview", "generatedImage"}

// Sanitize returns a copy of p fit for saving. Generated preview keys are
// removed at any depth of non-knowledge nodes. Everything else is kept as
// is, including optimised reference snapshots such as a strategy's
// sourceReference. Knowledge nodes are copied verbatim. The version and
// timestamp are refreshed by the caller.
func Sanitize(p *Project) *Project {
	out := *p
	out.Nodes = make([]Node, len(p.Nodes))
	out.Edges = append([]Edge(nil), p.Edges...)
	for i, n := range p.Nodes {
		if n.Type == TypeKnowledge {
			n.Data = maps.Clone(n.Data)
		} else {
			n.Data = stripMap(n.Data)
		}
		out.Nodes[i] = n
	}
	return &out
}

func stripMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if slices.Contains(transientKeys, k) {
			continue
		}
		out[k] = stripValue(v)
	}
	return out
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return stripMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stripValue(e)
		}
		return out
	}
	return v
}
