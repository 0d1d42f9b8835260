package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/matzehuels/recompose/pkg/design"
	errs "github.com/matzehuels/recompose/pkg/errors"
)

// Review is an aesthetic assessment of a rendered preview.
type Review struct {
	Score       float64           `json:"score"` // 0..10
	Issues      []string          `json:"issues,omitempty"`
	Suggestions []design.Override `json:"suggestions,omitempty"`
}

// ReviewInput is a rendered slot plus the geometry it came from.
type ReviewInput struct {
	Target  design.Container
	Layers  []design.TransformedLayer
	Preview []byte // PNG
	Rules   []string
}

// ReviewLayout asks gen to critique a rendered preview. Suggestions for
// layers not present in in.Layers are dropped and the score is clamped to
// [0, 10].
func ReviewLayout(ctx context.Context, gen Generator, in ReviewInput) (*Review, error) {
	if len(in.Preview) == 0 {
		return nil, errs.New(errs.ErrCodeNotReady, "review needs a rendered preview")
	}
	resp, err := gen.Generate(ctx, Request{
		Prompt:        reviewPrompt(in),
		Reference:     in.Preview,
		ReferenceMIME: "image/png",
		Schema:        ReviewSchema(),
	})
	if err != nil {
		return nil, err
	}

	var r Review
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &r); err != nil {
		return nil, errs.Wrap(errs.ErrCodeGeneration, err, "decode review")
	}
	r.Score = min(max(r.Score, 0), 10)

	known := make(map[string]bool)
	design.Walk(in.Layers, func(l *design.TransformedLayer) bool {
		known[l.ID] = true
		return true
	})
	kept := r.Suggestions[:0]
	for _, o := range r.Suggestions {
		if known[o.LayerID] {
			if o.IndividualScale <= 0 {
				o.IndividualScale = 1
			}
			kept = append(kept, o)
		}
	}
	r.Suggestions = kept
	return &r, nil
}

func reviewPrompt(in ReviewInput) string {
	var b strings.Builder
	b.WriteString("Review this adapted layout as an art director. Score it from 0 to 10, ")
	b.WriteString("list concrete issues and suggest layer overrides that fix them.\n")
	fmt.Fprintf(&b, "Target container %q is %.0fx%.0f.\n", in.Target.Name, in.Target.Bounds.W, in.Target.Bounds.H)
	b.WriteString("Layers (id, name, x, y, w, h relative to the target):\n")
	design.Walk(in.Layers, func(l *design.TransformedLayer) bool {
		c := l.Coords
		fmt.Fprintf(&b, "- %s %q %.0f %.0f %.0f %.0f\n", l.ID, l.Name,
			c.X-in.Target.Bounds.X, c.Y-in.Target.Bounds.Y, c.W, c.H)
		return true
	})
	for i, r := range in.Rules {
		if i == 0 {
			b.WriteString("Brand rules:\n")
		}
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}

// ReviewSchema is the response schema for [ReviewLayout].
func ReviewSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":  {Type: genai.TypeNumber},
			"issues": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"suggestions": {
				Type:  genai.TypeArray,
				Items: StrategySchema().Properties["overrides"].Items,
			},
		},
		Required: []string{"score"},
	}
}
