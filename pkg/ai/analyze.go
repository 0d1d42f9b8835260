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

// maxInventory bounds how many layers are described to the model.
const maxInventory = 120

// AnalysisInput is everything a layout analysis sees.
type AnalysisInput struct {
	Source design.Container
	Target design.Container
	Layers []design.Layer

	// Instruction is optional free text from the user ("keep the logo big").
	// A non-empty instruction marks the resulting strategy as explicit intent.
	Instruction string

	Knowledge      *design.KnowledgeContext
	KnowledgeMuted bool

	// SourceReference is an optional PNG snapshot of the source container.
	SourceReference []byte
}

// AnalyzeLayout asks gen for a layout strategy mapping in.Source onto
// in.Target and returns it sanitised.
func AnalyzeLayout(ctx context.Context, gen Generator, in AnalysisInput) (*design.Strategy, error) {
	if in.Source.Bounds.Empty() || in.Target.Bounds.Empty() {
		return nil, errs.New(errs.ErrCodeNotReady, "analysis needs non-empty source and target containers")
	}

	resp, err := gen.Generate(ctx, Request{
		Prompt:        AnalysisPrompt(in),
		Reference:     in.SourceReference,
		ReferenceMIME: "image/png",
		Schema:        StrategySchema(),
	})
	if err != nil {
		return nil, err
	}

	s, err := ParseStrategy(resp.Text)
	if err != nil {
		return nil, err
	}
	Sanitize(s, in.Layers)
	s.IsExplicitIntent = strings.TrimSpace(in.Instruction) != ""
	s.KnowledgeMuted = in.KnowledgeMuted
	s.KnowledgeApplied = !in.KnowledgeMuted && in.Knowledge != nil && len(in.Knowledge.Rules) > 0
	return s, nil
}

// ParseStrategy decodes a model's JSON answer. Code fences around the JSON
// are tolerated.
func ParseStrategy(text string) (*design.Strategy, error) {
	text = stripFences(text)
	if text == "" {
		return nil, errs.New(errs.ErrCodeGeneration, "empty strategy response")
	}
	var s design.Strategy
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, errs.Wrap(errs.ErrCodeGeneration, err, "decode strategy")
	}
	return &s, nil
}

// Sanitize clamps a strategy into values the transform engine accepts:
// unknown anchors become CENTER, non-positive scales fall back to fit (0),
// overrides for unknown layers are dropped and a zero individual scale
// becomes 1. A GEOMETRIC method carries no generative prompt.
func Sanitize(s *design.Strategy, layers []design.Layer) {
	if !s.Anchor.Valid() {
		s.Anchor = design.AnchorCenter
	}
	if s.SuggestedScale <= 0 {
		s.SuggestedScale = 0
	}
	switch s.Method {
	case design.MethodGeometric, design.MethodGenerative, design.MethodHybrid:
	default:
		s.Method = design.MethodGeometric
	}
	s.GenerativePrompt = strings.TrimSpace(s.GenerativePrompt)
	if s.Method == design.MethodGeometric {
		s.GenerativePrompt = ""
	}

	known := make(map[string]bool)
	design.WalkLayers(layers, func(l *design.Layer) bool {
		known[l.ID] = true
		return true
	})
	kept := s.Overrides[:0]
	for _, o := range s.Overrides {
		if !known[o.LayerID] {
			continue
		}
		if o.IndividualScale <= 0 {
			o.IndividualScale = 1
		}
		kept = append(kept, o)
	}
	s.Overrides = kept
	if len(s.Overrides) == 0 {
		s.Overrides = nil
	}
}

// AnalysisPrompt renders the instruction sent for a layout analysis.
func AnalysisPrompt(in AnalysisInput) string {
	var b strings.Builder
	b.WriteString("You are a senior layout designer adapting a design to a new format.\n")
	b.WriteString("Map the source container's layers into the target container.\n\n")

	src, dst := in.Source.Bounds, in.Target.Bounds
	fmt.Fprintf(&b, "Source container %q: %.0fx%.0f at (%.0f, %.0f), aspect %.3f\n",
		in.Source.Name, src.W, src.H, src.X, src.Y, src.W/src.H)
	fmt.Fprintf(&b, "Target container %q: %.0fx%.0f at (%.0f, %.0f), aspect %.3f\n\n",
		in.Target.Name, dst.W, dst.H, dst.X, dst.Y, dst.W/dst.H)

	b.WriteString("Layers (id, name, type, x, y, w, h relative to the source container):\n")
	n := 0
	design.WalkLayers(in.Layers, func(l *design.Layer) bool {
		if n >= maxInventory {
			return false
		}
		n++
		c := l.Coords
		fmt.Fprintf(&b, "- %s %q %s %.0f %.0f %.0f %.0f\n", l.ID, l.Name, l.Kind, c.X-src.X, c.Y-src.Y, c.W, c.H)
		return true
	})

	if !in.KnowledgeMuted && in.Knowledge != nil && len(in.Knowledge.Rules) > 0 {
		b.WriteString("\nBrand rules that must be respected:\n")
		for _, r := range in.Knowledge.Rules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if s := strings.TrimSpace(in.Instruction); s != "" {
		fmt.Fprintf(&b, "\nExplicit user instruction: %s\n", s)
	}

	b.WriteString("\nOverride offsets are relative to the target container origin. ")
	b.WriteString("Use GENERATIVE or HYBRID with a generativePrompt only when the background must be extended.\n")
	return b.String()
}

// StrategySchema is the response schema for [AnalyzeLayout].
func StrategySchema() *genai.Schema {
	override := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"layerId":         {Type: genai.TypeString},
			"xOffset":         {Type: genai.TypeNumber},
			"yOffset":         {Type: genai.TypeNumber},
			"individualScale": {Type: genai.TypeNumber},
			"rotation":        {Type: genai.TypeNumber},
		},
		Required: []string{"layerId", "xOffset", "yOffset", "individualScale"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"method": {
				Type: genai.TypeString,
				Enum: []string{string(design.MethodGeometric), string(design.MethodGenerative), string(design.MethodHybrid)},
			},
			"suggestedScale": {Type: genai.TypeNumber},
			"anchor": {
				Type: genai.TypeString,
				Enum: []string{string(design.AnchorTop), string(design.AnchorCenter), string(design.AnchorBottom), string(design.AnchorStretch)},
			},
			"generativePrompt": {Type: genai.TypeString},
			"reasoning":        {Type: genai.TypeString},
			"overrides":        {Type: genai.TypeArray, Items: override},
			"safetyReport": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"allowedBleed": {Type: genai.TypeBoolean},
					"violations":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
			},
		},
		Required: []string{"method", "suggestedScale", "anchor", "reasoning"},
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
