// Package ai talks to the generative model that proposes layout strategies,
// reviews rendered previews and synthesizes fill imagery.
//
// Everything in this package goes through the [Generator] interface, so the
// pipeline and tests can swap the hosted model for a fake. [GeminiClient] is
// the production implementation on top of google.golang.org/genai.
//
// The three operations built on a Generator are:
//
//   - [AnalyzeLayout]: asks for a [design.Strategy] as schema-constrained JSON
//     and sanitises the answer before it reaches the transform engine.
//   - [Review]: scores a rendered preview and may suggest layer overrides.
//   - [Synthesize]: requests an image for a generative fill prompt.
package ai

import (
	"context"

	"google.golang.org/genai"
)

// Request is a single model call.
type Request struct {
	// Prompt is the instruction text.
	Prompt string
	// Reference is optional image data sent alongside the prompt.
	Reference     []byte
	ReferenceMIME string
	// Schema constrains a JSON text response. Nil means free text.
	Schema *genai.Schema
	// WantImage asks for an image response instead of text.
	WantImage bool
}

// Response is what a model returned.
type Response struct {
	Text     string
	Image    []byte
	MIMEType string
}

// Generator performs model calls.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to [Generator].
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
