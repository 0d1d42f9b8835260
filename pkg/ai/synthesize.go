package ai

import (
	"context"
	"strings"

	errs "github.com/matzehuels/recompose/pkg/errors"
)

// Synthesize requests an image for prompt, optionally styled after
// reference (PNG). A response without image data is an
// [errs.ErrCodeGeneration] error.
func Synthesize(ctx context.Context, gen Generator, prompt string, reference []byte) ([]byte, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, "", errs.New(errs.ErrCodeInvalidInput, "empty generative prompt")
	}

	text := "Generate a seamless background fill: " + prompt
	if len(reference) > 0 {
		text += "\nMatch the colour palette, lighting and texture of the attached reference."
	}
	resp, err := gen.Generate(ctx, Request{
		Prompt:        text,
		Reference:     reference,
		ReferenceMIME: "image/png",
		WantImage:     true,
	})
	if err != nil {
		return nil, "", err
	}
	if len(resp.Image) == 0 {
		return nil, "", errs.New(errs.ErrCodeGeneration, "model returned no image for %q", prompt)
	}
	mime := resp.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return resp.Image, mime, nil
}
