package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/matzehuels/recompose/pkg/cache"
	errs "github.com/matzehuels/recompose/pkg/errors"
)

// Default model names and limits.
const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultTimeout    = 90 * time.Second

	// APIKeyEnv is read when Options.APIKey is empty.
	APIKeyEnv = "GEMINI_API_KEY"
)

// Options configures a [GeminiClient].
type Options struct {
	APIKey     string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
	Backoff    cache.Backoff
	Logger     *log.Logger
}

// GeminiClient implements [Generator] with the Gemini API.
//
// Text requests go to the text model (with a JSON schema when one is set),
// image requests to the image model. Each call runs under its own timeout and
// transient failures (429, 5xx) are retried with exponential backoff.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	timeout    time.Duration
	backoff    cache.Backoff
	logger     *log.Logger
}

// NewGeminiClient creates a client. A missing API key is reported as
// [errs.ErrCodeCredentials].
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return nil, errs.New(errs.ErrCodeCredentials, "no API key: set %s or ai.api_key", APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeGeneration, err, "create gemini client")
	}

	c := &GeminiClient{
		client:     client,
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		timeout:    opts.Timeout,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
	}
	if c.textModel == "" {
		c.textModel = DefaultTextModel
	}
	if c.imageModel == "" {
		c.imageModel = DefaultImageModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.backoff.Attempts == 0 {
		c.backoff = cache.DefaultBackoff
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c, nil
}

// TextModel returns the model used for text requests.
func (c *GeminiClient) TextModel() string { return c.textModel }

// ImageModel returns the model used for image requests.
func (c *GeminiClient) ImageModel() string { return c.imageModel }

// Generate performs req against the matching model.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	model, config := c.textModel, &genai.GenerateContentConfig{}
	if req.WantImage {
		model = c.imageModel
		config.ResponseModalities = []string{"TEXT", "IMAGE"}
	} else if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}
	contents := []*genai.Content{genai.NewContentFromParts(requestParts(req), genai.RoleUser)}

	var out Response
	start := time.Now()
	err := c.backoff.Retry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(callCtx, model, contents, config)
		if err != nil {
			c.logger.Debug("generate failed", "model", model, "error", err)
			return classify(callCtx, err)
		}
		out = responseFrom(resp)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	c.logger.Debug("generate", "model", model, "image", len(out.Image) > 0, "elapsed", time.Since(start))
	return out, nil
}

func requestParts(req Request) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Reference) > 0 {
		mime := req.ReferenceMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Reference, mime))
	}
	return parts
}

func responseFrom(resp *genai.GenerateContentResponse) Response {
	out := Response{Text: resp.Text()}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			out.Image = p.InlineData.Data
			out.MIMEType = p.InlineData.MIMEType
			break
		}
	}
	return out
}

// classify maps a client error onto the error codes callers act on and marks
// the transient ones retryable.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return errs.Wrap(errs.ErrCodeTimeout, err, "generation timed out")
		}
		return ctxErr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return errs.Wrap(errs.ErrCodeCredentials, err, "model rejected credentials")
		case apiErr.Code == http.StatusTooManyRequests:
			return cache.Retryable(errs.Wrap(errs.ErrCodeRateLimited, err, "model rate limited"))
		case apiErr.Code >= http.StatusInternalServerError:
			return cache.Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "model unavailable"))
		}
	}
	return errs.Wrap(errs.ErrCodeGeneration, err, "generation failed")
}
