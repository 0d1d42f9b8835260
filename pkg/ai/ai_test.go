package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/design"
	errs "github.com/matzehuels/recompose/pkg/errors"
)

func fixedText(text string) (Generator, *[]Request) {
	var seen []Request
	return GeneratorFunc(func(_ context.Context, req Request) (Response, error) {
		seen = append(seen, req)
		return Response{Text: text}, nil
	}), &seen
}

func analysisInput() AnalysisInput {
	return AnalysisInput{
		Source: design.Container{Name: "post", Bounds: design.Rect{W: 1080, H: 1080}},
		Target: design.Container{Name: "story", Bounds: design.Rect{X: 1200, W: 1080, H: 1920}},
		Layers: []design.Layer{
			{ID: "0", Name: "logo", Kind: design.KindLeaf, Coords: design.Rect{X: 40, Y: 40, W: 200, H: 100}},
			{ID: "1", Name: "group", Kind: design.KindGroup, Children: []design.Layer{
				{ID: "1.0", Name: "headline", Kind: design.KindLeaf, Coords: design.Rect{X: 100, Y: 500, W: 800, H: 120}},
			}},
		},
	}
}

func TestAnalyzeLayout(t *testing.T) {
	gen, seen := fixedText("```json\n" + `{
		"method": "HYBRID",
		"suggestedScale": 1.2,
		"anchor": "SIDEWAYS",
		"generativePrompt": "  extend the sky  ",
		"reasoning": "taller target",
		"overrides": [
			{"layerId": "1.0", "xOffset": 10, "yOffset": 900, "individualScale": 0},
			{"layerId": "9.9", "xOffset": 1, "yOffset": 1, "individualScale": 2}
		]
	}` + "\n```")

	in := analysisInput()
	in.Knowledge = &design.KnowledgeContext{Rules: []string{"Logo needs clear space."}}
	in.Instruction = "keep the logo top left"

	s, err := AnalyzeLayout(context.Background(), gen, in)
	if err != nil {
		t.Fatalf("AnalyzeLayout: %v", err)
	}

	want := &design.Strategy{
		Method:           design.MethodHybrid,
		SuggestedScale:   1.2,
		Anchor:           design.AnchorCenter,
		GenerativePrompt: "extend the sky",
		Reasoning:        "taller target",
		Overrides:        []design.Override{{LayerID: "1.0", XOffset: 10, YOffset: 900, IndividualScale: 1}},
		IsExplicitIntent: true,
		KnowledgeApplied: true,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("strategy mismatch (-want +got):\n%s", diff)
	}

	if len(*seen) != 1 {
		t.Fatalf("calls = %d, want 1", len(*seen))
	}
	req := (*seen)[0]
	if req.Schema == nil || req.WantImage {
		t.Errorf("request should be schema-constrained text, got schema=%v image=%v", req.Schema, req.WantImage)
	}
	for _, frag := range []string{"Logo needs clear space.", "keep the logo top left", `"headline"`} {
		if !strings.Contains(req.Prompt, frag) {
			t.Errorf("prompt missing %q", frag)
		}
	}
}

func TestAnalyzeLayoutMutedKnowledge(t *testing.T) {
	gen, seen := fixedText(`{"method":"GEOMETRIC","suggestedScale":-1,"anchor":"TOP","generativePrompt":"x","reasoning":"r"}`)
	in := analysisInput()
	in.Knowledge = &design.KnowledgeContext{Rules: []string{"secret rule"}}
	in.KnowledgeMuted = true

	s, err := AnalyzeLayout(context.Background(), gen, in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains((*seen)[0].Prompt, "secret rule") {
		t.Error("muted knowledge leaked into prompt")
	}
	if s.KnowledgeApplied || !s.KnowledgeMuted {
		t.Errorf("knowledge flags = applied %v muted %v", s.KnowledgeApplied, s.KnowledgeMuted)
	}
	if s.SuggestedScale != 0 || s.GenerativePrompt != "" || s.Anchor != design.AnchorTop {
		t.Errorf("sanitised = %+v", s)
	}
}

func TestAnalyzeLayoutErrors(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		gen, _ := fixedText("{}")
		in := analysisInput()
		in.Target = design.Container{}
		_, err := AnalyzeLayout(context.Background(), gen, in)
		if !errs.Is(err, errs.ErrCodeNotReady) {
			t.Errorf("err = %v, want NOT_READY", err)
		}
	})
	t.Run("bad json", func(t *testing.T) {
		gen, _ := fixedText("not json")
		_, err := AnalyzeLayout(context.Background(), gen, analysisInput())
		if !errs.Is(err, errs.ErrCodeGeneration) {
			t.Errorf("err = %v, want GENERATION_FAILED", err)
		}
	})
	t.Run("generator error", func(t *testing.T) {
		boom := errors.New("boom")
		gen := GeneratorFunc(func(context.Context, Request) (Response, error) { return Response{}, boom })
		_, err := AnalyzeLayout(context.Background(), gen, analysisInput())
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})
}

func TestReviewLayout(t *testing.T) {
	gen, _ := fixedText(`{"score": 14, "issues": ["logo cramped"], "suggestions": [
		{"layerId": "0", "xOffset": 20, "yOffset": 20, "individualScale": 1.5},
		{"layerId": "ghost", "xOffset": 0, "yOffset": 0, "individualScale": 1}
	]}`)
	in := ReviewInput{
		Target:  design.Container{Name: "story", Bounds: design.Rect{W: 100, H: 200}},
		Layers:  []design.TransformedLayer{{ID: "0", Name: "logo"}},
		Preview: []byte{0x89, 'P', 'N', 'G'},
	}
	r, err := ReviewLayout(context.Background(), gen, in)
	if err != nil {
		t.Fatal(err)
	}
	want := &Review{
		Score:       10,
		Issues:      []string{"logo cramped"},
		Suggestions: []design.Override{{LayerID: "0", XOffset: 20, YOffset: 20, IndividualScale: 1.5}},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("review mismatch (-want +got):\n%s", diff)
	}

	in.Preview = nil
	if _, err := ReviewLayout(context.Background(), gen, in); !errs.Is(err, errs.ErrCodeNotReady) {
		t.Errorf("no preview: err = %v", err)
	}
}

func TestSynthesize(t *testing.T) {
	img := []byte{1, 2, 3}
	var got Request
	gen := GeneratorFunc(func(_ context.Context, req Request) (Response, error) {
		got = req
		return Response{Image: img}, nil
	})

	data, mime, err := Synthesize(context.Background(), gen, " sunset ", []byte{9})
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(data, img) || mime != "image/png" {
		t.Errorf("got %v %q", data, mime)
	}
	if !got.WantImage || !strings.Contains(got.Prompt, "sunset") || !strings.Contains(got.Prompt, "reference") {
		t.Errorf("request = %+v", got)
	}

	textOnly, _ := fixedText("sorry")
	if _, _, err := Synthesize(context.Background(), textOnly, "sunset", nil); !errs.Is(err, errs.ErrCodeGeneration) {
		t.Errorf("no image: err = %v", err)
	}
	if _, _, err := Synthesize(context.Background(), textOnly, "  ", nil); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("empty prompt: err = %v", err)
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		err       error
		code      errs.Code
		retryable bool
	}{
		{"rate limited", genai.APIError{Code: 429}, errs.ErrCodeRateLimited, true},
		{"unavailable", genai.APIError{Code: 503}, errs.ErrCodeNetwork, true},
		{"forbidden", genai.APIError{Code: 403}, errs.ErrCodeCredentials, false},
		{"bad request", genai.APIError{Code: 400}, errs.ErrCodeGeneration, false},
		{"plain", errors.New("eof"), errs.ErrCodeGeneration, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(ctx, tt.err)
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("code = %v, want %v", got, tt.code)
			}
			if got := cache.IsRetryable(err); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}

	expired, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	<-expired.Done()
	if err := classify(expired, errors.New("late")); !errs.Is(err, errs.ErrCodeTimeout) || cache.IsRetryable(err) {
		t.Errorf("deadline: err = %v", err)
	}
}

func TestNewGeminiClientMissingKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	_, err := NewGeminiClient(context.Background(), Options{})
	if !errs.Is(err, errs.ErrCodeCredentials) {
		t.Errorf("err = %v, want MISSING_CREDENTIALS", err)
	}
}
