package pipeline

import (
	"context"
	"io"
	"strings"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/knowledge"
)

// KnowledgeInput is the raw material of a knowledge node.
type KnowledgeInput struct {
	// Text is guideline text typed by the user.
	Text string
	// Document is an optional guideline PDF.
	Document io.ReadSeeker
	// References are style reference images keyed by name.
	References map[string][]byte
}

// RegisterKnowledge distills guideline rules and reference images into a
// knowledge context and publishes it for producer. Reference images that
// fail to decode are skipped.
func (r *Runner) RegisterKnowledge(ctx context.Context, producer string, in KnowledgeInput) (design.KnowledgeContext, error) {
	if err := errors.ValidateName(producer); err != nil {
		return design.KnowledgeContext{}, err
	}
	text := in.Text
	if in.Document != nil {
		if r.Extractor == nil {
			return design.KnowledgeContext{}, errors.New(errors.ErrCodeUnsupported, "no document extractor configured")
		}
		extracted, err := r.Extractor.Extract(ctx, in.Document)
		if err != nil {
			return design.KnowledgeContext{}, err
		}
		text = strings.TrimSpace(text + "\n" + extracted)
	}

	kc, failed := knowledge.Build(text, in.References)
	for _, err := range failed {
		r.Logger.Warn("skipped reference image", "producer", producer, "err", err)
	}
	r.Store.SetKnowledge(producer, kc)
	r.Logger.Info("registered knowledge",
		"producer", producer,
		"rules", len(kc.Rules),
		"references", len(kc.References))
	return kc, nil
}
