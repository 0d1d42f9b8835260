package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"image"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/ai"
	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/history"
	"github.com/matzehuels/recompose/pkg/knowledge"
	"github.com/matzehuels/recompose/pkg/observability"
	"github.com/matzehuels/recompose/pkg/reconcile"
	"github.com/matzehuels/recompose/pkg/resolve"
)

// =============================================================================
// Analysis
// =============================================================================

// Analyze asks the generator for a layout strategy for an instance, stores
// it on the mapping and recomputes the slot. Strategies are cached by their
// inputs.
func (r *Runner) Analyze(ctx context.Context, producer string, index int) (*design.Strategy, error) {
	if r.Generator == nil {
		return nil, errors.New(errors.ErrCodeNotReady, "no generator configured")
	}
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return nil, err
	}
	key := SlotKey(producer, index)

	in, refURL, err := r.analysisInput(m)
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if inputHash, err := cache.HashJSON(in); err == nil {
		cacheKey = r.Keyer.StrategyKey(inputHash, cache.StrategyKeyOpts{
			Model:          r.Options.TextModel,
			KnowledgeMuted: m.KnowledgeMuted,
		})
	}
	if s, ok := r.cachedStrategy(ctx, cacheKey); ok {
		r.Logger.Debug("strategy cache hit", "slot", key)
		return r.applyStrategy(ctx, producer, index, s)
	}

	token := r.Sequencer.Issue(analysisKey(key))
	d := r.dispatch(ctx, history.KindAnalysis, key, token, in.Instruction)

	callCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	s, err := ai.AnalyzeLayout(callCtx, r.Generator, in)
	cancel()

	if !r.Sequencer.IsCurrent(analysisKey(key), token) {
		d.finish(ctx, true, nil)
		return nil, ErrSuperseded
	}
	d.finish(ctx, false, err)
	if err != nil {
		r.Logger.Warn("analysis failed", "slot", key, "err", err)
		return nil, err
	}

	s.SourceReference = refURL
	r.storeStrategy(ctx, cacheKey, s)
	r.Logger.Info("analyzed layout",
		"slot", key,
		"method", s.Method,
		"scale", s.SuggestedScale,
		"overrides", len(s.Overrides))
	return r.applyStrategy(ctx, producer, index, s)
}

// SetStrategy attaches a strategy to an instance without calling the
// generator, then recomputes the slot.
func (r *Runner) SetStrategy(ctx context.Context, producer string, index int, s *design.Strategy) (*design.Strategy, error) {
	if _, err := r.mustMapping(producer, index); err != nil {
		return nil, err
	}
	if s != nil {
		var layers []design.Layer
		if m, ok := r.Mapping(producer, index); ok {
			if d, ok := r.Document(m.SourceDoc); ok {
				if c := lookupContainer(d.Template, m.SourceContainer); c != nil {
					layers = groupLayers(resolve.Resolve(c.Name, d.Layers).Node)
				}
			}
		}
		ai.Sanitize(s, layers)
	}
	return r.applyStrategy(ctx, producer, index, s)
}

func (r *Runner) applyStrategy(ctx context.Context, producer string, index int, s *design.Strategy) (*design.Strategy, error) {
	r.UpdateMapping(producer, index, func(m Mapping) Mapping {
		m.Strategy = s
		return m
	})
	if _, _, err := r.Recompute(ctx, producer, index); err != nil {
		return nil, err
	}
	return s, nil
}

// analysisInput collects the inputs of an analysis. It also returns the
// source snapshot as a data URL.
func (r *Runner) analysisInput(m Mapping) (ai.AnalysisInput, string, error) {
	srcDoc, ok := r.Document(m.SourceDoc)
	if !ok {
		return ai.AnalysisInput{}, "", errors.New(errors.ErrCodeNotReady, "source document is not loaded")
	}
	dstDoc, ok := r.Document(m.TargetDoc)
	if !ok {
		return ai.AnalysisInput{}, "", errors.New(errors.ErrCodeNotReady, "target document is not loaded")
	}
	src := lookupContainer(srcDoc.Template, m.SourceContainer)
	dst := lookupContainer(dstDoc.Template, m.TargetContainer)
	if src == nil || dst == nil {
		return ai.AnalysisInput{}, "", errors.New(errors.ErrCodeNotReady, "source or target container is not available")
	}
	res := resolve.Resolve(src.Name, srcDoc.Layers)
	if !res.Status.Go() {
		return ai.AnalysisInput{}, "", errors.New(errors.ErrCodeNotReady, "%s", res.Message)
	}

	in := ai.AnalysisInput{
		Source:         *src,
		Target:         *dst,
		Layers:         groupLayers(res.Node),
		Instruction:    m.Instruction,
		KnowledgeMuted: m.KnowledgeMuted,
	}
	if m.Knowledge != "" {
		if kc, ok := r.Store.Knowledge(m.Knowledge); ok {
			in.Knowledge = &kc
		}
	}

	ref, url, err := snapshot(srcDoc.Document, src.Bounds)
	if err != nil {
		r.Logger.Warn("source snapshot failed", "container", src.Name, "err", err)
		return in, "", nil
	}
	in.SourceReference = ref
	return in, url, nil
}

func (r *Runner) cachedStrategy(ctx context.Context, key string) (*design.Strategy, bool) {
	if key == "" || r.Options.Refresh {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "strategy")
		return nil, false
	}
	var s design.Strategy
	if err := json.Unmarshal(data, &s); err != nil {
		observability.Cache().OnCacheMiss(ctx, "strategy")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "strategy")
	return &s, true
}

func (r *Runner) storeStrategy(ctx context.Context, key string, s *design.Strategy) {
	if key == "" {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.Options.ttl(cache.TTLStrategy)); err != nil {
		r.Logger.Debug("strategy cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "strategy", len(data))
}

// =============================================================================
// Synthesis
// =============================================================================

// Synthesize schedules asset synthesis for an instance once triggers have
// been quiet for the debounce delay. Errors of the eventual call are logged.
func (r *Runner) Synthesize(producer string, index int) error {
	if _, err := r.mustMapping(producer, index); err != nil {
		return err
	}
	key := SlotKey(producer, index)
	r.Debouncer.Trigger(key, func() {
		_, err := r.SynthesizeNow(context.Background(), producer, index)
		switch {
		case err == nil:
		case stderrors.Is(err, ErrSuperseded):
			r.Logger.Debug("synthesis superseded", "slot", key)
		default:
			r.Logger.Warn("synthesis failed", "slot", key, "err", err)
		}
	})
	return nil
}

// SynthesizeNow generates the asset for an instance's prompt and stores it
// as an unconfirmed preview. On failure the slot keeps its last preview and
// reports the error. A result that arrives after a newer dispatch is
// discarded with [ErrSuperseded].
func (r *Runner) SynthesizeNow(ctx context.Context, producer string, index int) (design.Payload, error) {
	if r.Generator == nil {
		return design.Payload{}, errors.New(errors.ErrCodeNotReady, "no generator configured")
	}
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return design.Payload{}, err
	}
	prompt := m.prompt()
	if prompt == "" {
		return design.Payload{}, errors.New(errors.ErrCodeInvalidInput, "no generative prompt for %s", SlotKey(producer, index))
	}
	if m.GenerationAllowed != nil && !*m.GenerationAllowed {
		return design.Payload{}, errors.New(errors.ErrCodeNotReady, "generation is disabled for %s", SlotKey(producer, index))
	}
	key := SlotKey(producer, index)
	cur, ok := r.Store.Payload(key)
	if !ok || cur.TargetContainer == nil {
		return design.Payload{}, errors.New(errors.ErrCodeNotReady, "slot %s has no target yet", key)
	}

	token := r.Sequencer.Issue(key)
	r.Store.Patch(key, design.PayloadPatch{IsSynthesizing: design.Bool(true)})

	ref := r.reference(m)
	bounds := cur.TargetContainer.Bounds
	opts := cache.AssetKeyOpts{
		Model:  r.Options.ImageModel,
		Width:  int(math.Round(bounds.W)),
		Height: int(math.Round(bounds.H)),
	}
	if len(ref) > 0 {
		opts.ReferenceHash = cache.Hash(ref)
	}
	assetKey := r.Keyer.AssetKey(prompt, opts)

	url, hit := r.cachedAsset(ctx, assetKey)
	if !hit {
		d := r.dispatch(ctx, history.KindSynthesis, key, token, prompt)
		callCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
		data, mime, err := ai.Synthesize(callCtx, r.Generator, prompt, ref)
		cancel()

		stale := !r.Sequencer.IsCurrent(key, token)
		d.finish(ctx, stale, err)
		if stale {
			return design.Payload{}, ErrSuperseded
		}
		if err != nil {
			status, msg := design.StatusError, errors.UserMessage(err)
			p, _ := r.Store.Patch(key, design.PayloadPatch{
				Status:         &status,
				Error:          &msg,
				IsSynthesizing: design.Bool(false),
			})
			return p, err
		}
		url = document.BytesDataURL(data, mime)
		r.storeAsset(ctx, assetKey, url)
	} else if !r.Sequencer.IsCurrent(key, token) {
		return design.Payload{}, ErrSuperseded
	}

	if latest, ok := r.Mapping(producer, index); ok {
		m = latest
	}
	status, cleared := m.settledStatus(), ""
	p, outcome := r.Store.Patch(key, design.PayloadPatch{
		Status:         &status,
		Error:          &cleared,
		PreviewURL:     &url,
		GenerationID:   &token,
		IsSynthesizing: design.Bool(false),
		IsTransient:    design.Bool(true),
	})
	if outcome == reconcile.Rejected {
		return p, ErrSuperseded
	}
	r.Logger.Info("synthesized asset", "slot", key, "cached", hit, "token", token)
	return p, nil
}

// reference returns the style reference for synthesis: the source snapshot
// of the strategy, else the first reference image of the knowledge node.
func (r *Runner) reference(m Mapping) []byte {
	if m.Strategy != nil && m.Strategy.SourceReference != "" {
		if data, _, err := document.ParseDataURL(m.Strategy.SourceReference); err == nil {
			return data
		}
	}
	if m.Knowledge != "" && !m.KnowledgeMuted {
		if kc, ok := r.Store.Knowledge(m.Knowledge); ok && len(kc.References) > 0 {
			if data, _, err := document.ParseDataURL(kc.References[0].DataURL); err == nil {
				return data
			}
		}
	}
	return nil
}

func (r *Runner) cachedAsset(ctx context.Context, key string) (string, bool) {
	if r.Options.Refresh {
		return "", false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit || len(data) == 0 {
		observability.Cache().OnCacheMiss(ctx, "asset")
		return "", false
	}
	observability.Cache().OnCacheHit(ctx, "asset")
	return string(data), true
}

func (r *Runner) storeAsset(ctx context.Context, key, url string) {
	if err := r.Cache.Set(ctx, key, []byte(url), r.Options.ttl(cache.TTLAsset)); err != nil {
		r.Logger.Debug("asset cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "asset", len(url))
}

// Confirm accepts the generative prompt of an instance (the strategy's
// prompt when prompt is empty) and marks its preview as confirmed. Only
// confirmed assets reach exported documents.
func (r *Runner) Confirm(ctx context.Context, producer string, index int, prompt string) (design.Payload, error) {
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return design.Payload{}, err
	}
	if prompt == "" && m.Strategy != nil {
		prompt = m.Strategy.GenerativePrompt
	}
	if prompt == "" {
		return design.Payload{}, errors.New(errors.ErrCodeInvalidInput, "nothing to confirm for %s", SlotKey(producer, index))
	}
	r.UpdateMapping(producer, index, func(m Mapping) Mapping {
		m.ConfirmedPrompt = prompt
		return m
	})
	if _, _, err := r.Recompute(ctx, producer, index); err != nil {
		return design.Payload{}, err
	}
	p, _ := r.Store.Patch(SlotKey(producer, index), design.PayloadPatch{
		IsConfirmed: design.Bool(true),
		IsTransient: design.Bool(false),
	})
	r.Logger.Info("confirmed prompt", "slot", SlotKey(producer, index))
	return p, nil
}

// =============================================================================
// Review
// =============================================================================

// Review renders an instance's slot and asks the generator to critique it.
func (r *Runner) Review(ctx context.Context, producer string, index int) (*ai.Review, error) {
	if r.Generator == nil {
		return nil, errors.New(errors.ErrCodeNotReady, "no generator configured")
	}
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return nil, err
	}
	key := SlotKey(producer, index)
	p, ok := r.Store.Payload(key)
	if !ok || p.TargetContainer == nil || p.Status == design.StatusIdle {
		return nil, errors.New(errors.ErrCodeNotReady, "slot %s has nothing to review", key)
	}
	preview, err := r.renderSlot(ctx, m, p)
	if err != nil {
		return nil, err
	}

	in := ai.ReviewInput{Target: *p.TargetContainer, Layers: p.Layers, Preview: preview}
	if m.Knowledge != "" && !m.KnowledgeMuted {
		if kc, ok := r.Store.Knowledge(m.Knowledge); ok {
			in.Rules = kc.Rules
		}
	}

	reviewKey := reconcile.Key{Producer: key.Producer, Slot: key.Slot + "#review"}
	token := r.Sequencer.Issue(reviewKey)
	d := r.dispatch(ctx, history.KindReview, key, token, "")
	callCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	rev, err := ai.ReviewLayout(callCtx, r.Generator, in)
	cancel()
	d.finish(ctx, false, err)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("reviewed layout", "slot", key, "score", rev.Score, "issues", len(rev.Issues))
	return rev, nil
}

// =============================================================================
// Dispatch bookkeeping
// =============================================================================

type dispatch struct {
	r     *Runner
	kind  history.Kind
	key   reconcile.Key
	token int64
	id    int64
	start time.Time
}

func (r *Runner) dispatch(ctx context.Context, kind history.Kind, key reconcile.Key, token int64, prompt string) *dispatch {
	d := &dispatch{r: r, kind: kind, key: key, token: token, start: time.Now()}
	if r.History != nil {
		id, err := r.History.Dispatch(ctx, kind, key.Producer, key.Slot, token, prompt)
		if err != nil {
			r.Logger.Warn("history write failed", "err", err)
		}
		d.id = id
	}
	observability.Generation().OnDispatch(ctx, string(kind), key.Producer, key.Slot, token)
	r.Logger.Debug("dispatched generation", "kind", kind, "slot", key, "token", token)
	return d
}

func (d *dispatch) finish(ctx context.Context, stale bool, err error) {
	observability.Generation().OnComplete(ctx, string(d.kind), d.key.Producer, d.key.Slot, d.token, time.Since(d.start), stale, err)
	if d.r.History == nil || d.id == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var herr error
	switch {
	case stale:
		herr = d.r.History.MarkStale(ctx, d.id)
	case err != nil:
		herr = d.r.History.Fail(ctx, d.id, err)
	default:
		herr = d.r.History.Complete(ctx, d.id)
	}
	if herr != nil {
		d.r.Logger.Warn("history write failed", "id", d.id, "err", herr)
	}
}

// =============================================================================
// Snapshots
// =============================================================================

// snapshot crops the flattened document to bounds and returns it as PNG
// bytes and as a data URL, downsized for use as a reference.
func snapshot(doc *document.Document, bounds design.Rect) ([]byte, string, error) {
	crop := cropFlat(doc, bounds)
	if crop.Bounds().Empty() {
		return nil, "", errors.New(errors.ErrCodeNotReady, "container lies outside the canvas")
	}
	url, err := knowledge.OptimizeReference(crop)
	if err != nil {
		return nil, "", err
	}
	data, _, err := document.ParseDataURL(url)
	if err != nil {
		return nil, "", err
	}
	return data, url, nil
}

func cropFlat(doc *document.Document, b design.Rect) *image.NRGBA {
	rect := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.Right())), int(math.Ceil(b.Bottom())),
	)
	return imaging.Crop(document.Flatten(doc), rect)
}
