package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/recompose/pkg/ai"
	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/history"
	"github.com/matzehuels/recompose/pkg/httputil"
	"github.com/matzehuels/recompose/pkg/knowledge"
	"github.com/matzehuels/recompose/pkg/observability"
	"github.com/matzehuels/recompose/pkg/reconcile"
	"github.com/matzehuels/recompose/pkg/resolve"
)

// Runner holds the state of one editing session. It is safe for concurrent
// use; CLI commands and API handlers share a single Runner.
type Runner struct {
	Codec     document.Codec
	Store     *reconcile.Store
	Sequencer *reconcile.Sequencer
	Debouncer *reconcile.Debouncer

	// Generator serves analysis, synthesis and review. Nil disables them.
	Generator ai.Generator
	// Extractor reads guideline documents for knowledge nodes.
	Extractor knowledge.Extractor
	// History records generation dispatches when set.
	History *history.Ledger
	// Fetcher reads http(s) preview URLs during assembly.
	Fetcher *httputil.Client

	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	Options Options

	mu        sync.RWMutex
	documents map[string]*LoadedDocument
	remappers map[string]*reconcile.Instances[Mapping]
}

// LoadedDocument is a decoded document with its extracted template.
type LoadedDocument struct {
	ID       string
	Document *document.Document
	Template container.Template
	Layers   []design.Layer
	Hash     string
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(opts Options, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	opts.SetDefaults()
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Codec:     document.JSONCodec{},
		Store:     reconcile.NewStore(logger),
		Sequencer: reconcile.NewSequencer(),
		Debouncer: reconcile.NewDebouncer(opts.Debounce),
		Extractor: knowledge.PDFExtractor{Logger: logger},
		Fetcher:   httputil.NewClient(c, keyer, opts.ttl(cache.TTLAsset)),
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		Options:   opts,
		documents: map[string]*LoadedDocument{},
		remappers: map[string]*reconcile.Instances[Mapping]{},
	}
}

// Close stops pending synthesis triggers and releases the cache.
func (r *Runner) Close() error {
	r.Debouncer.Stop()
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// =============================================================================
// Documents
// =============================================================================

// LoadDocument decodes a document and registers it under id, replacing any
// document previously loaded under that id. A malformed document is not
// registered.
func (r *Runner) LoadDocument(ctx context.Context, id string, rd io.Reader) (*LoadedDocument, error) {
	if err := errors.ValidateName(id); err != nil {
		return nil, err
	}
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, id)

	data, err := io.ReadAll(rd)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeDecode, err, "read document %s", id)
		observability.Pipeline().OnLoadComplete(ctx, id, 0, time.Since(start), err)
		return nil, err
	}
	doc, err := r.Codec.Decode(bytes.NewReader(data), document.DecodeOptions{})
	if err != nil {
		observability.Pipeline().OnLoadComplete(ctx, id, 0, time.Since(start), err)
		return nil, err
	}

	ld := &LoadedDocument{
		ID:       id,
		Document: doc,
		Template: container.Extract(doc, r.Options.Containers),
		Layers:   document.Layers(doc),
		Hash:     cache.Hash(data),
	}
	r.mu.Lock()
	r.documents[id] = ld
	r.mu.Unlock()

	r.Logger.Info("loaded document",
		"id", id,
		"size", [2]int{doc.Width, doc.Height},
		"containers", len(ld.Template.Containers))
	observability.Pipeline().OnLoadComplete(ctx, id, len(ld.Template.Containers), time.Since(start), nil)
	return ld, nil
}

// Inspect extracts the template of a document without registering it.
// Templates are cached by content; hit reports whether the cache answered.
func (r *Runner) Inspect(ctx context.Context, data []byte) (tpl container.Template, hit bool, err error) {
	contentHash, err := cache.HashJSON(struct {
		Content string
		Options container.Options
	}{cache.Hash(data), r.Options.Containers})
	if err != nil {
		return container.Template{}, false, err
	}
	key := r.Keyer.DocumentKey(contentHash)

	if !r.Options.Refresh {
		if cached, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			if err := json.Unmarshal(cached, &tpl); err == nil {
				observability.Cache().OnCacheHit(ctx, "document")
				return tpl, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "document")
	}

	doc, err := r.Codec.Decode(bytes.NewReader(data), document.DecodeOptions{SkipPixelData: true, SkipThumbnail: true})
	if err != nil {
		return container.Template{}, false, err
	}
	tpl = container.Extract(doc, r.Options.Containers)

	if out, err := json.Marshal(tpl); err == nil {
		if err := r.Cache.Set(ctx, key, out, r.Options.ttl(cache.TTLDocument)); err == nil {
			observability.Cache().OnCacheSet(ctx, "document", len(out))
		}
	}
	return tpl, false, nil
}

// Document returns the document registered under id.
func (r *Runner) Document(id string) (*LoadedDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[id]
	return d, ok
}

// Documents returns the registered document ids in sorted order.
func (r *Runner) Documents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.documents))
	for id := range r.documents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// UnloadDocument drops a document. Slots reading from it fall back to the
// not-loaded state on their next recompute.
func (r *Runner) UnloadDocument(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.documents[id]
	delete(r.documents, id)
	return ok
}

// Containers returns the template containers of a registered document.
func (r *Runner) Containers(id string) (container.Template, error) {
	d, ok := r.Document(id)
	if !ok {
		return container.Template{}, errors.New(errors.ErrCodeDocumentNotFound, "document %q is not loaded", id)
	}
	return d.Template, nil
}

// Resolve looks up the design group for a container name in a document.
// A document that is not loaded resolves to the data-locked status.
func (r *Runner) Resolve(id, name string) resolve.Result {
	var tree []design.Layer
	if d, ok := r.Document(id); ok {
		tree = d.Layers
	}
	return resolve.Resolve(name, tree)
}

// =============================================================================
// Mappings
// =============================================================================

func (r *Runner) instances(producer string, create bool) *reconcile.Instances[Mapping] {
	if !create {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.remappers[producer]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.remappers[producer]
	if !ok {
		inst = reconcile.NewInstances[Mapping](nil)
		r.remappers[producer] = inst
	}
	return inst
}

// Configure replaces the mapping of a remapper instance. It does not
// recompute; call [Runner.Recompute] afterwards.
func (r *Runner) Configure(producer string, index int, m Mapping) {
	r.instances(producer, true).Set(index, m)
}

// UpdateMapping applies fn to the mapping of a remapper instance and
// returns the result.
func (r *Runner) UpdateMapping(producer string, index int, fn func(Mapping) Mapping) Mapping {
	return r.instances(producer, true).Update(index, fn)
}

// Mapping returns the mapping of a remapper instance.
func (r *Runner) Mapping(producer string, index int) (Mapping, bool) {
	inst := r.instances(producer, false)
	if inst == nil || !inst.Has(index) {
		return Mapping{}, false
	}
	return inst.Get(index), true
}

// Instances returns the configured instance indices of producer.
func (r *Runner) Instances(producer string) []int {
	inst := r.instances(producer, false)
	if inst == nil {
		return nil
	}
	return inst.Indices()
}

func (r *Runner) mustMapping(producer string, index int) (Mapping, error) {
	m, ok := r.Mapping(producer, index)
	if !ok {
		return Mapping{}, errors.New(errors.ErrCodeNotFound, "no mapping for %s", SlotKey(producer, index))
	}
	return m, nil
}

// producers returns the remapper ids in sorted order.
func (r *Runner) producers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.remappers))
	for id := range r.remappers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
