// Package pipeline wires the recompose engine together.
//
// A [Runner] owns the long-lived state of an editing session: decoded design
// documents, the reconciliation store, per-node mapping state and the
// generation sequencer. CLI and HTTP API drive the same Runner so both entry
// points share one data flow:
//
//  1. Load: decode a layered document and extract its template containers
//  2. Resolve: find the design group a source container refers to
//  3. Transform: project the group onto a target container
//  4. Reconcile: merge the result into the slot's stored payload
//  5. Assemble: build the output document from every bound slot
//
// Generation (layout analysis, asset synthesis, review) runs beside this
// flow. Every dispatch takes a token from the sequencer and results that
// come back after a newer dispatch are discarded.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Options{}, nil, nil, logger)
//	runner.Generator = gemini
//	defer runner.Close()
//
//	if _, err := runner.LoadDocument(ctx, "source", src); err != nil {
//	    return err
//	}
//	if _, err := runner.LoadDocument(ctx, "target", dst); err != nil {
//	    return err
//	}
//	runner.Configure("remap-1", 0, pipeline.Mapping{
//	    SourceDoc: "source", SourceContainer: "HERO",
//	    TargetDoc: "target", TargetContainer: "HERO",
//	})
//	payload, _, err := runner.Recompute(ctx, "remap-1", 0)
package pipeline

import (
	"strconv"
	"time"

	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/reconcile"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 90 * time.Second

	// DefaultTextModel and DefaultImageModel name the models recorded in
	// cache keys when the generator does not report its own.
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// ErrSuperseded is returned when a generation result arrives after a newer
// dispatch for the same slot. The result is discarded.
var ErrSuperseded = errors.New(errors.ErrCodeNotReady, "superseded by a newer request")

// =============================================================================
// Options
// =============================================================================

// Options configures a [Runner].
type Options struct {
	Containers container.Options `json:"containers"`
	Debounce   time.Duration     `json:"debounce,omitempty"`
	Timeout    time.Duration     `json:"timeout,omitempty"`
	TextModel  string            `json:"text_model,omitempty"`
	ImageModel string            `json:"image_model,omitempty"`

	// Refresh bypasses cached strategies and assets.
	Refresh bool `json:"refresh,omitempty"`
	// CacheTTL overrides the per-kind cache expiry when positive.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

func (o Options) ttl(def time.Duration) time.Duration {
	if o.CacheTTL > 0 {
		return o.CacheTTL
	}
	return def
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = reconcile.DefaultDebounce
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.TextModel == "" {
		o.TextModel = DefaultTextModel
	}
	if o.ImageModel == "" {
		o.ImageModel = DefaultImageModel
	}
}

// =============================================================================
// Mapping - per-instance remapper state
// =============================================================================

// Mapping is the state of one remapper instance: which source container is
// projected onto which target container, and the user's generation choices.
type Mapping struct {
	SourceDoc       string `json:"sourceDoc"`
	SourceContainer string `json:"sourceContainer"` // cleaned container name
	TargetDoc       string `json:"targetDoc"`
	TargetContainer string `json:"targetContainer"` // container id or cleaned name

	Strategy          *design.Strategy `json:"strategy,omitempty"`
	ConfirmedPrompt   string           `json:"confirmedPrompt,omitempty"`
	GenerationAllowed *bool            `json:"generationAllowed,omitempty"`
	Instruction       string           `json:"instruction,omitempty"`

	// Knowledge is the producer id of the knowledge node feeding this
	// instance, if any.
	Knowledge      string `json:"knowledge,omitempty"`
	KnowledgeMuted bool   `json:"knowledgeMuted,omitempty"`
}

// prompt returns the prompt synthesis should use.
func (m Mapping) prompt() string {
	if m.ConfirmedPrompt != "" {
		return m.ConfirmedPrompt
	}
	if m.Strategy != nil {
		return m.Strategy.GenerativePrompt
	}
	return ""
}

// settledStatus is the status a slot returns to once nothing is failing:
// awaiting confirmation while the strategy's prompt differs from the
// confirmed one and generation is allowed, success otherwise.
func (m Mapping) settledStatus() design.Status {
	if m.GenerationAllowed != nil && !*m.GenerationAllowed {
		return design.StatusSuccess
	}
	if m.Strategy != nil && m.Strategy.GenerativePrompt != "" && m.Strategy.GenerativePrompt != m.ConfirmedPrompt {
		return design.StatusAwaitingConfirmation
	}
	return design.StatusSuccess
}

// SlotName returns the output slot name of remapper instance index.
func SlotName(index int) string {
	return "out-" + strconv.Itoa(index)
}

// SlotKey returns the store key of remapper instance index.
func SlotKey(producer string, index int) reconcile.Key {
	return reconcile.Key{Producer: producer, Slot: SlotName(index)}
}

// ParseSlot returns the instance index encoded in a slot name.
func ParseSlot(slot string) (int, error) {
	const prefix = "out-"
	if len(slot) <= len(prefix) || slot[:len(prefix)] != prefix {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid slot %q", slot)
	}
	i, err := strconv.Atoi(slot[len(prefix):])
	if err != nil || i < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid slot %q", slot)
	}
	return i, nil
}

func analysisKey(key reconcile.Key) reconcile.Key {
	return reconcile.Key{Producer: key.Producer, Slot: key.Slot + "#analysis"}
}
