// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline stages, reconciliation decisions,
// generation requests and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [LogHooks] is a ready-made implementation that writes every event to a
// charmbracelet logger at debug level; the CLI registers it under --verbose.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetReconcileHooks(&myReconcileHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLoadStart(ctx, docID)
//	// ... decode ...
//	observability.Pipeline().OnLoadComplete(ctx, docID, containers, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the recompose pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, docID string)
	OnLoadComplete(ctx context.Context, docID string, containers int, duration time.Duration, err error)

	// Transform events
	OnTransform(ctx context.Context, producer, slot string, layers int, scale float64)

	// Assemble events
	OnAssembleStart(ctx context.Context, slots int)
	OnAssembleComplete(ctx context.Context, slots, dropped int, duration time.Duration, err error)
}

// =============================================================================
// Reconcile Hooks
// =============================================================================

// ReconcileHooks receives merge decisions from the reconciliation store.
type ReconcileHooks interface {
	// OnCommit records a payload change that was stored and broadcast.
	OnCommit(producer, slot string, version uint64)

	// OnUnchanged records a merge whose result equalled the stored payload.
	OnUnchanged(producer, slot string)

	// OnReject records a stale candidate that was discarded.
	OnReject(producer, slot string, candidateToken, currentToken int64)

	// OnRemove records a producer being purged.
	OnRemove(producer string, entries int)
}

// =============================================================================
// Generation Hooks
// =============================================================================

// GenerationHooks receives events about calls to the generative service.
type GenerationHooks interface {
	// OnDispatch records a request leaving for the generative service.
	OnDispatch(ctx context.Context, kind, producer, slot string, token int64)

	// OnComplete records the outcome of a request. stale is true when the
	// result was superseded by a later dispatch and discarded.
	OnComplete(ctx context.Context, kind, producer, slot string, token int64, duration time.Duration, stale bool, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnTransform(context.Context, string, string, int, float64)          {}
func (NoopPipelineHooks) OnAssembleStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnAssembleComplete(context.Context, int, int, time.Duration, error) {}

// NoopReconcileHooks is a no-op implementation of ReconcileHooks.
type NoopReconcileHooks struct{}

func (NoopReconcileHooks) OnCommit(string, string, uint64)       {}
func (NoopReconcileHooks) OnUnchanged(string, string)            {}
func (NoopReconcileHooks) OnReject(string, string, int64, int64) {}
func (NoopReconcileHooks) OnRemove(string, int)                  {}

// NoopGenerationHooks is a no-op implementation of GenerationHooks.
type NoopGenerationHooks struct{}

func (NoopGenerationHooks) OnDispatch(context.Context, string, string, string, int64) {}
func (NoopGenerationHooks) OnComplete(context.Context, string, string, string, int64, time.Duration, bool, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	reconcileHooks  ReconcileHooks  = NoopReconcileHooks{}
	generationHooks GenerationHooks = NoopGenerationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetReconcileHooks registers custom reconciliation hooks. nil is ignored.
func SetReconcileHooks(h ReconcileHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		reconcileHooks = h
	}
}

// SetGenerationHooks registers custom generation hooks. nil is ignored.
func SetGenerationHooks(h GenerationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Reconcile returns the registered reconciliation hooks.
func Reconcile() ReconcileHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return reconcileHooks
}

// Generation returns the registered generation hooks.
func Generation() GenerationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	reconcileHooks = NoopReconcileHooks{}
	generationHooks = NoopGenerationHooks{}
	cacheHooks = NoopCacheHooks{}
}
