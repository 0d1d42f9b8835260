package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. It implements all
// hook interfaces of this package.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

// Register installs h for every hook category.
func (h *LogHooks) Register() {
	SetPipelineHooks(h)
	SetReconcileHooks(h)
	SetGenerationHooks(h)
	SetCacheHooks(h)
}

func (h *LogHooks) OnLoadStart(_ context.Context, docID string) {
	h.Logger.Debug("load start", "doc", docID)
}

func (h *LogHooks) OnLoadComplete(_ context.Context, docID string, containers int, d time.Duration, err error) {
	h.Logger.Debug("load complete", "doc", docID, "containers", containers, "duration", d, "err", err)
}

func (h *LogHooks) OnTransform(_ context.Context, producer, slot string, layers int, scale float64) {
	h.Logger.Debug("transform", "producer", producer, "slot", slot, "layers", layers, "scale", scale)
}

func (h *LogHooks) OnAssembleStart(_ context.Context, slots int) {
	h.Logger.Debug("assemble start", "slots", slots)
}

func (h *LogHooks) OnAssembleComplete(_ context.Context, slots, dropped int, d time.Duration, err error) {
	h.Logger.Debug("assemble complete", "slots", slots, "dropped", dropped, "duration", d, "err", err)
}

func (h *LogHooks) OnCommit(producer, slot string, version uint64) {
	h.Logger.Debug("payload committed", "producer", producer, "slot", slot, "version", version)
}

func (h *LogHooks) OnUnchanged(producer, slot string) {
	h.Logger.Debug("payload unchanged", "producer", producer, "slot", slot)
}

func (h *LogHooks) OnReject(producer, slot string, candidate, current int64) {
	h.Logger.Debug("stale payload rejected", "producer", producer, "slot", slot, "token", candidate, "current", current)
}

func (h *LogHooks) OnRemove(producer string, entries int) {
	h.Logger.Debug("producer removed", "producer", producer, "entries", entries)
}

func (h *LogHooks) OnDispatch(_ context.Context, kind, producer, slot string, token int64) {
	h.Logger.Debug("generation dispatched", "kind", kind, "producer", producer, "slot", slot, "token", token)
}

func (h *LogHooks) OnComplete(_ context.Context, kind, producer, slot string, token int64, d time.Duration, stale bool, err error) {
	h.Logger.Debug("generation complete", "kind", kind, "producer", producer, "slot", slot,
		"token", token, "duration", d, "stale", stale, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "size", size)
}

var (
	_ PipelineHooks   = (*LogHooks)(nil)
	_ ReconcileHooks  = (*LogHooks)(nil)
	_ GenerationHooks = (*LogHooks)(nil)
	_ CacheHooks      = (*LogHooks)(nil)
)
