// Package cache provides byte-level caching for expensive pipeline stages.
//
// The engine caches two kinds of results:
//
//   - Layout strategies returned by AI analysis, keyed by a hash of everything
//     the analysis saw (containers, layer inventory, knowledge rules).
//   - Generated image assets, keyed by prompt and style reference.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// API server, and [NullCache] when caching is disabled. Keys are produced by
// a [Keyer] so that deployments can namespace them ([ScopedKeyer]).
//
// The package also hosts the content hashing the reconciliation store uses to
// detect unchanged payloads ([Hash], [HashJSON]) and the retry helper used for
// generation calls ([RetryWithBackoff]).
package cache

import (
	"context"
	"time"
)

// Default TTLs per cached artifact.
const (
	TTLStrategy = 7 * 24 * time.Hour
	TTLAsset    = 30 * 24 * time.Hour
	TTLDocument = 24 * time.Hour
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// Keyer builds cache keys.
type Keyer interface {
	// StrategyKey identifies an analysis result by the hash of its inputs.
	StrategyKey(inputHash string, opts StrategyKeyOpts) string
	// AssetKey identifies a generated image.
	AssetKey(prompt string, opts AssetKeyOpts) string
	// DocumentKey identifies a parsed document by content hash.
	DocumentKey(contentHash string) string
	// RemoteKey identifies a fetched remote resource by URL.
	RemoteKey(url string) string
}

// StrategyKeyOpts are the non-input parameters that change an analysis.
type StrategyKeyOpts struct {
	Model          string `json:"model"`
	KnowledgeMuted bool   `json:"knowledge_muted"`
}

// AssetKeyOpts are the parameters that change a generated image.
type AssetKeyOpts struct {
	Model         string `json:"model"`
	ReferenceHash string `json:"reference_hash"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default [Keyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// StrategyKey implements [Keyer].
func (DefaultKeyer) StrategyKey(inputHash string, opts StrategyKeyOpts) string {
	return hashKey("strategy", inputHash, opts)
}

// AssetKey implements [Keyer].
func (DefaultKeyer) AssetKey(prompt string, opts AssetKeyOpts) string {
	return hashKey("asset", prompt, opts)
}

// DocumentKey implements [Keyer].
func (DefaultKeyer) DocumentKey(contentHash string) string {
	return "document:" + contentHash
}

// RemoteKey implements [Keyer].
func (DefaultKeyer) RemoteKey(url string) string {
	return "remote:" + Hash([]byte(url))
}

var _ Keyer = DefaultKeyer{}
