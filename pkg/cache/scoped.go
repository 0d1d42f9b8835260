package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects or
// tenants can share one cache backend without seeing each other's entries.
//
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "project:summer-campaign:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// the [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// StrategyKey implements [Keyer].
func (k *ScopedKeyer) StrategyKey(inputHash string, opts StrategyKeyOpts) string {
	return k.prefix + k.inner.StrategyKey(inputHash, opts)
}

// AssetKey implements [Keyer].
func (k *ScopedKeyer) AssetKey(prompt string, opts AssetKeyOpts) string {
	return k.prefix + k.inner.AssetKey(prompt, opts)
}

// DocumentKey implements [Keyer].
func (k *ScopedKeyer) DocumentKey(contentHash string) string {
	return k.prefix + k.inner.DocumentKey(contentHash)
}

// RemoteKey implements [Keyer].
func (k *ScopedKeyer) RemoteKey(url string) string {
	return k.prefix + k.inner.RemoteKey(url)
}
