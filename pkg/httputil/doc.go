// Package httputil fetches remote resources referenced by payloads.
//
// Preview URLs and style references are usually inline data URLs, but a
// project may point them at an http(s) location instead. [Client] reads such
// URLs with the engine's retry policy and stores the bodies in a
// [cache.Cache] so repeated exports do not hit the network again.
//
// # Usage
//
//	client := httputil.NewClient(c, keyer, cache.TTLAsset)
//	data, err := client.Get(ctx, "https://cdn.example.com/hero.png")
//
// Transient failures (transport errors, 5xx and 429 responses) are retried
// with [cache.DefaultBackoff]. A 404 maps to [cache.ErrNotFound]. Bodies
// larger than [Client.MaxBytes] are rejected.
package httputil
