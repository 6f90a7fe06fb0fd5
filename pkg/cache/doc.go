// Package cache stores upstream catalog list responses in Redis.
//
// Entries are keyed by the upstream window (resource, limit, offset). The
// upstream list is assumed to be idempotent for identical windows, so a cached
// body can be served until it expires. Stale entries that carry an ETag or a
// Last-Modified stamp are revalidated with a conditional request instead of a
// full fetch.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	key := cache.Key{Resource: "pokemon", Limit: 50, Offset: 150}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from upstream, then:
//		entry, _ = manager.EntryFromResponse(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total
//   - catalog_cache_misses_total
//   - catalog_cache_stored_bytes
//   - catalog_cache_conditional_requests_total
//   - catalog_cache_not_modified_total
//   - catalog_cache_errors_total{operation}
package cache
