// Package cache provides a Redis-backed TTL cache for storefront list
// responses.
//
// Product and variant records are immutable snapshots on the wire, so a
// successful list page can be reused for a short window without any
// validator handshake. Entries are keyed on the endpoint path plus the full
// sorted query string and expire via Redis TTL; there is no invalidation
// protocol beyond expiry.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.Key{
//		Endpoint: "products",
//		Query:    url.Values{"limit": []string{"20"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the store, then manager.Set
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - storefront_cache_hits_total{layer="redis"} - Cache hits
//   - storefront_cache_misses_total - Cache misses
//   - storefront_cache_size_bytes{layer="redis"} - Cache size
//   - storefront_cache_errors_total{operation} - Cache operation errors
package cache
