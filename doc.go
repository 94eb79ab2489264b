// Package strata provides a typed, multi-tier content cache: a hot
// in-memory tier with cost-bounded LRU eviction, a warm on-disk tier
// bounded by bytes and pruned by access time, and an optional cold remote
// record store shared across a user's devices.
//
// Payload conversion is delegated to a [Codec]; keys are any comparable
// type with a stable printable form. Reads fall through the tiers in order
// and promote hits upward. Concurrent async misses for the same key
// coalesce onto a single fetch, so a miss storm costs one round trip.
//
// # Quick Start
//
// Cache raw bytes in memory and on disk:
//
//	cache, err := strata.New[string, []byte](strata.BytesCodec{}, strata.StringKey,
//	    strata.WithLocation("/var/cache/thumbs"),
//	    strata.WithMemoryLimit(64<<20),
//	)
//	if err != nil {
//	    return err
//	}
//	cache.Set("avatar:42", data)
//	data, ok := cache.Get("avatar:42", strata.Freshness{}.MaxAge(time.Hour))
//
// Fill misses from an origin, with stampede protection:
//
//	cache.SetFetcher(func(ctx context.Context, key string) ([]byte, bool, error) {
//	    return origin.Load(ctx, key)
//	})
//	data, ok, err := cache.GetAsync(ctx, "avatar:42", strata.Freshness{})
//
// # Remote Tier
//
// The remote tier stores one record per key in an abstract record store
// (see [remote.Store]); payloads below the configured asset limit are
// written inline, larger ones as assets. Remote writes are best-effort and
// asynchronous, and a misconfigured remote never breaks local caching. The
// miniostore subpackage adapts any S3-compatible endpoint.
package strata
