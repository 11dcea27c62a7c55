// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package resultcache memoizes IRV results per (election, category).

The cache wraps a compute function instead of the tabulator itself, so the
tabulator stays a pure function:

	cache, err := resultcache.New(cfg.ResultCacheSize, handlers.TabulationLoader(db))
	result, err := cache.Get(ctx, resultcache.Key{ElectionID: id, Category: "main"})

Concurrent misses for one key run a single computation (singleflight).
Ballot writers call Invalidate after committing; a computation that was
already running when the key was invalidated does not populate the cache.
*/
package resultcache
