// Package cache provides response caching keyed by logical request identity.
//
// A request identity is either a list page (the since-cursor and page size)
// or a detail fetch (the repository identifier). Entries never expire: the
// upstream API serves immutable historical data for already-created
// repositories, so a cached body is treated as permanently valid. This is a
// documented limitation - if an item's detail response changed upstream, the
// stale entry would silently mask the update. Delete the cache root to force
// refetches.
//
// Two stores implement the same interface: FSStore keeps one JSON file per
// identity under a root directory and is the default; RedisStore shares
// entries between cooperating runners.
//
// # Basic Usage
//
//	store, err := cache.NewFSStore("cache")
//	if err != nil {
//		return err
//	}
//
//	key := cache.Key{Kind: cache.KindDetail, RepoID: 28457823}
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrMiss) {
//		// fetch from the API, then:
//		err = store.Put(ctx, key, &cache.Entry{Data: body, StatusCode: 200, FetchedAt: time.Now()})
//	}
package cache
