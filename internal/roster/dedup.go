package roster

import (
	"context"
	"log"
	"sync"
)

// dedup keeps the first record per key, in input order, and returns the ids
// of every later occurrence. Empty input yields empty output.
func dedup[T any](in []T, key func(T) string, id func(T) string) (canonical []T, duplicateIDs []string) {
	seen := make(map[string]struct{}, len(in))
	for _, rec := range in {
		k := key(rec)
		if _, ok := seen[k]; ok {
			duplicateIDs = append(duplicateIDs, id(rec))
			continue
		}
		seen[k] = struct{}{}
		canonical = append(canonical, rec)
	}
	return canonical, duplicateIDs
}

// purge deletes duplicate ids with bounded concurrency. Failures are counted
// and logged in aggregate, never propagated: the canonical record stays in
// the store either way, so the next read repeats the cleanup.
func (r *Repository) purge(ctx context.Context, collection string, ids []string) {
	if len(ids) == 0 {
		return
	}
	sem := make(chan struct{}, r.deleteWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.store.Delete(ctx, collection, id); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	if failed > 0 {
		log.Printf("dedup %s: %d of %d duplicate deletes failed, will retry on next read", collection, failed, len(ids))
	} else {
		log.Printf("dedup %s: removed %d duplicate record(s)", collection, len(ids))
	}
}
