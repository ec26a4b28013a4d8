package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Queries layers request de-duplication and tag invalidation over a Backend.
// Each tag carries a generation; results fetched under an older generation
// are returned to their caller but never written back to the cache.
type Queries struct {
	backend Backend
	sfg     singleflight.Group // Prevents duplicate in-flight fetches
	logger  *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

func NewQueries(backend Backend, logger *slog.Logger) *Queries {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queries{
		backend: backend,
		logger:  logger,
		gens:    make(map[string]uint64),
	}
}

// Fetch returns the cached value of key or loads it with fetch.
func Fetch[T any](ctx context.Context, q *Queries, key string, tags []string, fetch func(context.Context) (T, error)) (T, error) {
	gen := q.generation(tags)
	flightKey := fmt.Sprintf("%s#%d", key, gen)

	v, err, _ := q.sfg.Do(flightKey, func() (interface{}, error) {
		var cached T
		data, err := q.backend.Get(ctx, key)
		if err == nil {
			if errDecode := json.Unmarshal(data, &cached); errDecode == nil {
				return cached, nil
			}
			q.logger.Warn("cache entry undecodable, refetching", "key", key)
		} else if !errors.Is(err, ErrCacheMiss) {
			q.logger.Warn("cache get error", "key", key, "error", err) // log cache error but continue
		}

		fresh, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if q.generation(tags) == gen {
			q.store(ctx, key, fresh, tags)
			if q.generation(tags) != gen {
				_ = q.backend.Delete(ctx, key)
			}
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every entry carrying tag.
func (q *Queries) Invalidate(ctx context.Context, tag string) {
	q.mu.Lock()
	q.gens[tag]++
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := q.backend.InvalidateTag(ctx, tag); err != nil {
		q.logger.Warn("cache invalidate error", "tag", tag, "error", err)
	}
}

func (q *Queries) generation(tags []string) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	var sum uint64
	for _, t := range tags {
		sum += q.gens[t]
	}
	return sum
}

func (q *Queries) store(ctx context.Context, key string, value any, tags []string) {
	data, err := json.Marshal(value)
	if err != nil {
		q.logger.Warn("cache marshal error", "key", key, "error", err)
		return
	}
	if err := q.backend.Set(ctx, key, data, tags...); err != nil {
		q.logger.Warn("cache set error", "key", key, "error", err)
	}
}
