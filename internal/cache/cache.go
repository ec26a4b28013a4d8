package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Backend stores serialized query results grouped by resource tags.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, tags ...string) error
	Delete(ctx context.Context, key string) error
	InvalidateTag(ctx context.Context, tag string) error
}
