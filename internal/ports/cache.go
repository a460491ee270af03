package ports

import (
	"context"
	"time"
)

// Cache is a small key-value store with expiry, used for capture dedup
// keys. A ttl <= 0 means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfAbsent stores value unless a live entry exists. It reports
	// whether the value was stored.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
