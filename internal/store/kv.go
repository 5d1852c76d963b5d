package store

import "context"

// KV is a flat byte-valued key-value store.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

var (
	_ KV = (*Store)(nil)
	_ KV = (*RedisStore)(nil)
)
