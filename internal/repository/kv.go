package repository

import "context"

// Record is a stored blob and the version it was written at. Versions
// start at 1 and grow by one on every successful Put.
type Record struct {
	Data    []byte
	Version uint64
}

// KV is a keyed-record store with optimistic concurrency.
//
// Put writes data under key only if the currently stored version equals
// expected; expected == 0 means "the key must not exist yet". On success
// it returns the new version (expected+1). On a mismatch it returns
// ErrVersionMismatch and leaves the record untouched.
type KV interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error)
	Close() error
}
