package persistence

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by backends that were opened without a
// connection.
var ErrNotConfigured = errors.New("store not configured")

// Store is a synchronous string key-value store. Writes overwrite the whole
// value; there are no transactions.
type Store interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks a store when it supports it.
func Ping(ctx context.Context, store Store) error {
	if store == nil {
		return ErrNotConfigured
	}
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
