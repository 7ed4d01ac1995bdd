package repository

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store is the keyed persistent store both ledgers run on.
// Values are JSON documents addressed by composite keys (see keys.go).
type Store interface {
	// Update runs fn in a read-write transaction. All Sets commit together when fn
	// returns nil; nothing is applied when fn returns an error.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Stats returns backend statistics for the admin endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}

// Tx is the view of the store inside one transaction.
type Tx interface {
	// Has reports whether key holds a value.
	Has(ctx context.Context, key string) (bool, error)

	// Get decodes the value at key into dest. It returns false when key is absent.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set encodes value and stores it at key.
	Set(ctx context.Context, key string, value interface{}) error
}
