// Package blocks contains content-addressed storage for encoded entries.
//
// Keys are derived from the stored bytes with hash.Multihash, so putting the same
// bytes twice yields the same key and stores them once.
package blocks

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a block is not present in the store.
var ErrNotFound = errors.New("block not found")

// Store is a content-addressed block store.
type Store interface {
	// Get returns the bytes stored under the hash or ErrNotFound.
	Get(ctx context.Context, hash string) ([]byte, error)
	// Put stores data and returns its content address.
	Put(ctx context.Context, data []byte) (string, error)
	// Has reports whether the hash is present.
	Has(ctx context.Context, hash string) (bool, error)
}

// Remover is implemented by stores that support deleting blocks.
type Remover interface {
	Remove(ctx context.Context, hash string) error
}
