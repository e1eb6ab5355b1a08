package blocks

import (
	"bytes"
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Store with an LRU cache of recently accessed blocks.
// Blocks are immutable, so cached values never go stale; removal through a
// Remover evicts the cached copy.
type Cached struct {
	Store
	cache *lru.Cache[string, []byte]
}

var _ Store = &Cached{}

// NewCached wraps the store with a cache of the given size.
func NewCached(s Store, size int) (*Cached, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create block cache: %w", err)
	}
	return &Cached{Store: s, cache: cache}, nil
}

// Get implements Store.
func (c *Cached) Get(ctx context.Context, h string) ([]byte, error) {
	if b, ok := c.cache.Get(h); ok {
		return bytes.Clone(b), nil
	}
	b, err := c.Store.Get(ctx, h)
	if err != nil {
		return nil, err
	}
	c.cache.Add(h, bytes.Clone(b))
	return b, nil
}

// Put implements Store.
func (c *Cached) Put(ctx context.Context, data []byte) (string, error) {
	h, err := c.Store.Put(ctx, data)
	if err != nil {
		return "", err
	}
	c.cache.Add(h, bytes.Clone(data))
	return h, nil
}

// Has implements Store.
func (c *Cached) Has(ctx context.Context, h string) (bool, error) {
	if c.cache.Contains(h) {
		return true, nil
	}
	return c.Store.Has(ctx, h)
}

// Remove removes the block from the underlying store if it supports removal.
func (c *Cached) Remove(ctx context.Context, h string) error {
	c.cache.Remove(h)
	if r, ok := c.Store.(Remover); ok {
		return r.Remove(ctx, h)
	}
	return nil
}
