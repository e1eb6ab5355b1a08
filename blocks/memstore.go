package blocks

import (
	"bytes"
	"context"
	"sync"

	"github.com/spacemeshos/go-sharedlog/hash"
)

// MemStore is an in-memory Store.
type MemStore struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

var (
	_ Store   = &MemStore{}
	_ Remover = &MemStore{}
)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blocks: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, h string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, found := s.blocks[h]
	if !found {
		return nil, ErrNotFound
	}
	return bytes.Clone(b), nil
}

// Put implements Store.
func (s *MemStore) Put(_ context.Context, data []byte) (string, error) {
	h := hash.Multihash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.blocks[h]; !found {
		s.blocks[h] = bytes.Clone(data)
	}
	return h, nil
}

// Has implements Store.
func (s *MemStore) Has(_ context.Context, h string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.blocks[h]
	return found, nil
}

// Remove implements Remover.
func (s *MemStore) Remove(_ context.Context, h string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, h)
	return nil
}

// Len returns the number of stored blocks.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
