package contentstore

import (
	"context"
	"sync"

	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/domain"
)

type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[domain.CodeHash][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[domain.CodeHash][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, code []byte) (domain.CodeHash, error) {
	h := codehash.HashOf(code)
	cp := make([]byte, len(code))
	copy(cp, code)

	s.mu.Lock()
	s.blobs[h] = cp
	s.mu.Unlock()
	return h, nil
}

func (s *MemoryStore) Fetch(ctx context.Context, hash domain.CodeHash) ([]byte, error) {
	s.mu.RLock()
	blob, ok := s.blobs[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemoryStore) Exists(ctx context.Context, hash domain.CodeHash) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[hash]
	s.mu.RUnlock()
	return ok, nil
}
