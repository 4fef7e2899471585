package blobstore

import (
	"context"
	"sync"
)

// MemoryProvider keeps every store in process memory.
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: make(map[string]*MemoryStore)}
}

// Store returns the named store, creating it on first use.
func (p *MemoryProvider) Store(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stores[name]
	if !ok {
		s = NewMemoryStore()
		p.stores[name] = s
	}
	return s, nil
}

// Close is a no-op.
func (p *MemoryProvider) Close() error { return nil }

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Blob{Key: key, Data: append([]byte(nil), b.Data...), Metadata: copyMeta(b.Metadata)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = Blob{Key: key, Data: append([]byte(nil), data...), Metadata: copyMeta(meta)}
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}
