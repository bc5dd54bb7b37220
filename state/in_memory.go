package state

import (
	"slices"
	"sync"
)

// InMemoryBackend keeps all state in process memory.
type InMemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	closed  bool
}

var _ Backend = (*InMemoryBackend)(nil)

// NewInMemoryBackend creates an empty InMemoryBackend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		buckets: make(map[string]map[string][]byte),
	}
}

func (b *InMemoryBackend) Put(bucket, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	kv, ok := b.buckets[bucket]
	if !ok {
		kv = make(map[string][]byte)
		b.buckets[bucket] = kv
	}
	kv[key] = slices.Clone(value)
	return nil
}

func (b *InMemoryBackend) Get(bucket, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	v, ok := b.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (b *InMemoryBackend) Keys(bucket string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(b.buckets[bucket]))
	for k := range b.buckets[bucket] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (b *InMemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.buckets = nil
	return nil
}
