package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get and Update when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// Store is the namespaced key-value persistence used by all services. Values
// are opaque JSON blobs; keys are "<prefix>:<id>".
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMulti writes all pairs so that readers observe either none or all of
	// them. Backends must map this onto an atomic primitive (MSET, one tx).
	SetMulti(ctx context.Context, pairs map[string][]byte) error
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
	// Update applies fn to the current value of key atomically. fn receives
	// the stored bytes and returns the replacement. Returns ErrNotFound if the
	// key does not exist; concurrent updates must each take effect exactly
	// once.
	Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error
	Close() error
}

// MemoryStore is a mutex-guarded in-process Store, used as the test double and
// the zero-config fallback.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) SetMulti(ctx context.Context, pairs map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.records[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryStore) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	// stable output order; callers re-sort by their own fields anyway
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), m.records[k]...))
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[key]
	if !ok {
		return ErrNotFound
	}
	next, err := fn(append([]byte(nil), cur...))
	if err != nil {
		return err
	}
	m.records[key] = next
	return nil
}

func (m *MemoryStore) Close() error { return nil }
