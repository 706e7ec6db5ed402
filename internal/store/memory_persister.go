package store

import (
	"context"
	"sync"
)

// MemoryPersister keeps the blob in memory. Used by tests and as the
// fallback when no redis is configured.
type MemoryPersister struct {
	mu   sync.Mutex
	blob []byte

	// FailSaves makes Save return an error, for exercising the
	// best-effort persistence contract.
	FailSaves error
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), m.blob...), nil
}

func (m *MemoryPersister) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.blob = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryPersister) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = nil
	return nil
}

// Corrupt overwrites the stored blob, for fallback tests.
func (m *MemoryPersister) Corrupt(blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append([]byte(nil), blob...)
}
