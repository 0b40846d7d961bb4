package catalog

import (
	"context"
	"sync"

	"upc-catalog/internal/types"
)

type memoryBackend struct {
	mu      sync.RWMutex
	records map[string]*types.CatalogRecord
}

// NewMemory returns a catalog held in process memory
func NewMemory() *Catalog {
	return newCatalog(&memoryBackend{records: make(map[string]*types.CatalogRecord)})
}

func (m *memoryBackend) get(ctx context.Context, id string) (*types.CatalogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (m *memoryBackend) mutate(ctx context.Context, id string, fn mutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(m.records[id].Clone())
	if err != nil {
		return err
	}
	m.records[id] = next.Clone()
	return nil
}

func (m *memoryBackend) delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memoryBackend) list(ctx context.Context) ([]types.CatalogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.CatalogRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, *record.Clone())
	}
	return out, nil
}

func (m *memoryBackend) close() error {
	return nil
}
