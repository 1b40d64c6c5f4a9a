package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-process Index. Contents are lost on Close; it backs
// tests and VECTOR_STORE=memory.
type Memory struct {
	mu      sync.Mutex
	order   []string
	records map[string]Record
	dim     int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order), nil
}

func (m *Memory) InsertBatch(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dim
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) != dim {
			return fmt.Errorf("insert %s: %w", r.ID, ErrDimensionMismatch)
		}
	}
	m.dim = dim

	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		r.Embedding = slices.Clone(r.Embedding)
		m.records[r.ID] = r
	}
	return nil
}

func (m *Memory) SimilaritySearch(ctx context.Context, query []float32, k int) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return topK(query, m.snapshot(), k)
}

func (m *Memory) Sources(ctx context.Context) ([]SourceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return summarise(m.snapshot()), nil
}

func (m *Memory) DeleteSource(ctx context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	removed := 0
	for _, id := range m.order {
		if m.records[id].Source == source {
			delete(m.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	if len(m.order) == 0 {
		m.dim = 0
	}
	return removed, nil
}

func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.records = make(map[string]Record)
	m.dim = 0
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) snapshot() []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}
