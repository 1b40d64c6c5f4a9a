package vectorstore

import (
	"context"
	"sync"
)

// Guarded wraps an Index so that reads run concurrently while writes get
// exclusive access. Indexing and querying share one Guarded instance.
type Guarded struct {
	mu    sync.RWMutex
	inner Index
}

func NewGuarded(inner Index) *Guarded {
	return &Guarded{inner: inner}
}

func (g *Guarded) ListIDs(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inner.ListIDs(ctx)
}

func (g *Guarded) InsertBatch(ctx context.Context, records []Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.InsertBatch(ctx, records)
}

func (g *Guarded) SimilaritySearch(ctx context.Context, query []float32, k int) ([]Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inner.SimilaritySearch(ctx, query, k)
}

func (g *Guarded) Sources(ctx context.Context) ([]SourceInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inner.Sources(ctx)
}

func (g *Guarded) DeleteSource(ctx context.Context, source string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.DeleteSource(ctx, source)
}

func (g *Guarded) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.Reset(ctx)
}

func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.Close()
}
