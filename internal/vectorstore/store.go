// Package vectorstore persists embedded chunks and answers nearest-neighbour
// queries over them.
package vectorstore

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// dimension already stored in the index.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Record is one stored chunk and its embedding, keyed by the chunk id.
type Record struct {
	ID         string
	Embedding  []float32
	Text       string
	Source     string
	Page       int
	ChunkIndex int
}

// Result is a search hit. Higher scores are more similar.
type Result struct {
	Record
	Score float32
}

// SourceInfo summarises the chunks stored for one source file.
type SourceInfo struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// Index is a persistent vector index.
type Index interface {
	// ListIDs returns every stored chunk id.
	ListIDs(ctx context.Context) ([]string, error)
	// InsertBatch stores records, replacing any with the same id.
	InsertBatch(ctx context.Context, records []Record) error
	// SimilaritySearch returns up to k records ordered by descending
	// cosine similarity to query.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]Result, error)
	// Sources lists stored sources with their chunk counts, sorted by name.
	Sources(ctx context.Context) ([]SourceInfo, error)
	// DeleteSource removes every chunk of source and reports how many went.
	DeleteSource(ctx context.Context, source string) (int, error)
	// Reset removes everything.
	Reset(ctx context.Context) error
	Close() error
}
