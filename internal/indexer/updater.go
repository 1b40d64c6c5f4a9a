// Package indexer brings the vector index up to date with a set of chunks.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docchat/internal/document"
	"github.com/dgallion1/docchat/internal/embedding"
	"github.com/dgallion1/docchat/internal/retry"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks embedded and inserted together.
const DefaultBatchSize = 50

// UpdateResult summarises one Update call.
type UpdateResult struct {
	Total      int `json:"total"`      // Chunks offered
	Existing   int `json:"existing"`   // Already in the index
	Duplicates int `json:"duplicates"` // Repeated ids within this run
	Added      int `json:"added"`      // Newly inserted
	Batches    int `json:"batches"`
}

// BatchError reports an insertion run that stopped part way. Batches
// before Batch are committed and stay in the index.
type BatchError struct {
	Batch     int // 0-based index of the failed batch
	Total     int // Number of batches in the run
	Committed int // Chunks inserted before the failure
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("insert batch %d/%d (%d chunks committed): %v", e.Batch+1, e.Total, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// BatchObserver follows insertion progress: once with the plan, then
// after each committed batch.
type BatchObserver interface {
	Planned(fresh, batches int)
	Batch(done, total, committed int)
}

// Updater inserts chunks whose ids are not yet in the index.
type Updater struct {
	Index     vectorstore.Index
	Embedder  embedding.Embedder
	BatchSize int
	Log       *slog.Logger
}

// Update adds the chunks missing from the index. Running it twice over the
// same chunks inserts nothing the second time.
func (u *Updater) Update(ctx context.Context, chunks []document.Chunk) (UpdateResult, error) {
	return u.UpdateWithProgress(ctx, chunks, nil)
}

// UpdateWithProgress is Update with progress reported to obs, which may
// be nil.
func (u *Updater) UpdateWithProgress(ctx context.Context, chunks []document.Chunk, obs BatchObserver) (UpdateResult, error) {
	res := UpdateResult{Total: len(chunks)}

	existingIDs, err := u.Index.ListIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list existing ids: %w", err)
	}
	seen := make(map[string]struct{}, len(existingIDs)+len(chunks))
	for _, id := range existingIDs {
		seen[id] = struct{}{}
	}

	var fresh []document.Chunk
	inRun := make(map[string]struct{})
	for _, c := range chunks {
		if _, ok := inRun[c.ID]; ok {
			res.Duplicates++
			continue
		}
		inRun[c.ID] = struct{}{}
		if _, ok := seen[c.ID]; ok {
			res.Existing++
			continue
		}
		fresh = append(fresh, c)
	}

	size := u.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	res.Batches = (len(fresh) + size - 1) / size
	if obs != nil {
		obs.Planned(len(fresh), res.Batches)
	}

	if len(fresh) == 0 {
		u.Log.Info("index up to date", "chunks", res.Total, "existing", res.Existing)
		return res, nil
	}
	u.Log.Info("adding new chunks", "new", len(fresh), "existing", res.Existing, "batches", res.Batches)

	for b := 0; b < res.Batches; b++ {
		batch := fresh[b*size : min((b+1)*size, len(fresh))]
		err := retry.Do(ctx, func(ctx context.Context) error {
			return u.insert(ctx, batch)
		}, func(attempt int, err error) {
			u.Log.Warn("batch failed, retrying", "batch", b+1, "attempt", attempt+1, "error", err)
		})
		if err != nil {
			return res, &BatchError{Batch: b, Total: res.Batches, Committed: res.Added, Err: err}
		}
		res.Added += len(batch)
		u.Log.Info("committed batch", "batch", b+1, "of", res.Batches, "committed", res.Added)
		if obs != nil {
			obs.Batch(b+1, res.Batches, res.Added)
		}
	}
	return res, nil
}

func (u *Updater) insert(ctx context.Context, batch []document.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vecs, err := u.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embed documents: got %d vectors for %d chunks", len(vecs), len(batch))
	}

	records := make([]vectorstore.Record, len(batch))
	for i, c := range batch {
		records[i] = vectorstore.Record{
			ID:         c.ID,
			Embedding:  vecs[i],
			Text:       c.Text,
			Source:     c.Source,
			Page:       c.Page,
			ChunkIndex: c.Index,
		}
	}
	if err := u.Index.InsertBatch(ctx, records); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}
