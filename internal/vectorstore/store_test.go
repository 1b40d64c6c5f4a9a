package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, source string, vec ...float32) Record {
	return Record{ID: id, Source: source, Text: "text of " + id, Embedding: vec}
}

// indexContract exercises behaviour every local backend must share.
func indexContract(t *testing.T, open func(t *testing.T) Index) {
	ctx := context.Background()

	t.Run("empty index", func(t *testing.T) {
		idx := open(t)
		ids, err := idx.ListIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		results, err := idx.SimilaritySearch(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("insert and rank", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.InsertBatch(ctx, []Record{
			rec("a.pdf:0:0", "a.pdf", 1, 0),
			rec("a.pdf:0:1", "a.pdf", 0.7, 0.7),
			rec("b.pdf:0:0", "b.pdf", 0, 1),
		}))

		ids, err := idx.ListIDs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.pdf:0:0", "a.pdf:0:1", "b.pdf:0:0"}, ids)

		results, err := idx.SimilaritySearch(ctx, []float32{1, 0.1}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a.pdf:0:0", results[0].ID)
		assert.Equal(t, "a.pdf:0:1", results[1].ID)
		assert.Greater(t, results[0].Score, results[1].Score)
		assert.Equal(t, "text of a.pdf:0:0", results[0].Text)
		assert.Equal(t, "a.pdf", results[0].Source)
	})

	t.Run("reinsert replaces", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.InsertBatch(ctx, []Record{rec("x", "s", 1, 0)}))
		r := rec("x", "s", 0, 1)
		r.Text = "updated"
		require.NoError(t, idx.InsertBatch(ctx, []Record{r}))

		ids, err := idx.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, ids)

		results, err := idx.SimilaritySearch(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "updated", results[0].Text)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.InsertBatch(ctx, []Record{rec("x", "s", 1, 0)}))
		err := idx.InsertBatch(ctx, []Record{rec("y", "s", 1, 0, 0)})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = idx.SimilaritySearch(ctx, []float32{1, 0, 0}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("sources and delete", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.InsertBatch(ctx, []Record{
			rec("b:0:0", "b.md", 1, 0),
			rec("a:0:0", "a.md", 1, 0),
			rec("a:0:1", "a.md", 0, 1),
		}))

		sources, err := idx.Sources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []SourceInfo{{Source: "a.md", Chunks: 2}, {Source: "b.md", Chunks: 1}}, sources)

		n, err := idx.DeleteSource(ctx, "a.md")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		ids, err := idx.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b:0:0"}, ids)

		n, err = idx.DeleteSource(ctx, "missing.md")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("reset", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.InsertBatch(ctx, []Record{rec("x", "s", 1, 0)}))
		require.NoError(t, idx.Reset(ctx))

		ids, err := idx.ListIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		// A reset index accepts a new dimension.
		require.NoError(t, idx.InsertBatch(ctx, []Record{rec("y", "s", 1, 0, 0)}))
	})
}

func TestMemoryIndex(t *testing.T) {
	indexContract(t, func(t *testing.T) Index { return NewMemory() })
}

func TestSQLiteIndex(t *testing.T) {
	indexContract(t, func(t *testing.T) Index {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "chunks.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestGuardedIndex(t *testing.T) {
	indexContract(t, func(t *testing.T) Index { return NewGuarded(NewMemory()) })
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunks.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertBatch(ctx, []Record{
		{ID: "a.pdf:3:1", Source: "a.pdf", Page: 3, ChunkIndex: 1, Text: "hello", Embedding: []float32{0.25, -1.5}},
	}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SimilaritySearch(ctx, []float32{0.25, -1.5}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := results[0]
	assert.Equal(t, "a.pdf:3:1", got.ID)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 1, got.ChunkIndex)
	assert.Equal(t, []float32{0.25, -1.5}, got.Embedding)
	assert.InDelta(t, 1.0, got.Score, 1e-6)
}

func TestSQLite_MigrationsRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-run the initial migration.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestEmbeddingEncoding(t *testing.T) {
	v := []float32{0, 1, -2.5, 3.14159}
	assert.Equal(t, v, decodeEmbedding(encodeEmbedding(v)))
	assert.Len(t, encodeEmbedding(v), 16)
}
