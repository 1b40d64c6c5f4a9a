package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	panic("not used")
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{1, 0}, c.err
}

type countingIndex struct {
	*vectorstore.Memory
	searches int
}

func (c *countingIndex) SimilaritySearch(ctx context.Context, q []float32, k int) ([]vectorstore.Result, error) {
	c.searches++
	return c.Memory.SimilaritySearch(ctx, q, k)
}

type fakeGenerator struct {
	calls   int
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeGenerator) Model() string { return "fake" }

type fakeMemory struct {
	entries []memory.Entry
	loads   int
	saves   int
	saveErr error
}

func (f *fakeMemory) Load(ctx context.Context) []memory.Entry {
	f.loads++
	return append([]memory.Entry(nil), f.entries...)
}

func (f *fakeMemory) Save(ctx context.Context, entries []memory.Entry) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.entries = entries
	return nil
}

type fixture struct {
	emb *countingEmbedder
	idx *countingIndex
	gen *fakeGenerator
	mem *fakeMemory
	orc *Orchestrator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		emb: &countingEmbedder{},
		idx: &countingIndex{Memory: vectorstore.NewMemory()},
		gen: &fakeGenerator{reply: "generated answer"},
		mem: &fakeMemory{},
	}
	f.orc = New(f.emb, f.idx, f.gen, f.mem, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func TestQuery_CasualShortCircuits(t *testing.T) {
	f := newFixture(t, Options{})

	ans, err := f.orc.Query(context.Background(), "  Hello! ")
	require.NoError(t, err)
	assert.True(t, ans.Casual)
	assert.Equal(t, "Hello! How can I help you today?", ans.Text)

	assert.Zero(t, f.emb.calls)
	assert.Zero(t, f.idx.searches)
	assert.Zero(t, f.gen.calls)
	assert.Zero(t, f.mem.loads)
	assert.Zero(t, f.mem.saves)
}

func TestQuery_EmptyContextPrompt(t *testing.T) {
	f := newFixture(t, Options{})

	ans, err := f.orc.Query(context.Background(), "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", ans.Text)
	assert.False(t, ans.Casual)
	assert.Empty(t, ans.Sources)

	want := "You are an AI assistant. Use the following context to answer the question. " +
		"If the context does not contain the information needed, use your pre-trained knowledge " +
		"to provide a comprehensive answer.\n\nContext:\n\n\n---\n\nQuestion: What is the refund policy?\n\nAnswer:"
	require.Len(t, f.gen.prompts, 1)
	assert.Equal(t, want, f.gen.prompts[0])
}

func TestQuery_FusesMemoryAndRetrieval(t *testing.T) {
	f := newFixture(t, Options{TopK: 2})
	f.mem.entries = []memory.Entry{
		{User: "first q", Bot: "first a"},
		{User: "second q", Bot: "second a"},
	}
	require.NoError(t, f.idx.InsertBatch(context.Background(), []vectorstore.Record{
		{ID: "a.pdf:0:0", Source: "a.pdf", Text: "closest", Embedding: []float32{1, 0}},
		{ID: "a.pdf:0:1", Source: "a.pdf", Text: "middle", Embedding: []float32{1, 1}},
		{ID: "b.pdf:4:0", Source: "b.pdf", Page: 4, Text: "far", Embedding: []float32{0, 1}},
	}))

	ans, err := f.orc.Query(context.Background(), "question?")
	require.NoError(t, err)

	wantContext := "User: first q\nBot: first a\n\nUser: second q\nBot: second a" +
		"\n\n---\n\n" +
		"closest\n\n---\n\nmiddle"
	assert.Equal(t, BuildPrompt(wantContext, "question?"), f.gen.prompts[0])

	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "a.pdf:0:0", ans.Sources[0].ID)
	assert.Equal(t, "a.pdf:0:1", ans.Sources[1].ID)

	require.Len(t, f.mem.entries, 3)
	assert.Equal(t, memory.Entry{User: "question?", Bot: "generated answer"}, f.mem.entries[2])
}

func TestQuery_GenerationFailureLeavesMemory(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.entries = []memory.Entry{{User: "u", Bot: "b"}}
	f.gen.err = errors.New("model crashed")

	_, err := f.orc.Query(context.Background(), "tell me more")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
	assert.Zero(t, f.mem.saves)
	assert.Equal(t, []memory.Entry{{User: "u", Bot: "b"}}, f.mem.entries)
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.emb.err = errors.New("embedder down")

	_, err := f.orc.Query(context.Background(), "tell me more")
	require.Error(t, err)
	assert.Zero(t, f.gen.calls)
	assert.Zero(t, f.mem.saves)
}

func TestQuery_GenerationTimeout(t *testing.T) {
	f := newFixture(t, Options{GenerateTimeout: 20 * time.Millisecond})
	f.gen.block = true

	_, err := f.orc.Query(context.Background(), "slow question")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.mem.saves)
}

func TestQuery_SaveFailureIsReported(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.saveErr = errors.New("read-only filesystem")

	_, err := f.orc.Query(context.Background(), "a question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save memory")
}

func TestQuery_Validation(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.orc.Query(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	long := make([]rune, MaxQueryRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.orc.Query(context.Background(), string(long))
	assert.ErrorIs(t, err, ErrQueryTooLong)
	assert.Zero(t, f.gen.calls)
}

func TestQuery_WithFileMemory(t *testing.T) {
	path := t.TempDir() + "/chat_memory.json"
	store := memory.NewStore(path, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	gen := &fakeGenerator{reply: "answer one"}
	orc := New(&countingEmbedder{}, vectorstore.NewMemory(), gen, store, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := orc.Query(context.Background(), "first")
	require.NoError(t, err)
	gen.reply = "answer two"
	_, err = orc.Query(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, []memory.Entry{
		{User: "first", Bot: "answer one"},
		{User: "second", Bot: "answer two"},
	}, store.Load(context.Background()))
	assert.Contains(t, gen.prompts[1], "User: first\nBot: answer one")
}

func TestResetMemory(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.entries = []memory.Entry{{User: "q", Bot: "a"}}

	assert.Len(t, f.orc.History(context.Background()), 1)
	require.NoError(t, f.orc.ResetMemory(context.Background()))
	assert.Empty(t, f.orc.History(context.Background()))
}

func TestResetMemory_RemovesFile(t *testing.T) {
	path := t.TempDir() + "/chat_memory.json"
	store := memory.NewStore(path, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	orc := New(&countingEmbedder{}, vectorstore.NewMemory(), &fakeGenerator{reply: "a"}, store, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := orc.Query(context.Background(), "question")
	require.NoError(t, err)
	require.FileExists(t, path)

	require.NoError(t, orc.ResetMemory(context.Background()))
	assert.NoFileExists(t, path)
	assert.Empty(t, orc.History(context.Background()))
}
