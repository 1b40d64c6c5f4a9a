// Package rag answers questions from indexed documents and the recent
// conversation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docchat/internal/embedding"
	"github.com/dgallion1/docchat/internal/llm"
	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/retry"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 5

// DefaultGenerateTimeout bounds a single generation, retries included.
const DefaultGenerateTimeout = 2 * time.Minute

// MemoryStore is the conversation memory the orchestrator reads and writes.
type MemoryStore interface {
	Load(ctx context.Context) []memory.Entry
	Save(ctx context.Context, entries []memory.Entry) error
}

// Source identifies a retrieved chunk used to build the answer.
type Source struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float32 `json:"score"`
}

// Answer is the result of one query.
type Answer struct {
	Text     string        `json:"text"`
	Casual   bool          `json:"casual"`
	Sources  []Source      `json:"sources,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options tunes an Orchestrator. Zero values take defaults.
type Options struct {
	TopK            int
	GenerateTimeout time.Duration
	CasualMode      CasualMode
}

// Orchestrator runs the question answering flow. Queries are serialised so
// the memory read-modify-write never interleaves.
type Orchestrator struct {
	mu        sync.Mutex
	embedder  embedding.Embedder
	index     vectorstore.Index
	generator llm.Generator
	memory    MemoryStore
	opts      Options
	log       *slog.Logger
}

func New(emb embedding.Embedder, idx vectorstore.Index, gen llm.Generator, mem MemoryStore, opts Options, log *slog.Logger) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if opts.CasualMode == "" {
		opts.CasualMode = CasualExact
	}
	return &Orchestrator{
		embedder:  emb,
		index:     idx,
		generator: gen,
		memory:    mem,
		opts:      opts,
		log:       log,
	}
}

// Query answers text. Greetings get a canned reply without touching memory
// or the models. Otherwise the answer is generated from recent memory and
// the closest chunks, and the exchange is appended to memory. On error
// nothing is persisted.
func (o *Orchestrator) Query(ctx context.Context, text string) (Answer, error) {
	start := time.Now()
	if err := validateQuery(text); err != nil {
		return Answer{}, err
	}

	if reply, ok := matchCasual(text, o.opts.CasualMode); ok {
		o.log.Debug("casual reply", "query", text)
		return Answer{Text: reply, Casual: true, Duration: time.Since(start)}, nil
	}
	if suspicious(text) {
		o.log.Warn("query resembles prompt injection", "query", retry.Truncate(text, 200))
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	entries := o.memory.Load(ctx)

	vec, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}
	results, err := o.index.SimilaritySearch(ctx, vec, o.opts.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("search index: %w", err)
	}

	prompt := BuildPrompt(combineContext(formatMemory(entries), formatRetrieved(results)), text)

	genCtx, cancel := context.WithTimeout(ctx, o.opts.GenerateTimeout)
	defer cancel()
	var response string
	err = retry.Do(genCtx, func(ctx context.Context) error {
		var err error
		response, err = o.generator.Generate(ctx, prompt)
		return err
	}, func(attempt int, err error) {
		o.log.Warn("generation failed, retrying", "attempt", attempt+1, "error", err)
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	entries = append(entries, memory.Entry{User: text, Bot: response})
	if err := o.memory.Save(ctx, entries); err != nil {
		return Answer{}, fmt.Errorf("save memory: %w", err)
	}

	ans := Answer{Text: response, Duration: time.Since(start)}
	for _, r := range results {
		ans.Sources = append(ans.Sources, Source{ID: r.ID, Source: r.Source, Page: r.Page, Score: r.Score})
	}
	o.log.Info("answered query",
		"retrieved", len(results),
		"memory_entries", len(entries),
		"duration_ms", ans.Duration.Milliseconds(),
	)
	return ans, nil
}

// History returns the remembered exchanges, oldest first.
func (o *Orchestrator) History(ctx context.Context) []memory.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.memory.Load(ctx)
}

// ResetMemory forgets the conversation, waiting for any query in flight.
func (o *Orchestrator) ResetMemory(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.memory.(interface{ Clear(context.Context) error }); ok {
		return c.Clear(ctx)
	}
	return o.memory.Save(ctx, nil)
}
