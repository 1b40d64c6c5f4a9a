package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docchat/internal/chunker"
	"github.com/dgallion1/docchat/internal/document"
	"github.com/dgallion1/docchat/internal/embedding"
	"github.com/dgallion1/docchat/internal/loader"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

// Phases reported to an Observer.
const (
	PhaseResetting = "resetting"
	PhaseLoading   = "loading"
	PhaseChunking  = "chunking"
	PhaseIndexing  = "indexing"
)

// Observer follows the progress of a run. Job tracking implements it.
type Observer interface {
	BatchObserver
	EnterPhase(name string)
	Loaded(documents int)
	Chunked(chunks int)
}

// Options selects what a run indexes.
type Options struct {
	SourceDir string   // Directory to load; used when Files is empty
	Files     []string // Specific files to load instead of SourceDir
	Reset     bool     // Clear the whole index first
}

// Report describes a finished run.
type Report struct {
	UpdateResult
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Tokens    int           `json:"tokens"`
	Duration  time.Duration `json:"duration"`
}

// Indexer runs load → split → assign ids → update. Runs are serialised.
type Indexer struct {
	mu      sync.Mutex
	loader  *loader.Loader
	updater *Updater
	chunks  chunker.Config
	log     *slog.Logger
}

func New(l *loader.Loader, idx vectorstore.Index, emb embedding.Embedder, chunkCfg chunker.Config, batchSize int, log *slog.Logger) *Indexer {
	return &Indexer{
		loader: l,
		updater: &Updater{
			Index:     idx,
			Embedder:  emb,
			BatchSize: batchSize,
			Log:       log,
		},
		chunks: chunkCfg,
		log:    log,
	}
}

// Run indexes the documents named by opts. obs may be nil.
func (ix *Indexer) Run(ctx context.Context, opts Options, obs Observer) (Report, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if obs == nil {
		obs = nopObserver{}
	}
	start := time.Now()
	var rep Report

	if opts.Reset {
		obs.EnterPhase(PhaseResetting)
		if err := ix.updater.Index.Reset(ctx); err != nil {
			return rep, fmt.Errorf("reset index: %w", err)
		}
		ix.log.Info("cleared index")
	}

	obs.EnterPhase(PhaseLoading)
	docs, err := ix.load(ctx, opts)
	if err != nil {
		return rep, err
	}
	rep.Documents = len(docs)
	obs.Loaded(len(docs))

	obs.EnterPhase(PhaseChunking)
	chunks := chunker.AssignIDs(chunker.Split(docs, ix.chunks))
	rep.Chunks = len(chunks)
	rep.Tokens = chunker.TotalTokens(chunks)
	obs.Chunked(rep.Chunks)
	ix.log.Info("chunked documents", "documents", rep.Documents, "chunks", rep.Chunks, "tokens", rep.Tokens)

	obs.EnterPhase(PhaseIndexing)
	res, err := ix.updater.UpdateWithProgress(ctx, chunks, obs)
	rep.UpdateResult = res
	rep.Duration = time.Since(start)
	if err != nil {
		return rep, err
	}

	ix.log.Info("indexing complete",
		"added", res.Added,
		"existing", res.Existing,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

func (ix *Indexer) load(ctx context.Context, opts Options) ([]document.Document, error) {
	if len(opts.Files) == 0 {
		if opts.SourceDir == "" {
			return nil, errors.New("no source directory or files given")
		}
		docs, err := ix.loader.LoadDir(ctx, opts.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("load documents: %w", err)
		}
		return docs, nil
	}

	var docs []document.Document
	for _, f := range opts.Files {
		fileDocs, err := ix.loader.LoadFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

type nopObserver struct{}

func (nopObserver) EnterPhase(string)   {}
func (nopObserver) Loaded(int)          {}
func (nopObserver) Chunked(int)         {}
func (nopObserver) Planned(int, int)    {}
func (nopObserver) Batch(int, int, int) {}
