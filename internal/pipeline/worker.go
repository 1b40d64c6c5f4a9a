package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgallion1/docchat/internal/indexer"
)

// Runner performs one indexing run.
type Runner interface {
	Run(ctx context.Context, opts indexer.Options, obs indexer.Observer) (indexer.Report, error)
}

// SourceRemover drops every chunk stored for a source.
type SourceRemover interface {
	DeleteSource(ctx context.Context, source string) (int, error)
}

// Worker processes index jobs.
type Worker struct {
	runner  Runner
	remover SourceRemover
	dataDir string
	log     *slog.Logger
}

func NewWorker(runner Runner, remover SourceRemover, dataDir string, log *slog.Logger) *Worker {
	return &Worker{runner: runner, remover: remover, dataDir: dataDir, log: log}
}

// SourceRemovedNote is the extra job error on a failed replacing upload.
// The previous chunks are already gone, so the document is missing from the
// index until a later run indexes the stored file again.
const SourceRemovedNote = "previous chunks removed; re-index to restore this document"

// Process runs the indexer for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind, "trigger", job.Trigger)

	var opts indexer.Options
	switch job.Kind {
	case KindUpload:
		if job.replaceSource {
			n, err := w.remover.DeleteSource(ctx, job.path)
			if err != nil {
				log.Error("remove previous chunks failed", "path", job.path, "error", err)
				job.AddError("remove previous chunks: " + err.Error())
				job.SetStatus(StatusFailed, "replacing")
				return
			}
			log.Info("removed previous chunks", "path", job.path, "chunks", n)
		}
		opts.Files = []string{job.path}
	default:
		opts.SourceDir = w.dataDir
		opts.Reset = job.Reset
	}

	rep, err := w.runner.Run(ctx, opts, job)
	if err != nil {
		phase := job.Snapshot().Phase
		var be *indexer.BatchError
		if errors.As(err, &be) {
			log.Error("indexing stopped", "batch", be.Batch+1, "of", be.Total, "committed", be.Committed, "error", be.Err)
		} else {
			log.Error("indexing failed", "phase", phase, "error", err)
		}
		job.AddError(err.Error())
		if job.Kind == KindUpload && job.replaceSource {
			log.Warn("source left without chunks until the next index run", "path", job.path)
			job.AddError(SourceRemovedNote)
		}
		job.SetStatus(StatusFailed, phase)
		return
	}

	if job.Kind == KindUpload && rep.Documents == 0 {
		log.Warn("no extractable content")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, indexer.PhaseLoading)
		return
	}

	log.Info("job complete", "documents", rep.Documents, "chunks", rep.Chunks, "added", rep.Added)
	job.SetStatus(StatusCompleted, "done")
}
