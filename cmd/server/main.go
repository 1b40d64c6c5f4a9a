package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docchat/internal/api"
	"github.com/dgallion1/docchat/internal/app"
	"github.com/dgallion1/docchat/internal/config"
	"github.com/dgallion1/docchat/internal/pipeline"
	"github.com/dgallion1/docchat/internal/watch"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if path := os.Getenv("DOCCHAT_CONFIG"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			log.Error("invalid configuration file", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize components.
	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.Config{
		DataDir:      cfg.DataDir,
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, a.Indexer, a.Index, log.With("component", "pipeline"))
	orch.Start(ctx)

	var sched *pipeline.Scheduler
	if cfg.IndexSchedule != "" {
		sched, err = pipeline.NewScheduler(cfg.IndexSchedule, orch, log.With("component", "schedule"))
		if err != nil {
			log.Error("invalid INDEX_SCHEDULE", "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	watchDone := make(chan struct{})
	watchCtx, stopWatch := context.WithCancel(ctx)
	if cfg.WatchDataDir {
		w, err := newWatcher(cfg, a, orch, log)
		if err != nil {
			log.Error("watcher setup failed", "error", err)
			os.Exit(1)
		}
		go func() {
			defer close(watchDone)
			if err := w.Run(watchCtx); err != nil {
				log.Error("watcher stopped", "error", err)
			}
		}()
	} else {
		close(watchDone)
	}

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		RAG:      a.RAG,
		Pipeline: orch,
		Index:    a.Index,
		LLM:      a.Generator,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. Producers stop before the job queue closes.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		stopWatch()
		<-watchDone
		if sched != nil {
			sched.Stop()
		}
		orch.Stop()

		if err := a.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}()

	log.Info("starting docchat",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"vector_store", cfg.VectorStore,
		"watch", cfg.WatchDataDir,
		"schedule", cfg.IndexSchedule,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
	log.Info("shutdown complete")
}

func newWatcher(cfg config.Config, a *app.App, orch *pipeline.Orchestrator, log *slog.Logger) (*watch.Watcher, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	wlog := log.With("component", "watch")
	return watch.New(watch.Config{
		Dir: cfg.DataDir,
		OnChange: func() {
			if _, err := orch.SubmitReindex("watch", false); err != nil {
				wlog.Warn("re-index not queued", "error", err)
			}
		},
		OnRemove: func(path string) {
			n, err := a.Index.DeleteSource(context.Background(), path)
			if err != nil {
				wlog.Warn("remove chunks failed", "path", path, "error", err)
				return
			}
			wlog.Info("removed chunks", "path", path, "chunks", n)
		},
	}, wlog)
}
