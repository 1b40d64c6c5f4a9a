// Package llm generates answers from prompts with a hosted or local model.
package llm

import (
	"context"
	"log/slog"
	"time"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Instrumented records latency for every call to the wrapped Generator.
type Instrumented struct {
	Generator
	stats *LLMStats
	log   *slog.Logger
}

func NewInstrumented(g Generator, stats *LLMStats, log *slog.Logger) *Instrumented {
	return &Instrumented{Generator: g, stats: stats, log: log}
}

func (i *Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.Generator.Generate(ctx, prompt)
	elapsed := time.Since(start)
	i.stats.Record(elapsed, err)

	if err != nil {
		i.log.Warn("generation failed", "model", i.Model(), "duration_ms", elapsed.Milliseconds(), "error", err)
		return "", err
	}
	i.log.Debug("generated answer", "model", i.Model(), "duration_ms", elapsed.Milliseconds(), "chars", len(text))
	return text, nil
}

// Stats returns the current latency snapshot tagged with the model name.
func (i *Instrumented) Stats() StatsSnapshot {
	snap := i.stats.Snapshot()
	snap.Model = i.Model()
	return snap
}
