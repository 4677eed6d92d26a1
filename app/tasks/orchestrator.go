package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/feedsync/app/database"
)

const DefaultMaxConcurrency = 3

// Orchestrator runs every enabled source through the pipeline in waves of
// maxConcurrency. A wave completes before the next one starts.
type Orchestrator struct {
	sources        database.SourceRepository
	pipeline       *Pipeline
	maxConcurrency int
}

func NewOrchestrator(sources database.SourceRepository, pipeline *Pipeline, maxConcurrency int) *Orchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Orchestrator{
		sources:        sources,
		pipeline:       pipeline,
		maxConcurrency: maxConcurrency,
	}
}

// Run processes all enabled sources once. Only a failure to list the sources
// is returned; per-source failures are recorded in the summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	logger := slog.With("run", uuid.NewString())
	started := time.Now()

	sources, err := o.sources.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	logger.Info("Run started", "sources", len(sources), "concurrency", o.maxConcurrency)

	summary := NewSummary()

	for start := 0; start < len(sources); start += o.maxConcurrency {
		wave := sources[start:min(start+o.maxConcurrency, len(sources))]

		var wg sync.WaitGroup
		for _, source := range wave {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o.processSource(ctx, logger, source, summary)
			}()
		}
		wg.Wait()
	}

	logger.Info("Run completed", "duration", time.Since(started), "sources", len(sources))
	logger.Info(summary.String())

	return summary, nil
}

func (o *Orchestrator) processSource(ctx context.Context, logger *slog.Logger, source database.Source, summary *Summary) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked", "type", "ProcessSource", "source", source.Name, "panic", r)
			summary.AddError(source.Name, fmt.Errorf("panic: %v", r))
		}
	}()

	task := NewProcessSourceTask(source, o.pipeline)
	task.Start()

	if err := task.Execute(ctx); err != nil {
		logger.Error("Task failed", "type", "ProcessSource", "source", source.Name, "id", task.GetID(), "duration", task.GetDuration(), "error", err)
		summary.AddError(source.Name, err)
		return
	}

	summary.AddSent(task.Sent)
}
