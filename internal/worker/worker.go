// Package worker implements the background task execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/enrich"
	"github.com/excelltechsh/siteaudit/internal/metrics"
	"github.com/excelltechsh/siteaudit/internal/notify"
	"github.com/excelltechsh/siteaudit/internal/scan"
)

// Worker consumes queue tasks and dispatches them by kind. Task errors are
// never surfaced to any HTTP caller; they are logged and, for crawl tasks,
// already reflected in the scan row by the orchestrator.
type Worker struct {
	queue        audit.TaskQueue
	orchestrator *scan.Orchestrator
	analyzer     *enrich.Analyzer
	researcher   *enrich.Researcher
	notifier     notify.Provider
	logger       *zap.Logger
}

// New constructs a Worker.
func New(
	queue audit.TaskQueue,
	orchestrator *scan.Orchestrator,
	analyzer *enrich.Analyzer,
	researcher *enrich.Researcher,
	notifier notify.Provider,
	logger *zap.Logger,
) *Worker {
	if notifier == nil {
		notifier = &notify.NoOpProvider{}
	}
	return &Worker{
		queue:        queue,
		orchestrator: orchestrator,
		analyzer:     analyzer,
		researcher:   researcher,
		notifier:     notifier,
		logger:       logger,
	}
}

// Run blocks, consuming queue tasks until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		w.processTask(ctx, task)
	}
}

func (w *Worker) processTask(ctx context.Context, task audit.Task) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	metrics.ObserveTask(string(task.Kind))

	w.logger.Debug("dequeued task",
		zap.String("kind", string(task.Kind)),
		zap.String("scan_id", task.ScanID),
	)

	switch task.Kind {
	case audit.TaskCrawl:
		if err := w.orchestrator.Crawl(ctx, task); err != nil {
			w.logger.Error("crawl task failed", zap.String("scan_id", task.ScanID), zap.Error(err))
		}
		// Terminal either way; tell downstream listeners the scan settled.
		if err := w.notifier.Publish(ctx, task.ScanID); err != nil {
			w.logger.Warn("completion notification failed", zap.String("scan_id", task.ScanID), zap.Error(err))
		}
	case audit.TaskAnalyze:
		if err := w.analyzer.AnalyzeScan(ctx, task.ScanID); err != nil {
			w.logger.Error("analyze task failed", zap.String("scan_id", task.ScanID), zap.Error(err))
		}
	case audit.TaskResearch:
		if err := w.researcher.ResearchScan(ctx, task.ScanID); err != nil {
			w.logger.Error("research task failed", zap.String("scan_id", task.ScanID), zap.Error(err))
		}
	default:
		w.logger.Error("unknown task kind",
			zap.String("kind", string(task.Kind)),
			zap.String("scan_id", task.ScanID),
		)
	}
}
