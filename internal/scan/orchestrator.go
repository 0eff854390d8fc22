package scan

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/metrics"
)

// Orchestrator owns the crawl side of a scan: strategy selection, driving
// the crawl to completion or failure, and recording the terminal status.
type Orchestrator struct {
	scans     audit.ScanStore
	crawler   audit.CrawlClient
	persister *Persister
	poller    *Poller
	logger    *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	scans audit.ScanStore,
	crawler audit.CrawlClient,
	persister *Persister,
	poller *Poller,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		scans:     scans,
		crawler:   crawler,
		persister: persister,
		poller:    poller,
		logger:    logger,
	}
}

// Crawl executes one crawl task to its terminal scan status. Errors are
// recorded on the scan row and returned only for the caller's log; nothing
// propagates to the original HTTP request, which has long since returned.
func (o *Orchestrator) Crawl(ctx context.Context, task audit.Task) error {
	o.logger.Info("starting crawl",
		zap.String("scan_id", task.ScanID),
		zap.String("url", task.URL),
		zap.Bool("selective", task.IsSelective),
	)

	if task.IsSelective && len(task.SelectedURLs) > 0 {
		return o.crawlSelective(ctx, task)
	}
	return o.crawlFull(ctx, task)
}

// crawlSelective scrapes each selected URL independently, one at a time.
// Partial failures are logged and skipped; the scan is marked completed
// regardless of how many individual scrapes failed.
func (o *Orchestrator) crawlSelective(ctx context.Context, task audit.Task) error {
	o.logger.Info("selective crawl",
		zap.String("scan_id", task.ScanID),
		zap.Int("urls", len(task.SelectedURLs)),
	)

	for _, pageURL := range task.SelectedURLs {
		page, err := o.crawler.Scrape(ctx, pageURL)
		if err != nil {
			o.logger.Error("scrape failed",
				zap.String("scan_id", task.ScanID),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		o.persister.ProcessPage(ctx, page, task.ScanID, task.URL)
	}

	if err := o.scans.UpdateScanStatus(ctx, task.ScanID, audit.ScanStatusCompleted, ""); err != nil {
		return o.fail(ctx, task.ScanID, fmt.Errorf("mark scan completed: %w", err))
	}
	metrics.ObserveScan(string(audit.ScanStatusCompleted))
	o.logger.Info("selective crawl completed", zap.String("scan_id", task.ScanID))
	return nil
}

// crawlFull submits one crawl for the whole site. A synchronous response is
// persisted directly; an asynchronous one is handed to the Poller, which
// owns all terminal status updates from there.
func (o *Orchestrator) crawlFull(ctx context.Context, task audit.Task) error {
	submission, err := o.crawler.SubmitCrawl(ctx, task.URL)
	if err != nil {
		return o.fail(ctx, task.ScanID, fmt.Errorf("submit crawl: %w", err))
	}

	if submission.Async() {
		o.logger.Info("crawl accepted as async job",
			zap.String("scan_id", task.ScanID),
			zap.String("job_id", submission.JobID),
		)
		if err := o.poller.PollJob(ctx, submission.JobID, task.ScanID, task.URL); err != nil {
			// The poller already recorded the failure on the scan.
			o.logger.Error("crawl job did not complete",
				zap.String("scan_id", task.ScanID),
				zap.String("job_id", submission.JobID),
				zap.Error(err),
			)
			return err
		}
		return nil
	}

	o.logger.Info("processing synchronous crawl response",
		zap.String("scan_id", task.ScanID),
		zap.Int("pages", len(submission.Pages)),
	)
	for _, page := range submission.Pages {
		o.persister.ProcessPage(ctx, page, task.ScanID, task.URL)
	}

	if err := o.scans.UpdateScanStatus(ctx, task.ScanID, audit.ScanStatusCompleted, ""); err != nil {
		return o.fail(ctx, task.ScanID, fmt.Errorf("mark scan completed: %w", err))
	}
	metrics.ObserveScan(string(audit.ScanStatusCompleted))
	o.logger.Info("crawl completed", zap.String("scan_id", task.ScanID))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, scanID string, cause error) error {
	o.logger.Error("crawl failed", zap.String("scan_id", scanID), zap.Error(cause))
	if err := o.scans.UpdateScanStatus(ctx, scanID, audit.ScanStatusFailed, cause.Error()); err != nil {
		o.logger.Error("mark scan failed", zap.String("scan_id", scanID), zap.Error(err))
		return cause
	}
	metrics.ObserveScan(string(audit.ScanStatusFailed))
	return cause
}
