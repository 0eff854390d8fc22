package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/metrics"
)

// Error text recorded on the scan when the poll attempt budget runs out.
const timeoutErrorText = "Crawl job timed out"

// Poller drives an asynchronous crawl job to a terminal state with a
// fixed-interval status check. Polling holds no persisted attempt counter:
// a crash mid-poll simply loses progress, acceptable for this single-owner
// job model.
type Poller struct {
	scans       audit.ScanStore
	crawler     audit.CrawlClient
	persister   *Persister
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewPoller constructs a Poller.
func NewPoller(
	scans audit.ScanStore,
	crawler audit.CrawlClient,
	persister *Persister,
	interval time.Duration,
	maxAttempts int,
	logger *zap.Logger,
) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &Poller{
		scans:       scans,
		crawler:     crawler,
		persister:   persister,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// PollJob polls the crawl job until completion, failure, or attempt budget
// exhaustion. All terminal scan-status updates happen here; the returned
// error is informational for the caller's log.
func (p *Poller) PollJob(ctx context.Context, jobID, scanID, baseURL string) error {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		p.logger.Debug("polling crawl job",
			zap.String("job_id", jobID),
			zap.String("scan_id", scanID),
			zap.Int("attempt", attempt),
		)
		metrics.ObservePollAttempt()

		status, err := p.crawler.JobStatus(ctx, jobID)
		if err != nil {
			// A transport-level failure on the status check is fatal
			// immediately; no partial retry budget.
			p.failScan(ctx, scanID, err.Error())
			return fmt.Errorf("crawl job %s status check: %w", jobID, err)
		}

		switch status.Status {
		case audit.CrawlJobCompleted:
			p.logger.Info("crawl job completed",
				zap.String("job_id", jobID),
				zap.String("scan_id", scanID),
				zap.Int("pages", len(status.Pages)),
			)
			for _, page := range status.Pages {
				p.persister.ProcessPage(ctx, page, scanID, baseURL)
			}
			if err := p.scans.UpdateScanStatus(ctx, scanID, audit.ScanStatusCompleted, ""); err != nil {
				return fmt.Errorf("mark scan completed: %w", err)
			}
			metrics.ObserveScan(string(audit.ScanStatusCompleted))
			return nil

		case audit.CrawlJobFailed:
			msg := status.ErrorText
			if msg == "" {
				msg = "Unknown error"
			}
			errText := fmt.Sprintf("Crawl job failed: %s", msg)
			p.failScan(ctx, scanID, errText)
			return fmt.Errorf("crawl job %s: %s: %w", jobID, msg, audit.ErrUpstream)
		}

		p.logger.Debug("crawl job in progress",
			zap.String("job_id", jobID),
			zap.String("status", status.Status),
			zap.Int("completed", status.Completed),
			zap.Int("total", status.Total),
		)

		select {
		case <-ctx.Done():
			p.failScan(ctx, scanID, ctx.Err().Error())
			return fmt.Errorf("poll crawl job %s: %w", jobID, ctx.Err())
		case <-time.After(p.interval):
		}
	}

	p.failScan(ctx, scanID, timeoutErrorText)
	return fmt.Errorf("crawl job %s did not finish within %d attempts: %w", jobID, p.maxAttempts, audit.ErrTimeout)
}

func (p *Poller) failScan(ctx context.Context, scanID, errText string) {
	if err := p.scans.UpdateScanStatus(ctx, scanID, audit.ScanStatusFailed, errText); err != nil {
		p.logger.Error("mark scan failed", zap.String("scan_id", scanID), zap.Error(err))
		return
	}
	metrics.ObserveScan(string(audit.ScanStatusFailed))
}
