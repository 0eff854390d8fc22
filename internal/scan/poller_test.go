package scan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/scan"
	memorystore "github.com/excelltechsh/siteaudit/internal/storage/memory"
)

// fakeCrawler satisfies audit.CrawlClient with scripted responses.
type fakeCrawler struct {
	mapLinks []string
	mapErr   error

	scrapePages map[string]audit.CrawledPage
	scrapeErrs  map[string]error
	scrapeCalls []string

	submission audit.CrawlSubmission
	submitErr  error

	statuses    []audit.CrawlJobStatus
	statusErr   error
	statusCalls int
}

func (f *fakeCrawler) Map(_ context.Context, _ string) ([]string, error) {
	return f.mapLinks, f.mapErr
}

func (f *fakeCrawler) Scrape(_ context.Context, url string) (audit.CrawledPage, error) {
	f.scrapeCalls = append(f.scrapeCalls, url)
	if err, ok := f.scrapeErrs[url]; ok {
		return audit.CrawledPage{}, err
	}
	return f.scrapePages[url], nil
}

func (f *fakeCrawler) SubmitCrawl(_ context.Context, _ string) (audit.CrawlSubmission, error) {
	return f.submission, f.submitErr
}

func (f *fakeCrawler) JobStatus(_ context.Context, _ string) (audit.CrawlJobStatus, error) {
	if f.statusErr != nil {
		return audit.CrawlJobStatus{}, f.statusErr
	}
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[idx], nil
}

func newScanRow(t *testing.T, store *memorystore.Store, id string) {
	t.Helper()
	err := store.CreateScan(context.Background(), audit.Scan{
		ID:     id,
		UserID: "user-1",
		URL:    "https://example.com",
		Status: audit.ScanStatusCrawling,
	})
	require.NoError(t, err)
}

func newPoller(store *memorystore.Store, crawler audit.CrawlClient, maxAttempts int) *scan.Poller {
	clk := fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	persister := scan.NewPersister(store, clk, &seqIDGen{}, zap.NewNop())
	return scan.NewPoller(store, crawler, persister, time.Millisecond, maxAttempts, zap.NewNop())
}

func TestPoller_CompletesAfterProgress(t *testing.T) {
	t.Parallel()
	store := memorystore.NewStore()
	newScanRow(t, store, "scan-1")

	crawler := &fakeCrawler{
		statuses: []audit.CrawlJobStatus{
			{Status: "scraping", Completed: 1, Total: 3},
			{Status: "scraping", Completed: 2, Total: 3},
			{
				Status: audit.CrawlJobCompleted,
				Pages: []audit.CrawledPage{
					{URL: "https://example.com/", Markdown: "home"},
					{URL: "https://example.com/about", Markdown: "about"},
				},
			},
		},
	}
	p := newPoller(store, crawler, 10)

	err := p.PollJob(context.Background(), "job-1", "scan-1", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, crawler.statusCalls)

	row, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, audit.ScanStatusCompleted, row.Status)
	assert.Empty(t, row.ErrorText)

	pages, err := store.ListPagesByScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestPoller_AttemptBudgetExhausted(t *testing.T) {
	t.Parallel()
	store := memorystore.NewStore()
	newScanRow(t, store, "scan-1")

	crawler := &fakeCrawler{
		statuses: []audit.CrawlJobStatus{{Status: "scraping"}},
	}
	p := newPoller(store, crawler, 3)

	err := p.PollJob(context.Background(), "job-1", "scan-1", "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrTimeout)
	assert.Equal(t, 3, crawler.statusCalls)

	row, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, audit.ScanStatusFailed, row.Status)
	assert.Equal(t, "Crawl job timed out", row.ErrorText)
}

func TestPoller_JobFailed(t *testing.T) {
	t.Parallel()
	store := memorystore.NewStore()
	newScanRow(t, store, "scan-1")

	crawler := &fakeCrawler{
		statuses: []audit.CrawlJobStatus{
			{Status: audit.CrawlJobFailed, ErrorText: "robots disallowed"},
		},
	}
	p := newPoller(store, crawler, 5)

	err := p.PollJob(context.Background(), "job-1", "scan-1", "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrUpstream)

	row, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, audit.ScanStatusFailed, row.Status)
	assert.Equal(t, "Crawl job failed: robots disallowed", row.ErrorText)
}

func TestPoller_JobFailedWithoutMessage(t *testing.T) {
	t.Parallel()
	store := memorystore.NewStore()
	newScanRow(t, store, "scan-1")

	crawler := &fakeCrawler{
		statuses: []audit.CrawlJobStatus{{Status: audit.CrawlJobFailed}},
	}
	p := newPoller(store, crawler, 5)

	err := p.PollJob(context.Background(), "job-1", "scan-1", "https://example.com")
	require.Error(t, err)

	row, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "Crawl job failed: Unknown error", row.ErrorText)
}

func TestPoller_StatusCheckErrorIsFatal(t *testing.T) {
	t.Parallel()
	store := memorystore.NewStore()
	newScanRow(t, store, "scan-1")

	crawler := &fakeCrawler{statusErr: errors.New("connection refused")}
	p := newPoller(store, crawler, 5)

	err := p.PollJob(context.Background(), "job-1", "scan-1", "https://example.com")
	require.Error(t, err)

	row, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, audit.ScanStatusFailed, row.Status)
	assert.Equal(t, "connection refused", row.ErrorText)
}
