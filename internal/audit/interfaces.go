package audit

import (
	"context"
	"time"
)

// ScanStore persists scan rows. Status is the single source of truth for
// crawl progress and only moves crawling -> completed or crawling -> failed.
type ScanStore interface {
	CreateScan(ctx context.Context, scan Scan) error
	UpdateScanStatus(ctx context.Context, scanID string, status ScanStatus, errText string) error
	GetScan(ctx context.Context, scanID string) (Scan, error)
	ListScansByUser(ctx context.Context, userID string) ([]Scan, error)
}

// PageStore persists pages, their outbound links, and link-check results.
type PageStore interface {
	InsertPage(ctx context.Context, page Page) error
	// GetPageID looks a page id back up by scan id and url; the persister
	// relies on it because inserts do not return generated keys inline.
	GetPageID(ctx context.Context, scanID, url string) (string, error)
	ListPagesByScan(ctx context.Context, scanID string) ([]Page, error)
	InsertPageLink(ctx context.Context, link PageLink) error
	InsertLinkCheck(ctx context.Context, check LinkCheck) error
}

// InsightStore persists enrichment results.
type InsightStore interface {
	InsertSuggestion(ctx context.Context, suggestion PageSuggestion) error
	InsertInsight(ctx context.Context, insight MarketInsight) error
	ListInsightsByScan(ctx context.Context, scanID string) ([]MarketInsight, error)
}

// TaskQueue provides enqueue/dequeue semantics for background tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// CrawlClient talks to the external crawling API.
type CrawlClient interface {
	// Map lists candidate page URLs under a root URL without fetching content.
	Map(ctx context.Context, url string) ([]string, error)
	// Scrape fetches a single page.
	Scrape(ctx context.Context, url string) (CrawledPage, error)
	// SubmitCrawl kicks off a full-site crawl.
	SubmitCrawl(ctx context.Context, url string) (CrawlSubmission, error)
	// JobStatus checks an asynchronous crawl job.
	JobStatus(ctx context.Context, jobID string) (CrawlJobStatus, error)
}

// TextGenerator produces free-form text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// SearchClient runs one search query against the external search API.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]Source, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces row IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
