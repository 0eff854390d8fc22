// Package audit defines core types shared across subsystems.
package audit

import "time"

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

// Scan status values persisted in the scan store. Terminal states never
// revert to crawling.
const (
	ScanStatusCrawling  ScanStatus = "crawling"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Scan is one user-initiated audit run against a root URL.
type Scan struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	URL          string     `json:"url"`
	Status       ScanStatus `json:"status"`
	IsSelective  bool       `json:"is_selective"`
	SelectedURLs []string   `json:"selected_urls,omitempty"`
	ErrorText    string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Page is one crawled URL under a scan. Rows are immutable once written.
type Page struct {
	ID          string    `json:"id"`
	ScanID      string    `json:"scan_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// PageLink is one outbound link extracted from a page.
type PageLink struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	TargetURL  string    `json:"target_url"`
	IsInternal bool      `json:"is_internal"`
	AnchorText string    `json:"anchor_text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PageSuggestion holds model-produced improvement suggestions for a page.
// The suggestions payload is opaque structured JSON; its internal shape is
// produced by the upstream model and not schema-validated.
type PageSuggestion struct {
	ID          string         `json:"id"`
	PageID      string         `json:"page_id"`
	Model       string         `json:"model"`
	Suggestions map[string]any `json:"suggestions"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MarketInsight holds one market-research result for a scan. Each research
// invocation appends a row, including error-sentinel rows when upstream APIs
// fail.
type MarketInsight struct {
	ID        string         `json:"id"`
	ScanID    string         `json:"scan_id"`
	Model     string         `json:"model,omitempty"`
	Insights  map[string]any `json:"insights"`
	Sources   []Source       `json:"sources"`
	CreatedAt time.Time      `json:"created_at"`
}

// Source is one search result contributing to a market insight.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// LinkCheck is reserved for a future link-validation pass. The table exists
// but no enumerated workflow populates it yet.
type LinkCheck struct {
	ID         string    `json:"id"`
	PageLinkID string    `json:"page_link_id"`
	OK         *bool     `json:"ok,omitempty"`
	StatusCode *int      `json:"status_code,omitempty"`
	ErrorText  string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// DiscoveredPage is a candidate URL returned by page discovery.
type DiscoveredPage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskKind identifies the background work a queued task carries.
type TaskKind string

// Task kinds executed by the worker pool.
const (
	TaskCrawl    TaskKind = "crawl"
	TaskAnalyze  TaskKind = "analyze"
	TaskResearch TaskKind = "research"
)

// Task is one unit of detached background work keyed by scan id.
type Task struct {
	Kind         TaskKind `json:"kind"`
	ScanID       string   `json:"scan_id"`
	URL          string   `json:"url,omitempty"`
	SelectedURLs []string `json:"selected_urls,omitempty"`
	IsSelective  bool     `json:"is_selective,omitempty"`
	Submitted    int64    `json:"submitted"`
}

// CrawledPage is the raw page payload returned by the crawling API.
// Metadata-reported fields take precedence over the top-level ones when
// present.
type CrawledPage struct {
	URL      string         `json:"url"`
	Markdown string         `json:"markdown"`
	Content  string         `json:"content"`
	Metadata *CrawlMetadata `json:"metadata,omitempty"`
}

// CrawlMetadata carries per-page metadata reported by the crawling API.
type CrawlMetadata struct {
	URL        string        `json:"url"`
	Title      string        `json:"title"`
	StatusCode int           `json:"statusCode"`
	Links      []CrawledLink `json:"links"`
}

// CrawledLink is one outbound link reported in page metadata.
type CrawledLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// CrawlSubmission is the result of submitting a full-site crawl. A non-empty
// JobID means the upstream accepted the crawl asynchronously and must be
// polled; otherwise Pages holds the synchronous payload.
type CrawlSubmission struct {
	JobID string
	Pages []CrawledPage
}

// Async reports whether the submission requires polling.
func (s CrawlSubmission) Async() bool {
	return s.JobID != ""
}

// Crawl job status values reported by the crawling API.
const (
	CrawlJobCompleted = "completed"
	CrawlJobFailed    = "failed"
)

// CrawlJobStatus is one poll observation of an asynchronous crawl job.
type CrawlJobStatus struct {
	Status    string
	Completed int
	Total     int
	ErrorText string
	Pages     []CrawledPage
}
