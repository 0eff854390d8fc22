// Package firecrawl implements audit.CrawlClient against the Firecrawl API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// Config controls the Firecrawl client. PageLimit caps full-site crawls,
// MapLimit caps page discovery.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	PageLimit int
	MapLimit  int
}

// Client calls the Firecrawl map/scrape/crawl endpoints.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// New constructs a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = 50
	}
	if cfg.MapLimit == 0 {
		cfg.MapLimit = cfg.PageLimit
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

type mapRequest struct {
	URL               string `json:"url"`
	Search            string `json:"search"`
	IgnoreSitemap     bool   `json:"ignoreSitemap"`
	IncludeSubdomains bool   `json:"includeSubdomains"`
	Limit             int    `json:"limit"`
}

type mapResponse struct {
	Success bool     `json:"success"`
	Links   []string `json:"links"`
	Error   string   `json:"error"`
}

// Map lists candidate page URLs under a root URL without fetching content.
func (c *Client) Map(ctx context.Context, url string) ([]string, error) {
	body := mapRequest{
		URL:   url,
		Limit: c.cfg.MapLimit,
	}
	var resp mapResponse
	if err := c.post(ctx, "/v1/map", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("page discovery failed: %s: %w", resp.Error, audit.ErrUpstream)
	}
	return resp.Links, nil
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool               `json:"success"`
	Data    *audit.CrawledPage `json:"data"`
	Error   string             `json:"error"`
}

// Scrape fetches a single page with markdown, html and link extraction.
func (c *Client) Scrape(ctx context.Context, url string) (audit.CrawledPage, error) {
	body := scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown", "html", "links"},
		OnlyMainContent: true,
	}
	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", body, &resp); err != nil {
		return audit.CrawledPage{}, err
	}
	if !resp.Success || resp.Data == nil {
		return audit.CrawledPage{}, fmt.Errorf("scrape failed: %s: %w", resp.Error, audit.ErrUpstream)
	}
	return *resp.Data, nil
}

type crawlRequest struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type crawlResponse struct {
	Success bool                `json:"success"`
	ID      string              `json:"id"`
	URL     string              `json:"url"`
	Data    []audit.CrawledPage `json:"data"`
	Error   string              `json:"error"`
}

// SubmitCrawl kicks off a full-site crawl. The upstream either returns page
// data inline or an opaque job id to poll.
func (c *Client) SubmitCrawl(ctx context.Context, url string) (audit.CrawlSubmission, error) {
	body := crawlRequest{
		URL:   url,
		Limit: c.cfg.PageLimit,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown", "html", "links"},
			OnlyMainContent: true,
		},
	}
	var resp crawlResponse
	if err := c.post(ctx, "/v1/crawl", body, &resp); err != nil {
		return audit.CrawlSubmission{}, err
	}
	if !resp.Success {
		return audit.CrawlSubmission{}, fmt.Errorf("crawl failed: %s: %w", resp.Error, audit.ErrUpstream)
	}
	// An id together with a status URL marks an asynchronous crawl.
	if resp.ID != "" && resp.URL != "" {
		return audit.CrawlSubmission{JobID: resp.ID}, nil
	}
	return audit.CrawlSubmission{Pages: resp.Data}, nil
}

type jobStatusResponse struct {
	Status    string              `json:"status"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Data      []audit.CrawledPage `json:"data"`
	Error     string              `json:"error"`
}

// JobStatus checks an asynchronous crawl job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (audit.CrawlJobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/crawl/"+jobID, nil)
	if err != nil {
		return audit.CrawlJobStatus{}, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return audit.CrawlJobStatus{}, fmt.Errorf("status check: %w", err)
	}
	defer drainAndClose(httpResp.Body)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return audit.CrawlJobStatus{}, fmt.Errorf("status check failed: %d: %w", httpResp.StatusCode, audit.ErrUpstream)
	}

	var resp jobStatusResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return audit.CrawlJobStatus{}, fmt.Errorf("decode status response: %w", err)
	}
	return audit.CrawlJobStatus{
		Status:    resp.Status,
		Completed: resp.Completed,
		Total:     resp.Total,
		ErrorText: resp.Error,
		Pages:     resp.Data,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer drainAndClose(httpResp.Body)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("firecrawl api error: %d: %w", httpResp.StatusCode, audit.ErrUpstream)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
