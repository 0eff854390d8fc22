// Package scan implements crawl orchestration: strategy selection, job
// polling, and page persistence.
package scan

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/metrics"
)

// Persister writes crawled pages and their extracted links into the store.
// Persistence failures are logged and swallowed; a single page's or link's
// failure never aborts the surrounding crawl loop.
type Persister struct {
	pages  audit.PageStore
	clock  audit.Clock
	idGen  audit.IDGenerator
	logger *zap.Logger
}

// NewPersister constructs a Persister.
func NewPersister(pages audit.PageStore, clock audit.Clock, idGen audit.IDGenerator, logger *zap.Logger) *Persister {
	return &Persister{
		pages:  pages,
		clock:  clock,
		idGen:  idGen,
		logger: logger,
	}
}

// ProcessPage inserts one page row and, when the raw page carries an
// outbound-link list, one link row per outbound link. Metadata-reported
// URL/title/status win over the top-level fields; rendered markdown wins
// over raw content.
func (p *Persister) ProcessPage(ctx context.Context, raw audit.CrawledPage, scanID, baseURL string) {
	pageURL := raw.URL
	title := ""
	statusCode := 200
	if raw.Metadata != nil {
		if raw.Metadata.URL != "" {
			pageURL = raw.Metadata.URL
		}
		title = raw.Metadata.Title
		if raw.Metadata.StatusCode != 0 {
			statusCode = raw.Metadata.StatusCode
		}
	}
	content := raw.Markdown
	if content == "" {
		content = raw.Content
	}

	pageID, err := p.idGen.NewID()
	if err != nil {
		p.logger.Error("generate page id failed", zap.String("scan_id", scanID), zap.Error(err))
		return
	}
	page := audit.Page{
		ID:          pageID,
		ScanID:      scanID,
		URL:         pageURL,
		Title:       title,
		Content:     content,
		StatusCode:  statusCode,
		ExtractedAt: p.clock.Now(),
	}
	if err := p.pages.InsertPage(ctx, page); err != nil {
		p.logger.Error("insert page failed",
			zap.String("scan_id", scanID),
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return
	}
	metrics.ObservePagePersisted()

	if raw.Metadata == nil || len(raw.Metadata.Links) == 0 {
		return
	}

	// The insert does not return generated keys inline, so the parent id is
	// read back by scan id + url.
	parentID, err := p.pages.GetPageID(ctx, scanID, pageURL)
	if err != nil {
		p.logger.Error("page id lookup failed",
			zap.String("scan_id", scanID),
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return
	}

	host := hostname(baseURL)
	for _, link := range raw.Metadata.Links {
		linkID, err := p.idGen.NewID()
		if err != nil {
			p.logger.Error("generate link id failed", zap.String("page_id", parentID), zap.Error(err))
			continue
		}
		row := audit.PageLink{
			ID:         linkID,
			PageID:     parentID,
			TargetURL:  link.Href,
			IsInternal: isInternal(link.Href, host),
			AnchorText: link.Text,
			CreatedAt:  p.clock.Now(),
		}
		if err := p.pages.InsertPageLink(ctx, row); err != nil {
			p.logger.Error("insert page link failed",
				zap.String("page_id", parentID),
				zap.String("target_url", link.Href),
				zap.Error(err),
			)
			continue
		}
		metrics.ObservePageLinkPersisted()
	}
}

// isInternal classifies a link by substring match of the base hostname
// against the href. A link to an unrelated domain that happens to contain
// the hostname as a substring misclassifies as internal; preserved on
// purpose pending a stricter comparison.
func isInternal(href, host string) bool {
	if host == "" {
		return false
	}
	return strings.Contains(href, host)
}

func hostname(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
