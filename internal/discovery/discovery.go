// Package discovery lists candidate pages for a root URL without crawling.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

var extensionPattern = regexp.MustCompile(`\.[^/.]+$`)

// Service maps a root URL to candidate pages with heuristic titles. Callers
// are expected to fall back to a full-site crawl on any failure; no retry is
// performed here.
type Service struct {
	crawler audit.CrawlClient
	logger  *zap.Logger
}

// New constructs a Service.
func New(crawler audit.CrawlClient, logger *zap.Logger) *Service {
	return &Service{
		crawler: crawler,
		logger:  logger,
	}
}

// Discover returns up to the configured limit of candidate page URLs with a
// path-derived title and a generic description.
func (s *Service) Discover(ctx context.Context, rootURL string) ([]audit.DiscoveredPage, error) {
	links, err := s.crawler.Map(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("map site: %w", err)
	}
	s.logger.Info("discovered pages", zap.String("url", rootURL), zap.Int("count", len(links)))

	pages := make([]audit.DiscoveredPage, 0, len(links))
	for _, link := range links {
		pages = append(pages, audit.DiscoveredPage{
			URL:         link,
			Title:       TitleFromURL(link),
			Description: "Page found at " + link,
		})
	}
	return pages, nil
}

// TitleFromURL derives a human-readable title from a URL path: the last
// segment, extension stripped, dashes and underscores turned into spaces,
// each word capitalized.
func TitleFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "Unknown Page"
	}

	cleanPath := strings.TrimPrefix(parsed.Path, "/")
	cleanPath = extensionPattern.ReplaceAllString(cleanPath, "")
	if cleanPath == "" {
		return "Home Page"
	}

	segments := strings.Split(cleanPath, "/")
	last := segments[len(segments)-1]

	words := strings.FieldsFunc(last, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	title := strings.Join(words, " ")
	if title == "" {
		return "Unknown Page"
	}
	return title
}
