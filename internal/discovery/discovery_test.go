// Package discovery_test contains unit tests for the discovery package.
package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/discovery"
)

type fakeMapper struct {
	links []string
	err   error
}

func (f *fakeMapper) Map(_ context.Context, _ string) ([]string, error) {
	return f.links, f.err
}

func (f *fakeMapper) Scrape(_ context.Context, _ string) (audit.CrawledPage, error) {
	return audit.CrawledPage{}, errors.New("not implemented")
}

func (f *fakeMapper) SubmitCrawl(_ context.Context, _ string) (audit.CrawlSubmission, error) {
	return audit.CrawlSubmission{}, errors.New("not implemented")
}

func (f *fakeMapper) JobStatus(_ context.Context, _ string) (audit.CrawlJobStatus, error) {
	return audit.CrawlJobStatus{}, errors.New("not implemented")
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	crawler := &fakeMapper{links: []string{
		"https://example.com/",
		"https://example.com/about-us",
	}}
	svc := discovery.New(crawler, zap.NewNop())

	pages, err := svc.Discover(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "Home Page", pages[0].Title)
	assert.Equal(t, "Page found at https://example.com/", pages[0].Description)
	assert.Equal(t, "About Us", pages[1].Title)
}

func TestDiscover_MapFailure(t *testing.T) {
	t.Parallel()
	crawler := &fakeMapper{err: errors.New("upstream unavailable")}
	svc := discovery.New(crawler, zap.NewNop())

	pages, err := svc.Discover(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Nil(t, pages)
}

func TestTitleFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/", "Home Page"},
		{"https://example.com", "Home Page"},
		{"https://example.com/about", "About"},
		{"https://example.com/about-us", "About Us"},
		{"https://example.com/docs/getting_started", "Getting Started"},
		{"https://example.com/blog/my-first-post.html", "My First Post"},
		{"https://example.com/index.php", "Index"},
		{"https://example.com/a/b/c", "C"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, discovery.TitleFromURL(tt.url))
		})
	}
}
