// Package memory provides in-memory store implementations for local
// development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// Store implements every store interface over process-local maps.
type Store struct {
	mu          sync.RWMutex
	scans       map[string]audit.Scan
	pages       map[string][]audit.Page         // keyed by scan id
	links       map[string][]audit.PageLink     // keyed by page id
	checks      map[string][]audit.LinkCheck    // keyed by page link id
	suggestions map[string][]audit.PageSuggestion
	insights    map[string][]audit.MarketInsight // keyed by scan id
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		scans:       make(map[string]audit.Scan),
		pages:       make(map[string][]audit.Page),
		links:       make(map[string][]audit.PageLink),
		checks:      make(map[string][]audit.LinkCheck),
		suggestions: make(map[string][]audit.PageSuggestion),
		insights:    make(map[string][]audit.MarketInsight),
	}
}

// CreateScan stores a new scan row.
func (s *Store) CreateScan(_ context.Context, scan audit.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scans[scan.ID]; exists {
		return fmt.Errorf("scan %s already exists", scan.ID)
	}
	s.scans[scan.ID] = scan
	return nil
}

// UpdateScanStatus updates status and error text for a scan.
func (s *Store) UpdateScanStatus(_ context.Context, scanID string, status audit.ScanStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[scanID]
	if !ok {
		return fmt.Errorf("scan %s: %w", scanID, audit.ErrNotFound)
	}
	scan.Status = status
	scan.ErrorText = errText
	scan.UpdatedAt = time.Now().UTC()
	s.scans[scanID] = scan
	return nil
}

// GetScan fetches a scan by id.
func (s *Store) GetScan(_ context.Context, scanID string) (audit.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, ok := s.scans[scanID]
	if !ok {
		return audit.Scan{}, fmt.Errorf("scan %s: %w", scanID, audit.ErrNotFound)
	}
	return scan, nil
}

// ListScansByUser returns all scans owned by the user.
func (s *Store) ListScansByUser(_ context.Context, userID string) ([]audit.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scans []audit.Scan
	for _, scan := range s.scans {
		if scan.UserID == userID {
			scans = append(scans, scan)
		}
	}
	return scans, nil
}

// InsertPage appends a page row under its scan.
func (s *Store) InsertPage(_ context.Context, page audit.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page.ScanID] = append(s.pages[page.ScanID], page)
	return nil
}

// GetPageID looks a page id up by scan id and url.
func (s *Store) GetPageID(_ context.Context, scanID, url string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, page := range s.pages[scanID] {
		if page.URL == url {
			return page.ID, nil
		}
	}
	return "", fmt.Errorf("page for scan %s url %s: %w", scanID, url, audit.ErrNotFound)
}

// ListPagesByScan returns the pages under a scan in insertion order.
func (s *Store) ListPagesByScan(_ context.Context, scanID string) ([]audit.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := s.pages[scanID]
	out := make([]audit.Page, len(pages))
	copy(out, pages)
	return out, nil
}

// InsertPageLink appends a link row under its page.
func (s *Store) InsertPageLink(_ context.Context, link audit.PageLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.PageID] = append(s.links[link.PageID], link)
	return nil
}

// ListLinksByPage returns the links under a page in insertion order.
func (s *Store) ListLinksByPage(_ context.Context, pageID string) ([]audit.PageLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := s.links[pageID]
	out := make([]audit.PageLink, len(links))
	copy(out, links)
	return out, nil
}

// InsertLinkCheck appends a link-check row under its link.
func (s *Store) InsertLinkCheck(_ context.Context, check audit.LinkCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[check.PageLinkID] = append(s.checks[check.PageLinkID], check)
	return nil
}

// InsertSuggestion appends a suggestion row under its page.
func (s *Store) InsertSuggestion(_ context.Context, suggestion audit.PageSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions[suggestion.PageID] = append(s.suggestions[suggestion.PageID], suggestion)
	return nil
}

// ListSuggestionsByPage returns the suggestion rows under a page.
func (s *Store) ListSuggestionsByPage(_ context.Context, pageID string) ([]audit.PageSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	suggestions := s.suggestions[pageID]
	out := make([]audit.PageSuggestion, len(suggestions))
	copy(out, suggestions)
	return out, nil
}

// InsertInsight appends an insight row under its scan.
func (s *Store) InsertInsight(_ context.Context, insight audit.MarketInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[insight.ScanID] = append(s.insights[insight.ScanID], insight)
	return nil
}

// ListInsightsByScan returns the insight rows under a scan.
func (s *Store) ListInsightsByScan(_ context.Context, scanID string) ([]audit.MarketInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	insights := s.insights[scanID]
	out := make([]audit.MarketInsight, len(insights))
	copy(out, insights)
	return out, nil
}
