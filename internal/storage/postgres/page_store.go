package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// PageStore persists pages, page links, and link checks.
type PageStore struct {
	db DB
}

// NewPageStore constructs a PageStore over a pool.
func NewPageStore(db DB) *PageStore {
	return &PageStore{db: db}
}

const insertPageSQL = `
INSERT INTO pages (
	id,
	scan_id,
	url,
	title,
	content,
	status_code,
	extracted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`

// InsertPage inserts one page row. Pages are immutable once written.
func (s *PageStore) InsertPage(ctx context.Context, page audit.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page id is required: %w", audit.ErrValidation)
	}
	args := []any{
		page.ID,
		page.ScanID,
		page.URL,
		nullIfEmpty(page.Title),
		nullIfEmpty(page.Content),
		page.StatusCode,
		page.ExtractedAt,
	}
	if _, err := s.db.Exec(ctx, insertPageSQL, args...); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

const selectPageIDSQL = `
SELECT id FROM pages WHERE scan_id = $1 AND url = $2`

// GetPageID looks a page id back up by scan id and url.
func (s *PageStore) GetPageID(ctx context.Context, scanID, url string) (string, error) {
	var id string
	if err := s.db.QueryRow(ctx, selectPageIDSQL, scanID, url).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("page for scan %s url %s: %w", scanID, url, audit.ErrNotFound)
		}
		return "", fmt.Errorf("select page id: %w", err)
	}
	return id, nil
}

const selectPagesByScanSQL = `
SELECT id, scan_id, url, title, content, status_code, extracted_at
FROM pages WHERE scan_id = $1 ORDER BY extracted_at`

// ListPagesByScan returns every page under the scan in persistence order.
func (s *PageStore) ListPagesByScan(ctx context.Context, scanID string) ([]audit.Page, error) {
	rows, err := s.db.Query(ctx, selectPagesByScanSQL, scanID)
	if err != nil {
		return nil, fmt.Errorf("select pages: %w", err)
	}
	defer rows.Close()

	var pages []audit.Page
	for rows.Next() {
		var (
			page    audit.Page
			title   *string
			content *string
			status  *int
		)
		if err := rows.Scan(
			&page.ID,
			&page.ScanID,
			&page.URL,
			&title,
			&content,
			&status,
			&page.ExtractedAt,
		); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		if title != nil {
			page.Title = *title
		}
		if content != nil {
			page.Content = *content
		}
		if status != nil {
			page.StatusCode = *status
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

const insertPageLinkSQL = `
INSERT INTO page_links (
	id,
	page_id,
	target_url,
	is_internal,
	anchor_text,
	created_at
) VALUES ($1,$2,$3,$4,$5,$6)`

// InsertPageLink inserts one outbound link row.
func (s *PageStore) InsertPageLink(ctx context.Context, link audit.PageLink) error {
	if link.ID == "" {
		return fmt.Errorf("page link id is required: %w", audit.ErrValidation)
	}
	args := []any{
		link.ID,
		link.PageID,
		link.TargetURL,
		link.IsInternal,
		nullIfEmpty(link.AnchorText),
		link.CreatedAt,
	}
	if _, err := s.db.Exec(ctx, insertPageLinkSQL, args...); err != nil {
		return fmt.Errorf("insert page link: %w", err)
	}
	return nil
}

const insertLinkCheckSQL = `
INSERT INTO link_checks (
	id,
	page_link_id,
	ok,
	status_code,
	error,
	checked_at
) VALUES ($1,$2,$3,$4,$5,$6)`

// InsertLinkCheck inserts one link-check row. Reserved for a future
// link-validation pass; no workflow calls it yet.
func (s *PageStore) InsertLinkCheck(ctx context.Context, check audit.LinkCheck) error {
	if check.ID == "" {
		return fmt.Errorf("link check id is required: %w", audit.ErrValidation)
	}
	args := []any{
		check.ID,
		check.PageLinkID,
		check.OK,
		check.StatusCode,
		nullIfEmpty(check.ErrorText),
		check.CheckedAt,
	}
	if _, err := s.db.Exec(ctx, insertLinkCheckSQL, args...); err != nil {
		return fmt.Errorf("insert link check: %w", err)
	}
	return nil
}
