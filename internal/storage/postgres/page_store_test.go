package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/storage/postgres"
)

func TestPageStore_InsertPage(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	page := audit.Page{
		ID:          "page-1",
		ScanID:      "scan-1",
		URL:         "https://example.com/about",
		Title:       "About",
		Content:     "# About",
		StatusCode:  200,
		ExtractedAt: now,
	}

	mock.ExpectExec("INSERT INTO pages").
		WithArgs("page-1", "scan-1", "https://example.com/about", "About", "# About", 200, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertPage(context.Background(), page))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageStore_InsertPageNullableColumns(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	page := audit.Page{
		ID:          "page-1",
		ScanID:      "scan-1",
		URL:         "https://example.com/empty",
		StatusCode:  404,
		ExtractedAt: now,
	}

	mock.ExpectExec("INSERT INTO pages").
		WithArgs("page-1", "scan-1", "https://example.com/empty", nil, nil, 404, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertPage(context.Background(), page))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageStore_GetPageID(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	mock.ExpectQuery("SELECT id FROM pages").
		WithArgs("scan-1", "https://example.com/about").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("page-1"))

	id, err := store.GetPageID(context.Background(), "scan-1", "https://example.com/about")
	require.NoError(t, err)
	assert.Equal(t, "page-1", id)
}

func TestPageStore_GetPageIDNotFound(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	mock.ExpectQuery("SELECT id FROM pages").
		WithArgs("scan-1", "https://example.com/missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetPageID(context.Background(), "scan-1", "https://example.com/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestPageStore_ListPagesByScan(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	title := "Home"
	content := "# Home"
	status := 200
	rows := pgxmock.NewRows([]string{
		"id", "scan_id", "url", "title", "content", "status_code", "extracted_at",
	}).
		AddRow("page-1", "scan-1", "https://example.com/", &title, &content, &status, now).
		AddRow("page-2", "scan-1", "https://example.com/x", (*string)(nil), (*string)(nil), (*int)(nil), now)

	mock.ExpectQuery("SELECT id, scan_id, url").
		WithArgs("scan-1").
		WillReturnRows(rows)

	pages, err := store.ListPagesByScan(context.Background(), "scan-1")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Home", pages[0].Title)
	assert.Equal(t, 200, pages[0].StatusCode)
	assert.Empty(t, pages[1].Title)
	assert.Zero(t, pages[1].StatusCode)
}

func TestPageStore_InsertPageLink(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	link := audit.PageLink{
		ID:         "link-1",
		PageID:     "page-1",
		TargetURL:  "https://example.com/about",
		IsInternal: true,
		AnchorText: "About",
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO page_links").
		WithArgs("link-1", "page-1", "https://example.com/about", true, "About", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertPageLink(context.Background(), link))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageStore_InsertLinkCheck(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := postgres.NewPageStore(mock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ok := false
	status := 404
	check := audit.LinkCheck{
		ID:         "check-1",
		PageLinkID: "link-1",
		OK:         &ok,
		StatusCode: &status,
		ErrorText:  "not found",
		CheckedAt:  now,
	}

	mock.ExpectExec("INSERT INTO link_checks").
		WithArgs("check-1", "link-1", &ok, &status, "not found", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertLinkCheck(context.Background(), check))
	require.NoError(t, mock.ExpectationsWereMet())
}
