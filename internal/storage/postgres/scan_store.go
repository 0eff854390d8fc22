package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// ScanStore persists scan rows in the scans table.
type ScanStore struct {
	db DB
}

// NewScanStore constructs a ScanStore over a pool.
func NewScanStore(db DB) *ScanStore {
	return &ScanStore{db: db}
}

const insertScanSQL = `
INSERT INTO scans (
	id,
	user_id,
	url,
	status,
	is_selective,
	selected_urls,
	error,
	created_at,
	updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

// CreateScan inserts a scan row.
func (s *ScanStore) CreateScan(ctx context.Context, scan audit.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("scan id is required: %w", audit.ErrValidation)
	}
	selected, err := marshalSelectedURLs(scan.SelectedURLs)
	if err != nil {
		return err
	}
	args := []any{
		scan.ID,
		scan.UserID,
		scan.URL,
		string(scan.Status),
		scan.IsSelective,
		selected,
		nullIfEmpty(scan.ErrorText),
		scan.CreatedAt,
		scan.UpdatedAt,
	}
	if _, err := s.db.Exec(ctx, insertScanSQL, args...); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

const updateScanStatusSQL = `
UPDATE scans SET status = $2, error = $3, updated_at = now() WHERE id = $1`

// UpdateScanStatus moves a scan to a new status, recording error text for
// failures.
func (s *ScanStore) UpdateScanStatus(ctx context.Context, scanID string, status audit.ScanStatus, errText string) error {
	tag, err := s.db.Exec(ctx, updateScanStatusSQL, scanID, string(status), nullIfEmpty(errText))
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scan %s: %w", scanID, audit.ErrNotFound)
	}
	return nil
}

const selectScanSQL = `
SELECT id, user_id, url, status, is_selective, selected_urls, error, created_at, updated_at
FROM scans WHERE id = $1`

// GetScan fetches one scan by id.
func (s *ScanStore) GetScan(ctx context.Context, scanID string) (audit.Scan, error) {
	row := s.db.QueryRow(ctx, selectScanSQL, scanID)
	scan, err := scanScanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Scan{}, fmt.Errorf("scan %s: %w", scanID, audit.ErrNotFound)
		}
		return audit.Scan{}, fmt.Errorf("select scan: %w", err)
	}
	return scan, nil
}

const selectScansByUserSQL = `
SELECT id, user_id, url, status, is_selective, selected_urls, error, created_at, updated_at
FROM scans WHERE user_id = $1 ORDER BY created_at DESC`

// ListScansByUser returns the user's scans, newest first.
func (s *ScanStore) ListScansByUser(ctx context.Context, userID string) ([]audit.Scan, error) {
	rows, err := s.db.Query(ctx, selectScansByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("select scans: %w", err)
	}
	defer rows.Close()

	var scans []audit.Scan
	for rows.Next() {
		scan, err := scanScanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

func scanScanRow(row pgx.Row) (audit.Scan, error) {
	var (
		scan     audit.Scan
		status   string
		selected []byte
		errText  *string
	)
	if err := row.Scan(
		&scan.ID,
		&scan.UserID,
		&scan.URL,
		&status,
		&scan.IsSelective,
		&selected,
		&errText,
		&scan.CreatedAt,
		&scan.UpdatedAt,
	); err != nil {
		return audit.Scan{}, err
	}
	scan.Status = audit.ScanStatus(status)
	if errText != nil {
		scan.ErrorText = *errText
	}
	if len(selected) > 0 {
		if err := json.Unmarshal(selected, &scan.SelectedURLs); err != nil {
			return audit.Scan{}, fmt.Errorf("unmarshal selected_urls: %w", err)
		}
	}
	return scan, nil
}

func marshalSelectedURLs(urls []string) (any, error) {
	if urls == nil {
		return nil, nil
	}
	payload, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshal selected_urls: %w", err)
	}
	return payload, nil
}
