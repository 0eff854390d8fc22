package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// InsightStore persists enrichment rows: page suggestions and market
// insights. Payload columns hold opaque structured JSON produced by the
// upstream model; they are stored as-is, not schema-validated.
type InsightStore struct {
	db DB
}

// NewInsightStore constructs an InsightStore over a pool.
func NewInsightStore(db DB) *InsightStore {
	return &InsightStore{db: db}
}

const insertSuggestionSQL = `
INSERT INTO page_suggestions (
	id,
	page_id,
	model,
	suggestions,
	created_at
) VALUES ($1,$2,$3,$4,$5)`

// InsertSuggestion inserts one page suggestion row.
func (s *InsightStore) InsertSuggestion(ctx context.Context, suggestion audit.PageSuggestion) error {
	if suggestion.ID == "" {
		return fmt.Errorf("suggestion id is required: %w", audit.ErrValidation)
	}
	payload, err := json.Marshal(suggestion.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	args := []any{
		suggestion.ID,
		suggestion.PageID,
		suggestion.Model,
		payload,
		suggestion.CreatedAt,
	}
	if _, err := s.db.Exec(ctx, insertSuggestionSQL, args...); err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

const insertInsightSQL = `
INSERT INTO market_insights (
	id,
	scan_id,
	model,
	insights,
	sources,
	created_at
) VALUES ($1,$2,$3,$4,$5,$6)`

// InsertInsight appends one market insight row for a scan.
func (s *InsightStore) InsertInsight(ctx context.Context, insight audit.MarketInsight) error {
	if insight.ID == "" {
		return fmt.Errorf("insight id is required: %w", audit.ErrValidation)
	}
	insights, err := json.Marshal(insight.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}
	sources, err := json.Marshal(insight.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	args := []any{
		insight.ID,
		insight.ScanID,
		nullIfEmpty(insight.Model),
		insights,
		sources,
		insight.CreatedAt,
	}
	if _, err := s.db.Exec(ctx, insertInsightSQL, args...); err != nil {
		return fmt.Errorf("insert market insight: %w", err)
	}
	return nil
}

const selectInsightsByScanSQL = `
SELECT id, scan_id, model, insights, sources, created_at
FROM market_insights WHERE scan_id = $1 ORDER BY created_at`

// ListInsightsByScan returns every market insight row for a scan, oldest
// first.
func (s *InsightStore) ListInsightsByScan(ctx context.Context, scanID string) ([]audit.MarketInsight, error) {
	rows, err := s.db.Query(ctx, selectInsightsByScanSQL, scanID)
	if err != nil {
		return nil, fmt.Errorf("select market insights: %w", err)
	}
	defer rows.Close()

	var insights []audit.MarketInsight
	for rows.Next() {
		var (
			row      audit.MarketInsight
			model    *string
			payload  []byte
			srcBytes []byte
		)
		if err := rows.Scan(
			&row.ID,
			&row.ScanID,
			&model,
			&payload,
			&srcBytes,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan insight row: %w", err)
		}
		if model != nil {
			row.Model = *model
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &row.Insights); err != nil {
				return nil, fmt.Errorf("unmarshal insights: %w", err)
			}
		}
		if len(srcBytes) > 0 {
			if err := json.Unmarshal(srcBytes, &row.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		insights = append(insights, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return insights, nil
}
