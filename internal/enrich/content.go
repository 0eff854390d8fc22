package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/metrics"
)

// Bounds applied when building analysis prompts and fallback records.
const (
	promptContentLimit   = 3000
	fallbackExcerptLimit = 500
	fallbackScore        = 70
	analysisMaxTokens    = 1024
)

// Analyzer runs the content-analysis job: one model call per page with
// content, storing a suggestion row per page. One API failure skips that
// page only; the loop continues.
type Analyzer struct {
	pages    audit.PageStore
	insights audit.InsightStore
	gen      audit.TextGenerator
	model    string
	clock    audit.Clock
	idGen    audit.IDGenerator
	logger   *zap.Logger
}

// NewAnalyzer constructs an Analyzer. model names the generator the
// suggestion rows are attributed to.
func NewAnalyzer(
	pages audit.PageStore,
	insights audit.InsightStore,
	gen audit.TextGenerator,
	model string,
	clock audit.Clock,
	idGen audit.IDGenerator,
	logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		pages:    pages,
		insights: insights,
		gen:      gen,
		model:    model,
		clock:    clock,
		idGen:    idGen,
		logger:   logger,
	}
}

// AnalyzeScan analyzes every page with non-empty content under the scan,
// sequentially.
func (a *Analyzer) AnalyzeScan(ctx context.Context, scanID string) error {
	pages, err := a.pages.ListPagesByScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("list pages for scan %s: %w", scanID, err)
	}
	a.logger.Info("starting content analysis", zap.String("scan_id", scanID), zap.Int("pages", len(pages)))

	for _, page := range pages {
		if page.Content == "" {
			continue
		}

		text, err := a.gen.Generate(ctx, analysisPrompt(page), analysisMaxTokens)
		if err != nil {
			a.logger.Error("analysis request failed",
				zap.String("scan_id", scanID),
				zap.String("page_id", page.ID),
				zap.Error(err),
			)
			continue
		}
		if text == "" {
			continue
		}

		suggestions, ok := ExtractJSON(text)
		if !ok {
			// Degraded record carrying a raw excerpt and a placeholder score.
			suggestions = map[string]any{
				"content":       []any{Truncate(text, fallbackExcerptLimit)},
				"overall_score": fallbackScore,
			}
		}

		id, err := a.idGen.NewID()
		if err != nil {
			a.logger.Error("generate suggestion id failed", zap.String("page_id", page.ID), zap.Error(err))
			continue
		}
		row := audit.PageSuggestion{
			ID:          id,
			PageID:      page.ID,
			Model:       a.model,
			Suggestions: suggestions,
			CreatedAt:   a.clock.Now(),
		}
		if err := a.insights.InsertSuggestion(ctx, row); err != nil {
			a.logger.Error("insert suggestion failed", zap.String("page_id", page.ID), zap.Error(err))
			continue
		}
		metrics.ObserveEnrichmentRow("content_analysis")
		a.logger.Debug("analysis stored", zap.String("page_id", page.ID))
	}

	a.logger.Info("content analysis completed", zap.String("scan_id", scanID))
	return nil
}

func analysisPrompt(page audit.Page) string {
	return fmt.Sprintf(`Analyze the following web page content and provide actionable suggestions for improvement:

URL: %s
Title: %s
Content: %s...

Please provide suggestions in the following JSON format:
{
  "seo": ["suggestion 1", "suggestion 2"],
  "content": ["suggestion 1", "suggestion 2"],
  "ux": ["suggestion 1", "suggestion 2"],
  "performance": ["suggestion 1", "suggestion 2"],
  "overall_score": 75
}

Focus on:
- SEO improvements (meta tags, headers, keywords)
- Content clarity and structure
- User experience enhancements
- Performance optimizations
- Overall quality score (0-100)`,
		page.URL, page.Title, Truncate(page.Content, promptContentLimit))
}
