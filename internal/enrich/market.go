package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/metrics"
)

const researchMaxTokens = 2048

// Error text stored when every search query comes back empty.
const noResearchDataError = "No research data available from Tavily API"

// Researcher runs the market-research job: four templated searches off the
// scan's domain, then one synthesis call over the aggregate. Every stage
// degrades to a stored fallback row rather than failing silently.
type Researcher struct {
	scans         audit.ScanStore
	insights      audit.InsightStore
	search        audit.SearchClient
	gen           audit.TextGenerator
	model         string
	sentinelModel string
	clock         audit.Clock
	idGen         audit.IDGenerator
	logger        *zap.Logger
}

// NewResearcher constructs a Researcher. model attributes successful
// synthesis rows; sentinelModel attributes error-sentinel and fallback rows.
func NewResearcher(
	scans audit.ScanStore,
	insights audit.InsightStore,
	search audit.SearchClient,
	gen audit.TextGenerator,
	model, sentinelModel string,
	clock audit.Clock,
	idGen audit.IDGenerator,
	logger *zap.Logger,
) *Researcher {
	return &Researcher{
		scans:         scans,
		insights:      insights,
		search:        search,
		gen:           gen,
		model:         model,
		sentinelModel: sentinelModel,
		clock:         clock,
		idGen:         idGen,
		logger:        logger,
	}
}

// ResearchScan gathers and synthesizes market research for the scan's domain.
func (r *Researcher) ResearchScan(ctx context.Context, scanID string) error {
	scanRow, err := r.scans.GetScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("fetch scan %s: %w", scanID, err)
	}

	domain := hostnameOf(scanRow.URL)
	queries := researchQueries(domain)

	var allSources []audit.Source
	researchData := make(map[string][]audit.Source)
	succeeded := 0

	r.logger.Info("starting market research",
		zap.String("scan_id", scanID),
		zap.String("domain", domain),
		zap.Int("queries", len(queries)),
	)
	for _, query := range queries {
		results, err := r.search.Search(ctx, query)
		if err != nil {
			r.logger.Error("search query failed", zap.String("query", query), zap.Error(err))
			continue
		}
		if len(results) == 0 {
			r.logger.Warn("search query returned no results", zap.String("query", query))
			continue
		}
		allSources = append(allSources, results...)
		researchData[query] = results
		succeeded++
	}
	r.logger.Info("search stage completed",
		zap.String("scan_id", scanID),
		zap.Int("succeeded", succeeded),
		zap.Int("sources", len(allSources)),
	)

	if len(allSources) == 0 {
		// Record that the attempt was made but yielded nothing.
		return r.store(ctx, scanID, r.sentinelModel,
			map[string]any{"error": noResearchDataError},
			[]audit.Source{},
		)
	}

	text, err := r.gen.Generate(ctx, researchPrompt(scanRow.URL, researchData), researchMaxTokens)
	if err != nil {
		r.logger.Error("synthesis failed, storing raw research data",
			zap.String("scan_id", scanID),
			zap.Error(err),
		)
		return r.store(ctx, scanID, r.sentinelModel,
			map[string]any{
				"error":             "Gemini analysis failed",
				"raw_research_data": rawResearchData(researchData),
			},
			allSources,
		)
	}
	if text == "" {
		return r.store(ctx, scanID, r.sentinelModel,
			map[string]any{"error": "No analysis text returned from Gemini"},
			allSources,
		)
	}

	insights, ok := ExtractJSON(text)
	if !ok {
		insights = map[string]any{"raw_analysis": text}
	}
	return r.store(ctx, scanID, r.model, insights, allSources)
}

func (r *Researcher) store(ctx context.Context, scanID, model string, insights map[string]any, sources []audit.Source) error {
	id, err := r.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate insight id: %w", err)
	}
	row := audit.MarketInsight{
		ID:        id,
		ScanID:    scanID,
		Model:     model,
		Insights:  insights,
		Sources:   sources,
		CreatedAt: r.clock.Now(),
	}
	if err := r.insights.InsertInsight(ctx, row); err != nil {
		return fmt.Errorf("insert market insight for scan %s: %w", scanID, err)
	}
	metrics.ObserveEnrichmentRow("market_research")
	r.logger.Info("market insight stored", zap.String("scan_id", scanID), zap.String("model", model))
	return nil
}

func researchQueries(domain string) []string {
	return []string{
		fmt.Sprintf("competitors of %s", domain),
		fmt.Sprintf("%s industry trends 2024", domain),
		fmt.Sprintf("best practices %s industry", domain),
		fmt.Sprintf("customer pain points %s niche", domain),
	}
}

func researchPrompt(scanURL string, researchData map[string][]audit.Source) string {
	encoded, err := json.MarshalIndent(researchData, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf(`Based on the following market research data, provide insights for the website %s:

Research Data: %s

Please analyze and provide insights in the following JSON format:
{
  "competitors": [
    {"name": "Competitor 1", "strengths": ["strength 1"], "website": "url"}
  ],
  "trending_topics": ["topic 1", "topic 2"],
  "market_gaps": ["gap 1", "gap 2"],
  "content_opportunities": ["opportunity 1", "opportunity 2"],
  "seo_keywords": ["keyword 1", "keyword 2"],
  "industry_insights": ["insight 1", "insight 2"]
}

Focus on actionable insights that can help improve the website's competitive position.`,
		scanURL, encoded)
}

// rawResearchData re-shapes the per-query results for the fallback insights
// payload, which is stored as opaque JSON.
func rawResearchData(researchData map[string][]audit.Source) map[string]any {
	out := make(map[string]any, len(researchData))
	for query, sources := range researchData {
		out[query] = sources
	}
	return out
}

func hostnameOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.Hostname() == "" {
		return raw
	}
	return parsed.Hostname()
}
