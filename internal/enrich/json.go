// Package enrich implements the content-analysis and market-research jobs
// that augment a scan with model-derived insights.
package enrich

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// ExtractJSON pulls a best-effort JSON object out of free-form model output:
// the span from the first '{' to the last '}'. Returns false when no such
// span exists or it does not parse; callers fall back to a degraded record
// rather than failing the operation.
func ExtractJSON(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// Truncate caps s at n bytes, matching the prompt and fallback bounds used
// by the enrichment jobs. The cut never lands mid-rune: the boundary walks
// back to the start of the rune it would otherwise split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
