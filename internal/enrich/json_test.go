// Package enrich_test contains unit tests for the enrich package.
package enrich_test

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelltechsh/siteaudit/internal/enrich"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want map[string]any
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"overall_score": 82}`,
			want: map[string]any{"overall_score": float64(82)},
			ok:   true,
		},
		{
			name: "object wrapped in prose",
			text: "Here is the analysis:\n```json\n{\"seo\": [\"add meta description\"]}\n```\nHope this helps!",
			want: map[string]any{"seo": []any{"add meta description"}},
			ok:   true,
		},
		{
			name: "no braces",
			text: "The page looks fine overall.",
			ok:   false,
		},
		{
			name: "braces out of order",
			text: "} nothing useful {",
			ok:   false,
		},
		{
			name: "span does not parse",
			text: "score {not json}",
			ok:   false,
		},
		{
			name: "empty input",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := enrich.ExtractJSON(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", enrich.Truncate("abc", 10))
	assert.Equal(t, "ab", enrich.Truncate("abcdef", 2))
	assert.Equal(t, "", enrich.Truncate("", 5))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	t.Parallel()
	// "héllo" — é is two bytes, so a byte cut at 2 would split it.
	got := enrich.Truncate("héllo", 2)
	assert.Equal(t, "h", got)
	assert.True(t, utf8.ValidString(got))

	// Boundary exactly after the multi-byte rune keeps it.
	assert.Equal(t, "hé", enrich.Truncate("héllo", 3))

	// Four-byte rune at the cut point is dropped whole.
	got = enrich.Truncate("ab\U0001F600cd", 4)
	assert.Equal(t, "ab", got)
	assert.True(t, utf8.ValidString(got))
}
