package llm

import (
	"math"
	"regexp"
	"strings"

	"github.com/sovtrack/sovtrack/internal/models"
)

// Permissive on purpose; trailing punctuation is trimmed afterwards.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]\}]+`)

// ExtractURLs scans free text for http(s) URLs, deduplicates them preserving
// first-seen order, and tags each as extracted_from_text.
func ExtractURLs(content string) []models.Source {
	matches := urlPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var sources []models.Source
	seen := make(map[string]bool)
	for _, m := range matches {
		url := strings.TrimRight(m, ".,;:!?")
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		sources = append(sources, models.Source{
			URL:         url,
			ProviderTag: SourceExtractedFromText,
		})
	}
	return sources
}

// EstimateTokens approximates a token count as ceil(words x 1.3) for
// providers that omit usage metadata.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * 1.3))
}
