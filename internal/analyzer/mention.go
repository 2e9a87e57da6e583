// Package analyzer inspects LLM responses for brand and competitor
// mentions, ranked-list positions, and cited sources.
package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/sovtrack/sovtrack/internal/models"
)

const maxContexts = 10

// Options tunes variation building.
type Options struct {
	// StripPrefixes are brand-name prefixes that also match when removed,
	// e.g. "getquipu" matching "quipu".
	StripPrefixes []string
}

// DefaultOptions returns the standard analyzer options
func DefaultOptions() Options {
	return Options{StripPrefixes: []string{"get"}}
}

// Input carries one response and the brand configuration to analyze it
// against.
type Input struct {
	Content       string
	Sources       []models.Source
	BrandName     string
	BrandDomain   string
	BrandKeywords []string
	Competitors   []string
}

// Report is the mention analysis of one response.
type Report struct {
	BrandMentioned        bool
	MentionCount          int
	MentionContexts       []string
	AppearsInNumberedList bool
	PositionInList        *int
	TotalItemsInList      *int
	PositionSource        string
	CompetitorsMentioned  map[string]int
	HasError              bool
	ErrorMessage          string
}

// Analyze runs mention detection over one response body and citation list.
func Analyze(in Input, opts Options) Report {
	if strings.TrimSpace(in.BrandName) == "" {
		return Report{HasError: true, ErrorMessage: "brand name is empty"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return Report{}
	}

	variations := BuildVariations(in.BrandName, in.BrandKeywords, opts.StripPrefixes)
	ft := foldText(in.Content)

	// Body-text mentions: lax set, identical ranges counted once
	ranges := make(map[[2]int]bool)
	for _, v := range variations.Lax {
		for _, occ := range ft.occurrences(v) {
			ranges[occ] = true
		}
	}

	ordered := make([][2]int, 0, len(ranges))
	for r := range ranges {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i][0] < ordered[j][0] })

	report := Report{MentionCount: len(ordered)}
	for i, r := range ordered {
		if i == maxContexts {
			break
		}
		report.MentionContexts = append(report.MentionContexts, ft.context(r))
	}

	citationMatched, citationIndex := matchCitations(in.Sources, variations.Strict, in.BrandDomain)
	report.BrandMentioned = report.MentionCount > 0 || citationMatched

	// Position: text lists win over citation order
	if pos, total, ok := findTextPosition(in.Content, variations.Strict); ok {
		report.AppearsInNumberedList = true
		report.PositionInList = &pos
		report.TotalItemsInList = &total
		report.PositionSource = models.PositionSourceText
	} else if citationMatched {
		total := len(in.Sources)
		report.PositionInList = &citationIndex
		report.TotalItemsInList = &total
		report.PositionSource = models.PositionSourceCitation
	}

	// Competitor tallies
	for _, competitor := range in.Competitors {
		vars := competitorVariations(competitor)
		if len(vars) == 0 {
			continue
		}
		compRanges := make(map[[2]int]bool)
		for _, v := range vars {
			for _, occ := range ft.occurrences(v) {
				compRanges[occ] = true
			}
		}
		if len(compRanges) > 0 {
			if report.CompetitorsMentioned == nil {
				report.CompetitorsMentioned = make(map[string]int)
			}
			report.CompetitorsMentioned[competitor] = len(compRanges)
		}
	}

	return report
}

// matchCitations checks the strict variation set against each source's
// netloc, then its title and source fields. Returns the 1-based index of
// the first match.
func matchCitations(sources []models.Source, strict []string, brandDomain string) (bool, int) {
	domain := normalize(strings.TrimPrefix(brandDomain, "www."))

	for i, src := range sources {
		netloc := parseNetloc(src.URL)
		if netloc != "" {
			if domain != "" && (netloc == domain || strings.HasSuffix(netloc, "."+domain)) {
				return true, i + 1
			}
			for _, v := range strict {
				if strings.Contains(netloc, strings.ReplaceAll(v, " ", "")) {
					return true, i + 1
				}
			}
		}
		for _, field := range []string{src.Title, src.SourceName} {
			if field == "" {
				continue
			}
			if foldText(field).contains(strict) {
				return true, i + 1
			}
		}
	}
	return false, 0
}

// parseNetloc extracts the normalized host of a URL, without the www prefix.
func parseNetloc(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
