package analyzer

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Free-text matching only uses variations of at least this length; shorter
// ones produce too many false positives. The brand name itself is exempt.
const laxMinLength = 6

// Keywords shorter than this never become variations.
const keywordMinLength = 3

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes combining marks: "depilación" becomes "depilacion".
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// normalize lower-cases and accent-strips a string for matching.
func normalize(s string) string {
	return StripAccents(strings.ToLower(strings.TrimSpace(s)))
}

// Variations holds the brand variation sets. The strict set serves
// domain/citation matching; the lax set (the brand name plus variations of
// length >= 6) serves free-text matching.
type Variations struct {
	Strict []string
	Lax    []string
}

// BuildVariations derives the brand variation sets from the brand name and
// keywords. Prefixes (default "get") are stripped when the remainder is
// still a plausible name.
func BuildVariations(brandName string, keywords []string, stripPrefixes []string) Variations {
	set := make(map[string]bool)

	add := func(s string) {
		s = normalize(s)
		if s != "" {
			set[s] = true
		}
	}

	add(brandName)
	for _, kw := range keywords {
		if len(strings.TrimSpace(kw)) >= keywordMinLength {
			add(kw)
		}
	}

	// Derived variants: whitespace-stripped, dash-stripped, prefix-stripped
	for _, base := range sortedKeys(set) {
		if collapsed := strings.ReplaceAll(base, " ", ""); collapsed != base {
			set[collapsed] = true
		}
		if dashless := strings.ReplaceAll(base, "-", ""); dashless != base {
			set[dashless] = true
		}
		for _, prefix := range stripPrefixes {
			prefix = normalize(prefix)
			if prefix == "" {
				continue
			}
			if stripped := strings.TrimPrefix(base, prefix); stripped != base && len(stripped) >= keywordMinLength {
				set[stripped] = true
			}
		}
	}

	brand := normalize(brandName)
	v := Variations{Strict: sortedKeys(set)}
	for _, s := range v.Strict {
		if s == brand || len([]rune(s)) >= laxMinLength {
			v.Lax = append(v.Lax, s)
		}
	}
	return v
}

// competitorVariations builds the matching set for one competitor: the
// normalized id plus collapsed and dashless variants. The lax length floor
// does not apply; competitor ids are exact, curated names.
func competitorVariations(competitor string) []string {
	set := make(map[string]bool)
	base := normalize(competitor)
	if len([]rune(base)) < keywordMinLength {
		return nil
	}
	set[base] = true
	if collapsed := strings.ReplaceAll(base, " ", ""); collapsed != base {
		set[collapsed] = true
	}
	if dashless := strings.ReplaceAll(base, "-", ""); dashless != base {
		set[dashless] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
