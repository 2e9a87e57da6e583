package analyzer

import (
	"strings"
	"unicode"
)

const contextWindow = 500

// foldedText pairs a text with its accent-stripped, lower-cased form and an
// index map back to the original runes, so matches found on the folded form
// can still yield verbatim context windows.
type foldedText struct {
	original []rune
	folded   []rune
	origIdx  []int
}

func foldText(s string) *foldedText {
	orig := []rune(s)
	ft := &foldedText{original: orig}
	for i, r := range orig {
		folded := strings.ToLower(StripAccents(string(r)))
		for _, fr := range folded {
			ft.folded = append(ft.folded, fr)
			ft.origIdx = append(ft.origIdx, i)
		}
	}
	return ft
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// occurrences finds whole-word matches of a folded variation. Returned
// ranges are [start, end) in folded rune coordinates.
func (ft *foldedText) occurrences(variation string) [][2]int {
	needle := []rune(variation)
	if len(needle) == 0 || len(needle) > len(ft.folded) {
		return nil
	}

	var found [][2]int
	for start := 0; start+len(needle) <= len(ft.folded); start++ {
		if !runesEqual(ft.folded[start:start+len(needle)], needle) {
			continue
		}
		if start > 0 && isWordChar(ft.folded[start-1]) {
			continue
		}
		end := start + len(needle)
		if end < len(ft.folded) && isWordChar(ft.folded[end]) {
			continue
		}
		found = append(found, [2]int{start, end})
	}
	return found
}

// contains reports whether any variation occurs as a whole word.
func (ft *foldedText) contains(variations []string) bool {
	for _, v := range variations {
		if len(ft.occurrences(v)) > 0 {
			return true
		}
	}
	return false
}

// context extracts a window of up to contextWindow original runes centered
// on a folded-coordinate match range.
func (ft *foldedText) context(match [2]int) string {
	if len(ft.original) == 0 || match[0] >= len(ft.origIdx) {
		return ""
	}
	endIdx := match[1] - 1
	if endIdx >= len(ft.origIdx) {
		endIdx = len(ft.origIdx) - 1
	}
	center := (ft.origIdx[match[0]] + ft.origIdx[endIdx]) / 2

	half := contextWindow / 2
	lo := center - half
	if lo < 0 {
		lo = 0
	}
	hi := center + half
	if hi > len(ft.original) {
		hi = len(ft.original)
	}
	return strings.TrimSpace(string(ft.original[lo:hi]))
}

func runesEqual(a, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
