package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	numberedItemRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+)$`)
	bulletItemRe   = regexp.MustCompile(`^\s*[-*•]\s+(.+)$`)
	boldSpanRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	ordinalRe      = regexp.MustCompile(`(?i)\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\b[,:]?\s+([^.\n]+)`)
)

var ordinalValues = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// textList is one enumeration parsed out of the response body. start orders
// competing lists by where they begin in the text.
type textList struct {
	items []string
	start int
}

// parseLists extracts every enumeration from the content: numbered lines,
// markdown bullets (bold span taken as the item label when present), and
// prose ordinals ("first ..., second ...").
func parseLists(content string) []textList {
	var lists []textList
	lines := strings.Split(content, "\n")

	var current *textList
	var lastNum int
	flush := func() {
		if current != nil && len(current.items) > 0 {
			lists = append(lists, *current)
		}
		current = nil
		lastNum = 0
	}

	for i, line := range lines {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			if current == nil || n != lastNum+1 {
				flush()
				current = &textList{start: i}
				// Sequences not anchored at 1 still form a list; the
				// first parsed item takes slot one
			}
			current.items = append(current.items, m[2])
			lastNum = n
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		flush()
	}
	flush()

	// Bullet lists, counted separately from numbered ones
	var bullets *textList
	for i, line := range lines {
		if m := bulletItemRe.FindStringSubmatch(line); m != nil {
			item := m[1]
			if bold := boldSpanRe.FindStringSubmatch(item); bold != nil {
				item = bold[1]
			}
			if bullets == nil {
				bullets = &textList{start: i}
			}
			bullets.items = append(bullets.items, item)
			continue
		}
		if strings.TrimSpace(line) != "" && bullets != nil {
			if len(bullets.items) > 1 {
				lists = append(lists, *bullets)
			}
			bullets = nil
		}
	}
	if bullets != nil && len(bullets.items) > 1 {
		lists = append(lists, *bullets)
	}

	// Prose ordinals; at least two distinct ordinals make a list
	if matches := ordinalRe.FindAllStringSubmatchIndex(content, -1); len(matches) >= 2 {
		prose := textList{start: len(lines)}
		slots := make(map[int]string)
		maxSlot := 0
		for _, m := range matches {
			word := strings.ToLower(content[m[2]:m[3]])
			slot := ordinalValues[word]
			if _, taken := slots[slot]; taken {
				continue
			}
			slots[slot] = content[m[4]:m[5]]
			if slot > maxSlot {
				maxSlot = slot
			}
		}
		if len(slots) >= 2 {
			for i := 1; i <= maxSlot; i++ {
				prose.items = append(prose.items, slots[i])
			}
			lists = append(lists, prose)
		}
	}

	return lists
}

// findTextPosition locates the brand inside the parsed enumerations.
// Earliest list wins; among lists starting together, the longest. Returns
// the 1-based position and the list length.
func findTextPosition(content string, variations []string) (position, total int, found bool) {
	lists := parseLists(content)
	if len(lists) == 0 {
		return 0, 0, false
	}

	var candidates []textList
	for _, list := range lists {
		for _, item := range list.items {
			if foldText(item).contains(variations) {
				candidates = append(candidates, list)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return 0, 0, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return len(candidates[i].items) > len(candidates[j].items)
	})

	chosen := candidates[0]
	for i, item := range chosen.items {
		if foldText(item).contains(variations) {
			return i + 1, len(chosen.items), true
		}
	}
	return 0, 0, false
}
