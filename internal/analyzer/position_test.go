package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findPos(t *testing.T, content, brand string) (int, int, bool) {
	t.Helper()
	v := BuildVariations(brand, nil, nil)
	return findTextPosition(content, v.Strict)
}

func TestFindTextPosition_NumberedList(t *testing.T) {
	content := "1. Personio\n2. Factorial\n3. BambooHR\n4. Workday"
	pos, total, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 4, total)
}

func TestFindTextPosition_ParenthesisNumbering(t *testing.T) {
	content := "1) Personio\n2) Factorial"
	pos, _, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestFindTextPosition_NonSequentialBreaksList(t *testing.T) {
	// A jump in numbering starts a new list; the brand sits in the second
	content := "1. Personio\n2. BambooHR\n7. Factorial\n8. Workday"
	pos, total, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, 2, total)
}

func TestFindTextPosition_BulletListWithBoldLabels(t *testing.T) {
	content := "- **Personio**: strong in Germany\n- **Factorial**: strong in Spain\n- **BambooHR**: strong in the US"
	pos, total, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 3, total)
}

func TestFindTextPosition_SingleBulletIsNotAList(t *testing.T) {
	content := "Some text.\n- Factorial is one option.\nMore text."
	_, _, ok := findPos(t, content, "Factorial")
	assert.False(t, ok)
}

func TestFindTextPosition_ProseOrdinals(t *testing.T) {
	content := "First, Personio offers a full suite. Second, Factorial is a great value pick. Third, BambooHR rounds out the list."
	pos, total, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 3, total)
}

func TestFindTextPosition_SingleOrdinalIsNotAList(t *testing.T) {
	content := "First, Factorial deserves a mention for its pricing."
	_, _, ok := findPos(t, content, "Factorial")
	assert.False(t, ok)
}

func TestFindTextPosition_EarliestListWins(t *testing.T) {
	content := "1. Factorial\n2. Personio\n\nLater on:\n1. Workday\n2. Factorial\n3. Sage"
	pos, total, ok := findPos(t, content, "Factorial")

	require.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, 2, total)
}

func TestFindTextPosition_BrandAbsent(t *testing.T) {
	content := "1. Personio\n2. BambooHR"
	_, _, ok := findPos(t, content, "Factorial")
	assert.False(t, ok)
}
