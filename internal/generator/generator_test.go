package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovtrack/sovtrack/internal/models"
)

func testProject() *models.Project {
	return &models.Project{
		ID:            42,
		BrandName:     "Factorial",
		Industry:      "HR software",
		Language:      "en",
		Competitors:   []string{"Personio", "BambooHR"},
		QueriesPerLLM: 5,
	}
}

func TestGenerate_ExactCount(t *testing.T) {
	project := testProject()
	candidates := Generate(project)
	assert.Len(t, candidates, 5)

	project.QueriesPerLLM = 12
	assert.Len(t, Generate(project), 12)

	project.QueriesPerLLM = 0
	assert.Len(t, Generate(project), 1)
}

func TestGenerate_Deterministic(t *testing.T) {
	first := Generate(testProject())
	second := Generate(testProject())
	require.Equal(t, first, second)
}

func TestGenerate_DifferentProjectsDiffer(t *testing.T) {
	a := testProject()
	b := testProject()
	b.ID = 43
	b.QueriesPerLLM = 10
	a.QueriesPerLLM = 10

	qa := Generate(a)
	qb := Generate(b)
	require.Len(t, qa, 10)
	require.Len(t, qb, 10)

	same := true
	for i := range qa {
		if qa[i].QueryText != qb[i].QueryText {
			same = false
			break
		}
	}
	assert.False(t, same, "different project ids should shuffle differently")
}

func TestGenerate_NoDuplicates(t *testing.T) {
	project := testProject()
	project.QueriesPerLLM = 20

	seen := make(map[string]bool)
	for _, c := range Generate(project) {
		assert.False(t, seen[c.QueryText], "duplicate query: %s", c.QueryText)
		seen[c.QueryText] = true
	}
}

func TestGenerate_FillsPlaceholders(t *testing.T) {
	project := testProject()
	project.QueriesPerLLM = 25

	for _, c := range Generate(project) {
		assert.NotContains(t, c.QueryText, "%")
		assert.NotEmpty(t, c.QueryType)
		assert.Equal(t, "en", c.Language)
	}
}

func TestGenerate_CompetitorTemplates(t *testing.T) {
	project := testProject()
	project.QueriesPerLLM = 25

	foundCompetitor := false
	for _, c := range Generate(project) {
		if c.QueryType == models.QueryTypeCompetitor {
			foundCompetitor = true
		}
	}
	assert.True(t, foundCompetitor)
}

func TestGenerate_SpanishTemplates(t *testing.T) {
	project := testProject()
	project.Language = "es"
	project.QueriesPerLLM = 8

	candidates := Generate(project)
	require.Len(t, candidates, 8)
	for _, c := range candidates {
		assert.Equal(t, "es", c.Language)
	}
}

func TestGenerate_DefaultIndustry(t *testing.T) {
	project := testProject()
	project.Industry = ""

	for _, c := range Generate(project) {
		assert.NotContains(t, c.QueryText, "%")
	}
}
