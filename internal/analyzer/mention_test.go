package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovtrack/sovtrack/internal/models"
)

func TestAnalyze_EmptyBrandName(t *testing.T) {
	report := Analyze(Input{Content: "some response"}, DefaultOptions())
	assert.True(t, report.HasError)
	assert.False(t, report.BrandMentioned)
}

func TestAnalyze_EmptyContent(t *testing.T) {
	report := Analyze(Input{
		BrandName: "Factorial",
		Sources:   []models.Source{{URL: "https://factorial.com/pricing"}},
	}, DefaultOptions())

	assert.False(t, report.HasError)
	assert.False(t, report.BrandMentioned)
	assert.Equal(t, 0, report.MentionCount)
	assert.Nil(t, report.PositionInList)
}

func TestAnalyze_BasicMention(t *testing.T) {
	report := Analyze(Input{
		Content:   "Factorial is a popular HR platform. Many teams choose Factorial for payroll.",
		BrandName: "Factorial",
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	assert.Equal(t, 2, report.MentionCount)
	require.Len(t, report.MentionContexts, 2)
	assert.Contains(t, report.MentionContexts[0], "Factorial is a popular")
}

func TestAnalyze_CaseAndAccentInsensitive(t *testing.T) {
	report := Analyze(Input{
		Content:   "La mejor opción es FACTORÍAL según los usuarios.",
		BrandName: "factorial",
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	assert.Equal(t, 1, report.MentionCount)
	// Context windows keep the verbatim text
	assert.Contains(t, report.MentionContexts[0], "FACTORÍAL")
}

func TestAnalyze_WholeWordOnly(t *testing.T) {
	report := Analyze(Input{
		Content:   "The factorialization of numbers is unrelated.",
		BrandName: "Factorial",
	}, DefaultOptions())

	assert.False(t, report.BrandMentioned)
	assert.Equal(t, 0, report.MentionCount)
}

func TestAnalyze_ContextsCappedAtTen(t *testing.T) {
	report := Analyze(Input{
		Content:   strings.Repeat("Factorial is great. ", 14),
		BrandName: "Factorial",
	}, DefaultOptions())

	assert.Equal(t, 14, report.MentionCount)
	assert.Len(t, report.MentionContexts, 10)
}

func TestAnalyze_NumberedListPosition(t *testing.T) {
	content := `The best HR tools in 2025:
1. Personio
2. Factorial
3. BambooHR`

	report := Analyze(Input{Content: content, BrandName: "Factorial"}, DefaultOptions())

	assert.True(t, report.AppearsInNumberedList)
	require.NotNil(t, report.PositionInList)
	assert.Equal(t, 2, *report.PositionInList)
	require.NotNil(t, report.TotalItemsInList)
	assert.Equal(t, 3, *report.TotalItemsInList)
	assert.Equal(t, models.PositionSourceText, report.PositionSource)
}

func TestAnalyze_CitationDomainMatch(t *testing.T) {
	report := Analyze(Input{
		Content:     "Several HR platforms are worth a look.",
		BrandName:   "Factorial",
		BrandDomain: "factorialhr.com",
		Sources: []models.Source{
			{URL: "https://www.personio.com/features"},
			{URL: "https://app.factorialhr.com/signup"},
			{URL: "https://bamboohr.com"},
		},
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	assert.Equal(t, 0, report.MentionCount)
	assert.False(t, report.AppearsInNumberedList)
	require.NotNil(t, report.PositionInList)
	assert.Equal(t, 2, *report.PositionInList)
	require.NotNil(t, report.TotalItemsInList)
	assert.Equal(t, 3, *report.TotalItemsInList)
	assert.Equal(t, models.PositionSourceCitation, report.PositionSource)
}

func TestAnalyze_CitationTitleMatch(t *testing.T) {
	report := Analyze(Input{
		Content:   "Here is an overview of the market.",
		BrandName: "Factorial",
		Sources: []models.Source{
			{URL: "https://techreview.example.com/hr", Title: "Factorial review 2025"},
		},
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	require.NotNil(t, report.PositionInList)
	assert.Equal(t, 1, *report.PositionInList)
}

func TestAnalyze_TextPositionBeatsCitation(t *testing.T) {
	content := "1. Factorial\n2. Personio\n3. Sage"
	report := Analyze(Input{
		Content:     content,
		BrandName:   "Factorial",
		BrandDomain: "factorialhr.com",
		Sources: []models.Source{
			{URL: "https://personio.com"},
			{URL: "https://factorialhr.com"},
		},
	}, DefaultOptions())

	require.NotNil(t, report.PositionInList)
	assert.Equal(t, 1, *report.PositionInList)
	assert.Equal(t, models.PositionSourceText, report.PositionSource)
}

func TestAnalyze_CompetitorCounts(t *testing.T) {
	content := "Factorial competes with Personio. Personio has strong roots in Germany, while BambooHR leads in the US."
	report := Analyze(Input{
		Content:     content,
		BrandName:   "Factorial",
		Competitors: []string{"Personio", "BambooHR", "Workday"},
	}, DefaultOptions())

	require.NotNil(t, report.CompetitorsMentioned)
	assert.Equal(t, 2, report.CompetitorsMentioned["Personio"])
	assert.Equal(t, 1, report.CompetitorsMentioned["BambooHR"])
	_, ok := report.CompetitorsMentioned["Workday"]
	assert.False(t, ok)
}

func TestAnalyze_KeywordVariations(t *testing.T) {
	report := Analyze(Input{
		Content:       "FactorialHR keeps growing in Spain.",
		BrandName:     "Factorial",
		BrandKeywords: []string{"FactorialHR"},
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	assert.Equal(t, 1, report.MentionCount)
}

func TestAnalyze_ShortBrandName(t *testing.T) {
	// The brand name itself always matches in free text, even below the
	// length floor that derived variations are held to.
	report := Analyze(Input{
		Content:       "Para autónomos, Quipu encaja muy bien por su facturación sencilla.",
		BrandName:     "Quipu",
		BrandKeywords: []string{"quipu", "getquipu"},
	}, DefaultOptions())

	assert.True(t, report.BrandMentioned)
	assert.GreaterOrEqual(t, report.MentionCount, 1)
}

func TestAnalyze_StripPrefixVariation(t *testing.T) {
	// "quipu" stripped from brand "GetQuipu" is a derived variant, not the
	// brand name, so it stays below the free-text length floor; the strict
	// set still carries it for citation matching.
	report := Analyze(Input{
		Content:       "Many freelancers in Spain use Quipu for invoicing and Quipu for taxes, Quipu is everywhere.",
		BrandName:     "GetQuipu",
		BrandKeywords: []string{"getquipu"},
	}, DefaultOptions())

	assert.Equal(t, 0, report.MentionCount)

	withSource := Analyze(Input{
		Content:   "Many freelancers use it.",
		BrandName: "GetQuipu",
		Sources:   []models.Source{{URL: "https://quipu.com"}},
	}, DefaultOptions())
	assert.True(t, withSource.BrandMentioned)
}

func TestBuildVariations_LaxLengthFloor(t *testing.T) {
	v := BuildVariations("Holded", []string{"io"}, nil)

	assert.Contains(t, v.Strict, "holded")
	assert.Contains(t, v.Lax, "holded")
	// Two-rune keyword never becomes a variation
	assert.NotContains(t, v.Strict, "io")

	// The brand name is lax even when short
	short := BuildVariations("Sage", nil, nil)
	assert.Contains(t, short.Lax, "sage")
}

func TestBuildVariations_CollapsedAndDashless(t *testing.T) {
	v := BuildVariations("Brand-Name Pro", nil, nil)

	assert.Contains(t, v.Strict, "brand-name pro")
	assert.Contains(t, v.Strict, "brand-namepro")
	assert.Contains(t, v.Strict, "brandname pro")
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "depilacion laser", StripAccents("depilación láser"))
	assert.Equal(t, "uber", StripAccents("über"))
}

func TestParseNetloc(t *testing.T) {
	assert.Equal(t, "factorialhr.com", parseNetloc("https://www.factorialhr.com/pricing"))
	assert.Equal(t, "factorialhr.com", parseNetloc("https://factorialhr.com:443/x"))
	assert.Equal(t, "", parseNetloc("not a url at all ::"))
}
