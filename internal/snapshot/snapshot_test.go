package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovtrack/sovtrack/internal/models"
)

func intPtr(v int) *int { return &v }

func mentioned(queryID int64, pos *int, sentiment string, score float64) *models.Result {
	return &models.Result{
		QueryID:        queryID,
		BrandMentioned: true,
		MentionCount:   1,
		PositionInList: pos,
		Sentiment:      sentiment,
		SentimentScore: score,
		CostUSD:        0.01,
		TokensUsed:     100,
		ResponseTimeMs: 1000,
	}
}

func TestAggregate_EmptyDay(t *testing.T) {
	snap := Aggregate(1, "2026-08-28", "openai", nil)

	assert.Equal(t, 0, snap.TotalQueries)
	assert.Equal(t, 0.0, snap.MentionRate)
	assert.Equal(t, 0.0, snap.ShareOfVoice)
	assert.Nil(t, snap.AvgPosition)
}

func TestAggregate_MentionRateAndHistogram(t *testing.T) {
	results := []*models.Result{
		mentioned(1, intPtr(1), models.SentimentPositive, 0.9),
		mentioned(2, intPtr(4), models.SentimentNeutral, 0.5),
		mentioned(3, intPtr(9), models.SentimentNeutral, 0.5),
		mentioned(4, nil, models.SentimentNegative, 0.2),
		{QueryID: 5, ResponseTimeMs: 900},
	}

	snap := Aggregate(1, "2026-08-28", "openai", results)

	assert.Equal(t, 5, snap.TotalQueries)
	assert.Equal(t, 4, snap.TotalMentions)
	assert.InDelta(t, 80.0, snap.MentionRate, 1e-9)

	assert.Equal(t, 1, snap.AppearedInTop3)
	assert.Equal(t, 2, snap.AppearedInTop5)
	assert.Equal(t, 3, snap.AppearedInTop10)

	require.NotNil(t, snap.AvgPosition)
	assert.InDelta(t, (1.0+4+9)/3, *snap.AvgPosition, 1e-9)

	assert.Equal(t, 1, snap.PositiveMentions)
	assert.Equal(t, 2, snap.NeutralMentions)
	assert.Equal(t, 1, snap.NegativeMentions)
	assert.InDelta(t, (0.9+0.5+0.5+0.2)/4, snap.AvgSentimentScore, 1e-9)
}

func TestAggregate_ShareOfVoice(t *testing.T) {
	r1 := mentioned(1, intPtr(1), models.SentimentNeutral, 0.5)
	r1.CompetitorsMentioned = map[string]int{"Personio": 2, "BambooHR": 1}
	r2 := mentioned(2, intPtr(2), models.SentimentNeutral, 0.5)

	snap := Aggregate(1, "2026-08-28", "openai", []*models.Result{r1, r2})

	assert.Equal(t, 3, snap.TotalCompetitorMentions)
	// 2 brand voices of 5 total
	assert.InDelta(t, 40.0, snap.ShareOfVoice, 1e-9)
	assert.Equal(t, 2, snap.CompetitorBreakdown["Personio"])
	assert.Equal(t, 1, snap.CompetitorBreakdown["BambooHR"])
}

func TestAggregate_ShareOfVoiceCountsEveryMention(t *testing.T) {
	// A row that names the brand three times carries three voices, not one.
	r := mentioned(1, intPtr(1), models.SentimentNeutral, 0.5)
	r.MentionCount = 3
	r.CompetitorsMentioned = map[string]int{"Personio": 1}

	snap := Aggregate(1, "2026-08-28", "openai", []*models.Result{r})

	assert.Equal(t, 1, snap.TotalMentions)
	assert.InDelta(t, 75.0, snap.ShareOfVoice, 1e-9)
	// Both sides weighted at position 1: 3·1.0 vs 1·1.0
	assert.InDelta(t, 75.0, snap.WeightedShareOfVoice, 1e-9)
}

func TestAggregate_WeightedShareOfVoice(t *testing.T) {
	// Brand at position 1 (weight 1.0), one competitor mention in the same
	// answer (proxy weight 1.0)
	r := mentioned(1, intPtr(1), models.SentimentNeutral, 0.5)
	r.CompetitorsMentioned = map[string]int{"Personio": 1}

	snap := Aggregate(1, "2026-08-28", "openai", []*models.Result{r})
	assert.InDelta(t, 50.0, snap.WeightedShareOfVoice, 1e-9)

	// Competitor weights proxy the brand's position in the same answer,
	// so scaling both down together leaves the ratio unchanged
	r2 := mentioned(1, intPtr(8), models.SentimentNeutral, 0.5)
	r2.CompetitorsMentioned = map[string]int{"Personio": 1}

	snap2 := Aggregate(1, "2026-08-28", "openai", []*models.Result{r2})
	assert.InDelta(t, snap2.ShareOfVoice, snap.ShareOfVoice, 1e-9)
	assert.InDelta(t, 50.0, snap2.WeightedShareOfVoice, 1e-9)
}

func TestAggregate_WeightedBounds(t *testing.T) {
	results := []*models.Result{
		mentioned(1, intPtr(1), models.SentimentPositive, 0.9),
	}
	results[0].CompetitorsMentioned = map[string]int{"A": 5, "B": 7}

	snap := Aggregate(1, "2026-08-28", "openai", results)
	assert.GreaterOrEqual(t, snap.WeightedShareOfVoice, 0.0)
	assert.LessOrEqual(t, snap.WeightedShareOfVoice, 100.0)
}

func TestAggregate_ErroredRowsExcluded(t *testing.T) {
	// A failed provider call must not deflate the day's rates or inflate
	// its cost totals.
	errored := &models.Result{
		QueryID:        1,
		HasError:       true,
		BrandMentioned: true,
		CostUSD:        0.02,
		TokensUsed:     50,
	}
	ok := mentioned(2, intPtr(1), models.SentimentPositive, 0.9)

	snap := Aggregate(1, "2026-08-28", "openai", []*models.Result{errored, ok})

	assert.Equal(t, 1, snap.TotalQueries)
	assert.Equal(t, 1, snap.TotalMentions)
	assert.InDelta(t, 100.0, snap.MentionRate, 1e-9)
	assert.InDelta(t, 0.01, snap.TotalCostUSD, 1e-9)
	assert.Equal(t, 100, snap.TotalTokens)
}

func TestAggregate_AllRowsErrored(t *testing.T) {
	results := []*models.Result{
		{QueryID: 1, HasError: true, CostUSD: 0.02},
		{QueryID: 2, HasError: true, CostUSD: 0.02},
	}

	snap := Aggregate(1, "2026-08-28", "openai", results)

	assert.Equal(t, 0, snap.TotalQueries)
	assert.Equal(t, 0.0, snap.MentionRate)
	assert.Equal(t, 0.0, snap.ShareOfVoice)
	assert.Equal(t, 0.0, snap.TotalCostUSD)
}

func TestAggregate_AvgResponseTimeSkipsZero(t *testing.T) {
	results := []*models.Result{
		mentioned(1, nil, models.SentimentNeutral, 0.5), // 1000ms
		{QueryID: 2},                                    // no timing recorded
	}

	snap := Aggregate(1, "2026-08-28", "openai", results)
	assert.InDelta(t, 1000.0, snap.AvgResponseTimeMs, 1e-9)
}

func TestAggregate_Idempotent(t *testing.T) {
	results := []*models.Result{
		mentioned(1, intPtr(2), models.SentimentPositive, 0.8),
		mentioned(2, nil, models.SentimentNeutral, 0.5),
	}

	first := Aggregate(1, "2026-08-28", "openai", results)
	second := Aggregate(1, "2026-08-28", "openai", results)

	first.CreatedAt = second.CreatedAt
	first.UpdatedAt = second.UpdatedAt
	assert.Equal(t, first, second)
}

func TestPositionWeight(t *testing.T) {
	assert.Equal(t, 1.0, positionWeight(intPtr(1)))
	assert.Equal(t, 1.0, positionWeight(intPtr(3)))
	assert.Equal(t, 0.7, positionWeight(intPtr(5)))
	assert.Equal(t, 0.3, positionWeight(intPtr(10)))
	assert.Equal(t, 0.1, positionWeight(intPtr(11)))
	assert.Equal(t, 0.1, positionWeight(nil))
}
