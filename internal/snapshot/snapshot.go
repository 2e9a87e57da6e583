// Package snapshot rolls the per-query results of one (project, day,
// provider) into a single daily row. Aggregation is pure and idempotent;
// re-running a day overwrites the same snapshot.
package snapshot

import (
	"context"
	"fmt"

	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

var log = logger.GetLogger()

// Position weights for the weighted share of voice. Being recommended first
// is worth far more than trailing a top-ten list.
const (
	weightTop3   = 1.0
	weightTop5   = 0.7
	weightTop10  = 0.3
	weightBeyond = 0.1
)

func positionWeight(pos *int) float64 {
	if pos == nil {
		return weightBeyond
	}
	switch {
	case *pos <= 3:
		return weightTop3
	case *pos <= 5:
		return weightTop5
	case *pos <= 10:
		return weightTop10
	default:
		return weightBeyond
	}
}

// Aggregate computes the daily snapshot from the result rows of one
// (project, day, provider). Errored rows are excluded entirely; a day of
// pure provider failures aggregates to a zero snapshot.
func Aggregate(projectID int64, date, provider string, results []*models.Result) *models.Snapshot {
	rows := make([]*models.Result, 0, len(results))
	for _, r := range results {
		if !r.HasError {
			rows = append(rows, r)
		}
	}

	snap := &models.Snapshot{
		ProjectID:                   projectID,
		SnapshotDate:                date,
		LLMProvider:                 provider,
		TotalQueries:                len(rows),
		CompetitorBreakdown:         map[string]int{},
		WeightedCompetitorBreakdown: map[string]float64{},
	}

	var (
		positionSum     float64
		positionCount   int
		sentimentSum    float64
		sentimentCount  int
		responseTimeSum int64
		responseCount   int
		brandMentions   int
		brandWeighted   float64
	)

	for _, r := range rows {
		snap.TotalCostUSD += r.CostUSD
		snap.TotalTokens += r.TokensUsed
		if r.ResponseTimeMs > 0 {
			responseTimeSum += r.ResponseTimeMs
			responseCount++
		}

		for name, count := range r.CompetitorsMentioned {
			snap.CompetitorBreakdown[name] += count
			snap.TotalCompetitorMentions += count
			// The competitor's own list position is not tracked, so the
			// brand's position in the same answer stands in for it.
			snap.WeightedCompetitorBreakdown[name] += float64(count) * positionWeight(r.PositionInList)
		}

		if !r.BrandMentioned {
			continue
		}

		snap.TotalMentions++
		brandMentions += r.MentionCount
		brandWeighted += float64(r.MentionCount) * positionWeight(r.PositionInList)

		if r.PositionInList != nil {
			pos := *r.PositionInList
			positionSum += float64(pos)
			positionCount++
			if pos <= 3 {
				snap.AppearedInTop3++
			}
			if pos <= 5 {
				snap.AppearedInTop5++
			}
			if pos <= 10 {
				snap.AppearedInTop10++
			}
		}

		switch r.Sentiment {
		case models.SentimentPositive:
			snap.PositiveMentions++
		case models.SentimentNegative:
			snap.NegativeMentions++
		default:
			snap.NeutralMentions++
		}
		sentimentSum += r.SentimentScore
		sentimentCount++
	}

	if snap.TotalQueries > 0 {
		snap.MentionRate = float64(snap.TotalMentions) / float64(snap.TotalQueries) * 100
	}
	if positionCount > 0 {
		avg := positionSum / float64(positionCount)
		snap.AvgPosition = &avg
	}
	if sentimentCount > 0 {
		snap.AvgSentimentScore = sentimentSum / float64(sentimentCount)
	}
	if responseCount > 0 {
		snap.AvgResponseTimeMs = float64(responseTimeSum) / float64(responseCount)
	}

	// Share of voice weighs occurrences, not answers: a row mentioning the
	// brand three times contributes three voices.
	totalVoices := brandMentions + snap.TotalCompetitorMentions
	if totalVoices > 0 {
		snap.ShareOfVoice = float64(brandMentions) / float64(totalVoices) * 100
	}

	competitorWeighted := 0.0
	for _, w := range snap.WeightedCompetitorBreakdown {
		competitorWeighted += w
	}
	if brandWeighted+competitorWeighted > 0 {
		snap.WeightedShareOfVoice = brandWeighted / (brandWeighted + competitorWeighted) * 100
	}

	return snap
}

// Aggregator wires Aggregate to the store.
type Aggregator struct {
	store db.Store
}

// New creates a snapshot aggregator
func New(store db.Store) *Aggregator {
	return &Aggregator{store: store}
}

// BuildAndStore aggregates and upserts the snapshot of one (project, day,
// provider). Days with no result rows leave no snapshot behind.
func (a *Aggregator) BuildAndStore(ctx context.Context, projectID int64, date, provider string) (*models.Snapshot, error) {
	results, err := a.store.ListResults(ctx, projectID, date, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	if len(results) == 0 {
		log.Debug("No results for project %d / %s / %s, skipping snapshot", projectID, date, provider)
		return nil, nil
	}

	snap := Aggregate(projectID, date, provider, results)
	if err := a.store.UpsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snap, nil
}
