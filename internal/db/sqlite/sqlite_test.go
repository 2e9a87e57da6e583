package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovtrack/sovtrack/internal/models"
)

// newTestStore opens a store over a throwaway database file. The connection
// pool hands every call its own connection, so ":memory:" would give each
// call a different empty database.
func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Disconnect(context.Background()) })
	return store
}

func intPtr(v int) *int { return &v }

func TestConnect_CreatesSchema(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))

	// Connect is idempotent on an existing database.
	require.NoError(t, store.Connect(context.Background()))
}

func TestProjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := &models.Project{
		OwnerID:       7,
		BrandName:     "Factorial",
		BrandDomain:   "factorialhr.com",
		BrandKeywords: []string{"factorial hr"},
		Industry:      "HR software",
		Language:      "en",
		CountryCode:   "ES",
		Competitors:   []string{"Personio", "BambooHR"},
		EnabledLLMs:   []string{models.ProviderOpenAI, models.ProviderGoogle},
		QueriesPerLLM: 5,
		IsActive:      true,
	}
	require.NoError(t, store.CreateProject(ctx, project))
	require.NotZero(t, project.ID)

	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Factorial", got.BrandName)
	assert.Equal(t, "factorialhr.com", got.BrandDomain)
	assert.Equal(t, []string{"Personio", "BambooHR"}, got.Competitors)
	assert.Equal(t, []string{models.ProviderOpenAI, models.ProviderGoogle}, got.EnabledLLMs)
	assert.True(t, got.IsActive)
}

func TestGetProject_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetProject(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found")
}

func TestListActiveProjects_FiltersInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, &models.Project{OwnerID: 1, BrandName: "Active", Language: "en", IsActive: true}))
	require.NoError(t, store.CreateProject(ctx, &models.Project{OwnerID: 1, BrandName: "Paused", Language: "en", IsActive: false}))

	active, err := store.ListActiveProjects(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active", active[0].BrandName)

	all, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQueriesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	queries := []*models.Query{
		{ProjectID: 1, QueryText: "best HR software", Language: "en", QueryType: models.QueryTypeGeneral, IsActive: true},
		{ProjectID: 1, QueryText: "Factorial vs Personio", Language: "en", QueryType: models.QueryTypeCompetitor, IsActive: true},
		{ProjectID: 1, QueryText: "retired question", Language: "en", QueryType: models.QueryTypeGeneral, IsActive: false},
		{ProjectID: 2, QueryText: "other project", Language: "en", QueryType: models.QueryTypeGeneral, IsActive: true},
	}
	require.NoError(t, store.CreateQueries(ctx, queries))
	for _, q := range queries {
		assert.NotZero(t, q.ID)
	}

	active, err := store.ListActiveQueries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "best HR software", active[0].QueryText)
	assert.Equal(t, "Factorial vs Personio", active[1].QueryText)
}

func TestUpsertResult_ReplacesOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := &models.Result{
		ProjectID:             1,
		QueryID:               10,
		AnalysisDate:          "2026-08-28",
		LLMProvider:           models.ProviderOpenAI,
		ModelUsed:             "gpt-x",
		QueryText:             "best HR software",
		BrandName:             "Factorial",
		BrandMentioned:        true,
		MentionCount:          2,
		MentionContexts:       []string{"Factorial is one option"},
		AppearsInNumberedList: true,
		PositionInList:        intPtr(2),
		TotalItemsInList:      intPtr(5),
		PositionSource:        models.PositionSourceText,
		Sentiment:             models.SentimentPositive,
		SentimentScore:        0.8,
		CompetitorsMentioned:  map[string]int{"Personio": 1},
		FullResponse:          "Factorial is one option among many.",
		ResponseLength:        35,
		Sources:               []models.Source{{URL: "https://example.com", ProviderTag: "web"}},
		TokensUsed:            30,
		CostUSD:               0.01,
		ResponseTimeMs:        120,
	}
	require.NoError(t, store.UpsertResult(ctx, result))

	exists, err := store.ResultExists(ctx, 1, 10, models.ProviderOpenAI, "2026-08-28")
	require.NoError(t, err)
	assert.True(t, exists)

	result.MentionCount = 5
	result.Sentiment = models.SentimentNeutral
	require.NoError(t, store.UpsertResult(ctx, result))

	rows, err := store.ListResults(ctx, 1, "2026-08-28", models.ProviderOpenAI)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.Equal(t, 5, got.MentionCount)
	assert.Equal(t, models.SentimentNeutral, got.Sentiment)
	require.NotNil(t, got.PositionInList)
	assert.Equal(t, 2, *got.PositionInList)
	assert.Equal(t, map[string]int{"Personio": 1}, got.CompetitorsMentioned)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "https://example.com", got.Sources[0].URL)
}

func TestDeleteResult(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := &models.Result{
		ProjectID:    1,
		QueryID:      10,
		AnalysisDate: "2026-08-28",
		LLMProvider:  models.ProviderOpenAI,
		Sentiment:    models.SentimentNeutral,
	}
	require.NoError(t, store.UpsertResult(ctx, result))
	require.NoError(t, store.DeleteResult(ctx, 1, 10, models.ProviderOpenAI, "2026-08-28"))

	exists, err := store.ResultExists(ctx, 1, 10, models.ProviderOpenAI, "2026-08-28")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	avg := 2.5
	snap := &models.Snapshot{
		ProjectID:                   1,
		SnapshotDate:                "2026-08-28",
		LLMProvider:                 models.ProviderGoogle,
		TotalQueries:                10,
		TotalMentions:               8,
		MentionRate:                 80,
		AppearedInTop3:              3,
		AvgPosition:                 &avg,
		TotalCompetitorMentions:     4,
		ShareOfVoice:                60,
		CompetitorBreakdown:         map[string]int{"Personio": 4},
		WeightedShareOfVoice:        55,
		WeightedCompetitorBreakdown: map[string]float64{"Personio": 2.8},
		PositiveMentions:            5,
		AvgSentimentScore:           0.7,
		TotalCostUSD:                0.12,
		TotalTokens:                 900,
		AvgResponseTimeMs:           140,
	}
	require.NoError(t, store.UpsertSnapshot(ctx, snap))

	// Upsert on the same tuple replaces the row.
	snap.MentionRate = 90
	require.NoError(t, store.UpsertSnapshot(ctx, snap))

	got, err := store.GetSnapshot(ctx, 1, "2026-08-28", models.ProviderGoogle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 90.0, got.MentionRate)
	require.NotNil(t, got.AvgPosition)
	assert.Equal(t, 2.5, *got.AvgPosition)
	assert.Equal(t, map[string]int{"Personio": 4}, got.CompetitorBreakdown)

	missing, err := store.GetSnapshot(ctx, 1, "2026-08-27", models.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListSnapshots_DateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2026-08-25", "2026-08-26", "2026-08-27"} {
		require.NoError(t, store.UpsertSnapshot(ctx, &models.Snapshot{
			ProjectID:    1,
			SnapshotDate: date,
			LLMProvider:  models.ProviderOpenAI,
		}))
	}

	snaps, err := store.ListSnapshots(ctx, 1, "2026-08-26", "")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "2026-08-26", snaps[0].SnapshotDate)

	snaps, err = store.ListSnapshots(ctx, 1, "2026-08-25", "2026-08-26")
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	snaps, err = store.ListSnapshots(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

func TestSetCurrentModel_SingleCurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRegistryEntry(ctx, &models.RegistryEntry{
		Provider: models.ProviderOpenAI, ModelID: "gpt-a", IsAvailable: true,
	}))
	require.NoError(t, store.UpsertRegistryEntry(ctx, &models.RegistryEntry{
		Provider: models.ProviderOpenAI, ModelID: "gpt-b", IsAvailable: true,
	}))

	current, err := store.GetCurrentModel(ctx, models.ProviderOpenAI)
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, store.SetCurrentModel(ctx, models.ProviderOpenAI, "gpt-a"))
	require.NoError(t, store.SetCurrentModel(ctx, models.ProviderOpenAI, "gpt-b"))

	current, err = store.GetCurrentModel(ctx, models.ProviderOpenAI)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "gpt-b", current.ModelID)

	entries, err := store.ListRegistryEntries(ctx, models.ProviderOpenAI)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	currentCount := 0
	for _, e := range entries {
		if e.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestSetCurrentModel_MissingModel(t *testing.T) {
	store := newTestStore(t)

	err := store.SetCurrentModel(context.Background(), models.ProviderOpenAI, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestUpsertRegistryEntry_KeepsCurrentFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRegistryEntry(ctx, &models.RegistryEntry{
		Provider: models.ProviderGoogle, ModelID: "gemini-x", IsAvailable: true,
	}))
	require.NoError(t, store.SetCurrentModel(ctx, models.ProviderGoogle, "gemini-x"))

	// A discovery refresh must not clear the operator's current choice.
	require.NoError(t, store.UpsertRegistryEntry(ctx, &models.RegistryEntry{
		Provider: models.ProviderGoogle, ModelID: "gemini-x",
		CostPer1MInputTokens: 1.25, IsAvailable: true,
	}))

	entry, err := store.GetRegistryEntry(ctx, models.ProviderGoogle, "gemini-x")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsCurrent)
	assert.Equal(t, 1.25, entry.CostPer1MInputTokens)
}

func TestQuotaLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetQuotaLedger(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.EnsureQuotaLedger(ctx, 7, 1000, "2026-08-01"))
	require.NoError(t, store.AddQuotaUsage(ctx, 7, 40))

	ledger, err := store.GetQuotaLedger(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Equal(t, 1000, ledger.Limit)
	assert.Equal(t, 40, ledger.Used)
	assert.Equal(t, 960, ledger.Remaining())

	// Same period keeps the counter, a newer period resets it.
	require.NoError(t, store.EnsureQuotaLedger(ctx, 7, 1000, "2026-08-01"))
	ledger, _ = store.GetQuotaLedger(ctx, 7)
	assert.Equal(t, 40, ledger.Used)

	require.NoError(t, store.EnsureQuotaLedger(ctx, 7, 1000, "2026-09-01"))
	ledger, _ = store.GetQuotaLedger(ctx, 7)
	assert.Equal(t, 0, ledger.Used)
	assert.Equal(t, "2026-09-01", ledger.ResetDate)
}

func TestAddQuotaUsage_MissingLedger(t *testing.T) {
	store := newTestStore(t)

	err := store.AddQuotaUsage(context.Background(), 99, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota ledger not found")
}

func TestAcquireRunLock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.AcquireRunLock(ctx, "daily_llm_analysis", "20260828")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireRunLock(ctx, "daily_llm_analysis", "20260828")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.AcquireRunLock(ctx, "daily_llm_analysis", "20260829")
	require.NoError(t, err)
	assert.True(t, ok)
}
