package models

import (
	"strings"
	"time"
)

// Known LLM provider tags
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderPerplexity = "perplexity"
)

// KnownProviders lists every provider tag the engine can dispatch to.
var KnownProviders = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderPerplexity}

// IsKnownProvider reports whether tag names a supported provider.
func IsKnownProvider(tag string) bool {
	for _, p := range KnownProviders {
		if p == tag {
			return true
		}
	}
	return false
}

// Query types
const (
	QueryTypeGeneral       = "general"
	QueryTypeCompetitor    = "competitor"
	QueryTypeBrandSpecific = "brand_specific"
)

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Position sources
const (
	PositionSourceText     = "text"
	PositionSourceCitation = "citation"
)

// Project represents a monitored brand. Projects are created outside the
// engine; the analyzer treats them as read-only input.
type Project struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	BrandName     string    `json:"brand_name"`
	BrandDomain   string    `json:"brand_domain,omitempty"`
	BrandKeywords []string  `json:"brand_keywords,omitempty"`
	Industry      string    `json:"industry"`
	Language      string    `json:"language"`     // ISO 639-1
	CountryCode   string    `json:"country_code"` // ISO 3166-1 alpha-2
	Competitors   []string  `json:"competitors,omitempty"`
	EnabledLLMs   []string  `json:"enabled_llms"`
	QueriesPerLLM int       `json:"queries_per_llm"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MatchName returns the brand name normalized for matching. The verbatim
// name is kept for display.
func (p *Project) MatchName() string {
	return strings.ToLower(strings.TrimSpace(p.BrandName))
}

// Query is one natural-language prompt attached to a project.
type Query struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	QueryText string    `json:"query_text"`
	Language  string    `json:"language"`
	QueryType string    `json:"query_type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is one cited URL attached to a result.
type Source struct {
	URL         string `json:"url"`
	ProviderTag string `json:"provider_tag"`
	Title       string `json:"title,omitempty"`
	SourceName  string `json:"source,omitempty"`
}

// Result is one (query, LLM, day) answer with its full analysis.
// Unique by (project_id, query_id, llm_provider, analysis_date).
type Result struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	QueryID      int64     `json:"query_id"`
	AnalysisDate string    `json:"analysis_date"` // YYYY-MM-DD
	LLMProvider  string    `json:"llm_provider"`
	ModelUsed    string    `json:"model_used"`
	QueryText    string    `json:"query_text"`
	BrandName    string    `json:"brand_name"`

	BrandMentioned        bool     `json:"brand_mentioned"`
	MentionCount          int      `json:"mention_count"`
	MentionContexts       []string `json:"mention_contexts,omitempty"`
	AppearsInNumberedList bool     `json:"appears_in_numbered_list"`
	PositionInList        *int     `json:"position_in_list,omitempty"`
	TotalItemsInList      *int     `json:"total_items_in_list,omitempty"`
	PositionSource        string   `json:"position_source,omitempty"`

	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`

	CompetitorsMentioned map[string]int `json:"competitors_mentioned,omitempty"`

	FullResponse   string   `json:"full_response"`
	ResponseLength int      `json:"response_length"`
	Sources        []Source `json:"sources,omitempty"`

	TokensUsed      int     `json:"tokens_used"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	TokensEstimated bool    `json:"tokens_estimated"`
	CostUSD         float64 `json:"cost_usd"`
	ResponseTimeMs  int64   `json:"response_time_ms"`

	HasError     bool      `json:"has_error"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is the daily rollup of one (project, day, llm_provider).
// Unique by (project_id, snapshot_date, llm_provider).
type Snapshot struct {
	ID           int64  `json:"id"`
	ProjectID    int64  `json:"project_id"`
	SnapshotDate string `json:"snapshot_date"` // YYYY-MM-DD
	LLMProvider  string `json:"llm_provider"`

	TotalQueries  int     `json:"total_queries"`
	TotalMentions int     `json:"total_mentions"`
	MentionRate   float64 `json:"mention_rate"` // percent

	AppearedInTop3  int      `json:"appeared_in_top3"`
	AppearedInTop5  int      `json:"appeared_in_top5"`
	AppearedInTop10 int      `json:"appeared_in_top10"`
	AvgPosition     *float64 `json:"avg_position,omitempty"`

	TotalCompetitorMentions     int                `json:"total_competitor_mentions"`
	ShareOfVoice                float64            `json:"share_of_voice"` // percent
	CompetitorBreakdown         map[string]int     `json:"competitor_breakdown,omitempty"`
	WeightedShareOfVoice        float64            `json:"weighted_share_of_voice"`
	WeightedCompetitorBreakdown map[string]float64 `json:"weighted_competitor_breakdown,omitempty"`

	PositiveMentions  int     `json:"positive_mentions"`
	NeutralMentions   int     `json:"neutral_mentions"`
	NegativeMentions  int     `json:"negative_mentions"`
	AvgSentimentScore float64 `json:"avg_sentiment_score"`

	TotalCostUSD      float64 `json:"total_cost_usd"`
	TotalTokens       int     `json:"total_tokens"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
