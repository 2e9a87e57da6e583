// Package sentiment labels mention contexts as positive, neutral, or
// negative. The preferred path asks a configured LLM provider; a keyword
// heuristic covers provider failures and provider-less runs.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// Classification methods, carried for observability only.
const (
	MethodLLM             = "llm"
	MethodKeywordFallback = "keyword-fallback"
)

const (
	positiveThreshold = 0.15
	negativeThreshold = -0.15
	maxPromptContexts = 5
)

var positiveKeywords = []string{
	"best", "excellent", "great", "top", "leading", "recommended",
	"outstanding", "superior", "perfect", "amazing", "fantastic",
}

var negativeKeywords = []string{
	"worst", "bad", "poor", "avoid", "problem", "issue",
	"terrible", "horrible", "disappointing", "unreliable",
}

// Result is one sentiment classification.
type Result struct {
	Label  string
	Score  float64 // 0..1
	Method string
}

// Classifier infers sentiment from mention contexts. The provider is
// injected by the orchestrator so its own call never re-enters the worker
// pool; a nil provider always takes the fallback path.
type Classifier struct {
	provider llm.Provider
}

// NewClassifier creates a classifier backed by the given provider, which
// may be nil.
func NewClassifier(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify labels the joined mention contexts of one brand in one response.
func (c *Classifier) Classify(ctx context.Context, brand string, contexts []string) Result {
	if len(contexts) == 0 {
		return Result{Label: models.SentimentNeutral, Score: 0.5, Method: MethodKeywordFallback}
	}

	if c.provider != nil {
		if result, ok := c.classifyWithLLM(ctx, brand, contexts); ok {
			return result
		}
	}

	return classifyWithKeywords(contexts)
}

type llmVerdict struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

func (c *Classifier) classifyWithLLM(ctx context.Context, brand string, contexts []string) (Result, bool) {
	limited := contexts
	if len(limited) > maxPromptContexts {
		limited = limited[:maxPromptContexts]
	}

	prompt := fmt.Sprintf(`Classify the sentiment toward the brand %q in these text excerpts.
Respond with only a JSON object: {"sentiment": "positive"|"neutral"|"negative", "score": 0.0-1.0}

Excerpts:
%s`, brand, strings.Join(limited, "\n---\n"))

	resp, err := c.provider.ExecuteQuery(ctx, prompt)
	if err != nil {
		logger.Warning("sentiment: provider %s failed, using keyword fallback: %v", c.provider.Name(), err)
		return Result{}, false
	}

	verdict, err := parseVerdict(resp.Content)
	if err != nil {
		logger.Warning("sentiment: unparseable verdict from %s: %v", c.provider.Name(), err)
		return Result{}, false
	}

	return Result{Label: verdict.Sentiment, Score: verdict.Score, Method: MethodLLM}, true
}

// parseVerdict is deliberately forgiving: it fishes the first JSON object
// out of whatever prose surrounds it.
func parseVerdict(content string) (*llmVerdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return nil, err
	}

	switch verdict.Sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		return nil, fmt.Errorf("unknown sentiment label %q", verdict.Sentiment)
	}
	if verdict.Score < 0 || verdict.Score > 1 {
		return nil, fmt.Errorf("score %v out of range", verdict.Score)
	}
	return &verdict, nil
}

// classifyWithKeywords scores the joined contexts by keyword counts. The
// raw score (pos-neg)/max(1,pos+neg) lives in [-1,1] and maps onto [0,1].
func classifyWithKeywords(contexts []string) Result {
	joined := strings.ToLower(strings.Join(contexts, " "))

	pos, neg := 0, 0
	for _, kw := range positiveKeywords {
		pos += strings.Count(joined, kw)
	}
	for _, kw := range negativeKeywords {
		neg += strings.Count(joined, kw)
	}

	denom := pos + neg
	if denom < 1 {
		denom = 1
	}
	raw := float64(pos-neg) / float64(denom)

	label := models.SentimentNeutral
	if raw > positiveThreshold {
		label = models.SentimentPositive
	} else if raw < negativeThreshold {
		label = models.SentimentNegative
	}

	return Result{Label: label, Score: (raw + 1) / 2, Method: MethodKeywordFallback}
}
