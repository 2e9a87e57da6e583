// Package perplexity talks to the Perplexity API, which exposes an
// OpenAI-compatible chat surface at a custom base URL. Real-time web search
// is implicit in the sonar models.
package perplexity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/llm/retry"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// DefaultModel is used when neither the registry nor the environment names
// a model.
const DefaultModel = "sonar"

const (
	baseURL          = "https://api.perplexity.ai/"
	defaultMaxTokens = 1200
	requestTimeout   = 45 * time.Second
)

// Provider implements the LLM Provider interface for Perplexity
type Provider struct {
	client openai.Client
	src    llm.ModelSource

	preferred string

	mu    sync.Mutex
	model string
}

// New creates a new Perplexity provider
func New(cfg llm.ProviderConfig, src llm.ModelSource) *Provider {
	return &Provider{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
		),
		src:       src,
		preferred: cfg.PreferredModel,
	}
}

// Name returns the provider tag
func (p *Provider) Name() string {
	return models.ProviderPerplexity
}

// DisplayName returns the human-friendly provider name
func (p *Provider) DisplayName() string {
	return "Perplexity"
}

func (p *Provider) resolveModel(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.model != "" {
		return p.model
	}
	if p.preferred != "" {
		p.model = p.preferred
	} else if m, ok := p.src.CurrentModel(ctx, p.Name()); ok {
		p.model = m
	} else {
		p.model = DefaultModel
	}
	return p.model
}

// ExecuteQuery sends a chat completion and normalizes the result
func (p *Provider) ExecuteQuery(ctx context.Context, query string) (*llm.Response, error) {
	model := p.resolveModel(ctx)
	startTime := time.Now()

	resp, err := retry.Do(ctx, "perplexity", func() (*openai.ChatCompletion, error) {
		return p.complete(ctx, model, query, defaultMaxTokens)
	})
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("perplexity returned empty content")
	}

	modelUsed := resp.Model
	if modelUsed == "" {
		modelUsed = model
	}

	// Token usage may be absent; estimate from word counts then
	inputTokens, outputTokens, estimated := 0, 0, false
	if resp.Usage.TotalTokens > 0 {
		inputTokens = int(resp.Usage.PromptTokens)
		outputTokens = int(resp.Usage.CompletionTokens)
	} else {
		inputTokens = llm.EstimateTokens(query)
		outputTokens = llm.EstimateTokens(content)
		estimated = true
	}

	pricing := p.src.Pricing(ctx, p.Name(), modelUsed)

	return &llm.Response{
		Content:         content,
		Sources:         llm.ExtractURLs(content),
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		TotalTokens:     inputTokens + outputTokens,
		TokensEstimated: estimated,
		CostUSD:         pricing.Cost(inputTokens, outputTokens),
		ResponseTimeMs:  time.Since(startTime).Milliseconds(),
		ModelUsed:       modelUsed,
	}, nil
}

func (p *Provider) complete(ctx context.Context, model, prompt string, maxTokens int) (*openai.ChatCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	return p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	})
}

// TestConnection issues the cheapest possible call
func (p *Provider) TestConnection(ctx context.Context) bool {
	resp, err := p.complete(ctx, p.resolveModel(ctx), "ping", 10)
	if err != nil {
		logger.Warning("perplexity: connection test failed: %v", err)
		return false
	}
	return len(resp.Choices) > 0
}

// PricingInfo returns the per-token pricing of the model in use
func (p *Provider) PricingInfo(ctx context.Context) models.Pricing {
	return p.src.Pricing(ctx, p.Name(), p.resolveModel(ctx))
}

// ListModels returns a curated list; Perplexity has no models endpoint.
func (p *Provider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	return []models.ModelInfo{
		{ID: "sonar", Name: "Sonar", Description: "Lightweight search model"},
		{ID: "sonar-pro", Name: "Sonar Pro", Description: "Advanced search model"},
		{ID: "sonar-reasoning", Name: "Sonar Reasoning", Description: "Reasoning with search"},
	}, nil
}
