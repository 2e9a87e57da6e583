package openai

import (
	"context"
	"fmt"
	"os"
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
const DefaultModel = "gpt-4o"

const (
	defaultMaxTokens = 1200
	requestTimeout   = 60 * time.Second
)

// Provider implements the LLM Provider interface for OpenAI
type Provider struct {
	client openai.Client
	src    llm.ModelSource

	preferred string
	fallback  string

	mu    sync.Mutex
	model string
}

// New creates a new OpenAI provider
func New(cfg llm.ProviderConfig, src llm.ModelSource) *Provider {
	fallback := os.Getenv("OPENAI_FALLBACK_MODEL")
	if fallback == "" {
		fallback = DefaultModel
	}

	return &Provider{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		src:       src,
		preferred: cfg.PreferredModel,
		fallback:  fallback,
	}
}

// Name returns the provider tag
func (p *Provider) Name() string {
	return models.ProviderOpenAI
}

// DisplayName returns the human-friendly provider name
func (p *Provider) DisplayName() string {
	return "OpenAI"
}

// resolveModel picks the model for this run: env override, then registry
// current model, then the hard-coded default. Cached after the first call.
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

// ExecuteQuery sends a single-turn chat completion and normalizes the result
func (p *Provider) ExecuteQuery(ctx context.Context, query string) (*llm.Response, error) {
	model := p.resolveModel(ctx)
	startTime := time.Now()

	resp, err := retry.Do(ctx, "openai", func() (*openai.ChatCompletion, error) {
		return p.complete(ctx, model, query, defaultMaxTokens)
	})
	if err != nil && isModelUnavailable(err) && model != p.fallback {
		logger.Warning("openai: model %s unavailable, falling back to %s", model, p.fallback)
		model = p.fallback
		resp, err = retry.Do(ctx, "openai", func() (*openai.ChatCompletion, error) {
			return p.complete(ctx, model, query, defaultMaxTokens)
		})
	}
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("openai returned empty content")
	}

	modelUsed := resp.Model
	if modelUsed == "" {
		modelUsed = model
	}

	inputTokens := int(resp.Usage.PromptTokens)
	outputTokens := int(resp.Usage.CompletionTokens)
	pricing := p.src.Pricing(ctx, p.Name(), modelUsed)

	return &llm.Response{
		Content:        content,
		Sources:        llm.ExtractURLs(content),
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		TotalTokens:    inputTokens + outputTokens,
		CostUSD:        pricing.Cost(inputTokens, outputTokens),
		ResponseTimeMs: time.Since(startTime).Milliseconds(),
		ModelUsed:      modelUsed,
	}, nil
}

// complete issues one chat completion. Models in the gpt-5 family take the
// output cap as max_completion_tokens instead of max_tokens.
func (p *Provider) complete(ctx context.Context, model, prompt string, maxTokens int) (*openai.ChatCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if strings.HasPrefix(model, "gpt-5") {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	} else {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	return p.client.Chat.Completions.New(ctx, params)
}

// TestConnection issues the cheapest possible call
func (p *Provider) TestConnection(ctx context.Context) bool {
	model := p.resolveModel(ctx)
	resp, err := p.complete(ctx, model, "ping", 10)
	if err != nil && isModelUnavailable(err) {
		resp, err = p.complete(ctx, p.fallback, "ping", 10)
	}
	if err != nil {
		logger.Warning("openai: connection test failed: %v", err)
		return false
	}
	return len(resp.Choices) > 0
}

// PricingInfo returns the per-token pricing of the model in use
func (p *Provider) PricingInfo(ctx context.Context) models.Pricing {
	return p.src.Pricing(ctx, p.Name(), p.resolveModel(ctx))
}

// ListModels lists chat-capable models for the registry discovery job
func (p *Provider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var infos []models.ModelInfo
	seen := make(map[string]bool)
	for _, m := range page.Data {
		id := strings.ToLower(m.ID)
		if !strings.HasPrefix(id, "gpt-") || seen[m.ID] {
			continue
		}
		// Skip fine-tuned and non-chat models
		if strings.Contains(m.ID, ":") ||
			strings.Contains(id, "embed") ||
			strings.Contains(id, "image") ||
			strings.Contains(id, "audio") ||
			strings.Contains(id, "realtime") ||
			strings.Contains(id, "transcribe") ||
			strings.Contains(id, "tts") {
			continue
		}

		infos = append(infos, models.ModelInfo{
			ID:          m.ID,
			Name:        m.ID,
			Description: fmt.Sprintf("OpenAI %s", m.ID),
		})
		seen[m.ID] = true
	}

	return infos, nil
}

func isModelUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no access") ||
		strings.Contains(msg, "unsupported")
}
