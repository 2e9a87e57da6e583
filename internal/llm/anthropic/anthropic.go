package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/llm/retry"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// DefaultModel is used when neither the registry nor the environment names
// a model.
const DefaultModel = "claude-3-7-sonnet-20250219"

const (
	baseURL          = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1200
	maxTokensCap     = 64000
	requestTimeout   = 90 * time.Second
)

// Provider implements the LLM Provider interface for Anthropic
type Provider struct {
	apiKey string
	client *http.Client
	src    llm.ModelSource

	preferred string

	mu    sync.Mutex
	model string
}

// New creates a new Anthropic provider
func New(cfg llm.ProviderConfig, src llm.ModelSource) *Provider {
	return &Provider{
		apiKey:    cfg.APIKey,
		src:       src,
		preferred: cfg.PreferredModel,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Name returns the provider tag
func (p *Provider) Name() string {
	return models.ProviderAnthropic
}

// DisplayName returns the human-friendly provider name
func (p *Provider) DisplayName() string {
	return "Anthropic"
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

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// ExecuteQuery sends a single-user-message request and normalizes the result
func (p *Provider) ExecuteQuery(ctx context.Context, query string) (*llm.Response, error) {
	model := p.resolveModel(ctx)
	startTime := time.Now()

	resp, err := retry.Do(ctx, "anthropic", func() (*messagesResponse, error) {
		return p.message(ctx, model, query, defaultMaxTokens)
	})
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("anthropic returned empty content")
	}

	modelUsed := resp.Model
	if modelUsed == "" {
		modelUsed = model
	}

	pricing := p.src.Pricing(ctx, p.Name(), modelUsed)

	return &llm.Response{
		Content:        content,
		Sources:        llm.ExtractURLs(content),
		InputTokens:    resp.Usage.InputTokens,
		OutputTokens:   resp.Usage.OutputTokens,
		TotalTokens:    resp.Usage.InputTokens + resp.Usage.OutputTokens,
		CostUSD:        pricing.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		ResponseTimeMs: time.Since(startTime).Milliseconds(),
		ModelUsed:      modelUsed,
	}, nil
}

func (p *Provider) message(ctx context.Context, model, prompt string, maxTokens int) (*messagesResponse, error) {
	if maxTokens > maxTokensCap {
		maxTokens = maxTokensCap
	}

	requestBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &parsed, nil
}

// TestConnection issues the cheapest possible call
func (p *Provider) TestConnection(ctx context.Context) bool {
	resp, err := p.message(ctx, p.resolveModel(ctx), "ping", 10)
	if err != nil {
		logger.Warning("anthropic: connection test failed: %v", err)
		return false
	}
	return len(resp.Content) > 0
}

// PricingInfo returns the per-token pricing of the model in use
func (p *Provider) PricingInfo(ctx context.Context) models.Pricing {
	return p.src.Pricing(ctx, p.Name(), p.resolveModel(ctx))
}

// ListModels returns a curated list; Anthropic has no public models API
// usable with a plain API key.
func (p *Provider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	return []models.ModelInfo{
		{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet", Description: "Balanced intelligence and speed"},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Description: "Previous generation Sonnet"},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Description: "Fastest model, best for simple tasks"},
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Description: "Powerful model for highly complex tasks"},
	}, nil
}
