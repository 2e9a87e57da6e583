package google

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/llm/retry"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// DefaultModel is used when neither the registry nor the environment names
// a model.
const DefaultModel = "gemini-1.5-flash"

const requestTimeout = 30 * time.Second

// Provider implements the LLM Provider interface for Google AI
type Provider struct {
	apiKey    string
	src       llm.ModelSource
	grounding bool

	preferred string

	mu     sync.Mutex
	client *genai.Client
	model  string
}

// New creates a new Google provider. Web-search grounding is attempted when
// cfg.EnableGrounding is set; calls fall back to plain generation when the
// model rejects the tool.
func New(cfg llm.ProviderConfig, src llm.ModelSource) *Provider {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		client = nil
	}

	return &Provider{
		apiKey:    cfg.APIKey,
		src:       src,
		grounding: cfg.EnableGrounding,
		preferred: cfg.PreferredModel,
		client:    client,
	}
}

// Name returns the provider tag
func (p *Provider) Name() string {
	return models.ProviderGoogle
}

// DisplayName returns the human-friendly provider name
func (p *Provider) DisplayName() string {
	return "Google AI"
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	p.client = client
	return client, nil
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

// ExecuteQuery sends a generation request, grounded by web search when
// enabled, and normalizes the result
func (p *Provider) ExecuteQuery(ctx context.Context, query string) (*llm.Response, error) {
	model := p.resolveModel(ctx)
	startTime := time.Now()

	result, err := retry.Do(ctx, "google", func() (*genai.GenerateContentResponse, error) {
		return p.generate(ctx, model, query, p.grounding)
	})
	if err != nil && p.grounding && isGroundingRejected(err) {
		logger.Warning("google: grounding rejected by %s, retrying without it", model)
		result, err = retry.Do(ctx, "google", func() (*genai.GenerateContentResponse, error) {
			return p.generate(ctx, model, query, false)
		})
	}
	if err != nil {
		return nil, err
	}

	var content string
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil && len(result.Candidates[0].Content.Parts) > 0 {
		if text := result.Candidates[0].Content.Parts[0].Text; text != "" {
			content = text
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("google returned empty content")
	}

	// usage_metadata may be absent; estimate tokens from word counts then
	inputTokens, outputTokens, estimated := 0, 0, false
	if result.UsageMetadata != nil && result.UsageMetadata.TotalTokenCount > 0 {
		inputTokens = int(result.UsageMetadata.PromptTokenCount)
		outputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	} else {
		inputTokens = llm.EstimateTokens(query)
		outputTokens = llm.EstimateTokens(content)
		estimated = true
	}

	pricing := p.src.Pricing(ctx, p.Name(), model)

	return &llm.Response{
		Content:         content,
		Sources:         llm.ExtractURLs(content),
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		TotalTokens:     inputTokens + outputTokens,
		TokensEstimated: estimated,
		CostUSD:         pricing.Cost(inputTokens, outputTokens),
		ResponseTimeMs:  time.Since(startTime).Milliseconds(),
		ModelUsed:       model,
	}, nil
}

func (p *Provider) generate(ctx context.Context, model, prompt string, grounded bool) (*genai.GenerateContentResponse, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	content := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	config := &genai.GenerateContentConfig{}
	if grounded {
		config.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, content, config)
	if err != nil {
		return nil, fmt.Errorf("Google AI API error: %v", err)
	}
	return result, nil
}

// TestConnection issues the cheapest possible call
func (p *Provider) TestConnection(ctx context.Context) bool {
	result, err := p.generate(ctx, p.resolveModel(ctx), "ping", false)
	if err != nil {
		logger.Warning("google: connection test failed: %v", err)
		return false
	}
	return len(result.Candidates) > 0
}

// PricingInfo returns the per-token pricing of the model in use
func (p *Provider) PricingInfo(ctx context.Context) models.Pricing {
	return p.src.Pricing(ctx, p.Name(), p.resolveModel(ctx))
}

// ListModels lists Gemini text models for the registry discovery job
func (p *Provider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	page, err := client.Models.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var infos []models.ModelInfo
	for _, m := range page.Items {
		lower := strings.ToLower(m.Name)
		if !strings.Contains(lower, "gemini") ||
			strings.Contains(lower, "embed") ||
			strings.Contains(lower, "image") ||
			strings.Contains(lower, "vision") {
			continue
		}

		name := strings.TrimPrefix(m.Name, "models/")
		infos = append(infos, models.ModelInfo{
			ID:          name,
			Name:        name,
			Description: m.Description,
		})
	}

	return infos, nil
}

func isGroundingRejected(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tool") ||
		strings.Contains(msg, "grounding") ||
		strings.Contains(msg, "search") && strings.Contains(msg, "not supported")
}
