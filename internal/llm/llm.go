package llm

import (
	"context"
	"sort"
	"sync"

	"github.com/sovtrack/sovtrack/internal/models"
)

// SourceExtractedFromText tags URLs scanned out of the response body, as
// opposed to citations returned natively by a provider.
const SourceExtractedFromText = "extracted_from_text"

// Response is the normalized shape every provider returns for one query.
type Response struct {
	Content         string
	Sources         []models.Source
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	TokensEstimated bool
	CostUSD         float64
	ResponseTimeMs  int64
	ModelUsed       string
}

// ProviderConfig configures one provider instance. API keys come from the
// environment; PreferredModel overrides the registry's current model.
type ProviderConfig struct {
	APIKey          string
	PreferredModel  string
	EnableGrounding bool
}

// ModelSource resolves the current model and pricing for a provider. The
// model registry cache implements it; providers treat it as read-only.
type ModelSource interface {
	CurrentModel(ctx context.Context, provider string) (string, bool)
	Pricing(ctx context.Context, provider, modelID string) models.Pricing
}

// Provider is the uniform interface over the vendor APIs.
type Provider interface {
	// Name returns the provider tag (openai, anthropic, google, perplexity)
	Name() string

	// DisplayName returns the human-friendly provider name
	DisplayName() string

	// ExecuteQuery sends one free-text question and returns the normalized
	// response. Retry policy is applied inside.
	ExecuteQuery(ctx context.Context, query string) (*Response, error)

	// TestConnection issues the cheapest possible call and reports whether
	// the provider is usable
	TestConnection(ctx context.Context) bool

	// PricingInfo returns the per-token pricing of the model in use
	PricingInfo(ctx context.Context) models.Pricing
}

// ModelLister is implemented by providers that can enumerate their models
// for the registry discovery job.
type ModelLister interface {
	ListModels(ctx context.Context) ([]models.ModelInfo, error)
}

// Registry holds the initialized providers of one run, keyed by tag.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by tag
func (r *Registry) Get(tag string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[tag]
	return p, ok
}

// Names returns the registered provider tags, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// First returns any one provider, preferring google. The sentiment
// classifier uses it when no explicit provider is configured.
func (r *Registry) First() (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[models.ProviderGoogle]; ok {
		return p, true
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		return r.providers[name], true
	}
	return nil, false
}
