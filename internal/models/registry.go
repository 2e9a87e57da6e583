package models

import "time"

// RegistryEntry is one row of the model registry: the single source of truth
// for "current model" and per-token pricing per provider.
// Unique by (provider, model_id); at most one is_current per provider.
type RegistryEntry struct {
	ID                   int64     `json:"id"`
	Provider             string    `json:"provider"`
	ModelID              string    `json:"model_id"`
	ModelDisplayName     string    `json:"model_display_name"`
	CostPer1MInputTokens float64   `json:"cost_per_1m_input_tokens"`
	CostPer1MOutputTokens float64  `json:"cost_per_1m_output_tokens"`
	IsCurrent            bool      `json:"is_current"`
	IsAvailable          bool      `json:"is_available"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Pricing is per-token pricing derived from a registry entry.
type Pricing struct {
	InputPerToken  float64 `json:"input_per_token"`
	OutputPerToken float64 `json:"output_per_token"`
}

// Cost computes the USD cost of a call at this pricing.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerToken + float64(outputTokens)*p.OutputPerToken
}

// ModelInfo describes a model advertised by a provider's listing endpoint.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
