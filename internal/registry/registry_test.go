package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovtrack/sovtrack/internal/models"
)

// fakeStore serves canned registry rows and counts lookups.
type fakeStore struct {
	current map[string]*models.RegistryEntry
	entries map[string]*models.RegistryEntry
	err     error
	lookups int
}

func (f *fakeStore) GetCurrentModel(ctx context.Context, provider string) (*models.RegistryEntry, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.current[provider], nil
}

func (f *fakeStore) GetRegistryEntry(ctx context.Context, provider, modelID string) (*models.RegistryEntry, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[provider+"/"+modelID], nil
}

func entry(provider, modelID string, in, out float64) *models.RegistryEntry {
	return &models.RegistryEntry{
		Provider:              provider,
		ModelID:               modelID,
		CostPer1MInputTokens:  in,
		CostPer1MOutputTokens: out,
		IsCurrent:             true,
	}
}

func TestCurrentModel_FromStore(t *testing.T) {
	store := &fakeStore{current: map[string]*models.RegistryEntry{
		"openai": entry("openai", "gpt-4o", 2.5, 10),
	}}
	cache := NewCache(store)

	model, ok := cache.CurrentModel(context.Background(), "openai")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", model)

	// Second lookup is served from cache
	cache.CurrentModel(context.Background(), "openai")
	assert.Equal(t, 1, store.lookups)
}

func TestCurrentModel_MissingRow(t *testing.T) {
	cache := NewCache(&fakeStore{})

	model, ok := cache.CurrentModel(context.Background(), "anthropic")
	assert.False(t, ok)
	assert.Equal(t, "", model)
}

func TestCurrentModel_StoreError(t *testing.T) {
	cache := NewCache(&fakeStore{err: errors.New("db closed")})

	_, ok := cache.CurrentModel(context.Background(), "openai")
	assert.False(t, ok)
}

func TestPricing_PerTokenConversion(t *testing.T) {
	store := &fakeStore{entries: map[string]*models.RegistryEntry{
		"openai/gpt-4o": entry("openai", "gpt-4o", 2.5, 10),
	}}
	cache := NewCache(store)

	p := cache.Pricing(context.Background(), "openai", "gpt-4o")
	assert.InDelta(t, 2.5/1_000_000, p.InputPerToken, 1e-12)
	assert.InDelta(t, 10.0/1_000_000, p.OutputPerToken, 1e-12)

	// 1000 in + 500 out
	cost := p.Cost(1000, 500)
	assert.InDelta(t, 0.0025+0.005, cost, 1e-9)
}

func TestPricing_DefaultIsNeverZero(t *testing.T) {
	cache := NewCache(&fakeStore{})

	p := cache.Pricing(context.Background(), "google", "gemini-unknown")
	assert.Greater(t, p.InputPerToken, 0.0)
	assert.Greater(t, p.OutputPerToken, 0.0)
}

func TestInvalidate(t *testing.T) {
	store := &fakeStore{current: map[string]*models.RegistryEntry{
		"openai": entry("openai", "gpt-4o", 2.5, 10),
	}}
	cache := NewCache(store)

	cache.CurrentModel(context.Background(), "openai")
	store.current["openai"] = entry("openai", "gpt-5", 5, 20)

	cache.Invalidate("openai")
	model, ok := cache.CurrentModel(context.Background(), "openai")
	require.True(t, ok)
	assert.Equal(t, "gpt-5", model)
}
