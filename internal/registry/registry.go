// Package registry exposes the model registry to the providers: the current
// model per provider and per-token pricing. Reads go through an in-memory
// cache; the registry itself is only written by the discovery job and admin
// edits.
package registry

import (
	"context"
	"sync"

	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// Store is the slice of the persistence layer the cache reads from.
type Store interface {
	GetCurrentModel(ctx context.Context, provider string) (*models.RegistryEntry, error)
	GetRegistryEntry(ctx context.Context, provider, modelID string) (*models.RegistryEntry, error)
}

// Conservative fallback pricing used when a model has no registry row.
// Deliberately non-zero so a missing row can never bill a call as free.
const (
	defaultInputPer1M  = 3.0
	defaultOutputPer1M = 15.0
)

// Cache is a read-through cache over the model registry. Safe for
// concurrent use; run-time reads never mutate the registry.
type Cache struct {
	store Store

	mu      sync.RWMutex
	current map[string]string
	pricing map[string]models.Pricing
}

// NewCache creates a registry cache over the given store
func NewCache(store Store) *Cache {
	return &Cache{
		store:   store,
		current: make(map[string]string),
		pricing: make(map[string]models.Pricing),
	}
}

// CurrentModel returns the registry's current model for a provider. The
// second return is false when the registry has no current row; callers fall
// back to their own hard-coded default.
func (c *Cache) CurrentModel(ctx context.Context, provider string) (string, bool) {
	c.mu.RLock()
	if model, ok := c.current[provider]; ok {
		c.mu.RUnlock()
		return model, model != ""
	}
	c.mu.RUnlock()

	entry, err := c.store.GetCurrentModel(ctx, provider)
	if err != nil {
		logger.Warning("registry: current model lookup failed for %s: %v", provider, err)
		return "", false
	}

	model := ""
	if entry != nil {
		model = entry.ModelID
	}

	c.mu.Lock()
	c.current[provider] = model
	if entry != nil {
		c.pricing[provider+"/"+model] = perToken(entry)
	}
	c.mu.Unlock()

	return model, model != ""
}

// Pricing returns per-token pricing for (provider, modelID). A missing row
// falls back to a conservative non-zero default and logs a warning; it never
// silently prices a call at zero.
func (c *Cache) Pricing(ctx context.Context, provider, modelID string) models.Pricing {
	key := provider + "/" + modelID

	c.mu.RLock()
	if p, ok := c.pricing[key]; ok {
		c.mu.RUnlock()
		return p
	}
	c.mu.RUnlock()

	var p models.Pricing
	entry, err := c.store.GetRegistryEntry(ctx, provider, modelID)
	if err != nil || entry == nil {
		logger.Warning("registry: no pricing for %s/%s, using conservative default", provider, modelID)
		p = models.Pricing{
			InputPerToken:  defaultInputPer1M / 1_000_000,
			OutputPerToken: defaultOutputPer1M / 1_000_000,
		}
	} else {
		p = perToken(entry)
	}

	c.mu.Lock()
	c.pricing[key] = p
	c.mu.Unlock()

	return p
}

// Invalidate drops the cached entries of one provider, e.g. after a
// discovery run or an admin edit.
func (c *Cache) Invalidate(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.current, provider)
	for key := range c.pricing {
		if len(key) > len(provider) && key[:len(provider)] == provider && key[len(provider)] == '/' {
			delete(c.pricing, key)
		}
	}
}

func perToken(entry *models.RegistryEntry) models.Pricing {
	return models.Pricing{
		InputPerToken:  entry.CostPer1MInputTokens / 1_000_000,
		OutputPerToken: entry.CostPer1MOutputTokens / 1_000_000,
	}
}
