// Package factory builds provider instances from the configured API keys.
package factory

import (
	"context"
	"os"
	"strings"

	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/llm/anthropic"
	"github.com/sovtrack/sovtrack/internal/llm/google"
	"github.com/sovtrack/sovtrack/internal/llm/openai"
	"github.com/sovtrack/sovtrack/internal/llm/perplexity"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

// Options tunes provider construction.
type Options struct {
	// Validate issues a connection test per provider and drops the ones
	// that fail it
	Validate bool

	// EnableGrounding turns on web-search grounding where supported
	EnableGrounding bool
}

var constructors = map[string]func(llm.ProviderConfig, llm.ModelSource) llm.Provider{
	models.ProviderOpenAI: func(cfg llm.ProviderConfig, src llm.ModelSource) llm.Provider {
		return openai.New(cfg, src)
	},
	models.ProviderAnthropic: func(cfg llm.ProviderConfig, src llm.ModelSource) llm.Provider {
		return anthropic.New(cfg, src)
	},
	models.ProviderGoogle: func(cfg llm.ProviderConfig, src llm.ModelSource) llm.Provider {
		return google.New(cfg, src)
	},
	models.ProviderPerplexity: func(cfg llm.ProviderConfig, src llm.ModelSource) llm.Provider {
		return perplexity.New(cfg, src)
	},
}

// CreateAll instantiates one provider per non-empty API key and returns the
// registry of the ones that initialized (and, when opts.Validate is set,
// passed the connection test). An empty registry is valid here; the
// orchestrator treats it as a fatal configuration error for the run.
func CreateAll(ctx context.Context, apiKeys map[string]string, src llm.ModelSource, opts Options) *llm.Registry {
	reg := llm.NewRegistry()

	for _, tag := range models.KnownProviders {
		key := strings.TrimSpace(apiKeys[tag])
		if key == "" {
			continue
		}

		construct, ok := constructors[tag]
		if !ok {
			logger.Warning("factory: no constructor for provider %s", tag)
			continue
		}

		cfg := llm.ProviderConfig{
			APIKey:          key,
			PreferredModel:  preferredModel(tag),
			EnableGrounding: opts.EnableGrounding,
		}

		provider := construct(cfg, src)
		if opts.Validate && !provider.TestConnection(ctx) {
			logger.Warning("factory: provider %s failed connection test, skipping", tag)
			continue
		}

		reg.Register(provider)
		logger.Info("factory: provider %s ready", tag)
	}

	return reg
}

// preferredModel reads the per-provider model override, e.g.
// OPENAI_PREFERRED_MODEL.
func preferredModel(tag string) string {
	return strings.TrimSpace(os.Getenv(strings.ToUpper(tag) + "_PREFERRED_MODEL"))
}
