// Package cli implements the sovtrack command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/config"
	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/db/mongodb"
	"github.com/sovtrack/sovtrack/internal/db/sqlite"
	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/llm/factory"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/registry"
)

var (
	cfgFile    string
	cfg        *config.Config
	store      db.Store
	sqlStore   *sqlite.SQLite
	modelCache *registry.Cache
	archive    *mongodb.Archive
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sovtrack",
	Short: "Brand visibility tracker for LLM answers",
	Long: `Sovtrack monitors how often a brand is mentioned, ranked, and cited
when large language models answer the questions its customers ask.

Each day it fans generated queries across the configured LLM providers,
analyzes every answer for mentions, list positions, sentiment, and cited
sources, and rolls the results into per-provider share-of-voice snapshots.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip init for the init command itself
		if cmd.Name() == "init" {
			return nil
		}

		// Load configuration
		if cfgFile == "" {
			cfgFile = config.GetConfigPath()
		}

		if !config.Exists(cfgFile) {
			return fmt.Errorf("configuration file not found. Run 'sovtrack init' to create one")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger.Init(logger.ParseLogLevel(cfg.LogLevel), os.Stderr)

		// Initialize the SQL store
		sqlStore = sqlite.New(cfg.Database.URI)
		if err := sqlStore.Connect(context.Background()); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		store = sqlStore

		// Optional raw-response archive
		if cfg.Archive.URI != "" {
			archive = mongodb.New(cfg.Archive.URI, cfg.Archive.Database)
			if err := archive.Connect(context.Background()); err != nil {
				logger.Warning("Raw-response archive unavailable: %v", err)
				archive = nil
			}
		}

		modelCache = registry.NewCache(store)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if archive != nil {
			archive.Disconnect(context.Background())
		}
		if store != nil {
			return store.Disconnect(context.Background())
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sovtrack/config.yaml)")

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// buildProviders initializes the LLM providers from environment API keys.
func buildProviders(ctx context.Context, validate bool) (*llm.Registry, error) {
	apiKeys := config.APIKeys()
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("no LLM API keys found in environment (set %s, %s, %s, or %s)",
			config.EnvOpenAIKey, config.EnvAnthropicKey, config.EnvGoogleKey, config.EnvPerplexityKey)
	}

	providers := factory.CreateAll(ctx, apiKeys, modelCache, factory.Options{
		Validate:        validate,
		EnableGrounding: cfg.Engine.EnableGrounding,
	})
	if providers.Len() == 0 {
		return nil, fmt.Errorf("no LLM providers could be initialized")
	}
	return providers, nil
}
