package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/config"
	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/models"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the model registry",
	Long:  `Inspect and update the model registry that decides which model each provider uses and what it costs.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered models",
	RunE:  runModelsList,
}

var modelsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Discover available models from the providers",
	Long: `Query each configured provider for its available models and update the
registry. With AUTO_UPDATE_MODELS=true, providers without a current model
get their first discovered model promoted automatically.`,
	RunE: runModelsRefresh,
}

var modelsSetCurrentCmd = &cobra.Command{
	Use:   "set-current <provider> <model-id>",
	Short: "Mark a registered model as the provider's current model",
	Args:  cobra.ExactArgs(2),
	RunE:  runModelsSetCurrent,
}

func init() {
	modelsCmd.PersistentFlags().StringVarP(&modelsProvider, "provider", "P", "", "filter by provider")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsRefreshCmd)
	modelsCmd.AddCommand(modelsSetCurrentCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	entries, err := store.ListRegistryEntries(context.Background(), modelsProvider)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println(FormatWarning("No models registered. Run 'sovtrack models refresh' to discover them."))
		return nil
	}

	fmt.Println(FormatHeader("📋 Model Registry"))
	fmt.Printf("%-12s %-40s %-10s %-10s %s\n", "PROVIDER", "MODEL", "IN $/1M", "OUT $/1M", "FLAGS")
	for _, e := range entries {
		flags := ""
		if e.IsCurrent {
			flags += FormatSuccess("current ")
		}
		if !e.IsAvailable {
			flags += FormatWarning("unavailable")
		}
		fmt.Printf("%-12s %-40s %-10.2f %-10.2f %s\n",
			e.Provider, truncate(e.ModelID, 40), e.CostPer1MInputTokens, e.CostPer1MOutputTokens, flags)
	}
	return nil
}

func runModelsRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	providers, err := buildProviders(ctx, false)
	if err != nil {
		return err
	}

	autoUpdate := config.AutoUpdateModels()
	for _, tag := range providers.Names() {
		if modelsProvider != "" && modelsProvider != tag {
			continue
		}
		provider, _ := providers.Get(tag)
		lister, ok := provider.(llm.ModelLister)
		if !ok {
			fmt.Printf("%-12s model discovery not supported, skipping\n", tag)
			continue
		}

		discovered, err := lister.ListModels(ctx)
		if err != nil {
			fmt.Println(FormatError(fmt.Sprintf("%-12s discovery failed: %v", tag, err)))
			continue
		}

		for _, m := range discovered {
			entry := &models.RegistryEntry{
				Provider:         tag,
				ModelID:          m.ID,
				ModelDisplayName: m.Name,
				IsAvailable:      true,
			}
			if err := store.UpsertRegistryEntry(ctx, entry); err != nil {
				return fmt.Errorf("failed to register model %s/%s: %w", tag, m.ID, err)
			}
		}

		if autoUpdate && len(discovered) > 0 {
			current, err := store.GetCurrentModel(ctx, tag)
			if err != nil {
				return fmt.Errorf("failed to read current model: %w", err)
			}
			if current == nil {
				if err := store.SetCurrentModel(ctx, tag, discovered[0].ID); err != nil {
					return fmt.Errorf("failed to promote model: %w", err)
				}
				fmt.Printf("%-12s promoted %s to current\n", tag, discovered[0].ID)
			}
		}

		modelCache.Invalidate(tag)
		fmt.Printf("%-12s discovered %s models\n", tag, FormatCount(len(discovered)))
	}

	fmt.Println(FormatSuccess("✅ Model registry refreshed"))
	return nil
}

func runModelsSetCurrent(cmd *cobra.Command, args []string) error {
	provider, modelID := args[0], args[1]
	if !models.IsKnownProvider(provider) {
		return fmt.Errorf("unknown provider: %s", provider)
	}

	if err := store.SetCurrentModel(context.Background(), provider, modelID); err != nil {
		return fmt.Errorf("failed to set current model: %w", err)
	}
	modelCache.Invalidate(provider)

	fmt.Println(FormatSuccess(fmt.Sprintf("✅ %s now uses %s", provider, modelID)))
	return nil
}
