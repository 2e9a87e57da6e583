package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/models"
	"github.com/sovtrack/sovtrack/internal/orchestrator"
	"github.com/sovtrack/sovtrack/internal/quota"
)

var (
	runProjectID int64
	runForce     bool
	runWorkers   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily analysis once",
	Long: `Execute the daily brand visibility analysis immediately.

Without --project every active project is analyzed. Use 'sovtrack scheduler'
for unattended daily execution.`,
	RunE: runCommand,
}

func init() {
	runCmd.Flags().Int64VarP(&runProjectID, "project", "p", 0, "analyze only this project id")
	runCmd.Flags().BoolVarP(&runForce, "force", "f", false, "re-run tasks that already have a result for today")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "max concurrent LLM calls (default from config)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	providers, err := buildProviders(ctx, true)
	if err != nil {
		return err
	}

	gate := quota.New(store, cfg.Engine.QuotaLimit, cfg.Engine.RUPerTask)
	orch := orchestrator.New(store, providers, gate, archive)

	workers := runWorkers
	if workers <= 0 {
		workers = cfg.Engine.MaxWorkers
	}
	opts := orchestrator.Options{MaxWorkers: workers, ForceOverwrite: runForce}

	fmt.Println(FormatHeader("🔍 Starting analysis run"))
	fmt.Println(FormatLabelValue("Providers:", fmt.Sprintf("%v", providers.Names())))
	fmt.Println()

	var summaries []*models.RunSummary
	if runProjectID > 0 {
		summary, err := orch.AnalyzeProject(ctx, runProjectID, opts)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		summaries = append(summaries, summary)
	} else {
		summaries, err = orch.AnalyzeAllActiveProjects(ctx, opts)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	}

	if len(summaries) == 0 {
		fmt.Println(FormatWarning("No active projects to analyze."))
		return nil
	}

	for _, summary := range summaries {
		printRunSummary(summary)
	}
	return nil
}

func printRunSummary(summary *models.RunSummary) {
	fmt.Println(FormatHeader(fmt.Sprintf("Project %d", summary.ProjectID)) + FormatMeta(" run "+summary.RunID))
	fmt.Printf("  Tasks:     %s total, %s succeeded, %s failed, %s skipped\n",
		FormatCount(summary.TotalTasks), FormatCount(summary.Succeeded),
		FormatCount(summary.Failed), FormatCount(summary.Skipped))
	if summary.QuotaExceeded {
		fmt.Printf("  %s %s tasks blocked by quota\n", FormatWarning("Quota:"), FormatCount(summary.QuotaBlocked))
	}
	fmt.Printf("  Cost:      $%.4f (%d tokens)\n", summary.TotalCostUSD, summary.TotalTokens)
	fmt.Printf("  Elapsed:   %dms\n", summary.ElapsedMs)
	for tag, rate := range summary.PerLLMRate {
		fmt.Printf("  %-10s %.0f%% completed\n", tag+":", rate*100)
	}
	fmt.Println()
}
