package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/orchestrator"
	"github.com/sovtrack/sovtrack/internal/quota"
	"github.com/sovtrack/sovtrack/internal/scheduler"
)

var schedulerRunNow bool

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the daily analysis daemon",
	Long: `Start the scheduler daemon that runs the daily analysis on the
configured cron expression. A per-day run lock in the database keeps
multiple instances from running the same day twice.`,
	RunE: runScheduler,
}

func init() {
	schedulerCmd.Flags().BoolVar(&schedulerRunNow, "now", false, "run one analysis immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	providers, err := buildProviders(ctx, true)
	if err != nil {
		return err
	}

	gate := quota.New(store, cfg.Engine.QuotaLimit, cfg.Engine.RUPerTask)
	orch := orchestrator.New(store, providers, gate, archive)
	sched := scheduler.New(store, orch, cfg.Engine.CronExpr, cfg.Engine.SystemTag,
		orchestrator.Options{MaxWorkers: cfg.Engine.MaxWorkers})

	if schedulerRunNow {
		if err := sched.RunOnce(ctx); err != nil {
			return fmt.Errorf("startup run failed: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	fmt.Println(FormatSuccess("✅ Scheduler is running. Press Ctrl+C to stop."))
	fmt.Println(FormatLabelValue("Cron:", cfg.Engine.CronExpr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n⏸️  Stopping scheduler...")
	sched.Stop()
	return nil
}
