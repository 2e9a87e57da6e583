// Package scheduler drives the daily analysis on a cron expression. A
// per-day run lock in the store keeps concurrent instances from doubling
// the day's provider spend.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/orchestrator"
)

var log = logger.GetLogger()

// Scheduler runs the daily analysis job
type Scheduler struct {
	store     db.Store
	orch      *orchestrator.Orchestrator
	cron      *cron.Cron
	cronExpr  string
	systemTag string
	runOpts   orchestrator.Options
	running   bool
	mu        sync.RWMutex
}

// New creates a scheduler. systemTag names the job in the run-lock table so
// differently tagged jobs never contend.
func New(store db.Store, orch *orchestrator.Orchestrator, cronExpr, systemTag string, runOpts orchestrator.Options) *Scheduler {
	return &Scheduler{
		store:     store,
		orch:      orch,
		cron:      cron.New(),
		cronExpr:  cronExpr,
		systemTag: systemTag,
		runOpts:   runOpts,
	}
}

// Start registers the cron job and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			log.Error("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	log.Info("Scheduler started with cron expression: %s", s.cronExpr)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false

	log.Info("Scheduler stopped")
}

// RunOnce acquires the day's run lock and analyzes every active project.
// When another instance holds the lock the run is skipped, not queued.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	day := time.Now().Format("20060102")

	acquired, err := s.store.AcquireRunLock(ctx, s.systemTag, day)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		log.Info("Run lock %s/%s already held, skipping", s.systemTag, day)
		return nil
	}

	log.Info("Starting scheduled analysis run %s/%s", s.systemTag, day)
	summaries, err := s.orch.AnalyzeAllActiveProjects(ctx, s.runOpts)
	if err != nil {
		return fmt.Errorf("analysis run failed: %w", err)
	}

	succeeded, failed := 0, 0
	for _, summary := range summaries {
		succeeded += summary.Succeeded
		failed += summary.Failed
	}
	log.Info("Scheduled run finished: %d projects, %d tasks succeeded, %d failed",
		len(summaries), succeeded, failed)
	return nil
}
