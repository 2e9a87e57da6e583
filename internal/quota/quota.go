// Package quota enforces the per-user request-unit budget. One request unit
// covers one (query, provider) task; the ledger resets monthly.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
)

var log = logger.GetLogger()

// Gate decides how many tasks of a run the owner's budget still covers.
type Gate struct {
	store        db.Store
	defaultLimit int
	ruPerTask    int
}

// New creates a quota gate. defaultLimit seeds ledgers of users seen for the
// first time; ruPerTask is the unit price of one task.
func New(store db.Store, defaultLimit, ruPerTask int) *Gate {
	if ruPerTask <= 0 {
		ruPerTask = 1
	}
	return &Gate{store: store, defaultLimit: defaultLimit, ruPerTask: ruPerTask}
}

// periodStart keys the current monthly window. A newer period on Ensure
// restarts the counter.
func periodStart(now time.Time) string {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Reserve returns how many of the wanted tasks the user's remaining budget
// covers and debits them up front. The caller marks the surplus tasks
// quota_blocked without calling any provider.
func (g *Gate) Reserve(ctx context.Context, userID int64, wantedTasks int) (int, error) {
	if wantedTasks <= 0 {
		return 0, nil
	}

	if err := g.store.EnsureQuotaLedger(ctx, userID, g.defaultLimit, periodStart(time.Now())); err != nil {
		return 0, fmt.Errorf("failed to ensure quota ledger: %w", err)
	}

	ledger, err := g.store.GetQuotaLedger(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read quota ledger: %w", err)
	}
	if ledger == nil {
		return 0, fmt.Errorf("quota ledger not found for user %d", userID)
	}

	allowed := ledger.Remaining() / g.ruPerTask
	if allowed > wantedTasks {
		allowed = wantedTasks
	}
	if allowed < wantedTasks {
		log.Warning("Quota limits user %d to %d of %d tasks (used %d/%d)",
			userID, allowed, wantedTasks, ledger.Used, ledger.Limit)
	}
	if allowed == 0 {
		return 0, nil
	}

	if err := g.store.AddQuotaUsage(ctx, userID, allowed*g.ruPerTask); err != nil {
		return 0, fmt.Errorf("failed to debit quota: %w", err)
	}
	return allowed, nil
}

// Refund credits back units of tasks that were reserved but never executed,
// e.g. when a run aborts mid-way.
func (g *Gate) Refund(ctx context.Context, userID int64, tasks int) error {
	if tasks <= 0 {
		return nil
	}
	return g.store.AddQuotaUsage(ctx, userID, -tasks*g.ruPerTask)
}

// Ledger returns the user's current ledger, creating it when missing.
func (g *Gate) Ledger(ctx context.Context, userID int64) (*models.QuotaLedger, error) {
	if err := g.store.EnsureQuotaLedger(ctx, userID, g.defaultLimit, periodStart(time.Now())); err != nil {
		return nil, fmt.Errorf("failed to ensure quota ledger: %w", err)
	}
	return g.store.GetQuotaLedger(ctx, userID)
}
