package db

import (
	"context"

	"github.com/sovtrack/sovtrack/internal/models"
)

// Store is the SQL persistence interface of the monitoring engine. The
// sqlite implementation backs it; all access is per-call checkout from the
// connection pool, so tasks never share a connection.
type Store interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Project operations. Projects are created by the outer product; the
	// engine reads them and only tests write them.
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListActiveProjects(ctx context.Context) ([]*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)

	// Query operations
	CreateQueries(ctx context.Context, queries []*models.Query) error
	ListActiveQueries(ctx context.Context, projectID int64) ([]*models.Query, error)

	// Result operations. Results are unique by
	// (project_id, query_id, llm_provider, analysis_date).
	UpsertResult(ctx context.Context, result *models.Result) error
	ResultExists(ctx context.Context, projectID, queryID int64, provider, date string) (bool, error)
	DeleteResult(ctx context.Context, projectID, queryID int64, provider, date string) error
	ListResults(ctx context.Context, projectID int64, date, provider string) ([]*models.Result, error)

	// Snapshot operations. Snapshots are unique by
	// (project_id, snapshot_date, llm_provider).
	UpsertSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	GetSnapshot(ctx context.Context, projectID int64, date, provider string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context, projectID int64, from, to string) ([]*models.Snapshot, error)

	// Model registry operations
	GetCurrentModel(ctx context.Context, provider string) (*models.RegistryEntry, error)
	GetRegistryEntry(ctx context.Context, provider, modelID string) (*models.RegistryEntry, error)
	ListRegistryEntries(ctx context.Context, provider string) ([]*models.RegistryEntry, error)
	UpsertRegistryEntry(ctx context.Context, entry *models.RegistryEntry) error
	SetCurrentModel(ctx context.Context, provider, modelID string) error

	// Quota ledger operations
	GetQuotaLedger(ctx context.Context, userID int64) (*models.QuotaLedger, error)
	EnsureQuotaLedger(ctx context.Context, userID int64, limit int, resetDate string) error
	AddQuotaUsage(ctx context.Context, userID int64, units int) error

	// Run locks. AcquireRunLock returns false when another process holds
	// the (system_tag, day) lock.
	AcquireRunLock(ctx context.Context, systemTag, day string) (bool, error)
}
