// Package sqlite implements the Store interface over SQLite with the
// contractual monitoring tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sovtrack/sovtrack/internal/models"
)

// SQLite implements the Store interface for SQLite
type SQLite struct {
	db  *sql.DB
	uri string
}

// New creates a new SQLite store instance
func New(uri string) *SQLite {
	return &SQLite{uri: uri}
}

// DB exposes the underlying handle for the migration runner.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Connect establishes the connection and ensures the schema
func (s *SQLite) Connect(ctx context.Context) error {
	dbPath := s.uri
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	} else if !filepath.IsAbs(dbPath) && dbPath != ":memory:" {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		dbPath = absPath
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open SQLite database at path '%s': %w", dbPath, err)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping SQLite database at path '%s': %w", dbPath, err)
	}

	s.db = db

	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Disconnect closes the SQLite connection
func (s *SQLite) Disconnect(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected to database")
	}
	return s.db.PingContext(ctx)
}

func (s *SQLite) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS llm_monitoring_projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			brand_name TEXT NOT NULL,
			brand_domain TEXT,
			brand_keywords TEXT NOT NULL DEFAULT '[]',
			industry TEXT,
			language TEXT NOT NULL DEFAULT 'en',
			country_code TEXT,
			competitors TEXT NOT NULL DEFAULT '[]',
			enabled_llms TEXT NOT NULL DEFAULT '[]',
			queries_per_llm INTEGER NOT NULL DEFAULT 5,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS llm_monitoring_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			query_text TEXT NOT NULL,
			language TEXT,
			query_type TEXT NOT NULL DEFAULT 'general',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS llm_monitoring_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			query_id INTEGER NOT NULL,
			analysis_date TEXT NOT NULL,
			llm_provider TEXT NOT NULL,
			model_used TEXT,
			query_text TEXT,
			brand_name TEXT,
			brand_mentioned BOOLEAN NOT NULL DEFAULT 0,
			mention_count INTEGER NOT NULL DEFAULT 0,
			mention_contexts TEXT NOT NULL DEFAULT '[]',
			appears_in_numbered_list BOOLEAN NOT NULL DEFAULT 0,
			position_in_list INTEGER,
			total_items_in_list INTEGER,
			position_source TEXT,
			sentiment TEXT NOT NULL DEFAULT 'neutral',
			sentiment_score REAL NOT NULL DEFAULT 0.5,
			competitors_mentioned TEXT NOT NULL DEFAULT '{}',
			full_response TEXT,
			response_length INTEGER NOT NULL DEFAULT 0,
			sources TEXT NOT NULL DEFAULT '[]',
			tokens_used INTEGER NOT NULL DEFAULT 0,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			tokens_estimated BOOLEAN NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			has_error BOOLEAN NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE(project_id, query_id, llm_provider, analysis_date)
		);`,
		`CREATE TABLE IF NOT EXISTS llm_monitoring_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			snapshot_date TEXT NOT NULL,
			llm_provider TEXT NOT NULL,
			total_queries INTEGER NOT NULL DEFAULT 0,
			total_mentions INTEGER NOT NULL DEFAULT 0,
			mention_rate REAL NOT NULL DEFAULT 0,
			appeared_in_top3 INTEGER NOT NULL DEFAULT 0,
			appeared_in_top5 INTEGER NOT NULL DEFAULT 0,
			appeared_in_top10 INTEGER NOT NULL DEFAULT 0,
			avg_position REAL,
			total_competitor_mentions INTEGER NOT NULL DEFAULT 0,
			share_of_voice REAL NOT NULL DEFAULT 0,
			competitor_breakdown TEXT NOT NULL DEFAULT '{}',
			weighted_share_of_voice REAL NOT NULL DEFAULT 0,
			weighted_competitor_breakdown TEXT NOT NULL DEFAULT '{}',
			positive_mentions INTEGER NOT NULL DEFAULT 0,
			neutral_mentions INTEGER NOT NULL DEFAULT 0,
			negative_mentions INTEGER NOT NULL DEFAULT 0,
			avg_sentiment_score REAL NOT NULL DEFAULT 0,
			total_cost_usd REAL NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			avg_response_time_ms REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(project_id, snapshot_date, llm_provider)
		);`,
		`CREATE TABLE IF NOT EXISTS llm_model_registry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			model_id TEXT NOT NULL,
			model_display_name TEXT,
			cost_per_1m_input_tokens REAL NOT NULL DEFAULT 0,
			cost_per_1m_output_tokens REAL NOT NULL DEFAULT 0,
			is_current BOOLEAN NOT NULL DEFAULT 0,
			is_available BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(provider, model_id)
		);`,
		`CREATE TABLE IF NOT EXISTS llm_quota_ledger (
			user_id INTEGER PRIMARY KEY,
			quota_limit INTEGER NOT NULL DEFAULT 0,
			used INTEGER NOT NULL DEFAULT 0,
			reset_date TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS llm_run_locks (
			system_tag TEXT NOT NULL,
			run_date TEXT NOT NULL,
			acquired_at DATETIME NOT NULL,
			UNIQUE(system_tag, run_date)
		);`,
		"CREATE INDEX IF NOT EXISTS idx_queries_project ON llm_monitoring_queries(project_id, is_active);",
		"CREATE INDEX IF NOT EXISTS idx_results_day ON llm_monitoring_results(project_id, analysis_date, llm_provider);",
		"CREATE INDEX IF NOT EXISTS idx_snapshots_project ON llm_monitoring_snapshots(project_id, snapshot_date);",
		"CREATE INDEX IF NOT EXISTS idx_registry_current ON llm_model_registry(provider, is_current);",
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func fromJSONSlice(data string) []string {
	var out []string
	if data != "" {
		_ = json.Unmarshal([]byte(data), &out)
	}
	return out
}

// Project operations

// CreateProject inserts a project row. The engine treats projects as
// read-only input; this exists for seeding and tests.
func (s *SQLite) CreateProject(ctx context.Context, project *models.Project) error {
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	query := `
		INSERT INTO llm_monitoring_projects
			(owner_id, brand_name, brand_domain, brand_keywords, industry, language, country_code,
			 competitors, enabled_llms, queries_per_llm, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		project.OwnerID,
		project.BrandName,
		project.BrandDomain,
		toJSON(project.BrandKeywords),
		project.Industry,
		project.Language,
		project.CountryCode,
		toJSON(project.Competitors),
		toJSON(project.EnabledLLMs),
		project.QueriesPerLLM,
		project.IsActive,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return err
	}

	project.ID, err = result.LastInsertId()
	return err
}

const projectColumns = `id, owner_id, brand_name, brand_domain, brand_keywords, industry, language,
	country_code, competitors, enabled_llms, queries_per_llm, is_active, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	var p models.Project
	var domain, industry, country sql.NullString
	var keywordsJSON, competitorsJSON, llmsJSON string

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.BrandName,
		&domain,
		&keywordsJSON,
		&industry,
		&p.Language,
		&country,
		&competitorsJSON,
		&llmsJSON,
		&p.QueriesPerLLM,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.BrandDomain = domain.String
	p.Industry = industry.String
	p.CountryCode = country.String
	p.BrandKeywords = fromJSONSlice(keywordsJSON)
	p.Competitors = fromJSONSlice(competitorsJSON)
	p.EnabledLLMs = fromJSONSlice(llmsJSON)
	return &p, nil
}

// GetProject retrieves a project by id
func (s *SQLite) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM llm_monitoring_projects WHERE id = ?", id)

	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListActiveProjects lists projects with is_active = true
func (s *SQLite) ListActiveProjects(ctx context.Context) ([]*models.Project, error) {
	return s.listProjects(ctx, "WHERE is_active = 1")
}

// ListProjects lists every project
func (s *SQLite) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return s.listProjects(ctx, "")
}

func (s *SQLite) listProjects(ctx context.Context, where string) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM llm_monitoring_projects "+where+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Query operations

// CreateQueries inserts a batch of queries in one transaction
func (s *SQLite) CreateQueries(ctx context.Context, queries []*models.Query) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO llm_monitoring_queries (project_id, query_text, language, query_type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range queries {
		q.CreatedAt = time.Now()
		result, err := stmt.ExecContext(ctx, q.ProjectID, q.QueryText, q.Language, q.QueryType, q.IsActive, q.CreatedAt)
		if err != nil {
			return err
		}
		if q.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListActiveQueries lists the active queries of a project in insertion order
func (s *SQLite) ListActiveQueries(ctx context.Context, projectID int64) ([]*models.Query, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, query_text, language, query_type, is_active, created_at
		FROM llm_monitoring_queries
		WHERE project_id = ? AND is_active = 1
		ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []*models.Query
	for rows.Next() {
		var q models.Query
		var language sql.NullString
		if err := rows.Scan(&q.ID, &q.ProjectID, &q.QueryText, &language, &q.QueryType, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Language = language.String
		queries = append(queries, &q)
	}
	return queries, rows.Err()
}

// Result operations

// UpsertResult writes a result row, replacing any existing row of the same
// (project, query, provider, analysis_date)
func (s *SQLite) UpsertResult(ctx context.Context, r *models.Result) error {
	r.CreatedAt = time.Now()

	query := `
		INSERT INTO llm_monitoring_results
			(project_id, query_id, analysis_date, llm_provider, model_used, query_text, brand_name,
			 brand_mentioned, mention_count, mention_contexts, appears_in_numbered_list,
			 position_in_list, total_items_in_list, position_source, sentiment, sentiment_score,
			 competitors_mentioned, full_response, response_length, sources,
			 tokens_used, input_tokens, output_tokens, tokens_estimated, cost_usd, response_time_ms,
			 has_error, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, query_id, llm_provider, analysis_date) DO UPDATE SET
			model_used = excluded.model_used,
			query_text = excluded.query_text,
			brand_name = excluded.brand_name,
			brand_mentioned = excluded.brand_mentioned,
			mention_count = excluded.mention_count,
			mention_contexts = excluded.mention_contexts,
			appears_in_numbered_list = excluded.appears_in_numbered_list,
			position_in_list = excluded.position_in_list,
			total_items_in_list = excluded.total_items_in_list,
			position_source = excluded.position_source,
			sentiment = excluded.sentiment,
			sentiment_score = excluded.sentiment_score,
			competitors_mentioned = excluded.competitors_mentioned,
			full_response = excluded.full_response,
			response_length = excluded.response_length,
			sources = excluded.sources,
			tokens_used = excluded.tokens_used,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			tokens_estimated = excluded.tokens_estimated,
			cost_usd = excluded.cost_usd,
			response_time_ms = excluded.response_time_ms,
			has_error = excluded.has_error,
			error_message = excluded.error_message,
			created_at = excluded.created_at`

	var positionSource, errorMessage sql.NullString
	if r.PositionSource != "" {
		positionSource = sql.NullString{String: r.PositionSource, Valid: true}
	}
	if r.ErrorMessage != "" {
		errorMessage = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ProjectID, r.QueryID, r.AnalysisDate, r.LLMProvider, r.ModelUsed, r.QueryText, r.BrandName,
		r.BrandMentioned, r.MentionCount, toJSON(r.MentionContexts), r.AppearsInNumberedList,
		nullableInt(r.PositionInList), nullableInt(r.TotalItemsInList), positionSource,
		r.Sentiment, r.SentimentScore,
		toJSON(r.CompetitorsMentioned), r.FullResponse, r.ResponseLength, toJSON(r.Sources),
		r.TokensUsed, r.InputTokens, r.OutputTokens, r.TokensEstimated, r.CostUSD, r.ResponseTimeMs,
		r.HasError, errorMessage, r.CreatedAt,
	)
	return err
}

// ResultExists reports whether a result row exists for the unique tuple
func (s *SQLite) ResultExists(ctx context.Context, projectID, queryID int64, provider, date string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM llm_monitoring_results
		WHERE project_id = ? AND query_id = ? AND llm_provider = ? AND analysis_date = ?`,
		projectID, queryID, provider, date).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteResult removes a result row for the unique tuple
func (s *SQLite) DeleteResult(ctx context.Context, projectID, queryID int64, provider, date string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM llm_monitoring_results
		WHERE project_id = ? AND query_id = ? AND llm_provider = ? AND analysis_date = ?`,
		projectID, queryID, provider, date)
	return err
}

// ListResults lists the result rows of one (project, date, provider)
func (s *SQLite) ListResults(ctx context.Context, projectID int64, date, provider string) ([]*models.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, query_id, analysis_date, llm_provider, model_used, query_text, brand_name,
			brand_mentioned, mention_count, mention_contexts, appears_in_numbered_list,
			position_in_list, total_items_in_list, position_source, sentiment, sentiment_score,
			competitors_mentioned, full_response, response_length, sources,
			tokens_used, input_tokens, output_tokens, tokens_estimated, cost_usd, response_time_ms,
			has_error, error_message, created_at
		FROM llm_monitoring_results
		WHERE project_id = ? AND analysis_date = ? AND llm_provider = ?
		ORDER BY query_id`, projectID, date, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		var r models.Result
		var modelUsed, queryText, brandName, positionSource, fullResponse, errorMessage sql.NullString
		var position, totalItems sql.NullInt64
		var contextsJSON, competitorsJSON, sourcesJSON string

		err := rows.Scan(
			&r.ID, &r.ProjectID, &r.QueryID, &r.AnalysisDate, &r.LLMProvider, &modelUsed, &queryText, &brandName,
			&r.BrandMentioned, &r.MentionCount, &contextsJSON, &r.AppearsInNumberedList,
			&position, &totalItems, &positionSource, &r.Sentiment, &r.SentimentScore,
			&competitorsJSON, &fullResponse, &r.ResponseLength, &sourcesJSON,
			&r.TokensUsed, &r.InputTokens, &r.OutputTokens, &r.TokensEstimated, &r.CostUSD, &r.ResponseTimeMs,
			&r.HasError, &errorMessage, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		r.ModelUsed = modelUsed.String
		r.QueryText = queryText.String
		r.BrandName = brandName.String
		r.PositionSource = positionSource.String
		r.FullResponse = fullResponse.String
		r.ErrorMessage = errorMessage.String
		r.MentionContexts = fromJSONSlice(contextsJSON)
		_ = json.Unmarshal([]byte(competitorsJSON), &r.CompetitorsMentioned)
		_ = json.Unmarshal([]byte(sourcesJSON), &r.Sources)
		if position.Valid {
			v := int(position.Int64)
			r.PositionInList = &v
		}
		if totalItems.Valid {
			v := int(totalItems.Int64)
			r.TotalItemsInList = &v
		}

		results = append(results, &r)
	}
	return results, rows.Err()
}

// Snapshot operations

// UpsertSnapshot writes a snapshot row, replacing any existing row of the
// same (project, snapshot_date, provider)
func (s *SQLite) UpsertSnapshot(ctx context.Context, snap *models.Snapshot) error {
	now := time.Now()
	snap.CreatedAt = now
	snap.UpdatedAt = now

	query := `
		INSERT INTO llm_monitoring_snapshots
			(project_id, snapshot_date, llm_provider, total_queries, total_mentions, mention_rate,
			 appeared_in_top3, appeared_in_top5, appeared_in_top10, avg_position,
			 total_competitor_mentions, share_of_voice, competitor_breakdown,
			 weighted_share_of_voice, weighted_competitor_breakdown,
			 positive_mentions, neutral_mentions, negative_mentions, avg_sentiment_score,
			 total_cost_usd, total_tokens, avg_response_time_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, snapshot_date, llm_provider) DO UPDATE SET
			total_queries = excluded.total_queries,
			total_mentions = excluded.total_mentions,
			mention_rate = excluded.mention_rate,
			appeared_in_top3 = excluded.appeared_in_top3,
			appeared_in_top5 = excluded.appeared_in_top5,
			appeared_in_top10 = excluded.appeared_in_top10,
			avg_position = excluded.avg_position,
			total_competitor_mentions = excluded.total_competitor_mentions,
			share_of_voice = excluded.share_of_voice,
			competitor_breakdown = excluded.competitor_breakdown,
			weighted_share_of_voice = excluded.weighted_share_of_voice,
			weighted_competitor_breakdown = excluded.weighted_competitor_breakdown,
			positive_mentions = excluded.positive_mentions,
			neutral_mentions = excluded.neutral_mentions,
			negative_mentions = excluded.negative_mentions,
			avg_sentiment_score = excluded.avg_sentiment_score,
			total_cost_usd = excluded.total_cost_usd,
			total_tokens = excluded.total_tokens,
			avg_response_time_ms = excluded.avg_response_time_ms,
			updated_at = excluded.updated_at`

	var avgPosition sql.NullFloat64
	if snap.AvgPosition != nil {
		avgPosition = sql.NullFloat64{Float64: *snap.AvgPosition, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		snap.ProjectID, snap.SnapshotDate, snap.LLMProvider, snap.TotalQueries, snap.TotalMentions, snap.MentionRate,
		snap.AppearedInTop3, snap.AppearedInTop5, snap.AppearedInTop10, avgPosition,
		snap.TotalCompetitorMentions, snap.ShareOfVoice, toJSON(snap.CompetitorBreakdown),
		snap.WeightedShareOfVoice, toJSON(snap.WeightedCompetitorBreakdown),
		snap.PositiveMentions, snap.NeutralMentions, snap.NegativeMentions, snap.AvgSentimentScore,
		snap.TotalCostUSD, snap.TotalTokens, snap.AvgResponseTimeMs, snap.CreatedAt, snap.UpdatedAt,
	)
	return err
}

const snapshotColumns = `id, project_id, snapshot_date, llm_provider, total_queries, total_mentions,
	mention_rate, appeared_in_top3, appeared_in_top5, appeared_in_top10, avg_position,
	total_competitor_mentions, share_of_voice, competitor_breakdown,
	weighted_share_of_voice, weighted_competitor_breakdown,
	positive_mentions, neutral_mentions, negative_mentions, avg_sentiment_score,
	total_cost_usd, total_tokens, avg_response_time_ms, created_at, updated_at`

func scanSnapshot(row interface{ Scan(...interface{}) error }) (*models.Snapshot, error) {
	var snap models.Snapshot
	var avgPosition sql.NullFloat64
	var breakdownJSON, weightedJSON string

	err := row.Scan(
		&snap.ID, &snap.ProjectID, &snap.SnapshotDate, &snap.LLMProvider, &snap.TotalQueries, &snap.TotalMentions,
		&snap.MentionRate, &snap.AppearedInTop3, &snap.AppearedInTop5, &snap.AppearedInTop10, &avgPosition,
		&snap.TotalCompetitorMentions, &snap.ShareOfVoice, &breakdownJSON,
		&snap.WeightedShareOfVoice, &weightedJSON,
		&snap.PositiveMentions, &snap.NeutralMentions, &snap.NegativeMentions, &snap.AvgSentimentScore,
		&snap.TotalCostUSD, &snap.TotalTokens, &snap.AvgResponseTimeMs, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if avgPosition.Valid {
		snap.AvgPosition = &avgPosition.Float64
	}
	_ = json.Unmarshal([]byte(breakdownJSON), &snap.CompetitorBreakdown)
	_ = json.Unmarshal([]byte(weightedJSON), &snap.WeightedCompetitorBreakdown)
	return &snap, nil
}

// GetSnapshot retrieves one snapshot by its unique tuple
func (s *SQLite) GetSnapshot(ctx context.Context, projectID int64, date, provider string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+` FROM llm_monitoring_snapshots
		WHERE project_id = ? AND snapshot_date = ? AND llm_provider = ?`,
		projectID, date, provider)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots lists snapshots of a project inside a date range
func (s *SQLite) ListSnapshots(ctx context.Context, projectID int64, from, to string) ([]*models.Snapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM llm_monitoring_snapshots WHERE project_id = ?"
	args := []interface{}{projectID}
	if from != "" {
		query += " AND snapshot_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND snapshot_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY snapshot_date, llm_provider"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Model registry operations

const registryColumns = `id, provider, model_id, model_display_name, cost_per_1m_input_tokens,
	cost_per_1m_output_tokens, is_current, is_available, created_at, updated_at`

func scanRegistryEntry(row interface{ Scan(...interface{}) error }) (*models.RegistryEntry, error) {
	var e models.RegistryEntry
	var displayName sql.NullString
	err := row.Scan(&e.ID, &e.Provider, &e.ModelID, &displayName, &e.CostPer1MInputTokens,
		&e.CostPer1MOutputTokens, &e.IsCurrent, &e.IsAvailable, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.ModelDisplayName = displayName.String
	return &e, nil
}

// GetCurrentModel returns the registry row with is_current for a provider,
// or nil when there is none
func (s *SQLite) GetCurrentModel(ctx context.Context, provider string) (*models.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registryColumns+" FROM llm_model_registry WHERE provider = ? AND is_current = 1",
		provider)

	entry, err := scanRegistryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetRegistryEntry returns the registry row of (provider, model_id), or nil
func (s *SQLite) GetRegistryEntry(ctx context.Context, provider, modelID string) (*models.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registryColumns+" FROM llm_model_registry WHERE provider = ? AND model_id = ?",
		provider, modelID)

	entry, err := scanRegistryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListRegistryEntries lists registry rows, optionally filtered by provider
func (s *SQLite) ListRegistryEntries(ctx context.Context, provider string) ([]*models.RegistryEntry, error) {
	query := "SELECT " + registryColumns + " FROM llm_model_registry"
	args := []interface{}{}
	if provider != "" {
		query += " WHERE provider = ?"
		args = append(args, provider)
	}
	query += " ORDER BY provider, model_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.RegistryEntry
	for rows.Next() {
		entry, err := scanRegistryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertRegistryEntry inserts or updates a registry row. is_current is left
// untouched on update; SetCurrentModel owns that flag.
func (s *SQLite) UpsertRegistryEntry(ctx context.Context, e *models.RegistryEntry) error {
	now := time.Now()
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_model_registry
			(provider, model_id, model_display_name, cost_per_1m_input_tokens,
			 cost_per_1m_output_tokens, is_current, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, model_id) DO UPDATE SET
			model_display_name = excluded.model_display_name,
			cost_per_1m_input_tokens = excluded.cost_per_1m_input_tokens,
			cost_per_1m_output_tokens = excluded.cost_per_1m_output_tokens,
			is_available = excluded.is_available,
			updated_at = excluded.updated_at`,
		e.Provider, e.ModelID, e.ModelDisplayName, e.CostPer1MInputTokens,
		e.CostPer1MOutputTokens, e.IsCurrent, e.IsAvailable, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// SetCurrentModel marks one model current and clears every other row of the
// provider inside the same transaction
func (s *SQLite) SetCurrentModel(ctx context.Context, provider, modelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE llm_model_registry SET is_current = 0, updated_at = ? WHERE provider = ?",
		time.Now(), provider); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE llm_model_registry SET is_current = 1, updated_at = ? WHERE provider = ? AND model_id = ?",
		time.Now(), provider, modelID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("model not found: %s/%s", provider, modelID)
	}

	return tx.Commit()
}

// Quota ledger operations

// GetQuotaLedger returns the quota ledger of a user, or nil when absent
func (s *SQLite) GetQuotaLedger(ctx context.Context, userID int64) (*models.QuotaLedger, error) {
	var ledger models.QuotaLedger
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, quota_limit, used, reset_date, updated_at FROM llm_quota_ledger WHERE user_id = ?",
		userID).Scan(&ledger.UserID, &ledger.Limit, &ledger.Used, &ledger.ResetDate, &ledger.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// EnsureQuotaLedger creates the ledger row when missing; when resetDate is
// newer than the stored one the counter restarts at zero
func (s *SQLite) EnsureQuotaLedger(ctx context.Context, userID int64, limit int, resetDate string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_quota_ledger (user_id, quota_limit, used, reset_date, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			quota_limit = excluded.quota_limit,
			used = CASE WHEN excluded.reset_date > llm_quota_ledger.reset_date THEN 0 ELSE llm_quota_ledger.used END,
			reset_date = CASE WHEN excluded.reset_date > llm_quota_ledger.reset_date THEN excluded.reset_date ELSE llm_quota_ledger.reset_date END,
			updated_at = excluded.updated_at`,
		userID, limit, resetDate, time.Now())
	return err
}

// AddQuotaUsage adds consumed units to a user's ledger
func (s *SQLite) AddQuotaUsage(ctx context.Context, userID int64, units int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE llm_quota_ledger SET used = used + ?, updated_at = ? WHERE user_id = ?",
		units, time.Now(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("quota ledger not found for user %d", userID)
	}
	return nil
}

// Run locks

// AcquireRunLock inserts the (system_tag, day) lock row; a unique conflict
// means another process holds it
func (s *SQLite) AcquireRunLock(ctx context.Context, systemTag, day string) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO llm_run_locks (system_tag, run_date, acquired_at) VALUES (?, ?, ?)",
		systemTag, day, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
