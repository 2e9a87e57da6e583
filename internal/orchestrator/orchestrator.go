// Package orchestrator runs the daily analysis: it fans (query, provider)
// tasks over a bounded worker pool, analyzes every answer, and rolls the
// day up into snapshots.
package orchestrator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sovtrack/sovtrack/internal/analyzer"
	"github.com/sovtrack/sovtrack/internal/analyzer/sentiment"
	"github.com/sovtrack/sovtrack/internal/db"
	"github.com/sovtrack/sovtrack/internal/db/mongodb"
	"github.com/sovtrack/sovtrack/internal/generator"
	"github.com/sovtrack/sovtrack/internal/llm"
	"github.com/sovtrack/sovtrack/internal/logger"
	"github.com/sovtrack/sovtrack/internal/models"
	"github.com/sovtrack/sovtrack/internal/quota"
	"github.com/sovtrack/sovtrack/internal/snapshot"
)

var log = logger.GetLogger()

const defaultMaxWorkers = 10

// Options tunes one analysis run.
type Options struct {
	// MaxWorkers bounds concurrent provider calls. Zero means the default.
	MaxWorkers int

	// ForceOverwrite re-runs tasks whose result row already exists for the
	// day. Existing rows are otherwise skipped without consuming quota.
	ForceOverwrite bool
}

// Orchestrator coordinates providers, analysis, quota, and persistence.
type Orchestrator struct {
	store     db.Store
	providers *llm.Registry
	gate      *quota.Gate
	snapshots *snapshot.Aggregator
	archive   *mongodb.Archive // nil disables raw-response archiving
	sentiment *sentiment.Classifier
}

// New creates an orchestrator. archive may be nil.
func New(store db.Store, providers *llm.Registry, gate *quota.Gate, archive *mongodb.Archive) *Orchestrator {
	classifierProvider, _ := providers.First()
	return &Orchestrator{
		store:     store,
		providers: providers,
		gate:      gate,
		snapshots: snapshot.New(store),
		archive:   archive,
		sentiment: sentiment.NewClassifier(classifierProvider),
	}
}

// task is one (query, provider) unit of work.
type task struct {
	query    *models.Query
	provider llm.Provider
}

// AnalyzeProject runs the full daily analysis of one project and returns
// its run summary. Task failures never abort the run; they are folded into
// errored result rows and the summary counters.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, projectID int64, opts Options) (*models.RunSummary, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if !project.IsActive {
		log.Info("Project %d is not active, nothing to run", projectID)
		return &models.RunSummary{
			ProjectID:  projectID,
			StartedAt:  time.Now(),
			PerLLMRate: map[string]float64{},
		}, nil
	}
	if o.providers.Len() == 0 {
		return nil, fmt.Errorf("no LLM providers are configured")
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	analysisDate := time.Now().Format("2006-01-02")
	summary := &models.RunSummary{
		RunID:      uuid.New().String(),
		ProjectID:  projectID,
		StartedAt:  time.Now(),
		PerLLMRate: map[string]float64{},
	}

	queries, err := o.ensureQueries(ctx, project)
	if err != nil {
		return nil, err
	}

	providers := o.enabledProviders(project)
	if len(providers) == 0 {
		return nil, fmt.Errorf("project %d has no usable LLM providers", projectID)
	}

	// Build the task grid and drop tasks whose result row already exists.
	// Quota is only debited for tasks that will actually run.
	var runnable []task
	perProviderTotal := map[string]int{}
	for _, provider := range providers {
		for _, query := range queries {
			perProviderTotal[provider.Name()]++
			if !opts.ForceOverwrite {
				exists, err := o.store.ResultExists(ctx, projectID, query.ID, provider.Name(), analysisDate)
				if err != nil {
					return nil, fmt.Errorf("failed to check existing result: %w", err)
				}
				if exists {
					summary.Skipped++
					continue
				}
			}
			runnable = append(runnable, task{query: query, provider: provider})
		}
	}
	summary.TotalTasks = summary.Skipped + len(runnable)

	// Shuffle so one slow provider does not serialize the tail of the run.
	// The seed is derived from the project and the day, keeping task order
	// reproducible within a run.
	shuffleTasks(runnable, projectID, analysisDate)

	allowed, err := o.gate.Reserve(ctx, project.OwnerID, len(runnable))
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if allowed < len(runnable) {
		summary.QuotaExceeded = true
		summary.QuotaBlocked = len(runnable) - allowed
		log.Warning("Project %d: %d of %d tasks blocked by quota", projectID, summary.QuotaBlocked, len(runnable))
		runnable = runnable[:allowed]
	}

	statuses := o.runPool(ctx, project, analysisDate, summary.RunID, runnable, maxWorkers)

	perProviderDone := map[string]int{}
	unstarted := 0
	for _, st := range statuses {
		switch st.Status {
		case models.TaskSucceeded:
			summary.Succeeded++
			perProviderDone[st.LLMProvider]++
		case models.TaskFailed:
			summary.Failed++
		case models.TaskSkipped:
			summary.Skipped++
			unstarted++
		}
		summary.TotalCostUSD += st.CostUSD
		summary.TotalTokens += st.Tokens
	}

	// Tasks the pool never started (context cancellation) get their
	// reserved units back.
	if unstarted > 0 {
		if err := o.gate.Refund(ctx, project.OwnerID, unstarted); err != nil {
			log.Error("Failed to refund %d unstarted tasks for user %d: %v", unstarted, project.OwnerID, err)
		}
	}

	for tag, total := range perProviderTotal {
		if total > 0 {
			summary.PerLLMRate[tag] = float64(perProviderDone[tag]) / float64(total)
		}
	}

	for _, provider := range providers {
		if _, err := o.snapshots.BuildAndStore(ctx, projectID, analysisDate, provider.Name()); err != nil {
			log.Error("Failed to build snapshot for project %d / %s: %v", projectID, provider.Name(), err)
		}
	}

	summary.ElapsedMs = time.Since(summary.StartedAt).Milliseconds()
	log.Info("Project %d run %s: %d succeeded, %d failed, %d skipped, %d quota-blocked in %dms",
		projectID, summary.RunID, summary.Succeeded, summary.Failed, summary.Skipped,
		summary.QuotaBlocked, summary.ElapsedMs)
	return summary, nil
}

// AnalyzeAllActiveProjects runs every active project in sequence. Projects
// fail independently; the returned summaries cover the projects that ran.
func (o *Orchestrator) AnalyzeAllActiveProjects(ctx context.Context, opts Options) ([]*models.RunSummary, error) {
	projects, err := o.store.ListActiveProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}

	var summaries []*models.RunSummary
	for _, project := range projects {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}
		summary, err := o.AnalyzeProject(ctx, project.ID, opts)
		if err != nil {
			log.Error("Failed to analyze project %d (%s): %v", project.ID, project.BrandName, err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ensureQueries loads the project's active queries, generating and
// persisting a fresh set when none exist yet.
func (o *Orchestrator) ensureQueries(ctx context.Context, project *models.Project) ([]*models.Query, error) {
	queries, err := o.store.ListActiveQueries(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	if len(queries) > 0 {
		return queries, nil
	}

	log.Info("Project %d has no queries, generating %d", project.ID, project.QueriesPerLLM)
	candidates := generator.Generate(project)
	queries = make([]*models.Query, 0, len(candidates))
	for _, c := range candidates {
		queries = append(queries, &models.Query{
			ProjectID: project.ID,
			QueryText: c.QueryText,
			Language:  c.Language,
			QueryType: c.QueryType,
			IsActive:  true,
		})
	}
	if err := o.store.CreateQueries(ctx, queries); err != nil {
		return nil, fmt.Errorf("failed to store generated queries: %w", err)
	}
	return queries, nil
}

// enabledProviders resolves the project's enabled_llms tags against the
// provider registry. Unknown or uninitialized tags are logged and skipped.
func (o *Orchestrator) enabledProviders(project *models.Project) []llm.Provider {
	var providers []llm.Provider
	for _, tag := range project.EnabledLLMs {
		if !models.IsKnownProvider(tag) {
			log.Warning("Project %d enables unknown provider %q, skipping", project.ID, tag)
			continue
		}
		provider, ok := o.providers.Get(tag)
		if !ok {
			log.Warning("Project %d enables provider %q but it is not configured, skipping", project.ID, tag)
			continue
		}
		providers = append(providers, provider)
	}
	return providers
}

func shuffleTasks(tasks []task, projectID int64, date string) {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s", projectID, date)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})
}

// runPool executes the tasks over a bounded worker pool and returns one
// status per task.
func (o *Orchestrator) runPool(ctx context.Context, project *models.Project, date, runID string, tasks []task, maxWorkers int) []models.TaskStatus {
	if len(tasks) == 0 {
		return nil
	}
	if maxWorkers > len(tasks) {
		maxWorkers = len(tasks)
	}

	taskCh := make(chan task)
	statusCh := make(chan models.TaskStatus, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				if ctx.Err() != nil {
					statusCh <- models.TaskStatus{
						QueryID:     t.query.ID,
						LLMProvider: t.provider.Name(),
						Status:      models.TaskSkipped,
						Error:       ctx.Err().Error(),
					}
					continue
				}
				statusCh <- o.executeTask(ctx, project, date, runID, t)
			}
		}()
	}

	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
	close(statusCh)

	statuses := make([]models.TaskStatus, 0, len(tasks))
	for st := range statusCh {
		statuses = append(statuses, st)
	}
	return statuses
}

// executeTask runs one (query, provider) task end to end. Errors never
// escape: failures become errored result rows so the day's snapshot still
// accounts for them.
func (o *Orchestrator) executeTask(ctx context.Context, project *models.Project, date, runID string, t task) models.TaskStatus {
	tag := t.provider.Name()
	status := models.TaskStatus{QueryID: t.query.ID, LLMProvider: tag}

	log.Debug("Executing query %d with %s", t.query.ID, tag)
	resp, err := t.provider.ExecuteQuery(ctx, t.query.QueryText)
	if err != nil {
		log.Error("Query %d failed on %s: %v", t.query.ID, tag, err)
		status.Status = models.TaskFailed
		status.Error = err.Error()
		o.storeErrorResult(ctx, project, date, t, err)
		return status
	}

	result := o.buildResult(ctx, project, date, t, resp)
	if err := o.store.UpsertResult(ctx, result); err != nil {
		log.Error("Failed to store result for query %d on %s: %v", t.query.ID, tag, err)
		status.Status = models.TaskFailed
		status.Error = err.Error()
		return status
	}

	o.archiveResponse(ctx, project, date, runID, t, resp)

	status.Status = models.TaskSucceeded
	status.CostUSD = resp.CostUSD
	status.Tokens = resp.TotalTokens
	return status
}

func (o *Orchestrator) buildResult(ctx context.Context, project *models.Project, date string, t task, resp *llm.Response) *models.Result {
	report := analyzer.Analyze(analyzer.Input{
		Content:       resp.Content,
		Sources:       resp.Sources,
		BrandName:     project.BrandName,
		BrandDomain:   project.BrandDomain,
		BrandKeywords: project.BrandKeywords,
		Competitors:   project.Competitors,
	}, analyzer.DefaultOptions())

	verdict := sentiment.Result{Label: models.SentimentNeutral, Score: 0.5}
	if report.BrandMentioned {
		verdict = o.sentiment.Classify(ctx, project.BrandName, report.MentionContexts)
	}

	return &models.Result{
		ProjectID:    project.ID,
		QueryID:      t.query.ID,
		AnalysisDate: date,
		LLMProvider:  t.provider.Name(),
		ModelUsed:    resp.ModelUsed,
		QueryText:    t.query.QueryText,
		BrandName:    project.BrandName,

		BrandMentioned:        report.BrandMentioned,
		MentionCount:          report.MentionCount,
		MentionContexts:       report.MentionContexts,
		AppearsInNumberedList: report.AppearsInNumberedList,
		PositionInList:        report.PositionInList,
		TotalItemsInList:      report.TotalItemsInList,
		PositionSource:        report.PositionSource,

		Sentiment:      verdict.Label,
		SentimentScore: verdict.Score,

		CompetitorsMentioned: report.CompetitorsMentioned,

		FullResponse:   resp.Content,
		ResponseLength: len(resp.Content),
		Sources:        resp.Sources,

		TokensUsed:      resp.TotalTokens,
		InputTokens:     resp.InputTokens,
		OutputTokens:    resp.OutputTokens,
		TokensEstimated: resp.TokensEstimated,
		CostUSD:         resp.CostUSD,
		ResponseTimeMs:  resp.ResponseTimeMs,
	}
}

func (o *Orchestrator) storeErrorResult(ctx context.Context, project *models.Project, date string, t task, taskErr error) {
	result := &models.Result{
		ProjectID:      project.ID,
		QueryID:        t.query.ID,
		AnalysisDate:   date,
		LLMProvider:    t.provider.Name(),
		QueryText:      t.query.QueryText,
		BrandName:      project.BrandName,
		Sentiment:      models.SentimentNeutral,
		SentimentScore: 0.5,
		HasError:       true,
		ErrorMessage:   taskErr.Error(),
	}
	if err := o.store.UpsertResult(ctx, result); err != nil {
		log.Error("Failed to store error result for query %d on %s: %v", t.query.ID, t.provider.Name(), err)
	}
}

func (o *Orchestrator) archiveResponse(ctx context.Context, project *models.Project, date, runID string, t task, resp *llm.Response) {
	if o.archive == nil {
		return
	}
	_, err := o.archive.Store(ctx, &mongodb.ArchivedResponse{
		RunID:        runID,
		ProjectID:    project.ID,
		QueryID:      t.query.ID,
		AnalysisDate: date,
		LLMProvider:  t.provider.Name(),
		ModelUsed:    resp.ModelUsed,
		QueryText:    t.query.QueryText,
		Content:      resp.Content,
		Sources:      resp.Sources,
	})
	if err != nil {
		log.Warning("Failed to archive response for query %d on %s: %v", t.query.ID, t.provider.Name(), err)
	}
}
