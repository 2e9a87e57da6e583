package models

import "time"

// Task outcomes reported by orchestrator workers.
const (
	TaskSucceeded    = "succeeded"
	TaskFailed       = "failed"
	TaskSkipped      = "skipped"
	TaskQuotaBlocked = "quota_blocked"
)

// TaskStatus is the record a worker returns for one (query, provider) task.
// Workers never propagate errors; every failure is folded into this record.
type TaskStatus struct {
	QueryID     int64   `json:"query_id"`
	LLMProvider string  `json:"llm_provider"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	CostUSD     float64 `json:"cost_usd"`
	Tokens      int     `json:"tokens"`
}

// RunSummary is returned by AnalyzeProject for one daily run of one project.
type RunSummary struct {
	RunID         string             `json:"run_id"`
	ProjectID     int64              `json:"project_id"`
	TotalTasks    int                `json:"total_tasks"`
	Succeeded     int                `json:"succeeded"`
	Failed        int                `json:"failed"`
	Skipped       int                `json:"skipped"`
	QuotaBlocked  int                `json:"quota_blocked"`
	QuotaExceeded bool               `json:"quota_exceeded"`
	TotalCostUSD  float64            `json:"total_cost_usd"`
	TotalTokens   int                `json:"total_tokens"`
	ElapsedMs     int64              `json:"elapsed_ms"`
	PerLLMRate    map[string]float64 `json:"per_llm_completion_rate,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
}

// QuotaLedger is the per-user request-unit budget consumed by the quota gate.
type QuotaLedger struct {
	UserID    int64     `json:"user_id"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	ResetDate string    `json:"reset_date"` // YYYY-MM-DD
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns the unused request units.
func (q *QuotaLedger) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}
