package domain

import "time"

// FailedDocument describes a document that ended in StageFailed.
type FailedDocument struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Stage      Stage  `json:"stage"`
	Reason     string `json:"reason"`
}

// DocumentOutcome is the per-document line of a run report.
type DocumentOutcome struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Stage      Stage  `json:"stage"`
	Entities   int    `json:"entities"`
	Warnings   int    `json:"warnings"`
}

// RunReport aggregates the outcome of a pipeline run.
// Every attempted document appears exactly once in Documents.
type RunReport struct {
	Processed   int               `json:"processed"`
	Succeeded   int               `json:"succeeded"`
	Failed      []FailedDocument  `json:"failed"`
	Skipped     []string          `json:"skipped"`
	Documents   []DocumentOutcome `json:"documents"`
	Sync        SyncSummary       `json:"sync"`
	SyncResults []SyncResult      `json:"sync_results"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// ExceedsTolerance reports whether more documents failed than allowed.
func (r *RunReport) ExceedsTolerance(tolerance int) bool {
	return len(r.Failed) > tolerance
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
