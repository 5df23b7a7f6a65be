package domain

import "time"

// SyncStatus is the outcome of syncing one entity to one target.
type SyncStatus string

// Sync statuses.
const (
	SyncCreated SyncStatus = "created"
	SyncUpdated SyncStatus = "updated"
	SyncSkipped SyncStatus = "skipped"
	SyncFailed  SyncStatus = "failed"
)

// Record is the remote representation of an entity in a structured store.
type Record struct {
	ID               string
	Key              string
	Type             EntityType
	Value            string
	Text             string
	Attributes       map[string]string
	SourceDocumentID string
	Confidence       float64
	Verified         bool
	ContentHash      string
	UpdatedAt        time.Time
}

// RecordFromEntity builds the remote record for an entity.
func RecordFromEntity(e Entity) Record {
	return Record{
		ID:               e.ID,
		Key:              e.Key().String(),
		Type:             e.Type,
		Value:            e.Value,
		Text:             e.Text,
		Attributes:       e.Attributes,
		SourceDocumentID: e.SourceDocumentID,
		Confidence:       e.Confidence,
		Verified:         e.IsVerified,
		ContentHash:      e.ContentHash(),
		UpdatedAt:        time.Now(),
	}
}

// SyncResult is the outcome of one sync attempt.
// Every attempted entity produces exactly one result per target.
type SyncResult struct {
	EntityID string     `json:"entity_id"`
	Key      string     `json:"key"`
	Target   string     `json:"target"`
	Status   SyncStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Attempts int        `json:"attempts"`
}

// SyncSummary counts results by status.
type SyncSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of results summarised.
func (s SyncSummary) Total() int {
	return s.Created + s.Updated + s.Skipped + s.Failed
}

// Summarize counts results by status.
func Summarize(results []SyncResult) SyncSummary {
	var s SyncSummary
	for _, r := range results {
		switch r.Status {
		case SyncCreated:
			s.Created++
		case SyncUpdated:
			s.Updated++
		case SyncSkipped:
			s.Skipped++
		case SyncFailed:
			s.Failed++
		}
	}
	return s
}

// FailedResults returns the subset of results with SyncFailed status.
func FailedResults(results []SyncResult) []SyncResult {
	var out []SyncResult
	for _, r := range results {
		if r.Status == SyncFailed {
			out = append(out, r)
		}
	}
	return out
}
