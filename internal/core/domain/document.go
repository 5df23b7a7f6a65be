package domain

import (
	"fmt"
	"time"
)

// Stage is a step of the per-document pipeline state machine.
type Stage string

// Pipeline stages in execution order. StageFailed is terminal and is
// reachable from any non-terminal stage.
const (
	StageDiscovered        Stage = "Discovered"
	StageExtracted         Stage = "Extracted"
	StageEntitiesExtracted Stage = "EntitiesExtracted"
	StageIndexed           Stage = "Indexed"
	StagePostProcessed     Stage = "PostProcessed"
	StageSynced            Stage = "Synced"
	StageFailed            Stage = "Failed"
)

var stageOrder = map[Stage]int{
	StageDiscovered:        0,
	StageExtracted:         1,
	StageEntitiesExtracted: 2,
	StageIndexed:           3,
	StagePostProcessed:     4,
	StageSynced:            5,
}

// IsTerminal returns true for stages that accept no further transitions.
func (s Stage) IsTerminal() bool {
	return s == StageSynced || s == StageFailed
}

// Before reports whether s runs strictly before other.
// StageFailed is never before or after anything.
func (s Stage) Before(other Stage) bool {
	a, ok1 := stageOrder[s]
	b, ok2 := stageOrder[other]
	return ok1 && ok2 && a < b
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// StageError records a failure against a document at a given stage.
type StageError struct {
	// Stage is the stage that was running when the error happened.
	Stage Stage

	// Reason is a short human-readable cause.
	Reason string

	// Fatal is true when the error moved the document to StageFailed.
	// Post-processor failures are recorded but not fatal.
	Fatal bool

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Reason {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Section is a structural slice of a document (page, heading, paragraph).
type Section struct {
	// Title is the heading text, if any.
	Title string

	// Kind describes the section ("page", "heading", "paragraph", "body").
	Kind string

	// Text is the normalised text of the section.
	Text string
}

// DocumentMetadata describes where a document came from.
type DocumentMetadata struct {
	// Format is the extractor that produced the document ("pdf", "eml"...).
	Format string

	// MIMEType is the detected content type.
	MIMEType string

	// Size is the source file size in bytes.
	Size int64

	// ModifiedAt is the source file modification time.
	ModifiedAt time.Time

	// Dates are dates found in the file's own headers (e.g. an email Date).
	Dates []string

	// Providers are care providers named in the file's own headers.
	Providers []string

	// Quality is the extractor's estimate of text fidelity in [0,1].
	Quality float64

	// Extra holds format-specific key-value pairs.
	Extra map[string]any
}

// Document is a normalised source file moving through the pipeline.
// Each stage overwrites the fields it derives, so re-running a stage
// never duplicates data.
type Document struct {
	// ID is stable across runs for the same source.
	ID string

	// Path is the source file location.
	Path string

	// Title is the human-readable title.
	Title string

	// Content is the full normalised text.
	Content string

	// Sections is the structural breakdown of Content.
	Sections []Section

	// Metadata describes the source.
	Metadata DocumentMetadata

	// ExtractedDates are ISO-8601 dates found in the text.
	ExtractedDates []string

	// Providers are provider names found in the text.
	Providers []string

	// Confidence is the overall confidence score in [0,1].
	Confidence float64

	// Entities are the typed facts derived from the text.
	Entities EntitySet

	// Associations link entities of this document.
	Associations []Association

	// State is the current pipeline stage.
	State Stage

	// FailedStage is the stage that failed when State is StageFailed.
	FailedStage Stage

	// StageErrors accumulates fatal and non-fatal stage errors.
	StageErrors []StageError

	// CreatedAt is when the document was first extracted.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed stage.
	UpdatedAt time.Time
}

// Advance moves the document to the given stage.
func (d *Document) Advance(stage Stage) {
	if d.State == StageFailed {
		return
	}
	d.State = stage
	d.UpdatedAt = time.Now()
}

// Fail marks the document as failed at stage and records the error.
func (d *Document) Fail(stage Stage, reason string, err error) {
	d.State = StageFailed
	d.FailedStage = stage
	d.UpdatedAt = time.Now()
	d.StageErrors = append(d.StageErrors, StageError{
		Stage:  stage,
		Reason: reason,
		Fatal:  true,
		Err:    err,
	})
}

// RecordError appends a non-fatal stage error.
func (d *Document) RecordError(stage Stage, reason string, err error) {
	d.StageErrors = append(d.StageErrors, StageError{
		Stage:  stage,
		Reason: reason,
		Err:    err,
	})
}

// IsFailed returns true when the document reached StageFailed.
func (d *Document) IsFailed() bool {
	return d.State == StageFailed
}

// FailureReason returns the reason of the fatal stage error, if any.
func (d *Document) FailureReason() string {
	for i := len(d.StageErrors) - 1; i >= 0; i-- {
		if d.StageErrors[i].Fatal {
			return d.StageErrors[i].Reason
		}
	}
	return ""
}

// ResetDerived clears every field derived after extraction.
func (d *Document) ResetDerived() {
	d.ExtractedDates = nil
	d.Providers = nil
	d.Entities = nil
	d.Associations = nil
}
