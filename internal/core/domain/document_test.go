package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStage_Order tests the ordering of pipeline stages
func TestStage_Order(t *testing.T) {
	assert.True(t, StageDiscovered.Before(StageExtracted))
	assert.True(t, StageExtracted.Before(StageEntitiesExtracted))
	assert.True(t, StageEntitiesExtracted.Before(StageIndexed))
	assert.True(t, StageIndexed.Before(StagePostProcessed))
	assert.True(t, StagePostProcessed.Before(StageSynced))

	assert.False(t, StageSynced.Before(StageDiscovered))
	assert.False(t, StageFailed.Before(StageSynced))
	assert.False(t, StageDiscovered.Before(StageFailed))
}

// TestStage_IsTerminal tests terminal stages
func TestStage_IsTerminal(t *testing.T) {
	assert.True(t, StageSynced.IsTerminal())
	assert.True(t, StageFailed.IsTerminal())
	assert.False(t, StageIndexed.IsTerminal())
	assert.False(t, StageDiscovered.IsTerminal())
}

// TestDocument_Fail tests failing a document
func TestDocument_Fail(t *testing.T) {
	doc := &Document{ID: "doc-1", State: StageExtracted}

	doc.Fail(StageEntitiesExtracted, "model crashed", errors.New("boom"))

	assert.True(t, doc.IsFailed())
	assert.Equal(t, StageFailed, doc.State)
	assert.Equal(t, StageEntitiesExtracted, doc.FailedStage)
	require.Len(t, doc.StageErrors, 1)
	assert.True(t, doc.StageErrors[0].Fatal)
	assert.Equal(t, "model crashed", doc.FailureReason())
}

// TestDocument_AdvanceAfterFailure tests that failed documents do not advance
func TestDocument_AdvanceAfterFailure(t *testing.T) {
	doc := &Document{ID: "doc-1"}
	doc.Fail(StageExtracted, "unreadable", nil)

	doc.Advance(StageIndexed)

	assert.Equal(t, StageFailed, doc.State)
}

// TestDocument_RecordError tests non-fatal errors
func TestDocument_RecordError(t *testing.T) {
	doc := &Document{ID: "doc-1", State: StageIndexed}

	doc.RecordError(StagePostProcessed, "json_export: disk full", nil)

	assert.False(t, doc.IsFailed())
	require.Len(t, doc.StageErrors, 1)
	assert.False(t, doc.StageErrors[0].Fatal)
	assert.Empty(t, doc.FailureReason())
}

// TestDocument_ResetDerived tests clearing derived fields
func TestDocument_ResetDerived(t *testing.T) {
	doc := &Document{
		ID:             "doc-1",
		Content:        "text",
		ExtractedDates: []string{"2018-02-14"},
		Providers:      []string{"Dr. LiCause"},
		Entities:       EntitySet{EntityCondition: {{ID: "e1"}}},
		Associations:   []Association{{Type: AssociationMentions}},
	}

	doc.ResetDerived()

	assert.Equal(t, "text", doc.Content)
	assert.Nil(t, doc.ExtractedDates)
	assert.Nil(t, doc.Providers)
	assert.Nil(t, doc.Entities)
	assert.Nil(t, doc.Associations)
}
