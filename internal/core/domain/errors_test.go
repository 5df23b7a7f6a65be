package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrUnsupportedFileType", ErrUnsupportedFileType},
		{"ErrExtractionFailure", ErrExtractionFailure},
		{"ErrModelUnavailable", ErrModelUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorStoreCorruption", ErrVectorStoreCorruption},
		{"ErrMetricMismatch", ErrMetricMismatch},
		{"ErrStoreLocked", ErrStoreLocked},
		{"ErrStoreClosed", ErrStoreClosed},
		{"ErrSyncTransient", ErrSyncTransient},
		{"ErrSyncPermanent", ErrSyncPermanent},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrToleranceExceeded", ErrToleranceExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Wrapping tests that wrapped errors keep their identity
func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("upsert condition: %w", ErrSyncTransient)

	assert.True(t, errors.Is(wrapped, ErrSyncTransient))
	assert.False(t, errors.Is(wrapped, ErrSyncPermanent))
}

// TestStageError tests StageError formatting and unwrapping
func TestStageError(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		err := &StageError{
			Stage:  StageExtracted,
			Reason: "read pdf",
			Err:    ErrExtractionFailure,
		}

		assert.Equal(t, "Extracted: read pdf: extraction failed", err.Error())
		assert.True(t, errors.Is(err, ErrExtractionFailure))
	})

	t.Run("reason equal to error is not repeated", func(t *testing.T) {
		err := &StageError{Stage: StageIndexed, Reason: "boom", Err: errors.New("boom")}

		assert.Equal(t, "Indexed: boom", err.Error())
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := &StageError{Stage: StageSynced, Reason: "cancelled"}

		assert.Equal(t, "Synced: cancelled", err.Error())
		assert.Nil(t, err.Unwrap())
	})
}
