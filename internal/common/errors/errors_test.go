package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError_CarriesFieldMetadata(t *testing.T) {
	err := NewValidationError("student_profile invalid", map[string]string{
		"field_ids": "cannot be blank",
	})

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.False(t, err.Retryable)
	require.NotNil(t, err.Metadata)
	fields, ok := err.Metadata["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cannot be blank", fields["field_ids"])
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestAsStandardError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStandardError(nil))
	})

	t.Run("wrapped standard error is found", func(t *testing.T) {
		orig := NewCatalogUnavailableError(stderrors.New("connection refused"))
		wrapped := fmt.Errorf("load candidates: %w", orig)
		assert.Same(t, orig, AsStandardError(wrapped))
		assert.True(t, HasCode(wrapped, ErrCodeCatalogUnavailable))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := AsStandardError(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("status 502")
	err := NewExternalCollaboratorError("genai", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewValidationError("x", nil), ErrCodeValidation))
	assert.False(t, HasCode(NewExplanationTimeoutError("genai", time.Second), ErrCodeValidation))
	assert.False(t, HasCode(nil, ErrCodeValidation))
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		wantCode  string
		wantRetry int
	}{
		{"validation", NewValidationError("bad", nil), "RECOMMENDATION_VALIDATION_FAILED", 0},
		{"catalog", NewCatalogUnavailableError(stderrors.New("down")), "CATALOG_UNAVAILABLE", 3},
		{"collaborator", NewExternalCollaboratorError("genai", stderrors.New("x")), "EXPLANATION_FAILED", 1},
		{"unknown code passes through", &StandardError{Code: "SOMETHING_ELSE"}, "SOMETHING_ELSE", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetry, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "business", GetErrorCategory(ErrCodeValidation))
	assert.Equal(t, "external", GetErrorCategory(ErrCodeExplanationTimeout))
	assert.Equal(t, "infrastructure", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "internal", GetErrorCategory(ErrCodeInternal))
}
