package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")
	assert.Equal(t, "validation: bad input", err.Error())

	wrapped := Wrap(fmt.Errorf("socket closed"), ErrorTypeSourceUnavailable, "fetch failed")
	assert.Contains(t, wrapped.Error(), "fetch failed")
	assert.Contains(t, wrapped.Error(), "socket closed")
}

func TestIsTypeThroughWrapping(t *testing.T) {
	base := New(ErrorTypeRateLimited, "throttled")
	wrapped := fmt.Errorf("all 3 attempts failed: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeRateLimited))
	assert.False(t, IsType(wrapped, ErrorTypeTimeout))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeRateLimited))
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeSourceUnavailable, ErrorTypeRateLimited, ErrorTypeTimeout}
	for _, typ := range retryable {
		assert.True(t, IsRetryable(New(typ, "x")), string(typ))
	}

	permanent := []ErrorType{ErrorTypeValidation, ErrorTypeConfig, ErrorTypeMalformedResponse, ErrorTypeStorageUnavailable, ErrorTypeInternal}
	for _, typ := range permanent {
		assert.False(t, IsRetryable(New(typ, "x")), string(typ))
	}

	// Must see through fmt.Errorf wrapping
	assert.True(t, IsRetryable(fmt.Errorf("retry: %w", New(ErrorTypeTimeout, "deadline"))))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(cause, ErrorTypeStorageUnavailable, "query failed")

	require.NotNil(t, err.Unwrap())
	assert.Equal(t, cause, err.Unwrap())
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "bad row").
		WithDetail("row", 7).
		WithDetail("column", "value")

	assert.Equal(t, 7, err.Details["row"])
	assert.Equal(t, "value", err.Details["column"])
}
