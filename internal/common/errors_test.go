package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeClassification(t *testing.T) {
	connErr := NewConnectionError("AUTH_FAILED", "repository authentication returned status 401")
	assert.True(t, IsConnectionError(connErr))
	assert.Equal(t, ErrorTypeConnection, TypeOf(connErr))

	notFound := NewNotFoundError("PROJECT_NOT_FOUND", "project p1 not found")
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsConnectionError(notFound))

	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("plain")))
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := WrapError(cause, ErrorTypeConnection, "UNREACHABLE", "repository is unreachable")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "repository is unreachable")
	assert.Equal(t, ErrorTypeConnection, TypeOf(wrapped))
}

func TestClassificationSurvivesFmtWrapping(t *testing.T) {
	inner := NewNotFoundError("ISSUE_NOT_FOUND", "issue i1 not found")
	outer := fmt.Errorf("updating issue: %w", inner)

	assert.True(t, IsNotFound(outer))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(outer))
}
