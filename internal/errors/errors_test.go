package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridgeErrorMessage(t *testing.T) {
	err := &BridgeError{Code: ErrNotFound, Status: 404, Message: "extension not found: a.b"}
	assert.Equal(t, "NOT_FOUND: extension not found: a.b", err.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *BridgeError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("prompt is required"), ErrInvalidRequest, 400},
		{"not found", NewNotFound("extension", "x.y"), ErrNotFound, 404},
		{"unavailable", NewServiceUnavailable("http://localhost:3000", stderrors.New("refused")), ErrServiceUnavailable, 503},
		{"service error", NewServiceError("/api/context/enhance", 502, "bad gateway"), ErrServiceError, 502},
		{"internal", NewInternal(stderrors.New("boom")), ErrInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestNewServiceUnavailableKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewServiceUnavailable("http://svc", cause)

	assert.Contains(t, err.Message, "connection refused")
	assert.True(t, stderrors.Is(err, cause))
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("enhance: %w", NewNotFound("extension", "a.b"))

	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrInternal))
	assert.False(t, Is(stderrors.New("plain"), ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestNewInternalNilCause(t *testing.T) {
	assert.Equal(t, "internal error", NewInternal(nil).Message)
}
