package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		retryable bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "not found", status: http.StatusNotFound, wantErr: true},
		{name: "forbidden", status: http.StatusForbidden, wantErr: true},
		{name: "too many requests", status: http.StatusTooManyRequests, wantErr: true, retryable: true},
		{name: "bad gateway", status: http.StatusBadGateway, wantErr: true, retryable: true},
		{name: "redirect surfaced", status: http.StatusFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := failure.CheckStatus("https://example.com/g/catalog", tt.status)
			if !tt.wantErr {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, err.IsRetryable())
			if tt.retryable {
				assert.Equal(t, failure.SeverityRecoverable, err.Severity())
			} else {
				assert.Equal(t, failure.SeverityFatal, err.Severity())
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := fmt.Errorf("wrapped: %w", &failure.TransportError{
		URL:     "https://example.com",
		Message: "request failed",
		Err:     cause,
	})

	var transportErr *failure.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, cause)
	assert.True(t, transportErr.IsRetryable())
	assert.Equal(t, failure.SeverityRecoverable, transportErr.Severity())
	assert.Contains(t, transportErr.Error(), "connection reset by peer")
}
