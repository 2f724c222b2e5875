package failure

import (
	"fmt"
	"net/http"
)

// TransportError reports a network-level failure: DNS resolution, dial,
// timeout, connection reset or an interrupted body read.
type TransportError struct {
	URL     string
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %s %s: %v", e.Message, e.URL, e.Err)
	}
	return fmt.Sprintf("transport error: %s %s", e.Message, e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Severity() Severity {
	return SeverityRecoverable
}

func (e *TransportError) IsRetryable() bool {
	return true
}

// UpstreamError reports a response whose status is not 2xx.
type UpstreamError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %d %s (%s)", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

func (e *UpstreamError) Severity() Severity {
	if e.IsRetryable() {
		return SeverityRecoverable
	}
	return SeverityFatal
}

// IsRetryable treats 5xx and 429 as transient; every other status is final.
func (e *UpstreamError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// CheckStatus returns an UpstreamError for any non-2xx status.
func CheckStatus(rawURL string, statusCode int) *UpstreamError {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &UpstreamError{URL: rawURL, StatusCode: statusCode}
}
