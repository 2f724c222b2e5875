package media

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
)

type MediaErrorCause string

const (
	ErrCausePathError    MediaErrorCause = "path error"
	ErrCauseWriteFailure MediaErrorCause = "write failure"
	ErrCauseTooLarge     MediaErrorCause = "media too large"
	ErrCauseInvalidName  MediaErrorCause = "invalid derived name"
	ErrCauseInvalidURL   MediaErrorCause = "invalid remote address"
	ErrCauseEmptyBody    MediaErrorCause = "empty body"
)

// MediaError reports a local storage failure. Network failures are
// reported as failure.TransportError or failure.UpstreamError instead.
type MediaError struct {
	Message   string
	Retryable bool
	Cause     MediaErrorCause
	Path      string
}

func (e *MediaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("media error: %s: %s (%s)", e.Cause, e.Message, e.Path)
	}
	return fmt.Sprintf("media error: %s: %s", e.Cause, e.Message)
}

func (e *MediaError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *MediaError) IsRetryable() bool {
	return e.Retryable
}

// mapMediaErrorToMetadataCause maps media errors to the canonical
// metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapMediaErrorToMetadataCause(err error) metadata.ErrorCause {
	var mediaErr *MediaError
	if errors.As(err, &mediaErr) {
		switch mediaErr.Cause {
		case ErrCauseInvalidURL, ErrCauseTooLarge, ErrCauseEmptyBody:
			return metadata.CauseContentInvalid
		default:
			return metadata.CauseStorageFailure
		}
	}
	var upstreamErr *failure.UpstreamError
	if errors.As(err, &upstreamErr) {
		return metadata.CauseUpstreamStatus
	}
	var transportErr *failure.TransportError
	if errors.As(err, &transportErr) {
		return metadata.CauseNetworkFailure
	}
	return metadata.CauseUnknown
}
