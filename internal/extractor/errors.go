package extractor

import (
	"fmt"

	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseNotHTML         ExtractionErrorCause = "not html"
	ErrCauseMissingOpPost   ExtractionErrorCause = "opening post not found"
	ErrCauseMissingPostInfo ExtractionErrorCause = "post metadata not found"
)

// ExtractionError is returned when the page does not have the expected
// structure. A missing attachment is not an error.
type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("malformed page: %s", e.Cause)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ExtractionError) IsRetryable() bool {
	return e.Retryable
}

// mapExtractionErrorToMetadataCause maps extractor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToMetadataCause(err *ExtractionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNotHTML, ErrCauseMissingOpPost, ErrCauseMissingPostInfo:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
