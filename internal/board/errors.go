package board

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rohmanhakim/chan-relay/pkg/failure"
)

// ErrEmptyCatalog is returned by RandomThread when the board lists no threads.
var ErrEmptyCatalog = errors.New("catalog has no threads")

// InvalidArgumentError rejects a request before any I/O happens.
type InvalidArgumentError struct {
	Field   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Message)
}

func (e *InvalidArgumentError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *InvalidArgumentError) IsRetryable() bool {
	return false
}

// validateBoard accepts any case-sensitive name that stays a single URL
// path segment and a single cache key component.
func validateBoard(board BoardID) *InvalidArgumentError {
	if board == "" {
		return &InvalidArgumentError{Field: "board", Message: "must not be empty"}
	}
	if board == "." || board == ".." {
		return &InvalidArgumentError{
			Field:   "board",
			Message: fmt.Sprintf("%q is not a board name", string(board)),
		}
	}
	for _, r := range board {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(`/\:?#%`, r) {
			return &InvalidArgumentError{
				Field:   "board",
				Message: fmt.Sprintf("%q contains %q", string(board), r),
			}
		}
	}
	return nil
}

func validateThreadID(id ThreadID) *InvalidArgumentError {
	if id <= 0 {
		return &InvalidArgumentError{
			Field:   "id",
			Message: fmt.Sprintf("%d is not a positive thread number", id),
		}
	}
	return nil
}
