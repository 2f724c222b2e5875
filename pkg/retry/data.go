package retry

import (
	"time"

	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/rohmanhakim/chan-relay/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic.
// They come from configuration; the retry handler does not derive them.
type RetryParam struct {
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

func NewRetryParam(
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

// SingleAttempt runs the task exactly once.
func SingleAttempt() RetryParam {
	return RetryParam{MaxAttempts: 1}
}

// Result is the outcome of a retried task.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) IsFailure() bool {
	return r.err != nil
}
