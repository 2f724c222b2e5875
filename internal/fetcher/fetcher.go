package fetcher

import (
	"context"

	"github.com/rohmanhakim/chan-relay/pkg/failure"
)

// Fetcher retrieves raw board pages. Implementations never retry; a caller
// that wants retries wraps the calls in pkg/retry.
type Fetcher interface {
	FetchCatalog(ctx context.Context, board string) (FetchResult, failure.ClassifiedError)
	FetchThread(ctx context.Context, board string, id int64) (FetchResult, failure.ClassifiedError)
}
