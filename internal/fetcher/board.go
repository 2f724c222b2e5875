package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/rohmanhakim/chan-relay/pkg/limiter"
	"github.com/rohmanhakim/chan-relay/pkg/urlutil"
)

/*
Responsibilities

- Build catalog and thread page addresses
- Perform HTTP requests with browser-like headers and a timeout
- Classify responses into transport and upstream failures

Fetch Semantics

- Any 2xx response is returned as-is
- Every other status is an upstream error carrying the status code
- Requests to the same host are spaced by the limiter's interval
- All fetches are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type BoardFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	limiter      *limiter.HostLimiter
	param        FetchParam
}

func NewBoardFetcher(
	metadataSink metadata.MetadataSink,
	hostLimiter *limiter.HostLimiter,
	param FetchParam,
) BoardFetcher {
	return BoardFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{Timeout: param.timeout},
		limiter:      hostLimiter,
		param:        param,
	}
}

// CatalogURL returns {base}/{board}/catalog.
func (b *BoardFetcher) CatalogURL(board string) url.URL {
	return urlutil.JoinPath(b.param.baseUrl, board, "catalog")
}

// ThreadURL returns {base}/{board}/thread/{id}.
func (b *BoardFetcher) ThreadURL(board string, id int64) url.URL {
	return urlutil.JoinPath(b.param.baseUrl, board, "thread", strconv.FormatInt(id, 10))
}

func (b *BoardFetcher) FetchCatalog(ctx context.Context, board string) (FetchResult, failure.ClassifiedError) {
	return b.fetch(ctx, "BoardFetcher.FetchCatalog", b.CatalogURL(board))
}

func (b *BoardFetcher) FetchThread(ctx context.Context, board string, id int64) (FetchResult, failure.ClassifiedError) {
	return b.fetch(ctx, "BoardFetcher.FetchThread", b.ThreadURL(board, id))
}

func (b *BoardFetcher) fetch(
	ctx context.Context,
	callerMethod string,
	fetchUrl url.URL,
) (FetchResult, failure.ClassifiedError) {
	if err := b.limiter.Wait(ctx, fetchUrl.Host); err != nil {
		classified := &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "rate limiter wait aborted",
			Err:     err,
		}
		b.recordFetchError(callerMethod, fetchUrl, classified)
		return FetchResult{}, classified
	}

	startTime := time.Now()
	result, err := b.performFetch(ctx, fetchUrl)
	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if err == nil {
		statusCode = result.Code()
		contentType = result.Headers()["Content-Type"]
	} else {
		var upstreamErr *failure.UpstreamError
		if errors.As(err, &upstreamErr) {
			statusCode = upstreamErr.StatusCode
		}
	}

	b.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		duration,
		contentType,
	)

	if err != nil {
		b.recordFetchError(callerMethod, fetchUrl, err)
		return FetchResult{}, err
	}
	return result, nil
}

func (b *BoardFetcher) recordFetchError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	b.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		},
	)
}

func (b *BoardFetcher) performFetch(ctx context.Context, fetchUrl url.URL) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "failed to create request",
			Err:     err,
		}
	}

	for key, value := range requestHeaders(b.param.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if upstreamErr := failure.CheckStatus(fetchUrl.String(), resp.StatusCode); upstreamErr != nil {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return FetchResult{}, upstreamErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: fmt.Sprintf("failed to read response body after %d", resp.StatusCode),
			Err:     err,
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     flattenHeaders(resp.Header),
		},
	}, nil
}

// Accept-Encoding is left to net/http so gzip responses are decoded
// transparently.
func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
