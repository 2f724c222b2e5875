package board_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/chan-relay/internal/board"
	"github.com/rohmanhakim/chan-relay/internal/cache"
	"github.com/rohmanhakim/chan-relay/internal/extractor"
	"github.com/rohmanhakim/chan-relay/internal/fetcher"
	"github.com/rohmanhakim/chan-relay/internal/media"
	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/stretchr/testify/mock"
)

const catalogHTML = `<html><body><script>var catalog = {"threads":{"111":{"sub":"a"},"222":{"sub":"b"},"333":{}},"hot":{"111":{}}};</script></body></html>`

const threadWithFileHTML = `<html><body><div class="thread">
<div class="postContainer opContainer"><div class="post op">
<div class="file"><div class="fileText">File: <a>cat.jpg</a> (10 KB, 100x100)</div>
<a class="fileThumb" href="//i.4cdn.org/g/1700.jpg"></a></div>
<div class="postInfo desktop"><span class="subject">Cats</span></div>
<blockquote class="postMessage">hello<br>world</blockquote>
</div></div></div></body></html>`

const threadNoFileHTML = `<html><body><div class="thread">
<div class="postContainer opContainer"><div class="post op">
<div class="postInfo desktop"><span class="subject"></span></div>
<blockquote class="postMessage">text only</blockquote>
</div></div></div></body></html>`

// fetcherMock is a testify mock for fetcher.Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) FetchCatalog(ctx context.Context, boardName string) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, boardName)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

func (f *fetcherMock) FetchThread(ctx context.Context, boardName string, id int64) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, boardName, id)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// mediaMock is a testify mock for media.Store
type mediaMock struct {
	mock.Mock
}

func (m *mediaMock) Fetch(ctx context.Context, remoteAddress string, derivedName string) (media.StoredBlob, failure.ClassifiedError) {
	args := m.Called(ctx, remoteAddress, derivedName)
	blob := args.Get(0).(media.StoredBlob)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return blob, err
}

// cacheMock is a testify mock for cache.Cache, used for backend failures
type cacheMock struct {
	mock.Mock
}

func (c *cacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := c.Called(ctx, key)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Bool(1), args.Error(2)
}

func (c *cacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := c.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// cacheEventSink records cache outcomes and errors
type cacheEventSink struct {
	metadata.NoopSink
	outcomes []metadata.CacheOutcome
	errors   []metadata.ErrorCause
}

func (s *cacheEventSink) RecordCache(key string, outcome metadata.CacheOutcome) {
	s.outcomes = append(s.outcomes, outcome)
}

func (s *cacheEventSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.errors = append(s.errors, cause)
}

func pageResult(rawURL string, body string) fetcher.FetchResult {
	u, _ := url.Parse(rawURL)
	return fetcher.NewFetchResultForTest(*u, []byte(body), 200, map[string]string{"Content-Type": "text/html"})
}

func threadPageURL(boardName string, id int64) string {
	return fmt.Sprintf("https://boards.4chan.org/%s/thread/%d", boardName, id)
}

type serviceFixture struct {
	fetcher *fetcherMock
	media   *mediaMock
	sink    *cacheEventSink
}

// newTestService wires the real extractor with mocked I/O. c may be nil.
func newTestService(t *testing.T, c cache.Cache) (*board.Service, serviceFixture) {
	t.Helper()
	fx := serviceFixture{
		fetcher: new(fetcherMock),
		media:   new(mediaMock),
		sink:    &cacheEventSink{},
	}
	ext := extractor.NewThreadExtractor(metadata.NoopSink{})
	svc := board.NewService(fx.sink, fx.fetcher, &ext, fx.media, c, board.DefaultServiceParam())
	return svc, fx
}
