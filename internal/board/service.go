package board

import (
	"context"
	"math/rand"
	"time"

	"github.com/rohmanhakim/chan-relay/internal/cache"
	"github.com/rohmanhakim/chan-relay/internal/extractor"
	"github.com/rohmanhakim/chan-relay/internal/fetcher"
	"github.com/rohmanhakim/chan-relay/internal/media"
	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/rohmanhakim/chan-relay/pkg/retry"
	"github.com/rohmanhakim/chan-relay/pkg/urlutil"
)

/*
Service

Responsibilities:
- Serve catalog thread ids and thread records cache-aside
- Materialize thread attachments through the media store
- Refresh entries on demand, bypassing the cache read

Cache Rules:
- Only complete, successful results are written
- A cache that cannot be read or decoded counts as a miss
- A cache that cannot be written does not fail the request
- A nil cache disables caching without changing any contract
*/

// Parser maps board markup to ids and records.
type Parser interface {
	ParseCatalog(markup []byte) []int64
	ParseThread(sourceUrl string, markup []byte) (extractor.ParsedThread, failure.ClassifiedError)
}

type Service struct {
	metadataSink metadata.MetadataSink
	fetcher      fetcher.Fetcher
	parser       Parser
	media        media.Store
	cache        cache.Cache
	param        ServiceParam
}

func NewService(
	metadataSink metadata.MetadataSink,
	fetcher fetcher.Fetcher,
	parser Parser,
	mediaStore media.Store,
	cache cache.Cache,
	param ServiceParam,
) *Service {
	if metadataSink == nil {
		metadataSink = metadata.NoopSink{}
	}
	if param.retryParam.MaxAttempts < 1 {
		param = NewServiceParam(param.catalogTTL, param.threadTTL, param.retryParam)
	}
	return &Service{
		metadataSink: metadataSink,
		fetcher:      fetcher,
		parser:       parser,
		media:        mediaStore,
		cache:        cache,
		param:        param,
	}
}

// CacheEnabled reports whether results are cached.
func (s *Service) CacheEnabled() bool {
	return s.cache != nil
}

// ThreadIDs returns the board's catalog thread ids in site order.
func (s *Service) ThreadIDs(ctx context.Context, board BoardID) ([]ThreadID, error) {
	if err := validateBoard(board); err != nil {
		return nil, err
	}

	key := cache.CatalogKey(string(board))
	if data, ok := s.cacheGet(ctx, key); ok {
		ids, err := decodeThreadIDs(data)
		if err == nil {
			return ids, nil
		}
		s.recordCacheError("Service.ThreadIDs", key, metadata.CacheInvalid, err)
	}

	return s.loadCatalog(ctx, board)
}

// RefreshCatalog fetches the catalog regardless of cached state and
// writes the result through.
func (s *Service) RefreshCatalog(ctx context.Context, board BoardID) ([]ThreadID, error) {
	if err := validateBoard(board); err != nil {
		return nil, err
	}
	s.metadataSink.RecordCache(cache.CatalogKey(string(board)), metadata.CacheBypass)
	return s.loadCatalog(ctx, board)
}

// Thread returns the opening post of a thread, downloading its attachment
// when the record is built.
func (s *Service) Thread(ctx context.Context, board BoardID, id ThreadID) (ThreadRecord, error) {
	if err := validateBoard(board); err != nil {
		return ThreadRecord{}, err
	}
	if err := validateThreadID(id); err != nil {
		return ThreadRecord{}, err
	}

	key := cache.ThreadKey(string(board), int64(id))
	if data, ok := s.cacheGet(ctx, key); ok {
		record, err := decodeThreadRecord(data)
		if err == nil {
			return record, nil
		}
		s.recordCacheError("Service.Thread", key, metadata.CacheInvalid, err)
	}

	return s.loadThread(ctx, board, id)
}

// RefreshThread rebuilds a thread record regardless of cached state and
// writes the result through.
func (s *Service) RefreshThread(ctx context.Context, board BoardID, id ThreadID) (ThreadRecord, error) {
	if err := validateBoard(board); err != nil {
		return ThreadRecord{}, err
	}
	if err := validateThreadID(id); err != nil {
		return ThreadRecord{}, err
	}
	s.metadataSink.RecordCache(cache.ThreadKey(string(board), int64(id)), metadata.CacheBypass)
	return s.loadThread(ctx, board, id)
}

// RandomThread picks a thread uniformly from the board's catalog and
// returns its record.
func (s *Service) RandomThread(ctx context.Context, board BoardID, rng *rand.Rand) (ThreadSummary, ThreadRecord, error) {
	ids, err := s.ThreadIDs(ctx, board)
	if err != nil {
		return ThreadSummary{}, ThreadRecord{}, err
	}
	if len(ids) == 0 {
		return ThreadSummary{}, ThreadRecord{}, ErrEmptyCatalog
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	summary := ThreadSummary{Board: board, ID: ids[rng.Intn(len(ids))]}
	record, err := s.Thread(ctx, board, summary.ID)
	if err != nil {
		return summary, ThreadRecord{}, err
	}
	return summary, record, nil
}

func (s *Service) loadCatalog(ctx context.Context, board BoardID) ([]ThreadID, error) {
	result := retry.Retry(ctx, s.param.retryParam, func() (fetcher.FetchResult, failure.ClassifiedError) {
		return s.fetcher.FetchCatalog(ctx, string(board))
	})
	if result.IsFailure() {
		return nil, result.Err()
	}
	page := result.Value()

	raw := s.parser.ParseCatalog(page.Body())
	ids := make([]ThreadID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, ThreadID(id))
	}

	key := cache.CatalogKey(string(board))
	if data, err := encodeThreadIDs(ids); err != nil {
		s.recordCacheError("Service.loadCatalog", key, metadata.CacheInvalid, err)
	} else {
		s.cacheSet(ctx, key, data, s.param.catalogTTL)
	}
	return ids, nil
}

func (s *Service) loadThread(ctx context.Context, board BoardID, id ThreadID) (ThreadRecord, error) {
	result := retry.Retry(ctx, s.param.retryParam, func() (fetcher.FetchResult, failure.ClassifiedError) {
		return s.fetcher.FetchThread(ctx, string(board), int64(id))
	})
	if result.IsFailure() {
		return ThreadRecord{}, result.Err()
	}
	page := result.Value()
	pageUrl := page.URL()

	parsed, parseErr := s.parser.ParseThread(pageUrl.String(), page.Body())
	if parseErr != nil {
		return ThreadRecord{}, parseErr
	}

	record := ThreadRecord{
		URL:          pageUrl.String(),
		Subject:      parsed.Subject,
		Text:         parsed.Text,
		ImageCaption: parsed.ImageCaption,
	}

	if parsed.HasAttachment() {
		imageURL := urlutil.CompleteProtocolRelative(*parsed.ImageURL)
		derivedName := media.DerivedName(media.KindImage, string(board), int64(id), parsed.ImageExt)

		stored := retry.Retry(ctx, s.param.retryParam, func() (media.StoredBlob, failure.ClassifiedError) {
			return s.media.Fetch(ctx, imageURL, derivedName)
		})
		if stored.IsFailure() {
			return ThreadRecord{}, stored.Err()
		}
		localPath := stored.Value().Path
		record.ImageURL = &imageURL
		record.ImageLocalPath = &localPath
	}

	key := cache.ThreadKey(string(board), int64(id))
	if data, err := encodeThreadRecord(record); err != nil {
		s.recordCacheError("Service.loadThread", key, metadata.CacheInvalid, err)
	} else {
		s.cacheSet(ctx, key, data, s.param.threadTTL)
	}
	return record, nil
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.recordCacheError("Service.cacheGet", key, metadata.CacheMiss, err)
		return nil, false
	}
	if !ok {
		s.metadataSink.RecordCache(key, metadata.CacheMiss)
		return nil, false
	}
	s.metadataSink.RecordCache(key, metadata.CacheHit)
	return data, true
}

func (s *Service) cacheSet(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.recordCacheError("Service.cacheSet", key, metadata.CacheInvalid, err)
		return
	}
	s.metadataSink.RecordCache(key, metadata.CacheStore)
}

func (s *Service) recordCacheError(action string, key string, outcome metadata.CacheOutcome, err error) {
	s.metadataSink.RecordCache(key, outcome)
	s.metadataSink.RecordError(
		time.Now(),
		"board",
		action,
		metadata.CauseCacheFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCacheKey, key),
		},
	)
}
