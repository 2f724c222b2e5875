package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry or cache decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - DNS resolution failures, timeouts, connection resets.

# CauseUpstreamStatus
  - The board answered with a non-success HTTP status.

# CauseContentInvalid
  - Markup was fetched but the expected page shape was not found.

# CauseStorageFailure
  - Media could not be written to the local store.

# CauseCacheFailure
  - The cache backend could not be read or written, or held a value
    that could not be decoded.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseUpstreamStatus
	CauseContentInvalid
	CauseStorageFailure
	CauseCacheFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseUpstreamStatus:
		return "upstream_status"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseCacheFailure:
		return "cache_failure"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactMedia ArtifactKind = "media"
)

type CacheOutcome string

const (
	CacheHit     CacheOutcome = "hit"
	CacheMiss    CacheOutcome = "miss"
	CacheStore   CacheOutcome = "store"
	CacheBypass  CacheOutcome = "bypass"
	CacheInvalid CacheOutcome = "invalid"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL         AttributeKey = "url"
	AttrBoard       AttributeKey = "board"
	AttrThread      AttributeKey = "thread"
	AttrMessage     AttributeKey = "message"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrAssetURL    AttributeKey = "asset_url"
	AttrWritePath   AttributeKey = "write_path"
	AttrContentHash AttributeKey = "content_hash"
	AttrCacheKey    AttributeKey = "cache_key"
)
