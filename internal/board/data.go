package board

import (
	"time"

	"github.com/rohmanhakim/chan-relay/internal/extractor"
	"github.com/rohmanhakim/chan-relay/pkg/retry"
)

// BoardID is a board's short name, e.g. "g".
type BoardID string

// ThreadID is the number of a thread's opening post.
type ThreadID int64

// DeletedFileCaption is the caption of every thread without an attachment.
const DeletedFileCaption = extractor.DeletedFileCaption

const (
	DefaultCatalogTTL = 60 * time.Second
	DefaultThreadTTL  = 3600 * time.Second
)

type ThreadSummary struct {
	Board BoardID
	ID    ThreadID
}

// ThreadRecord is the normalized opening post of a thread. ImageURL and
// ImageLocalPath are both set, or both nil with ImageCaption equal to
// DeletedFileCaption.
type ThreadRecord struct {
	URL            string  `json:"url"`
	Subject        *string `json:"subject,omitempty"`
	Text           string  `json:"text"`
	ImageURL       *string `json:"image_url,omitempty"`
	ImageLocalPath *string `json:"image_local_path,omitempty"`
	ImageCaption   string  `json:"image_caption"`
}

// HasAttachment reports whether the record points at a stored file.
func (r ThreadRecord) HasAttachment() bool {
	return r.ImageURL != nil && r.ImageLocalPath != nil
}

type ServiceParam struct {
	catalogTTL time.Duration
	threadTTL  time.Duration
	retryParam retry.RetryParam
}

func NewServiceParam(
	catalogTTL time.Duration,
	threadTTL time.Duration,
	retryParam retry.RetryParam,
) ServiceParam {
	if catalogTTL <= 0 {
		catalogTTL = DefaultCatalogTTL
	}
	if threadTTL <= 0 {
		threadTTL = DefaultThreadTTL
	}
	if retryParam.MaxAttempts < 1 {
		retryParam = retry.SingleAttempt()
	}
	return ServiceParam{
		catalogTTL: catalogTTL,
		threadTTL:  threadTTL,
		retryParam: retryParam,
	}
}

// DefaultServiceParam uses the default TTLs and a single attempt per fetch.
func DefaultServiceParam() ServiceParam {
	return NewServiceParam(DefaultCatalogTTL, DefaultThreadTTL, retry.SingleAttempt())
}

func (p ServiceParam) CatalogTTL() time.Duration {
	return p.catalogTTL
}

func (p ServiceParam) ThreadTTL() time.Duration {
	return p.threadTTL
}
