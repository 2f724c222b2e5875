package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/rohmanhakim/chan-relay/pkg/fileutil"
	"github.com/rohmanhakim/chan-relay/pkg/hashutil"
	"github.com/rohmanhakim/chan-relay/pkg/urlutil"
)

/*
Responsibilities
- Map a remote blob to a stable local name
- Download the blob only when no local copy exists
- Publish files atomically

Storage Policies
- Deduplication is by derived name; an existing file is never re-fetched
- A file at its final path is always complete
- A failed download leaves nothing behind
*/
type Store interface {
	Fetch(ctx context.Context, remoteAddress string, derivedName string) (StoredBlob, failure.ClassifiedError)
}

type LocalStore struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	param        StoreParam
}

func NewLocalStore(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	param StoreParam,
) LocalStore {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return LocalStore{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		param:        param,
	}
}

// Fetch returns the local path of derivedName, downloading remoteAddress
// first when the file is not present yet.
func (s *LocalStore) Fetch(
	ctx context.Context,
	remoteAddress string,
	derivedName string,
) (StoredBlob, failure.ClassifiedError) {
	blob, err := s.fetch(ctx, remoteAddress, derivedName)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"media",
			"LocalStore.Fetch",
			mapMediaErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrAssetURL, remoteAddress),
				metadata.NewAttr(metadata.AttrWritePath, filepath.Join(s.param.dir, derivedName)),
			},
		)
		return StoredBlob{}, err
	}

	if blob.Downloaded {
		s.metadataSink.RecordArtifact(
			metadata.ArtifactMedia,
			blob.Path,
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrAssetURL, remoteAddress),
				metadata.NewAttr(metadata.AttrContentHash, blob.ContentHash),
			},
		)
	}
	return blob, nil
}

func (s *LocalStore) fetch(
	ctx context.Context,
	remoteAddress string,
	derivedName string,
) (StoredBlob, failure.ClassifiedError) {
	if derivedName == "" || derivedName != filepath.Base(derivedName) || strings.HasPrefix(derivedName, ".") {
		return StoredBlob{}, &MediaError{
			Message:   fmt.Sprintf("%q is not a plain file name", derivedName),
			Retryable: false,
			Cause:     ErrCauseInvalidName,
		}
	}

	finalPath := filepath.Join(s.param.dir, derivedName)

	present, err := s.exists(finalPath)
	if err != nil {
		return StoredBlob{}, err
	}
	if present {
		return StoredBlob{Path: finalPath}, nil
	}

	fetchUrl, err := parseRemoteAddress(remoteAddress)
	if err != nil {
		return StoredBlob{}, err
	}

	if err := fileutil.EnsureDir(s.param.dir); err != nil {
		return StoredBlob{}, &MediaError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      s.param.dir,
		}
	}

	return s.download(ctx, fetchUrl, derivedName, finalPath)
}

func (s *LocalStore) exists(path string) (bool, failure.ClassifiedError) {
	ok, err := fileutil.Exists(path)
	if err != nil {
		return false, &MediaError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      path,
		}
	}
	return ok, nil
}

func parseRemoteAddress(remoteAddress string) (url.URL, failure.ClassifiedError) {
	u, err := url.Parse(urlutil.CompleteProtocolRelative(strings.TrimSpace(remoteAddress)))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return url.URL{}, &MediaError{
			Message:   fmt.Sprintf("cannot download %q", remoteAddress),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}
	return *u, nil
}

// download streams the body into a temp file in the destination directory
// and renames it onto finalPath. The temp file is removed on every
// failure path.
func (s *LocalStore) download(
	ctx context.Context,
	fetchUrl url.URL,
	derivedName string,
	finalPath string,
) (StoredBlob, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return StoredBlob{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "failed to create request",
			Err:     err,
		}
	}
	for key, value := range mediaRequestHeaders(s.param.userAgent) {
		req.Header.Set(key, value)
	}

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metadataSink.RecordAssetFetch(fetchUrl.String(), 0, time.Since(startTime))
		return StoredBlob{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	s.metadataSink.RecordAssetFetch(fetchUrl.String(), resp.StatusCode, time.Since(startTime))

	if upstreamErr := failure.CheckStatus(fetchUrl.String(), resp.StatusCode); upstreamErr != nil {
		return StoredBlob{}, upstreamErr
	}

	maxSize := s.param.maxMediaSize
	if resp.ContentLength > maxSize {
		return StoredBlob{}, &MediaError{
			Message:   fmt.Sprintf("%d bytes (max %d)", resp.ContentLength, maxSize),
			Retryable: false,
			Cause:     ErrCauseTooLarge,
		}
	}

	tmp, err := os.CreateTemp(s.param.dir, "."+derivedName+"-*")
	if err != nil {
		return StoredBlob{}, writeError(err, s.param.dir)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	// +1 to detect overflow when Content-Length is absent or wrong
	counter := &countingWriter{w: tmp}
	body := io.TeeReader(io.LimitReader(resp.Body, maxSize+1), counter)
	contentHash, err := hashutil.HashReader(body, s.param.hashAlgo)
	if err != nil {
		if counter.err != nil {
			return StoredBlob{}, writeError(counter.err, tmpPath)
		}
		return StoredBlob{}, &failure.TransportError{
			URL:     fetchUrl.String(),
			Message: "failed to read response body",
			Err:     err,
		}
	}
	if counter.n > maxSize {
		return StoredBlob{}, &MediaError{
			Message:   fmt.Sprintf("exceeded max %d bytes", maxSize),
			Retryable: false,
			Cause:     ErrCauseTooLarge,
		}
	}
	if counter.n == 0 {
		return StoredBlob{}, &MediaError{
			Message:   fmt.Sprintf("%s returned no content", fetchUrl.String()),
			Retryable: false,
			Cause:     ErrCauseEmptyBody,
		}
	}

	if err := tmp.Sync(); err != nil {
		return StoredBlob{}, writeError(err, tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return StoredBlob{}, writeError(err, tmpPath)
	}

	// another writer may have published the same name meanwhile
	present, existsErr := s.exists(finalPath)
	if existsErr != nil {
		return StoredBlob{}, existsErr
	}
	if present {
		// the published copy wins; report its hash, not the discarded one
		existingHash, hashErr := hashutil.HashFile(finalPath, s.param.hashAlgo)
		if hashErr != nil {
			existingHash = ""
		}
		return StoredBlob{Path: finalPath, ContentHash: existingHash}, nil
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return StoredBlob{}, writeError(err, finalPath)
	}
	committed = true

	return StoredBlob{
		Path:        finalPath,
		Downloaded:  true,
		ContentHash: contentHash,
	}, nil
}

func writeError(err error, path string) *MediaError {
	if errors.Is(err, syscall.ENOSPC) {
		return &MediaError{
			Message:   fmt.Sprintf("disk full: %v", err),
			Retryable: true,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}
	return &MediaError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseWriteFailure,
		Path:      path,
	}
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		c.err = err
	}
	return n, err
}

func mediaRequestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "image/avif,image/webp,image/apng,image/*,video/*,*/*;q=0.8",
	}
}
