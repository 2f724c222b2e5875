package metadata

import (
	"context"
	"log/slog"
	"time"
)

/*
Metadata Collected
- Fetch timestamps, status codes and durations
- Media artifacts and their content hashes
- Cache outcomes per key

Metadata is write-only.
No component may read metadata to influence fetch, parse or cache decisions.
*/

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
	)
	RecordAssetFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordCache(key string, outcome CacheOutcome)
}

/*
Recorder emits every event as a structured slog record.
Events are written synchronously in the order they are received.
*/
type Recorder struct {
	logger   *slog.Logger
	workerId string
}

func NewRecorder(logger *slog.Logger, workerId string) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger:   logger.With(slog.String("worker_id", workerId)),
		workerId: workerId,
	}
}

func (r *Recorder) WorkerID() string {
	return r.workerId
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := []slog.Attr{
		slog.Time("observed_at", observedAt),
		slog.String("package", packageName),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("details", details),
	}
	r.logger.LogAttrs(context.Background(), slog.LevelError, "error", append(args, toSlogAttrs(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
) {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "fetch",
		slog.String("url", fetchUrl),
		slog.Int("http_status", httpStatus),
		slog.Duration("duration", duration),
		slog.String("content_type", contentType),
	)
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
) {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "asset fetch",
		slog.String("url", fetchUrl),
		slog.Int("http_status", httpStatus),
		slog.Duration("duration", duration),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []slog.Attr{
		slog.String("kind", string(kind)),
		slog.String("path", path),
	}
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "artifact", append(args, toSlogAttrs(attrs)...)...)
}

func (r *Recorder) RecordCache(key string, outcome CacheOutcome) {
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "cache",
		slog.String("key", key),
		slog.String("outcome", string(outcome)),
	)
}

func toSlogAttrs(attrs []Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, slog.String(string(a.Key), a.Value))
	}
	return out
}

// NoopSink implements MetadataSink but does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.
type NoopSink struct{}

func (n NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n NoopSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string) {
}

func (n NoopSink) RecordAssetFetch(fetchUrl string, httpStatus int, duration time.Duration) {}

func (n NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n NoopSink) RecordCache(key string, outcome CacheOutcome) {}

// MultiSink fans every event out to each sink in order.
type MultiSink []MetadataSink

func (m MultiSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	for _, s := range m {
		s.RecordError(observedAt, packageName, action, cause, details, attrs)
	}
}

func (m MultiSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string) {
	for _, s := range m {
		s.RecordFetch(fetchUrl, httpStatus, duration, contentType)
	}
}

func (m MultiSink) RecordAssetFetch(fetchUrl string, httpStatus int, duration time.Duration) {
	for _, s := range m {
		s.RecordAssetFetch(fetchUrl, httpStatus, duration)
	}
}

func (m MultiSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	for _, s := range m {
		s.RecordArtifact(kind, path, attrs)
	}
}

func (m MultiSink) RecordCache(key string, outcome CacheOutcome) {
	for _, s := range m {
		s.RecordCache(key, outcome)
	}
}
