package metadata

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts pipeline events in Prometheus collectors.
type MetricsSink struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	artifacts     *prometheus.CounterVec
	cache         *prometheus.CounterVec
}

// NewMetricsSink registers its collectors on reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	m := &MetricsSink{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chanrelay",
			Name:      "fetches_total",
			Help:      "Upstream requests by kind and HTTP status.",
		}, []string{"kind", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chanrelay",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chanrelay",
			Name:      "errors_total",
			Help:      "Recorded errors by package and cause.",
		}, []string{"package", "cause"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chanrelay",
			Name:      "artifacts_total",
			Help:      "Artifacts written to local storage.",
		}, []string{"kind"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chanrelay",
			Name:      "cache_events_total",
			Help:      "Cache outcomes by key family.",
		}, []string{"family", "outcome"}),
	}
	reg.MustRegister(m.fetches, m.fetchDuration, m.errors, m.artifacts, m.cache)
	return m
}

func (m *MetricsSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	m.errors.WithLabelValues(packageName, cause.String()).Inc()
}

func (m *MetricsSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string) {
	m.fetches.WithLabelValues("page", strconv.Itoa(httpStatus)).Inc()
	m.fetchDuration.WithLabelValues("page").Observe(duration.Seconds())
}

func (m *MetricsSink) RecordAssetFetch(fetchUrl string, httpStatus int, duration time.Duration) {
	m.fetches.WithLabelValues("asset", strconv.Itoa(httpStatus)).Inc()
	m.fetchDuration.WithLabelValues("asset").Observe(duration.Seconds())
}

func (m *MetricsSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	m.artifacts.WithLabelValues(string(kind)).Inc()
}

func (m *MetricsSink) RecordCache(key string, outcome CacheOutcome) {
	m.cache.WithLabelValues(keyFamily(key), string(outcome)).Inc()
}

// keyFamily keeps label cardinality bounded: "thread:g:123" -> "thread".
func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
