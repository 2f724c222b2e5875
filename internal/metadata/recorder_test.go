package metadata_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestRecorder_RecordError(t *testing.T) {
	var buf bytes.Buffer
	rec := metadata.NewRecorder(metadata.NewLogger(&buf, "debug", "json"), "worker-1")

	rec.RecordError(
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"fetcher",
		"BoardFetcher.FetchThread",
		metadata.CauseUpstreamStatus,
		"upstream error: 404",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, "https://boards.example/g/thread/1")},
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "worker-1", lines[0]["worker_id"])
	assert.Equal(t, "worker-1", rec.WorkerID())
	assert.Equal(t, "fetcher", lines[0]["package"])
	assert.Equal(t, "upstream_status", lines[0]["cause"])
	assert.Equal(t, "https://boards.example/g/thread/1", lines[0]["url"])
}

func TestRecorder_CacheEventsAreDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	rec := metadata.NewRecorder(metadata.NewLogger(&buf, "info", "json"), "w")

	rec.RecordCache("threads:g", metadata.CacheHit)
	assert.Empty(t, buf.String())

	rec.RecordFetch("https://boards.example/g/catalog", 200, time.Millisecond, "text/html")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "fetch", lines[0]["msg"])
	assert.EqualValues(t, 200, lines[0]["http_status"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", metadata.ParseLevel("debug").String())
	assert.Equal(t, "WARN", metadata.ParseLevel("warning").String())
	assert.Equal(t, "ERROR", metadata.ParseLevel("ERROR").String())
	assert.Equal(t, "INFO", metadata.ParseLevel("nonsense").String())
}

func TestMultiSink_FansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := metadata.NewMetricsSink(reg)
	var buf bytes.Buffer
	rec := metadata.NewRecorder(metadata.NewLogger(&buf, "debug", "text"), "w")

	sink := metadata.MultiSink{rec, metrics, &metadata.NoopSink{}}
	sink.RecordCache("thread:g:1", metadata.CacheMiss)
	sink.RecordCache("thread:g:2", metadata.CacheMiss)
	sink.RecordCache("threads:g", metadata.CacheHit)
	sink.RecordArtifact(metadata.ArtifactMedia, "/tmp/image_g_1.jpg", nil)
	sink.RecordAssetFetch("https://i.example/g/1.jpg", 200, time.Millisecond)

	assert.Contains(t, buf.String(), "outcome=miss")
	assert.Contains(t, buf.String(), "kind=media")

	count, err := testutil.GatherAndCount(reg, "chanrelay_cache_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per family/outcome pair")
}

func TestMetricsSink_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metadata.NewMetricsSink(reg)

	m.RecordFetch("https://boards.example/g/catalog", 200, 10*time.Millisecond, "text/html")
	m.RecordFetch("https://boards.example/g/thread/9", 404, 10*time.Millisecond, "")
	m.RecordError(time.Now(), "fetcher", "x", metadata.CauseUpstreamStatus, "404", nil)
	m.RecordError(time.Now(), "fetcher", "x", metadata.CauseUpstreamStatus, "404", nil)

	expected := `
# HELP chanrelay_errors_total Recorded errors by package and cause.
# TYPE chanrelay_errors_total counter
chanrelay_errors_total{cause="upstream_status",package="fetcher"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "chanrelay_errors_total"))

	count, err := testutil.GatherAndCount(reg, "chanrelay_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
