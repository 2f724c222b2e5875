package cmd_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rohmanhakim/chan-relay/internal/board"
	cmd "github.com/rohmanhakim/chan-relay/internal/cli"
	"github.com/rohmanhakim/chan-relay/internal/config"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `<script>var catalog = {"threads":{"1700":{},"1800":{}}};</script>`

func threadPage(imageURL string) string {
	return fmt.Sprintf(`<html><body><div class="thread">
<div class="postContainer opContainer"><div class="post op">
<div class="file"><div class="fileText">File: <a>cat.jpg</a> (3 B, 1x1)</div>
<a class="fileThumb" href="%s"></a></div>
<div class="postInfo desktop"><span class="subject">Cats</span></div>
<blockquote class="postMessage">meow<br>purr</blockquote>
</div></div></div></body></html>`, imageURL)
}

type fakeBoard struct {
	server        *httptest.Server
	catalogHits   int32
	imageRequests int32
}

func newFakeBoard(t *testing.T) *fakeBoard {
	t.Helper()
	fb := &fakeBoard{}
	mux := http.NewServeMux()
	mux.HandleFunc("/g/catalog", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fb.catalogHits, 1)
		_, _ = w.Write([]byte(testCatalog))
	})
	mux.HandleFunc("/v/catalog", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testCatalog))
	})
	mux.HandleFunc("/g/thread/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/1700") && !strings.HasSuffix(r.URL.Path, "/1800") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(threadPage(fb.server.URL + "/img/1700.jpg")))
	})
	mux.HandleFunc("/img/1700.jpg", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fb.imageRequests, 1)
		_, _ = w.Write([]byte("jpg"))
	})
	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := cmd.Run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func runWithLog(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := cmd.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func setupFlags(t *testing.T, fb *fakeBoard) string {
	t.Helper()
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)
	mediaDir := t.TempDir()
	cmd.SetBaseURLForTest(fb.server.URL)
	cmd.SetMediaDirForTest(mediaDir)
	return mediaDir
}

func TestThreadsCommand(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	out, err := run(t, "threads", "g")

	require.NoError(t, err)
	assert.Equal(t, "1700\n1800\n", out)
}

func TestThreadCommand(t *testing.T) {
	fb := newFakeBoard(t)
	mediaDir := setupFlags(t, fb)

	out, err := run(t, "thread", "g", "1700")

	require.NoError(t, err)
	localPath := filepath.Join(mediaDir, "image_g_1700.jpg")
	assert.Contains(t, out, "URL: "+fb.server.URL+"/g/thread/1700\n")
	assert.Contains(t, out, "Subject: Cats\n")
	assert.Contains(t, out, "Image info: File: cat.jpg (3 B, 1x1)\n")
	assert.Contains(t, out, "Image file: "+localPath+"\n")
	assert.True(t, strings.HasSuffix(out, "Text:\nmeow\npurr\n"))

	data, readErr := os.ReadFile(localPath)
	require.NoError(t, readErr)
	assert.Equal(t, "jpg", string(data))
}

func TestThreadCommand_MediaNotDownloadedTwice(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)
	cmd.SetNoCacheForTest(true)

	_, err := run(t, "thread", "g", "1700")
	require.NoError(t, err)
	_, err = run(t, "thread", "g", "1700")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.imageRequests))
}

func TestThreadCommand_NotFound(t *testing.T) {
	fb := newFakeBoard(t)
	mediaDir := setupFlags(t, fb)

	_, err := run(t, "thread", "g", "404")

	var upstreamErr *failure.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)
	entries, _ := os.ReadDir(mediaDir)
	assert.Empty(t, entries)
}

func TestThreadCommand_BadID(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	for _, id := range []string{"abc", "0"} {
		_, err := run(t, "thread", "g", id)
		var argErr *board.InvalidArgumentError
		require.ErrorAs(t, err, &argErr, "id %s", id)
	}
}

func TestRandomCommand(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	out, err := run(t, "random", "g")

	require.NoError(t, err)
	assert.Regexp(t, `^Thread: /g/(1700|1800)\n`, out)
	assert.Contains(t, out, "Subject: Cats\n")
}

func TestRefreshCommand(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	out, err := run(t, "refresh", "g", "v")

	require.NoError(t, err)
	assert.Equal(t, "/g/ 2 threads\n/v/ 2 threads\n", out)
}

func TestRefreshCommand_ReportsFailedBoard(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	out, err := run(t, "refresh", "g", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/x/")
	assert.Equal(t, "/g/ 2 threads\n", out)
}

func TestRefreshCommand_WarnsWithoutRedis(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)

	_, logs, err := runWithLog(t, "refresh", "g")

	require.NoError(t, err)
	assert.Contains(t, logs, "refresh is not writing to redis")
}

func TestRefreshCommand_NoWarningWithRedis(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)
	mr := miniredis.RunT(t)
	cmd.SetRedisAddrForTest(mr.Addr())

	_, logs, err := runWithLog(t, "refresh", "g")

	require.NoError(t, err)
	assert.NotContains(t, logs, "refresh is not writing to redis")
	assert.True(t, mr.Exists("threads:g"))
}

func TestRedisBackedCache(t *testing.T) {
	fb := newFakeBoard(t)
	setupFlags(t, fb)
	mr := miniredis.RunT(t)
	cmd.SetRedisAddrForTest(mr.Addr())

	_, err := run(t, "threads", "g")
	require.NoError(t, err)
	_, err = run(t, "threads", "g")
	require.NoError(t, err)

	assert.True(t, mr.Exists("threads:g"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.catalogHits), "second run is served from redis")
}

func TestVersionCommand(t *testing.T) {
	cmd.ResetFlags()
	out, err := run(t, "version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "chan-relay dev+none"))
}

func TestInitConfigWithError_Precedence(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"mediaDir": "from-file", "boards": ["a"], "redisAddr": "file:6379"}`), 0644))
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("CHAN_BOARDS=g,v\nCHAN_REDIS_ADDR=env:6379\n"), 0644))

	cmd.SetConfigFileForTest(cfgPath)
	cmd.SetEnvFileForTest(envPath)
	cmd.SetRedisAddrForTest("flag:6379")

	cfg, err := cmd.InitConfigWithError()

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MediaDir())
	assert.Equal(t, []string{"g", "v"}, cfg.Boards(), "env overrides the file")
	assert.Equal(t, "flag:6379", cfg.RedisAddr(), "flags override env")
}

func TestInitConfigWithError_MissingFiles(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	cmd.SetConfigFileForTest(filepath.Join(t.TempDir(), "nope.json"))
	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)

	cmd.ResetFlags()
	cmd.SetEnvFileForTest(filepath.Join(t.TempDir(), "nope.env"))
	_, err = cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}
