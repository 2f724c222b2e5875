package cmd

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohmanhakim/chan-relay/internal/board"
	"github.com/rohmanhakim/chan-relay/internal/cache"
	"github.com/rohmanhakim/chan-relay/internal/config"
	"github.com/rohmanhakim/chan-relay/internal/extractor"
	"github.com/rohmanhakim/chan-relay/internal/fetcher"
	"github.com/rohmanhakim/chan-relay/internal/media"
	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/limiter"
	"github.com/rohmanhakim/chan-relay/pkg/retry"
	"github.com/rohmanhakim/chan-relay/pkg/timeutil"
)

// app holds everything a command needs for one run.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	service  *board.Service
	rng      *rand.Rand
	closers  []func() error

	// sharedCache is true when cached entries outlive this process.
	sharedCache bool
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) *app {
	logger := metadata.NewLogger(logOut, cfg.LogLevel(), cfg.LogFormat())
	registry := prometheus.NewRegistry()
	sink := metadata.MultiSink{
		metadata.NewRecorder(logger, uuid.NewString()),
		metadata.NewMetricsSink(registry),
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		rng:      rand.New(rand.NewSource(cfg.RandomSeed())),
	}

	boardFetcher := fetcher.NewBoardFetcher(
		sink,
		limiter.NewHostLimiter(cfg.MinRequestInterval()),
		fetcher.NewFetchParam(cfg.BaseURL(), cfg.UserAgent(), cfg.Timeout()),
	)
	threadExtractor := extractor.NewThreadExtractor(sink)
	mediaStore := media.NewLocalStore(
		sink,
		&http.Client{Timeout: cfg.Timeout()},
		media.NewStoreParam(cfg.MediaDir(), cfg.UserAgent(), cfg.MaxMediaSize(), cfg.HashAlgo()),
	)

	retryParam := retry.NewRetryParam(
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)

	a.service = board.NewService(
		sink,
		&boardFetcher,
		&threadExtractor,
		&mediaStore,
		a.newCache(ctx),
		board.NewServiceParam(cfg.CatalogTTL(), cfg.ThreadTTL(), retryParam),
	)
	return a
}

// newCache returns nil when caching is disabled. An unreachable Redis is
// kept: every failed read is served as a miss.
func (a *app) newCache(ctx context.Context) cache.Cache {
	if !a.cfg.CacheEnabled() {
		a.logger.Debug("cache disabled")
		return nil
	}
	if a.cfg.RedisAddr() == "" {
		a.logger.Debug("using in-process cache")
		return cache.NewMemoryCache()
	}

	rc := cache.NewRedisCache(cache.RedisParam{
		Addr:     a.cfg.RedisAddr(),
		Password: a.cfg.RedisPassword(),
		DB:       a.cfg.RedisDB(),
	})
	a.closers = append(a.closers, rc.Close)
	a.sharedCache = true

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		a.logger.Warn("redis unreachable, continuing without cache hits",
			slog.String("addr", a.cfg.RedisAddr()),
			slog.String("error", err.Error()),
		)
	}
	return rc
}

// pickBoard returns a configured board chosen at random.
func (a *app) pickBoard() (board.BoardID, bool) {
	boards := a.cfg.Boards()
	if len(boards) == 0 {
		return "", false
	}
	return board.BoardID(boards[a.rng.Intn(len(boards))]), true
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}
