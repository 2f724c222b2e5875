package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohmanhakim/chan-relay/internal/board"
	"github.com/rohmanhakim/chan-relay/internal/build"
	"github.com/spf13/cobra"
)

var (
	everyInterval time.Duration
	metricsAddr   string
)

// withApp builds the config and the service graph, runs fn and releases
// the app's resources.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a := newApp(ctx, cfg, cmd.ErrOrStderr())
	defer a.Close()
	return fn(ctx, a)
}

func newThreadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads <board>",
		Short: "List the thread ids in a board's catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ids, err := a.service.ThreadIDs(ctx, board.BoardID(args[0]))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			})
		},
	}
}

func newThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <board> <id>",
		Short: "Show the opening post of a thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return &board.InvalidArgumentError{Field: "id", Message: fmt.Sprintf("%q is not a number", args[1])}
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				record, err := a.service.Thread(ctx, board.BoardID(args[0]), board.ThreadID(id))
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), record)
				return nil
			})
		},
	}
}

func newRandomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "random [board]",
		Short: "Show a random thread from a board or from a configured board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var target board.BoardID
				if len(args) == 1 {
					target = board.BoardID(args[0])
				} else {
					picked, ok := a.pickBoard()
					if !ok {
						return errors.New("no board given and none configured")
					}
					target = picked
				}

				summary, record, err := a.service.RandomThread(ctx, target, a.rng)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Thread: /%s/%d\n", summary.Board, summary.ID)
				printRecord(cmd.OutOrStdout(), record)
				return nil
			})
		},
	}
}

func newRefreshCmd() *cobra.Command {
	refreshCmd := &cobra.Command{
		Use:   "refresh [board...]",
		Short: "Re-fetch catalogs into the cache",
		Long: `refresh fetches the catalog of every given board (or every configured
board) and writes it to the cache, ignoring what is cached.

With --every the refresh repeats on that interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				boards := make([]board.BoardID, 0, len(args))
				for _, arg := range args {
					boards = append(boards, board.BoardID(arg))
				}
				if len(boards) == 0 {
					for _, b := range a.cfg.Boards() {
						boards = append(boards, board.BoardID(b))
					}
				}
				if len(boards) == 0 {
					return errors.New("no board given and none configured")
				}

				if !a.sharedCache {
					a.logger.Warn("refresh is not writing to redis; refreshed catalogs are dropped when this process exits",
						slog.Bool("cache_enabled", a.cfg.CacheEnabled()),
					)
				}

				if metricsAddr != "" {
					stop := serveMetrics(a, metricsAddr)
					defer stop()
				}

				if everyInterval <= 0 {
					return refreshAll(ctx, a, cmd.OutOrStdout(), boards)
				}
				return refreshEvery(ctx, a, cmd.OutOrStdout(), boards, everyInterval)
			})
		},
	}
	refreshCmd.Flags().DurationVar(&everyInterval, "every", 0, "repeat the refresh on this interval until interrupted")
	refreshCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g., :9090)")
	return refreshCmd
}

func refreshAll(ctx context.Context, a *app, out io.Writer, boards []board.BoardID) error {
	var errs []error
	for _, b := range boards {
		ids, err := a.service.RefreshCatalog(ctx, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("/%s/: %w", b, err))
			continue
		}
		fmt.Fprintf(out, "/%s/ %d threads\n", b, len(ids))
	}
	return errors.Join(errs...)
}

func refreshEvery(ctx context.Context, a *app, out io.Writer, boards []board.BoardID, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := refreshAll(ctx, a, out, boards); err != nil {
			a.logger.Warn("refresh failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	a.logger.Info("serving metrics", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chan-relay %s (built %s)\n", build.FullVersion(), build.BuildTime)
		},
	}
}

func printRecord(out io.Writer, record board.ThreadRecord) {
	subject := ""
	if record.Subject != nil {
		subject = *record.Subject
	}
	fmt.Fprintf(out, "URL: %s\n", record.URL)
	fmt.Fprintf(out, "Subject: %s\n", subject)
	fmt.Fprintf(out, "Image info: %s\n", record.ImageCaption)
	if record.HasAttachment() {
		fmt.Fprintf(out, "Image URL: %s\n", *record.ImageURL)
		fmt.Fprintf(out, "Image file: %s\n", *record.ImageLocalPath)
	}
	fmt.Fprintln(out, "Text:")
	fmt.Fprintln(out, record.Text)
}
