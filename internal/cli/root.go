package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/chan-relay/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	envFile   string
	baseURL   string
	mediaDir  string
	redisAddr string
	noCache   bool
	userAgent string
	timeout   time.Duration
	logLevel  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chan-relay",
	Short: "Read imageboard catalogs and threads as plain records.",
	Long: `chan-relay fetches a board's catalog and threads, turns the opening post
into a plain record (subject, text, attachment caption) and keeps the
attachment on local disk.

Results are cached in Redis or in memory so repeated lookups do not hit
the board again until the entry expires.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with CHAN_* overrides (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "board site root (e.g., https://boards.4chan.org)")
	rootCmd.PersistentFlags().StringVar(&mediaDir, "media-dir", "", "directory for downloaded attachments")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "redis address; empty uses an in-process cache")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "always go to the board, never read or write the cache")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(newThreadsCmd())
	rootCmd.AddCommand(newThreadCmd())
	rootCmd.AddCommand(newRandomCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// Run executes the command line in args, writing results to out and logs
// and diagnostics to errOut.
func Run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd.ExecuteContext(ctx)
}

// InitConfigWithError layers the config file (or defaults), the dotenv and
// process environment, then the command line flags.
func InitConfigWithError() (config.Config, error) {
	var configBuilder *config.Config
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &cfg
	} else {
		configBuilder = config.WithDefault()
	}

	path, required := envFile, true
	if path == "" {
		path, required = ".env", false
	}
	vars, err := config.ReadEnv(path, required)
	if err != nil {
		return config.Config{}, fmt.Errorf("error reading environment: %w", err)
	}
	configBuilder = configBuilder.ApplyEnv(vars)

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: base-url: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithBaseURL(*u)
	}
	if mediaDir != "" {
		configBuilder = configBuilder.WithMediaDir(mediaDir)
	}
	if redisAddr != "" {
		configBuilder = configBuilder.WithRedisAddr(redisAddr)
	}
	if noCache {
		configBuilder = configBuilder.WithCacheEnabled(false)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	envFile = ""
	baseURL = ""
	mediaDir = ""
	redisAddr = ""
	noCache = false
	userAgent = ""
	timeout = 0
	logLevel = ""
	everyInterval = 0
	metricsAddr = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetEnvFileForTest(path string) {
	envFile = path
}

func SetBaseURLForTest(u string) {
	baseURL = u
}

func SetMediaDirForTest(dir string) {
	mediaDir = dir
}

func SetRedisAddrForTest(addr string) {
	redisAddr = addr
}

func SetNoCacheForTest(disabled bool) {
	noCache = disabled
}
