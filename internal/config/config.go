package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/chan-relay/pkg/hashutil"
)

type Config struct {
	//===============
	// Upstream
	//===============
	// Root of the board site; catalog and thread paths are appended to it
	baseURL url.URL
	// Boards used when a command is not given one explicitly
	boards []string
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Maximum time of a single request
	timeout time.Duration
	// Minimum, fixed waiting time enforced between two HTTP requests to the same host.
	// Zero disables spacing.
	minRequestInterval time.Duration

	//===============
	// Retry
	//===============
	// maximum attempt per fetch; 1 means no retry
	maxAttempt int
	// Randomized variation added on top of each backoff delay
	jitter time.Duration
	// Controls the random number generator for jitter and random thread picks
	randomSeed int64
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Media
	//===============
	// Directory holding downloaded attachments
	mediaDir string
	// Largest attachment that will be downloaded, in bytes
	maxMediaSize int64
	// Digest recorded for every newly written attachment
	hashAlgo hashutil.HashAlgo

	//===============
	// Cache
	//===============
	// When false every request goes straight to the board
	cacheEnabled bool
	// Redis address; empty means an in-process cache
	redisAddr     string
	redisPassword string
	redisDB       int
	// Lifetime of a cached catalog
	catalogTTL time.Duration
	// Lifetime of a cached thread record
	threadTTL time.Duration

	//===============
	// Logging
	//===============
	logLevel  string
	logFormat string
}

type configDTO struct {
	BaseURL                string        `json:"baseUrl,omitempty"`
	Boards                 []string      `json:"boards,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	MinRequestInterval     time.Duration `json:"minRequestInterval,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	MediaDir               string        `json:"mediaDir,omitempty"`
	MaxMediaSize           int64         `json:"maxMediaSize,omitempty"`
	HashAlgo               string        `json:"hashAlgo,omitempty"`
	// pointer so an explicit false can be told apart from an absent field
	CacheEnabled  *bool         `json:"cacheEnabled,omitempty"`
	RedisAddr     string        `json:"redisAddr,omitempty"`
	RedisPassword string        `json:"redisPassword,omitempty"`
	RedisDB       int           `json:"redisDb,omitempty"`
	CatalogTTL    time.Duration `json:"catalogTtl,omitempty"`
	ThreadTTL     time.Duration `json:"threadTtl,omitempty"`
	LogLevel      string        `json:"logLevel,omitempty"`
	LogFormat     string        `json:"logFormat,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	if dto.BaseURL != "" {
		u, err := url.Parse(dto.BaseURL)
		if err != nil {
			return Config{}, fmt.Errorf("%w: baseUrl: %s", ErrInvalidConfig, err.Error())
		}
		cfg.baseURL = *u
	}
	if len(dto.Boards) > 0 {
		cfg.boards = dto.Boards
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	// zero is meaningful (no spacing), so always taken from the file
	cfg.minRequestInterval = dto.MinRequestInterval
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.MediaDir != "" {
		cfg.mediaDir = dto.MediaDir
	}
	if dto.MaxMediaSize != 0 {
		cfg.maxMediaSize = dto.MaxMediaSize
	}
	if dto.HashAlgo != "" {
		cfg.hashAlgo = hashutil.HashAlgo(dto.HashAlgo)
	}
	if dto.CacheEnabled != nil {
		cfg.cacheEnabled = *dto.CacheEnabled
	}
	if dto.RedisAddr != "" {
		cfg.redisAddr = dto.RedisAddr
	}
	if dto.RedisPassword != "" {
		cfg.redisPassword = dto.RedisPassword
	}
	if dto.RedisDB != 0 {
		cfg.redisDB = dto.RedisDB
	}
	if dto.CatalogTTL != 0 {
		cfg.catalogTTL = dto.CatalogTTL
	}
	if dto.ThreadTTL != 0 {
		cfg.threadTTL = dto.ThreadTTL
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON config file on top of the defaults.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		baseURL:                url.URL{Scheme: "https", Host: "boards.4chan.org"},
		boards:                 []string{"b"},
		userAgent:              "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
		timeout:                15 * time.Second,
		minRequestInterval:     time.Second,
		maxAttempt:             1,
		jitter:                 200 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		backoffInitialDuration: 500 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		mediaDir:               "tmp",
		maxMediaSize:           16 << 20,
		hashAlgo:               hashutil.HashAlgoBLAKE3,
		cacheEnabled:           true,
		redisAddr:              "",
		redisDB:                0,
		catalogTTL:             60 * time.Second,
		threadTTL:              3600 * time.Second,
		logLevel:               "info",
		logFormat:              "text",
	}
	return &defaultConfig
}

func (c *Config) WithBaseURL(u url.URL) *Config {
	c.baseURL = u
	return c
}

func (c *Config) WithBoards(boards []string) *Config {
	c.boards = boards
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithMinRequestInterval(interval time.Duration) *Config {
	c.minRequestInterval = interval
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithMediaDir(dir string) *Config {
	c.mediaDir = dir
	return c
}

func (c *Config) WithMaxMediaSize(size int64) *Config {
	c.maxMediaSize = size
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithCacheEnabled(enabled bool) *Config {
	c.cacheEnabled = enabled
	return c
}

func (c *Config) WithRedis(addr string, password string, db int) *Config {
	c.redisAddr = addr
	c.redisPassword = password
	c.redisDB = db
	return c
}

func (c *Config) WithRedisAddr(addr string) *Config {
	c.redisAddr = addr
	return c
}

func (c *Config) WithCatalogTTL(ttl time.Duration) *Config {
	c.catalogTTL = ttl
	return c
}

func (c *Config) WithThreadTTL(ttl time.Duration) *Config {
	c.threadTTL = ttl
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if c.baseURL.Scheme != "http" && c.baseURL.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: baseUrl must be http or https, got %q", ErrInvalidConfig, c.baseURL.String())
	}
	if c.baseURL.Host == "" {
		return Config{}, fmt.Errorf("%w: baseUrl has no host", ErrInvalidConfig)
	}
	for _, b := range c.boards {
		if strings.TrimSpace(b) == "" {
			return Config{}, fmt.Errorf("%w: boards cannot contain empty names", ErrInvalidConfig)
		}
	}
	if c.mediaDir == "" {
		return Config{}, fmt.Errorf("%w: mediaDir cannot be empty", ErrInvalidConfig)
	}
	if c.maxMediaSize <= 0 {
		return Config{}, fmt.Errorf("%w: maxMediaSize must be positive", ErrInvalidConfig)
	}
	if !c.hashAlgo.Valid() {
		return Config{}, fmt.Errorf("%w: unsupported hashAlgo %q", ErrInvalidConfig, c.hashAlgo)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.minRequestInterval < 0 {
		return Config{}, fmt.Errorf("%w: minRequestInterval cannot be negative", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be at least 1", ErrInvalidConfig)
	}
	if c.catalogTTL <= 0 || c.threadTTL <= 0 {
		return Config{}, fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	if c.redisDB < 0 {
		return Config{}, fmt.Errorf("%w: redisDb cannot be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.logLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return Config{}, fmt.Errorf("%w: unknown logLevel %q", ErrInvalidConfig, c.logLevel)
	}
	switch strings.ToLower(c.logFormat) {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("%w: unknown logFormat %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) BaseURL() url.URL {
	return c.baseURL
}

func (c Config) Boards() []string {
	boards := make([]string, len(c.boards))
	copy(boards, c.boards)
	return boards
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) MinRequestInterval() time.Duration {
	return c.minRequestInterval
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) MediaDir() string {
	return c.mediaDir
}

func (c Config) MaxMediaSize() int64 {
	return c.maxMediaSize
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) CacheEnabled() bool {
	return c.cacheEnabled
}

func (c Config) RedisAddr() string {
	return c.redisAddr
}

func (c Config) RedisPassword() string {
	return c.redisPassword
}

func (c Config) RedisDB() int {
	return c.redisDB
}

func (c Config) CatalogTTL() time.Duration {
	return c.catalogTTL
}

func (c Config) ThreadTTL() time.Duration {
	return c.threadTTL
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
