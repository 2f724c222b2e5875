package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvRedisAddr     = "CHAN_REDIS_ADDR"
	EnvRedisPassword = "CHAN_REDIS_PASSWORD"
	EnvMediaDir      = "CHAN_MEDIA_DIR"
	EnvBoards        = "CHAN_BOARDS"
)

// ReadEnv collects the CHAN_* variables from an optional .env file and the
// process environment. Process variables win over the file. An empty path
// skips the file; a missing file is only an error when explicitly named.
func ReadEnv(path string, required bool) (map[string]string, error) {
	vars := map[string]string{}
	if path != "" {
		fileVars, err := godotenv.Read(path)
		switch {
		case err == nil:
			for k, v := range fileVars {
				vars[k] = v
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
		default:
			return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	}
	for _, key := range []string{EnvRedisAddr, EnvRedisPassword, EnvMediaDir, EnvBoards} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}
	return vars, nil
}

// ApplyEnv overrides fields with the non-empty values in vars.
func (c *Config) ApplyEnv(vars map[string]string) *Config {
	if v := vars[EnvRedisAddr]; v != "" {
		c.redisAddr = v
	}
	if v := vars[EnvRedisPassword]; v != "" {
		c.redisPassword = v
	}
	if v := vars[EnvMediaDir]; v != "" {
		c.mediaDir = v
	}
	if v := vars[EnvBoards]; v != "" {
		var boards []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				boards = append(boards, b)
			}
		}
		if len(boards) > 0 {
			c.boards = boards
		}
	}
	return c
}
