package config

import (
	"encoding/hex"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	baseURLVar     = "BIOVERIFY_BASE_URL"
	tokenFileVar   = "BIOVERIFY_TOKEN_FILE"
	tokenKeyVar    = "BIOVERIFY_TOKEN_KEY"
	redisAddrVar   = "BIOVERIFY_REDIS_ADDR"
	httpTimeoutVar = "BIOVERIFY_HTTP_TIMEOUT"
)

// Env reads client configuration from environment variables.
type Env struct{}

// GetBaseURL returns the backend base URL.
func (Env) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetTokenFile returns the path of the durable token file.
func (Env) GetTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return GetEnv(tokenFileVar, home+"/.bioverify/tokens")
}

// GetTokenKey returns the at-rest encryption key for the token file, decoded
// from hex. Empty means the file is stored in plaintext.
func (Env) GetTokenKey() ([]byte, error) {
	raw := GetEnv(tokenKeyVar, "")
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "[GetTokenKey] hex decode")
	}
	return key, nil
}

// GetRedisAddr returns the Redis address for a shared token store. Empty
// selects the file store.
func (Env) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

// GetHTTPTimeout returns the request-level timeout. A refresh call that
// exceeds it fails the refresh cycle.
func (Env) GetHTTPTimeout() time.Duration {
	raw := GetEnv(httpTimeoutVar, "30s")
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
