// Package config provides configuration loading from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// DefaultUserID addresses the authenticated user when no id is configured.
const DefaultUserID = "me"

// Integration harness defaults
const (
	DefaultSequentialRequests = 10
	DefaultMaxAvgLatencyMs    = 2000
	DefaultConcurrentWorkers  = 10
	DefaultSourcesPerWorker   = 5
)

// Config holds all configuration for the HealthyDuck tools.
type Config struct {
	BaseURL                 string        // HEALTHYDUCK_BASE_URL, default "http://localhost:3000"
	AccessToken             string        // HEALTHYDUCK_ACCESS_TOKEN, default ""
	UserID                  string        // HEALTHYDUCK_USER_ID, default token "sub" claim, then "me"
	Timezone                string        // HEALTHYDUCK_TIMEZONE, default "" (local time)
	HTTPClientTimeout       time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 30000ms (30s)
	DataSourceCacheMaxItems int           // DATA_SOURCE_CACHE_MAX_ITEMS, default 256
	QueryMaxResults         int           // QUERY_MAX_RESULTS, default 200
	MetricsAddr             string        // METRICS_ADDR, default "" (no metrics endpoint)

	// Integration harness
	SequentialRequests int           // APITEST_SEQUENTIAL_REQUESTS, default 10
	MaxAvgLatency      time.Duration // APITEST_MAX_AVG_LATENCY_MS, default 2000ms
	ConcurrentWorkers  int           // APITEST_CONCURRENT_WORKERS, default 10
	SourcesPerWorker   int           // APITEST_SOURCES_PER_WORKER, default 5

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	cfg := &Config{
		BaseURL:                 getEnvString("HEALTHYDUCK_BASE_URL", "http://localhost:3000"),
		AccessToken:             getEnvString("HEALTHYDUCK_ACCESS_TOKEN", ""),
		UserID:                  getEnvString("HEALTHYDUCK_USER_ID", ""),
		Timezone:                getEnvString("HEALTHYDUCK_TIMEZONE", ""),
		HTTPClientTimeout:       getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 30000),
		DataSourceCacheMaxItems: getEnvInt("DATA_SOURCE_CACHE_MAX_ITEMS", 256),
		QueryMaxResults:         getEnvInt("QUERY_MAX_RESULTS", 200),
		MetricsAddr:             getEnvString("METRICS_ADDR", ""),

		SequentialRequests: getEnvInt("APITEST_SEQUENTIAL_REQUESTS", DefaultSequentialRequests),
		MaxAvgLatency:      getEnvDurationMs("APITEST_MAX_AVG_LATENCY_MS", DefaultMaxAvgLatencyMs),
		ConcurrentWorkers:  getEnvInt("APITEST_CONCURRENT_WORKERS", DefaultConcurrentWorkers),
		SourcesPerWorker:   getEnvInt("APITEST_SOURCES_PER_WORKER", DefaultSourcesPerWorker),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}

	if cfg.UserID == "" {
		cfg.UserID = SubjectFromToken(cfg.AccessToken)
	}
	if cfg.UserID == "" {
		cfg.UserID = DefaultUserID
	}
	return cfg
}

// Location resolves Timezone. An empty Timezone means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SubjectFromToken returns the "sub" claim of a JWT bearer token, or "" when
// the token is not a JWT or has no subject. The signature is not verified;
// the server does that.
func SubjectFromToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// LoadDotEnv loads the first .env file found in dir, its parent or its
// grandparent. Variables already set in the environment win. It returns the
// loaded path, or "" when no file was found.
func LoadDotEnv(dir string) (string, error) {
	parent := filepath.Dir(dir)
	for _, candidate := range []string{
		filepath.Join(dir, ".env"),
		filepath.Join(parent, ".env"),
		filepath.Join(filepath.Dir(parent), ".env"),
	} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return "", fmt.Errorf("loading %s: %w", candidate, err)
		}
		abs, _ := filepath.Abs(candidate)
		return abs, nil
	}
	return "", nil
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
