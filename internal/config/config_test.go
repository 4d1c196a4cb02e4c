package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HEALTHYDUCK_BASE_URL", "HEALTHYDUCK_ACCESS_TOKEN", "HEALTHYDUCK_USER_ID",
		"HEALTHYDUCK_TIMEZONE", "HTTP_CLIENT_TIMEOUT_MS", "APITEST_CONCURRENT_WORKERS",
		"LOG_COMPRESS",
	} {
		t.Setenv(k, "")
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Empty(t, cfg.AccessToken)
	assert.Equal(t, DefaultUserID, cfg.UserID)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 256, cfg.DataSourceCacheMaxItems)
	assert.Equal(t, DefaultSequentialRequests, cfg.SequentialRequests)
	assert.Equal(t, 2*time.Second, cfg.MaxAvgLatency)
	assert.Equal(t, DefaultConcurrentWorkers, cfg.ConcurrentWorkers)
	assert.Equal(t, DefaultSourcesPerWorker, cfg.SourcesPerWorker)
	assert.True(t, cfg.LogCompress)
}

func TestLoad_overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEALTHYDUCK_BASE_URL", "https://duck.example.com")
	t.Setenv("HEALTHYDUCK_USER_ID", "user-7")
	t.Setenv("HTTP_CLIENT_TIMEOUT_MS", "1500")
	t.Setenv("APITEST_CONCURRENT_WORKERS", "not-a-number")
	t.Setenv("LOG_COMPRESS", "off")

	cfg := Load()
	assert.Equal(t, "https://duck.example.com", cfg.BaseURL)
	assert.Equal(t, "user-7", cfg.UserID)
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTPClientTimeout)
	assert.Equal(t, DefaultConcurrentWorkers, cfg.ConcurrentWorkers)
	assert.False(t, cfg.LogCompress)
}

func TestLoad_userIDFromToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEALTHYDUCK_ACCESS_TOKEN", signedToken(t, jwt.MapClaims{"sub": "user-42"}))

	assert.Equal(t, "user-42", Load().UserID)
}

func TestSubjectFromToken(t *testing.T) {
	assert.Equal(t, "abc", SubjectFromToken(" "+signedToken(t, jwt.MapClaims{"sub": "abc"})+" "))
	assert.Empty(t, SubjectFromToken(signedToken(t, jwt.MapClaims{"scope": "read"})))
	assert.Empty(t, SubjectFromToken("test-token"))
	assert.Empty(t, SubjectFromToken("a.b.c"))
	assert.Empty(t, SubjectFromToken(""))
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "HEALTHYDUCK_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })

	root := t.TempDir()
	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", ".env"), []byte(key+"=from-file\n"), 0o600))

	path, err := LoadDotEnv(child)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", ".env"), path)
	assert.Equal(t, "from-file", os.Getenv(key))

	path, err = LoadDotEnv(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}
