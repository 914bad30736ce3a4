package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/config"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"ENV", "LOG_LEVEL", "SHOP_PROFILE", "SHOP_API_BASE_URL", "SHOP_AUTH_SCHEME",
	"SHOP_REQUEST_TIMEOUT", "SHOP_STORE_BACKEND", "SHOP_STORE_PATH", "SHOP_STORE_SEAL_KEY",
	"SHOP_REDIS_ADDR", "SHOP_REDIS_PASSWORD", "SHOP_REDIS_DB",
}

// isolate clears the environment and points the default config file at an empty dir
func isolate(t *testing.T) string {
	t.Helper()
	for _, v := range allVars {
		t.Setenv(v, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "warn", c.GetLogLevel())
	require.Equal(t, "default", c.GetProfile())
	require.Equal(t, "http://localhost:8000", c.GetBaseURL())
	require.Equal(t, "JWT", c.GetAuthScheme())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, credentials.BackendFile, c.GetStoreBackend())
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
api_base_url: https://shop.example.com
auth_scheme: Bearer
request_timeout: 30s
profile: staging
store:
  backend: sqlite
  path: /tmp/shop.db
redis:
  db: 2
`)

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com", c.GetBaseURL())
	require.Equal(t, "Bearer", c.GetAuthScheme())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, "staging", c.GetProfile())
	require.Equal(t, credentials.BackendSQLite, c.GetStoreBackend())
	require.Equal(t, 2, c.GetRedis().DB)

	t.Setenv("SHOP_API_BASE_URL", "https://api.example.com")
	t.Setenv("SHOP_REQUEST_TIMEOUT", "5")
	t.Setenv("SHOP_PROFILE", "prod")

	c, err = config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", c.GetBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, "Bearer", c.GetAuthScheme())

	opts := config.StoreOptions(c)
	require.Equal(t, credentials.BackendSQLite, opts.Backend)
	require.Equal(t, "/tmp/shop.db", opts.Path)
	require.Equal(t, "prod", opts.Profile)
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "shopctl", "config.yaml"), "api_base_url: https://shop.example.com\n")

	c, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com", c.GetBaseURL())
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "base url", env: map[string]string{"SHOP_API_BASE_URL": "not a url"}},
		{name: "backend", env: map[string]string{"SHOP_STORE_BACKEND": "etcd"}},
		{name: "redis without addr", env: map[string]string{"SHOP_STORE_BACKEND": "redis"}},
		{name: "timeout", env: map[string]string{"SHOP_REQUEST_TIMEOUT": "soon"}},
		{name: "negative timeout", env: map[string]string{"SHOP_REQUEST_TIMEOUT": "-1s"}},
		{name: "redis db", env: map[string]string{"SHOP_REDIS_DB": "zero"}},
		{name: "log level", env: map[string]string{"LOG_LEVEL": "loud"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := config.New()
			require.True(t, errors.Is(err, autherrors.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "store: [unterminated\n")

	_, err := config.Load(path)
	require.True(t, errors.Is(err, autherrors.ErrInvalidConfig))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SHOPCTL_TEST_VAR", "")
	require.Equal(t, "fallback", config.GetEnv("SHOPCTL_TEST_VAR", "fallback"))

	t.Setenv("SHOPCTL_TEST_VAR", "set")
	require.Equal(t, "set", config.GetEnv("SHOPCTL_TEST_VAR", "fallback"))
}
