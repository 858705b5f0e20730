package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withConfigDir runs the test from a temporary working directory holding the
// given configs/*.yaml files.
func withConfigDir(t *testing.T, files map[string]string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))

	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", name), []byte(body), 0o600))
	}

	t.Chdir(dir)
}

func TestLoad_Defaults(t *testing.T) {
	withConfigDir(t, nil)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(), "defaults alone must be a runnable configuration")

	assert.Equal(t, "quotebook", cfg.App.Name)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)

	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "./data/quotebook.db", cfg.Storage.Path)

	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, DefaultSyncInterval, cfg.Sync.Interval)
	assert.Equal(t, DefaultSyncMaxItems, cfg.Sync.MaxItems)
	assert.Equal(t, DefaultSyncCategory, cfg.Sync.Category)

	assert.Equal(t, "https://jsonplaceholder.typicode.com", cfg.Services.Quote.BaseURL)
	assert.Equal(t, "/posts", cfg.Services.Quote.ReadPath)
	assert.Equal(t, "/posts", cfg.Services.Quote.WritePath)

	assert.Equal(t, DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, "X-Session-ID", cfg.Session.Header)
	assert.Equal(t, DefaultNotificationTTL, cfg.Notifications.TTL)
	assert.Equal(t, DefaultNotificationCapacity, cfg.Notifications.Capacity)

	assert.Equal(t, DefaultClientRetryMaxAttempts, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, DefaultClientCircuitHalfOpenLimit, cfg.Client.CircuitBreaker.HalfOpenLimit)

	assert.False(t, cfg.Log.File.Enabled)
	assert.Empty(t, cfg.Import.WatchDir)
	assert.Equal(t, int64(DefaultMaxRequestSize), cfg.Import.MaxBytes)
	assert.False(t, cfg.Features["import-deduplicate"])
}

func TestLoad_Precedence(t *testing.T) {
	withConfigDir(t, map[string]string{
		"base.yaml": `
sync:
  interval: 2m
  max_items: 8
storage:
  driver: file
  path: ./data/quotes
`,
		"local.yaml": `
sync:
  max_items: 3
log:
  format: pretty
features:
  import-deduplicate: true
`,
	})
	t.Setenv("APP_STORAGE__DRIVER", "memory")

	cfg, err := Load("local")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval, "base overrides defaults")
	assert.Equal(t, 3, cfg.Sync.MaxItems, "profile overrides base")
	assert.Equal(t, "pretty", cfg.Log.Format)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver, "env overrides every file")
	assert.Equal(t, "./data/quotes", cfg.Storage.Path)
	assert.True(t, cfg.Features["import-deduplicate"])
}

func TestLoad_EnvTypes(t *testing.T) {
	withConfigDir(t, nil)
	t.Setenv("APP_SERVER__PORT", "9090")
	t.Setenv("APP_SYNC__ENABLED", "false")
	t.Setenv("APP_SYNC__INTERVAL", "15s")
	t.Setenv("APP_SERVICES__QUOTE__BASE_URL", "http://quotes.internal:8081")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "http://quotes.internal:8081", cfg.Services.Quote.BaseURL)
}

func TestLoad_MissingProfileIsIgnored(t *testing.T) {
	withConfigDir(t, nil)

	cfg, err := Load("qa")
	require.NoError(t, err)
	assert.Equal(t, "quotebook", cfg.App.Name)
}

func TestLoad_MalformedProfile(t *testing.T) {
	withConfigDir(t, map[string]string{"prod.yaml": "sync: [unclosed"})

	_, err := Load("prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configs/prod.yaml")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "sync.max_items", envKey("APP_SYNC__MAX_ITEMS"))
	assert.Equal(t, "services.quote.base_url", envKey("APP_SERVICES__QUOTE__BASE_URL"))
	assert.Equal(t, "client.circuit_breaker.timeout", envKey("APP_CLIENT__CIRCUIT_BREAKER__TIMEOUT"))
}
