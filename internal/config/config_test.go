package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModePDP, cfg.Mode)
	assert.Equal(t, "urls.txt", cfg.URLsFile)
	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, 3, cfg.MaxRetriesPerURL)
	assert.Equal(t, "chromium", cfg.Browser.Name)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.EnableStealth)
	assert.Equal(t, "es-MX", cfg.Browser.Locale)
	assert.Equal(t, "America/Mexico_City", cfg.Browser.Timezone)
	assert.Equal(t, 45*time.Second, cfg.NavTimeout())
	assert.Equal(t, 20*time.Second, cfg.SelectorTimeout())
	assert.True(t, cfg.Debug.SaveHTML)
	assert.True(t, cfg.Debug.SaveScreenshot)
	assert.False(t, cfg.Debug.DumpHTML)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "Coppel scraping report", cfg.Email.Subject)
	assert.Equal(t, time.Duration(0), cfg.MaxRuntime())

	min, max := cfg.SleepRange()
	assert.Equal(t, 1500*time.Millisecond, min)
	assert.Equal(t, 3500*time.Millisecond, max)

	assert.Equal(t, filepath.Join("outputs", "debug"), cfg.DebugDir())
	assert.Equal(t, filepath.Join("outputs", "run.log"), cfg.LogPath())

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MODE", " PLP ")
	t.Setenv("PLP_URL", "https://www.coppel.com/salas")
	t.Setenv("HEADLESS", "no")
	t.Setenv("DUMP_HTML", "yes")
	t.Setenv("BROWSER", "Firefox")
	t.Setenv("MAX_RUNTIME_SEC", "600")
	t.Setenv("EMAIL_SENDER", "bot@example.com")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("EMAIL_TO", "team@example.com")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModePLP, cfg.Mode)
	assert.Equal(t, "firefox", cfg.Browser.Name)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Debug.DumpHTML)
	assert.Equal(t, 10*time.Minute, cfg.MaxRuntime())
	assert.Equal(t, "team@example.com", cfg.Email.To)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "scrape:results", cfg.Redis.Stream)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "sitemap" },
			wantErr: "Mode",
		},
		{
			name:    "plp without url",
			mutate:  func(c *Config) { c.Mode = ModePLP; c.PLPURL = "" },
			wantErr: "PLP_URL is required",
		},
		{
			name:    "sleep range inverted",
			mutate:  func(c *Config) { c.MinSleepSec = 5; c.MaxSleepSec = 1 },
			wantErr: "MIN_SLEEP_SEC",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.MaxRetriesPerURL = 0 },
			wantErr: "MaxRetriesPerURL",
		},
		{
			name:    "unsupported browser",
			mutate:  func(c *Config) { c.Browser.Name = "edge" },
			wantErr: "Name",
		},
		{
			name:    "persistent context without dir",
			mutate:  func(c *Config) { c.Browser.PersistentContext = true; c.Browser.PersistentContextDir = "" },
			wantErr: "PERSISTENT_CONTEXT_DIR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "y", "on"} {
		got, err := parseBool(v)
		require.NoError(t, err)
		assert.Equal(t, true, got, v)
	}
	for _, v := range []string{"0", "false", "no", "maybe", ""} {
		got, err := parseBool(v)
		require.NoError(t, err)
		assert.Equal(t, false, got, v)
	}
}
