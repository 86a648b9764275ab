package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "visittrace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "127.0.0.1:8123", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Reporter.Timeout)
	assert.Equal(t, "static", cfg.Identity.Provider)
	assert.Equal(t, DefaultTrackedDomains, cfg.Tracking.Domains)
	assert.Equal(t, DefaultAuthCookiePatterns, cfg.Tracking.AuthCookiePatterns)
	assert.Equal(t, []string{"false", "no", "n"}, cfg.Tracking.FalsyValues)
	assert.Equal(t, []string{"false", "undefined", "null", "unspecified"}, cfg.Tracking.FalsySubstrings)
	assert.Equal(t, "day_of_month", cfg.Dedup.DayComparison)
	assert.Zero(t, cfg.Dedup.MaxAge)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
collector:
  url: https://collector.example.com/visits
identity:
  user_id: "42"
  user_email: jane@example.com
tracking:
  domains: [example.com, example.co.uk]
  auth_cookie_patterns: ["^auth", "session"]
dedup:
  day_comparison: calendar_date
  max_age: 24h
  prune_interval: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IsDev())
	assert.Equal(t, "https://collector.example.com/visits", cfg.Collector.URL)
	assert.Equal(t, "42", cfg.Identity.UserID)
	assert.Equal(t, "jane@example.com", cfg.Identity.UserEmail)
	assert.Equal(t, []string{"example.com", "example.co.uk"}, cfg.Tracking.Domains)
	assert.Equal(t, []string{"^auth", "session"}, cfg.Tracking.AuthCookiePatterns)
	assert.Equal(t, "calendar_date", cfg.Dedup.DayComparison)
	assert.Equal(t, 24*time.Hour, cfg.Dedup.MaxAge)
	assert.Equal(t, 30*time.Minute, cfg.Dedup.PruneInterval)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  address: 127.0.0.1:9000\n")
	t.Setenv("VISITTRACE_SERVER_ADDRESS", "127.0.0.1:9999")
	t.Setenv("VISITTRACE_IDENTITY_USER_EMAIL", "env@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Address)
	assert.Equal(t, "env@example.com", cfg.Identity.UserEmail)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Collector: CollectorSettings{URL: "http://localhost/visits"},
			Reporter:  ReporterSettings{Timeout: 10 * time.Second},
			Identity:  IdentitySettings{Provider: "static"},
			Dedup:     DedupSettings{DayComparison: "day_of_month"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*AppConfig)
		wantError bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"oidc provider", func(c *AppConfig) { c.Identity.Provider = "oidc" }, false},
		{"unknown provider", func(c *AppConfig) { c.Identity.Provider = "ldap" }, true},
		{"unknown comparison", func(c *AppConfig) { c.Dedup.DayComparison = "week" }, true},
		{"missing collector", func(c *AppConfig) { c.Collector.URL = "" }, true},
		{"zero reporter timeout", func(c *AppConfig) { c.Reporter.Timeout = 0 }, true},
		{"long reporter timeout", func(c *AppConfig) { c.Reporter.Timeout = 2 * time.Minute }, false},
		{"max age without interval", func(c *AppConfig) { c.Dedup.MaxAge = time.Hour }, true},
		{"max age with interval", func(c *AppConfig) {
			c.Dedup.MaxAge = time.Hour
			c.Dedup.PruneInterval = time.Minute
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
