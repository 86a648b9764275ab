package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Server    ServerSettings    `mapstructure:"server"`
	Database  DatabaseSettings  `mapstructure:"database"`
	Collector CollectorSettings `mapstructure:"collector"`
	Reporter  ReporterSettings  `mapstructure:"reporter"`
	Identity  IdentitySettings  `mapstructure:"identity"`
	Tracking  TrackingSettings  `mapstructure:"tracking"`
	Dedup     DedupSettings     `mapstructure:"dedup"`
}

type AppSettings struct {
	Env string `mapstructure:"env"`
}

type ServerSettings struct {
	Address string `mapstructure:"address"`
}

// DatabaseSettings points at the SQLite cookie mirror.
type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

type CollectorSettings struct {
	URL string `mapstructure:"url"`
}

type ReporterSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// IdentitySettings selects where the user identity comes from at startup.
type IdentitySettings struct {
	Provider  string       `mapstructure:"provider"` // static|oidc
	UserID    string       `mapstructure:"user_id"`
	UserEmail string       `mapstructure:"user_email"`
	OIDC      OIDCSettings `mapstructure:"oidc"`
}

type OIDCSettings struct {
	Issuer      string `mapstructure:"issuer"`
	AccessToken string `mapstructure:"access_token"`
}

// TrackingSettings holds the static lists. They are used verbatim.
type TrackingSettings struct {
	Domains            []string `mapstructure:"domains"`
	AuthCookiePatterns []string `mapstructure:"auth_cookie_patterns"`
	FalsyValues        []string `mapstructure:"falsy_values"`
	FalsySubstrings    []string `mapstructure:"falsy_substrings"`
}

type DedupSettings struct {
	DayComparison string        `mapstructure:"day_comparison"` // day_of_month|calendar_date
	MaxAge        time.Duration `mapstructure:"max_age"`        // 0 disables pruning
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// Load reads configuration from defaults, the optional YAML file at path and
// VISITTRACE_* environment variables, in increasing order of precedence.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("VISITTRACE")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the agent cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Identity.Provider {
	case "static", "oidc":
	default:
		return fmt.Errorf("unknown identity provider %q", c.Identity.Provider)
	}
	switch c.Dedup.DayComparison {
	case "day_of_month", "calendar_date":
	default:
		return fmt.Errorf("unknown dedup day comparison %q", c.Dedup.DayComparison)
	}
	if c.Collector.URL == "" {
		return fmt.Errorf("collector url is required")
	}
	if c.Reporter.Timeout <= 0 {
		return fmt.Errorf("reporter timeout must be positive")
	}
	if c.Dedup.MaxAge > 0 && c.Dedup.PruneInterval <= 0 {
		return fmt.Errorf("dedup prune interval must be positive when max age is set")
	}
	return nil
}

// IsDev returns true if the environment is set to development.
func (c *AppConfig) IsDev() bool {
	return c.App.Env == "development" || c.App.Env == "dev"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("server.address", "127.0.0.1:8123")
	v.SetDefault("database.path", filepath.Join(DefaultDataDir(), "cookies.db"))

	v.SetDefault("collector.url", "http://localhost:3000/api/visits")
	v.SetDefault("reporter.timeout", "10s")

	v.SetDefault("identity.provider", "static")
	v.SetDefault("identity.user_id", "")
	v.SetDefault("identity.user_email", "")
	v.SetDefault("identity.oidc.issuer", "")
	v.SetDefault("identity.oidc.access_token", "")

	v.SetDefault("tracking.domains", DefaultTrackedDomains)
	v.SetDefault("tracking.auth_cookie_patterns", DefaultAuthCookiePatterns)
	v.SetDefault("tracking.falsy_values", []string{"false", "no", "n"})
	v.SetDefault("tracking.falsy_substrings", []string{"false", "undefined", "null", "unspecified"})

	v.SetDefault("dedup.day_comparison", "day_of_month")
	v.SetDefault("dedup.max_age", "0s")
	v.SetDefault("dedup.prune_interval", "1h")
}

// DefaultDataDir is the platform-specific application data directory.
func DefaultDataDir() string {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "VisitTrace")
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "VisitTrace")
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "VisitTrace")
	}
}
