// Package config loads runtime settings from defaults, an optional config
// file, GARDEN_* environment variables and command-line flags, in increasing
// order of precedence. Keys are dotted (http.port); the matching environment
// variable replaces dots with underscores (GARDEN_HTTP_PORT).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "GARDEN"

	defaultPort         = 8080
	defaultDatabasePath = "data/garden.db"
	defaultTokenTTL     = time.Hour
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"

	minSecretLength = 16
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	Port         int
	DatabasePath string

	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookies bool

	// GitHub sign-in is enabled only when both client fields are set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string

	// CatalogPath overrides the built-in plant catalog when set.
	CatalogPath string

	// StaticDir is served at / when set.
	StaticDir string
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c AppConfig) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", defaultPort)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("auth.token_ttl", defaultTokenTTL)
	v.SetDefault("auth.secure_cookies", false)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("cors.allowed_origins", []string{})

	// Empty defaults keep every key listed in AllKeys.
	for _, key := range []string{
		"auth.jwt_secret",
		"github.client_id",
		"github.client_secret",
		"github.callback_url",
		"catalog.path",
		"static.dir",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Port:               v.GetInt("http.port"),
		DatabasePath:       strings.TrimSpace(v.GetString("database.path")),
		JWTSecret:          v.GetString("auth.jwt_secret"),
		TokenTTL:           v.GetDuration("auth.token_ttl"),
		SecureCookies:      v.GetBool("auth.secure_cookies"),
		GitHubClientID:     strings.TrimSpace(v.GetString("github.client_id")),
		GitHubClientSecret: v.GetString("github.client_secret"),
		GitHubCallbackURL:  strings.TrimSpace(v.GetString("github.callback_url")),
		LogLevel:           strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
		LogFormat:          strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		CORSAllowedOrigins: splitList(v.GetStringSlice("cors.allowed_origins")),
		CatalogPath:        strings.TrimSpace(v.GetString("catalog.path")),
		StaticDir:          strings.TrimSpace(v.GetString("static.dir")),
	}

	if cfg.GitHubEnabled() && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("auth.jwt_secret is required and must be at least %d characters", minSecretLength)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.TokenTTL)
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return fmt.Errorf("github.client_id and github.client_secret must be set together")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// splitList accepts both a real list and a single comma-separated value, the
// form an environment variable arrives in.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
