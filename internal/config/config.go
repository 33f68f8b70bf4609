// Package config loads and validates the dashboard's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validAuthModes  = []string{"token", "app", "oauth"}
	validBackends   = []string{"memory", "redis"}
	validRedisModes = []string{"standalone", "sentinel"}
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig
	GitHub    GitHubConfig
	OAuth     OAuthConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	Health    HealthConfig
	Telemetry TelemetryConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// GitHubConfig configures GitHub API access.
type GitHubConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	AuthMode       string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	MaxPages       int
}

// OAuthConfig configures the GitHub OAuth login flow.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
}

// FetchConfig tunes the fetch pipeline.
type FetchConfig struct {
	GroupSize       int
	TeamWindow      time.Duration
	RepoWindow      time.Duration
	ReviewPullLimit int
	TeamRepoLimit   int
}

// CacheConfig configures the response cache backend.
type CacheConfig struct {
	Backend            string
	Namespace          string
	Freshness          time.Duration
	RedisMode          string
	RedisAddr          string
	RedisMasterSet     string
	RedisSentinelAddrs []string
	RedisPassword      string
	RedisDB            int
}

// HealthConfig configures health probe behavior.
type HealthConfig struct {
	GitHubProbeInterval           time.Duration
	GitHubRecoverSuccessThreshold int
}

// TelemetryConfig configures OpenTelemetry behavior.
type TelemetryConfig struct {
	OTELEnabled          bool
	OTELTraceMode        string
	OTELTraceSampleRatio float64
}

// Load reads configuration from YAML and validates the result.
func Load(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("config reader is nil")
	}

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	var raw rawConfig
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg := raw.toConfig()
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates configuration values.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(validLogLevels, c.Server.LogLevel) {
		errs = append(errs, "server.log_level must be one of debug|info|warn|error")
	}

	if !slices.Contains(validAuthModes, c.GitHub.AuthMode) {
		errs = append(errs, "github.auth_mode must be one of token|app|oauth")
	}
	switch c.GitHub.AuthMode {
	case "token":
		if strings.TrimSpace(c.GitHub.Token) == "" {
			errs = append(errs, "github.token is required when github.auth_mode=token")
		}
	case "app":
		if c.GitHub.AppID <= 0 {
			errs = append(errs, "github.app_id must be > 0 when github.auth_mode=app")
		}
		if c.GitHub.InstallationID <= 0 {
			errs = append(errs, "github.installation_id must be > 0 when github.auth_mode=app")
		}
		if strings.TrimSpace(c.GitHub.PrivateKeyPath) == "" {
			errs = append(errs, "github.private_key_path is required when github.auth_mode=app")
		}
	case "oauth":
		if strings.TrimSpace(c.OAuth.ClientID) == "" {
			errs = append(errs, "oauth.client_id is required when github.auth_mode=oauth")
		}
		if strings.TrimSpace(c.OAuth.ClientSecret) == "" {
			errs = append(errs, "oauth.client_secret is required when github.auth_mode=oauth")
		}
		if strings.TrimSpace(c.OAuth.RedirectURL) == "" {
			errs = append(errs, "oauth.redirect_url is required when github.auth_mode=oauth")
		}
	}
	if c.GitHub.MaxPages < 0 {
		errs = append(errs, "github.max_pages must be >= 0")
	}

	if c.Fetch.GroupSize < 0 {
		errs = append(errs, "fetch.group_size must be >= 0")
	}

	if !slices.Contains(validBackends, c.Cache.Backend) {
		errs = append(errs, "cache.backend must be memory or redis")
	}
	if c.Cache.Backend == "redis" {
		if !slices.Contains(validRedisModes, c.Cache.RedisMode) {
			errs = append(errs, "cache.redis_mode must be standalone or sentinel")
		}
		if c.Cache.RedisMode == "standalone" && strings.TrimSpace(c.Cache.RedisAddr) == "" {
			errs = append(errs, "cache.redis_addr is required when cache.redis_mode=standalone")
		}
		if c.Cache.RedisMode == "sentinel" && len(c.Cache.RedisSentinelAddrs) == 0 {
			errs = append(errs, "cache.redis_sentinel_addrs is required when cache.redis_mode=sentinel")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.GitHub.AuthMode == "" {
		cfg.GitHub.AuthMode = "oauth"
	}
	if cfg.OAuth.AuthURL == "" {
		cfg.OAuth.AuthURL = "https://github.com/login/oauth/authorize"
	}
	if cfg.OAuth.TokenURL == "" {
		cfg.OAuth.TokenURL = "https://github.com/login/oauth/access_token"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.RedisMode == "" {
		cfg.Cache.RedisMode = "standalone"
	}
	if cfg.Cache.Namespace == "" {
		cfg.Cache.Namespace = "gitpulse"
	}
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind == 0 || strings.TrimSpace(value.Value) == "" {
		d.Duration = 0
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}

	parsed, err := parseFlexibleDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func parseFlexibleDuration(raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	if standard, err := time.ParseDuration(trimmed); err == nil {
		return standard, nil
	}

	if strings.HasSuffix(trimmed, "d") {
		return parseDurationWithMultiplier(strings.TrimSuffix(trimmed, "d"), 24)
	}
	if strings.HasSuffix(trimmed, "w") {
		return parseDurationWithMultiplier(strings.TrimSuffix(trimmed, "w"), 24*7)
	}

	return 0, fmt.Errorf("parse duration %q: invalid unit", raw)
}

func parseDurationWithMultiplier(numeric string, multiplierHours float64) (time.Duration, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(numeric), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration value %q: %w", numeric, err)
	}

	nanos := value * multiplierHours * float64(time.Hour)
	if nanos > math.MaxInt64 || nanos < math.MinInt64 {
		return 0, fmt.Errorf("parse duration value %q: out of range", numeric)
	}
	return time.Duration(nanos), nil
}

type rawConfig struct {
	Server    ServerConfig `yaml:"server"`
	GitHub    rawGitHub    `yaml:"github"`
	OAuth     OAuthConfig  `yaml:"oauth"`
	Fetch     rawFetch     `yaml:"fetch"`
	Cache     rawCache     `yaml:"cache"`
	Health    rawHealth    `yaml:"health"`
	Telemetry rawTelemetry `yaml:"telemetry"`
}

type rawGitHub struct {
	APIBaseURL     string   `yaml:"api_base_url"`
	RequestTimeout duration `yaml:"request_timeout"`
	AuthMode       string   `yaml:"auth_mode"`
	Token          string   `yaml:"token"`
	AppID          int64    `yaml:"app_id"`
	InstallationID int64    `yaml:"installation_id"`
	PrivateKeyPath string   `yaml:"private_key_path"`
	MaxPages       int      `yaml:"max_pages"`
}

type rawFetch struct {
	GroupSize       int      `yaml:"group_size"`
	TeamWindow      duration `yaml:"team_window"`
	RepoWindow      duration `yaml:"repo_window"`
	ReviewPullLimit int      `yaml:"review_pull_limit"`
	TeamRepoLimit   int      `yaml:"team_repo_limit"`
}

type rawCache struct {
	Backend            string   `yaml:"backend"`
	Namespace          string   `yaml:"namespace"`
	Freshness          duration `yaml:"freshness"`
	RedisMode          string   `yaml:"redis_mode"`
	RedisAddr          string   `yaml:"redis_addr"`
	RedisMasterSet     string   `yaml:"redis_master_set"`
	RedisSentinelAddrs []string `yaml:"redis_sentinel_addrs"`
	RedisPassword      string   `yaml:"redis_password"`
	RedisDB            int      `yaml:"redis_db"`
}

type rawHealth struct {
	GitHubProbeInterval           duration `yaml:"github_probe_interval"`
	GitHubRecoverSuccessThreshold int      `yaml:"github_recover_success_threshold"`
}

type rawTelemetry struct {
	OTELEnabled          bool    `yaml:"otel_enabled"`
	OTELTraceMode        string  `yaml:"otel_trace_mode"`
	OTELTraceSampleRatio float64 `yaml:"otel_trace_sample_ratio"`
}

func (r rawConfig) toConfig() *Config {
	return &Config{
		Server: r.Server,
		GitHub: GitHubConfig{
			APIBaseURL:     r.GitHub.APIBaseURL,
			RequestTimeout: r.GitHub.RequestTimeout.Duration,
			AuthMode:       r.GitHub.AuthMode,
			Token:          r.GitHub.Token,
			AppID:          r.GitHub.AppID,
			InstallationID: r.GitHub.InstallationID,
			PrivateKeyPath: r.GitHub.PrivateKeyPath,
			MaxPages:       r.GitHub.MaxPages,
		},
		OAuth: r.OAuth,
		Fetch: FetchConfig{
			GroupSize:       r.Fetch.GroupSize,
			TeamWindow:      r.Fetch.TeamWindow.Duration,
			RepoWindow:      r.Fetch.RepoWindow.Duration,
			ReviewPullLimit: r.Fetch.ReviewPullLimit,
			TeamRepoLimit:   r.Fetch.TeamRepoLimit,
		},
		Cache: CacheConfig{
			Backend:            r.Cache.Backend,
			Namespace:          r.Cache.Namespace,
			Freshness:          r.Cache.Freshness.Duration,
			RedisMode:          r.Cache.RedisMode,
			RedisAddr:          r.Cache.RedisAddr,
			RedisMasterSet:     r.Cache.RedisMasterSet,
			RedisSentinelAddrs: r.Cache.RedisSentinelAddrs,
			RedisPassword:      r.Cache.RedisPassword,
			RedisDB:            r.Cache.RedisDB,
		},
		Health: HealthConfig{
			GitHubProbeInterval:           r.Health.GitHubProbeInterval.Duration,
			GitHubRecoverSuccessThreshold: r.Health.GitHubRecoverSuccessThreshold,
		},
		Telemetry: TelemetryConfig{
			OTELEnabled:          r.Telemetry.OTELEnabled,
			OTELTraceMode:        r.Telemetry.OTELTraceMode,
			OTELTraceSampleRatio: r.Telemetry.OTELTraceSampleRatio,
		},
	}
}
