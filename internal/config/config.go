// Package config loads scout settings from defaults, an optional config
// file, SCOUT_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/logging"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/internal/storage/backends"
	"github.com/FranksOps/scout/pkg/useragent"
	"github.com/spf13/viper"
)

// DefaultQuery targets public marketing profiles in Shanghai.
const DefaultQuery = `site:linkedin.com/in/ "Marketing" AND "Shanghai" AND "Fortune 500"`

const (
	envPrefix = "SCOUT"
	opLoad    = "config.load"
)

// Config is the full set of settings.
type Config struct {
	Search   Search   `mapstructure:"search"`
	Model    Model    `mapstructure:"model"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Server   Server   `mapstructure:"server"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Archive  Archive  `mapstructure:"archive"`
	Log      Log      `mapstructure:"log"`
}

// Search configures the results page fetch and parse.
type Search struct {
	Query             string        `mapstructure:"query"`
	Limit             int           `mapstructure:"limit"`
	BaseURL           string        `mapstructure:"base_url"`
	ContainerSelector string        `mapstructure:"container_selector"`
	LinkSelector      string        `mapstructure:"link_selector"`
	SnippetSelector   string        `mapstructure:"snippet_selector"`
	ProfileMarker     string        `mapstructure:"profile_marker"`
	StrictLayout      bool          `mapstructure:"strict_layout"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	UserAgents        []string      `mapstructure:"user_agents"`
	UARotation        string        `mapstructure:"ua_rotation"`
	Proxies           []string      `mapstructure:"proxies"`
	ProxyFile         string        `mapstructure:"proxy_file"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
}

// Model configures the chat-completion client.
type Model struct {
	APIKey           string        `mapstructure:"api_key"`
	Name             string        `mapstructure:"name"`
	BaseURL          string        `mapstructure:"base_url"`
	ExtractMaxTokens int           `mapstructure:"extract_max_tokens"`
	DraftMaxTokens   int           `mapstructure:"draft_max_tokens"`
	JSONMode         bool          `mapstructure:"json_mode"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type Pipeline struct {
	Concurrency int `mapstructure:"concurrency"`
}

type Server struct {
	Addr   string `mapstructure:"addr"`
	Title  string `mapstructure:"title"`
	Button string `mapstructure:"button"`
}

// Metrics exposes Prometheus metrics on Port; 0 disables the listener.
type Metrics struct {
	Port int `mapstructure:"port"`
}

type Archive struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with every key defaulted and SCOUT_*
// environment variables bound, e.g. SCOUT_MODEL_API_KEY.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("search.query", DefaultQuery)
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.base_url", serp.DefaultBaseURL)
	v.SetDefault("search.container_selector", serp.DefaultContainerSelector)
	v.SetDefault("search.link_selector", serp.DefaultLinkSelector)
	v.SetDefault("search.snippet_selector", serp.DefaultSnippetSelector)
	v.SetDefault("search.profile_marker", serp.DefaultProfileMarker)
	v.SetDefault("search.strict_layout", true)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("search.user_agents", []string{})
	v.SetDefault("search.ua_rotation", string(useragent.Sequential))
	v.SetDefault("search.proxies", []string{})
	v.SetDefault("search.proxy_file", "")
	v.SetDefault("search.respect_robots", false)

	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "gpt-4o")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.extract_max_tokens", 300)
	v.SetDefault("model.draft_max_tokens", 150)
	v.SetDefault("model.json_mode", true)
	v.SetDefault("model.timeout", 60*time.Second)

	v.SetDefault("pipeline.concurrency", 1)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.title", report.DefaultTitle)
	v.SetDefault("server.button", report.DefaultButton)

	v.SetDefault("metrics.port", 0)

	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, unmarshals v and validates the result. An
// empty file searches for scout.yaml (or .toml, .json) in the working
// directory and $HOME/.config/scout; not finding one is fine.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("scout")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "scout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, apperr.New(apperr.KindConfig, opLoad, fmt.Errorf("read config: %w", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.New(apperr.KindConfig, opLoad, fmt.Errorf("decode config: %w", err))
	}

	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that do not depend on which command runs.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if c.Search.Limit < 0 {
		add("search.limit must not be negative, got %d", c.Search.Limit)
	}
	if u, err := url.Parse(c.Search.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("search.base_url %q is not an http(s) URL", c.Search.BaseURL)
	}
	if c.Search.Timeout <= 0 {
		add("search.timeout must be positive")
	}
	if _, err := fingerprint.ParseProfile(c.Search.Fingerprint); err != nil {
		add("search.fingerprint: %v", err)
	}
	if _, err := useragent.ParseRotation(c.Search.UARotation); err != nil {
		add("search.ua_rotation: %v", err)
	}
	if c.Model.ExtractMaxTokens <= 0 || c.Model.DraftMaxTokens <= 0 {
		add("model.extract_max_tokens and model.draft_max_tokens must be positive")
	}
	if c.Model.Timeout <= 0 {
		add("model.timeout must be positive")
	}
	if c.Model.BaseURL != "" {
		if u, err := url.Parse(c.Model.BaseURL); err != nil || u.Host == "" {
			add("model.base_url %q is not a URL", c.Model.BaseURL)
		}
	}
	if c.Pipeline.Concurrency < 1 {
		add("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		add("metrics.port %d out of range", c.Metrics.Port)
	}
	backend := strings.ToLower(strings.TrimSpace(c.Archive.Backend))
	if backend == "" {
		backend = "none"
	}
	if !slices.Contains(backends.Names, backend) {
		add("archive.backend %q is not one of %s", c.Archive.Backend, strings.Join(backends.Names, ", "))
	} else if backend != "none" && c.Archive.DSN == "" {
		add("archive.dsn is required for backend %q", backend)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		add("log.format %q is not text or json", c.Log.Format)
	}

	if len(problems) > 0 {
		return apperr.Newf(apperr.KindConfig, opLoad, "%s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireModel reports a Config error when no API key is available.
func (c *Config) RequireModel() error {
	if strings.TrimSpace(c.Model.APIKey) == "" {
		return apperr.Newf(apperr.KindConfig, opLoad, "model.api_key is not set (use SCOUT_MODEL_API_KEY or OPENAI_API_KEY)")
	}
	return nil
}
