// Package config loads and validates run configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/markercheck/internal/checker"
	"github.com/JakeFAU/markercheck/internal/policy/ratelimit"
)

// EnvPrefix is prepended to every environment override, e.g.
// MARKERCHECK_CRAWLER_CONCURRENCY=4.
const EnvPrefix = "MARKERCHECK"

// DefaultUserAgent identifies the checker to target servers.
const DefaultUserAgent = "check-text/1.0 (+contacto@tusitio.com)"

// ErrMissingRequired marks a configuration that lacks a mandatory value.
var ErrMissingRequired = errors.New("missing required configuration")

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Target   TargetConfig   `mapstructure:"target"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Output   OutputConfig   `mapstructure:"output"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InputConfig locates the identifier list.
type InputConfig struct {
	File   string `mapstructure:"file"`
	Column string `mapstructure:"column"`
	Sheet  string `mapstructure:"sheet"`
}

// TargetConfig describes the page being checked.
type TargetConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Join       string `mapstructure:"join"`
	Marker     string `mapstructure:"marker"`
	MatchLabel string `mapstructure:"match_label"`
	UserAgent  string `mapstructure:"user_agent"`
}

// CrawlerConfig governs pacing, retries and concurrency.
type CrawlerConfig struct {
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"rps"`
	MinJitterMs       int     `mapstructure:"min_jitter_ms"`
	RateMode          string  `mapstructure:"rate_mode"`
	MaxRetries        int     `mapstructure:"max_retries"`
	BackoffBaseMs     int     `mapstructure:"backoff_base_ms"`
	TimeoutMs         int     `mapstructure:"timeout_ms"`
	ProgressEvery     int     `mapstructure:"progress_every"`
}

// OutputConfig sets where results are written.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// ExtractConfig selects the fragment extraction strategy.
type ExtractConfig struct {
	Mode      string `mapstructure:"mode"`
	Tag       string `mapstructure:"tag"`
	Attribute string `mapstructure:"attribute"`
	Selector  string `mapstructure:"selector"`
}

// PostgresConfig enables the optional result mirror.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// GCSConfig enables the optional upload of the finished file.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// ServerConfig enables the optional status server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"file":           "input.file",
	"col":            "input.column",
	"sheet":          "input.sheet",
	"base":           "target.base_url",
	"join":           "target.join",
	"text":           "target.marker",
	"label":          "target.match_label",
	"user-agent":     "target.user_agent",
	"concurrency":    "crawler.concurrency",
	"rps":            "crawler.rps",
	"mindelay":       "crawler.min_jitter_ms",
	"rate-mode":      "crawler.rate_mode",
	"retries":        "crawler.max_retries",
	"backoff":        "crawler.backoff_base_ms",
	"timeout":        "crawler.timeout_ms",
	"progress-every": "crawler.progress_every",
	"outfile":        "output.path",
	"extract-mode":   "extract.mode",
	"selector":       "extract.selector",
	"pg-dsn":         "postgres.dsn",
	"pg-table":       "postgres.table",
	"gcs-bucket":     "gcs.bucket",
	"gcs-object":     "gcs.object",
	"server-addr":    "server.addr",
	"dev":            "logging.development",
	"log-level":      "logging.level",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that map to a key in FlagKeys. Flags win over the
// environment, which wins over the file.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.column", "A")
	v.SetDefault("target.join", checker.DefaultJoin)
	v.SetDefault("target.match_label", string(checker.LabelMatch))
	v.SetDefault("target.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.concurrency", 2)
	v.SetDefault("crawler.rps", 0.5)
	v.SetDefault("crawler.min_jitter_ms", 1000)
	v.SetDefault("crawler.rate_mode", "per_worker")
	v.SetDefault("crawler.max_retries", 2)
	v.SetDefault("crawler.backoff_base_ms", 400)
	v.SetDefault("crawler.timeout_ms", 15000)
	v.SetDefault("crawler.progress_every", 100)
	v.SetDefault("output.path", "resultados.csv")
	v.SetDefault("extract.mode", "pattern")
	v.SetDefault("postgres.table", "marker_results")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Error reports every configuration problem at once. Missing mandatory keys
// come first.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Invalid...)
	return "config: " + strings.Join(parts, "; ")
}

// Is matches ErrMissingRequired when a mandatory key is absent.
func (e *Error) Is(target error) bool {
	return target == ErrMissingRequired && len(e.Missing) > 0
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	e := &Error{}
	if strings.TrimSpace(c.Input.File) == "" {
		e.Missing = append(e.Missing, "input.file")
	}
	if strings.TrimSpace(c.Target.BaseURL) == "" {
		e.Missing = append(e.Missing, "target.base_url")
	}
	if c.Target.Marker == "" {
		e.Missing = append(e.Missing, "target.marker")
	}
	if c.Crawler.Concurrency < 1 {
		e.Invalid = append(e.Invalid, "crawler.concurrency must be >= 1")
	}
	if !ratelimit.ValidRate(c.Crawler.RequestsPerSecond) {
		e.Invalid = append(e.Invalid, fmt.Sprintf("crawler.rps must be finite and >= %g", ratelimit.MinRequestsPerSecond))
	}
	if c.Crawler.MinJitterMs < 0 {
		e.Invalid = append(e.Invalid, "crawler.min_jitter_ms must be >= 0")
	}
	if c.Crawler.MaxRetries < 0 {
		e.Invalid = append(e.Invalid, "crawler.max_retries must be >= 0")
	}
	if c.Crawler.BackoffBaseMs < 0 {
		e.Invalid = append(e.Invalid, "crawler.backoff_base_ms must be >= 0")
	}
	if c.Crawler.TimeoutMs <= 0 {
		e.Invalid = append(e.Invalid, "crawler.timeout_ms must be > 0")
	}
	switch c.Crawler.RateMode {
	case "per_worker", "global":
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("crawler.rate_mode %q must be per_worker or global", c.Crawler.RateMode))
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		e.Invalid = append(e.Invalid, "output.path must be set")
	}
	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return e
}

// RunConfig projects the loaded configuration onto the immutable run settings.
func (c Config) RunConfig() checker.RunConfig {
	return checker.RunConfig{
		BaseURL:           c.Target.BaseURL,
		Join:              c.Target.Join,
		Marker:            c.Target.Marker,
		MatchLabel:        checker.Label(c.Target.MatchLabel),
		UserAgent:         c.Target.UserAgent,
		Concurrency:       c.Crawler.Concurrency,
		RequestsPerSecond: c.Crawler.RequestsPerSecond,
		MinJitter:         time.Duration(c.Crawler.MinJitterMs) * time.Millisecond,
		MaxRetries:        c.Crawler.MaxRetries,
		BackoffBase:       time.Duration(c.Crawler.BackoffBaseMs) * time.Millisecond,
		Timeout:           time.Duration(c.Crawler.TimeoutMs) * time.Millisecond,
		OutputPath:        c.Output.Path,
	}
}
