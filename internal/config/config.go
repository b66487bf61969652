// Package config loads the strata configuration from an optional YAML file,
// STRATA_* environment variables and command-line overrides, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is read when no config file is named and it exists.
const DefaultFile = "strata.yaml"

type Config struct {
	// Logging.
	LogLevelName string     `yaml:"log_level" env:"STRATA_LOG_LEVEL" env-default:"info"`
	LogLevel     slog.Level `yaml:"-"`

	// Data sources. SourceSpecs are "name=driver:dsn" entries appended to
	// Sources, so DSNs holding credentials can stay out of the file.
	Sources     []domain.Source `yaml:"sources"`
	SourceSpecs []string        `yaml:"-" env:"STRATA_SOURCES" env-separator:";"`

	// Analysis.
	Concurrency     int           `yaml:"concurrency" env:"STRATA_CONCURRENCY" env-default:"1"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"STRATA_QUERY_TIMEOUT" env-default:"5m"`
	ExcludePrefixes []string      `yaml:"exclude_prefixes" env:"STRATA_EXCLUDE_PREFIXES" env-separator:"," env-default:"MSys,sqlite_"`
	PolicyFile      string        `yaml:"policy_file" env:"STRATA_POLICY_FILE"`

	// Reports.
	OutputDir string   `yaml:"output_dir" env:"STRATA_OUTPUT_DIR" env-default:"analysis_results"`
	Formats   []string `yaml:"formats" env:"STRATA_FORMATS" env-separator:","`

	// Connection pool, used by postgres and the database/sql drivers.
	Pool PoolConfig `yaml:"pool"`

	// MCP transport for the serve command.
	Transport       string `yaml:"transport" env:"STRATA_TRANSPORT" env-default:"stdio"`
	HTTPAddr        string `yaml:"http_addr" env:"STRATA_HTTP_ADDR" env-default:":8080"`
	HTTPBearerToken string `yaml:"-" env:"STRATA_HTTP_BEARER_TOKEN"`

	// Observability.
	OTelEnabled bool   `yaml:"otel_enabled" env:"STRATA_OTEL_ENABLED"`
	AuditLog    string `yaml:"audit_log" env:"STRATA_AUDIT_LOG"`
}

type PoolConfig struct {
	MaxConns        int32         `yaml:"max_conns" env:"STRATA_POOL_MAX_CONNS" env-default:"5"`
	MinConns        int32         `yaml:"min_conns" env:"STRATA_POOL_MIN_CONNS" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"STRATA_POOL_MAX_CONN_LIFETIME" env-default:"30m"`
}

// Overrides holds CLI flag values that override the file and environment.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	ConfigFile   string
	LogLevel     *string
	Sources      []string
	Concurrency  *int
	QueryTimeout *time.Duration
	PolicyFile   *string
	OutputDir    *string
	Formats      []string
	AuditLog     *string
	OTelEnabled  bool

	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string

	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from the config file and environment, applies CLI
// overrides and validates the result. It returns the file that was read,
// or "" when none was. Every error wraps domain.ErrConfiguration.
func Load(o Overrides) (*Config, string, error) {
	cfg := &Config{}

	path, err := resolveFile(o.ConfigFile)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading config: %v", domain.ErrConfiguration, err)
	}

	if err := applyOverrides(cfg, o); err != nil {
		return nil, "", configError(err)
	}
	if err := finish(cfg); err != nil {
		return nil, "", configError(err)
	}
	return cfg, path, nil
}

func configError(err error) error {
	if errors.Is(err, domain.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
}

// resolveFile returns the file to read: the named one, which must exist, or
// DefaultFile when present.
func resolveFile(named string) (string, error) {
	if named != "" {
		if _, err := os.Stat(named); err != nil {
			return "", fmt.Errorf("%w: config file %s: %v", domain.ErrConfiguration, named, err)
		}
		return named, nil
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: config file %s: %v", domain.ErrConfiguration, DefaultFile, err)
	}
	return "", nil
}

// applyOverrides applies CLI flag values on top of the loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.LogLevel != nil {
		cfg.LogLevelName = *o.LogLevel
	}
	cfg.SourceSpecs = append(cfg.SourceSpecs, o.Sources...)
	if o.Concurrency != nil {
		if *o.Concurrency <= 0 {
			return fmt.Errorf("invalid --concurrency value: must be a positive integer")
		}
		cfg.Concurrency = *o.Concurrency
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}
	if o.OutputDir != nil {
		cfg.OutputDir = *o.OutputDir
	}
	if len(o.Formats) > 0 {
		cfg.Formats = o.Formats
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	return applyPoolOverrides(cfg, o)
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.Pool.MaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.Pool.MinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.Pool.MaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// finish derives the parsed fields and checks cross-field constraints.
func finish(cfg *Config) error {
	level, err := parseLogLevel(cfg.LogLevelName)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	for _, spec := range cfg.SourceSpecs {
		src, err := ParseSourceSpec(spec)
		if err != nil {
			return err
		}
		cfg.Sources = append(cfg.Sources, src)
	}
	cfg.SourceSpecs = nil

	return validate(cfg)
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(src.Name)
		if seen[key] {
			return fmt.Errorf("data source %q is configured twice", src.Name)
		}
		seen[key] = true
	}

	if cfg.Concurrency <= 0 {
		return fmt.Errorf("invalid concurrency %d: must be a positive integer", cfg.Concurrency)
	}
	if cfg.QueryTimeout < 0 {
		return fmt.Errorf("invalid query_timeout %s: must not be negative", cfg.QueryTimeout)
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}
	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("STRATA_HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	if cfg.Pool.MinConns > cfg.Pool.MaxConns {
		return fmt.Errorf("pool min_conns (%d) must not exceed max_conns (%d)", cfg.Pool.MinConns, cfg.Pool.MaxConns)
	}
	return nil
}

// ParseSourceSpec parses "name=driver:dsn", for example
// "schools=sqlite:/data/schools.db" or
// "warehouse=postgres:postgres://user:pw@host/db".
func ParseSourceSpec(spec string) (domain.Source, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return domain.Source{}, fmt.Errorf("invalid source %q: want name=driver:dsn", spec)
	}
	driver, dsn, ok := strings.Cut(rest, ":")
	if !ok {
		return domain.Source{}, fmt.Errorf("invalid source %q: want name=driver:dsn", spec)
	}
	src := domain.Source{
		Name:   strings.TrimSpace(name),
		Driver: strings.ToLower(strings.TrimSpace(driver)),
		DSN:    strings.TrimSpace(dsn),
	}
	if err := src.Validate(); err != nil {
		return domain.Source{}, err
	}
	return src, nil
}

// Redacted returns a copy safe to print: DSNs lose their passwords and the
// bearer token is dropped.
func (c *Config) Redacted() *Config {
	out := *c
	out.Sources = make([]domain.Source, len(c.Sources))
	for i, src := range c.Sources {
		src.DSN = src.Location()
		out.Sources[i] = src
	}
	out.HTTPBearerToken = ""
	return &out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", s)
	}
}
