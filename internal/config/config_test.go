package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir runs the test from a directory without a strata.yaml.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func ptr[T any](v T) *T { return &v }

func TestLoad_Defaults(t *testing.T) {
	inEmptyDir(t)

	cfg, path, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.QueryTimeout)
	assert.Equal(t, []string{"MSys", "sqlite_"}, cfg.ExcludePrefixes)
	assert.Equal(t, "analysis_results", cfg.OutputDir)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, int32(5), cfg.Pool.MaxConns)
	assert.Equal(t, int32(1), cfg.Pool.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.Pool.MaxConnLifetime)
	assert.Empty(t, cfg.Sources)
}

func TestLoad_EnvVars(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("STRATA_LOG_LEVEL", "debug")
	t.Setenv("STRATA_CONCURRENCY", "4")
	t.Setenv("STRATA_QUERY_TIMEOUT", "30s")
	t.Setenv("STRATA_FORMATS", "json,xlsx")
	t.Setenv("STRATA_POLICY_FILE", "/tmp/policy.yaml")
	t.Setenv("STRATA_SOURCES", "a=sqlite:/data/a.db;b=mysql:u:p@tcp(db:3306)/b")

	cfg, _, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, []string{"json", "xlsx"}, cfg.Formats)
	assert.Equal(t, "/tmp/policy.yaml", cfg.PolicyFile)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, domain.Source{Name: "b", Driver: "mysql", DSN: "u:p@tcp(db:3306)/b"}, cfg.Sources[1])
}

func TestLoad_File(t *testing.T) {
	dir := inEmptyDir(t)
	content := `
log_level: warn
output_dir: reports
concurrency: 2
exclude_prefixes: [MSys, "~TMP"]
sources:
  - name: schools
    driver: sqlite
    dsn: /data/schools.db
    assessment: true
pool:
  max_conns: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(content), 0o600))
	t.Setenv("STRATA_CONCURRENCY", "3")

	cfg, path, err := Load(Overrides{Sources: []string{"extra=sqlite:/data/extra.db"}})
	require.NoError(t, err)

	assert.Equal(t, DefaultFile, path)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, 3, cfg.Concurrency, "environment overrides the file")
	assert.Equal(t, []string{"MSys", "~TMP"}, cfg.ExcludePrefixes)
	assert.Equal(t, int32(8), cfg.Pool.MaxConns)
	require.Len(t, cfg.Sources, 2)
	assert.True(t, cfg.Sources[0].Assessment)
	assert.Equal(t, "extra", cfg.Sources[1].Name)
}

func TestLoad_NamedFileMustExist(t *testing.T) {
	inEmptyDir(t)

	_, _, err := Load(Overrides{ConfigFile: "missing.yaml"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestLoad_Overrides(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("STRATA_OUTPUT_DIR", "from-env")

	cfg, _, err := Load(Overrides{
		LogLevel:            ptr("error"),
		Concurrency:         ptr(6),
		QueryTimeout:        ptr(time.Minute),
		OutputDir:           ptr("from-flag"),
		Formats:             []string{"md"},
		AuditLog:            ptr("/tmp/audit.ndjson"),
		OTelEnabled:         true,
		PoolMaxConns:        ptr(int32(20)),
		PoolMinConns:        ptr(int32(2)),
		PoolMaxConnLifetime: ptr(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, time.Minute, cfg.QueryTimeout)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.Equal(t, []string{"md"}, cfg.Formats)
	assert.Equal(t, "/tmp/audit.ndjson", cfg.AuditLog)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, int32(20), cfg.Pool.MaxConns)
	assert.Equal(t, time.Hour, cfg.Pool.MaxConnLifetime)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		o       Overrides
		wantMsg string
	}{
		{name: "log level", env: map[string]string{"STRATA_LOG_LEVEL": "loud"}, wantMsg: "log level"},
		{name: "concurrency flag", o: Overrides{Concurrency: ptr(0)}, wantMsg: "--concurrency"},
		{name: "query timeout env", env: map[string]string{"STRATA_QUERY_TIMEOUT": "soon"}, wantMsg: "reading config"},
		{name: "source spec", o: Overrides{Sources: []string{"nodriver"}}, wantMsg: "name=driver:dsn"},
		{name: "unsupported driver", o: Overrides{Sources: []string{"x=oracle:dsn"}}, wantMsg: "unsupported driver"},
		{name: "duplicate source", o: Overrides{Sources: []string{"a=sqlite:a.db", "A=sqlite:b.db"}}, wantMsg: "configured twice"},
		{name: "transport", o: Overrides{Transport: ptr("grpc")}, wantMsg: "transport"},
		{name: "http without token", o: Overrides{Transport: ptr("http")}, wantMsg: "STRATA_HTTP_BEARER_TOKEN"},
		{name: "pool bounds", o: Overrides{PoolMinConns: ptr(int32(9))}, wantMsg: "min_conns"},
		{name: "pool max flag", o: Overrides{PoolMaxConns: ptr(int32(0))}, wantMsg: "--pool-max-conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inEmptyDir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := Load(tt.o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseSourceSpec(t *testing.T) {
	src, err := ParseSourceSpec("warehouse=postgres:postgres://user:pw@db:5432/wh?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "warehouse", src.Name)
	assert.Equal(t, "postgres", src.Driver)
	assert.Equal(t, "postgres://user:pw@db:5432/wh?sslmode=disable", src.DSN)

	src, err = ParseSourceSpec("legacy = SQLServer:sqlserver://sa:pw@host?database=legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", src.Name)
	assert.Equal(t, "sqlserver", src.Driver)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{
		Sources:         []domain.Source{{Name: "wh", Driver: "postgres", DSN: "postgres://user:pw@db/wh"}},
		HTTPBearerToken: "secret",
	}
	red := cfg.Redacted()

	assert.NotContains(t, red.Sources[0].DSN, "pw")
	assert.Empty(t, red.HTTPBearerToken)
	assert.Equal(t, "postgres://user:pw@db/wh", cfg.Sources[0].DSN, "input is untouched")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
