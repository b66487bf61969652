package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/guillermoBallester/strata/internal/adapter/datasource"
	"github.com/guillermoBallester/strata/internal/adapter/policy"
	"github.com/guillermoBallester/strata/internal/adapter/postgres"
	"github.com/guillermoBallester/strata/internal/adapter/report"
	"github.com/guillermoBallester/strata/internal/audit"
	"github.com/guillermoBallester/strata/internal/config"
	"github.com/guillermoBallester/strata/internal/core/port"
	"github.com/guillermoBallester/strata/internal/core/service"
	"github.com/guillermoBallester/strata/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// app is the wired application: analyzer, report writer and the
// observability plumbing they share.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	analyzer *service.Analyzer
	reports  *report.Writer

	closers []func(context.Context) error
}

func newLogger(cfg *config.Config) *slog.Logger {
	// Logs go to stderr; stdout carries command output and the MCP stdio transport.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	formats, err := report.ParseFormats(cfg.Formats)
	if err != nil {
		return nil, configError("report formats", err)
	}
	a.reports = report.NewWriter(cfg.OutputDir, formats, logger)

	var auditors audit.Multi
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.Options{ServiceName: "strata", Version: version})
		if err != nil {
			return nil, generalError("initializing telemetry", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		instruments := telemetry.NewInstruments()
		a.inst = instruments
		auditors = append(auditors, instruments)
		logger.Info("opentelemetry enabled")
	} else {
		a.inst = port.NoopInstrumentation{}
	}
	a.tracer = telemetry.Tracer(cfg.OTelEnabled)

	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			a.close(ctx)
			return nil, configError("opening audit log", err)
		}
		auditors = append(auditors, fa)
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}
	var auditor port.QueryAuditor = port.NoopAuditor{}
	if len(auditors) > 0 {
		auditor = auditors
		a.closers = append(a.closers, func(context.Context) error { return auditors.Close() })
	}

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		a.close(ctx)
		return nil, configError("loading policy", err)
	}
	if cfg.PolicyFile != "" {
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}
	enumeration, err := pol.EnumerationPolicy()
	if err != nil {
		a.close(ctx)
		return nil, configError("enumeration policy", err)
	}
	rules, err := service.NewRuleEngine(pol.Consistency.Rules, pol.Consistency.Placeholder, logger)
	if err != nil {
		a.close(ctx)
		return nil, configError("consistency rules", err)
	}

	opener := datasource.NewOpener(datasource.Options{
		QueryTimeout: cfg.QueryTimeout,
		Pool: postgres.PoolSettings{
			MaxConns:        cfg.Pool.MaxConns,
			MinConns:        cfg.Pool.MinConns,
			MaxConnLifetime: cfg.Pool.MaxConnLifetime,
		},
		Auditor: auditor,
	})

	a.analyzer = service.NewAnalyzer(policy.WrapOpener(opener, pol), service.AnalyzerConfig{
		Enumeration:     enumeration,
		Rules:           rules,
		Policy:          pol,
		ExcludePrefixes: cfg.ExcludePrefixes,
		Concurrency:     cfg.Concurrency,
	}, logger, a.tracer, a.inst)

	return a, nil
}

// close releases the auditors and flushes telemetry, newest first.
func (a *app) close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", slog.String("error.message", err.Error()))
	}
}
