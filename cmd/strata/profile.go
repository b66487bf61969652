package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [source...]",
		Short: "Analyse data sources and write reports",
		Long: `Analyse every configured data source, or only the named ones, and write
the configured report formats to the output directory.

A table or column that cannot be read is recorded in the report with its
error kind; only configuration problems, a source list where no source
could be opened, or unwritable reports make the command fail.`,
		Example: `  # Profile an Access export converted to SQLite
  strata profile --source schools=sqlite:./schools.db

  # Profile one source from strata.yaml, with a workbook
  strata profile warehouse --format json,markdown,xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), c, args)
		},
	}
}

func runProfile(ctx context.Context, c *cli, names []string) error {
	sources, err := selectSources(c.cfg.Sources, names)
	if err != nil {
		return err
	}

	logger := newLogger(c.cfg)
	a, err := buildApp(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	runID := uuid.NewString()
	logger.Info("starting run",
		slog.String("version", version),
		slog.String("run_id", runID),
		slog.Int("sources", len(sources)),
		slog.Int("concurrency", c.cfg.Concurrency),
	)

	start := time.Now()
	run := a.analyzer.AnalyzeAll(ctx, runID, sources)
	if err := ctx.Err(); err != nil {
		return generalError("run interrupted", err)
	}

	paths, err := a.reports.WriteRun(run)
	for _, p := range paths {
		fmt.Fprintln(c.stdout, p)
	}
	if err != nil {
		return generalError("writing reports", err)
	}

	failed, misconfigured := 0, 0
	for pair := run.Databases.Oldest(); pair != nil; pair = pair.Next() {
		db := pair.Value
		if db.Error != "" {
			failed++
			if db.ErrorKind == domain.KindConfiguration {
				misconfigured++
			}
			logger.Error("source failed",
				slog.String("db.namespace", db.Name),
				slog.String("error.type", db.ErrorKind),
				slog.String("error.message", db.Error),
			)
		}
	}
	logger.Info("run complete",
		slog.String("run_id", runID),
		slog.Int("files", len(paths)),
		slog.Int("failed_sources", failed),
		slog.Duration("duration", time.Since(start)),
	)

	if misconfigured == len(sources) {
		return configError("profiling", fmt.Errorf("%w: none of the %d sources is usable", domain.ErrConfiguration, failed))
	}
	if failed == len(sources) {
		return connectError("profiling", fmt.Errorf("%w: none of the %d sources could be analysed", domain.ErrConnection, failed))
	}
	return nil
}

// selectSources returns the sources named on the command line, or all of
// them. Names match case-insensitively.
func selectSources(all []domain.Source, names []string) ([]domain.Source, error) {
	if len(all) == 0 {
		return nil, configError("no data sources", fmt.Errorf("%w: add sources to strata.yaml, STRATA_SOURCES or --source", domain.ErrConfiguration))
	}
	if len(names) == 0 {
		return all, nil
	}

	selected := make([]domain.Source, 0, len(names))
	for _, name := range names {
		found := false
		for _, src := range all {
			if strings.EqualFold(src.Name, name) {
				selected = append(selected, src)
				found = true
				break
			}
		}
		if !found {
			return nil, configError("selecting sources", fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, name))
		}
	}
	return selected, nil
}
