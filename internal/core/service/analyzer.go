package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// AnalyzerConfig holds the policy decisions applied to every database.
type AnalyzerConfig struct {
	Enumeration domain.EnumerationPolicy
	Rules       *RuleEngine
	// Policy is optional; without it no table is an assessment table unless
	// its source says so, and no values are masked.
	Policy port.FieldPolicy
	// ExcludePrefixes drops system tables by name prefix.
	ExcludePrefixes []string
	// Concurrency is the number of tables analysed at once (minimum 1).
	Concurrency int
}

// Analyzer profiles whole databases: schema, constraints, value
// distributions and consistency checks for every table. Failures are
// recorded in the result tree at the level they happen; nothing short of a
// cancelled context stops a run.
type Analyzer struct {
	open   port.StoreOpener
	cfg    AnalyzerConfig
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
}

func NewAnalyzer(open port.StoreOpener, cfg AnalyzerConfig, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *Analyzer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Analyzer{
		open:   open,
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		inst:   inst,
	}
}

// AnalyzeAll analyses each source in order. A source that cannot be opened
// is recorded with its error and the run moves on.
func (a *Analyzer) AnalyzeAll(ctx context.Context, runID string, sources []domain.Source) *domain.RunResult {
	run := domain.NewRunResult(runID)
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		run.Databases.Set(src.Name, a.AnalyzeDatabase(ctx, runID, src))
	}
	return run
}

// AnalyzeDatabase opens src, analyses every user table and closes the store.
func (a *Analyzer) AnalyzeDatabase(ctx context.Context, runID string, src domain.Source) *domain.DatabaseResult {
	ctx, span := a.tracer.Start(ctx, "Analyzer.AnalyzeDatabase",
		trace.WithAttributes(
			attribute.String("db.system", src.Driver),
			attribute.String("db.namespace", src.Name),
		),
	)
	defer span.End()

	result := domain.NewDatabaseResult(runID, src, time.Now().UTC())
	defer func() { result.FinishedAt = time.Now().UTC() }()

	a.logger.InfoContext(ctx, "analysing database",
		slog.String("db.namespace", src.Name),
		slog.String("db.system", src.Driver),
		slog.String("location", src.Location()),
	)

	store, tables, err := a.openAndList(ctx, src)
	if err != nil {
		a.logger.ErrorContext(ctx, "database unavailable",
			slog.String("db.namespace", src.Name),
			slog.String("error.type", domain.ErrorKind(err)),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result.Fail(err)
		return result
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.WarnContext(ctx, "closing store", slog.String("db.namespace", src.Name), slog.String("error.message", err.Error()))
		}
	}()

	profiler := NewValueProfiler(store)
	tableResults := make([]*domain.TableResult, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, table := range tables {
		g.Go(func() error {
			tableResults[i] = a.analyzeTable(gctx, store, profiler, src, table)
			return nil
		})
	}
	_ = g.Wait()

	a.inferForeignKeys(tableResults)
	for _, tr := range tableResults {
		result.Tables.Set(tr.Name, tr)
	}

	span.SetAttributes(attribute.Int("db.tables", len(tables)))
	a.logger.InfoContext(ctx, "database analysed",
		slog.String("db.namespace", src.Name),
		slog.Int("tables", len(tables)),
		slog.Duration("duration", time.Since(result.StartedAt)),
	)
	return result
}

// ListTables returns the user tables of src.
func (a *Analyzer) ListTables(ctx context.Context, src domain.Source) ([]string, error) {
	store, tables, err := a.openAndList(ctx, src)
	if err != nil {
		return nil, err
	}
	_ = store.Close()
	return tables, nil
}

// AnalyzeSingleTable opens src and analyses one table of it. Declared
// foreign keys are reported but none are inferred, since that needs every
// table's primary key.
func (a *Analyzer) AnalyzeSingleTable(ctx context.Context, src domain.Source, table string) (*domain.TableResult, error) {
	store, err := a.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	profiler := NewValueProfiler(store)
	if _, err := profiler.Columns(ctx, table); err != nil {
		return nil, err
	}
	return a.analyzeTable(ctx, store, profiler, src, table), nil
}

func (a *Analyzer) openAndList(ctx context.Context, src domain.Source) (port.Store, []string, error) {
	store, err := a.open(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	names, err := store.ListTables(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, classify("listing tables", err)
	}
	return store, a.userTables(names), nil
}

func (a *Analyzer) userTables(names []string) []string {
	tables := make([]string, 0, len(names))
	for _, n := range names {
		if !a.excluded(n) {
			tables = append(tables, n)
		}
	}
	return tables
}

func (a *Analyzer) excluded(table string) bool {
	for _, p := range a.cfg.ExcludePrefixes {
		if p != "" && strings.HasPrefix(table, p) {
			return true
		}
	}
	return false
}

func (a *Analyzer) analyzeTable(ctx context.Context, store port.Store, profiler *ValueProfiler, src domain.Source, table string) *domain.TableResult {
	ctx, span := a.tracer.Start(ctx, "Analyzer.AnalyzeTable",
		trace.WithAttributes(
			attribute.String("db.namespace", src.Name),
			attribute.String("db.collection.name", table),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { a.inst.RecordTableDuration(ctx, float64(time.Since(start).Milliseconds())) }()

	result := domain.NewTableResult(table)

	cols, err := profiler.Columns(ctx, table)
	if err != nil {
		a.tableFailed(ctx, span, result, err)
		return result
	}
	result.Schema = cols
	result.ColumnCount = len(cols)

	rows, err := store.CountRows(ctx, table)
	if err != nil {
		a.tableFailed(ctx, span, result, classify("counting rows", err))
		return result
	}
	result.RowCount = rows

	result.Constraints = a.readConstraints(ctx, store, table)

	for _, col := range cols {
		result.Fields.Set(col.Name, a.analyzeField(ctx, profiler, table, col))
	}

	result.Assessment = src.Assessment
	if a.cfg.Policy != nil {
		result.Description = a.cfg.Policy.TableDescription(table)
		result.Assessment = result.Assessment || a.cfg.Policy.IsAssessmentTable(table)
	}
	if a.cfg.Rules != nil {
		result.RuleChecks = a.cfg.Rules.RunChecks(ctx, store, table, cols, result.Assessment)
		for _, o := range result.RuleChecks {
			if o.Result != nil && o.Result.MismatchRows > 0 {
				a.inst.IncrementRuleMismatches(ctx, o.Rule, o.Result.MismatchRows)
			}
		}
	}

	a.logger.DebugContext(ctx, "table analysed",
		slog.String("db.collection.name", table),
		slog.Int64("rows", rows),
		slog.Int("columns", len(cols)),
		slog.Int("failed_fields", result.FailedFields()),
		slog.Duration("duration", time.Since(start)),
	)
	return result
}

func (a *Analyzer) analyzeField(ctx context.Context, profiler *ValueProfiler, table string, col domain.ColumnDescriptor) domain.FieldAnalysis {
	dist, err := profiler.Profile(ctx, table, col.Name)
	if err != nil {
		a.inst.IncrementFieldErrors(ctx)
		a.logger.WarnContext(ctx, "field profiling failed",
			slog.String("db.collection.name", table),
			slog.String("db.column", col.Name),
			slog.String("error.type", domain.ErrorKind(err)),
			slog.String("error.message", err.Error()),
		)
		return domain.FailedField(col, err)
	}

	fa := domain.AnalyzeField(col, dist, a.cfg.Enumeration)
	if a.cfg.Policy != nil {
		domain.MaskRetention(fa.Retention, a.cfg.Policy.ColumnMask(table, col.Name))
	}
	return fa
}

// readConstraints fetches each constraint kind independently.
func (a *Analyzer) readConstraints(ctx context.Context, reader port.SchemaReader, table string) domain.ConstraintSet {
	var cs domain.ConstraintSet
	var err error

	if cs.PrimaryKey, err = reader.PrimaryKey(ctx, table); err != nil {
		cs.RecordError(domain.ConstraintPrimaryKey, classify("reading primary key", err))
	}
	if cs.ForeignKeys, err = reader.ForeignKeys(ctx, table); err != nil {
		cs.RecordError(domain.ConstraintForeignKeys, classify("reading foreign keys", err))
	}
	if cs.Indexes, err = reader.Indexes(ctx, table); err != nil {
		cs.RecordError(domain.ConstraintIndexes, classify("reading indexes", err))
	}

	for kind, msg := range cs.Errors {
		a.logger.WarnContext(ctx, "constraint retrieval failed",
			slog.String("db.collection.name", table),
			slog.String("constraint", string(kind)),
			slog.String("error.message", msg),
		)
	}
	return cs
}

func (a *Analyzer) inferForeignKeys(tables []*domain.TableResult) {
	primaryKeys := make(map[string][]string, len(tables))
	for _, t := range tables {
		if t.Error == "" {
			primaryKeys[t.Name] = t.Constraints.PrimaryKeyColumns()
		}
	}
	for _, t := range tables {
		if t.Error == "" {
			t.InferredForeignKeys = domain.InferForeignKeys(t.Name, t.Schema, t.Constraints, primaryKeys)
		}
	}
}

func (a *Analyzer) tableFailed(ctx context.Context, span trace.Span, result *domain.TableResult, err error) {
	a.logger.WarnContext(ctx, "table analysis failed",
		slog.String("db.collection.name", result.Name),
		slog.String("error.type", domain.ErrorKind(err)),
		slog.String("error.message", err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("table %s: %v", result.Name, err))
	result.Fail(err)
}
