package telemetry

import (
	"context"

	"github.com/guillermoBallester/strata/internal/core/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/strata"

// Instruments holds pre-created OTel metric instruments. It satisfies
// port.Instrumentation and, by counting the statements it is shown,
// port.QueryAuditor.
type Instruments struct {
	QueryCount     metric.Int64Counter
	QueryDuration  metric.Float64Histogram
	QueryErrors    metric.Int64Counter
	TableDuration  metric.Float64Histogram
	FieldErrors    metric.Int64Counter
	RuleMismatches metric.Int64Counter
	ToolDuration   metric.Float64Histogram
}

var (
	_ port.Instrumentation = (*Instruments)(nil)
	_ port.QueryAuditor    = (*Instruments)(nil)
)

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	queryCount, _ := meter.Int64Counter("strata.query.count",
		metric.WithDescription("Statements sent to data sources"),
	)
	queryDuration, _ := meter.Float64Histogram("strata.query.duration",
		metric.WithDescription("Statement duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("strata.query.errors",
		metric.WithDescription("Statements that failed"),
	)
	tableDuration, _ := meter.Float64Histogram("strata.table.duration",
		metric.WithDescription("Time to analyse one table in milliseconds"),
		metric.WithUnit("ms"),
	)
	fieldErrors, _ := meter.Int64Counter("strata.field.errors",
		metric.WithDescription("Columns that could not be profiled"),
	)
	ruleMismatches, _ := meter.Int64Counter("strata.rule.mismatches",
		metric.WithDescription("Rows failing a consistency rule"),
	)
	toolDuration, _ := meter.Float64Histogram("strata.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:     queryCount,
		QueryDuration:  queryDuration,
		QueryErrors:    queryErrors,
		TableDuration:  tableDuration,
		FieldErrors:    fieldErrors,
		RuleMismatches: ruleMismatches,
		ToolDuration:   toolDuration,
	}
}

// Record counts one store statement, tagged with its source and operation.
func (i *Instruments) Record(ctx context.Context, entry port.AuditEntry) {
	attrs := metric.WithAttributes(
		attribute.String("strata.source", entry.Source),
		attribute.String("strata.operation", entry.Operation),
	)
	i.QueryCount.Add(ctx, 1, attrs)
	i.QueryDuration.Record(ctx, float64(entry.DurationMS), attrs)
	if entry.Err != nil {
		i.QueryErrors.Add(ctx, 1, attrs)
	}
}

// Close is a no-op; the meter provider owns the instruments.
func (i *Instruments) Close() error { return nil }

func (i *Instruments) RecordTableDuration(ctx context.Context, ms float64) {
	i.TableDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementFieldErrors(ctx context.Context) {
	i.FieldErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementRuleMismatches(ctx context.Context, rule string, n int64) {
	if n <= 0 {
		return
	}
	i.RuleMismatches.Add(ctx, n, metric.WithAttributes(attribute.String("strata.rule", rule)))
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
